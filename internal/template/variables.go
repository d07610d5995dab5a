package template

import (
	"strings"

	appErrors "github.com/unclebandit/leadgen-backend/internal/errors"
	"github.com/unclebandit/leadgen-backend/internal/model"
)

// Recipient is the lead or prospect a message is addressed to.
type Recipient struct {
	BusinessName string
	ContactName  string
	Email        string
	Phone        string
	Website      string
	Address      string
	City         string
	State        string
}

// Sender describes the organisation a message is sent on behalf of.
type Sender struct {
	Name              string
	Website           string
	City              string
	State             string
	LeadHandlingEmail string
	LeadHandlingSMS   string
}

// User is the person sending, when known.
type User struct {
	Name  string
	Email string
}

// Data is the input to Build. One of Lead or Prospect is required.
type Data struct {
	Lead         *Recipient
	Prospect     *Recipient
	Organisation Sender
	User         *User
}

// Build flattens recipient and sender records into Variables.
// Empty optional fields are left undefined.
func Build(data Data) (Variables, error) {
	recipient := data.Lead
	if recipient == nil {
		recipient = data.Prospect
	}
	if recipient == nil {
		return nil, appErrors.NewInvalidInput("recipient", "either lead or prospect data is required")
	}

	first, last, _ := strings.Cut(recipient.ContactName, " ")

	vars := Variables{
		"firstName":    first,
		"lastName":     last,
		"fullName":     recipient.ContactName,
		"businessName": recipient.BusinessName,
	}
	setIfPresent(vars, "email", recipient.Email)
	setIfPresent(vars, "phone", recipient.Phone)
	setIfPresent(vars, "website", recipient.Website)
	setIfPresent(vars, "address", recipient.Address)
	setIfPresent(vars, "city", recipient.City)
	setIfPresent(vars, "state", recipient.State)

	org := data.Organisation
	senderName, senderEmail := org.Name, org.LeadHandlingEmail
	if data.User != nil {
		if data.User.Name != "" {
			senderName = data.User.Name
		}
		if data.User.Email != "" {
			senderEmail = data.User.Email
		}
	}
	setIfPresent(vars, "senderName", senderName)
	setIfPresent(vars, "senderCompany", org.Name)
	setIfPresent(vars, "senderEmail", senderEmail)
	setIfPresent(vars, "senderPhone", org.LeadHandlingSMS)
	setIfPresent(vars, "senderWebsite", org.Website)
	setIfPresent(vars, "senderCity", org.City)
	setIfPresent(vars, "senderState", org.State)

	return vars, nil
}

func setIfPresent(vars Variables, key, value string) {
	if value != "" {
		vars[key] = value
	}
}

// FromLead maps a lead onto template recipient fields.
func FromLead(l *model.Lead) *Recipient {
	if l == nil {
		return nil
	}
	return &Recipient{
		BusinessName: l.BusinessName,
		ContactName:  model.Deref(l.ContactName),
		Email:        model.Deref(l.Email),
		Phone:        model.Deref(l.Phone),
		Website:      model.Deref(l.Website),
		Address:      model.Deref(l.Address),
		City:         model.Deref(l.City),
		State:        model.Deref(l.State),
	}
}

// FromProspect maps a prospect onto template recipient fields.
func FromProspect(p *model.Prospect) *Recipient {
	if p == nil {
		return nil
	}
	return &Recipient{
		BusinessName: p.BusinessName,
		Email:        model.Deref(p.Email),
		Phone:        model.Deref(p.Phone),
		Website:      model.Deref(p.Website),
		Address:      model.Deref(p.Address),
		City:         model.Deref(p.City),
		State:        model.Deref(p.State),
	}
}

// FromOrganisation maps the sending organisation onto sender fields.
func FromOrganisation(o *model.Organisation) Sender {
	if o == nil {
		return Sender{}
	}
	return Sender{
		Name:              o.Name,
		Website:           model.Deref(o.Website),
		City:              model.Deref(o.City),
		State:             model.Deref(o.State),
		LeadHandlingEmail: model.Deref(o.LeadHandlingEmail),
		LeadHandlingSMS:   model.Deref(o.LeadHandlingSMS),
	}
}
