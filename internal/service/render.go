package service

import (
	"github.com/unclebandit/leadgen-backend/internal/model"
	"github.com/unclebandit/leadgen-backend/internal/template"
)

// RenderedMessage is a step rendered for one lead.
type RenderedMessage struct {
	StepNumber       int           `json:"step_number"`
	Channel          model.Channel `json:"channel"`
	Subject          string        `json:"subject,omitempty"`
	Body             string        `json:"body"`
	MissingVariables []string      `json:"missing_variables"`
}

func leadVariables(lead *model.Lead, org *model.Organisation) (template.Variables, error) {
	return template.Build(template.Data{
		Lead:         template.FromLead(lead),
		Organisation: template.FromOrganisation(org),
	})
}

// renderStep substitutes vars into the step. Missing variables are reported, not fatal.
func renderStep(step *model.CampaignStep, vars template.Variables) RenderedMessage {
	msg := RenderedMessage{
		StepNumber: step.StepNumber,
		Channel:    step.Channel,
		Body:       template.Replace(step.Body, vars),
	}
	msg.MissingVariables = template.Validate(step.Body, vars)
	if step.Channel == model.ChannelEmail {
		subject := step.SubjectText()
		msg.Subject = template.Replace(subject, vars)
		msg.MissingVariables = append(msg.MissingVariables, template.Validate(subject, vars)...)
	}
	return msg
}
