// internal/service/campaign_service.go
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	appErrors "github.com/unclebandit/leadgen-backend/internal/errors"
	"github.com/unclebandit/leadgen-backend/internal/model"
	"github.com/unclebandit/leadgen-backend/internal/repository"
)

// UsageEnforcer is the part of UsageService that create operations depend on.
type UsageEnforcer interface {
	Enforce(ctx context.Context, organisationID int64, action UsageAction, count int) error
}

type CampaignService struct {
	CampaignRepo     repository.CampaignRepositoryInterface
	RecipientRepo    repository.RecipientRepositoryInterface
	LeadRepo         repository.LeadRepositoryInterface
	OrganisationRepo repository.OrganisationRepositoryInterface
	Usage            UsageEnforcer
}

type CampaignDetails struct {
	ID              int64                `json:"id"`
	OrganisationID  int64                `json:"organisation_id"`
	Name            string               `json:"name"`
	Description     *string              `json:"description,omitempty"`
	Status          model.CampaignStatus `json:"status"`
	TotalRecipients int                  `json:"total_recipients"`
	TotalSent       int                  `json:"total_sent"`
	Steps           int                  `json:"steps"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
	Stats           map[string]int       `json:"stats"`
}

type CreateCampaignInput struct {
	OrganisationID   int64  `json:"organisation_id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	IsTemplate       bool   `json:"is_template"`
	TemplateCategory string `json:"template_category"`
}

// CreateCampaign stores a draft campaign once the organisation's campaign quota allows it.
func (s *CampaignService) CreateCampaign(ctx context.Context, in CreateCampaignInput) (*model.Campaign, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, appErrors.NewInvalidInput("name", "name is required")
	}
	if _, err := s.OrganisationRepo.GetByID(ctx, in.OrganisationID); err != nil {
		return nil, err
	}
	if err := s.Usage.Enforce(ctx, in.OrganisationID, ActionCampaign, 1); err != nil {
		return nil, err
	}

	c := &model.Campaign{
		OrganisationID:   in.OrganisationID,
		Name:             name,
		Description:      model.Ptr(in.Description),
		Status:           model.CampaignDraft,
		IsTemplate:       in.IsTemplate,
		TemplateCategory: model.Ptr(in.TemplateCategory),
	}
	if err := s.CampaignRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(ctx context.Context, organisationID int64, status string, page, pageSize int) ([]model.Campaign, map[string]int, error) {
	if status != "" && !model.CampaignStatus(status).Valid() {
		return nil, nil, appErrors.NewInvalidInput("status", fmt.Sprintf("unknown status %q", status))
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.ListCampaigns(ctx, organisationID, status, offset, pageSize)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return campaigns, pagination, nil
}

func (s *CampaignService) GetCampaign(ctx context.Context, id int64) (*model.Campaign, error) {
	return s.CampaignRepo.GetByID(ctx, id)
}

// UpdateStatus moves a campaign to status. Completed campaigns stay completed.
func (s *CampaignService) UpdateStatus(ctx context.Context, id int64, status string) (*model.Campaign, error) {
	next := model.CampaignStatus(status)
	if !next.Valid() {
		return nil, appErrors.NewInvalidInput("status", fmt.Sprintf("unknown status %q", status))
	}

	c, err := s.CampaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Status.CanTransitionTo(next) {
		return nil, appErrors.NewInvalidInput("status", fmt.Sprintf("cannot move a %s campaign to %s", c.Status, next))
	}
	if c.Status == next {
		return c, nil
	}

	if err := s.CampaignRepo.UpdateStatus(ctx, id, next); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"campaign_id": id, "from": c.Status, "to": next}).Info("campaign status changed")
	c.Status = next
	return c, nil
}

type AddStepInput struct {
	CampaignID int64  `json:"campaign_id"`
	StepNumber int    `json:"step_number"`
	Channel    string `json:"channel"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	DelayDays  int    `json:"delay_days"`
}

func (s *CampaignService) AddStep(ctx context.Context, in AddStepInput) (*model.CampaignStep, error) {
	channel := model.Channel(in.Channel)
	switch {
	case in.StepNumber < 1:
		return nil, appErrors.NewInvalidInput("step_number", "must be at least 1")
	case !channel.Valid():
		return nil, appErrors.NewInvalidInput("channel", fmt.Sprintf("unknown channel %q", in.Channel))
	case strings.TrimSpace(in.Body) == "":
		return nil, appErrors.NewInvalidInput("body", "body is required")
	case in.DelayDays < 0:
		return nil, appErrors.NewInvalidInput("delay_days", "must not be negative")
	}

	if _, err := s.CampaignRepo.GetByID(ctx, in.CampaignID); err != nil {
		return nil, err
	}

	existing, err := s.CampaignRepo.GetStep(ctx, in.CampaignID, in.StepNumber)
	if err != nil && !appErrors.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return nil, appErrors.NewInvalidInput("step_number", fmt.Sprintf("step %d already exists", in.StepNumber))
	}

	step := &model.CampaignStep{
		CampaignID: in.CampaignID,
		StepNumber: in.StepNumber,
		Channel:    channel,
		DelayDays:  in.DelayDays,
		Body:       in.Body,
	}
	if channel == model.ChannelEmail {
		step.Subject = model.Ptr(in.Subject)
	}
	if err := s.CampaignRepo.CreateStep(ctx, step); err != nil {
		return nil, err
	}
	return step, nil
}

func (s *CampaignService) ListSteps(ctx context.Context, campaignID int64) ([]*model.CampaignStep, error) {
	if _, err := s.CampaignRepo.GetByID(ctx, campaignID); err != nil {
		return nil, err
	}
	return s.CampaignRepo.ListSteps(ctx, campaignID)
}

// EnrollRecipient adds a lead of the campaign's organisation. A lead is enrolled at most once.
func (s *CampaignService) EnrollRecipient(ctx context.Context, campaignID, leadID int64) (*model.CampaignRecipient, error) {
	c, err := s.CampaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if c.Status == model.CampaignCompleted {
		return nil, appErrors.NewInvalidInput("campaign", "campaign is completed")
	}

	lead, err := s.LeadRepo.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead.OrganisationID != c.OrganisationID {
		return nil, appErrors.NewInvalidInput("lead_id", "lead belongs to another organisation")
	}

	exists, err := s.RecipientRepo.ExistsForLead(ctx, campaignID, leadID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, appErrors.NewInvalidInput("lead_id", "lead is already enrolled")
	}

	r := &model.CampaignRecipient{
		CampaignID: campaignID,
		LeadID:     &lead.ID,
		Status:     model.RecipientPending,
	}
	if err := s.RecipientRepo.Create(ctx, r); err != nil {
		return nil, err
	}
	if err := s.CampaignRepo.IncrementRecipients(ctx, campaignID); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *CampaignService) ListRecipients(ctx context.Context, campaignID int64, status string) ([]*model.CampaignRecipient, error) {
	if _, err := s.CampaignRepo.GetByID(ctx, campaignID); err != nil {
		return nil, err
	}
	if status == "" {
		return s.RecipientRepo.ListByCampaign(ctx, campaignID)
	}
	st := model.RecipientStatus(status)
	if !st.Valid() {
		return nil, appErrors.NewInvalidInput("status", fmt.Sprintf("unknown status %q", status))
	}
	return s.RecipientRepo.ListByCampaign(ctx, campaignID, st)
}

// RetryRecipient puts a failed recipient back in pending at the same step.
func (s *CampaignService) RetryRecipient(ctx context.Context, recipientID int64) (*model.CampaignRecipient, error) {
	ok, err := s.RecipientRepo.Requeue(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	r, err := s.RecipientRepo.GetByID(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErrors.NewInvalidInput("recipient", fmt.Sprintf("only failed recipients can be retried, status is %s", r.Status))
	}
	logrus.WithField("recipient_id", recipientID).Info("recipient requeued")
	return r, nil
}

// Unsubscribe stops all further steps for the recipient.
func (s *CampaignService) Unsubscribe(ctx context.Context, recipientID int64) error {
	ok, err := s.RecipientRepo.Unsubscribe(ctx, recipientID)
	if err != nil {
		return err
	}
	if ok {
		logrus.WithField("recipient_id", recipientID).Info("recipient unsubscribed")
		return nil
	}
	if _, err := s.RecipientRepo.GetByID(ctx, recipientID); err != nil {
		return err
	}
	return appErrors.NewInvalidInput("recipient", "recipient already completed the campaign")
}

// RenderPreview renders a stored step for a real lead without sending it.
func (s *CampaignService) RenderPreview(ctx context.Context, campaignID int64, stepNumber int, leadID int64) (*RenderedMessage, error) {
	c, err := s.CampaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	step, err := s.CampaignRepo.GetStep(ctx, campaignID, stepNumber)
	if err != nil {
		return nil, err
	}
	lead, err := s.LeadRepo.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead.OrganisationID != c.OrganisationID {
		return nil, appErrors.NewInvalidInput("lead_id", "lead belongs to another organisation")
	}
	org, err := s.OrganisationRepo.GetByID(ctx, c.OrganisationID)
	if err != nil {
		return nil, err
	}

	vars, err := leadVariables(lead, org)
	if err != nil {
		return nil, err
	}
	msg := renderStep(step, vars)
	return &msg, nil
}

func (s *CampaignService) GetCampaignDetailsWithStats(ctx context.Context, campaignID int64) (*CampaignDetails, error) {
	c, err := s.CampaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	steps, err := s.CampaignRepo.ListSteps(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	counts, err := s.RecipientRepo.CountByStatus(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	stats := map[string]int{
		"total":                              0,
		string(model.RecipientPending):      0,
		string(model.RecipientActive):       0,
		string(model.RecipientCompleted):    0,
		string(model.RecipientUnsubscribed): 0,
		string(model.RecipientFailed):       0,
	}
	for status, n := range counts {
		stats[string(status)] = n
		stats["total"] += n
	}

	return &CampaignDetails{
		ID:              c.ID,
		OrganisationID:  c.OrganisationID,
		Name:            c.Name,
		Description:     c.Description,
		Status:          c.Status,
		TotalRecipients: c.TotalRecipients,
		TotalSent:       c.TotalSent,
		Steps:           len(steps),
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
		Stats:           stats,
	}, nil
}
