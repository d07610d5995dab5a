package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/unclebandit/leadgen-backend/internal/errors"
	"github.com/unclebandit/leadgen-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	// Campaign CRUD
	Create(ctx context.Context, c *model.Campaign) error
	GetByID(ctx context.Context, id int64) (*model.Campaign, error)
	ListCampaigns(ctx context.Context, organisationID int64, status string, offset, limit int) ([]*model.Campaign, int, error)
	ListByStatus(ctx context.Context, status model.CampaignStatus) ([]*model.Campaign, error)
	CountByStatus(ctx context.Context, organisationID int64, statuses ...model.CampaignStatus) (int, error)
	UpdateStatus(ctx context.Context, campaignID int64, status model.CampaignStatus) error

	// Counters
	IncrementSent(ctx context.Context, campaignID int64) error
	IncrementRecipients(ctx context.Context, campaignID int64) error

	// Steps
	CreateStep(ctx context.Context, s *model.CampaignStep) error
	ListSteps(ctx context.Context, campaignID int64) ([]*model.CampaignStep, error)
	GetStep(ctx context.Context, campaignID int64, stepNumber int) (*model.CampaignStep, error)
}

type CampaignRepository struct {
	DB *sqlx.DB
}

const campaignColumns = `id, organisation_id, name, description, status, is_template, template_category,
	total_recipients, total_sent, total_opened, total_replied, created_at, updated_at`

// ====================== Campaign CRUD ======================

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	query := `
		INSERT INTO campaigns (organisation_id, name, description, status, is_template, template_category, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	id, err := insertReturningID(ctx, r.DB, query,
		c.OrganisationID, c.Name, c.Description, c.Status, c.IsTemplate, c.TemplateCategory, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	c.ID = id
	return nil
}

func (r *CampaignRepository) GetByID(ctx context.Context, id int64) (*model.Campaign, error) {
	var c model.Campaign
	err := r.DB.GetContext(ctx, &c, r.DB.Rebind(`SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return &c, nil
}

func (r *CampaignRepository) ListCampaigns(ctx context.Context, organisationID int64, status string, offset, limit int) ([]*model.Campaign, int, error) {
	where := ` WHERE organisation_id = ?`
	args := []interface{}{organisationID}
	if status != "" {
		where += ` AND status = ?`
		args = append(args, status)
	}

	campaigns := []*model.Campaign{}
	query := `SELECT ` + campaignColumns + ` FROM campaigns` + where + ` ORDER BY id DESC LIMIT ? OFFSET ?`
	if err := r.DB.SelectContext(ctx, &campaigns, r.DB.Rebind(query), append(args, limit, offset)...); err != nil {
		return nil, 0, fmt.Errorf("failed to list campaigns: %w", err)
	}

	var total int
	if err := r.DB.GetContext(ctx, &total, r.DB.Rebind(`SELECT COUNT(*) FROM campaigns`+where), args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count campaigns: %w", err)
	}

	return campaigns, total, nil
}

func (r *CampaignRepository) ListByStatus(ctx context.Context, status model.CampaignStatus) ([]*model.Campaign, error) {
	campaigns := []*model.Campaign{}
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE status = ? ORDER BY id`
	if err := r.DB.SelectContext(ctx, &campaigns, r.DB.Rebind(query), status); err != nil {
		return nil, fmt.Errorf("failed to list %s campaigns: %w", status, err)
	}
	return campaigns, nil
}

func (r *CampaignRepository) CountByStatus(ctx context.Context, organisationID int64, statuses ...model.CampaignStatus) (int, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`SELECT COUNT(*) FROM campaigns WHERE organisation_id = ? AND status IN (?)`, organisationID, statuses)
	if err != nil {
		return 0, fmt.Errorf("failed to build campaign count: %w", err)
	}
	var n int
	if err := r.DB.GetContext(ctx, &n, r.DB.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("failed to count campaigns: %w", err)
	}
	return n, nil
}

func (r *CampaignRepository) UpdateStatus(ctx context.Context, campaignID int64, status model.CampaignStatus) error {
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(`UPDATE campaigns SET status = ?, updated_at = ? WHERE id = ?`), status, now(), campaignID)
	if err != nil {
		return fmt.Errorf("failed to update campaign status: %w", err)
	}
	if n, err := rowsAffected(res); err == nil && n == 0 {
		return appErrors.NewCampaignNotFound(campaignID)
	}
	return nil
}

// ====================== Counters ======================

func (r *CampaignRepository) IncrementSent(ctx context.Context, campaignID int64) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind(`UPDATE campaigns SET total_sent = total_sent + 1, updated_at = ? WHERE id = ?`), now(), campaignID)
	if err != nil {
		return fmt.Errorf("failed to increment sent counter: %w", err)
	}
	return nil
}

func (r *CampaignRepository) IncrementRecipients(ctx context.Context, campaignID int64) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind(`UPDATE campaigns SET total_recipients = total_recipients + 1, updated_at = ? WHERE id = ?`), now(), campaignID)
	if err != nil {
		return fmt.Errorf("failed to increment recipient counter: %w", err)
	}
	return nil
}

// ====================== Steps ======================

const stepColumns = `id, campaign_id, step_number, channel, delay_days, subject, body, created_at, updated_at`

func (r *CampaignRepository) CreateStep(ctx context.Context, s *model.CampaignStep) error {
	s.CreatedAt = now()
	s.UpdatedAt = s.CreatedAt
	query := `
		INSERT INTO campaign_steps (campaign_id, step_number, channel, delay_days, subject, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	id, err := insertReturningID(ctx, r.DB, query,
		s.CampaignID, s.StepNumber, s.Channel, s.DelayDays, s.Subject, s.Body, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create campaign step: %w", err)
	}
	s.ID = id
	return nil
}

// ListSteps returns the campaign's steps ordered by step number.
func (r *CampaignRepository) ListSteps(ctx context.Context, campaignID int64) ([]*model.CampaignStep, error) {
	steps := []*model.CampaignStep{}
	query := `SELECT ` + stepColumns + ` FROM campaign_steps WHERE campaign_id = ? ORDER BY step_number`
	if err := r.DB.SelectContext(ctx, &steps, r.DB.Rebind(query), campaignID); err != nil {
		return nil, fmt.Errorf("failed to list campaign steps: %w", err)
	}
	return steps, nil
}

func (r *CampaignRepository) GetStep(ctx context.Context, campaignID int64, stepNumber int) (*model.CampaignStep, error) {
	var s model.CampaignStep
	query := `SELECT ` + stepColumns + ` FROM campaign_steps WHERE campaign_id = ? AND step_number = ?`
	if err := r.DB.GetContext(ctx, &s, r.DB.Rebind(query), campaignID, stepNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFound("campaign step", int64(stepNumber))
		}
		return nil, fmt.Errorf("failed to get campaign step: %w", err)
	}
	return &s, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
