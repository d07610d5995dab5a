package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/unclebandit/leadgen-backend/internal/errors"
	"github.com/unclebandit/leadgen-backend/internal/model"
)

type RecipientRepositoryInterface interface {
	Create(ctx context.Context, r *model.CampaignRecipient) error
	GetByID(ctx context.Context, id int64) (*model.CampaignRecipient, error)
	ListByCampaign(ctx context.Context, campaignID int64, statuses ...model.RecipientStatus) ([]*model.CampaignRecipient, error)
	ExistsForLead(ctx context.Context, campaignID, leadID int64) (bool, error)
	CountByStatus(ctx context.Context, campaignID int64) (map[model.RecipientStatus]int, error)

	// Advance moves the cursor forward only when it still equals expectedStep.
	Advance(ctx context.Context, id int64, expectedStep int, sentAt time.Time) (bool, error)
	MarkCompleted(ctx context.Context, id int64, at time.Time) error
	MarkFailed(ctx context.Context, id int64, reason string) error
	Unsubscribe(ctx context.Context, id int64) (bool, error)
	Requeue(ctx context.Context, id int64) (bool, error)
}

type RecipientRepository struct {
	DB *sqlx.DB
}

const recipientColumns = `id, campaign_id, lead_id, prospect_id, status, current_step, last_sent_at,
	completed_at, last_error, created_at, updated_at`

func (r *RecipientRepository) Create(ctx context.Context, rc *model.CampaignRecipient) error {
	rc.CreatedAt = now()
	rc.UpdatedAt = rc.CreatedAt
	if rc.Status == "" {
		rc.Status = model.RecipientPending
	}
	query := `
		INSERT INTO campaign_recipients (campaign_id, lead_id, prospect_id, status, current_step, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	id, err := insertReturningID(ctx, r.DB, query,
		rc.CampaignID, rc.LeadID, rc.ProspectID, rc.Status, rc.CurrentStep, rc.CreatedAt, rc.UpdatedAt)
	if isUniqueViolation(err) {
		return appErrors.NewInvalidInput("lead_id", "lead is already enrolled")
	}
	if err != nil {
		return fmt.Errorf("failed to create campaign recipient: %w", err)
	}
	rc.ID = id
	return nil
}

func (r *RecipientRepository) GetByID(ctx context.Context, id int64) (*model.CampaignRecipient, error) {
	var rc model.CampaignRecipient
	err := r.DB.GetContext(ctx, &rc, r.DB.Rebind(`SELECT `+recipientColumns+` FROM campaign_recipients WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFound("campaign recipient", id)
		}
		return nil, fmt.Errorf("failed to get campaign recipient: %w", err)
	}
	return &rc, nil
}

// ListByCampaign returns recipients of a campaign, optionally filtered by status.
func (r *RecipientRepository) ListByCampaign(ctx context.Context, campaignID int64, statuses ...model.RecipientStatus) ([]*model.CampaignRecipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM campaign_recipients WHERE campaign_id = ?`
	args := []interface{}{campaignID}
	if len(statuses) > 0 {
		var err error
		query, args, err = sqlx.In(query+` AND status IN (?)`, campaignID, statuses)
		if err != nil {
			return nil, fmt.Errorf("failed to build recipient query: %w", err)
		}
	}

	recipients := []*model.CampaignRecipient{}
	if err := r.DB.SelectContext(ctx, &recipients, r.DB.Rebind(query+` ORDER BY id`), args...); err != nil {
		return nil, fmt.Errorf("failed to list campaign recipients: %w", err)
	}
	return recipients, nil
}

func (r *RecipientRepository) ExistsForLead(ctx context.Context, campaignID, leadID int64) (bool, error) {
	var n int
	err := r.DB.GetContext(ctx, &n, r.DB.Rebind(`SELECT COUNT(*) FROM campaign_recipients WHERE campaign_id = ? AND lead_id = ?`), campaignID, leadID)
	if err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	return n > 0, nil
}

func (r *RecipientRepository) CountByStatus(ctx context.Context, campaignID int64) (map[model.RecipientStatus]int, error) {
	rows := []struct {
		Status model.RecipientStatus `db:"status"`
		Count  int                   `db:"n"`
	}{}
	query := `SELECT status, COUNT(*) AS n FROM campaign_recipients WHERE campaign_id = ? GROUP BY status`
	if err := r.DB.SelectContext(ctx, &rows, r.DB.Rebind(query), campaignID); err != nil {
		return nil, fmt.Errorf("failed to count recipients: %w", err)
	}

	stats := map[model.RecipientStatus]int{
		model.RecipientPending:      0,
		model.RecipientActive:       0,
		model.RecipientCompleted:    0,
		model.RecipientUnsubscribed: 0,
		model.RecipientFailed:       0,
	}
	for _, row := range rows {
		stats[row.Status] = row.Count
	}
	return stats, nil
}

func (r *RecipientRepository) Advance(ctx context.Context, id int64, expectedStep int, sentAt time.Time) (bool, error) {
	query := `
		UPDATE campaign_recipients
		SET current_step = current_step + 1, last_sent_at = ?, status = ?, last_error = NULL, updated_at = ?
		WHERE id = ? AND current_step = ? AND status IN (?, ?)
	`
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(query),
		sentAt.UTC(), model.RecipientActive, now(), id, expectedStep, model.RecipientPending, model.RecipientActive)
	if err != nil {
		return false, fmt.Errorf("failed to advance recipient: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *RecipientRepository) MarkCompleted(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE campaign_recipients SET status = ?, completed_at = ?, updated_at = ? WHERE id = ? AND status IN (?, ?)`
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind(query),
		model.RecipientCompleted, at.UTC(), now(), id, model.RecipientPending, model.RecipientActive)
	if err != nil {
		return fmt.Errorf("failed to complete recipient: %w", err)
	}
	return nil
}

func (r *RecipientRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	query := `UPDATE campaign_recipients SET status = ?, last_error = ?, updated_at = ? WHERE id = ?`
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind(query), model.RecipientFailed, reason, now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark recipient failed: %w", err)
	}
	return nil
}

// Unsubscribe stops further sends. Completed recipients are left alone.
func (r *RecipientRepository) Unsubscribe(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE campaign_recipients SET status = ?, updated_at = ? WHERE id = ? AND status <> ?`
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(query), model.RecipientUnsubscribed, now(), id, model.RecipientCompleted)
	if err != nil {
		return false, fmt.Errorf("failed to unsubscribe recipient: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Requeue puts a failed recipient back in pending, keeping its cursor.
func (r *RecipientRepository) Requeue(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE campaign_recipients SET status = ?, last_error = NULL, updated_at = ? WHERE id = ? AND status = ?`
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(query), model.RecipientPending, now(), id, model.RecipientFailed)
	if err != nil {
		return false, fmt.Errorf("failed to requeue recipient: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

var _ RecipientRepositoryInterface = (*RecipientRepository)(nil)
