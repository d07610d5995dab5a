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

type LeadRepositoryInterface interface {
	GetByID(ctx context.Context, id int64) (*model.Lead, error)
	Create(ctx context.Context, l *model.Lead) error
	CountCreatedSince(ctx context.Context, organisationID int64, since time.Time) (int, error)
}

type LeadRepository struct {
	DB *sqlx.DB
}

const leadColumns = `id, organisation_id, business_name, contact_name, email, phone, website, address,
	city, state, status, source, source_id, notes, created_at, updated_at`

func (r *LeadRepository) GetByID(ctx context.Context, id int64) (*model.Lead, error) {
	var l model.Lead
	err := r.DB.GetContext(ctx, &l, r.DB.Rebind(`SELECT `+leadColumns+` FROM leads WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFound("lead", id)
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return &l, nil
}

func (r *LeadRepository) Create(ctx context.Context, l *model.Lead) error {
	return createLead(ctx, r.DB, l)
}

func createLead(ctx context.Context, db DBExecutor, l *model.Lead) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now()
	}
	l.UpdatedAt = l.CreatedAt
	if l.Status == "" {
		l.Status = "new"
	}
	query := `
		INSERT INTO leads (organisation_id, business_name, contact_name, email, phone, website, address,
			city, state, status, source, source_id, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	id, err := insertReturningID(ctx, db, query,
		l.OrganisationID, l.BusinessName, l.ContactName, l.Email, l.Phone, l.Website, l.Address,
		l.City, l.State, l.Status, l.Source, l.SourceID, l.Notes, l.CreatedAt.UTC(), l.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}
	l.ID = id
	return nil
}

func (r *LeadRepository) CountCreatedSince(ctx context.Context, organisationID int64, since time.Time) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM leads WHERE organisation_id = ? AND created_at >= ?`
	if err := r.DB.GetContext(ctx, &n, r.DB.Rebind(query), organisationID, since.UTC()); err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return n, nil
}

var _ LeadRepositoryInterface = (*LeadRepository)(nil)
