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

type OrganisationRepositoryInterface interface {
	GetByID(ctx context.Context, id int64) (*model.Organisation, error)
	Create(ctx context.Context, o *model.Organisation) error
}

type OrganisationRepository struct {
	DB *sqlx.DB
}

func (r *OrganisationRepository) GetByID(ctx context.Context, id int64) (*model.Organisation, error) {
	var o model.Organisation
	query := `SELECT id, name, slug, website, city, state, lead_handling_email, lead_handling_sms, created_at
		FROM organisations WHERE id = ?`
	if err := r.DB.GetContext(ctx, &o, r.DB.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFound("organisation", id)
		}
		return nil, fmt.Errorf("failed to get organisation: %w", err)
	}
	return &o, nil
}

func (r *OrganisationRepository) Create(ctx context.Context, o *model.Organisation) error {
	o.CreatedAt = now()
	query := `
		INSERT INTO organisations (name, slug, website, city, state, lead_handling_email, lead_handling_sms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	id, err := insertReturningID(ctx, r.DB, query,
		o.Name, o.Slug, o.Website, o.City, o.State, o.LeadHandlingEmail, o.LeadHandlingSMS, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create organisation: %w", err)
	}
	o.ID = id
	return nil
}

var _ OrganisationRepositoryInterface = (*OrganisationRepository)(nil)
