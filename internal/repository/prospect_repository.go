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

type ProspectRepositoryInterface interface {
	GetByID(ctx context.Context, id int64) (*model.Prospect, error)
	Create(ctx context.Context, p *model.Prospect) error
	CountByOrganisation(ctx context.Context, organisationID int64) (int, error)
	CreateScrapeJob(ctx context.Context, j *model.ScrapeJob) error

	// ConvertToLead inserts the lead and marks the prospect converted in one transaction.
	ConvertToLead(ctx context.Context, prospectID int64, l *model.Lead) error
}

type ProspectRepository struct {
	DB *sqlx.DB
}

const prospectColumns = `id, organisation_id, scrape_job_id, business_name, email, phone, website, address,
	city, state, category, status, created_at, updated_at`

func (r *ProspectRepository) GetByID(ctx context.Context, id int64) (*model.Prospect, error) {
	var p model.Prospect
	err := r.DB.GetContext(ctx, &p, r.DB.Rebind(`SELECT `+prospectColumns+` FROM prospects WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFound("prospect", id)
		}
		return nil, fmt.Errorf("failed to get prospect: %w", err)
	}
	return &p, nil
}

func (r *ProspectRepository) Create(ctx context.Context, p *model.Prospect) error {
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	if p.Status == "" {
		p.Status = model.ProspectUnqualified
	}
	query := `
		INSERT INTO prospects (organisation_id, scrape_job_id, business_name, email, phone, website, address,
			city, state, category, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	id, err := insertReturningID(ctx, r.DB, query,
		p.OrganisationID, p.ScrapeJobID, p.BusinessName, p.Email, p.Phone, p.Website, p.Address,
		p.City, p.State, p.Category, p.Status, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create prospect: %w", err)
	}
	p.ID = id
	return nil
}

func (r *ProspectRepository) CountByOrganisation(ctx context.Context, organisationID int64) (int, error) {
	var n int
	if err := r.DB.GetContext(ctx, &n, r.DB.Rebind(`SELECT COUNT(*) FROM prospects WHERE organisation_id = ?`), organisationID); err != nil {
		return 0, fmt.Errorf("failed to count prospects: %w", err)
	}
	return n, nil
}

func (r *ProspectRepository) CreateScrapeJob(ctx context.Context, j *model.ScrapeJob) error {
	j.CreatedAt = now()
	if j.Status == "" {
		j.Status = model.ScrapeJobPending
	}
	query := `
		INSERT INTO scrape_jobs (organisation_id, source_name, niche, status, search_query, location, max_results, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	id, err := insertReturningID(ctx, r.DB, query,
		j.OrganisationID, j.SourceName, j.Niche, j.Status, j.SearchQuery, j.Location, j.MaxResults, j.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create scrape job: %w", err)
	}
	j.ID = id
	return nil
}

func (r *ProspectRepository) ConvertToLead(ctx context.Context, prospectID int64, l *model.Lead) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin conversion: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Claim the prospect first so concurrent conversions cannot both create a lead.
	query := `UPDATE prospects SET status = ?, updated_at = ? WHERE id = ? AND status <> ?`
	res, err := tx.ExecContext(ctx, tx.Rebind(query), model.ProspectConverted, now(), prospectID, model.ProspectConverted)
	if err != nil {
		return fmt.Errorf("failed to mark prospect converted: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n != 1 {
		return appErrors.NewInvalidInput("prospect", "prospect is already converted")
	}

	if err := createLead(ctx, tx, l); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit conversion: %w", err)
	}
	return nil
}

var _ ProspectRepositoryInterface = (*ProspectRepository)(nil)
