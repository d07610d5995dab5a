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

type BillingRepositoryInterface interface {
	// LatestSubscription returns nil, nil when the organisation never subscribed.
	LatestSubscription(ctx context.Context, organisationID int64) (*model.Subscription, error)
	GetPlan(ctx context.Context, id int64) (*model.BillingPlan, error)
	UpsertPlan(ctx context.Context, p *model.BillingPlan) error
	CreateSubscription(ctx context.Context, s *model.Subscription) error
}

type BillingRepository struct {
	DB *sqlx.DB
}

func (r *BillingRepository) LatestSubscription(ctx context.Context, organisationID int64) (*model.Subscription, error) {
	var s model.Subscription
	query := `
		SELECT id, organisation_id, plan_id, status, billing_period, current_period_start, current_period_end, created_at
		FROM subscriptions
		WHERE organisation_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	if err := r.DB.GetContext(ctx, &s, r.DB.Rebind(query), organisationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &s, nil
}

func (r *BillingRepository) GetPlan(ctx context.Context, id int64) (*model.BillingPlan, error) {
	var p model.BillingPlan
	query := `SELECT id, name, slug, price_monthly, price_annual, max_niches, max_regions, max_leads_per_month, active
		FROM billing_plans WHERE id = ?`
	if err := r.DB.GetContext(ctx, &p, r.DB.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFound("billing plan", id)
		}
		return nil, fmt.Errorf("failed to get billing plan: %w", err)
	}
	return &p, nil
}

// UpsertPlan inserts or updates a plan keyed by slug.
func (r *BillingRepository) UpsertPlan(ctx context.Context, p *model.BillingPlan) error {
	query := `
		INSERT INTO billing_plans (name, slug, price_monthly, price_annual, max_niches, max_regions, max_leads_per_month, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (slug) DO UPDATE SET
			name = excluded.name,
			price_monthly = excluded.price_monthly,
			price_annual = excluded.price_annual,
			max_niches = excluded.max_niches,
			max_regions = excluded.max_regions,
			max_leads_per_month = excluded.max_leads_per_month,
			active = excluded.active
		RETURNING id
	`
	id, err := insertReturningID(ctx, r.DB, query,
		p.Name, p.Slug, p.PriceMonthly, p.PriceAnnual, p.MaxNiches, p.MaxRegions, p.MaxLeadsPerMonth, p.Active)
	if err != nil {
		return fmt.Errorf("failed to upsert billing plan %s: %w", p.Slug, err)
	}
	p.ID = id
	return nil
}

func (r *BillingRepository) CreateSubscription(ctx context.Context, s *model.Subscription) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now()
	}
	if s.Status == "" {
		s.Status = "trialing"
	}
	if s.BillingPeriod == "" {
		s.BillingPeriod = "monthly"
	}
	query := `
		INSERT INTO subscriptions (organisation_id, plan_id, status, billing_period, current_period_start, current_period_end, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	id, err := insertReturningID(ctx, r.DB, query,
		s.OrganisationID, s.PlanID, s.Status, s.BillingPeriod, s.CurrentPeriodStart, s.CurrentPeriodEnd, s.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	s.ID = id
	return nil
}

var _ BillingRepositoryInterface = (*BillingRepository)(nil)
