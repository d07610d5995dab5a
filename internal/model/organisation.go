package model

import "time"

type Organisation struct {
	ID                int64     `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	Slug              string    `db:"slug" json:"slug"`
	Website           *string   `db:"website" json:"website,omitempty"`
	City              *string   `db:"city" json:"city,omitempty"`
	State             *string   `db:"state" json:"state,omitempty"`
	LeadHandlingEmail *string   `db:"lead_handling_email" json:"lead_handling_email,omitempty"`
	LeadHandlingSMS   *string   `db:"lead_handling_sms" json:"lead_handling_sms,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// Unlimited is the plan sentinel for "no cap".
const Unlimited = -1

type BillingPlan struct {
	ID               int64  `db:"id" json:"id"`
	Name             string `db:"name" json:"name"`
	Slug             string `db:"slug" json:"slug"`
	PriceMonthly     int    `db:"price_monthly" json:"price_monthly"`
	PriceAnnual      int    `db:"price_annual" json:"price_annual"`
	MaxNiches        int    `db:"max_niches" json:"max_niches"`
	MaxRegions       int    `db:"max_regions" json:"max_regions"`
	MaxLeadsPerMonth int    `db:"max_leads_per_month" json:"max_leads_per_month"`
	Active           bool   `db:"active" json:"active"`
}

type Subscription struct {
	ID                 int64      `db:"id" json:"id"`
	OrganisationID     int64      `db:"organisation_id" json:"organisation_id"`
	PlanID             int64      `db:"plan_id" json:"plan_id"`
	Status             string     `db:"status" json:"status"`
	BillingPeriod      string     `db:"billing_period" json:"billing_period"`
	CurrentPeriodStart *time.Time `db:"current_period_start" json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `db:"current_period_end" json:"current_period_end,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
}
