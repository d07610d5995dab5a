package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	appErrors "github.com/unclebandit/leadgen-backend/internal/errors"
	"github.com/unclebandit/leadgen-backend/internal/metrics"
	"github.com/unclebandit/leadgen-backend/internal/model"
	"github.com/unclebandit/leadgen-backend/internal/repository"
)

// UsageAction names a plan-limited create operation.
type UsageAction string

const (
	ActionProspect UsageAction = "prospect"
	ActionLead     UsageAction = "lead"
	ActionCampaign UsageAction = "campaign"
)

func (a UsageAction) Valid() bool {
	switch a {
	case ActionProspect, ActionLead, ActionCampaign:
		return true
	}
	return false
}

// Free tier applies to organisations that never subscribed.
const (
	freeMaxProspects = 50
	freeMaxLeads     = 10
	freeMaxCampaigns = 1

	prospectsPerRegion = 500
	campaignsPerNiche  = 10
)

type Usage struct {
	Prospects          int       `json:"prospects"`
	Leads              int       `json:"leads"`
	Campaigns          int       `json:"campaigns"`
	CurrentPeriodStart time.Time `json:"current_period_start"`
}

// Limits uses model.Unlimited (-1) for "no cap".
type Limits struct {
	MaxProspects int  `json:"max_prospects"`
	MaxLeads     int  `json:"max_leads"`
	MaxCampaigns int  `json:"max_campaigns"`
	Unlimited    bool `json:"unlimited"`
}

type UsageCheck struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Current int    `json:"current"`
	Limit   int    `json:"limit"`
}

type UsageFlags struct {
	Prospects bool `json:"prospects"`
	Leads     bool `json:"leads"`
	Campaigns bool `json:"campaigns"`
}

type UsagePercentages struct {
	Prospects int `json:"prospects"`
	Leads     int `json:"leads"`
	Campaigns int `json:"campaigns"`
}

type UsageStats struct {
	Usage       Usage            `json:"usage"`
	Limits      Limits           `json:"limits"`
	Percentages UsagePercentages `json:"percentages"`
	Warnings    UsageFlags       `json:"warnings"`
	Exceeded    UsageFlags       `json:"exceeded"`
}

// UsageService measures organisation usage against its billing plan. It never mutates.
type UsageService struct {
	ProspectRepo repository.ProspectRepositoryInterface
	LeadRepo     repository.LeadRepositoryInterface
	CampaignRepo repository.CampaignRepositoryInterface
	BillingRepo  repository.BillingRepositoryInterface
}

func (s *UsageService) GetUsage(ctx context.Context, organisationID int64) (Usage, error) {
	sub, err := s.BillingRepo.LatestSubscription(ctx, organisationID)
	if err != nil {
		return Usage{}, err
	}

	periodStart := time.Unix(0, 0).UTC()
	if sub != nil && sub.CurrentPeriodStart != nil {
		periodStart = sub.CurrentPeriodStart.UTC()
	}

	prospects, err := s.ProspectRepo.CountByOrganisation(ctx, organisationID)
	if err != nil {
		return Usage{}, err
	}
	leads, err := s.LeadRepo.CountCreatedSince(ctx, organisationID, periodStart)
	if err != nil {
		return Usage{}, err
	}
	campaigns, err := s.CampaignRepo.CountByStatus(ctx, organisationID, model.CampaignDraft, model.CampaignActive)
	if err != nil {
		return Usage{}, err
	}

	return Usage{
		Prospects:          prospects,
		Leads:              leads,
		Campaigns:          campaigns,
		CurrentPeriodStart: periodStart,
	}, nil
}

// GetLimits derives limits from the latest subscription's plan.
func (s *UsageService) GetLimits(ctx context.Context, organisationID int64) (Limits, error) {
	sub, err := s.BillingRepo.LatestSubscription(ctx, organisationID)
	if err != nil {
		return Limits{}, err
	}
	if sub == nil {
		return Limits{
			MaxProspects: freeMaxProspects,
			MaxLeads:     freeMaxLeads,
			MaxCampaigns: freeMaxCampaigns,
		}, nil
	}

	plan, err := s.BillingRepo.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return Limits{}, err
	}
	return LimitsForPlan(plan), nil
}

func LimitsForPlan(plan *model.BillingPlan) Limits {
	return Limits{
		MaxProspects: scale(plan.MaxRegions, prospectsPerRegion),
		MaxLeads:     plan.MaxLeadsPerMonth,
		MaxCampaigns: scale(plan.MaxNiches, campaignsPerNiche),
		Unlimited:    plan.MaxLeadsPerMonth == model.Unlimited,
	}
}

func scale(v, factor int) int {
	if v == model.Unlimited {
		return model.Unlimited
	}
	return v * factor
}

// CheckUsageLimit reports whether count more of action fit in the organisation's plan.
func (s *UsageService) CheckUsageLimit(ctx context.Context, organisationID int64, action UsageAction, count int) (UsageCheck, error) {
	if !action.Valid() {
		return UsageCheck{}, appErrors.NewInvalidInput("action", fmt.Sprintf("unknown action %q", action))
	}

	usage, err := s.GetUsage(ctx, organisationID)
	if err != nil {
		return UsageCheck{}, err
	}
	limits, err := s.GetLimits(ctx, organisationID)
	if err != nil {
		return UsageCheck{}, err
	}

	var current, limit int
	var reason string
	switch action {
	case ActionProspect:
		current, limit = usage.Prospects, limits.MaxProspects
		reason = fmt.Sprintf("Prospect limit exceeded. You have %d prospects and your plan allows %d.", current, limit)
	case ActionLead:
		current, limit = usage.Leads, limits.MaxLeads
		reason = fmt.Sprintf("Monthly lead limit exceeded. You have created %d leads this billing period and your plan allows %d per month.", current, limit)
	case ActionCampaign:
		current, limit = usage.Campaigns, limits.MaxCampaigns
		reason = fmt.Sprintf("Campaign limit exceeded. You have %d active campaigns and your plan allows %d.", current, limit)
	}

	if limit == model.Unlimited || current+count <= limit {
		return UsageCheck{Allowed: true}, nil
	}
	return UsageCheck{Allowed: false, Reason: reason, Current: current, Limit: limit}, nil
}

// Enforce returns an ErrQuotaExceeded when the action does not fit.
func (s *UsageService) Enforce(ctx context.Context, organisationID int64, action UsageAction, count int) error {
	check, err := s.CheckUsageLimit(ctx, organisationID, action, count)
	if err != nil {
		return err
	}
	if check.Allowed {
		return nil
	}

	metrics.RecordQuotaRejection(string(action))
	logrus.WithFields(logrus.Fields{
		"organisation_id": organisationID,
		"action":          action,
		"current":         check.Current,
		"limit":           check.Limit,
	}).Info("usage limit reached")
	return appErrors.NewQuotaExceeded(string(action), check.Reason, check.Current, check.Limit)
}

func (s *UsageService) GetStats(ctx context.Context, organisationID int64) (*UsageStats, error) {
	usage, err := s.GetUsage(ctx, organisationID)
	if err != nil {
		return nil, err
	}
	limits, err := s.GetLimits(ctx, organisationID)
	if err != nil {
		return nil, err
	}

	return &UsageStats{
		Usage:  usage,
		Limits: limits,
		Percentages: UsagePercentages{
			Prospects: UsagePercentage(usage.Prospects, limits.MaxProspects),
			Leads:     UsagePercentage(usage.Leads, limits.MaxLeads),
			Campaigns: UsagePercentage(usage.Campaigns, limits.MaxCampaigns),
		},
		Warnings: UsageFlags{
			Prospects: IsApproachingLimit(usage.Prospects, limits.MaxProspects),
			Leads:     IsApproachingLimit(usage.Leads, limits.MaxLeads),
			Campaigns: IsApproachingLimit(usage.Campaigns, limits.MaxCampaigns),
		},
		Exceeded: UsageFlags{
			Prospects: HasExceededLimit(usage.Prospects, limits.MaxProspects),
			Leads:     HasExceededLimit(usage.Leads, limits.MaxLeads),
			Campaigns: HasExceededLimit(usage.Campaigns, limits.MaxCampaigns),
		},
	}, nil
}

// UsagePercentage is rounded and capped at 100. Unlimited is 0%; a zero limit is full once anything is used.
func UsagePercentage(current, limit int) int {
	if limit == model.Unlimited {
		return 0
	}
	if limit <= 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	pct := int(math.Round(float64(current) / float64(limit) * 100))
	if pct > 100 {
		return 100
	}
	return pct
}

func IsApproachingLimit(current, limit int) bool {
	if limit == model.Unlimited {
		return false
	}
	return UsagePercentage(current, limit) >= 80
}

func HasExceededLimit(current, limit int) bool {
	if limit == model.Unlimited {
		return false
	}
	return current >= limit
}
