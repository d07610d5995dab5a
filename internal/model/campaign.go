// internal/model/campaign.go
package model

import "time"

type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
)

func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignDraft, CampaignActive, CampaignPaused, CampaignCompleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether a campaign may move from s to next.
// Completed is terminal.
func (s CampaignStatus) CanTransitionTo(next CampaignStatus) bool {
	if !next.Valid() {
		return false
	}
	if s == CampaignCompleted {
		return next == CampaignCompleted
	}
	return true
}

// CountsTowardQuota reports whether campaigns in this status use up plan allowance.
func (s CampaignStatus) CountsTowardQuota() bool {
	return s == CampaignDraft || s == CampaignActive
}

type Campaign struct {
	ID               int64          `db:"id" json:"id"`
	OrganisationID   int64          `db:"organisation_id" json:"organisation_id"`
	Name             string         `db:"name" json:"name"`
	Description      *string        `db:"description" json:"description,omitempty"`
	Status           CampaignStatus `db:"status" json:"status"`
	IsTemplate       bool           `db:"is_template" json:"is_template"`
	TemplateCategory *string        `db:"template_category" json:"template_category,omitempty"`
	TotalRecipients  int            `db:"total_recipients" json:"total_recipients"`
	TotalSent        int            `db:"total_sent" json:"total_sent"`
	TotalOpened      int            `db:"total_opened" json:"total_opened"`
	TotalReplied     int            `db:"total_replied" json:"total_replied"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}
