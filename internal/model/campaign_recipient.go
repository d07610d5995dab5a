package model

import "time"

type RecipientStatus string

const (
	RecipientPending      RecipientStatus = "pending"
	RecipientActive       RecipientStatus = "active"
	RecipientCompleted    RecipientStatus = "completed"
	RecipientUnsubscribed RecipientStatus = "unsubscribed"
	RecipientFailed       RecipientStatus = "failed"
)

func (s RecipientStatus) Valid() bool {
	switch s {
	case RecipientPending, RecipientActive, RecipientCompleted, RecipientUnsubscribed, RecipientFailed:
		return true
	}
	return false
}

// Schedulable reports whether the scheduler still evaluates recipients in this status.
func (s RecipientStatus) Schedulable() bool {
	return s == RecipientPending || s == RecipientActive
}

// CampaignRecipient tracks one lead or prospect's progress through a campaign.
// CurrentStep counts the steps already sent.
type CampaignRecipient struct {
	ID          int64           `db:"id" json:"id"`
	CampaignID  int64           `db:"campaign_id" json:"campaign_id"`
	LeadID      *int64          `db:"lead_id" json:"lead_id,omitempty"`
	ProspectID  *int64          `db:"prospect_id" json:"prospect_id,omitempty"`
	Status      RecipientStatus `db:"status" json:"status"`
	CurrentStep int             `db:"current_step" json:"current_step"`
	LastSentAt  *time.Time      `db:"last_sent_at" json:"last_sent_at,omitempty"`
	CompletedAt *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	LastError   *string         `db:"last_error" json:"last_error,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}
