// internal/model/outbound_message.go
package model

import "time"

const (
	OutboundSent    = "sent"
	OutboundFailed  = "failed"
	OutboundSkipped = "skipped"
)

// OutboundMessage is the audit row of one dispatch attempt for a recipient's step.
type OutboundMessage struct {
	ID                int64     `db:"id" json:"id"`
	CampaignID        int64     `db:"campaign_id" json:"campaign_id"`
	RecipientID       int64     `db:"recipient_id" json:"recipient_id"`
	StepID            int64     `db:"step_id" json:"step_id"`
	Channel           Channel   `db:"channel" json:"channel"`
	Status            string    `db:"status" json:"status"` // sent, failed, skipped
	IdempotencyKey    string    `db:"idempotency_key" json:"idempotency_key"`
	ProviderMessageID *string   `db:"provider_message_id" json:"provider_message_id,omitempty"`
	RenderedSubject   *string   `db:"rendered_subject" json:"rendered_subject,omitempty"`
	LastError         *string   `db:"last_error" json:"last_error,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}
