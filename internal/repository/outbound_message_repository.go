package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/unclebandit/leadgen-backend/internal/model"
)

type OutboundMessageRepositoryInterface interface {
	Create(ctx context.Context, msg *model.OutboundMessage) error
	ListByRecipient(ctx context.Context, recipientID int64) ([]*model.OutboundMessage, error)
}

type OutboundMessageRepository struct {
	DB *sqlx.DB
}

// Create inserts a new outbound message into the database and sets its ID
func (r *OutboundMessageRepository) Create(ctx context.Context, msg *model.OutboundMessage) error {
	msg.CreatedAt = now()
	query := `
		INSERT INTO outbound_messages
			(campaign_id, recipient_id, step_id, channel, status, idempotency_key, provider_message_id, rendered_subject, last_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	id, err := insertReturningID(ctx, r.DB, query,
		msg.CampaignID, msg.RecipientID, msg.StepID, msg.Channel, msg.Status, msg.IdempotencyKey,
		msg.ProviderMessageID, msg.RenderedSubject, msg.LastError, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record outbound message: %w", err)
	}
	msg.ID = id
	return nil
}

func (r *OutboundMessageRepository) ListByRecipient(ctx context.Context, recipientID int64) ([]*model.OutboundMessage, error) {
	msgs := []*model.OutboundMessage{}
	query := `
		SELECT id, campaign_id, recipient_id, step_id, channel, status, idempotency_key, provider_message_id,
			rendered_subject, last_error, created_at
		FROM outbound_messages
		WHERE recipient_id = ?
		ORDER BY id
	`
	if err := r.DB.SelectContext(ctx, &msgs, r.DB.Rebind(query), recipientID); err != nil {
		return nil, fmt.Errorf("failed to list outbound messages: %w", err)
	}
	return msgs, nil
}

var _ OutboundMessageRepositoryInterface = (*OutboundMessageRepository)(nil)
