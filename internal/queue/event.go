package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	EventStepSent        = "step.sent"
	EventStepSkipped     = "step.skipped"
	EventRecipientFailed = "recipient.failed"
	EventRecipientDone   = "recipient.completed"
)

// Event describes one scheduler outcome for a recipient.
type Event struct {
	Type           string    `json:"type"`
	CampaignID     int64     `json:"campaign_id"`
	RecipientID    int64     `json:"recipient_id"`
	StepNumber     int       `json:"step_number,omitempty"`
	Channel        string    `json:"channel,omitempty"`
	MessageID      string    `json:"message_id,omitempty"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	Error          string    `json:"error,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// DecodeEvent accepts an Event delivered in process or the JSON body of a broker message.
func DecodeEvent(payload any) (Event, error) {
	switch v := payload.(type) {
	case Event:
		return v, nil
	case *Event:
		if v == nil {
			return Event{}, fmt.Errorf("nil event")
		}
		return *v, nil
	case []byte:
		var e Event
		if err := json.Unmarshal(v, &e); err != nil {
			return Event{}, fmt.Errorf("failed to decode event: %w", err)
		}
		return e, nil
	default:
		return Event{}, fmt.Errorf("unexpected event payload %T", payload)
	}
}

// StartEventLogger subscribes a handler that writes every campaign event to the log.
// Undecodable payloads are dropped rather than retried.
func StartEventLogger(q Queue, topic string) error {
	return q.Subscribe(topic, func(payload any) error {
		e, err := DecodeEvent(payload)
		if err != nil {
			logrus.WithError(err).Warn("dropping campaign event")
			return nil
		}

		entry := logrus.WithFields(logrus.Fields{
			"event":        e.Type,
			"campaign_id":  e.CampaignID,
			"recipient_id": e.RecipientID,
			"step":         e.StepNumber,
			"channel":      e.Channel,
		})
		if e.Error != "" {
			entry.WithField("error", e.Error).Warn("campaign event")
			return nil
		}
		entry.Info("campaign event")
		return nil
	})
}
