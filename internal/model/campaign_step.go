package model

import "time"

// Channel is the delivery medium of a step.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelSMS
}

type CampaignStep struct {
	ID         int64     `db:"id" json:"id"`
	CampaignID int64     `db:"campaign_id" json:"campaign_id"`
	StepNumber int       `db:"step_number" json:"step_number"`
	Channel    Channel   `db:"channel" json:"channel"`
	DelayDays  int       `db:"delay_days" json:"delay_days"`
	Subject    *string   `db:"subject" json:"subject,omitempty"`
	Body       string    `db:"body" json:"body"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Delay is the wait between the previous send and this step.
func (s *CampaignStep) Delay() time.Duration {
	return time.Duration(s.DelayDays) * 24 * time.Hour
}

func (s *CampaignStep) SubjectText() string {
	if s.Subject == nil {
		return ""
	}
	return *s.Subject
}
