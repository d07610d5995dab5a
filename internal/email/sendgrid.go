package email

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	appErrors "github.com/unclebandit/leadgen-backend/internal/errors"
)

const sendEndpoint = "/v3/mail/send"

// SendGridProvider posts v3 mail-send requests.
type SendGridProvider struct {
	apiKey string
	host   string
	client *rest.Client
}

// NewSendGridProvider targets host, or the public API when host is empty.
func NewSendGridProvider(apiKey, host string, timeout time.Duration) *SendGridProvider {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SendGridProvider{
		apiKey: apiKey,
		host:   strings.TrimRight(host, "/"),
		client: &rest.Client{HTTPClient: &http.Client{Timeout: timeout}},
	}
}

func (p *SendGridProvider) Send(ctx context.Context, params Params) (string, error) {
	from, err := mail.ParseEmail(params.From)
	if err != nil {
		return "", appErrors.NewInvalidInput("from", err.Error())
	}
	to, err := mail.ParseEmail(params.To)
	if err != nil {
		return "", appErrors.NewInvalidInput("to", err.Error())
	}

	m := mail.NewV3Mail()
	m.SetFrom(from)
	m.Subject = params.Subject

	personalization := mail.NewPersonalization()
	personalization.AddTos(to)
	m.AddPersonalizations(personalization)

	m.AddContent(
		mail.NewContent("text/plain", params.Text),
		mail.NewContent("text/html", params.HTML),
	)

	if params.ReplyTo != "" {
		replyTo, err := mail.ParseEmail(params.ReplyTo)
		if err != nil {
			return "", appErrors.NewInvalidInput("reply_to", err.Error())
		}
		m.SetReplyTo(replyTo)
	}

	m.SetTrackingSettings(mail.NewTrackingSettings().
		SetClickTracking(mail.NewClickTrackingSetting().SetEnable(params.TrackClicks).SetEnableText(params.TrackClicks)).
		SetOpenTracking(mail.NewOpenTrackingSetting().SetEnable(params.TrackOpens)))

	if params.IdempotencyKey != "" {
		m.SetHeader("X-Entity-Ref-ID", params.IdempotencyKey)
		m.SetCustomArg("idempotency_key", params.IdempotencyKey)
	}

	req := sendgrid.GetRequest(p.apiKey, sendEndpoint, p.host)
	req.Method = rest.Post
	req.Body = mail.GetRequestBody(m)

	resp, err := p.client.SendWithContext(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("sendgrid request aborted: %w", ctxErr)
		}
		return "", appErrors.NewDeliveryFailure(err.Error())
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", appErrors.NewConfiguration("EMAIL_SENDGRID_API_KEY",
			fmt.Sprintf("SendGrid rejected credentials (status %d)", resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", appErrors.NewDeliveryFailure(fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body)))
	}

	return http.Header(resp.Headers).Get("X-Message-Id"), nil
}

var _ Provider = (*SendGridProvider)(nil)
