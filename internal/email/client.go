// Package email sends campaign messages through a transactional email provider.
package email

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/unclebandit/leadgen-backend/internal/config"
	appErrors "github.com/unclebandit/leadgen-backend/internal/errors"
	"github.com/unclebandit/leadgen-backend/internal/metrics"
)

const notConfiguredMessage = "SendGrid API key not configured"

// Params is one pre-rendered message.
type Params struct {
	To             string
	From           string
	Subject        string
	HTML           string
	Text           string
	ReplyTo        string
	TrackOpens     bool
	TrackClicks    bool
	IdempotencyKey string
}

// Result is the outcome of one send. Error is set only when Success is false.
type Result struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Provider delivers a single message and returns the provider's message id.
type Provider interface {
	Send(ctx context.Context, p Params) (string, error)
}

// Client sends through a Provider and reports results instead of errors.
type Client struct {
	provider Provider
	limiter  *rate.Limiter

	warnOnce sync.Once
}

// NewClient builds a SendGrid backed client. Without an API key every send
// fails with a configuration error.
func NewClient(cfg config.EmailConfig) *Client {
	var provider Provider
	if cfg.SendGridAPIKey != "" {
		provider = NewSendGridProvider(cfg.SendGridAPIKey, cfg.SendGridHost, cfg.Timeout)
	}
	return NewClientWithProvider(provider, newLimiter(cfg.RatePerSecond, cfg.Burst))
}

// NewClientWithProvider allows a nil limiter, meaning no throttling.
func NewClientWithProvider(provider Provider, limiter *rate.Limiter) *Client {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Client{provider: provider, limiter: limiter}
}

func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Configured reports whether a provider is available.
func (c *Client) Configured() bool {
	return c.provider != nil
}

// SendEmail never returns an error; failures are reported in the Result.
func (c *Client) SendEmail(ctx context.Context, p Params) Result {
	_, res := c.send(ctx, p)
	return res
}

// SendBulkEmails sends each message in order and returns one result per input.
// A failure that would hit every message ends the batch early and is copied to the rest.
func (c *Client) SendBulkEmails(ctx context.Context, batch []Params) []Result {
	results := make([]Result, len(batch))
	for i, p := range batch {
		fatal, res := c.send(ctx, p)
		results[i] = res
		if fatal {
			for j := i + 1; j < len(batch); j++ {
				results[j] = Result{Success: false, Error: res.Error}
			}
			break
		}
	}
	return results
}

// send reports whether the failure applies to the whole provider rather than this message.
func (c *Client) send(ctx context.Context, p Params) (bool, Result) {
	if c.provider == nil {
		c.warnOnce.Do(func() {
			logrus.Warn("[Email] SendGrid API key not configured, skipping email send")
		})
		return true, Result{Success: false, Error: notConfiguredMessage}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return true, Result{Success: false, Error: err.Error()}
	}

	if p.Text == "" {
		p.Text = StripHTML(p.HTML)
	}

	start := time.Now()
	id, err := c.provider.Send(ctx, p)
	if err != nil {
		metrics.RecordEmailSend("failure", time.Since(start).Seconds())
		logrus.WithError(err).WithField("to", p.To).Error("[Email] Failed to send email")
		return isProviderLevel(ctx, err), Result{Success: false, Error: err.Error()}
	}
	metrics.RecordEmailSend("success", time.Since(start).Seconds())

	if id == "" {
		id = "unknown"
	}
	return false, Result{Success: true, MessageID: id}
}

func isProviderLevel(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		appErrors.IsConfiguration(err)
}
