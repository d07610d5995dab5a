package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/unclebandit/leadgen-backend/internal/alerting"
	"github.com/unclebandit/leadgen-backend/internal/email"
	appErrors "github.com/unclebandit/leadgen-backend/internal/errors"
	"github.com/unclebandit/leadgen-backend/internal/metrics"
	"github.com/unclebandit/leadgen-backend/internal/model"
	"github.com/unclebandit/leadgen-backend/internal/queue"
	"github.com/unclebandit/leadgen-backend/internal/repository"
	"github.com/unclebandit/leadgen-backend/internal/tracing"
)

const defaultFromAddress = "noreply@localleadau.com"

// EmailSender is satisfied by *email.Client.
type EmailSender interface {
	SendEmail(ctx context.Context, p email.Params) email.Result
}

// SchedulerDeps are the collaborators a Scheduler reads from and writes to.
type SchedulerDeps struct {
	CampaignRepo     repository.CampaignRepositoryInterface
	RecipientRepo    repository.RecipientRepositoryInterface
	LeadRepo         repository.LeadRepositoryInterface
	OrganisationRepo repository.OrganisationRepositoryInterface
	OutboundRepo     repository.OutboundMessageRepositoryInterface
	Email            EmailSender
	Events           queue.Publisher
	Reporter         alerting.Reporter
	Links            UnsubscribeLinks

	// Now defaults to the UTC wall clock.
	Now func() time.Time
}

// SchedulerConfig tunes ticking and dispatch. Zero values get defaults.
type SchedulerConfig struct {
	Interval             time.Duration
	DispatchTimeout      time.Duration
	RecipientConcurrency int
	DefaultFrom          string
	EventTopic           string
}

// TickSummary counts what one pass did.
type TickSummary struct {
	Campaigns int `json:"campaigns"`
	Evaluated int `json:"evaluated"`
	NotDue    int `json:"not_due"`
	Sent      int `json:"sent"`
	Skipped   int `json:"skipped"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Errors    int `json:"errors"`
}

type outcome int

const (
	outcomeNotDue outcome = iota
	outcomeSent
	outcomeSkipped
	outcomeCompleted
	outcomeFailed
	outcomeError
)

func (t *TickSummary) add(o outcome) {
	t.Evaluated++
	switch o {
	case outcomeNotDue:
		t.NotDue++
	case outcomeSent:
		t.Sent++
	case outcomeSkipped:
		t.Skipped++
	case outcomeCompleted:
		t.Completed++
	case outcomeFailed:
		t.Failed++
	case outcomeError:
		t.Errors++
	}
}

// Scheduler advances recipients of active campaigns one due step per tick.
type Scheduler struct {
	deps SchedulerDeps
	cfg  SchedulerConfig
	now  func() time.Time

	tickMu   sync.Mutex
	mu       sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

// NewScheduler fills in config defaults. Call Start to begin ticking.
func NewScheduler(deps SchedulerDeps, cfg SchedulerConfig) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = 30 * time.Second
	}
	if cfg.RecipientConcurrency < 1 {
		cfg.RecipientConcurrency = 1
	}
	if cfg.DefaultFrom == "" {
		cfg.DefaultFrom = defaultFromAddress
	}
	if cfg.EventTopic == "" {
		cfg.EventTopic = "campaign_events"
	}
	if deps.Reporter == nil {
		deps.Reporter = alerting.NopReporter{}
	}
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Scheduler{deps: deps, cfg: cfg, now: now}
}

// Start runs a tick immediately and then once per interval until Stop.
// Calling Start on a running scheduler does nothing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopChan != nil {
		return
	}
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.stopChan, s.done)
	logrus.WithField("interval", s.cfg.Interval.String()).Info("Campaign scheduler started")
}

// Stop halts the ticker and waits for the tick in progress to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	stop, done := s.stopChan, s.done
	s.stopChan, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
	logrus.Info("Campaign scheduler stopped")
}

func (s *Scheduler) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	// In-flight dispatches finish on their own timeouts after Stop.
	ctx := context.Background()

	s.RunOnce(ctx)
	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-stop:
			return
		}
	}
}

// RunOnce performs one complete pass over all active campaigns.
func (s *Scheduler) RunOnce(ctx context.Context) TickSummary {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	start := time.Now()
	ctx, span := tracing.Tracer().Start(ctx, "scheduler.tick")
	defer span.End()

	var summary TickSummary
	campaigns, err := s.deps.CampaignRepo.ListByStatus(ctx, model.CampaignActive)
	if err != nil {
		logrus.WithError(err).Error("[Scheduler] failed to load active campaigns")
		s.deps.Reporter.Report(err, map[string]string{"stage": "load_campaigns"})
		summary.Errors++
		span.SetStatus(codes.Error, err.Error())
		return summary
	}

	for _, c := range campaigns {
		if ctx.Err() != nil {
			break
		}
		summary.Campaigns++
		if err := s.processCampaign(ctx, c, &summary); err != nil {
			logrus.WithError(err).WithField("campaign_id", c.ID).Error("[Scheduler] error processing campaign")
			s.deps.Reporter.Report(err, map[string]string{"stage": "campaign", "campaign_id": fmt.Sprint(c.ID)})
			summary.Errors++
		}
	}

	elapsed := time.Since(start)
	metrics.RecordTick(elapsed.Seconds())
	span.SetAttributes(
		attribute.Int("campaigns", summary.Campaigns),
		attribute.Int("sent", summary.Sent),
		attribute.Int("failed", summary.Failed),
	)

	entry := logrus.WithFields(logrus.Fields{
		"campaigns": summary.Campaigns,
		"evaluated": summary.Evaluated,
		"sent":      summary.Sent,
		"skipped":   summary.Skipped,
		"completed": summary.Completed,
		"failed":    summary.Failed,
		"errors":    summary.Errors,
		"duration":  elapsed.String(),
	})
	if summary.Sent+summary.Skipped+summary.Completed+summary.Failed+summary.Errors > 0 {
		entry.Info("[Scheduler] tick finished")
	} else {
		entry.Debug("[Scheduler] tick finished")
	}
	return summary
}

func (s *Scheduler) processCampaign(ctx context.Context, c *model.Campaign, summary *TickSummary) error {
	steps, err := s.deps.CampaignRepo.ListSteps(ctx, c.ID)
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		return nil
	}

	recipients, err := s.deps.RecipientRepo.ListByCampaign(ctx, c.ID, model.RecipientPending, model.RecipientActive)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		return nil
	}

	org, orgErr := s.deps.OrganisationRepo.GetByID(ctx, c.OrganisationID)
	if orgErr != nil && !appErrors.IsNotFound(orgErr) {
		return orgErr
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.cfg.RecipientConcurrency)

	for _, r := range recipients {
		g.Go(func() error {
			o := s.processRecipient(ctx, c, steps, org, r)
			mu.Lock()
			summary.add(o)
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// IsDue reports whether step should be sent to r at now.
// The first step is due as soon as the recipient is enrolled.
func IsDue(r *model.CampaignRecipient, step *model.CampaignStep, now time.Time) bool {
	if r.CurrentStep == 0 && r.LastSentAt == nil {
		return true
	}
	if r.LastSentAt == nil {
		return false
	}
	return !now.Before(r.LastSentAt.Add(step.Delay()))
}

func (s *Scheduler) processRecipient(ctx context.Context, c *model.Campaign, steps []*model.CampaignStep, org *model.Organisation, r *model.CampaignRecipient) outcome {
	log := logrus.WithFields(logrus.Fields{"campaign_id": c.ID, "recipient_id": r.ID})
	now := s.now()

	if r.CurrentStep >= len(steps) {
		if r.Status == model.RecipientCompleted {
			return outcomeNotDue
		}
		if err := s.deps.RecipientRepo.MarkCompleted(ctx, r.ID, now); err != nil {
			log.WithError(err).Error("[Scheduler] failed to mark recipient completed")
			return outcomeError
		}
		s.publish(queue.Event{Type: queue.EventRecipientDone, CampaignID: c.ID, RecipientID: r.ID, OccurredAt: now})
		log.Info("[Scheduler] recipient completed campaign")
		return outcomeCompleted
	}

	step := steps[r.CurrentStep]
	if !IsDue(r, step, now) {
		return outcomeNotDue
	}
	log = log.WithFields(logrus.Fields{"step": step.StepNumber, "channel": step.Channel})

	if r.LeadID == nil {
		log.Warn("[Scheduler] recipient has no lead, skipping")
		return outcomeError
	}
	lead, err := s.deps.LeadRepo.GetByID(ctx, *r.LeadID)
	if err != nil {
		log.WithError(err).Error("[Scheduler] lead lookup failed, skipping")
		return outcomeError
	}
	if lead.OrganisationID != c.OrganisationID {
		log.WithField("lead_organisation_id", lead.OrganisationID).Error("[Scheduler] lead belongs to another organisation, skipping")
		return outcomeError
	}
	if org == nil {
		log.WithField("organisation_id", c.OrganisationID).Error("[Scheduler] organisation not found, skipping")
		return outcomeError
	}

	key := uuid.NewString()
	res := s.dispatch(ctx, r, step, lead, org, key)
	if res.err != nil {
		s.fail(ctx, c, r, step, key, res, log)
		return outcomeFailed
	}

	advanced, err := s.deps.RecipientRepo.Advance(ctx, r.ID, r.CurrentStep, now)
	if err != nil {
		log.WithError(err).Error("[Scheduler] step dispatched but progress was not saved")
		s.deps.Reporter.Report(err, map[string]string{"stage": "advance", "recipient_id": fmt.Sprint(r.ID)})
		return outcomeError
	}
	if !advanced {
		log.Warn("[Scheduler] recipient was advanced concurrently, step may have been sent twice")
	}

	status := model.OutboundSent
	result := outcomeSent
	eventType := queue.EventStepSent
	if res.skipped {
		status = model.OutboundSkipped
		result = outcomeSkipped
		eventType = queue.EventStepSkipped
	} else if advanced {
		if err := s.deps.CampaignRepo.IncrementSent(ctx, c.ID); err != nil {
			log.WithError(err).Warn("[Scheduler] failed to increment campaign sent counter")
		}
	}

	s.audit(ctx, c, r, step, key, status, res, "")
	s.publish(queue.Event{
		Type:           eventType,
		CampaignID:     c.ID,
		RecipientID:    r.ID,
		StepNumber:     step.StepNumber,
		Channel:        string(step.Channel),
		MessageID:      res.messageID,
		IdempotencyKey: key,
		OccurredAt:     now,
	})
	metrics.RecordDispatch(string(step.Channel), status)
	log.WithField("message_id", res.messageID).Info("[Scheduler] step dispatched")
	return result
}

type dispatchResult struct {
	skipped   bool
	messageID string
	subject   string
	err       error
}

func (s *Scheduler) dispatch(ctx context.Context, r *model.CampaignRecipient, step *model.CampaignStep, lead *model.Lead, org *model.Organisation, key string) dispatchResult {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.DispatchTimeout)
	defer cancel()

	ctx, span := tracing.Tracer().Start(ctx, "scheduler.dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("recipient.id", r.ID),
		attribute.Int("step.number", step.StepNumber),
		attribute.String("step.channel", string(step.Channel)),
	)

	res := s.deliver(ctx, r, step, lead, org, key)
	if res.err != nil {
		span.RecordError(res.err)
		span.SetStatus(codes.Error, res.err.Error())
	}
	return res
}

func (s *Scheduler) deliver(ctx context.Context, r *model.CampaignRecipient, step *model.CampaignStep, lead *model.Lead, org *model.Organisation, key string) dispatchResult {
	vars, err := leadVariables(lead, org)
	if err != nil {
		return dispatchResult{err: err}
	}
	msg := renderStep(step, vars)

	switch step.Channel {
	case model.ChannelSMS:
		logrus.WithField("recipient_id", r.ID).Warn("[Scheduler] SMS sending not yet implemented, step skipped")
		return dispatchResult{skipped: true}

	case model.ChannelEmail:
		to := model.Deref(lead.Email)
		if to == "" {
			return dispatchResult{subject: msg.Subject, err: appErrors.NewInvalidInput("email", "lead has no email address")}
		}
		from := model.Deref(org.LeadHandlingEmail)
		if from == "" {
			from = s.cfg.DefaultFrom
		}

		html := email.BuildHTML(email.HTMLParams{
			Content:        msg.Body,
			FooterText:     "Sent by " + org.Name,
			UnsubscribeURL: s.deps.Links.URL(r.ID),
		})
		result := s.deps.Email.SendEmail(ctx, email.Params{
			To:             to,
			From:           from,
			Subject:        msg.Subject,
			HTML:           html,
			TrackOpens:     true,
			TrackClicks:    true,
			IdempotencyKey: key,
		})
		if !result.Success {
			return dispatchResult{subject: msg.Subject, err: appErrors.NewDeliveryFailure(result.Error)}
		}
		return dispatchResult{subject: msg.Subject, messageID: result.MessageID}
	}

	return dispatchResult{err: appErrors.NewInvalidInput("channel", fmt.Sprintf("unknown channel %q", step.Channel))}
}

func (s *Scheduler) fail(ctx context.Context, c *model.Campaign, r *model.CampaignRecipient, step *model.CampaignStep, key string, res dispatchResult, log *logrus.Entry) {
	reason := res.err.Error()
	log.WithError(res.err).Error("[Scheduler] error sending campaign step")

	if err := s.deps.RecipientRepo.MarkFailed(ctx, r.ID, reason); err != nil {
		log.WithError(err).Error("[Scheduler] failed to mark recipient failed")
	}
	s.audit(ctx, c, r, step, key, model.OutboundFailed, res, reason)
	s.publish(queue.Event{
		Type:           queue.EventRecipientFailed,
		CampaignID:     c.ID,
		RecipientID:    r.ID,
		StepNumber:     step.StepNumber,
		Channel:        string(step.Channel),
		IdempotencyKey: key,
		Error:          reason,
		OccurredAt:     s.now(),
	})
	metrics.RecordDispatch(string(step.Channel), model.OutboundFailed)
	s.deps.Reporter.Report(res.err, map[string]string{
		"campaign_id":  fmt.Sprint(c.ID),
		"recipient_id": fmt.Sprint(r.ID),
		"step":         fmt.Sprint(step.StepNumber),
	})
}

func (s *Scheduler) audit(ctx context.Context, c *model.Campaign, r *model.CampaignRecipient, step *model.CampaignStep, key, status string, res dispatchResult, reason string) {
	if s.deps.OutboundRepo == nil {
		return
	}
	msg := &model.OutboundMessage{
		CampaignID:        c.ID,
		RecipientID:       r.ID,
		StepID:            step.ID,
		Channel:           step.Channel,
		Status:            status,
		IdempotencyKey:    key,
		ProviderMessageID: model.Ptr(res.messageID),
		RenderedSubject:   model.Ptr(res.subject),
		LastError:         model.Ptr(reason),
	}
	if err := s.deps.OutboundRepo.Create(ctx, msg); err != nil {
		logrus.WithError(err).WithField("recipient_id", r.ID).Warn("[Scheduler] failed to record outbound message")
	}
}

func (s *Scheduler) publish(e queue.Event) {
	if s.deps.Events == nil {
		return
	}
	if err := s.deps.Events.Publish(s.cfg.EventTopic, e); err != nil && !errors.Is(err, queue.ErrNoSubscribers) {
		logrus.WithError(err).WithField("event", e.Type).Warn("[Scheduler] failed to publish event")
	}
}
