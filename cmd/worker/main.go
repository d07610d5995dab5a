// cmd/worker/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/unclebandit/leadgen-backend/internal/alerting"
	"github.com/unclebandit/leadgen-backend/internal/config"
	"github.com/unclebandit/leadgen-backend/internal/db"
	"github.com/unclebandit/leadgen-backend/internal/email"
	"github.com/unclebandit/leadgen-backend/internal/logging"
	"github.com/unclebandit/leadgen-backend/internal/queue"
	"github.com/unclebandit/leadgen-backend/internal/repository"
	"github.com/unclebandit/leadgen-backend/internal/service"
	"github.com/unclebandit/leadgen-backend/internal/tracing"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, relying on OS environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	logging.Configure(cfg.App.LogLevel, cfg.App.LogFormat)

	if !cfg.Scheduler.Enabled {
		logrus.Warn("Scheduler disabled by SCHEDULER_ENABLED, exiting")
		return
	}

	reporter, err := alerting.NewReporter(cfg.Sentry.DSN, cfg.App.Environment)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialise Sentry")
	}
	defer reporter.Flush(2 * time.Second)

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing.Endpoint, cfg.Tracing.ServiceName+"-worker")
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialise tracing")
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	store, err := db.Open(ctx, cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer store.Close()
	if cfg.Database.AutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			logrus.WithError(err).Fatal("Failed to apply schema")
		}
	}

	events, closeEvents, err := openEvents(cfg.Queue)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to event queue")
	}
	defer closeEvents()

	scheduler := buildScheduler(cfg, store, events, reporter)

	metricsSrv := &http.Server{Addr: cfg.Server.GetMetricsAddr(), Handler: promhttp.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("Metrics server failed")
		}
	}()

	scheduler.Start()
	logrus.Info("Worker running, waiting for ticks...")

	<-ctx.Done()
	logrus.Info("Shutting down worker")
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
}

// openEvents connects to RabbitMQ when a URL is configured and otherwise keeps
// events in process, logged by a local subscriber.
func openEvents(cfg config.QueueConfig) (queue.Publisher, func(), error) {
	if cfg.URL != "" {
		q, err := queue.DialAMQP(cfg.URL)
		if err != nil {
			return nil, nil, err
		}
		logrus.WithField("topic", cfg.EventName).Info("Publishing campaign events to RabbitMQ")
		return q, func() { _ = q.Close() }, nil
	}

	q := queue.NewInMemoryQueue()
	if err := queue.StartEventLogger(q, cfg.EventName); err != nil {
		return nil, nil, err
	}
	return q, q.Drain, nil
}

func buildScheduler(cfg *config.Config, store *db.DB, events queue.Publisher, reporter alerting.Reporter) *service.Scheduler {
	emailClient := email.NewClient(cfg.Email)
	if !emailClient.Configured() {
		logrus.Warn("SENDGRID_API_KEY not set, email steps will fail")
	}

	return service.NewScheduler(service.SchedulerDeps{
		CampaignRepo:     &repository.CampaignRepository{DB: store.DB},
		RecipientRepo:    &repository.RecipientRepository{DB: store.DB},
		LeadRepo:         &repository.LeadRepository{DB: store.DB},
		OrganisationRepo: &repository.OrganisationRepository{DB: store.DB},
		OutboundRepo:     &repository.OutboundMessageRepository{DB: store.DB},
		Email:            emailClient,
		Events:           events,
		Reporter:         reporter,
		Links:            service.UnsubscribeLinks{BaseURL: cfg.App.BaseURL, SigningKey: cfg.Unsubscribe.SigningKey},
	}, service.SchedulerConfig{
		Interval:             cfg.Scheduler.Interval,
		DispatchTimeout:      cfg.Scheduler.DispatchTimeout,
		RecipientConcurrency: cfg.Scheduler.RecipientConcurrency,
		DefaultFrom:          cfg.Email.DefaultFrom,
		EventTopic:           cfg.Queue.EventName,
	})
}
