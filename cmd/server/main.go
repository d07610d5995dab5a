// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/unclebandit/leadgen-backend/internal/alerting"
	"github.com/unclebandit/leadgen-backend/internal/config"
	"github.com/unclebandit/leadgen-backend/internal/controller"
	"github.com/unclebandit/leadgen-backend/internal/db"
	"github.com/unclebandit/leadgen-backend/internal/handler"
	"github.com/unclebandit/leadgen-backend/internal/logging"
	"github.com/unclebandit/leadgen-backend/internal/repository"
	"github.com/unclebandit/leadgen-backend/internal/service"
	"github.com/unclebandit/leadgen-backend/internal/tracing"
)

func main() {
	// Load .env
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

	reporter, err := alerting.NewReporter(cfg.Sentry.DSN, cfg.App.Environment)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialise Sentry")
	}
	defer reporter.Flush(2 * time.Second)

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing.Endpoint, cfg.Tracing.ServiceName+"-api")
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

	campaignRepo := &repository.CampaignRepository{DB: store.DB}
	recipientRepo := &repository.RecipientRepository{DB: store.DB}
	leadRepo := &repository.LeadRepository{DB: store.DB}
	prospectRepo := &repository.ProspectRepository{DB: store.DB}
	organisationRepo := &repository.OrganisationRepository{DB: store.DB}
	billingRepo := &repository.BillingRepository{DB: store.DB}

	usageService := &service.UsageService{
		ProspectRepo: prospectRepo,
		LeadRepo:     leadRepo,
		CampaignRepo: campaignRepo,
		BillingRepo:  billingRepo,
	}
	campaignService := &service.CampaignService{
		CampaignRepo:     campaignRepo,
		RecipientRepo:    recipientRepo,
		LeadRepo:         leadRepo,
		OrganisationRepo: organisationRepo,
		Usage:            usageService,
	}

	campaignController := &controller.CampaignController{
		CampaignService: campaignService,
		ExportService: &service.ExportService{
			CampaignRepo:  campaignRepo,
			RecipientRepo: recipientRepo,
			LeadRepo:      leadRepo,
		},
	}
	organisationController := &controller.OrganisationController{
		UsageService: usageService,
		ProspectService: &service.ProspectService{
			ProspectRepo:     prospectRepo,
			OrganisationRepo: organisationRepo,
			Usage:            usageService,
		},
	}
	unsubscribeHandler := &handler.UnsubscribeHandler{
		Campaigns: campaignService,
		Links:     service.UnsubscribeLinks{BaseURL: cfg.App.BaseURL, SigningKey: cfg.Unsubscribe.SigningKey},
	}
	healthHandler := &handler.HealthHandler{DB: store}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger)
	r.Use(middleware.Recoverer)

	campaignController.Routes(r)
	organisationController.Routes(r)
	(&controller.TemplateController{}).Routes(r)
	r.Get("/unsubscribe", unsubscribeHandler.Unsubscribe)
	r.Get("/health", healthHandler.Health)
	r.Get("/health/db", healthHandler.DBHealth)
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logrus.WithField("addr", srv.Addr).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Graceful shutdown failed")
	}
}
