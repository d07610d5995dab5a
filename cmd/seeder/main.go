//cmd/seeder/main.go
package main

import (
	"context"
	"flag"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/unclebandit/leadgen-backend/internal/config"
	"github.com/unclebandit/leadgen-backend/internal/db"
	"github.com/unclebandit/leadgen-backend/internal/logging"
	"github.com/unclebandit/leadgen-backend/internal/model"
	"github.com/unclebandit/leadgen-backend/internal/repository"
)

// Prices are in cents.
var plans = []*model.BillingPlan{
	{Name: "Starter", Slug: "starter", PriceMonthly: 9900, PriceAnnual: 99000, MaxNiches: 1, MaxRegions: 3, MaxLeadsPerMonth: 100, Active: true},
	{Name: "Professional", Slug: "professional", PriceMonthly: 29900, PriceAnnual: 299000, MaxNiches: 3, MaxRegions: 10, MaxLeadsPerMonth: 500, Active: true},
	{Name: "Enterprise", Slug: "enterprise", PriceMonthly: 59900, PriceAnnual: 599000, MaxNiches: model.Unlimited, MaxRegions: model.Unlimited, MaxLeadsPerMonth: model.Unlimited, Active: true},
}

func main() {
	demo := flag.Bool("demo", false, "also create a demo organisation with an active campaign")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, relying on OS environment variables")
	}

	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	logging.Configure(cfg.App.LogLevel, cfg.App.LogFormat)

	store, err := db.Open(ctx, cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		logrus.WithError(err).Fatal("Failed to apply schema")
	}

	billing := &repository.BillingRepository{DB: store.DB}
	for _, p := range plans {
		if err := billing.UpsertPlan(ctx, p); err != nil {
			logrus.WithError(err).Fatal("Failed to seed billing plans")
		}
		logrus.WithFields(logrus.Fields{"plan": p.Slug, "id": p.ID}).Info("Seeded billing plan")
	}

	if *demo {
		if err := seedDemo(ctx, store, plans[0]); err != nil {
			logrus.WithError(err).Fatal("Failed to seed demo data")
		}
	}

	logrus.Info("Database seeding completed successfully")
}

func seedDemo(ctx context.Context, store *db.DB, plan *model.BillingPlan) error {
	org := &model.Organisation{
		Name:              "Local Lead AU",
		Slug:              "local-lead-au",
		Website:           model.Ptr("https://localleadau.com"),
		City:              model.Ptr("Sydney"),
		State:             model.Ptr("NSW"),
		LeadHandlingEmail: model.Ptr("sarah@localleadau.com"),
	}
	if err := (&repository.OrganisationRepository{DB: store.DB}).Create(ctx, org); err != nil {
		return err
	}

	start := time.Now().UTC()
	end := start.AddDate(0, 1, 0)
	if err := (&repository.BillingRepository{DB: store.DB}).CreateSubscription(ctx, &model.Subscription{
		OrganisationID:     org.ID,
		PlanID:             plan.ID,
		Status:             "active",
		CurrentPeriodStart: &start,
		CurrentPeriodEnd:   &end,
	}); err != nil {
		return err
	}

	lead := &model.Lead{
		OrganisationID: org.ID,
		BusinessName:   "Sydney Plumbing Services",
		ContactName:    model.Ptr("John Smith"),
		Email:          model.Ptr("john@sydneyplumbing.com.au"),
		City:           model.Ptr("Sydney"),
		State:          model.Ptr("NSW"),
		Status:         "new",
	}
	if err := (&repository.LeadRepository{DB: store.DB}).Create(ctx, lead); err != nil {
		return err
	}

	campaigns := &repository.CampaignRepository{DB: store.DB}
	c := &model.Campaign{OrganisationID: org.ID, Name: "Welcome sequence", Status: model.CampaignActive}
	if err := campaigns.Create(ctx, c); err != nil {
		return err
	}
	steps := []*model.CampaignStep{
		{StepNumber: 1, Channel: model.ChannelEmail, Subject: model.Ptr("Quick question, {{firstName}}"),
			Body: "<p>Hi {{firstName}},</p><p>{{senderName}} from {{senderCompany}} here. Are you taking on new work in {{city}}?</p>"},
		{StepNumber: 2, Channel: model.ChannelEmail, DelayDays: 3, Subject: model.Ptr("Following up"),
			Body: "<p>Hi {{firstName}}, just bumping this to the top of your inbox.</p>"},
		{StepNumber: 3, Channel: model.ChannelSMS, DelayDays: 7, Body: "Hi {{firstName}}, {{senderName}} here. Worth a chat?"},
	}
	for _, s := range steps {
		s.CampaignID = c.ID
		if err := campaigns.CreateStep(ctx, s); err != nil {
			return err
		}
	}

	if err := (&repository.RecipientRepository{DB: store.DB}).Create(ctx, &model.CampaignRecipient{
		CampaignID: c.ID,
		LeadID:     &lead.ID,
		Status:     model.RecipientPending,
	}); err != nil {
		return err
	}
	if err := campaigns.IncrementRecipients(ctx, c.ID); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{"organisation_id": org.ID, "campaign_id": c.ID}).Info("Seeded demo campaign")
	return nil
}
