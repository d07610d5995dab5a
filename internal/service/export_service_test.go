package service_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	appErrors "github.com/unclebandit/leadgen-backend/internal/errors"
	"github.com/unclebandit/leadgen-backend/internal/model"
	"github.com/unclebandit/leadgen-backend/internal/service"
)

func TestExportRecipients(t *testing.T) {
	campaigns := newMockCampaignRepo()
	recipients := newMockRecipientRepo()
	leads := newMockLeadRepo(&model.Lead{ID: 1, OrganisationID: 10, BusinessName: "Sydney Plumbing", Email: model.Ptr("john@sydneyplumbing.com.au")})

	c := campaigns.add(&model.Campaign{OrganisationID: 10, Name: "Welcome", Status: model.CampaignActive})
	_ = campaigns.CreateStep(context.Background(), &model.CampaignStep{CampaignID: c.ID, StepNumber: 1, Channel: model.ChannelEmail, Body: "x"})
	_ = campaigns.CreateStep(context.Background(), &model.CampaignStep{CampaignID: c.ID, StepNumber: 2, Channel: model.ChannelEmail, Body: "y"})

	sent := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	reason := "delivery failed: bounced"
	lead, missing := int64(1), int64(404)
	recipients.add(&model.CampaignRecipient{CampaignID: c.ID, LeadID: &lead, Status: model.RecipientActive, CurrentStep: 1, LastSentAt: &sent})
	recipients.add(&model.CampaignRecipient{CampaignID: c.ID, LeadID: &missing, Status: model.RecipientFailed, LastError: &reason})

	svc := &service.ExportService{CampaignRepo: campaigns, RecipientRepo: recipients, LeadRepo: leads}

	var buf bytes.Buffer
	if err := svc.ExportRecipients(context.Background(), c.ID, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("workbook did not open: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Recipients")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "recipient_id" || rows[0][9] != "last_error" {
		t.Errorf("header = %v", rows[0])
	}

	first := rows[1]
	if first[2] != "Sydney Plumbing" || first[3] != "john@sydneyplumbing.com.au" {
		t.Errorf("lead columns = %v", first)
	}
	if first[4] != "active" || first[5] != "1" || first[6] != "2" || first[7] != "2025-01-01T10:00:00Z" {
		t.Errorf("progress columns = %v", first)
	}

	second := rows[2]
	if second[1] != "404" || second[2] != "" || second[4] != "failed" || second[9] != reason {
		t.Errorf("failed row = %v", second)
	}
}

func TestExportRecipientsUnknownCampaign(t *testing.T) {
	svc := &service.ExportService{CampaignRepo: newMockCampaignRepo(), RecipientRepo: newMockRecipientRepo(), LeadRepo: newMockLeadRepo()}

	var buf bytes.Buffer
	if err := svc.ExportRecipients(context.Background(), 1, &buf); !appErrors.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("nothing should be written for a missing campaign")
	}
}
