package controller_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/unclebandit/leadgen-backend/internal/model"
	"github.com/unclebandit/leadgen-backend/internal/service"
)

func orgPath(id int64, suffix string) string {
	return "/organisations/" + strconv.FormatInt(id, 10) + suffix
}

func TestUsageEndpoints(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, orgPath(ts.orgID, "/usage"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("usage: %d %s", w.Code, w.Body.String())
	}
	var stats service.UsageStats
	decode(t, w, &stats)
	if stats.Usage.Leads != 1 || stats.Limits.MaxLeads != 10 || stats.Percentages.Leads != 10 {
		t.Errorf("stats = %+v", stats)
	}

	w = ts.do(t, http.MethodGet, orgPath(ts.orgID, "/usage/check?action=lead&count=10"), nil)
	var check service.UsageCheck
	decode(t, w, &check)
	if check.Allowed || check.Current != 1 || check.Limit != 10 {
		t.Errorf("check = %+v", check)
	}

	w = ts.do(t, http.MethodGet, orgPath(ts.orgID, "/usage/check?action=lead"), nil)
	check = service.UsageCheck{}
	decode(t, w, &check)
	if !check.Allowed {
		t.Errorf("default count of 1 should fit: %+v", check)
	}

	if w := ts.do(t, http.MethodGet, orgPath(ts.orgID, "/usage/check?action=emails"), nil); w.Code != http.StatusBadRequest {
		t.Errorf("unknown action: %d", w.Code)
	}
}

func TestUsageCheckReportsZeroLimit(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t)

	plan := &model.BillingPlan{Name: "Leads only", Slug: "leads-only", MaxRegions: 1, MaxLeadsPerMonth: 100, Active: true}
	if err := ts.billing.UpsertPlan(ctx, plan); err != nil {
		t.Fatalf("upsert plan: %v", err)
	}
	if err := ts.billing.CreateSubscription(ctx, &model.Subscription{OrganisationID: ts.orgID, PlanID: plan.ID, Status: "active"}); err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	w := ts.do(t, http.MethodGet, orgPath(ts.orgID, "/usage/check?action=campaign"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("check: %d %s", w.Code, w.Body.String())
	}
	var body map[string]json.RawMessage
	decode(t, w, &body)
	if string(body["allowed"]) != "false" {
		t.Errorf("allowed = %s", body["allowed"])
	}
	if string(body["current"]) != "0" || string(body["limit"]) != "0" {
		t.Errorf("current and limit must be reported on a zero limit: %v", body)
	}
}

func TestScrapeJobEndpoint(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, orgPath(ts.orgID, "/scrape-jobs"), map[string]any{
		"search_query": "plumbers", "location": "Sydney NSW", "max_results": 50,
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("scrape job: %d %s", w.Code, w.Body.String())
	}
	var job model.ScrapeJob
	decode(t, w, &job)
	if job.OrganisationID != ts.orgID || job.MaxResults != 50 || job.Status != model.ScrapeJobPending {
		t.Errorf("job = %+v", job)
	}

	// Free tier allows 50 prospects in total.
	w = ts.do(t, http.MethodPost, orgPath(ts.orgID, "/scrape-jobs"), map[string]any{
		"search_query": "plumbers", "location": "Sydney NSW", "max_results": 51,
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("over quota: %d %s", w.Code, w.Body.String())
	}

	if w := ts.do(t, http.MethodPost, orgPath(999, "/scrape-jobs"), map[string]any{"search_query": "a", "location": "b"}); w.Code != http.StatusNotFound {
		t.Errorf("unknown organisation: %d", w.Code)
	}
}

func TestConvertProspectEndpoint(t *testing.T) {
	ts := newTestServer(t)
	p := &model.Prospect{OrganisationID: ts.orgID, BusinessName: "Bondi Cafe", Email: model.Ptr("hello@bondicafe.com.au"), Status: model.ProspectQualified}
	if err := ts.prospects.Create(context.Background(), p); err != nil {
		t.Fatalf("create prospect: %v", err)
	}

	path := orgPath(ts.orgID, "/prospects/"+strconv.FormatInt(p.ID, 10)+"/convert")
	w := ts.do(t, http.MethodPost, path, map[string]any{"notes": "called back"})
	if w.Code != http.StatusCreated {
		t.Fatalf("convert: %d %s", w.Code, w.Body.String())
	}
	var lead model.Lead
	decode(t, w, &lead)
	if lead.BusinessName != "Bondi Cafe" || model.Deref(lead.Notes) != "called back" {
		t.Errorf("lead = %+v", lead)
	}

	if w := ts.do(t, http.MethodPost, path, nil); w.Code != http.StatusBadRequest {
		t.Errorf("second conversion: %d %s", w.Code, w.Body.String())
	}
}

func TestTemplateEndpoints(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/templates/preview", map[string]any{
		"subject": "Hi {{firstName}}", "content": "From {{senderCompany}} to {{businessName}}",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("preview: %d %s", w.Code, w.Body.String())
	}
	var preview struct {
		Subject   string   `json:"subject"`
		Content   string   `json:"content"`
		Variables []string `json:"variables"`
	}
	decode(t, w, &preview)
	if preview.Subject != "Hi John" || preview.Content != "From Local Lead AU to Sydney Plumbing Services" {
		t.Errorf("preview = %+v", preview)
	}
	if len(preview.Variables) != 3 {
		t.Errorf("variables = %v", preview.Variables)
	}

	w = ts.do(t, http.MethodPost, "/templates/validate", map[string]any{
		"content":   "Hi {{firstName}} {{discount}}",
		"variables": map[string]string{"firstName": "Ann"},
	})
	var result struct {
		Valid   bool     `json:"valid"`
		Missing []string `json:"missing"`
	}
	decode(t, w, &result)
	if result.Valid || len(result.Missing) != 1 || result.Missing[0] != "discount" {
		t.Errorf("validate = %+v", result)
	}
}
