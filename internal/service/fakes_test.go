package service_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/unclebandit/leadgen-backend/internal/email"
	appErrors "github.com/unclebandit/leadgen-backend/internal/errors"
	"github.com/unclebandit/leadgen-backend/internal/model"
	"github.com/unclebandit/leadgen-backend/internal/service"
)

// Mock repositories

type MockCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[int64]*model.Campaign
	steps     map[int64][]*model.CampaignStep
	nextID    int64
	listErr   error
	stepsErr  map[int64]error
}

func newMockCampaignRepo() *MockCampaignRepo {
	return &MockCampaignRepo{
		campaigns: map[int64]*model.Campaign{},
		steps:     map[int64][]*model.CampaignStep{},
		stepsErr:  map[int64]error{},
	}
}

func (m *MockCampaignRepo) Create(_ context.Context, c *model.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c.ID = m.nextID
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	m.campaigns[c.ID] = &cp
	return nil
}

func (m *MockCampaignRepo) add(c *model.Campaign) *model.Campaign {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == 0 {
		m.nextID++
		c.ID = m.nextID
	}
	m.campaigns[c.ID] = c
	return c
}

func (m *MockCampaignRepo) GetByID(_ context.Context, id int64) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (m *MockCampaignRepo) ListCampaigns(_ context.Context, organisationID int64, status string, offset, limit int) ([]*model.Campaign, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := []*model.Campaign{}
	for _, c := range m.campaigns {
		if c.OrganisationID == organisationID && (status == "" || string(c.Status) == status) {
			all = append(all, c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	if offset >= len(all) {
		return []*model.Campaign{}, len(all), nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], len(all), nil
}

func (m *MockCampaignRepo) ListByStatus(_ context.Context, status model.CampaignStatus) ([]*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []*model.Campaign{}
	for _, c := range m.campaigns {
		if c.Status == status {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockCampaignRepo) CountByStatus(_ context.Context, organisationID int64, statuses ...model.CampaignStatus) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.campaigns {
		if c.OrganisationID != organisationID {
			continue
		}
		for _, s := range statuses {
			if c.Status == s {
				n++
			}
		}
	}
	return n, nil
}

func (m *MockCampaignRepo) UpdateStatus(_ context.Context, id int64, status model.CampaignStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	c.Status = status
	return nil
}

func (m *MockCampaignRepo) IncrementSent(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.campaigns[id].TotalSent++
	return nil
}

func (m *MockCampaignRepo) IncrementRecipients(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.campaigns[id].TotalRecipients++
	return nil
}

func (m *MockCampaignRepo) CreateStep(_ context.Context, s *model.CampaignStep) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = int64(len(m.steps[s.CampaignID]) + 1000)
	m.steps[s.CampaignID] = append(m.steps[s.CampaignID], s)
	sort.Slice(m.steps[s.CampaignID], func(i, j int) bool {
		return m.steps[s.CampaignID][i].StepNumber < m.steps[s.CampaignID][j].StepNumber
	})
	return nil
}

func (m *MockCampaignRepo) ListSteps(_ context.Context, campaignID int64) ([]*model.CampaignStep, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.stepsErr[campaignID]; err != nil {
		return nil, err
	}
	return append([]*model.CampaignStep(nil), m.steps[campaignID]...), nil
}

func (m *MockCampaignRepo) GetStep(_ context.Context, campaignID int64, stepNumber int) (*model.CampaignStep, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.steps[campaignID] {
		if s.StepNumber == stepNumber {
			return s, nil
		}
	}
	return nil, appErrors.NewNotFound("campaign step", int64(stepNumber))
}

type MockRecipientRepo struct {
	mu         sync.Mutex
	recipients map[int64]*model.CampaignRecipient
	nextID     int64
	createErr  error
}

func newMockRecipientRepo() *MockRecipientRepo {
	return &MockRecipientRepo{recipients: map[int64]*model.CampaignRecipient{}}
}

func (m *MockRecipientRepo) Create(_ context.Context, r *model.CampaignRecipient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	r.ID = m.nextID
	if r.Status == "" {
		r.Status = model.RecipientPending
	}
	cp := *r
	m.recipients[r.ID] = &cp
	return nil
}

func (m *MockRecipientRepo) add(r *model.CampaignRecipient) *model.CampaignRecipient {
	_ = m.Create(context.Background(), r)
	return r
}

func (m *MockRecipientRepo) get(id int64) model.CampaignRecipient {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.recipients[id]
}

func (m *MockRecipientRepo) GetByID(_ context.Context, id int64) (*model.CampaignRecipient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recipients[id]
	if !ok {
		return nil, appErrors.NewNotFound("campaign recipient", id)
	}
	cp := *r
	return &cp, nil
}

func (m *MockRecipientRepo) ListByCampaign(_ context.Context, campaignID int64, statuses ...model.RecipientStatus) ([]*model.CampaignRecipient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.CampaignRecipient{}
	for _, r := range m.recipients {
		if r.CampaignID != campaignID {
			continue
		}
		if len(statuses) > 0 {
			match := false
			for _, s := range statuses {
				if r.Status == s {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockRecipientRepo) ExistsForLead(_ context.Context, campaignID, leadID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.recipients {
		if r.CampaignID == campaignID && r.LeadID != nil && *r.LeadID == leadID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockRecipientRepo) CountByStatus(_ context.Context, campaignID int64) (map[model.RecipientStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[model.RecipientStatus]int{}
	for _, r := range m.recipients {
		if r.CampaignID == campaignID {
			out[r.Status]++
		}
	}
	return out, nil
}

func (m *MockRecipientRepo) Advance(_ context.Context, id int64, expectedStep int, sentAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.recipients[id]
	if r == nil || r.CurrentStep != expectedStep || !r.Status.Schedulable() {
		return false, nil
	}
	r.CurrentStep++
	r.LastSentAt = &sentAt
	r.Status = model.RecipientActive
	return true, nil
}

func (m *MockRecipientRepo) MarkCompleted(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.recipients[id]
	r.Status = model.RecipientCompleted
	r.CompletedAt = &at
	return nil
}

func (m *MockRecipientRepo) MarkFailed(_ context.Context, id int64, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.recipients[id]
	r.Status = model.RecipientFailed
	r.LastError = &reason
	return nil
}

func (m *MockRecipientRepo) Unsubscribe(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recipients[id]
	if !ok || r.Status == model.RecipientCompleted {
		return false, nil
	}
	r.Status = model.RecipientUnsubscribed
	return true, nil
}

func (m *MockRecipientRepo) Requeue(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recipients[id]
	if !ok || r.Status != model.RecipientFailed {
		return false, nil
	}
	r.Status = model.RecipientPending
	r.LastError = nil
	return true, nil
}

type MockLeadRepo struct {
	mu     sync.Mutex
	leads  map[int64]*model.Lead
	nextID int64
}

func newMockLeadRepo(leads ...*model.Lead) *MockLeadRepo {
	m := &MockLeadRepo{leads: map[int64]*model.Lead{}}
	for _, l := range leads {
		m.leads[l.ID] = l
		if l.ID > m.nextID {
			m.nextID = l.ID
		}
	}
	return m
}

func (m *MockLeadRepo) GetByID(_ context.Context, id int64) (*model.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok {
		return nil, appErrors.NewNotFound("lead", id)
	}
	return l, nil
}

func (m *MockLeadRepo) Create(_ context.Context, l *model.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	l.ID = m.nextID
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	m.leads[l.ID] = l
	return nil
}

func (m *MockLeadRepo) CountCreatedSince(_ context.Context, organisationID int64, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.leads {
		if l.OrganisationID == organisationID && !l.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

type MockOrganisationRepo struct {
	orgs map[int64]*model.Organisation
}

func newMockOrganisationRepo(orgs ...*model.Organisation) *MockOrganisationRepo {
	m := &MockOrganisationRepo{orgs: map[int64]*model.Organisation{}}
	for _, o := range orgs {
		m.orgs[o.ID] = o
	}
	return m
}

func (m *MockOrganisationRepo) GetByID(_ context.Context, id int64) (*model.Organisation, error) {
	o, ok := m.orgs[id]
	if !ok {
		return nil, appErrors.NewNotFound("organisation", id)
	}
	return o, nil
}

func (m *MockOrganisationRepo) Create(_ context.Context, o *model.Organisation) error {
	o.ID = int64(len(m.orgs) + 1)
	m.orgs[o.ID] = o
	return nil
}

type MockOutboundRepo struct {
	mu       sync.Mutex
	messages []*model.OutboundMessage
}

func (m *MockOutboundRepo) Create(_ context.Context, msg *model.OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = int64(len(m.messages) + 1)
	m.messages = append(m.messages, msg)
	return nil
}

func (m *MockOutboundRepo) ListByRecipient(_ context.Context, recipientID int64) ([]*model.OutboundMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.OutboundMessage{}
	for _, msg := range m.messages {
		if msg.RecipientID == recipientID {
			out = append(out, msg)
		}
	}
	return out, nil
}

type MockProspectRepo struct {
	prospects map[int64]*model.Prospect
	jobs      []*model.ScrapeJob
	converted []*model.Lead
	leads     *MockLeadRepo
}

func (m *MockProspectRepo) GetByID(_ context.Context, id int64) (*model.Prospect, error) {
	p, ok := m.prospects[id]
	if !ok {
		return nil, appErrors.NewNotFound("prospect", id)
	}
	return p, nil
}

func (m *MockProspectRepo) Create(_ context.Context, p *model.Prospect) error {
	p.ID = int64(len(m.prospects) + 1)
	m.prospects[p.ID] = p
	return nil
}

func (m *MockProspectRepo) CountByOrganisation(_ context.Context, organisationID int64) (int, error) {
	n := 0
	for _, p := range m.prospects {
		if p.OrganisationID == organisationID {
			n++
		}
	}
	return n, nil
}

func (m *MockProspectRepo) CreateScrapeJob(_ context.Context, j *model.ScrapeJob) error {
	j.ID = int64(len(m.jobs) + 1)
	m.jobs = append(m.jobs, j)
	return nil
}

func (m *MockProspectRepo) ConvertToLead(ctx context.Context, prospectID int64, l *model.Lead) error {
	if m.leads != nil {
		if err := m.leads.Create(ctx, l); err != nil {
			return err
		}
	}
	m.prospects[prospectID].Status = model.ProspectConverted
	m.converted = append(m.converted, l)
	return nil
}

type MockBillingRepo struct {
	subs  map[int64]*model.Subscription
	plans map[int64]*model.BillingPlan
}

func newMockBillingRepo() *MockBillingRepo {
	return &MockBillingRepo{subs: map[int64]*model.Subscription{}, plans: map[int64]*model.BillingPlan{}}
}

func (m *MockBillingRepo) LatestSubscription(_ context.Context, organisationID int64) (*model.Subscription, error) {
	return m.subs[organisationID], nil
}

func (m *MockBillingRepo) GetPlan(_ context.Context, id int64) (*model.BillingPlan, error) {
	p, ok := m.plans[id]
	if !ok {
		return nil, appErrors.NewNotFound("billing plan", id)
	}
	return p, nil
}

func (m *MockBillingRepo) UpsertPlan(_ context.Context, p *model.BillingPlan) error {
	if p.ID == 0 {
		p.ID = int64(len(m.plans) + 1)
	}
	m.plans[p.ID] = p
	return nil
}

func (m *MockBillingRepo) CreateSubscription(_ context.Context, s *model.Subscription) error {
	m.subs[s.OrganisationID] = s
	return nil
}

// Mock collaborators

type MockEmailSender struct {
	mu     sync.Mutex
	sent   []email.Params
	result func(p email.Params) email.Result
}

func (m *MockEmailSender) SendEmail(_ context.Context, p email.Params) email.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, p)
	if m.result != nil {
		return m.result(p)
	}
	return email.Result{Success: true, MessageID: "msg-" + p.To}
}

func (m *MockEmailSender) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type MockPublisher struct {
	mu     sync.Mutex
	events []any
}

func (m *MockPublisher) Publish(_ string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, payload)
	return nil
}

type MockReporter struct {
	mu   sync.Mutex
	errs []error
}

func (m *MockReporter) Report(err error, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, err)
}

func (m *MockReporter) Flush(time.Duration) {}

type usageCall struct {
	action service.UsageAction
	count  int
}

type MockUsage struct {
	err   error
	calls []usageCall
}

func (m *MockUsage) Enforce(_ context.Context, _ int64, action service.UsageAction, count int) error {
	m.calls = append(m.calls, usageCall{action, count})
	return m.err
}
