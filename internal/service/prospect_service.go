package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	appErrors "github.com/unclebandit/leadgen-backend/internal/errors"
	"github.com/unclebandit/leadgen-backend/internal/model"
	"github.com/unclebandit/leadgen-backend/internal/repository"
)

const (
	defaultMaxResults = 100
	maxMaxResults     = 500
)

type ProspectService struct {
	ProspectRepo     repository.ProspectRepositoryInterface
	OrganisationRepo repository.OrganisationRepositoryInterface
	Usage            UsageEnforcer
}

type ScrapeJobInput struct {
	OrganisationID int64  `json:"organisation_id"`
	SearchQuery    string `json:"search_query"`
	Location       string `json:"location"`
	MaxResults     int    `json:"max_results"`
	SourceName     string `json:"source_name"`
	Niche          string `json:"niche"`
}

// CreateScrapeJob reserves prospect quota for MaxResults and records a pending job.
// MaxResults defaults to 100 and may not exceed 500.
func (s *ProspectService) CreateScrapeJob(ctx context.Context, in ScrapeJobInput) (*model.ScrapeJob, error) {
	query := strings.TrimSpace(in.SearchQuery)
	location := strings.TrimSpace(in.Location)
	if query == "" {
		return nil, appErrors.NewInvalidInput("search_query", "search query is required")
	}
	if location == "" {
		return nil, appErrors.NewInvalidInput("location", "location is required")
	}

	maxResults := in.MaxResults
	if maxResults == 0 {
		maxResults = defaultMaxResults
	}
	if maxResults < 1 || maxResults > maxMaxResults {
		return nil, appErrors.NewInvalidInput("max_results", fmt.Sprintf("must be between 1 and %d", maxMaxResults))
	}

	if _, err := s.OrganisationRepo.GetByID(ctx, in.OrganisationID); err != nil {
		return nil, err
	}
	if err := s.Usage.Enforce(ctx, in.OrganisationID, ActionProspect, maxResults); err != nil {
		return nil, err
	}

	sourceName := strings.TrimSpace(in.SourceName)
	if sourceName == "" {
		sourceName = fmt.Sprintf("%s in %s", query, location)
	}

	job := &model.ScrapeJob{
		OrganisationID: in.OrganisationID,
		SourceName:     sourceName,
		Niche:          model.Ptr(in.Niche),
		Status:         model.ScrapeJobPending,
		SearchQuery:    query,
		Location:       location,
		MaxResults:     maxResults,
	}
	if err := s.ProspectRepo.CreateScrapeJob(ctx, job); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"organisation_id": in.OrganisationID,
		"job_id":          job.ID,
		"max_results":     maxResults,
	}).Info("scrape job queued")
	return job, nil
}

// ConvertToLead turns a prospect of the organisation into a lead, subject to the lead quota.
func (s *ProspectService) ConvertToLead(ctx context.Context, organisationID, prospectID int64, notes string) (*model.Lead, error) {
	if err := s.Usage.Enforce(ctx, organisationID, ActionLead, 1); err != nil {
		return nil, err
	}

	p, err := s.ProspectRepo.GetByID(ctx, prospectID)
	if err != nil {
		return nil, err
	}
	if p.OrganisationID != organisationID {
		return nil, appErrors.NewNotFound("prospect", prospectID)
	}
	if p.Status == model.ProspectConverted {
		return nil, appErrors.NewInvalidInput("prospect", "prospect is already converted")
	}

	source := "prospect"
	lead := &model.Lead{
		OrganisationID: organisationID,
		BusinessName:   p.BusinessName,
		Email:          p.Email,
		Phone:          p.Phone,
		Website:        p.Website,
		Address:        p.Address,
		City:           p.City,
		State:          p.State,
		Status:         "new",
		Source:         &source,
		SourceID:       &p.ID,
		Notes:          model.Ptr(notes),
	}
	if err := s.ProspectRepo.ConvertToLead(ctx, prospectID, lead); err != nil {
		return nil, err
	}
	return lead, nil
}
