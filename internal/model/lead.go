package model

import "time"

type Lead struct {
	ID             int64     `db:"id" json:"id"`
	OrganisationID int64     `db:"organisation_id" json:"organisation_id"`
	BusinessName   string    `db:"business_name" json:"business_name"`
	ContactName    *string   `db:"contact_name" json:"contact_name,omitempty"`
	Email          *string   `db:"email" json:"email,omitempty"`
	Phone          *string   `db:"phone" json:"phone,omitempty"`
	Website        *string   `db:"website" json:"website,omitempty"`
	Address        *string   `db:"address" json:"address,omitempty"`
	City           *string   `db:"city" json:"city,omitempty"`
	State          *string   `db:"state" json:"state,omitempty"`
	Status         string    `db:"status" json:"status"`
	Source         *string   `db:"source" json:"source,omitempty"`
	SourceID       *int64    `db:"source_id" json:"source_id,omitempty"`
	Notes          *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

type ProspectStatus string

const (
	ProspectUnqualified ProspectStatus = "unqualified"
	ProspectQualified   ProspectStatus = "qualified"
	ProspectExcluded    ProspectStatus = "excluded"
	ProspectConverted   ProspectStatus = "converted"
)

type Prospect struct {
	ID             int64          `db:"id" json:"id"`
	OrganisationID int64          `db:"organisation_id" json:"organisation_id"`
	ScrapeJobID    *int64         `db:"scrape_job_id" json:"scrape_job_id,omitempty"`
	BusinessName   string         `db:"business_name" json:"business_name"`
	Email          *string        `db:"email" json:"email,omitempty"`
	Phone          *string        `db:"phone" json:"phone,omitempty"`
	Website        *string        `db:"website" json:"website,omitempty"`
	Address        *string        `db:"address" json:"address,omitempty"`
	City           *string        `db:"city" json:"city,omitempty"`
	State          *string        `db:"state" json:"state,omitempty"`
	Category       *string        `db:"category" json:"category,omitempty"`
	Status         ProspectStatus `db:"status" json:"status"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

type ScrapeJobStatus string

const (
	ScrapeJobPending   ScrapeJobStatus = "pending"
	ScrapeJobRunning   ScrapeJobStatus = "running"
	ScrapeJobCompleted ScrapeJobStatus = "completed"
	ScrapeJobFailed    ScrapeJobStatus = "failed"
)

type ScrapeJob struct {
	ID             int64           `db:"id" json:"id"`
	OrganisationID int64           `db:"organisation_id" json:"organisation_id"`
	SourceName     string          `db:"source_name" json:"source_name"`
	Niche          *string         `db:"niche" json:"niche,omitempty"`
	Status         ScrapeJobStatus `db:"status" json:"status"`
	SearchQuery    string          `db:"search_query" json:"search_query"`
	Location       string          `db:"location" json:"location"`
	MaxResults     int             `db:"max_results" json:"max_results"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// Ptr returns a pointer to v, or nil when v is the zero string.
func Ptr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// Deref returns the pointed-to string or "".
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
