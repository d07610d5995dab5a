package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/leadgen-backend/internal/service"
)

// OrganisationController serves plan usage and the quota-gated prospect operations.
type OrganisationController struct {
	UsageService    *service.UsageService
	ProspectService *service.ProspectService
}

func (c *OrganisationController) Routes(r chi.Router) {
	r.Get("/organisations/{id}/usage", c.GetUsage)
	r.Get("/organisations/{id}/usage/check", c.CheckUsage)
	r.Post("/organisations/{id}/scrape-jobs", c.CreateScrapeJob)
	r.Post("/organisations/{id}/prospects/{prospectID}/convert", c.ConvertProspect)
}

func (c *OrganisationController) GetUsage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	stats, err := c.UsageService.GetStats(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// CheckUsage answers whether count more of action fit, without enforcing anything.
func (c *OrganisationController) CheckUsage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	count, err := queryInt(r, "count", 1)
	if err != nil {
		writeError(w, r, err)
		return
	}

	check, err := c.UsageService.CheckUsageLimit(r.Context(), id, service.UsageAction(r.URL.Query().Get("action")), count)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func (c *OrganisationController) CreateScrapeJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body service.ScrapeJobInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	body.OrganisationID = id

	job, err := c.ProspectService.CreateScrapeJob(r.Context(), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (c *OrganisationController) ConvertProspect(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	prospectID, err := pathID(r, "prospectID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body struct {
		Notes string `json:"notes"`
	}
	if r.ContentLength != 0 {
		if err := decodeBody(r, &body); err != nil {
			writeError(w, r, err)
			return
		}
	}

	lead, err := c.ProspectService.ConvertToLead(r.Context(), id, prospectID, body.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}
