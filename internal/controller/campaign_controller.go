// internal/controller/campaign_controller.go
package controller

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/leadgen-backend/internal/errors"
	"github.com/unclebandit/leadgen-backend/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type CampaignController struct {
	CampaignService *service.CampaignService
	ExportService   *service.ExportService
}

// Routes mounts the campaign and recipient endpoints.
func (c *CampaignController) Routes(r chi.Router) {
	r.Post("/campaigns", c.CreateCampaign)
	r.Get("/campaigns", c.ListCampaigns)
	r.Get("/campaigns/{id}", c.GetCampaignDetails)
	r.Patch("/campaigns/{id}/status", c.UpdateStatus)
	r.Post("/campaigns/{id}/steps", c.AddStep)
	r.Get("/campaigns/{id}/steps", c.ListSteps)
	r.Post("/campaigns/{id}/recipients", c.EnrollRecipient)
	r.Get("/campaigns/{id}/recipients", c.ListRecipients)
	r.Get("/campaigns/{id}/recipients/export", c.ExportRecipients)
	r.Post("/campaigns/{id}/personalized-preview", c.PersonalizedPreview)
	r.Post("/recipients/{id}/retry", c.RetryRecipient)
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body service.CreateCampaignInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	campaign, err := c.CampaignService.CreateCampaign(r.Context(), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, campaign)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	orgID, err := queryInt(r, "organisation_id", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if orgID < 1 {
		writeError(w, r, appErrors.NewInvalidInput("organisation_id", "organisation_id is required"))
		return
	}
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pageSize, err := queryInt(r, "page_size", 20)
	if err != nil {
		writeError(w, r, err)
		return
	}

	campaigns, pagination, err := c.CampaignService.ListCampaigns(r.Context(), int64(orgID), r.URL.Query().Get("status"), page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":       campaigns,
		"pagination": pagination,
	})
}

func (c *CampaignController) GetCampaignDetails(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	details, err := c.CampaignService.GetCampaignDetailsWithStats(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (c *CampaignController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	campaign, err := c.CampaignService.UpdateStatus(r.Context(), id, body.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (c *CampaignController) AddStep(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body service.AddStepInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	body.CampaignID = id

	step, err := c.CampaignService.AddStep(r.Context(), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, step)
}

func (c *CampaignController) ListSteps(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	steps, err := c.CampaignService.ListSteps(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": steps})
}

func (c *CampaignController) EnrollRecipient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body struct {
		LeadID int64 `json:"lead_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	recipient, err := c.CampaignService.EnrollRecipient(r.Context(), id, body.LeadID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, recipient)
}

func (c *CampaignController) ListRecipients(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	recipients, err := c.CampaignService.ListRecipients(r.Context(), id, r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": recipients})
}

// ExportRecipients streams the recipient progress workbook. The workbook is built in
// memory first so a failure still produces a JSON error.
func (c *CampaignController) ExportRecipients(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := c.ExportService.ExportRecipients(r.Context(), id, &buf); err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="campaign-%d-recipients.xlsx"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (c *CampaignController) RetryRecipient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	recipient, err := c.CampaignService.RetryRecipient(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recipient)
}

func (c *CampaignController) PersonalizedPreview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body struct {
		LeadID     int64 `json:"lead_id"`
		StepNumber int   `json:"step_number"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.StepNumber == 0 {
		body.StepNumber = 1
	}

	rendered, err := c.CampaignService.RenderPreview(r.Context(), id, body.StepNumber, body.LeadID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rendered_message": rendered,
		"lead_id":          body.LeadID,
	})
}
