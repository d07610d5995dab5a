package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/leadgen-backend/internal/template"
)

// TemplateController previews and validates message templates without a lead.
type TemplateController struct{}

func (c *TemplateController) Routes(r chi.Router) {
	r.Post("/templates/preview", c.Preview)
	r.Post("/templates/validate", c.Validate)
}

type templateBody struct {
	Subject   string            `json:"subject"`
	Content   string            `json:"content"`
	Variables map[string]string `json:"variables"`
}

// Preview renders subject and content against the built-in sample data.
func (c *TemplateController) Preview(w http.ResponseWriter, r *http.Request) {
	var body templateBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"subject":   template.Preview(body.Subject),
		"content":   template.Preview(body.Content),
		"variables": template.Extract(body.Subject + "\n" + body.Content),
	})
}

// Validate lists the placeholders the supplied variables leave undefined.
func (c *TemplateController) Validate(w http.ResponseWriter, r *http.Request) {
	var body templateBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	combined := body.Subject + "\n" + body.Content
	missing := template.Validate(combined, template.Variables(body.Variables))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid":     len(missing) == 0,
		"missing":   missing,
		"variables": template.Extract(combined),
	})
}
