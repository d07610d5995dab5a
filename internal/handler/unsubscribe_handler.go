// internal/handler/unsubscribe_handler.go
package handler

import (
	"context"
	"html/template"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	appErrors "github.com/unclebandit/leadgen-backend/internal/errors"
	"github.com/unclebandit/leadgen-backend/internal/service"
)

// Unsubscriber is satisfied by *service.CampaignService.
type Unsubscriber interface {
	Unsubscribe(ctx context.Context, recipientID int64) error
}

// UnsubscribeHandler serves the link placed in every campaign email footer.
type UnsubscribeHandler struct {
	Campaigns Unsubscriber
	Links     service.UnsubscribeLinks
}

var unsubscribePage = template.Must(template.New("unsubscribe").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.Title}}</title></head>
<body style="font-family: Arial, sans-serif; text-align: center; padding: 40px;">
  <h1>{{.Title}}</h1>
  <p>{{.Message}}</p>
</body>
</html>
`))

type unsubscribeView struct {
	Title   string
	Message string
}

func (h *UnsubscribeHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("recipient")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		h.render(w, http.StatusBadRequest, unsubscribeView{"Invalid link", "This unsubscribe link is not valid."})
		return
	}
	if !h.Links.Verify(id, r.URL.Query().Get("token")) {
		logrus.WithField("recipient_id", id).Warn("unsubscribe token rejected")
		h.render(w, http.StatusForbidden, unsubscribeView{"Invalid link", "This unsubscribe link is not valid."})
		return
	}

	err = h.Campaigns.Unsubscribe(r.Context(), id)
	switch {
	case err == nil, appErrors.IsInvalidInput(err):
		// A recipient that already finished gets no more mail either way.
		h.render(w, http.StatusOK, unsubscribeView{"Unsubscribed", "You will not receive any further emails from this campaign."})
	case appErrors.IsNotFound(err):
		h.render(w, http.StatusNotFound, unsubscribeView{"Link expired", "We could not find this subscription."})
	default:
		logrus.WithError(err).WithField("recipient_id", id).Error("unsubscribe failed")
		h.render(w, http.StatusInternalServerError, unsubscribeView{"Something went wrong", "Please try again later."})
	}
}

func (h *UnsubscribeHandler) render(w http.ResponseWriter, status int, v unsubscribeView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := unsubscribePage.Execute(w, v); err != nil {
		logrus.WithError(err).Warn("failed to render unsubscribe page")
	}
}
