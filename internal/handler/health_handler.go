package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Pinger is satisfied by *db.DB.
type Pinger interface {
	Health(ctx context.Context) error
}

type HealthHandler struct {
	DB Pinger
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) DBHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.Health(r.Context()); err != nil {
		logrus.WithError(err).Warn("database health check failed")
		writeStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": "down"})
		return
	}
	writeStatus(w, http.StatusOK, map[string]string{"status": "ok", "database": "up"})
}

func writeStatus(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
