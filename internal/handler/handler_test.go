package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	appErrors "github.com/unclebandit/leadgen-backend/internal/errors"
	"github.com/unclebandit/leadgen-backend/internal/handler"
	"github.com/unclebandit/leadgen-backend/internal/service"
)

type mockUnsubscriber struct {
	calls []int64
	err   error
}

func (m *mockUnsubscriber) Unsubscribe(_ context.Context, id int64) error {
	m.calls = append(m.calls, id)
	return m.err
}

func TestUnsubscribeHandler(t *testing.T) {
	links := service.UnsubscribeLinks{BaseURL: "https://app.test", SigningKey: "secret"}
	valid := "/unsubscribe?recipient=7&token=" + links.Token(7)

	tests := []struct {
		name      string
		url       string
		err       error
		want      int
		wantCalls int
		contains  string
	}{
		{"valid token", valid, nil, http.StatusOK, 1, "Unsubscribed"},
		{"already completed", valid, appErrors.NewInvalidInput("recipient", "completed"), http.StatusOK, 1, "Unsubscribed"},
		{"unknown recipient", valid, appErrors.NewNotFound("campaign recipient", 7), http.StatusNotFound, 1, "could not find"},
		{"store failure", valid, errors.New("db down"), http.StatusInternalServerError, 1, "try again"},
		{"wrong token", "/unsubscribe?recipient=7&token=" + links.Token(8), nil, http.StatusForbidden, 0, "not valid"},
		{"missing token", "/unsubscribe?recipient=7", nil, http.StatusForbidden, 0, "not valid"},
		{"bad recipient", "/unsubscribe?recipient=abc", nil, http.StatusBadRequest, 0, "not valid"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := &mockUnsubscriber{err: tc.err}
			h := &handler.UnsubscribeHandler{Campaigns: m, Links: links}

			w := httptest.NewRecorder()
			h.Unsubscribe(w, httptest.NewRequest(http.MethodGet, tc.url, nil))

			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
			if len(m.calls) != tc.wantCalls {
				t.Errorf("unsubscribe calls = %d, want %d", len(m.calls), tc.wantCalls)
			}
			if !strings.Contains(w.Body.String(), tc.contains) {
				t.Errorf("body %q does not contain %q", w.Body.String(), tc.contains)
			}
		})
	}
}

func TestUnsubscribeHandlerWithoutSigningKey(t *testing.T) {
	m := &mockUnsubscriber{}
	h := &handler.UnsubscribeHandler{Campaigns: m}

	w := httptest.NewRecorder()
	h.Unsubscribe(w, httptest.NewRequest(http.MethodGet, "/unsubscribe?recipient=3", nil))
	if w.Code != http.StatusOK || len(m.calls) != 1 || m.calls[0] != 3 {
		t.Errorf("status %d, calls %v", w.Code, m.calls)
	}
}

type mockPinger struct{ err error }

func (m mockPinger) Health(context.Context) error { return m.err }

func TestHealthHandlers(t *testing.T) {
	h := &handler.HealthHandler{DB: mockPinger{}}

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("health: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	h.DBHealth(w, httptest.NewRequest(http.MethodGet, "/health/db", nil))
	if w.Code != http.StatusOK {
		t.Errorf("db health: %d", w.Code)
	}

	h.DB = mockPinger{err: errors.New("connection refused")}
	w = httptest.NewRecorder()
	h.DBHealth(w, httptest.NewRequest(http.MethodGet, "/health/db", nil))
	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), "down") {
		t.Errorf("db down: %d %s", w.Code, w.Body.String())
	}
}
