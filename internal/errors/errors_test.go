package appErrors_test

import (
	"errors"
	"fmt"
	"testing"

	appErrors "github.com/unclebandit/leadgen-backend/internal/errors"
)

func TestErrorKindsSurviveWrapping(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"not found", appErrors.NewCampaignNotFound(7), appErrors.IsNotFound},
		{"configuration", appErrors.NewConfiguration("EMAIL_SENDGRID_API_KEY", ""), appErrors.IsConfiguration},
		{"delivery", appErrors.NewDeliveryFailure("timeout"), appErrors.IsDeliveryFailure},
		{"quota", appErrors.NewQuotaExceeded("lead", "too many", 10, 10), appErrors.IsQuotaExceeded},
		{"invalid", appErrors.NewInvalidInput("lead", "missing"), appErrors.IsInvalidInput},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tc.err)
			if !tc.check(wrapped) {
				t.Fatalf("expected wrapped error to match kind, got %v", wrapped)
			}
		})
	}
}

func TestQuotaExceededMessageIsReason(t *testing.T) {
	err := appErrors.NewQuotaExceeded("campaign", "Campaign limit exceeded.", 1, 1)
	if err.Error() != "Campaign limit exceeded." {
		t.Errorf("unexpected message %q", err.Error())
	}

	var q *appErrors.ErrQuotaExceeded
	if !errors.As(err, &q) || q.Limit != 1 {
		t.Errorf("expected quota error with limit 1, got %+v", q)
	}
}

func TestNotFoundMessage(t *testing.T) {
	err := appErrors.NewNotFound("lead", 42)
	if err.Error() != "lead with ID 42 not found" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if appErrors.IsNotFound(errors.New("lead with ID 42 not found")) {
		t.Error("plain errors must not match")
	}
}
