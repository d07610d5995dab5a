package alerting

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

// Reporter forwards unexpected failures to an error tracker.
type Reporter interface {
	Report(err error, tags map[string]string)
	Flush(timeout time.Duration)
}

// NewReporter returns a Sentry reporter for dsn, or a no-op reporter when dsn is empty.
func NewReporter(dsn, environment string) (Reporter, error) {
	if dsn == "" {
		return NopReporter{}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	})
	if err != nil {
		return nil, err
	}
	logrus.Info("Sentry initialized")
	return &SentryReporter{hub: sentry.CurrentHub()}, nil
}

type SentryReporter struct {
	hub *sentry.Hub
}

func (r *SentryReporter) Report(err error, tags map[string]string) {
	if err == nil {
		return
	}
	hub := r.hub.Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		hub.CaptureException(err)
	})
}

func (r *SentryReporter) Flush(timeout time.Duration) {
	r.hub.Flush(timeout)
}

type NopReporter struct{}

func (NopReporter) Report(error, map[string]string) {}
func (NopReporter) Flush(time.Duration)             {}
