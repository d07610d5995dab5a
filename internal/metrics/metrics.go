package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TickDuration tracks how long a full scheduler pass takes
	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "campaign_scheduler_tick_duration_seconds",
			Help: "Duration of campaign scheduler ticks in seconds",
			Buckets: []float64{
				0.01,  // 10ms
				0.05,  // 50ms
				0.1,   // 100ms
				0.5,   // 500ms
				1.0,   // 1s
				5.0,   // 5s
				15.0,  // 15s
				30.0,  // 30s
				60.0,  // 1m
				120.0, // 2m
			},
		},
	)

	// DispatchTotal counts per-recipient dispatch outcomes
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_dispatch_total",
			Help: "Campaign step dispatches by channel and outcome",
		},
		[]string{"channel", "outcome"}, // outcome: sent, failed, skipped
	)

	// EmailSendDuration tracks latency of provider calls
	EmailSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "email_send_duration_seconds",
			Help:    "Duration of email provider calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"}, // success or failure
	)

	// QuotaRejections counts create operations blocked by plan limits
	QuotaRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usage_quota_rejections_total",
			Help: "Create operations rejected by plan usage limits",
		},
		[]string{"action"},
	)

	// EventDeliveries counts in-process event handler results
	EventDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_event_deliveries_total",
			Help: "In-process event deliveries by topic and result",
		},
		[]string{"topic", "result"}, // result: delivered, retried, dropped
	)
)

func RecordTick(seconds float64) {
	TickDuration.Observe(seconds)
}

func RecordDispatch(channel, outcome string) {
	DispatchTotal.WithLabelValues(channel, outcome).Inc()
}

func RecordEmailSend(status string, seconds float64) {
	EmailSendDuration.WithLabelValues(status).Observe(seconds)
}

func RecordQuotaRejection(action string) {
	QuotaRejections.WithLabelValues(action).Inc()
}

func RecordEventDelivery(topic, result string) {
	EventDeliveries.WithLabelValues(topic, result).Inc()
}
