package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records outcomes of the ingest pipeline.
type WebhookMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_ingest_duration_seconds",
		Help:    "Duration of webhook ingest requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"store"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_ingest_outcomes",
		Help: "Terminal outcomes of webhook ingest requests.",
	}, []string{"store", "outcome"})
	reg.MustRegister(duration, outcomes)
	return &WebhookMetrics{
		duration: duration,
		outcomes: outcomes,
	}
}

// ObserveDuration records the processing duration for one delivery.
func (m *WebhookMetrics) ObserveDuration(store string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(store)).Observe(duration.Seconds())
}

// IncOutcome increments the counter for the named terminal outcome.
func (m *WebhookMetrics) IncOutcome(store, outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(store), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
