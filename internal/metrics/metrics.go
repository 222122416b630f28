// Package metrics exposes Prometheus collectors for timer sessions,
// feedback delivery and HTTP requests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"resttimer/internal/domain"
	"resttimer/internal/feedback"
)

const namespace = "resttimer"

// Metrics groups the collectors. Create it once per registry.
type Metrics struct {
	SessionsCreated  *prometheus.CounterVec
	ActiveSessions   prometheus.Gauge
	Thresholds       prometheus.Counter
	Completions      *prometheus.CounterVec
	FeedbackFailures *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		SessionsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Timer sessions created, by variant.",
		}, []string{"variant"}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Timer sessions currently held in memory.",
		}),
		Thresholds: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "countdown_thresholds_total",
			Help:      "Last-seconds threshold events emitted.",
		}),
		Completions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Countdowns that completed after the settle delay, by variant.",
		}, []string{"variant"}),
		FeedbackFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_failures_total",
			Help:      "Dropped feedback device errors, by device.",
		}, []string{"device"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "code"}),
	}
}

// Gateway counts the events of a timer with the given variant.
func (m *Metrics) Gateway(variant domain.Variant) feedback.Gateway {
	completions := m.Completions.WithLabelValues(string(variant))
	return feedback.Funcs{
		Threshold:  func(int) { m.Thresholds.Inc() },
		Completion: completions.Inc,
	}
}

// FeedbackFailed is a feedback.WithFailureHook callback.
func (m *Metrics) FeedbackFailed(device string, _ error) {
	m.FeedbackFailures.WithLabelValues(device).Inc()
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, code string, d time.Duration) {
	m.RequestDuration.WithLabelValues(method, code).Observe(d.Seconds())
}
