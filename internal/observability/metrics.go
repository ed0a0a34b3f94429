package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/davidbz/switchboard/internal/domain"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Metrics exports provider attempt counters, latencies and spend to Prometheus.
type Metrics struct {
	registry *prometheus.Registry
	attempts *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	spend    *prometheus.CounterVec
}

// NewMetrics creates collectors on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "switchboard_provider_attempts_total",
				Help: "Total number of provider attempts by outcome",
			},
			[]string{"provider", "capability", "outcome"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "switchboard_provider_attempt_duration_milliseconds",
				Help:    "Provider attempt duration in milliseconds",
				Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000, 10000, 30000},
			},
			[]string{"provider", "capability"},
		),
		spend: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "switchboard_provider_cost_usd_total",
				Help: "Total USD spent on successful provider attempts",
			},
			[]string{"provider", "capability"},
		),
	}

	m.registry.MustRegister(m.attempts, m.latency, m.spend)

	return m
}

// ObserveAttempt records one provider attempt.
func (m *Metrics) ObserveAttempt(
	providerID string,
	capability domain.Capability,
	success bool,
	elapsed time.Duration,
	cost float64,
) {
	outcome := outcomeFailure
	if success {
		outcome = outcomeSuccess
	}

	m.attempts.WithLabelValues(providerID, string(capability), outcome).Inc()
	m.latency.WithLabelValues(providerID, string(capability)).Observe(float64(elapsed.Milliseconds()))

	if success && cost > 0 {
		m.spend.WithLabelValues(providerID, string(capability)).Add(cost)
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
