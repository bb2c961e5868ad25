// Package metrics provides the Prometheus counters of the auth service and
// the handler that exposes them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Token verification results.
const (
	ResultValid   = "valid"
	ResultMissing = "missing"
	ResultExpired = "expired"
	ResultInvalid = "invalid"
)

// Metrics contains the custom metrics of the service.
type Metrics struct {
	AuthEvents         *prometheus.CounterVec
	TokenVerifications *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a registry with the Go and process collectors and registers
// the service metrics on it.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		AuthEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobtrack_auth_events_total",
				Help: "Total number of auth service operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		TokenVerifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobtrack_token_verifications_total",
				Help: "Total number of auth token verifications by result",
			},
			[]string{"result"},
		),
		registry: registry,
	}

	registry.MustRegister(m.AuthEvents)
	registry.MustRegister(m.TokenVerifications)

	return m
}

// Observe records the outcome of an auth service operation. Outcome is an
// error code such as "OK" or "INVALID_CREDENTIALS".
func (m *Metrics) Observe(operation, outcome string) {
	if m == nil {
		return
	}
	m.AuthEvents.WithLabelValues(operation, outcome).Inc()
}

// ObserveVerification records the result of a token verification.
func (m *Metrics) ObserveVerification(result string) {
	if m == nil {
		return
	}
	m.TokenVerifications.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
