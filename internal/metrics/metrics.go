// Package metrics exposes lifecycle counters in the Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	registry    *prometheus.Registry
	transitions *prometheus.CounterVec
	requests    *prometheus.CounterVec
}

// New registers the service collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prostock",
			Name:      "transitions_total",
			Help:      "Lifecycle operations by operation and result.",
		}, []string{"operation", "result"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prostock",
			Name:      "http_requests_total",
			Help:      "API requests by method and status code.",
		}, []string{"method", "code"}),
	}

	m.registry.MustRegister(
		m.transitions,
		m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Transition counts one lifecycle operation outcome.
func (m *Metrics) Transition(operation, result string) {
	m.transitions.WithLabelValues(operation, result).Inc()
}

// Request counts one served API request.
func (m *Metrics) Request(method, code string) {
	m.requests.WithLabelValues(method, code).Inc()
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
