// Package metrics holds the Prometheus collectors of both processes.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeNoop    = "noop"
)

// Metrics owns a private registry so tests and multiple servers in one
// process do not collide on registration
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	ledgerMutations     *prometheus.CounterVec
	activitiesPublished *prometheus.CounterVec
	activitiesRecorded  *prometheus.CounterVec
}

// New creates and registers every collector, including the Go runtime and
// process collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"handler", "method"},
		),
		ledgerMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_mutations_total",
				Help: "Total number of ledger mutations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		activitiesPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_activities_published_total",
				Help: "Total number of outbox activities published to the stream",
			},
			[]string{"outcome"},
		),
		activitiesRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_activities_recorded_total",
				Help: "Total number of stream activities recorded in the activity store",
			},
			[]string{"outcome"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.ledgerMutations,
		m.activitiesPublished,
		m.activitiesRecorded,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveHTTPRequest(handler, method string, status int, elapsed time.Duration) {
	m.httpRequestsTotal.WithLabelValues(handler, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(handler, method).Observe(elapsed.Seconds())
}

func (m *Metrics) LedgerMutation(operation, outcome string) {
	m.ledgerMutations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ActivityPublished(outcome string) {
	m.activitiesPublished.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ActivityRecorded(outcome string) {
	m.activitiesRecorded.WithLabelValues(outcome).Inc()
}
