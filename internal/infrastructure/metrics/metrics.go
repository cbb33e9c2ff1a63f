// Package metrics exposes Prometheus instrumentation for the decision engine.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abroad-hub/counsellor/internal/domain/shared"
)

const namespace = "counsellor"

// Metrics groups every collector the service registers.
type Metrics struct {
	registry *prometheus.Registry

	GateDecisions      *prometheus.CounterVec
	LedgerOperations   *prometheus.CounterVec
	TxRetries          prometheus.Counter
	UniversitiesScored prometheus.Counter
	RecommendDuration  prometheus.Histogram
	CacheLookups       *prometheus.CounterVec
	EventsPublished    *prometheus.CounterVec
	EventHandlerRuns   *prometheus.HistogramVec
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry, plus the Go and process
// collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		GateDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Action gate decisions by stage, intent and outcome.",
		}, []string{"stage", "intent", "outcome"}),

		LedgerOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_operations_total",
			Help:      "Ledger transactions by operation and outcome.",
		}, []string{"operation", "outcome"}),

		TxRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_tx_retries_total",
			Help:      "Ledger transactions retried after a serialization failure or deadlock.",
		}),

		UniversitiesScored: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "universities_scored_total",
			Help:      "Universities scored for recommendations.",
		}),

		RecommendDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommend_duration_seconds",
			Help:      "Time to score and bucket the catalog for one request.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by cache name and result.",
		}, []string{"cache", "result"}),

		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Domain events published by type.",
		}, []string{"event_type"}),

		EventHandlerRuns: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_handler_duration_seconds",
			Help:      "Event handler run time by event type and outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type", "outcome"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),

		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ══════════════════════════════════════════════════════════════════════════════
// RECORDERS
// ══════════════════════════════════════════════════════════════════════════════

// GateDecision records one action gate outcome.
func (m *Metrics) GateDecision(stage, intent string, allowed bool) {
	outcome := "blocked"
	if allowed {
		outcome = "allowed"
	}
	m.GateDecisions.WithLabelValues(stage, intent, outcome).Inc()
}

// LedgerOperation records the outcome of a ledger transaction.
func (m *Metrics) LedgerOperation(operation string, err error) {
	m.LedgerOperations.WithLabelValues(operation, Outcome(err)).Inc()
}

// LedgerRetry counts one retried transaction attempt.
func (m *Metrics) LedgerRetry() {
	m.TxRetries.Inc()
}

// Recommended records one recommendation run.
func (m *Metrics) Recommended(scored int, d time.Duration) {
	m.UniversitiesScored.Add(float64(scored))
	m.RecommendDuration.Observe(d.Seconds())
}

// CacheLookup records a cache hit or miss.
func (m *Metrics) CacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(cache, result).Inc()
}

// EventPublished implements messaging.Recorder.
func (m *Metrics) EventPublished(eventType shared.EventType) {
	m.EventsPublished.WithLabelValues(string(eventType)).Inc()
}

// HandlerExecuted implements messaging.Recorder.
func (m *Metrics) HandlerExecuted(eventType shared.EventType, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.EventHandlerRuns.WithLabelValues(string(eventType), outcome).Observe(d.Seconds())
}

// HTTPRequest records one served request.
func (m *Metrics) HTTPRequest(method, route string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Outcome maps an error to a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case shared.IsNotFound(err):
		return "not_found"
	case shared.IsPreconditionFailed(err):
		return "precondition_failed"
	case shared.IsAlreadyExists(err):
		return "already_exists"
	case shared.IsInvariantViolation(err):
		return "invariant_violation"
	case shared.IsAmbiguousConfirmation(err):
		return "ambiguous_confirmation"
	case errors.Is(err, shared.ErrTimeout):
		return "timeout"
	default:
		return "error"
	}
}
