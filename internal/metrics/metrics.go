// Package metrics exposes Prometheus instrumentation for the experiment
// engine: counter-protocol traffic, evaluation outcomes, and sweep sizes.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Counter Update Protocol
	CounterIncrementsTotal *prometheus.CounterVec
	CounterNotFoundTotal   *prometheus.CounterVec
	CounterInconsistent    prometheus.Counter

	// Significance / winner evaluation
	EvaluationsTotal    *prometheus.CounterVec
	TestsCompletedTotal prometheus.Counter

	// Lifecycle sweeps
	TestsArchivedTotal      prometheus.Counter
	BouncedSendsPurgedTotal prometheus.Counter

	// API metrics
	APIRequestsTotal          *prometheus.CounterVec
	APIRequestDurationSeconds *prometheus.HistogramVec

	// Engagement sync
	EngagementEventsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a Metrics instance with all metrics registered on a fresh
// registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		CounterIncrementsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outboundlab_counter_increments_total",
				Help: "Total variant counter increments applied",
			},
			[]string{"counter"},
		),
		CounterNotFoundTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outboundlab_counter_not_found_total",
				Help: "Counter increments against unknown variant ids",
			},
			[]string{"counter"},
		),
		CounterInconsistent: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "outboundlab_counter_inconsistency_total",
				Help: "Reply increments rejected for breaking positive_replies <= replies",
			},
		),
		EvaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outboundlab_evaluations_total",
				Help: "Significance evaluations by outcome",
			},
			[]string{"outcome"},
		),
		TestsCompletedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "outboundlab_tests_completed_total",
				Help: "Tests completed with a declared winner",
			},
		),
		TestsArchivedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "outboundlab_tests_archived_total",
				Help: "Completed tests moved to archived by the sweep",
			},
		),
		BouncedSendsPurgedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "outboundlab_bounced_sends_purged_total",
				Help: "Bounced send rows removed by the purge sweep",
			},
		),
		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outboundlab_api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		APIRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "outboundlab_api_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		EngagementEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "outboundlab_engagement_events_total",
				Help: "Engagement events pulled from the sending platform, by type and result",
			},
			[]string{"event", "result"},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.CounterIncrementsTotal,
		m.CounterNotFoundTotal,
		m.CounterInconsistent,
		m.EvaluationsTotal,
		m.TestsCompletedTotal,
		m.TestsArchivedTotal,
		m.BouncedSendsPurgedTotal,
		m.APIRequestsTotal,
		m.APIRequestDurationSeconds,
		m.EngagementEventsTotal,
	)

	return m
}

// Registry returns the Prometheus registry backing this instance.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetGlobal sets the global metrics instance.
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the global metrics instance, or nil before SetGlobal.
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// IncCounterIncrement records a successfully applied variant increment.
func IncCounterIncrement(counter string) {
	if m := Global(); m != nil {
		m.CounterIncrementsTotal.WithLabelValues(counter).Inc()
	}
}

// IncCounterNotFound records an increment against an unknown variant.
func IncCounterNotFound(counter string) {
	if m := Global(); m != nil {
		m.CounterNotFoundTotal.WithLabelValues(counter).Inc()
	}
}

// IncCounterInconsistency records a rejected reply increment.
func IncCounterInconsistency() {
	if m := Global(); m != nil {
		m.CounterInconsistent.Inc()
	}
}

// IncEvaluation records one significance evaluation outcome
// ("ineligible", "not_significant", "significant").
func IncEvaluation(outcome string) {
	if m := Global(); m != nil {
		m.EvaluationsTotal.WithLabelValues(outcome).Inc()
	}
}

// IncTestCompleted records a winner declaration.
func IncTestCompleted() {
	if m := Global(); m != nil {
		m.TestsCompletedTotal.Inc()
	}
}

// AddTestsArchived records the size of an archive sweep batch.
func AddTestsArchived(n int64) {
	if m := Global(); m != nil {
		m.TestsArchivedTotal.Add(float64(n))
	}
}

// AddBouncedSendsPurged records the size of a purge sweep batch.
func AddBouncedSendsPurged(n int64) {
	if m := Global(); m != nil {
		m.BouncedSendsPurgedTotal.Add(float64(n))
	}
}

// IncEngagementEvent records one pulled platform event and how it resolved
// ("applied", "duplicate", "unmatched", "error").
func IncEngagementEvent(event, result string) {
	if m := Global(); m != nil {
		m.EngagementEventsTotal.WithLabelValues(event, result).Inc()
	}
}
