package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the lifecycle core.
type Metrics struct {
	TransitionsTotal *prometheus.CounterVec
	ConflictsTotal   prometheus.Counter
	AuditAppends     prometheus.Counter
	ConsentCaptures  prometheus.Counter
	RequestDuration  *prometheus.HistogramVec
	StatsCacheHits   prometheus.Counter
	StatsCacheMisses prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		TransitionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "loancore_transitions_total",
			Help: "Committed application transitions by action and target status",
		}, []string{"action", "to_status"}),
		ConflictsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loancore_transition_conflicts_total",
			Help: "Transitions rejected by the optimistic-concurrency guard",
		}),
		AuditAppends: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loancore_audit_appends_total",
			Help: "Entries appended to the audit ledger",
		}),
		ConsentCaptures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loancore_consent_captures_total",
			Help: "Consent records captured and fingerprinted",
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "loancore_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		StatsCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loancore_stats_cache_hits_total",
			Help: "Statistics served from the snapshot cache",
		}),
		StatsCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loancore_stats_cache_misses_total",
			Help: "Statistics recomputed after a cache miss or invalidation",
		}),
	}
}

// RecordTransition counts one committed transition.
func (m *Metrics) RecordTransition(action, toStatus string) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(action, toStatus).Inc()
}

// RecordConflict counts one optimistic-lock loss.
func (m *Metrics) RecordConflict() {
	if m == nil {
		return
	}
	m.ConflictsTotal.Inc()
}

// RecordAuditAppend counts one ledger append.
func (m *Metrics) RecordAuditAppend() {
	if m == nil {
		return
	}
	m.AuditAppends.Inc()
}

// RecordConsentCapture counts one fingerprinted consent.
func (m *Metrics) RecordConsentCapture() {
	if m == nil {
		return
	}
	m.ConsentCaptures.Inc()
}

// ObserveRequest records one HTTP request's latency.
func (m *Metrics) ObserveRequest(route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, status).Observe(d.Seconds())
}

// RecordStatsCacheHit counts a statistics cache hit.
func (m *Metrics) RecordStatsCacheHit() {
	if m == nil {
		return
	}
	m.StatsCacheHits.Inc()
}

// RecordStatsCacheMiss counts a statistics cache miss.
func (m *Metrics) RecordStatsCacheMiss() {
	if m == nil {
		return
	}
	m.StatsCacheMisses.Inc()
}
