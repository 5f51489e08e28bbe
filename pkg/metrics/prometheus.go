// Package metrics provides Prometheus metrics for the devquest ingestion service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh outcome labels recorded on the refreshes counter.
const (
	OutcomeSuccess   = "success"
	OutcomeCacheHit  = "cache_hit"
	OutcomeTransient = "transient"
	OutcomePermanent = "permanent"
)

// Manager manages all Prometheus metrics for the ingestion service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Refresh pipeline metrics
	refreshes        *prometheus.CounterVec
	refreshLatency   prometheus.Histogram
	coalescedWaiters prometheus.Counter
	inFlightSize     prometheus.Gauge

	// Cache metrics
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	cacheInvalidations prometheus.Counter
	cacheErrors        prometheus.Counter

	// Upstream client metrics
	upstreamAttempts prometheus.Counter
	upstreamRetries  prometheus.Counter
	upstreamFailures *prometheus.CounterVec
	upstreamLatency  prometheus.Histogram

	// Persistence sink metrics
	sinkUpserts prometheus.Counter
	sinkErrors  prometheus.Counter

	// Scheduler metrics
	sweepDuration prometheus.Histogram
	trackedUsers  prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "devquest",
		subsystem:        "ingest",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.refreshes = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "refreshes_total",
			Help:      "Total number of completed refresh tasks by reason and outcome",
		},
		[]string{"reason", "outcome"},
	)

	m.refreshLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refresh_latency_milliseconds",
		Help:      "Histogram of end-to-end refresh task latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.coalescedWaiters = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "coalesced_waiters_total",
		Help:      "Total number of refresh callers attached to an already in-flight task",
	})

	m.inFlightSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "in_flight_tasks",
		Help:      "Current number of in-flight refresh tasks",
	})

	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_hits_total",
		Help:      "Total number of cache reads returning a fresh record",
	})

	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_misses_total",
		Help:      "Total number of cache reads returning absent or expired",
	})

	m.cacheInvalidations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_invalidations_total",
		Help:      "Total number of explicit cache invalidations",
	})

	m.cacheErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_errors_total",
		Help:      "Total number of cache store failures (degraded to miss)",
	})

	m.upstreamAttempts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "upstream_attempts_total",
		Help:      "Total number of upstream API calls attempted",
	})

	m.upstreamRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "upstream_retries_total",
		Help:      "Total number of upstream retries after a transient failure",
	})

	m.upstreamFailures = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "upstream_failures_total",
			Help:      "Total number of upstream failures by kind",
		},
		[]string{"kind"},
	)

	m.upstreamLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "upstream_latency_milliseconds",
		Help:      "Histogram of upstream request latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.sinkUpserts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sink_upserts_total",
		Help:      "Total number of records upserted into durable storage",
	})

	m.sinkErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sink_errors_total",
		Help:      "Total number of durable storage failures",
	})

	m.sweepDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sweep_duration_milliseconds",
		Help:      "Histogram of scheduler sweep duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.trackedUsers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tracked_users",
		Help:      "Number of users covered by the scheduled sweep",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// Package-level helpers operating on the global manager.

// RecordRefresh counts a completed refresh task.
func RecordRefresh(reason, outcome string) {
	globalManager.refreshes.WithLabelValues(reason, outcome).Inc()
}

// RecordRefreshLatency records end-to-end refresh latency.
func RecordRefreshLatency(latencyMs float64) {
	globalManager.refreshLatency.Observe(latencyMs)
}

// RecordCoalescedWaiter counts a caller that joined an in-flight task.
func RecordCoalescedWaiter() {
	globalManager.coalescedWaiters.Inc()
}

// UpdateInFlight sets the current in-flight task gauge.
func UpdateInFlight(n int) {
	globalManager.inFlightSize.Set(float64(n))
}

// RecordCacheHit counts a fresh cache read.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordCacheMiss counts an absent or expired cache read.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// RecordCacheInvalidation counts an explicit invalidation.
func RecordCacheInvalidation() {
	globalManager.cacheInvalidations.Inc()
}

// RecordCacheError counts a cache store failure.
func RecordCacheError() {
	globalManager.cacheErrors.Inc()
}

// RecordUpstreamAttempt counts one upstream API call.
func RecordUpstreamAttempt() {
	globalManager.upstreamAttempts.Inc()
}

// RecordUpstreamRetry counts a retry after a transient failure.
func RecordUpstreamRetry() {
	globalManager.upstreamRetries.Inc()
}

// RecordUpstreamFailure counts an upstream failure by kind ("transient"/"permanent").
func RecordUpstreamFailure(kind string) {
	globalManager.upstreamFailures.WithLabelValues(kind).Inc()
}

// RecordUpstreamLatency records upstream request latency.
func RecordUpstreamLatency(latencyMs float64) {
	globalManager.upstreamLatency.Observe(latencyMs)
}

// RecordSinkUpsert counts a durable upsert.
func RecordSinkUpsert() {
	globalManager.sinkUpserts.Inc()
}

// RecordSinkError counts a durable storage failure.
func RecordSinkError() {
	globalManager.sinkErrors.Inc()
}

// RecordSweepDuration records the duration of one scheduler sweep.
func RecordSweepDuration(durationMs float64) {
	globalManager.sweepDuration.Observe(durationMs)
}

// UpdateTrackedUsers sets the tracked-user gauge.
func UpdateTrackedUsers(n int) {
	globalManager.trackedUsers.Set(float64(n))
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the custom registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
