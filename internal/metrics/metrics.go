// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric exported by the service.
const Namespace = "frame_finder"

var (
	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "api_requests_total",
			Help:      "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "api_request_duration_seconds",
			Help:      "API request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Attribute extraction
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "extractions_total",
			Help:      "Face attribute extractions by provider and outcome (success, cached, fallback, error)",
		},
		[]string{"provider", "outcome"},
	)

	ExtractionAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "extraction_attempts_total",
			Help:      "Individual provider calls made while extracting attributes",
		},
		[]string{"provider"},
	)

	ExtractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "extraction_duration_seconds",
			Help:      "End-to-end extraction latency including retries",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
		},
		[]string{"provider"},
	)

	// Circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "circuit_breaker_state_transitions_total",
			Help:      "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Analysis cache
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "analysis_cache_requests_total",
			Help:      "Analysis cache lookups by backend and result (hit, miss, error)",
		},
		[]string{"backend", "result"},
	)

	// Matching
	MatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "match_duration_seconds",
			Help:      "Time spent scoring and ranking a catalog snapshot",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
	)

	MatchCatalogSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "match_catalog_size",
			Help:      "Number of frames in the most recent catalog snapshot",
		},
	)

	MatchResultsEmpty = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "match_results_empty_total",
			Help:      "Match calls that returned no frames",
		},
	)

	// Database
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Duration of database queries in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "db_query_errors_total",
			Help:      "Total number of database query errors",
		},
		[]string{"backend", "operation"},
	)

	// Try-on jobs
	TryOnJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "tryon_jobs_total",
			Help:      "Try-on jobs by final status",
		},
		[]string{"status"},
	)

	TryOnJobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "tryon_jobs_active",
			Help:      "Try-on jobs currently running",
		},
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordExtraction records the outcome of one extraction call.
func RecordExtraction(provider, outcome string, duration time.Duration) {
	ExtractionsTotal.WithLabelValues(provider, outcome).Inc()
	ExtractionDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordDBQuery records a database query metric.
func RecordDBQuery(backend, operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(backend, operation).Inc()
	}
}

// RecordMatch records one scoring pass over n frames.
func RecordMatch(n, returned int, duration time.Duration) {
	MatchDuration.Observe(duration.Seconds())
	MatchCatalogSize.Set(float64(n))
	if returned == 0 {
		MatchResultsEmpty.Inc()
	}
}

// RecordCacheLookup records an analysis cache lookup.
func RecordCacheLookup(backend, result string) {
	CacheRequests.WithLabelValues(backend, result).Inc()
}
