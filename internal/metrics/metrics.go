// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

// Package metrics provides Prometheus instrumentation for the timetable
// sync service: upstream fetch behavior, parsing outcomes, sync operations,
// and the API surface.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Upstream Fetch Metrics
	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_requests_total",
			Help: "Total number of upstream HTTP requests, by outcome",
		},
		[]string{"endpoint", "outcome"}, // outcome: "success", "http_error", "transport_error", "redirected_to_login"
	)

	FetchRetryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_retry_total",
			Help: "Total number of retried upstream HTTP requests",
		},
		[]string{"endpoint"},
	)

	FetchRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fetch_request_duration_seconds",
			Help:    "Duration of upstream HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Parser Metrics
	ParseOutcomeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parse_outcome_total",
			Help: "Total number of HTML parses, by parser and outcome",
		},
		[]string{"parser", "outcome"}, // outcome: "success", "structure_error", "parse_failed", "degraded"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Sync Operation Metrics
	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Duration of sync operations in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
		[]string{"operation"}, // "initial_sync", "sync", "session_refresh"
	)

	SyncWeeksProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_weeks_processed_total",
			Help: "Total number of weeks fetched and processed across all syncs",
		},
	)

	SyncWeekFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_week_failures_total",
			Help: "Total number of week fetches that failed during orchestration",
		},
		[]string{"classifier"},
	)

	SyncErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_errors_total",
			Help: "Total number of sync errors",
		},
		[]string{"error_type"}, // the failing operation: "initial_sync", "sync", "session_refresh"
	)

	SyncLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sync_last_success_timestamp",
			Help: "Unix timestamp of last successful sync, by student",
		},
		[]string{"student_id"},
	)

	// Teacher-map Cache Metrics
	TeacherCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "teacher_cache_hits_total",
			Help: "Total number of teacher-map cache hits",
		},
	)

	TeacherCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "teacher_cache_misses_total",
			Help: "Total number of teacher-map cache misses (refresh required)",
		},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)
)

// RecordAPIRequest records a completed API request's outcome and duration.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the active request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordFetch records the outcome of a single upstream HTTP request.
func RecordFetch(endpoint, outcome string, duration time.Duration) {
	FetchRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	FetchRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordFetchRetry records one retry attempt for an upstream endpoint.
func RecordFetchRetry(endpoint string) {
	FetchRetryTotal.WithLabelValues(endpoint).Inc()
}

// RecordParseOutcome records the outcome of an HTML parse.
func RecordParseOutcome(parser, outcome string) {
	ParseOutcomeTotal.WithLabelValues(parser, outcome).Inc()
}

// RecordDBQuery records a database query's duration and whether it errored.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordSyncOperation records a completed sync operation.
func RecordSyncOperation(operation, studentID string, duration time.Duration, weeksProcessed int, err error) {
	SyncDuration.WithLabelValues(operation).Observe(duration.Seconds())
	SyncWeeksProcessed.Add(float64(weeksProcessed))
	if err != nil {
		SyncErrors.WithLabelValues(operation).Inc()
		return
	}
	SyncLastSuccess.WithLabelValues(studentID).Set(float64(time.Now().Unix()))
}
