// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

/*
Package middleware provides HTTP middleware components for the application.

This package implements infrastructure middleware for compression, performance
monitoring, request ID tracking, and Prometheus metrics integration. These
components work alongside the CORS and rate-limiting middleware in internal/api
to create a complete middleware stack for HTTP request processing.

Key Components:

  - Compression: Gzip compression for clients that accept it
  - Performance Monitor: Request latency tracking with percentile calculations
  - Request ID: UUID-based request tracking for distributed tracing
  - Prometheus Metrics: HTTP request/response instrumentation

Middleware Stack:

The router in internal/api applies RequestID, then PrometheusMetrics, then
Compression, and after them the CORS and rate-limiting middleware from
internal/api/chi_middleware.go, before the business-logic handler.

Usage Example - Compression:

	import "github.com/glasirsync/glasirsync/internal/middleware"

	// Wrap handler with gzip compression
	http.HandleFunc("/api/v1/data",
	    middleware.Compression(handler),
	)

	// Responses are compressed whatever their size
	// Accept-Encoding: gzip header is required

Usage Example - Performance Monitoring:

	// Create performance monitor keeping the last 1000 requests
	perfMon := middleware.NewPerformanceMonitor(1000)

	// Wrap handler (an http.Handler)
	http.Handle("/api/v1/stats",
	    perfMon.Middleware(handler),
	)

	// Get per-endpoint performance statistics
	for _, s := range perfMon.GetStats() {
	    fmt.Printf("%s p50: %dms, p95: %dms, p99: %dms\n",
	        s.Path, s.P50Duration, s.P95Duration, s.P99Duration)
	}

Usage Example - Request ID:

	// Request ID middleware
	http.HandleFunc("/api/v1/logs",
	    middleware.RequestID(handler),
	)

	// Access request ID in handler
	func handler(w http.ResponseWriter, r *http.Request) {
	    requestID := r.Context().Value(middleware.RequestIDKey).(string)
	    log.Printf("[%s] Processing request", requestID)
	}

Performance Characteristics:

  - Compression: 70-90% size reduction for JSON (text/json mime types)
  - Compression overhead: ~1-2ms for typical responses
  - Metrics overhead: <0.1ms per request
  - Request ID overhead: <0.01ms (UUID generation)
  - Performance monitor: mutex-guarded sliding window of latency samples

Compression Details:

The compression middleware:
  - Compresses every response, whatever its size or mime type
  - Supports gzip encoding (Accept-Encoding: gzip)
  - Skips WebSocket upgrade requests
  - Automatically sets Content-Encoding header

Performance Monitor:

The performance monitor tracks:
  - Request count and error rate
  - Latency percentiles (p50, p95, p99)
  - Rolling window of the most recent requests (size set by NewPerformanceMonitor)
  - Thread-safe concurrent access with RWMutex

Thread Safety:

All middleware components are thread-safe:
  - Compression uses per-request gzip writers
  - Performance monitor uses sync.RWMutex
  - Request ID uses context.Context (immutable)
  - Prometheus metrics use atomic operations

See Also:

  - internal/api/chi_middleware.go: CORS and rate-limiting middleware
  - internal/api: HTTP handlers wrapped by middleware
  - internal/metrics: Prometheus metrics definitions
*/
package middleware
