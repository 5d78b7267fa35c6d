// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

/*
Package api provides the HTTP REST API layer for glasirsync.

It exposes the sync engine's three operations plus a legacy read-only
profile view, with a standardized JSON response envelope, CORS and rate
limiting via Chi middleware, and error responses mapped from internal/apperr.

Endpoints:

  - POST /sync/initial              — bootstrap a new student session from cookies
  - POST /sync                      — sync selected weeks, header X-Access-Code
  - POST /session/refresh           — rotate an expiring session's cookies
  - GET  /profiles/{studentID}/weeks/{offset|all|current_forward} — legacy
        cookie-header-authenticated live read, no diffing or persistence
  - GET  /profiles/{studentID}/weeks/forward/{n} — same, current week plus
        the next n
  - GET  /health/live, /health/ready — liveness and readiness probes
  - GET  /debug/performance — per-endpoint latency percentiles, omitted
        when no performance monitor is configured

Usage example:

	db, _ := store.Open(&cfg.Database)
	fetcher := fetch.New(cfg.Fetch, cfg.Upstream.BaseURL, httpClient)
	engine := syncengine.New(db, fetcher, cfg.Upstream.TimetablePath, limiter, cfg.Testing.Mode)
	perf := middleware.NewPerformanceMonitor(1000)

	handler := api.NewHandler(engine, db, fetcher, cfg.Upstream.TimetablePath, perf, cfg.Testing.Mode)
	router := api.NewRouter(handler, api.NewChiMiddleware(api.DefaultChiMiddlewareConfig()))
	http.ListenAndServe(cfg.Server.Host+":"+strconv.Itoa(cfg.Server.Port), router)

See also:

  - internal/syncengine: the three sync operations this API surfaces,
        backed by internal/store
  - internal/apperr: the error taxonomy mapped to HTTP status here
  - internal/middleware: request-id, compression, Prometheus metrics, and
        per-endpoint performance monitoring
*/
package api
