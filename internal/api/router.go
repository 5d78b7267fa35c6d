// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/glasirsync/glasirsync/internal/middleware"
)

// NewRouter builds the chi router for the entire sync API surface,
// wrapping every route with the shared middleware stack: request ID,
// Prometheus metrics, compression, then CORS and rate limiting from
// chiMW.
func NewRouter(h *Handler, chiMW *ChiMiddleware) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(asChiMiddleware(middleware.RequestID))
	r.Use(asChiMiddleware(middleware.PrometheusMetrics))
	r.Use(asChiMiddleware(middleware.Compression))
	r.Use(APISecurityHeaders())
	r.Use(chiMW.CORS())
	r.Use(chiMW.RateLimit())
	if h.perf != nil {
		r.Use(h.perf.Middleware)
	}

	r.Post("/sync/initial", h.InitialSync)
	r.With(chiMW.RateLimitSync()).Post("/sync", h.Sync)
	r.Post("/session/refresh", h.SessionRefresh)

	r.Get("/profiles/{studentID}/weeks/forward/{n}", h.ProfileWeekForward)
	r.Get("/profiles/{studentID}/weeks/{weekSel}", h.ProfileWeek)

	r.With(chiMW.RateLimitHealth()).Get("/health/live", h.HealthLive)
	r.With(chiMW.RateLimitHealth()).Get("/health/ready", h.HealthReady)

	if h.perf != nil {
		r.Get("/debug/performance", h.DebugPerformance)
	}

	return r
}

// asChiMiddleware adapts the package's http.HandlerFunc-based
// middleware to chi's func(http.Handler) http.Handler convention.
func asChiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}
