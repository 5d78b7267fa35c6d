// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/glasirsync/glasirsync/internal/extractor"
	"github.com/glasirsync/glasirsync/internal/fetch"
	"github.com/glasirsync/glasirsync/internal/middleware"
	"github.com/glasirsync/glasirsync/internal/models"
	"github.com/glasirsync/glasirsync/internal/orchestrator"
	"github.com/glasirsync/glasirsync/internal/store"
	"github.com/glasirsync/glasirsync/internal/syncengine"
	"github.com/glasirsync/glasirsync/internal/validation"
)

// Handler holds everything the HTTP layer needs to serve the sync API:
// the engine for the three bearer-token operations, plus the store and
// a dedicated fetcher for the legacy cookie-authenticated read path,
// which bypasses persistence entirely.
type Handler struct {
	engine        *syncengine.Engine
	db            *store.DB
	fetcher       *fetch.Fetcher
	timetablePath string
	perf          *middleware.PerformanceMonitor
	debug         bool
}

// NewHandler constructs a Handler. debug gates the legacy live-read
// path's extractor's debug-HTML capture (see config.Testing.Mode).
func NewHandler(engine *syncengine.Engine, db *store.DB, fetcher *fetch.Fetcher, timetablePath string, perf *middleware.PerformanceMonitor, debug bool) *Handler {
	return &Handler{engine: engine, db: db, fetcher: fetcher, timetablePath: timetablePath, perf: perf, debug: debug}
}

type initialSyncRequest struct {
	StudentID string          `json:"student_id" validate:"required"`
	Cookies   []models.Cookie `json:"cookies" validate:"required,min=1,dive"`
}

// InitialSync handles POST /sync/initial.
func (h *Handler) InitialSync(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req initialSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("request body is not valid JSON")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	result, err := h.engine.InitialSync(r.Context(), req.StudentID, req.Cookies)
	if err != nil {
		rw.AppError(err)
		return
	}

	rw.Created(map[string]any{
		"access_code":  result.AccessCode,
		"initial_data": result.Weeks,
	})
}

type syncRequest struct {
	Offsets selectorBody `json:"offsets" validate:"required"`
}

// Sync handles POST /sync. The access code travels in the X-Access-Code
// header, never in the body, so it can't end up in request logs that
// capture bodies but redact headers inconsistently.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	accessCode := r.Header.Get(AccessCodeHeader)
	if accessCode == "" {
		rw.AppError(ErrAccessCodeRequired)
		return
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("request body is not valid JSON")
		return
	}

	result, err := h.engine.Sync(r.Context(), accessCode, req.Offsets.toSelector())
	if err != nil {
		rw.AppError(err)
		return
	}

	rw.Success(map[string]any{
		"diffs":     result.Diffs,
		"synced_at": result.SyncedAt,
	})
}

type sessionRefreshRequest struct {
	StudentID  string          `json:"student_id" validate:"required"`
	NewCookies []models.Cookie `json:"new_cookies" validate:"required,min=1,dive"`
}

// SessionRefresh handles POST /session/refresh.
func (h *Handler) SessionRefresh(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req sessionRefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("request body is not valid JSON")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	newCode, err := h.engine.SessionRefresh(r.Context(), req.StudentID, req.NewCookies)
	if err != nil {
		rw.AppError(err)
		return
	}

	rw.Success(map[string]any{"access_code": newCode})
}

// ProfileWeek handles the legacy GET /profiles/{studentID}/weeks/{weekSel}
// read path: cookie-header-authenticated (no access code, no stored
// session), same fetch-and-parse semantics as the sync endpoints but
// read straight from the upstream and never diffs or persists
// anything. weekSel is one of a numeric offset, "all", or
// "current_forward"; the three-segment "forward/{n}" form is handled
// by ProfileWeekForward.
func (h *Handler) ProfileWeek(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	weekSel := chi.URLParam(r, "weekSel")

	var sel orchestrator.Selector
	switch weekSel {
	case orchestrator.SymbolAll, orchestrator.SymbolCurrentForward:
		sel.Symbol = weekSel
	default:
		offset, err := strconv.Atoi(weekSel)
		if err != nil {
			NewResponseWriter(w, r).BadRequest("week selector must be an integer offset, \"all\", or \"current_forward\"")
			return
		}
		sel.Offsets = []int{offset}
	}

	h.serveProfileWeeks(w, r, studentID, sel, 0)
}

// ProfileWeekForward handles GET /profiles/{studentID}/weeks/forward/{n}:
// the current week and the next n weeks, live from the upstream.
func (h *Handler) ProfileWeekForward(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil || n < 0 {
		NewResponseWriter(w, r).BadRequest("forward count must be a non-negative integer")
		return
	}
	h.serveProfileWeeks(w, r, studentID, orchestrator.Selector{Symbol: orchestrator.SymbolCurrentForward}, n+1)
}

// serveProfileWeeks resolves cookies from the request, bootstraps an
// extractor, runs the orchestrator over sel, and writes up to limit
// weeks (0 means unlimited) sorted as the orchestrator already orders
// them.
func (h *Handler) serveProfileWeeks(w http.ResponseWriter, r *http.Request, studentID string, sel orchestrator.Selector, limit int) {
	rw := NewResponseWriter(w, r)

	cookies := parseCookieHeader(r.Header.Get("Cookie"))
	if len(cookies) == 0 {
		rw.Unauthorized("no cookies supplied")
		return
	}

	lname, offsets, err := extractor.Bootstrap(r.Context(), h.fetcher, h.timetablePath, cookies)
	if err != nil {
		rw.AppError(err)
		return
	}
	if sel.Symbol == "" && len(sel.Offsets) == 0 {
		sel.Offsets = offsets
	}

	ex := extractor.New(h.fetcher, lname, studentID, h.debug)
	teacherMap := h.engine.TeacherMap(r.Context(), ex)

	outcome := orchestrator.Run(r.Context(), ex, teacherMap, sel, nil)

	weeks := make([]models.TimetableData, 0, len(outcome.Successes))
	for _, res := range outcome.Successes {
		if limit > 0 && len(weeks) >= limit {
			break
		}
		weeks = append(weeks, res.Data)
	}
	rw.Success(weeks)
}

func parseCookieHeader(header string) []models.Cookie {
	req := &http.Request{Header: http.Header{"Cookie": {header}}}
	raw := req.Cookies()
	cookies := make([]models.Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, models.Cookie{Name: c.Name, Value: c.Value})
	}
	return cookies
}

// HealthLive always reports alive once the process is serving requests.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "alive"})
}

// HealthReady reports ready once the store responds to a trivial query.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if _, err := h.db.SessionByStudentID(ctx, readinessProbeStudentID); err != nil && err != store.ErrNotFound {
		rw.ServiceUnavailable("store is not reachable")
		return
	}
	rw.Success(map[string]string{"status": "ready"})
}

// readinessProbeStudentID never matches a real student; the lookup
// exists only to force a round trip to the store.
const readinessProbeStudentID = "__readiness_probe__"

// DebugPerformance reports per-endpoint latency statistics gathered by
// the performance middleware.
func (h *Handler) DebugPerformance(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.perf.GetStats())
}
