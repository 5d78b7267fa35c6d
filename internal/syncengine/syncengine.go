// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

// Package syncengine implements the three request-scoped operations that
// tie the extractor, orchestrator, diff engine, and store together:
// initial_sync, sync, and session_refresh.
package syncengine

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/glasirsync/glasirsync/internal/apperr"
	"github.com/glasirsync/glasirsync/internal/diff"
	"github.com/glasirsync/glasirsync/internal/extractor"
	"github.com/glasirsync/glasirsync/internal/fetch"
	"github.com/glasirsync/glasirsync/internal/logging"
	"github.com/glasirsync/glasirsync/internal/metrics"
	"github.com/glasirsync/glasirsync/internal/models"
	"github.com/glasirsync/glasirsync/internal/orchestrator"
	"github.com/glasirsync/glasirsync/internal/store"
	"github.com/glasirsync/glasirsync/internal/teachercache"
)

// CookieMaxAge is how old a session's stored cookies may be before sync
// refuses to use them and asks the client to refresh.
const CookieMaxAge = 24 * time.Hour

// accessCodeEntropyBytes yields >= 256 bits of entropy once base64-encoded.
const accessCodeEntropyBytes = 32

// Engine wires together everything a sync request needs: the shared
// HTTP client (one per process), the store, and the teacher cache. A
// fresh extractor is constructed per request, scoped to that session's
// lname.
type Engine struct {
	db            *store.DB
	teachers      *teachercache.Cache
	fetcher       *fetch.Fetcher
	timetablePath string
	limiter       *rate.Limiter
	debug         bool
}

// New constructs an Engine. limiter may be nil to leave week fetches
// unpaced; the orchestrator's fixed fan-out cap applies either way. debug gates every request-scoped
// extractor's debug-HTML capture (see config.Testing.Mode).
func New(db *store.DB, fetcher *fetch.Fetcher, timetablePath string, limiter *rate.Limiter, debug bool) *Engine {
	return &Engine{
		db:            db,
		teachers:      teachercache.New(db),
		fetcher:       fetcher,
		timetablePath: timetablePath,
		limiter:       limiter,
		debug:         debug,
	}
}

// InitialSyncResult is the outcome of a successful initial_sync call.
type InitialSyncResult struct {
	AccessCode string
	Weeks      []models.TimetableData
}

// InitialSync bootstraps a brand-new student session: validates cookies
// against the upstream, discovers and fetches every advertised week, and
// persists the session plus each week's snapshot in one transaction.
func (e *Engine) InitialSync(ctx context.Context, studentID string, cookies []models.Cookie) (*InitialSyncResult, error) {
	if _, err := e.db.SessionByStudentID(ctx, studentID); err == nil {
		return nil, apperr.New(apperr.AlreadyExists, fmt.Sprintf("a session already exists for student %s", studentID))
	} else if err != store.ErrNotFound {
		return nil, fmt.Errorf("failed to check for existing session: %w", err)
	}

	lname, offsets, err := extractor.Bootstrap(ctx, e.fetcher, e.timetablePath, cookies)
	if err != nil {
		return nil, err
	}

	ex := extractor.New(e.fetcher, lname, studentID, e.debug)
	teacherMap := e.resolveTeacherMap(ctx, ex)

	outcome := orchestrator.Run(ctx, ex, teacherMap, orchestrator.Selector{Offsets: offsets}, e.limiter)
	for _, f := range outcome.Failures {
		logging.Warn().
			Str("classifier", f.Classifier).
			Int("count", f.Count).
			Str("message", f.TruncatedMessage).
			Msg("initial sync: some weeks failed to fetch")
	}

	accessCode, err := generateAccessCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate access code: %w", err)
	}

	cookiesJSON, err := json.Marshal(cookies)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize cookies: %w", err)
	}

	var studentName, className string
	if len(outcome.Successes) > 0 {
		studentName = outcome.Successes[0].Data.StudentInfo.StudentName
		className = outcome.Successes[0].Data.StudentInfo.Class
	}

	now := time.Now()
	session := &models.UserSession{
		StudentID:             studentID,
		AccessCode:            accessCode,
		AccessCodeGeneratedAt: now,
		StudentName:           studentName,
		ClassName:             className,
		CookiesJSON:           string(cookiesJSON),
		CookiesUpdatedAt:      now,
		CreatedAt:             now,
		LastAccessedAt:        now,
	}

	err = e.db.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.UpsertSession(ctx, session); err != nil {
			return err
		}
		seenWeekKeys := make(map[string]bool)
		for _, r := range outcome.Successes {
			weekKey := r.Data.WeekInfo.WeekKey
			if seenWeekKeys[weekKey] {
				logging.Warn().Str("week_key", weekKey).Msg("duplicate week key produced by distinct offsets during initial sync, keeping first")
				continue
			}
			seenWeekKeys[weekKey] = true
			dataJSON, err := json.Marshal(r.Data)
			if err != nil {
				return fmt.Errorf("failed to serialize week %s: %w", weekKey, err)
			}
			if err := tx.UpsertWeeklyState(ctx, studentID, weekKey, string(dataJSON)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	weeks := make([]models.TimetableData, 0, len(outcome.Successes))
	for _, r := range outcome.Successes {
		weeks = append(weeks, r.Data)
	}
	return &InitialSyncResult{AccessCode: accessCode, Weeks: weeks}, nil
}

// FailedWeek describes a week offset whose fetch or parse failed during
// sync, keyed in SyncResult.Diffs alongside the successfully-diffed weeks
// so a client can distinguish a genuinely empty week from one that never
// produced data.
type FailedWeek struct {
	Classifier string `json:"classifier"`
	Message    string `json:"message"`
}

// SyncResult is the outcome of a successful sync call. Diffs maps a week
// key to either a diff.WeekDiff (success) or a FailedWeek (the offset
// could not be fetched or parsed); failed entries are keyed
// "UNKNOWN-{offset}" since no real week key could be derived.
type SyncResult struct {
	Diffs    map[string]any
	SyncedAt time.Time
}

// Sync re-fetches the selected weeks for an already-bootstrapped student
// and diffs each against its stored snapshot, upserting the new
// snapshot for every fetched week whether or not it changed.
func (e *Engine) Sync(ctx context.Context, accessCode string, sel orchestrator.Selector) (*SyncResult, error) {
	if accessCode == "" {
		return nil, apperr.New(apperr.Unauthenticated, "no access code supplied")
	}

	session, err := e.db.SessionByAccessCode(ctx, accessCode)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, apperr.New(apperr.Forbidden, "access code not recognized")
		}
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}

	if time.Since(session.CookiesUpdatedAt) > CookieMaxAge {
		return nil, apperr.New(apperr.CookiesExpired, "stored cookies are older than the freshness window, refresh the session first")
	}

	var cookies []models.Cookie
	if err := json.Unmarshal([]byte(session.CookiesJSON), &cookies); err != nil {
		return nil, fmt.Errorf("failed to deserialize stored cookies: %w", err)
	}

	lname, _, err := extractor.Bootstrap(ctx, e.fetcher, e.timetablePath, cookies)
	if err != nil {
		return nil, err
	}

	ex := extractor.New(e.fetcher, lname, session.StudentID, e.debug)
	teacherMap := e.resolveTeacherMap(ctx, ex)

	outcome := orchestrator.Run(ctx, ex, teacherMap, sel, e.limiter)

	diffs := make(map[string]any, len(outcome.Successes)+len(outcome.Failures))

	start := time.Now()
	err = e.db.WithTx(ctx, func(tx *store.Tx) error {
		for _, r := range outcome.Successes {
			weekKey := r.Data.WeekInfo.WeekKey
			var oldData *models.TimetableData
			stored, err := tx.WeeklyState(ctx, session.StudentID, weekKey)
			if err == nil {
				var parsed models.TimetableData
				if err := json.Unmarshal([]byte(stored.WeekDataJSON), &parsed); err == nil {
					oldData = &parsed
				}
			} else if err != store.ErrNotFound {
				return fmt.Errorf("failed to load stored week %s: %w", weekKey, err)
			}

			newData := r.Data
			weekDiff := diff.Compute(oldData, &newData)
			diffs[weekKey] = weekDiff

			dataJSON, err := json.Marshal(newData)
			if err != nil {
				return fmt.Errorf("failed to serialize week %s: %w", weekKey, err)
			}
			if err := tx.UpsertWeeklyState(ctx, session.StudentID, weekKey, string(dataJSON)); err != nil {
				return err
			}
		}
		return tx.TouchSessionAccess(ctx, session.StudentID)
	})
	if err != nil {
		return nil, err
	}

	for _, f := range outcome.Failures {
		for _, offset := range f.Offsets {
			diffs[fmt.Sprintf("UNKNOWN-%d", offset)] = FailedWeek{Classifier: f.Classifier, Message: f.TruncatedMessage}
		}
	}
	metrics.RecordSyncOperation("sync", session.StudentID, time.Since(start), len(outcome.Successes), nil)

	return &SyncResult{Diffs: diffs, SyncedAt: time.Now()}, nil
}

// SessionRefresh validates a fresh cookie jar and rotates the student's
// access code and stored cookies atomically.
func (e *Engine) SessionRefresh(ctx context.Context, studentID string, newCookies []models.Cookie) (string, error) {
	if _, _, err := extractor.Bootstrap(ctx, e.fetcher, e.timetablePath, newCookies); err != nil {
		return "", apperr.New(apperr.AuthFailed, "upstream rejected the refreshed cookies")
	}

	if _, err := e.db.SessionByStudentID(ctx, studentID); err != nil {
		if err == store.ErrNotFound {
			return "", apperr.New(apperr.NotFound, fmt.Sprintf("no session exists for student %s", studentID))
		}
		return "", fmt.Errorf("failed to look up session: %w", err)
	}

	newAccessCode, err := generateAccessCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate access code: %w", err)
	}

	cookiesJSON, err := json.Marshal(newCookies)
	if err != nil {
		return "", fmt.Errorf("failed to serialize cookies: %w", err)
	}

	err = e.db.WithTx(ctx, func(tx *store.Tx) error {
		return tx.RotateSessionCredentials(ctx, studentID, newAccessCode, string(cookiesJSON))
	})
	if err != nil {
		return "", err
	}

	return newAccessCode, nil
}

// TeacherMap exposes resolveTeacherMap for the legacy live-read API
// path, which builds its own request-scoped extractor outside of
// InitialSync and Sync but still wants the durable cache's benefit.
func (e *Engine) TeacherMap(ctx context.Context, ex *extractor.Extractor) map[string]string {
	return e.resolveTeacherMap(ctx, ex)
}

// resolveTeacherMap serves the durable teacher cache first, falling
// back to a live upstream scrape through ex only on a cold or expired
// cache, and then writing the scraped result back through so the next
// request's cache read is warm again.
func (e *Engine) resolveTeacherMap(ctx context.Context, ex *extractor.Extractor) map[string]string {
	cached, err := e.teachers.Get(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("teacher cache read failed, falling back to live scrape")
	} else if len(cached) > 0 {
		return cached
	}

	scraped := ex.TeacherMap(ctx)
	if len(scraped) == 0 {
		return scraped
	}
	if err := e.teachers.Replace(ctx, scraped); err != nil {
		logging.Warn().Err(err).Msg("failed to refresh durable teacher cache")
	}
	return scraped
}

// generateAccessCode produces an opaque, URL-safe token with at least
// 256 bits of entropy. google/uuid is deliberately not used here: a v4
// UUID carries only 122 bits, short of the entropy this token requires.
func generateAccessCode() (string, error) {
	buf := make([]byte, accessCodeEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
