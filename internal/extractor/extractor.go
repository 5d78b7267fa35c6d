// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

// Package extractor is the session-scoped façade combining a fetcher
// and the HTML parsers into the three upstream operations the sync
// engine needs: the teacher directory, a week's grid, and a lesson's
// homework note.
package extractor

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/glasirsync/glasirsync/internal/apperr"
	"github.com/glasirsync/glasirsync/internal/cache"
	"github.com/glasirsync/glasirsync/internal/fetch"
	"github.com/glasirsync/glasirsync/internal/htmlparse"
	"github.com/glasirsync/glasirsync/internal/logging"
	"github.com/glasirsync/glasirsync/internal/models"
)

const henryFname = "Henry"

const teacherMapCacheKey = "teacher-map"

// debugHTMLDir is where raw upstream responses are dumped when an
// Extractor is constructed with debug enabled.
const debugHTMLDir = "debug_html"

// Extractor is constructed once per sync request with the session's
// lname and talks to the upstream via fetcher. It memoizes its own
// teacher-map lookup for the lifetime of the request; it never reaches
// the durable, cross-request teacher cache itself (see teachercache).
type Extractor struct {
	fetcher   *fetch.Fetcher
	lname     string
	studentID string
	debug     bool
	memo      cache.Cacher
}

// New constructs an Extractor bound to one sync request.
func New(fetcher *fetch.Fetcher, lname, studentID string, debug bool) *Extractor {
	return &Extractor{
		fetcher:   fetcher,
		lname:     lname,
		studentID: studentID,
		debug:     debug,
		memo:      cache.NewTTL(5 * time.Minute),
	}
}

func timerParam() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// saveDebugHTML dumps a raw upstream response body to debug_html/ for
// later inspection. Only called when the Extractor was constructed with
// debug enabled; save failures are logged and otherwise ignored, since
// this is a diagnostic aid, not part of the sync path.
func (e *Extractor) saveDebugHTML(kind string, status int, body string) {
	if !e.debug {
		return
	}
	if err := os.MkdirAll(debugHTMLDir, 0o755); err != nil {
		logging.Warn().Err(err).Msg("failed to create debug HTML directory")
		return
	}
	filename := filepath.Join(debugHTMLDir, fmt.Sprintf("%s_%s_%d.html", kind, time.Now().Format("20060102_150405"), status))
	if err := os.WriteFile(filename, []byte(body), 0o644); err != nil {
		logging.Warn().Err(err).Str("file", filename).Msg("failed to save debug HTML")
		return
	}
	logging.Info().Str("file", filename).Msg("saved debug HTML")
}

// TeacherMap fetches and parses the teacher directory. Per-request
// results are memoized; upstream or parse failure yields an empty map
// rather than an error, since the caller can still produce events with
// initials standing in for full names.
func (e *Extractor) TeacherMap(ctx context.Context) map[string]string {
	if cached, ok := e.memo.Get(teacherMapCacheKey); ok {
		return cached.(map[string]string)
	}

	form := url.Values{
		"fname": {henryFname},
		"lname": {e.lname},
		"timer": {timerParam()},
	}
	result, err := e.fetcher.PostForm(ctx, "/i/teachers.asp", form)
	if err != nil {
		return map[string]string{}
	}
	e.saveDebugHTML("teachers", result.StatusCode, result.Body)
	if result.StatusCode != 200 {
		return map[string]string{}
	}

	parsed := htmlparse.ParseTeacherMap(result.Body)
	if !parsed.IsSuccess() {
		return map[string]string{}
	}
	e.memo.Set(teacherMapCacheKey, parsed.Data)
	return parsed.Data
}

// WeekHTML fetches the raw grid page for offset. Redirect-range
// statuses come back unerrored in the Result; the caller is expected to
// notice it isn't a 200 and treat the session as no longer authenticated.
func (e *Extractor) WeekHTML(ctx context.Context, offset int) (*fetch.Result, error) {
	form := url.Values{
		"fname": {henryFname},
		"q":     {"stude"},
		"v":     {strconv.Itoa(offset)},
		"lname": {e.lname},
		"timex": {timerParam()},
		"id":    {e.studentID},
	}
	result, err := e.fetcher.PostForm(ctx, "/i/udvalg.asp", form)
	if err == nil {
		e.saveDebugHTML(fmt.Sprintf("week_%d", offset), result.StatusCode, result.Body)
	}
	return result, err
}

// Homework fetches a single lesson's note page and returns its
// lesson_id -> text map (per ParseHomework), or an empty map on any
// upstream or parse failure; callers treat this as a warning, not fatal.
func (e *Extractor) Homework(ctx context.Context, lessonID string) map[string]string {
	form := url.Values{
		"fname":      {henryFname},
		"q":          {lessonID},
		"MyFunktion": {"ReadNotesToLessonWithLessonRID"},
		"lname":      {e.lname},
		"timer":      {timerParam()},
	}
	result, err := e.fetcher.PostForm(ctx, "/i/note.asp", form)
	if err != nil {
		return map[string]string{}
	}
	e.saveDebugHTML("homework_"+lessonID, result.StatusCode, result.Body)
	if result.StatusCode != 200 {
		return map[string]string{}
	}
	parsed := htmlparse.ParseHomework(result.Body)
	if !parsed.IsSuccess() {
		return map[string]string{}
	}
	return parsed.Data
}

// Bootstrap validates cookies against the upstream timetable page and
// extracts the lname session token from it, returning the available
// week offsets advertised by that page's navigation. It is the entry
// point for initial_sync and the cookie-validation step of session_refresh.
func Bootstrap(ctx context.Context, fetcher *fetch.Fetcher, timetablePath string, cookies []models.Cookie) (lname string, offsets []int, err error) {
	cookieHeader := EncodeCookieHeader(cookies)
	result, err := fetcher.GetNoRedirectWithCookie(ctx, timetablePath, cookieHeader)
	if err != nil {
		return "", nil, apperr.Wrap(apperr.UpstreamTransport, "failed to reach upstream during bootstrap", err)
	}
	if result.StatusCode != 200 {
		return "", nil, apperr.New(apperr.AuthFailed, fmt.Sprintf("upstream rejected cookies with status %d", result.StatusCode))
	}

	token, ok := htmlparse.ParseSessionToken(result.Body)
	if !ok {
		return "", nil, apperr.New(apperr.UpstreamProtocolError, "could not locate lname in bootstrap page")
	}

	offsetResult := htmlparse.ParseWeekOffsets(result.Body)
	if !offsetResult.IsSuccess() {
		offsetResult = htmlparse.Ok[[]int](nil)
	}
	return token, offsetResult.Data, nil
}

// EncodeCookieHeader renders cookies as a single "name=value; name2=value2" header.
func EncodeCookieHeader(cookies []models.Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}
