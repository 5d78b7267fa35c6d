// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

package api

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/glasirsync/glasirsync/internal/config"
	"github.com/glasirsync/glasirsync/internal/fetch"
	"github.com/glasirsync/glasirsync/internal/middleware"
	"github.com/glasirsync/glasirsync/internal/store"
	"github.com/glasirsync/glasirsync/internal/syncengine"
)

const emptyWeekPage = `<html><body>
<td>Næmingatímatalva hjá Jane Student, 22y</td>
Vika 17, 20.04.2026 - 26.04.2026
ongi skeið
</body></html>`

func upstreamServer(t *testing.T, cookieOK bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			if !cookieOK {
				w.WriteHeader(http.StatusFound)
				return
			}
			_, _ = w.Write([]byte(`<html><body>
<a href="/x?lname=tok123,rest">reload</a>
</body></html>`))
			return
		}
		if strings.Contains(r.URL.Path, "udvalg.asp") {
			_, _ = w.Write([]byte(emptyWeekPage))
			return
		}
		_, _ = w.Write([]byte(`<html><body></body></html>`))
	}))
}

func newTestHandler(t *testing.T, cookieOK bool) (*Handler, *httptest.Server) {
	t.Helper()
	upstream := upstreamServer(t, cookieOK)
	t.Cleanup(upstream.Close)

	db, err := store.Open(&config.Database{Path: filepath.Join(t.TempDir(), "test.duckdb")})
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	fetchCfg := config.Fetch{
		Timeout:             2 * time.Second,
		MaxRetries:          2,
		BackoffBase:         time.Millisecond,
		MaxConcurrentWeeks:  4,
		BreakerMinRequests:  100,
		BreakerFailureRatio: 0.99,
		BreakerOpenTimeout:  time.Second,
	}
	f := fetch.New(fetchCfg, upstream.URL, upstream.Client())
	engine := syncengine.New(db, f, "/132n/", nil, false)
	perf := middleware.NewPerformanceMonitor(100)

	return NewHandler(engine, db, f, "/132n/", perf, false), upstream
}

func TestInitialSyncHandlerCreatesSession(t *testing.T) {
	h, _ := newTestHandler(t, true)
	router := NewRouter(h, NewChiMiddleware(DefaultChiMiddlewareConfig()))

	body := `{"student_id":"student-1","cookies":[{"name":"a","value":"b"}]}`
	req := httptest.NewRequest(http.MethodPost, "/sync/initial", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
	}
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success {
		t.Errorf("expected success response, got %+v", resp)
	}
}

func TestInitialSyncHandlerRejectsInvalidBody(t *testing.T) {
	h, _ := newTestHandler(t, true)
	router := NewRouter(h, NewChiMiddleware(DefaultChiMiddlewareConfig()))

	req := httptest.NewRequest(http.MethodPost, "/sync/initial", strings.NewReader(`not json`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestInitialSyncHandlerRejectsMissingFields(t *testing.T) {
	h, _ := newTestHandler(t, true)
	router := NewRouter(h, NewChiMiddleware(DefaultChiMiddlewareConfig()))

	req := httptest.NewRequest(http.MethodPost, "/sync/initial", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSyncHandlerRequiresAccessCodeHeader(t *testing.T) {
	h, _ := newTestHandler(t, true)
	router := NewRouter(h, NewChiMiddleware(DefaultChiMiddlewareConfig()))

	req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader(`{"offsets":"all"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("got status %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestSyncHandlerRejectsUnknownAccessCode(t *testing.T) {
	h, _ := newTestHandler(t, true)
	router := NewRouter(h, NewChiMiddleware(DefaultChiMiddlewareConfig()))

	req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader(`{"offsets":"all"}`))
	req.Header.Set(AccessCodeHeader, "not-a-real-code")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("got status %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestSessionRefreshHandlerRejectsUnknownStudent(t *testing.T) {
	h, _ := newTestHandler(t, true)
	router := NewRouter(h, NewChiMiddleware(DefaultChiMiddlewareConfig()))

	body := `{"student_id":"ghost","new_cookies":[{"name":"a","value":"b"}]}`
	req := httptest.NewRequest(http.MethodPost, "/session/refresh", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("got status %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestProfileWeekHandlerRequiresCookies(t *testing.T) {
	h, _ := newTestHandler(t, true)
	router := NewRouter(h, NewChiMiddleware(DefaultChiMiddlewareConfig()))

	req := httptest.NewRequest(http.MethodGet, "/profiles/student-1/weeks/0", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("got status %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestProfileWeekHandlerLiveRead(t *testing.T) {
	h, _ := newTestHandler(t, true)
	router := NewRouter(h, NewChiMiddleware(DefaultChiMiddlewareConfig()))

	req := httptest.NewRequest(http.MethodGet, "/profiles/student-1/weeks/0", nil)
	req.Header.Set("Cookie", "a=b")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestProfileWeekHandlerRejectsBadSelector(t *testing.T) {
	h, _ := newTestHandler(t, true)
	router := NewRouter(h, NewChiMiddleware(DefaultChiMiddlewareConfig()))

	req := httptest.NewRequest(http.MethodGet, "/profiles/student-1/weeks/not-a-number", nil)
	req.Header.Set("Cookie", "a=b")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHealthEndpoints(t *testing.T) {
	h, _ := newTestHandler(t, true)
	router := NewRouter(h, NewChiMiddleware(DefaultChiMiddlewareConfig()))

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: got status %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}
