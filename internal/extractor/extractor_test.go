// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

package extractor

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glasirsync/glasirsync/internal/config"
	"github.com/glasirsync/glasirsync/internal/fetch"
	"github.com/glasirsync/glasirsync/internal/models"
)

func testConfig() config.Fetch {
	return config.Fetch{
		Timeout:             2 * time.Second,
		MaxRetries:          2,
		BackoffBase:         time.Millisecond,
		MaxConcurrentWeeks:  4,
		BreakerMinRequests:  100,
		BreakerFailureRatio: 0.99,
		BreakerOpenTimeout:  time.Second,
	}
}

const teacherDirectoryHTML = `<html><body>
<select name="Lærari">
<option value="-1">Vel lærara</option>
<option value="JD">John Doe</option>
</select>
</body></html>`

func TestTeacherMapMemoizesAcrossCalls(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(teacherDirectoryHTML))
	}))
	defer server.Close()

	f := fetch.New(testConfig(), server.URL, server.Client())
	e := New(f, "session-token", "1234", false)

	first := e.TeacherMap(t.Context())
	second := e.TeacherMap(t.Context())

	if first["JD"] != "John Doe" {
		t.Fatalf("unexpected teacher map: %v", first)
	}
	if len(second) != len(first) {
		t.Fatalf("second call returned different map: %v", second)
	}
	if calls != 1 {
		t.Errorf("expected upstream to be hit once due to memoization, got %d calls", calls)
	}
}

func TestTeacherMapReturnsEmptyOnUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	f := fetch.New(testConfig(), server.URL, server.Client())
	e := New(f, "session-token", "1234", false)

	result := e.TeacherMap(t.Context())
	if len(result) != 0 {
		t.Errorf("expected empty map on upstream failure, got %v", result)
	}
}

func TestBootstrapExtractsSessionTokenAndOffsets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie := r.Header.Get("Cookie")
		if cookie == "" {
			t.Errorf("expected a Cookie header on bootstrap request")
		}
		_, _ = w.Write([]byte(`<html><body>
<a href="/i/udvalg.asp?lname=ABC123,ignored">reload</a>
<a onclick="go(v=0)">this week</a>
<a onclick="go(v=1)">next week</a>
</body></html>`))
	}))
	defer server.Close()

	f := fetch.New(testConfig(), server.URL, server.Client())
	cookies := []models.Cookie{{Name: "ASP.NET_SessionId", Value: "abc"}}

	lname, offsets, err := Bootstrap(t.Context(), f, "/132n/", cookies)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lname != "ABC123" {
		t.Errorf("lname = %q, want ABC123", lname)
	}
	if len(offsets) != 2 {
		t.Errorf("offsets = %v, want 2 entries", offsets)
	}
}

func TestBootstrapRejectsNonAuthenticatedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	}))
	defer server.Close()

	f := fetch.New(testConfig(), server.URL, server.Client())
	_, _, err := Bootstrap(t.Context(), f, "/132n/", []models.Cookie{{Name: "a", Value: "b"}})
	if err == nil {
		t.Fatal("expected an error when upstream redirects instead of serving the timetable")
	}
}

func TestEncodeCookieHeader(t *testing.T) {
	header := EncodeCookieHeader([]models.Cookie{
		{Name: "a", Value: "1"},
		{Name: "b", Value: "2"},
	})
	if header != "a=1; b=2" {
		t.Errorf("header = %q, want %q", header, "a=1; b=2")
	}
}
