// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

package weekpipeline

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glasirsync/glasirsync/internal/config"
	"github.com/glasirsync/glasirsync/internal/extractor"
	"github.com/glasirsync/glasirsync/internal/fetch"
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

const gridWithHomeworkLesson = `<html><body>
<td>Næmingatímatalva hjá Jane Student, 22y</td>
Vika 17, 20.04.2026 - 26.04.2026
<table class="time_8_16">
<tr><td class="lektionslinje_1">Mánadagur 20/4</td></tr>
<tr>
<td></td>
<td class="lektionslinje_lesson6" colspan="9">
<a>evf-A-22</a><a>JD</a><a>st. 401</a>
<input type="hidden" id="LektionsID12345" value="12345"/>
<span id="MyWindow12345Main">x</span>
<input type="image" src="note.gif"/>
</td>
</tr>
</table>
</body></html>`

func TestRunMergesHomeworkIntoMatchingEvent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "note.asp") {
			_, _ = w.Write([]byte(`<html><body>
<input type="hidden" id="LektionsID12345" value="12345"/>
<b>Heimaarbeiði</b><p>Read <b>chapter 4</b>.</p>
</body></html>`))
			return
		}
		_, _ = w.Write([]byte(gridWithHomeworkLesson))
	}))
	defer server.Close()

	f := fetch.New(testConfig(), server.URL, server.Client())
	ex := extractor.New(f, "session-token", "9999", false)

	result := Run(t.Context(), ex, 0, map[string]string{"JD": "John Doe"})
	if result.Outcome != SuccessWithData {
		t.Fatalf("outcome = %v, want SuccessWithData (message=%q)", result.Outcome, result.Message)
	}
	if len(result.Data.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(result.Data.Events))
	}
	ev := result.Data.Events[0]
	if !strings.Contains(ev.Description, "chapter") {
		t.Errorf("homework text not merged into description: %q", ev.Description)
	}
	if result.Data.WeekInfo.Offset != 0 {
		t.Errorf("offset = %d, want 0", result.Data.WeekInfo.Offset)
	}
}

func TestRunReturnsFetchFailedOnRedirect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	}))
	defer server.Close()

	f := fetch.New(testConfig(), server.URL, server.Client())
	ex := extractor.New(f, "session-token", "9999", false)

	result := Run(t.Context(), ex, 0, nil)
	if result.Outcome != FetchFailed {
		t.Fatalf("outcome = %v, want FetchFailed", result.Outcome)
	}
	if result.Classifier != "redirected_to_login" {
		t.Errorf("classifier = %q, want redirected_to_login", result.Classifier)
	}
}

func TestRunReturnsSuccessNoDataForEmptyWeek(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
<td>Næmingatímatalva hjá Jane Student, 22y</td>
Vika 18, 27.04.2026 - 03.05.2026
ongi skeið
</body></html>`))
	}))
	defer server.Close()

	f := fetch.New(testConfig(), server.URL, server.Client())
	ex := extractor.New(f, "session-token", "9999", false)

	result := Run(t.Context(), ex, 1, nil)
	if result.Outcome != SuccessNoData {
		t.Fatalf("outcome = %v, want SuccessNoData (message=%q)", result.Outcome, result.Message)
	}
	if len(result.Data.Events) != 0 {
		t.Errorf("expected zero events, got %d", len(result.Data.Events))
	}
}
