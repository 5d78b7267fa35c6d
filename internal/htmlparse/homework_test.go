// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

package htmlparse

import "testing"

func TestParseHomework(t *testing.T) {
	htmlStr := `<html><body>
<input type="hidden" id="LektionsID123" value="LES1">
<p><b>Heimaarbeiði</b><br>Read chapter <b>4</b> and solve <i>exercise 2</i>.</p>
</body></html>`
	result := ParseHomework(htmlStr)
	if !result.IsSuccess() {
		t.Fatalf("expected success, got %v", result.Outcome)
	}
	text, ok := result.Data["LES1"]
	if !ok {
		t.Fatalf("expected an entry for LES1, got %+v", result.Data)
	}
	want := "Read chapter **4** and solve *exercise 2*."
	if text != want {
		t.Errorf("homework text = %q, want %q", text, want)
	}
}

func TestParseHomeworkEmpty(t *testing.T) {
	htmlStr := `<html><body><p>no hidden field or header here</p></body></html>`
	result := ParseHomework(htmlStr)
	if !result.IsSuccess() {
		t.Fatalf("expected success, got %v", result.Outcome)
	}
	if len(result.Data) != 0 {
		t.Errorf("expected empty map, got %+v", result.Data)
	}
}
