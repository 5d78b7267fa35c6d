// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

package htmlparse

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	teacherWithLink = regexp.MustCompile(`([^<>]+?)\s*\(\s*<a[^>]*?>([A-Z]{2,4})</a>\s*\)`)
	teacherNoLink   = regexp.MustCompile(`([^<>]+?)\s*\(\s*([A-Z]{2,4})\s*\)`)
)

// ParseTeacherMap extracts the initials -> full name directory from the
// teacher listing page. It prefers a <select><option> listing and falls
// back to matching "Full Name (INIT)" text when no select is present.
func ParseTeacherMap(html string) Result[map[string]string] {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Failed[map[string]string]("teacher map: " + err.Error())
	}

	out := make(map[string]string)

	doc.Find("select option").Each(func(_ int, s *goquery.Selection) {
		initials, ok := s.Attr("value")
		if !ok || initials == "-1" || initials == "" {
			return
		}
		name := strings.TrimSpace(s.Text())
		if name == "" {
			return
		}
		out[initials] = name
	})
	if len(out) > 0 {
		return Ok(out)
	}

	raw := html
	for _, m := range teacherWithLink.FindAllStringSubmatch(raw, -1) {
		out[m[2]] = strings.TrimSpace(m[1])
	}
	if len(out) == 0 {
		for _, m := range teacherNoLink.FindAllStringSubmatch(raw, -1) {
			out[m[2]] = strings.TrimSpace(m[1])
		}
	}
	return Ok(out)
}
