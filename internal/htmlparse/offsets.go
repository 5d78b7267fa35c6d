// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

package htmlparse

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var weekOffsetPattern = regexp.MustCompile(`v=(-?\d+)`)

// ParseWeekOffsets returns every distinct week offset advertised by the
// week-navigation anchors (<a onclick="...v=N...">), sorted ascending. A
// page with no navigation anchors yields a successful empty result.
func ParseWeekOffsets(htmlStr string) Result[[]int] {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return Failed[[]int]("week offsets: " + err.Error())
	}

	seen := make(map[int]struct{})
	doc.Find(`a[onclick*="v="]`).Each(func(_ int, s *goquery.Selection) {
		onclick, ok := s.Attr("onclick")
		if !ok {
			return
		}
		for _, m := range weekOffsetPattern.FindAllStringSubmatch(onclick, -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			seen[n] = struct{}{}
		}
	})

	offsets := make([]int, 0, len(seen))
	for n := range seen {
		offsets = append(offsets, n)
	}
	sort.Ints(offsets)
	return Ok(offsets)
}
