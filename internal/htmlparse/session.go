// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

package htmlparse

import (
	"regexp"
	"strings"
)

// lnamePatterns are tried in order; the first to match wins. They mirror
// the handful of places the upstream actually embeds the session token:
// a query string, an inline xmlhttp.send call, a MyUpdate(...) call's
// final positional argument, and a hidden form field.
var lnamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`lname=([^&"'\s]+)`),
	regexp.MustCompile(`xmlhttp\.send\("[^"]*lname=([^&"'\s]+)"\)`),
	regexp.MustCompile(`MyUpdate\('[^']*','[^']*','[^']*',\d+,(\d+)\)`),
	regexp.MustCompile(`name=['"]lname['"]\s*value=['"]([^'"]+)['"]`),
}

// ParseSessionToken scans html for the upstream's lname session token,
// trying each known embedding in turn and returning the first match. If
// the captured token contains a comma, only the portion before the first
// comma is kept. Returns "", false if no pattern matched.
func ParseSessionToken(html string) (string, bool) {
	for _, pattern := range lnamePatterns {
		m := pattern.FindStringSubmatch(html)
		if m == nil {
			continue
		}
		token := m[1]
		if idx := strings.Index(token, ","); idx >= 0 {
			token = token[:idx]
		}
		return token, true
	}
	return "", false
}
