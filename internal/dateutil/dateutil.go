// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

// Package dateutil parses the handful of date spellings the upstream
// timetable uses and derives the ISO week/year the rest of the system
// keys state by.
package dateutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	periodDateFull    = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})`)
	periodDateShort   = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})$`)
	hyphenDate        = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})`)
	slashDateWithYear = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})-(\d{4})`)
	slashDateShort    = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})$`)
)

// ParseDate parses a date spelling in one of the formats the upstream
// uses (DD.MM.YYYY, DD.MM, YYYY-MM-DD, DD/MM, DD/MM-YYYY) and returns
// the equivalent calendar date. When the string omits a year (DD.MM,
// DD/MM) assumedYear is used instead. Returns false if nothing matched.
func ParseDate(s string, assumedYear int) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if m := periodDateFull.FindStringSubmatch(s); m != nil {
		return buildDate(m[3], m[2], m[1])
	}
	if m := hyphenDate.FindStringSubmatch(s); m != nil {
		return buildDate(m[1], m[2], m[3])
	}
	if m := slashDateWithYear.FindStringSubmatch(s); m != nil {
		return buildDate(m[3], m[2], m[1])
	}
	if m := periodDateShort.FindStringSubmatch(s); m != nil {
		return buildDate(strconv.Itoa(assumedYear), m[2], m[1])
	}
	if m := slashDateShort.FindStringSubmatch(s); m != nil {
		return buildDate(strconv.Itoa(assumedYear), m[2], m[1])
	}
	return time.Time{}, false
}

// ToISODate is a convenience wrapper returning the "YYYY-MM-DD" form,
// or "" if s does not parse.
func ToISODate(s string, assumedYear int) string {
	t, ok := ParseDate(s, assumedYear)
	if !ok {
		return ""
	}
	return t.Format("2006-01-02")
}

func buildDate(year, month, day string) (time.Time, bool) {
	y, err1 := strconv.Atoi(year)
	mo, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if mo < 1 || mo > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	return time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC), true
}

// ISOWeek returns the ISO 8601 week year and week number for t. A week
// spanning a year boundary takes its year/week from this calendar, not
// from t's Gregorian year.
func ISOWeek(t time.Time) (year, week int) {
	return t.ISOWeek()
}

// WeekKey formats the canonical per-student week identifier,
// "{ISO year}-W{ISO week, two-digit}".
func WeekKey(year, week int) string {
	return fmt.Sprintf("%d-W%02d", year, week)
}

// ParseTimeRange splits "HH:MM-HH:MM" into its start and end components.
// Returns ok=false if s doesn't contain exactly one '-'.
func ParseTimeRange(s string) (start, end string, ok bool) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

// FormatAcademicYear formats a 4-digit year code such as "2425" into
// "2024-2025". It returns the code unchanged if it isn't exactly 4
// digits, or if the second pair isn't exactly one greater than the
// first (the upstream is not guaranteed to encode consecutive years).
func FormatAcademicYear(code string) string {
	if len(code) != 4 {
		return code
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return code
		}
	}
	startSuffix, _ := strconv.Atoi(code[:2])
	endSuffix, _ := strconv.Atoi(code[2:])
	start := 2000 + startSuffix
	end := 2000 + endSuffix
	if end != start+1 {
		return code
	}
	return fmt.Sprintf("%d-%d", start, end)
}
