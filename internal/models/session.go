// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

package models

import "time"

// Cookie is one upstream session cookie. Replacing the legacy dynamic
// name/value map with a concrete record lets the service validate and
// serialize cookies without guessing at their shape; string cookie
// headers are only accepted at the API boundary and converted to this
// form immediately.
type Cookie struct {
	Name    string     `json:"name"`
	Value   string     `json:"value"`
	Domain  string     `json:"domain,omitempty"`
	Path    string     `json:"path,omitempty"`
	Expires *time.Time `json:"expires,omitempty"`
}

// UserSession is the persisted row backing one student's upstream
// cookie jar and the access code they use to authenticate with this
// service instead of re-entering upstream credentials every sync.
type UserSession struct {
	StudentID             string
	AccessCode            string
	AccessCodeGeneratedAt time.Time
	StudentName           string
	ClassName             string
	CookiesJSON           string // serialized models.Cookie slice
	CookiesUpdatedAt      time.Time
	CreatedAt             time.Time
	LastAccessedAt        time.Time
}

// WeeklyTimetableState is the last-synced snapshot for one
// (student, week) pair, used by the diff engine as the "before" side
// of a comparison.
type WeeklyTimetableState struct {
	ID            int64
	StudentID     string
	WeekKey       string
	WeekDataJSON  string // serialized TimetableData
	LastUpdatedAt time.Time
}

// TeacherCacheEntry maps a teacher's initials, as they appear on the
// timetable, to their full name.
type TeacherCacheEntry struct {
	Initials  string
	FullName  string
	CachedAt  time.Time
	ExpiresAt time.Time
}
