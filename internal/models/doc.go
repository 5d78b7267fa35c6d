// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

// Package models defines the data shapes exchanged between the
// extractor, the diff engine, the API, and the store.
//
// Event, WeekInfo, StudentInfo, and TimetableData mirror the JSON
// contract the original scraper exposed to its clients, so that
// existing consumers don't need to change their parsing. UserSession,
// WeeklyTimetableState, and TeacherCacheEntry are the corresponding
// persisted rows in the embedded store.
package models
