// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

// Package htmlparse holds the stateless HTML scrapers that turn upstream
// pages into structured data: the session token, the teacher directory,
// homework notes, the week-navigation offsets, and the timetable grid
// itself. None of these functions perform I/O; they only ever read the
// html string they're given.
package htmlparse
