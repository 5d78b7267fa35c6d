// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

// Package store provides the embedded persistence layer for glasirsync.
//
// # Overview
//
// The package wraps a DuckDB connection (via database/sql and the
// CGO-based github.com/duckdb/duckdb-go/v2 driver) and exposes three
// tables:
//
//   - user_sessions: one row per student, keyed by student_id, holding
//     the access code and the upstream session cookies used to
//     re-authenticate against the scraped school-scheduling site.
//   - weekly_timetable_states: the last-synced TimetableData JSON blob
//     per (student_id, week_key), used by the diff engine to compute
//     what changed since the previous sync.
//   - teacher_cache: the initials -> full name lookup table scraped
//     from the upstream site's teacher directory, each row trusted for
//     TeacherCacheTTL (24 hours) before it is re-fetched.
//
// # Architecture
//
//   - store.go: connection lifecycle (Open, Close, Ping) and pool tuning
//   - schema.go: table creation and index management
//   - migrations.go: versioned schema_migrations tracking for future changes
//   - connection.go: connection-error and transaction-conflict detection
//   - errors.go: resource-cleanup helpers
//   - sessions.go, timetables.go, teachers.go: per-table data access
//
// # Usage
//
//	db, err := store.Open(cfg)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.UpsertSession(ctx, session); err != nil {
//	    return err
//	}
//
// # Concurrency
//
// All exported methods are safe for concurrent use; the underlying
// *sql.DB manages its own connection pool.
package store
