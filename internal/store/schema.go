// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

/*
schema.go - Database Schema Management

Tables:
  - user_sessions: one row per student, keyed by student_id, holding the
    access code and upstream session cookies.
  - weekly_timetable_states: the last-synced TimetableData JSON blob per
    (student_id, week_key), unique on that pair.
  - teacher_cache: initials -> full name, with a 24-hour expiry.

All columns are defined in the initial CREATE TABLE statement; see
migrations.go for how later schema changes are layered on top.
*/

//nolint:staticcheck // File documentation, not package doc
package store

import (
	"context"
	"fmt"
	"time"
)

func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range db.getTableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) getTableCreationQueries() []string {
	return []string{
		`CREATE SEQUENCE IF NOT EXISTS weekly_timetable_states_id_seq;`,
		`CREATE TABLE IF NOT EXISTS user_sessions (
			student_id TEXT PRIMARY KEY,
			access_code TEXT UNIQUE NOT NULL,
			access_code_generated_at TIMESTAMPTZ NOT NULL,
			student_name TEXT,
			class_name TEXT,
			cookies_json TEXT NOT NULL,
			cookies_updated_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_accessed_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS weekly_timetable_states (
			id BIGINT PRIMARY KEY DEFAULT nextval('weekly_timetable_states_id_seq'),
			student_id TEXT NOT NULL REFERENCES user_sessions(student_id),
			week_key TEXT NOT NULL,
			week_data_json TEXT NOT NULL,
			last_updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (student_id, week_key)
		);`,
		`CREATE TABLE IF NOT EXISTS teacher_cache (
			initials TEXT PRIMARY KEY,
			full_name TEXT NOT NULL,
			cached_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			expires_at TIMESTAMPTZ NOT NULL
		);`,
	}
}

func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range db.getIndexQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) getIndexQueries() []string {
	return []string{
		`CREATE INDEX IF NOT EXISTS idx_user_sessions_access_code ON user_sessions(access_code);`,
		`CREATE INDEX IF NOT EXISTS idx_weekly_states_student ON weekly_timetable_states(student_id);`,
		`CREATE INDEX IF NOT EXISTS idx_weekly_states_week ON weekly_timetable_states(week_key);`,
		`CREATE INDEX IF NOT EXISTS idx_teacher_cache_expires ON teacher_cache(expires_at);`,
	}
}
