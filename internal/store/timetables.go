// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/glasirsync/glasirsync/internal/models"
)

func upsertWeeklyState(ctx context.Context, c Conn, studentID, weekKey, weekDataJSON string) error {
	_, err := c.ExecContext(ctx, `
		INSERT INTO weekly_timetable_states (student_id, week_key, week_data_json, last_updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (student_id, week_key) DO UPDATE SET
			week_data_json = excluded.week_data_json,
			last_updated_at = CURRENT_TIMESTAMP
	`, studentID, weekKey, weekDataJSON)
	if err != nil {
		return fmt.Errorf("failed to upsert weekly state for %s/%s: %w", studentID, weekKey, err)
	}
	return nil
}

func weeklyState(ctx context.Context, c Conn, studentID, weekKey string) (*models.WeeklyTimetableState, error) {
	row := c.QueryRowContext(ctx, `
		SELECT id, student_id, week_key, week_data_json, last_updated_at
		FROM weekly_timetable_states WHERE student_id = ? AND week_key = ?
	`, studentID, weekKey)

	var s models.WeeklyTimetableState
	err := row.Scan(&s.ID, &s.StudentID, &s.WeekKey, &s.WeekDataJSON, &s.LastUpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan weekly state row: %w", err)
	}
	return &s, nil
}

func weeklyStatesForStudent(ctx context.Context, c Conn, studentID string) ([]string, error) {
	rows, err := c.QueryContext(ctx,
		`SELECT week_key FROM weekly_timetable_states WHERE student_id = ? ORDER BY week_key`,
		studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query weekly states for student %s: %w", studentID, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan week key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// UpsertWeeklyState stores the synced TimetableData JSON for a
// (student, week) pair, replacing whatever was there before. Callers
// should read the prior row with WeeklyState before calling this, so
// the diff engine can compare against it.
func (db *DB) UpsertWeeklyState(ctx context.Context, studentID, weekKey, weekDataJSON string) error {
	return upsertWeeklyState(ctx, db.conn, studentID, weekKey, weekDataJSON)
}

// WeeklyState returns the last-synced state for a (student, week) pair,
// or ErrNotFound if no sync has happened yet.
func (db *DB) WeeklyState(ctx context.Context, studentID, weekKey string) (*models.WeeklyTimetableState, error) {
	return weeklyState(ctx, db.conn, studentID, weekKey)
}

// WeeklyStatesForStudent returns every synced week key for a student,
// used to enumerate what can be diffed or served without a fresh fetch.
func (db *DB) WeeklyStatesForStudent(ctx context.Context, studentID string) ([]string, error) {
	return weeklyStatesForStudent(ctx, db.conn, studentID)
}

// UpsertWeeklyState is the transaction-scoped form of DB.UpsertWeeklyState.
func (tx *Tx) UpsertWeeklyState(ctx context.Context, studentID, weekKey, weekDataJSON string) error {
	return upsertWeeklyState(ctx, tx.tx, studentID, weekKey, weekDataJSON)
}

// WeeklyState is the transaction-scoped form of DB.WeeklyState.
func (tx *Tx) WeeklyState(ctx context.Context, studentID, weekKey string) (*models.WeeklyTimetableState, error) {
	return weeklyState(ctx, tx.tx, studentID, weekKey)
}
