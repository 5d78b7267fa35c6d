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
	"strings"
	"time"
)

// TeacherCacheTTL is how long a scraped teacher initials -> full name
// mapping is trusted before it needs re-fetching.
const TeacherCacheTTL = 24 * time.Hour

// UpsertTeacher records or refreshes a teacher's initials -> full name mapping.
func (db *DB) UpsertTeacher(ctx context.Context, initials, fullName string) error {
	now := time.Now()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO teacher_cache (initials, full_name, cached_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (initials) DO UPDATE SET
			full_name = excluded.full_name,
			cached_at = excluded.cached_at,
			expires_at = excluded.expires_at
	`, initials, fullName, now, now.Add(TeacherCacheTTL))
	if err != nil {
		return fmt.Errorf("failed to upsert teacher cache entry %q: %w", initials, err)
	}
	return nil
}

// TeacherFullName returns the cached full name for a teacher's
// initials, or ErrNotFound if absent or expired.
func (db *DB) TeacherFullName(ctx context.Context, initials string) (string, error) {
	var fullName string
	var expiresAt time.Time
	err := db.conn.QueryRowContext(ctx,
		`SELECT full_name, expires_at FROM teacher_cache WHERE initials = ?`,
		initials,
	).Scan(&fullName, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query teacher cache entry %q: %w", initials, err)
	}
	if time.Now().After(expiresAt) {
		return "", ErrNotFound
	}
	return fullName, nil
}

// AllTeachers returns every non-expired teacher_cache row as
// initials -> full name, the read side of the read-through cache.
func (db *DB) AllTeachers(ctx context.Context) (map[string]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT initials, full_name FROM teacher_cache WHERE expires_at > CURRENT_TIMESTAMP`)
	if err != nil {
		return nil, fmt.Errorf("failed to query teacher cache: %w", err)
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var initials, fullName string
		if err := rows.Scan(&initials, &fullName); err != nil {
			return nil, fmt.Errorf("failed to scan teacher cache row: %w", err)
		}
		result[initials] = fullName
	}
	return result, rows.Err()
}

// ReplaceTeachers atomically replaces the teacher_cache rows for the
// initials present in teacherMap: deletes any existing rows for those
// initials, then inserts fresh ones with a new TeacherCacheTTL expiry.
// Runs in its own transaction so the delete+insert pair is never
// observed half-done by a concurrent reader.
func (db *DB) ReplaceTeachers(ctx context.Context, teacherMap map[string]string) error {
	if len(teacherMap) == 0 {
		return nil
	}
	return db.WithTx(ctx, func(tx *Tx) error {
		return tx.ReplaceTeachers(ctx, teacherMap)
	})
}

// ReplaceTeachers is the transaction-scoped form of DB.ReplaceTeachers,
// for callers that are already inside a WithTx block.
func (tx *Tx) ReplaceTeachers(ctx context.Context, teacherMap map[string]string) error {
	if len(teacherMap) == 0 {
		return nil
	}

	initials := make([]string, 0, len(teacherMap))
	for k := range teacherMap {
		initials = append(initials, k)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(initials)), ",")
	args := make([]any, len(initials))
	for i, v := range initials {
		args[i] = v
	}
	deleteQuery := fmt.Sprintf(`DELETE FROM teacher_cache WHERE initials IN (%s)`, placeholders)
	if _, err := tx.tx.ExecContext(ctx, deleteQuery, args...); err != nil {
		return fmt.Errorf("failed to clear stale teacher cache rows: %w", err)
	}

	now := time.Now()
	expiresAt := now.Add(TeacherCacheTTL)
	for _, init := range initials {
		_, err := tx.tx.ExecContext(ctx, `
			INSERT INTO teacher_cache (initials, full_name, cached_at, expires_at)
			VALUES (?, ?, ?, ?)
		`, init, teacherMap[init], now, expiresAt)
		if err != nil {
			return fmt.Errorf("failed to insert teacher cache entry %q: %w", init, err)
		}
	}
	return nil
}
