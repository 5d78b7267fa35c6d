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

// ErrNotFound is returned when a lookup finds no matching row.
var ErrNotFound = errors.New("store: not found")

func upsertSession(ctx context.Context, c Conn, s *models.UserSession) error {
	_, err := c.ExecContext(ctx, `
		INSERT INTO user_sessions (
			student_id, access_code, access_code_generated_at, student_name,
			class_name, cookies_json, cookies_updated_at, created_at, last_accessed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (student_id) DO UPDATE SET
			access_code = excluded.access_code,
			access_code_generated_at = excluded.access_code_generated_at,
			student_name = excluded.student_name,
			class_name = excluded.class_name,
			cookies_json = excluded.cookies_json,
			cookies_updated_at = excluded.cookies_updated_at,
			last_accessed_at = excluded.last_accessed_at
	`,
		s.StudentID, s.AccessCode, s.AccessCodeGeneratedAt, s.StudentName,
		s.ClassName, s.CookiesJSON, s.CookiesUpdatedAt, s.CreatedAt, s.LastAccessedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert session for student %s: %w", s.StudentID, err)
	}
	return nil
}

func sessionByAccessCode(ctx context.Context, c Conn, accessCode string) (*models.UserSession, error) {
	row := c.QueryRowContext(ctx, `
		SELECT student_id, access_code, access_code_generated_at, student_name,
			class_name, cookies_json, cookies_updated_at, created_at, last_accessed_at
		FROM user_sessions WHERE access_code = ?
	`, accessCode)
	return scanSession(row)
}

func sessionByStudentID(ctx context.Context, c Conn, studentID string) (*models.UserSession, error) {
	row := c.QueryRowContext(ctx, `
		SELECT student_id, access_code, access_code_generated_at, student_name,
			class_name, cookies_json, cookies_updated_at, created_at, last_accessed_at
		FROM user_sessions WHERE student_id = ?
	`, studentID)
	return scanSession(row)
}

func touchSessionAccess(ctx context.Context, c Conn, studentID string) error {
	_, err := c.ExecContext(ctx,
		`UPDATE user_sessions SET last_accessed_at = CURRENT_TIMESTAMP WHERE student_id = ?`,
		studentID)
	if err != nil {
		return fmt.Errorf("failed to touch session access time for student %s: %w", studentID, err)
	}
	return nil
}

// rotateSessionCredentials rotates the access code and cookie blob for
// an existing session, touching every timestamp session_refresh is
// required to update atomically.
func rotateSessionCredentials(ctx context.Context, c Conn, studentID, newAccessCode, cookiesJSON string) error {
	_, err := c.ExecContext(ctx, `
		UPDATE user_sessions SET
			access_code = ?,
			access_code_generated_at = CURRENT_TIMESTAMP,
			cookies_json = ?,
			cookies_updated_at = CURRENT_TIMESTAMP,
			last_accessed_at = CURRENT_TIMESTAMP
		WHERE student_id = ?
	`, newAccessCode, cookiesJSON, studentID)
	if err != nil {
		return fmt.Errorf("failed to rotate credentials for student %s: %w", studentID, err)
	}
	return nil
}

func scanSession(row *sql.Row) (*models.UserSession, error) {
	var s models.UserSession
	err := row.Scan(
		&s.StudentID, &s.AccessCode, &s.AccessCodeGeneratedAt, &s.StudentName,
		&s.ClassName, &s.CookiesJSON, &s.CookiesUpdatedAt, &s.CreatedAt, &s.LastAccessedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session row: %w", err)
	}
	return &s, nil
}

// UpsertSession inserts or refreshes a student's session row, keyed by
// student ID.
func (db *DB) UpsertSession(ctx context.Context, s *models.UserSession) error {
	return upsertSession(ctx, db.conn, s)
}

// SessionByAccessCode looks up a session by the access code a client
// presents instead of re-authenticating with the upstream.
func (db *DB) SessionByAccessCode(ctx context.Context, accessCode string) (*models.UserSession, error) {
	return sessionByAccessCode(ctx, db.conn, accessCode)
}

// SessionByStudentID looks up a session by student ID.
func (db *DB) SessionByStudentID(ctx context.Context, studentID string) (*models.UserSession, error) {
	return sessionByStudentID(ctx, db.conn, studentID)
}

// TouchSessionAccess updates last_accessed_at to now for the given student.
func (db *DB) TouchSessionAccess(ctx context.Context, studentID string) error {
	return touchSessionAccess(ctx, db.conn, studentID)
}

// UpsertSession is the transaction-scoped form of DB.UpsertSession.
func (tx *Tx) UpsertSession(ctx context.Context, s *models.UserSession) error {
	return upsertSession(ctx, tx.tx, s)
}

// SessionByStudentID is the transaction-scoped form of DB.SessionByStudentID.
func (tx *Tx) SessionByStudentID(ctx context.Context, studentID string) (*models.UserSession, error) {
	return sessionByStudentID(ctx, tx.tx, studentID)
}

// TouchSessionAccess is the transaction-scoped form of DB.TouchSessionAccess.
func (tx *Tx) TouchSessionAccess(ctx context.Context, studentID string) error {
	return touchSessionAccess(ctx, tx.tx, studentID)
}

// RotateSessionCredentials is the transaction-scoped form used by
// session_refresh to rotate the access code and cookies atomically.
func (tx *Tx) RotateSessionCredentials(ctx context.Context, studentID, newAccessCode, cookiesJSON string) error {
	return rotateSessionCredentials(ctx, tx.tx, studentID, newAccessCode, cookiesJSON)
}
