// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

/*
connection.go - Connection Management

Connection pool configuration and error classification, used to decide
whether a failed query is worth retrying at the call site.

Connection Pool Configuration:
  - MaxOpenConns: based on CPU count for parallelism
  - MaxIdleConns: 2, for efficient connection reuse
  - ConnMaxLifetime: 1 hour, to prevent stale connections
  - ConnMaxIdleTime: 5 minutes, for idle connection cleanup
*/

//nolint:staticcheck // File documentation, not package doc
package store

import (
	"runtime"
	"strings"
	"time"
)

// isConnectionError reports whether err indicates database connection loss.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	return strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "connection reset") ||
		strings.Contains(errMsg, "broken pipe") ||
		strings.Contains(errMsg, "bad connection") ||
		strings.Contains(errMsg, "driver: bad connection") ||
		strings.Contains(errMsg, "database is closed") ||
		strings.Contains(errMsg, "sql: database is closed")
}

// configureConnectionPool sets connection pool parameters.
func (db *DB) configureConnectionPool() error {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
	return nil
}

// isTransactionConflict reports whether err is a DuckDB transaction conflict.
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "Transaction conflict") ||
		strings.Contains(errStr, "Conflict on update") ||
		strings.Contains(errStr, "cannot update a table that has been altered")
}
