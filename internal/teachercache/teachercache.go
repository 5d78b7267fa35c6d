// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

// Package teachercache is the durable, process-global read-through
// cache over the scraped teacher initials -> full name directory. It is
// backed entirely by the database; per design there is deliberately no
// in-process mutex guarding it, since reads and writes already go
// through the store's transaction isolation.
package teachercache

import (
	"context"
	"fmt"

	"github.com/glasirsync/glasirsync/internal/store"
)

// Cache is a thin read-through façade over the store's teacher_cache table.
type Cache struct {
	db *store.DB
}

// New wraps db as a teacher cache.
func New(db *store.DB) *Cache {
	return &Cache{db: db}
}

// Get returns every non-expired initials -> full name mapping known to
// the cache. An empty map means nothing is cached yet, not an error.
func (c *Cache) Get(ctx context.Context) (map[string]string, error) {
	m, err := c.db.AllTeachers(ctx)
	if err != nil {
		return nil, fmt.Errorf("teachercache: %w", err)
	}
	return m, nil
}

// Replace atomically swaps the cached rows for the initials present in
// teacherMap with fresh ones, each good for store.TeacherCacheTTL.
func (c *Cache) Replace(ctx context.Context, teacherMap map[string]string) error {
	if err := c.db.ReplaceTeachers(ctx, teacherMap); err != nil {
		return fmt.Errorf("teachercache: %w", err)
	}
	return nil
}
