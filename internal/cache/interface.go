// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

// Package cache provides a small TTL-based in-memory cache, used by the
// extractor for its per-instance teacher-map memoization.
package cache

import "time"

// Cacher defines the interface for cache implementations, so callers can
// depend on an interface rather than *Cache directly.
//
// Usage:
//
//	var c Cacher = NewTTL(5 * time.Minute)
//	c.Set("key", value)
//	if val, ok := c.Get("key"); ok {
//	    // Use cached value
//	}
type Cacher interface {
	// Get retrieves a value from the cache.
	// Returns the value and true if found and not expired.
	Get(key string) (interface{}, bool)

	// Set stores a value in the cache with the default TTL.
	Set(key string, value interface{})

	// SetWithTTL stores a value with a custom TTL.
	SetWithTTL(key string, value interface{}, ttl time.Duration)

	// Delete removes a value from the cache.
	Delete(key string)

	// Clear removes all entries from the cache.
	Clear()

	// GetStats returns cache statistics.
	GetStats() Stats

	// HitRate returns the cache hit rate as a percentage.
	HitRate() float64
}

// NewTTL creates a new TTL-based cache (same as New).
// Convenience function for callers that prefer the Cacher interface.
func NewTTL(ttl time.Duration) Cacher {
	return New(ttl)
}

// Verify interface implementation at compile time.
var _ Cacher = (*Cache)(nil)
