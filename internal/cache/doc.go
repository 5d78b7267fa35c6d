// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

/*
Package cache provides a thread-safe in-memory TTL cache.

The sync engine's request-scoped extractor uses one of these to memoize
its own teacher-map lookups for the lifetime of a single sync, so that
fetching many weeks in one request doesn't redundantly re-parse the
teacher directory. It is deliberately not a cross-request cache: the
durable teacher map lives in the database (see internal/teachercache)
and this package never reaches it.

# Usage

	c := cache.New(5 * time.Minute)
	c.Set("teacher-map", m)
	if cached, ok := c.Get("teacher-map"); ok {
	    m := cached.(map[string]string)
	}

# Thread Safety

All Cache methods are safe for concurrent use via sync.RWMutex. A
background goroutine sweeps expired entries every 5 minutes in addition
to the lazy expiration check performed on Get.
*/
package cache
