// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

// Package fetch is the retrying HTTP client the extractor uses to talk
// to the upstream scheduling site: exponential backoff on transient
// failures, a circuit breaker per upstream host, and an optional
// concurrency coordinator hook an outer policy can use to throttle
// fan-out against observed 429/503 rates.
package fetch
