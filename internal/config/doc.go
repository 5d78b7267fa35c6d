// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

/*
Package config loads and validates application configuration.

Configuration is layered, highest priority last:

  1. Built-in defaults (defaultConfig)
  2. An optional YAML file (config.yaml, or CONFIG_PATH)
  3. Environment variables (UPSTREAM_BASE_URL, FETCH_MAX_RETRIES, ...)

Call Load to get a validated *Config. Load returns an error rather than
exiting so the caller controls how configuration failures are reported.
*/
package config
