// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

// Package config holds all application configuration, loaded from
// environment variables and an optional config file.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in sensible defaults for all optional settings
//  2. Config File: optional YAML config file (config.yaml)
//  3. Environment Variables: override any setting, highest priority
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Upstream Upstream `koanf:"upstream"`
	Fetch    Fetch    `koanf:"fetch"`
	Database Database `koanf:"database"`
	Server   Server   `koanf:"server"`
	Security Security `koanf:"security"`
	Logging  Logging  `koanf:"logging"`
	Testing  Testing  `koanf:"testing"`
}

// Upstream holds the location of the school scheduling system being scraped.
type Upstream struct {
	BaseURL      string `koanf:"base_url"`
	TimetablePath string `koanf:"timetable_path"`
}

// Fetch controls the retrying HTTP fetcher and the concurrency applied
// when a multi-week sync fans out across the upstream.
type Fetch struct {
	Timeout            time.Duration `koanf:"timeout"`
	MaxRetries         int           `koanf:"max_retries"`
	BackoffBase        time.Duration `koanf:"backoff_base"`
	MaxConcurrentWeeks int           `koanf:"max_concurrent_weeks"`
	RateLimitPerSecond float64       `koanf:"rate_limit_per_second"`

	// CircuitBreaker tunables, mirroring the teacher's Tautulli breaker
	// but scaled for a single upstream host.
	BreakerMinRequests  uint32        `koanf:"breaker_min_requests"`
	BreakerFailureRatio float64       `koanf:"breaker_failure_ratio"`
	BreakerOpenTimeout  time.Duration `koanf:"breaker_open_timeout"`
}

// Database configures the embedded on-disk SQL store.
type Database struct {
	Path string `koanf:"path"`
}

// Server configures the HTTP façade.
type Server struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// Security configures CORS and rate limiting on the HTTP façade.
type Security struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	// RateLimitingEnabled, when set, backs the API rate limiter with Redis
	// instead of the in-process limiter, so limits hold across replicas.
	RateLimitingEnabled bool   `koanf:"rate_limiting_enabled"`
	RedisHost           string `koanf:"redis_host"`
	RedisPort           int    `koanf:"redis_port"`
	RedisDB             int    `koanf:"redis_db"`
}

// Logging configures the zerolog-backed logger.
type Logging struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Testing configures behavior that should never be on by default in production.
type Testing struct {
	// Mode gates every request-scoped extractor's debug-HTML capture:
	// when set, each upstream response is dumped to debug_html/ for
	// offline inspection.
	Mode bool `koanf:"mode"`
}

// Validate checks the loaded configuration for internally consistent,
// usable values. It does not reach the network or the filesystem.
func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.base_url is required")
	}
	if c.Fetch.MaxRetries < 1 {
		return fmt.Errorf("fetch.max_retries must be at least 1")
	}
	if c.Fetch.MaxConcurrentWeeks < 1 {
		return fmt.Errorf("fetch.max_concurrent_weeks must be at least 1")
	}
	if c.Fetch.BreakerFailureRatio <= 0 || c.Fetch.BreakerFailureRatio > 1 {
		return fmt.Errorf("fetch.breaker_failure_ratio must be in (0, 1]")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive")
	}
	if c.Security.RateLimitingEnabled && c.Security.RedisHost == "" {
		return fmt.Errorf("security.redis_host is required when rate_limiting_enabled is true")
	}
	return nil
}

// ShouldWarnAboutCORS reports whether the CORS configuration is a wildcard,
// which is worth a startup warning even though it isn't fatal.
func (c *Config) ShouldWarnAboutCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}
