// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where a config file is searched for,
// in priority order. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/glasirsync/config.yaml",
	"/etc/glasirsync/config.yml",
}

// ConfigPathEnvVar overrides the config file search with an explicit path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Upstream: Upstream{
			BaseURL:       "https://tg.glasir.fo",
			TimetablePath: "/132n/",
		},
		Fetch: Fetch{
			Timeout:             30 * time.Second,
			MaxRetries:          3,
			BackoffBase:         500 * time.Millisecond,
			MaxConcurrentWeeks:  20,
			RateLimitPerSecond:  10,
			BreakerMinRequests:  10,
			BreakerFailureRatio: 0.6,
			BreakerOpenTimeout:  2 * time.Minute,
		},
		Database: Database{
			Path: "./data/glasirsync.duckdb",
		},
		Server: Server{
			Host:    "0.0.0.0",
			Port:    8080,
			Timeout: 30 * time.Second,
		},
		Security: Security{
			CORSOrigins:       []string{},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the Config by layering defaults, an optional YAML config
// file, and environment variables (highest priority), then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps flat environment variable names to koanf's dotted
// config paths, e.g. UPSTREAM_BASE_URL -> upstream.base_url. DATABASE_URL
// maps to database.path, and RATE_LIMITING_ENABLED and REDIS_HOST/PORT/DB
// map to their security.* fields.
func envTransformFunc(s string) string {
	lower := strings.ToLower(s)
	switch lower {
	case "database_url":
		return "database.path"
	case "rate_limiting_enabled", "redis_host", "redis_port", "redis_db":
		return "security." + lower
	}
	for prefix, section := range envSectionPrefixes {
		if strings.HasPrefix(lower, prefix) {
			rest := strings.TrimPrefix(lower, prefix)
			return section + "." + rest
		}
	}
	return strings.ReplaceAll(lower, "_", ".")
}

var envSectionPrefixes = map[string]string{
	"upstream_": "upstream",
	"fetch_":    "fetch",
	"database_": "database",
	"server_":   "server",
	"security_": "security",
	"logging_":  "logging",
	"testing_":  "testing",
}

var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated env values into slices for
// the fields koanf's struct unmarshaling can't infer a delimiter for.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}
