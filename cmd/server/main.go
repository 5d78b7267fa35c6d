// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

// Command server runs the glasirsync HTTP API: it loads configuration,
// opens the embedded store, and serves the sync engine's three
// operations plus the legacy read-only profile views.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/glasirsync/glasirsync/internal/api"
	"github.com/glasirsync/glasirsync/internal/config"
	"github.com/glasirsync/glasirsync/internal/fetch"
	"github.com/glasirsync/glasirsync/internal/logging"
	"github.com/glasirsync/glasirsync/internal/middleware"
	"github.com/glasirsync/glasirsync/internal/store"
	"github.com/glasirsync/glasirsync/internal/syncengine"
)

// perfMonitorWindow is the number of recent requests the performance
// monitor keeps for percentile calculations.
const perfMonitorWindow = 1000

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Caller: cfg.Logging.Caller})

	if err := cfg.Validate(); err != nil {
		logging.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS is configured with a wildcard origin")
	}

	db, err := store.Open(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("failed to close store cleanly")
		}
	}()

	httpClient := &http.Client{Timeout: cfg.Fetch.Timeout}
	fetcher := fetch.New(cfg.Fetch, cfg.Upstream.BaseURL, httpClient)

	var limiter *rate.Limiter
	if cfg.Fetch.RateLimitPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Fetch.RateLimitPerSecond), cfg.Fetch.MaxConcurrentWeeks)
	}

	engine := syncengine.New(db, fetcher, cfg.Upstream.TimetablePath, limiter, cfg.Testing.Mode)
	perfMonitor := middleware.NewPerformanceMonitor(perfMonitorWindow)
	handler := api.NewHandler(engine, db, fetcher, cfg.Upstream.TimetablePath, perfMonitor, cfg.Testing.Mode)

	chiMW := api.NewChiMiddleware(&api.ChiMiddlewareConfig{
		CORSAllowedOrigins:   cfg.Security.CORSOrigins,
		CORSAllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		CORSAllowedHeaders:   []string{"Content-Type", api.AccessCodeHeader},
		CORSAllowCredentials: false,
		CORSMaxAge:           86400,
		RateLimitRequests:    cfg.Security.RateLimitReqs,
		RateLimitWindow:      cfg.Security.RateLimitWindow,
		RateLimitDisabled:    cfg.Security.RateLimitDisabled,
		RateLimitingEnabled:  cfg.Security.RateLimitingEnabled,
		RedisHost:            cfg.Security.RedisHost,
		RedisPort:            cfg.Security.RedisPort,
		RedisDB:              cfg.Security.RedisDB,
	})

	router := api.NewRouter(handler, chiMW)

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: ":9090", Handler: metricsMux}

	go func() {
		logging.Info().Str("addr", apiServer.Addr).Msg("starting API server")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("API server failed")
		}
	}()
	go func() {
		logging.Info().Str("addr", metricsServer.Addr).Msg("starting metrics server")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("metrics server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("API server shutdown did not complete cleanly")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("metrics server shutdown did not complete cleanly")
	}
}
