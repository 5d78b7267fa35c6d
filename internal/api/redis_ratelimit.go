// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
	"github.com/redis/go-redis/v9"

	"github.com/glasirsync/glasirsync/internal/logging"
)

// redisRateLimiter is a fixed-window limiter backed by Redis, so the
// limit holds across every replica of the API rather than per process.
// Each window is a single INCR'd key that expires on its own; a client
// error degrades to allowing the request through rather than blocking
// traffic on a Redis outage.
type redisRateLimiter struct {
	client   *redis.Client
	requests int
	window   time.Duration
}

func newRedisRateLimiter(host string, port, db, requests int, window time.Duration) *redisRateLimiter {
	client := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%d", host, port),
		DB:   db,
	})
	return &redisRateLimiter{client: client, requests: requests, window: window}
}

func (l *redisRateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, err := httprate.KeyByIP(r)
			if err != nil {
				ip = r.RemoteAddr
			}
			key := "ratelimit:" + ip
			ctx := r.Context()

			count, err := l.client.Incr(ctx, key).Result()
			if err != nil {
				logging.Warn().Err(err).Msg("redis rate limiter unreachable, allowing request through")
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				l.client.Expire(ctx, key, l.window)
			}

			remaining := l.requests - int(count)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.requests))
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if int(count) > l.requests {
				ttl, _ := l.client.TTL(ctx, key).Result()
				w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Seconds())+1))
				NewResponseWriter(w, r).TooManyRequests("rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
