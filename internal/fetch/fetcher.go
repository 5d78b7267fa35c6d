// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/glasirsync/glasirsync/internal/apperr"
	"github.com/glasirsync/glasirsync/internal/config"
	"github.com/glasirsync/glasirsync/internal/logging"
	"github.com/glasirsync/glasirsync/internal/metrics"
)

// Result is a fetched page or endpoint response: its HTTP status and
// body. A 3xx status is returned as a Result rather than an error,
// since a redirect to the login page is a caller-detectable condition,
// not a transport failure.
type Result struct {
	StatusCode int
	Body       string
}

// Fetcher issues retrying, circuit-broken HTTP requests against one
// upstream host. The underlying *http.Client is a process singleton
// owned by the caller; Fetcher never closes it.
type Fetcher struct {
	client      *http.Client
	cfg         config.Fetch
	baseURL     string
	breaker     *gobreaker.CircuitBreaker[*Result]
	coordinator Coordinator
}

// New constructs a Fetcher against baseURL using client, which the
// caller owns and must not close out from under the Fetcher.
func New(cfg config.Fetch, baseURL string, client *http.Client) *Fetcher {
	return NewWithCoordinator(cfg, baseURL, client, NullCoordinator{})
}

// NewWithCoordinator is New, but with an explicit concurrency coordinator.
func NewWithCoordinator(cfg config.Fetch, baseURL string, client *http.Client, coordinator Coordinator) *Fetcher {
	settings := gobreaker.Settings{
		Name:        "upstream",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= cfg.BreakerMinRequests &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.BreakerFailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	}
	return &Fetcher{
		client:      client,
		cfg:         cfg,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		breaker:     gobreaker.NewCircuitBreaker[*Result](settings),
		coordinator: coordinator,
	}
}

// GetNoRedirect issues a GET against path, refusing to follow
// redirects: used for the initial timetable-page bootstrap, where a
// 3xx means the supplied cookies were rejected.
func (f *Fetcher) GetNoRedirect(ctx context.Context, path string) (*Result, error) {
	return f.GetNoRedirectWithCookie(ctx, path, "")
}

// GetNoRedirectWithCookie is GetNoRedirect with an explicit Cookie
// header, used to validate a student's upstream cookies during bootstrap.
func (f *Fetcher) GetNoRedirectWithCookie(ctx context.Context, path, cookieHeader string) (*Result, error) {
	return f.do(ctx, path, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		if cookieHeader != "" {
			req.Header.Set("Cookie", cookieHeader)
		}
		return req, nil
	}, true)
}

// PostForm issues a form-urlencoded POST against path. Redirect
// responses are passed through as a Result rather than followed, since
// the week-grid endpoint uses a redirect to signal an expired session.
func (f *Fetcher) PostForm(ctx context.Context, path string, form url.Values) (*Result, error) {
	body := form.Encode()
	return f.do(ctx, path, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+path, strings.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}, true)
}

func (f *Fetcher) do(ctx context.Context, endpoint string, build func(context.Context) (*http.Request, error), noRedirect bool) (*Result, error) {
	client := f.client
	if noRedirect {
		shallowCopy := *f.client
		shallowCopy.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
		client = &shallowCopy
	}

	var lastErr error
	for attempt := 1; attempt <= f.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			backoff := f.cfg.BackoffBase * time.Duration(1<<(attempt-2))
			metrics.RecordFetchRetry(endpoint)
			select {
			case <-ctx.Done():
				return nil, apperr.Wrap(apperr.UpstreamTransport, "context cancelled during retry backoff", ctx.Err())
			case <-time.After(backoff):
			}
		}

		attemptStart := time.Now()
		result, err := f.breaker.Execute(func() (*Result, error) {
			return f.attempt(ctx, build, client)
		})
		elapsed := time.Since(attemptStart)
		if err == nil {
			if result.StatusCode >= 200 && result.StatusCode < 300 {
				metrics.RecordFetch(endpoint, "success", elapsed)
				f.coordinator.ReportSuccess()
				return result, nil
			}
			if result.StatusCode >= 300 && result.StatusCode < 400 {
				metrics.RecordFetch(endpoint, "redirected_to_login", elapsed)
				return result, nil
			}
			if retryEligibleStatus(result.StatusCode) {
				metrics.RecordFetch(endpoint, "http_error", elapsed)
				f.coordinator.ReportFailure()
				lastErr = apperr.New(apperr.UpstreamHTTP, fmt.Sprintf("upstream returned %d", result.StatusCode)).
					WithStatus(result.StatusCode)
				continue
			}
			metrics.RecordFetch(endpoint, "http_error", elapsed)
			return result, apperr.New(apperr.UpstreamHTTP, fmt.Sprintf("upstream returned %d", result.StatusCode)).
				WithStatus(result.StatusCode)
		}

		f.coordinator.ReportFailure()
		if retryEligibleTransportError(err) {
			metrics.RecordFetch(endpoint, "transport_error", elapsed)
			lastErr = apperr.Wrap(apperr.UpstreamTransport, "transport error contacting upstream", err)
			continue
		}
		metrics.RecordFetch(endpoint, "transport_error", elapsed)
		return nil, apperr.Wrap(apperr.UpstreamTransport, "non-retryable transport error contacting upstream", err)
	}

	if lastErr == nil {
		lastErr = apperr.New(apperr.UpstreamTransport, "exhausted retries")
	}
	return nil, lastErr
}

func (f *Fetcher) attempt(ctx context.Context, build func(context.Context) (*http.Request, error), client *http.Client) (*Result, error) {
	reqCtx := ctx
	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	req, err := build(reqCtx)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Result{StatusCode: resp.StatusCode, Body: string(bodyBytes)}, nil
}
