// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

package fetch

import (
	"errors"
	"net"
	"net/url"
)

// retryEligibleStatus reports whether an HTTP status code is worth
// retrying: rate-limited or a transient server error.
func retryEligibleStatus(status int) bool {
	switch status {
	case 429, 500, 503:
		return true
	default:
		return false
	}
}

// retryEligibleTransportError reports whether err looks like a
// transport-level failure (timeout, connection refused/reset) rather
// than a programming error or a non-retryable rejection.
func retryEligibleTransportError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	return false
}
