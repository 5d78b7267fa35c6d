// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

package api

import (
	"github.com/glasirsync/glasirsync/internal/apperr"
)

// AccessCodeHeader is the bearer-credential header carrying a student's
// access code on every request to sync and session endpoints.
const AccessCodeHeader = "X-Access-Code"

// ErrAccessCodeRequired is returned by handlers when the X-Access-Code
// header is missing from a request that requires it.
var ErrAccessCodeRequired = apperr.New(apperr.Unauthenticated, "X-Access-Code header is required")

// AppError writes err as a standardized error response, mapping its
// apperr.Kind to both the HTTP status and the response's error code.
// Errors with no recognized Kind are reported as internal errors without
// leaking their message.
func (rw *ResponseWriter) AppError(err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)

	if kind == "" || kind == apperr.Internal {
		rw.InternalError("internal error")
		return
	}
	rw.Error(status, string(kind), err.Error())
}
