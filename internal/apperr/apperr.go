// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

// Package apperr defines the public error taxonomy the sync engine raises
// to its callers. Every error that should become a specific HTTP status
// and JSON body carries one of these kinds; anything else is Internal.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies one of the public error categories a caller can branch on.
type Kind string

const (
	// BadRequest is malformed JSON or a missing required field.
	BadRequest Kind = "BAD_REQUEST"
	// Unauthenticated is a missing credential header (no access code).
	Unauthenticated Kind = "UNAUTHENTICATED"
	// Forbidden is a credential that is present but unknown.
	Forbidden Kind = "FORBIDDEN"
	// AuthFailed is an upstream rejection of supplied cookies (non-200 on bootstrap).
	AuthFailed Kind = "AUTH_FAILED"
	// CookiesExpired is a valid session whose cookies are older than the freshness window.
	CookiesExpired Kind = "COOKIES_EXPIRED"
	// AlreadyExists is a session-presence violation on initial sync.
	AlreadyExists Kind = "ALREADY_EXISTS"
	// NotFound is a session-presence violation on refresh.
	NotFound Kind = "NOT_FOUND"
	// UpstreamProtocolError is a 200 response missing an expected marker (e.g. lname).
	UpstreamProtocolError Kind = "UPSTREAM_PROTOCOL_ERROR"
	// UpstreamHTTP is a retryable-exhausted HTTP error surfaced by the upstream.
	UpstreamHTTP Kind = "UPSTREAM_HTTP"
	// UpstreamTransport is a network/timeout failure after retries.
	UpstreamTransport Kind = "UPSTREAM_TRANSPORT"
	// Internal is anything not covered by a more specific kind.
	Internal Kind = "INTERNAL"
)

// Error is the concrete error type carrying a Kind, a human message, and
// an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Status  int // upstream HTTP status, when Kind is UpstreamHTTP
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error wrapping cause, or returns nil if cause is nil.
func Wrap(kind Kind, message string, cause error) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithStatus attaches an upstream HTTP status code, used by UpstreamHTTP.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// KindOf extracts the Kind from err. It returns the empty Kind when err is
// nil and Internal when err is not an *Error.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Internal
}

// HTTPStatus maps a Kind to the HTTP status code the API façade should
// respond with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case BadRequest:
		return http.StatusBadRequest
	case Unauthenticated, CookiesExpired:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case AuthFailed:
		return http.StatusUnauthorized
	case AlreadyExists:
		return http.StatusConflict
	case NotFound:
		return http.StatusNotFound
	case UpstreamProtocolError, UpstreamHTTP:
		return http.StatusBadGateway
	case UpstreamTransport:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
