// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package authz

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tomtom215/auditrail/internal/audit"
	"github.com/tomtom215/auditrail/internal/auth"
	"github.com/tomtom215/auditrail/internal/logging"
)

// ErrorWriter renders an authorization failure. err wraps
// audit.ErrUnauthenticated or audit.ErrAccessDenied, or is an enforcement
// error.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware rejects requests whose caller role lacks a permission.
type Middleware struct {
	authorizer audit.Authorizer
	onError    ErrorWriter
}

// NewMiddleware creates the middleware. A nil onError falls back to
// plain-text responses.
func NewMiddleware(authorizer audit.Authorizer, onError ErrorWriter) *Middleware {
	if onError == nil {
		onError = plainError
	}
	return &Middleware{authorizer: authorizer, onError: onError}
}

// Require returns chi-compatible middleware allowing the request through
// only when the caller's role may perform action on object.
func (m *Middleware) Require(object, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := auth.CallerFromContext(r.Context())
			if caller == nil {
				m.onError(w, r, audit.ErrUnauthenticated)
				return
			}

			allowed, err := m.authorizer.Enforce(string(caller.Role), object, action)
			if err != nil {
				logging.Ctx(r.Context()).Error().Err(err).
					Str("object", object).
					Str("action", action).
					Msg("Authorization error")
				m.onError(w, r, err)
				return
			}
			if !allowed {
				m.onError(w, r, fmt.Errorf("%w: %s on %s", audit.ErrAccessDenied, action, object))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func plainError(w http.ResponseWriter, _ *http.Request, err error) {
	switch {
	case errors.Is(err, audit.ErrUnauthenticated):
		http.Error(w, "Unauthorized: authentication required", http.StatusUnauthorized)
	case errors.Is(err, audit.ErrAccessDenied):
		http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
