// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tomtom215/auditrail/internal/audit"
	"github.com/tomtom215/auditrail/internal/logging"
)

// TokenCookie is the cookie consulted when no Authorization header is set.
const TokenCookie = "token"

// ErrorWriter renders an authentication failure. err wraps
// audit.ErrUnauthenticated.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware authenticates API requests.
type Middleware struct {
	tokens  *TokenManager
	onError ErrorWriter
}

// NewMiddleware creates the middleware. A nil onError writes a plain 401.
func NewMiddleware(tokens *TokenManager, onError ErrorWriter) *Middleware {
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, "Unauthorized: authentication required", http.StatusUnauthorized)
		}
	}
	return &Middleware{tokens: tokens, onError: onError}
}

// Authenticate verifies the caller token and stores the caller on the
// request context. Requests without a valid token are rejected.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			m.onError(w, r, fmt.Errorf("%w: %v", audit.ErrUnauthenticated, ErrNoCredentials))
			return
		}

		subject, err := m.tokens.Verify(token)
		if err != nil {
			level := zerolog.WarnLevel
			if errors.Is(err, ErrExpiredCredentials) {
				level = zerolog.DebugLevel
			}
			logging.Ctx(r.Context()).WithLevel(level).Err(err).
				Str("path", r.URL.Path).
				Str("token", logging.SanitizeToken(token)).
				Msg("Rejected caller token")
			m.onError(w, r, fmt.Errorf("%w: %v", audit.ErrUnauthenticated, err))
			return
		}

		ctx := ContextWithCaller(r.Context(), subject.Caller())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken reads the bearer token from the Authorization header, the
// token cookie, or for WebSocket upgrades the access_token query parameter.
func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie(TokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get("access_token")
	}
	return ""
}
