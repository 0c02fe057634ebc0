// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tomtom215/auditrail/internal/audit"
)

func TestMiddleware_Authenticate(t *testing.T) {
	m := newTestTokenManager(t)
	token, err := m.Issue(Subject{ID: "partner-1", Role: audit.RolePartner, Name: "Acme Tours"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	var gotErr error
	mw := NewMiddleware(m, func(w http.ResponseWriter, _ *http.Request, err error) {
		gotErr = err
		w.WriteHeader(http.StatusUnauthorized)
	})

	var seen *audit.Caller
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CallerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name     string
		prepare  func(r *http.Request)
		wantCode int
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK},
		{"lowercase scheme", func(r *http.Request) { r.Header.Set("Authorization", "bearer "+token) }, http.StatusOK},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: TokenCookie, Value: token}) }, http.StatusOK},
		{"websocket query", func(r *http.Request) {
			r.Header.Set("Upgrade", "websocket")
			r.URL.RawQuery = "access_token=" + token
		}, http.StatusOK},
		{"query without upgrade", func(r *http.Request) { r.URL.RawQuery = "access_token=" + token }, http.StatusUnauthorized},
		{"basic scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic dXNlcjpwYXNz") }, http.StatusUnauthorized},
		{"no credentials", func(*http.Request) {}, http.StatusUnauthorized},
		{"tampered", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token+"x") }, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen, gotErr = nil, nil
			r := httptest.NewRequest(http.MethodGet, "/api/v1/audit/logs", nil)
			tt.prepare(r)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, r)

			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusOK {
				if seen == nil || seen.ID != "partner-1" || seen.Role != audit.RolePartner {
					t.Errorf("caller = %+v", seen)
				}
				return
			}
			if !errors.Is(gotErr, audit.ErrUnauthenticated) {
				t.Errorf("error = %v, want ErrUnauthenticated", gotErr)
			}
		})
	}
}

func TestMiddleware_DefaultErrorWriter(t *testing.T) {
	mw := NewMiddleware(newTestTokenManager(t), nil)
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("handler should not run")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestCallerContext(t *testing.T) {
	if CallerFromContext(context.Background()) != nil {
		t.Error("empty context should have no caller")
	}
	ctx := ContextWithCaller(context.Background(), audit.SystemCaller())
	if c := CallerFromContext(ctx); c == nil || c.Role != audit.RoleSystem {
		t.Errorf("CallerFromContext() = %+v", c)
	}
}
