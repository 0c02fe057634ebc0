// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package auth

import (
	"context"
	"errors"

	"github.com/tomtom215/auditrail/internal/audit"
)

// Standard authentication errors
var (
	// ErrNoCredentials indicates no credentials were provided.
	ErrNoCredentials = errors.New("no credentials provided")

	// ErrInvalidCredentials indicates credentials were invalid.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrExpiredCredentials indicates credentials have expired.
	ErrExpiredCredentials = errors.New("credentials expired")
)

// Subject is an authenticated identity as asserted by a token.
type Subject struct {
	ID    string     `json:"id"`
	Role  audit.Role `json:"role"`
	Name  string     `json:"name,omitempty"`
	Email string     `json:"email,omitempty"`
}

// Caller converts the subject to the audit caller type.
func (s *Subject) Caller() *audit.Caller {
	if s == nil {
		return nil
	}
	return &audit.Caller{
		ID:    s.ID,
		Role:  s.Role,
		Name:  s.Name,
		Email: s.Email,
	}
}

type contextKey string

const callerContextKey contextKey = "audit_caller"

// ContextWithCaller stores the caller on the context.
func ContextWithCaller(ctx context.Context, caller *audit.Caller) context.Context {
	return context.WithValue(ctx, callerContextKey, caller)
}

// CallerFromContext returns the authenticated caller, or nil.
func CallerFromContext(ctx context.Context) *audit.Caller {
	caller, _ := ctx.Value(callerContextKey).(*audit.Caller)
	return caller
}
