// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package audit

import (
	"errors"
	"fmt"
)

// Standard audit errors
var (
	// ErrUnauthenticated indicates no resolvable caller identity.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrActorNotFound indicates the caller identity no longer exists.
	ErrActorNotFound = errors.New("actor not found")

	// ErrAccessDenied indicates the caller's role lacks the requested scope.
	ErrAccessDenied = errors.New("access denied")

	// ErrNotFound indicates the record or batch target is absent.
	ErrNotFound = errors.New("audit record not found")

	// ErrValidation indicates malformed input rejected before any store access.
	ErrValidation = errors.New("validation failed")

	// ErrPartialFailure indicates a batch operation completed only some targets.
	ErrPartialFailure = errors.New("partial failure")
)

// ValidationError describes a single rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalidField(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
