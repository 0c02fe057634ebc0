// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/auditrail/internal/audit"
	"github.com/tomtom215/auditrail/internal/logging"
	"github.com/tomtom215/auditrail/internal/validation"
)

// Error codes returned in APIError.Code.
const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeAccessDenied    = "ACCESS_DENIED"
	CodeNotFound        = "NOT_FOUND"
	CodeValidation      = "VALIDATION_ERROR"
	CodeRateLimited     = "RATE_LIMITED"
	CodeInternal        = "INTERNAL_ERROR"
	CodeUnavailable     = "SERVICE_UNAVAILABLE"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response timing. Timestamp is epoch milliseconds.
type Metadata struct {
	Timestamp   int64  `json:"timestamp"`
	QueryTimeMS int64  `json:"queryTimeMs,omitempty"`
	RequestID   string `json:"requestId,omitempty"`
}

// APIError is the error body.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, response *APIResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Debug().Err(err).Msg("Failed to write JSON response")
	}
}

// respondSuccess writes data with the time spent since start.
func respondSuccess(w http.ResponseWriter, r *http.Request, status int, data interface{}, start time.Time) {
	respondJSON(w, status, &APIResponse{
		Status: "success",
		Data:   data,
		Metadata: Metadata{
			Timestamp:   audit.ToMillis(time.Now()),
			QueryTimeMS: time.Since(start).Milliseconds(),
			RequestID:   logging.RequestIDFromContext(r.Context()),
		},
	})
}

// respondError maps err onto a status code and error body.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, apiErr := classifyError(err)

	event := logging.Ctx(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		event = logging.Ctx(r.Context()).Error()
	}
	event.Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("API error")

	respondJSON(w, status, &APIResponse{
		Status: "error",
		Metadata: Metadata{
			Timestamp: audit.ToMillis(time.Now()),
			RequestID: logging.RequestIDFromContext(r.Context()),
		},
		Error: apiErr,
	})
}

func classifyError(err error) (int, *APIError) {
	var reqErr *validation.RequestValidationError
	if errors.As(err, &reqErr) {
		return http.StatusBadRequest, &APIError{
			Code:    CodeValidation,
			Message: reqErr.Error(),
			Details: reqErr.Details(),
		}
	}

	var fieldErr *audit.ValidationError
	if errors.As(err, &fieldErr) {
		return http.StatusBadRequest, &APIError{
			Code:    CodeValidation,
			Message: fieldErr.Error(),
			Details: map[string]interface{}{"field": fieldErr.Field},
		}
	}

	switch {
	case errors.Is(err, audit.ErrUnauthenticated), errors.Is(err, audit.ErrActorNotFound):
		return http.StatusUnauthorized, &APIError{Code: CodeUnauthenticated, Message: "authentication required"}
	case errors.Is(err, audit.ErrAccessDenied):
		return http.StatusForbidden, &APIError{Code: CodeAccessDenied, Message: err.Error()}
	case errors.Is(err, audit.ErrNotFound):
		return http.StatusNotFound, &APIError{Code: CodeNotFound, Message: err.Error()}
	case errors.Is(err, audit.ErrValidation):
		return http.StatusBadRequest, &APIError{Code: CodeValidation, Message: err.Error()}
	default:
		return http.StatusInternalServerError, &APIError{Code: CodeInternal, Message: "internal server error"}
	}
}

// writeAuthError adapts respondError to the auth and authz middleware.
func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	respondError(w, r, err)
}
