// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/auditrail/internal/audit"
	"github.com/tomtom215/auditrail/internal/validation"
)

// maxBodyBytes bounds administrative request bodies.
const maxBodyBytes = 1 << 20

type listParams struct {
	Range     string `json:"range" validate:"omitempty,oneof=1h 24h 7d 30d"`
	Type      string `json:"type" validate:"omitempty,audit_event_type"`
	ActorRole string `json:"actorRole" validate:"omitempty,audit_role"`
	Search    string `json:"search" validate:"max=200"`
	Cursor    string `json:"cursor" validate:"max=256"`
	Limit     int    `json:"limit" validate:"gte=0,lte=500"`
}

type statsParams struct {
	Window string `json:"window" validate:"omitempty,oneof=1h 24h 7d 30d"`
}

type resourceParams struct {
	Type  string `json:"type" validate:"required,max=100"`
	ID    string `json:"id" validate:"required,max=200"`
	Limit int    `json:"limit" validate:"gte=0,lte=500"`
}

type ownActivityParams struct {
	Type   string `json:"type" validate:"omitempty,audit_event_type"`
	Cursor string `json:"cursor" validate:"max=256"`
	Limit  int    `json:"limit" validate:"gte=0,lte=500"`
}

type searchParams struct {
	Q          string   `json:"q" validate:"max=200"`
	Types      []string `json:"types" validate:"dive,audit_event_type"`
	Categories []string `json:"categories" validate:"dive,audit_category"`
	Severities []string `json:"severities" validate:"dive,audit_severity"`
	Statuses   []string `json:"statuses" validate:"dive,audit_status"`
	Since      int64    `json:"since" validate:"gte=0"`
	Until      int64    `json:"until" validate:"gte=0"`
	Limit      int      `json:"limit" validate:"gte=0,lte=500"`
}

type complianceParams struct {
	Since int64 `json:"since" validate:"gte=0"`
	Until int64 `json:"until" validate:"gte=0"`
}

type cleanupBody struct {
	DryRun bool `json:"dryRun"`
	Limit  int  `json:"limit" validate:"gte=0,lte=10000"`
}

type archiveBody struct {
	OlderThanDays int  `json:"olderThanDays" validate:"required,gte=1,lte=3650"`
	DryRun        bool `json:"dryRun"`
}

type bulkDeleteBody struct {
	IDs    []string `json:"ids" validate:"required,min=1,max=1000,dive,required,max=200"`
	Reason string   `json:"reason" validate:"required,max=500"`
}

type retentionBody struct {
	Category      string `json:"category" validate:"required,audit_category"`
	Severity      string `json:"severity" validate:"required,audit_severity"`
	RetentionDays int    `json:"retentionDays" validate:"required,gte=30,lte=2555"`
	AutoDelete    bool   `json:"autoDelete"`
	Reason        string `json:"reason" validate:"max=500"`
}

type exportBody struct {
	Since      int64    `json:"since" validate:"gte=0"`
	Until      int64    `json:"until" validate:"gte=0"`
	Format     string   `json:"format" validate:"required,oneof=json csv"`
	Categories []string `json:"categories" validate:"dive,audit_category"`
}

type resourceBody struct {
	Type           string `json:"type" validate:"required,max=100"`
	ID             string `json:"id" validate:"required,max=200"`
	Name           string `json:"name" validate:"max=200"`
	OrganizationID string `json:"organizationId" validate:"max=200"`
	PartnerID      string `json:"partnerId" validate:"max=200"`
}

type manualEntryBody struct {
	Type     string        `json:"type" validate:"omitempty,audit_event_type"`
	Action   string        `json:"action" validate:"required,max=500"`
	Category string        `json:"category" validate:"omitempty,audit_category"`
	Severity string        `json:"severity" validate:"omitempty,audit_severity"`
	Status   string        `json:"status" validate:"omitempty,audit_status"`
	Resource *resourceBody `json:"resource"`
	Reason   string        `json:"reason" validate:"max=500"`
}

func (b *resourceBody) toResource() *audit.Resource {
	if b == nil {
		return nil
	}
	return &audit.Resource{
		Type:           b.Type,
		ID:             b.ID,
		Name:           b.Name,
		OrganizationID: b.OrganizationID,
		PartnerID:      b.PartnerID,
	}
}

// decodeJSON reads a bounded JSON body into v and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &audit.ValidationError{Field: "body", Message: fmt.Sprintf("malformed JSON: %v", err)}
	}
	return validate(v)
}

// validate returns nil or a *validation.RequestValidationError.
func validate(v interface{}) error {
	if verr := validation.ValidateStruct(v); verr != nil {
		return verr
	}
	return nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &audit.ValidationError{Field: key, Message: "must be an integer"}
	}
	return n, nil
}

// queryInt64 parses an optional epoch-millisecond query parameter.
func queryInt64(r *http.Request, key string) (int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &audit.ValidationError{Field: key, Message: "must be epoch milliseconds"}
	}
	return n, nil
}

// queryList splits a comma-separated query parameter, dropping blanks.
func queryList(r *http.Request, key string) []string {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// convert maps validated strings onto an audit enum type.
func convert[T ~string](values []string) []T {
	if len(values) == 0 {
		return nil
	}
	out := make([]T, len(values))
	for i, v := range values {
		out[i] = T(v)
	}
	return out
}
