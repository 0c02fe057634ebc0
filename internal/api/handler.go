// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package api

import (
	"context"
	"time"

	"github.com/tomtom215/auditrail/internal/audit"
	"github.com/tomtom215/auditrail/internal/authz"
)

// PermissionLister reports the effective RBAC rules.
type PermissionLister interface {
	Permissions() []authz.Permission
}

// HealthCheck is one readiness dependency.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler serves the audit endpoints.
type Handler struct {
	query       *audit.QueryService
	lifecycle   *audit.Lifecycle
	permissions PermissionLister
	checks      []HealthCheck
	startTime   time.Time
}

// NewHandler creates the handler. permissions may be nil, in which case the
// permissions endpoint returns an empty list.
func NewHandler(query *audit.QueryService, lifecycle *audit.Lifecycle, permissions PermissionLister) *Handler {
	return &Handler{
		query:       query,
		lifecycle:   lifecycle,
		permissions: permissions,
		startTime:   time.Now(),
	}
}

// AddHealthCheck registers a readiness dependency.
func (h *Handler) AddHealthCheck(name string, check func(ctx context.Context) error) {
	h.checks = append(h.checks, HealthCheck{Name: name, Check: check})
}
