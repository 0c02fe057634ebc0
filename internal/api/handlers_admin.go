// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/auditrail/internal/audit"
	"github.com/tomtom215/auditrail/internal/auth"
	"github.com/tomtom215/auditrail/internal/authz"
)

// CreateManualEntry handles POST /api/v1/audit/admin/entries.
func (h *Handler) CreateManualEntry(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var body manualEntryBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, r, err)
		return
	}

	id, err := h.lifecycle.CreateManualEntry(r.Context(), auth.CallerFromContext(r.Context()), audit.ManualEntry{
		Type:     audit.EventType(body.Type),
		Action:   body.Action,
		Category: audit.Category(body.Category),
		Severity: audit.Severity(body.Severity),
		Status:   audit.Status(body.Status),
		Resource: body.Resource.toResource(),
		Reason:   body.Reason,
		Request:  audit.RequestFromHTTP(r),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusCreated, map[string]string{"id": id}, start)
}

// BulkDelete handles POST /api/v1/audit/admin/bulk-delete. A partial
// failure is still a 200; callers inspect success and errors.
func (h *Handler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var body bulkDeleteBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := h.lifecycle.BulkDelete(r.Context(), auth.CallerFromContext(r.Context()), audit.BulkDeleteRequest{
		IDs:    body.IDs,
		Reason: body.Reason,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, result, start)
}

// CleanupExpired handles POST /api/v1/audit/admin/cleanup.
func (h *Handler) CleanupExpired(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var body cleanupBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := h.lifecycle.CleanupExpired(r.Context(), auth.CallerFromContext(r.Context()), audit.CleanupRequest{
		DryRun: body.DryRun,
		Limit:  body.Limit,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, result, start)
}

// Archive handles POST /api/v1/audit/admin/archive.
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var body archiveBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := h.lifecycle.Archive(r.Context(), auth.CallerFromContext(r.Context()), audit.ArchiveRequest{
		OlderThanDays: body.OlderThanDays,
		DryRun:        body.DryRun,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, result, start)
}

// ListRetentionPolicies handles GET /api/v1/audit/admin/retention-policies.
func (h *Handler) ListRetentionPolicies(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	policies, err := h.lifecycle.ListRetentionPolicies(r.Context(), auth.CallerFromContext(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, policies, start)
}

// UpdateRetentionPolicy handles PUT /api/v1/audit/admin/retention-policies.
func (h *Handler) UpdateRetentionPolicy(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var body retentionBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := h.lifecycle.UpdateRetentionPolicy(r.Context(), auth.CallerFromContext(r.Context()), audit.RetentionPolicyUpdate{
		Category:      audit.Category(body.Category),
		Severity:      audit.Severity(body.Severity),
		RetentionDays: body.RetentionDays,
		AutoDelete:    body.AutoDelete,
		Reason:        body.Reason,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, result, start)
}

// Export handles POST /api/v1/audit/admin/exports.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var body exportBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := h.lifecycle.Export(r.Context(), auth.CallerFromContext(r.Context()), audit.ExportRequest{
		Since:      body.Since,
		Until:      body.Until,
		Format:     audit.ExportFormat(body.Format),
		Categories: convert[audit.Category](body.Categories),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusAccepted, result, start)
}

// Permissions handles GET /api/v1/audit/admin/permissions.
func (h *Handler) Permissions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	perms := []authz.Permission{}
	if h.permissions != nil {
		perms = h.permissions.Permissions()
	}
	respondSuccess(w, r, http.StatusOK, perms, start)
}
