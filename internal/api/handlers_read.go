// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/auditrail/internal/audit"
	"github.com/tomtom215/auditrail/internal/auth"
	"github.com/tomtom215/auditrail/internal/logging"
)

// List handles GET /api/v1/audit.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()

	limit, err := queryInt(r, "limit")
	if err != nil {
		respondError(w, r, err)
		return
	}
	params := listParams{
		Range:     q.Get("range"),
		Type:      q.Get("type"),
		ActorRole: q.Get("actorRole"),
		Search:    q.Get("search"),
		Cursor:    q.Get("cursor"),
		Limit:     limit,
	}
	if err := validate(&params); err != nil {
		respondError(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Debug().
		Str("range", params.Range).
		Str("search", logging.SanitizeValue("search", params.Search)).
		Msg("Listing audit records")

	result, err := h.query.List(r.Context(), auth.CallerFromContext(r.Context()), audit.ListRequest{
		Range:     audit.TimeRange(params.Range),
		Type:      audit.EventType(params.Type),
		ActorRole: audit.Role(params.ActorRole),
		Search:    params.Search,
		Cursor:    params.Cursor,
		Limit:     params.Limit,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, result, start)
}

// Stats handles GET /api/v1/audit/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	params := statsParams{Window: r.URL.Query().Get("window")}
	if err := validate(&params); err != nil {
		respondError(w, r, err)
		return
	}

	stats, err := h.query.Stats(r.Context(), auth.CallerFromContext(r.Context()), audit.TimeRange(params.Window))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, stats, start)
}

// GetByID handles GET /api/v1/audit/{id}.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	record, err := h.query.GetByID(r.Context(), auth.CallerFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, record, start)
}

// GetByResource handles GET /api/v1/audit/resource/{type}/{id}.
func (h *Handler) GetByResource(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondError(w, r, err)
		return
	}
	params := resourceParams{
		Type:  chi.URLParam(r, "type"),
		ID:    chi.URLParam(r, "id"),
		Limit: limit,
	}
	if err := validate(&params); err != nil {
		respondError(w, r, err)
		return
	}

	records, err := h.query.GetByResource(r.Context(), auth.CallerFromContext(r.Context()), params.Type, params.ID, params.Limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, records, start)
}

// OwnActivity handles GET /api/v1/audit/me.
func (h *Handler) OwnActivity(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondError(w, r, err)
		return
	}
	params := ownActivityParams{
		Type:   r.URL.Query().Get("type"),
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  limit,
	}
	if err := validate(&params); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := h.query.OwnActivity(r.Context(), auth.CallerFromContext(r.Context()), audit.OwnActivityRequest{
		Type:   audit.EventType(params.Type),
		Cursor: params.Cursor,
		Limit:  params.Limit,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, result, start)
}

// Search handles GET /api/v1/audit/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondError(w, r, err)
		return
	}
	since, err := queryInt64(r, "since")
	if err != nil {
		respondError(w, r, err)
		return
	}
	until, err := queryInt64(r, "until")
	if err != nil {
		respondError(w, r, err)
		return
	}

	params := searchParams{
		Q:          r.URL.Query().Get("q"),
		Types:      queryList(r, "types"),
		Categories: queryList(r, "categories"),
		Severities: queryList(r, "severities"),
		Statuses:   queryList(r, "statuses"),
		Since:      since,
		Until:      until,
		Limit:      limit,
	}
	if err := validate(&params); err != nil {
		respondError(w, r, err)
		return
	}

	records, err := h.query.Search(r.Context(), auth.CallerFromContext(r.Context()), audit.SearchRequest{
		Text:       params.Q,
		Types:      convert[audit.EventType](params.Types),
		Categories: convert[audit.Category](params.Categories),
		Severities: convert[audit.Severity](params.Severities),
		Statuses:   convert[audit.Status](params.Statuses),
		Since:      params.Since,
		Until:      params.Until,
		Limit:      params.Limit,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, records, start)
}

// ComplianceSummary handles GET /api/v1/audit/compliance.
func (h *Handler) ComplianceSummary(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	since, err := queryInt64(r, "since")
	if err != nil {
		respondError(w, r, err)
		return
	}
	until, err := queryInt64(r, "until")
	if err != nil {
		respondError(w, r, err)
		return
	}
	params := complianceParams{Since: since, Until: until}
	if err := validate(&params); err != nil {
		respondError(w, r, err)
		return
	}

	summary, err := h.query.ComplianceSummary(r.Context(), auth.CallerFromContext(r.Context()), params.Since, params.Until)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, summary, start)
}
