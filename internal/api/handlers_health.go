// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/auditrail/internal/audit"
	"github.com/tomtom215/auditrail/internal/logging"
)

// readinessTimeout bounds all readiness checks of one probe.
const readinessTimeout = 2 * time.Second

// HealthStatus is the readiness probe body.
type HealthStatus struct {
	Status        string            `json:"status"`
	Checks        map[string]string `json:"checks,omitempty"`
	UptimeSeconds int64             `json:"uptimeSeconds"`
}

// HealthLive handles GET /api/v1/health/live. It only reports that the
// process is serving.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, HealthStatus{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}, time.Now())
}

// HealthReady handles GET /api/v1/health/ready. Any failed check answers 503.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	status := HealthStatus{
		Status:        "ok",
		Checks:        make(map[string]string, len(h.checks)),
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Str("check", c.Name).Msg("Readiness check failed")
			status.Status = "degraded"
			status.Checks[c.Name] = err.Error()
			continue
		}
		status.Checks[c.Name] = "ok"
	}

	if status.Status != "ok" {
		respondJSON(w, http.StatusServiceUnavailable, &APIResponse{
			Status:   "error",
			Data:     status,
			Metadata: Metadata{Timestamp: audit.ToMillis(time.Now())},
			Error:    &APIError{Code: CodeUnavailable, Message: "one or more dependencies are unavailable"},
		})
		return
	}
	respondSuccess(w, r, http.StatusOK, status, time.Now())
}
