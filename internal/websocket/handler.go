// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package websocket

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/auditrail/internal/audit"
	"github.com/tomtom215/auditrail/internal/auth"
	"github.com/tomtom215/auditrail/internal/logging"
)

// Handler upgrades authenticated requests to the live feed.
type Handler struct {
	hub      *Hub
	authz    audit.Authorizer
	origins  []string
	upgrader websocket.Upgrader
}

// NewHandler creates the upgrade handler. origins is the allowed Origin
// list; "*" allows any origin.
func NewHandler(hub *Hub, authz audit.Authorizer, origins []string) *Handler {
	h := &Handler{hub: hub, authz: authz, origins: origins}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
	return h
}

// ServeHTTP authorizes the caller and hands the connection to the hub.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFromContext(r.Context())
	scope, err := ScopeFor(h.authz, caller)
	if err != nil {
		status := http.StatusForbidden
		switch {
		case errors.Is(err, audit.ErrUnauthenticated):
			status = http.StatusUnauthorized
		case !errors.Is(err, audit.ErrAccessDenied):
			status = http.StatusInternalServerError
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		logging.Ctx(r.Context()).Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(h.hub, conn, caller.ID, scope)
	h.hub.Register <- client
	client.Start()
}

// checkOrigin rejects requests without an Origin header; browsers always
// send one on WebSocket handshakes.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("websocket connection rejected: missing Origin header")
		return false
	}
	for _, allowed := range h.origins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", origin).Msg("websocket connection rejected from unauthorized origin")
	return false
}
