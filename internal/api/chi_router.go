// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/auditrail/internal/audit"
	"github.com/tomtom215/auditrail/internal/auth"
	"github.com/tomtom215/auditrail/internal/authz"
	"github.com/tomtom215/auditrail/internal/middleware"
)

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	authn         *auth.Middleware
	authz         *authz.Middleware
	stream        http.Handler
}

// NewRouter creates a router. The authentication middleware and Casbin
// guard are built here so their failures render the API envelope.
func NewRouter(handler *Handler, tokens *auth.TokenManager, authorizer audit.Authorizer, config *ChiMiddlewareConfig) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(config),
		authn:         auth.NewMiddleware(tokens, writeAuthError),
		authz:         authz.NewMiddleware(authorizer, writeAuthError),
	}
}

// SetStreamHandler mounts the live feed upgrade handler.
func (router *Router) SetStreamHandler(h http.Handler) {
	router.stream = h
}

// SetupChi builds the route tree.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(middleware.SecurityHeaders)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	// The websocket upgrade needs the raw ResponseWriter, so it sits
	// outside the metrics wrapper.
	if router.stream != nil {
		r.With(router.chiMiddleware.RateLimit(), router.authn.Authenticate).
			Get("/api/v1/audit/stream", router.stream.ServeHTTP)
	}

	r.Route("/api/v1/audit", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(middleware.SecurityHeaders)
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.authn.Authenticate)

		r.Get("/", router.handler.List)
		r.Get("/stats", router.handler.Stats)
		r.Get("/me", router.handler.OwnActivity)
		r.Get("/search", router.handler.Search)
		r.Get("/compliance", router.handler.ComplianceSummary)
		r.Get("/resource/{type}/{id}", router.handler.GetByResource)

		r.Route("/admin", func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitAdmin())

			r.With(router.authz.Require(audit.ObjectAdmin, audit.AdminManualEntry)).
				Post("/entries", router.handler.CreateManualEntry)
			r.With(router.authz.Require(audit.ObjectAdmin, audit.AdminBulkDelete)).
				Post("/bulk-delete", router.handler.BulkDelete)
			r.With(router.authz.Require(audit.ObjectAdmin, audit.AdminCleanup)).
				Post("/cleanup", router.handler.CleanupExpired)
			r.With(router.authz.Require(audit.ObjectAdmin, audit.AdminArchive)).
				Post("/archive", router.handler.Archive)
			r.With(router.authz.Require(audit.ObjectAdmin, audit.AdminRetention)).
				Get("/retention-policies", router.handler.ListRetentionPolicies)
			r.With(router.authz.Require(audit.ObjectAdmin, audit.AdminRetention)).
				Put("/retention-policies", router.handler.UpdateRetentionPolicy)
			r.With(router.authz.Require(audit.ObjectAdmin, audit.AdminExport)).
				Post("/exports", router.handler.Export)
			r.With(router.authz.Require(audit.ObjectAdmin, "permissions")).
				Get("/permissions", router.handler.Permissions)
		})

		// Registered last so static segments above win.
		r.Get("/{id}", router.handler.GetByID)
	})

	return r
}
