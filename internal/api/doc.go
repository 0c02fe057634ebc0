// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

/*
Package api exposes the audit read and administrative surfaces over HTTP
using the Chi router.

# Routes

Health and metrics (unauthenticated):

	GET  /api/v1/health/live
	GET  /api/v1/health/ready
	GET  /metrics

Read surface (authenticated, role-scoped by the query layer):

	GET  /api/v1/audit                            list with filters and cursor
	GET  /api/v1/audit/stats                      dashboard aggregates
	GET  /api/v1/audit/me                         caller's own activity
	GET  /api/v1/audit/search                     free text plus structured filters
	GET  /api/v1/audit/compliance                 compliance summary (master)
	GET  /api/v1/audit/resource/{type}/{id}       records for one resource
	GET  /api/v1/audit/{id}                       one record
	GET  /api/v1/audit/stream                     live anomaly and lifecycle feed (websocket)

Administrative surface (authenticated, Casbin-guarded per route):

	POST /api/v1/audit/admin/entries              manual entry
	POST /api/v1/audit/admin/bulk-delete          bulk delete with reason
	POST /api/v1/audit/admin/cleanup              expire-and-delete
	POST /api/v1/audit/admin/archive              soft archive
	GET  /api/v1/audit/admin/retention-policies   list persisted policies
	PUT  /api/v1/audit/admin/retention-policies   update one policy
	POST /api/v1/audit/admin/exports              render and store an export
	GET  /api/v1/audit/admin/permissions          effective RBAC rules

# Response Envelope

Every JSON response uses APIResponse:

	{"status": "success", "data": {...}, "metadata": {"timestamp": 1700000000000}}
	{"status": "error", "error": {"code": "ACCESS_DENIED", "message": "..."}, ...}

Sentinel errors from the audit package map to status codes in respondError:
ErrUnauthenticated and ErrActorNotFound to 401, ErrAccessDenied to 403,
ErrNotFound to 404, ErrValidation to 400, everything else to 500 with the
cause logged and withheld from the client.

# Middleware

Global: request ID, real IP, panic recovery, CORS. Per group: httprate
limits, security headers, Prometheus metrics, JWT authentication.
*/
package api
