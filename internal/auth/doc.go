// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

// Package auth establishes who is calling the audit API.
//
// Identity management lives outside this service: an upstream identity
// provider issues HS256 JWTs carrying the caller's id, role, display name
// and email. TokenManager verifies those tokens (and issues them, for tests
// and service-to-service calls), and Middleware turns a verified token into
// an *audit.Caller stored on the request context.
//
// Token claims:
//
//	{
//	  "sub":   "partner-17",
//	  "role":  "partner",
//	  "name":  "Acme Tours",
//	  "email": "ops@acme.test",
//	  "iss":   "auditrail",
//	  "exp":   1710345600
//	}
//
// Tokens are read from the Authorization header ("Bearer <token>"), then the
// "token" cookie. WebSocket upgrades may also pass the token in the
// access_token query parameter, since browsers cannot set headers on them.
//
// MemoryDirectory is an in-process audit.ActorResolver for deployments that
// mirror their identity store into the service.
package auth
