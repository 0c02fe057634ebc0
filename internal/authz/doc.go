// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

// Package authz decides which audit operations a caller role may perform,
// using Casbin.
//
// The query and lifecycle services ask an audit.Authorizer before every read
// or administrative operation. Enforcer is the Casbin-backed implementation;
// audit.StaticAuthorizer is the fallback with the same table compiled in.
//
// # Model
//
//	[request_definition]
//	r = sub, obj, act
//
//	[policy_definition]
//	p = sub, obj, act
//
//	[role_definition]
//	g = _, _
//
//	[policy_effect]
//	e = some(where (p.eft == allow))
//
//	[matchers]
//	m = (g(r.sub, p.sub) || p.sub == "*") && keyMatch(r.obj, p.obj) && (r.act == p.act || p.act == "*")
//
// Subjects are audit roles. A "*" subject grants every role and a "*" action
// grants every action on the object.
//
// # Default policy
//
//	p, master, audit:*, *
//	p, partner, audit:records, read_scoped
//	p, *, audit:own, read
//	p, system, audit:admin, cleanup
//	p, system, audit:admin, archive
//
// Model and policy are embedded; Config.ModelPath and Config.PolicyPath
// override them with files, and Reload rereads the policy file.
//
// # Usage
//
//	enforcer, err := authz.NewEnforcer(authz.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	queries := audit.NewQueryService(store, enforcer)
//
//	mw := authz.NewMiddleware(enforcer, writeError)
//	r.With(mw.Require(audit.ObjectAdmin, "cleanup")).Post("/cleanup", h.Cleanup)
//
// Decisions are cached per (role, object, action) for Config.CacheTTL and the
// cache is cleared on any policy change.
package authz
