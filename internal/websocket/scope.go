// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package websocket

import (
	"fmt"

	"github.com/tomtom215/auditrail/internal/audit"
)

// Scope restricts which records a client receives.
type Scope struct {
	All       bool
	PartnerID string
	ActorID   string
}

// ScopeFor resolves the caller's feed scope.
func ScopeFor(authz audit.Authorizer, caller *audit.Caller) (Scope, error) {
	if caller == nil || caller.ID == "" {
		return Scope{}, audit.ErrUnauthenticated
	}
	role := string(caller.Role)

	allowed, err := authz.Enforce(role, audit.ObjectRecords, audit.ActionReadAll)
	if err != nil {
		return Scope{}, fmt.Errorf("authorization check failed: %w", err)
	}
	if allowed {
		return Scope{All: true}, nil
	}

	allowed, err = authz.Enforce(role, audit.ObjectRecords, audit.ActionReadScoped)
	if err != nil {
		return Scope{}, fmt.Errorf("authorization check failed: %w", err)
	}
	if allowed {
		return Scope{PartnerID: caller.ID}, nil
	}

	allowed, err = authz.Enforce(role, audit.ObjectOwn, audit.ActionRead)
	if err != nil {
		return Scope{}, fmt.Errorf("authorization check failed: %w", err)
	}
	if allowed {
		return Scope{ActorID: caller.ID}, nil
	}
	return Scope{}, fmt.Errorf("%w: role %q cannot watch the audit feed", audit.ErrAccessDenied, caller.Role)
}

// Allows reports whether a record may be sent under this scope.
func (s Scope) Allows(r *audit.Record) bool {
	switch {
	case r == nil:
		return false
	case s.All:
		return true
	case s.PartnerID != "":
		return audit.InPartnerScope(r, s.PartnerID)
	case s.ActorID != "":
		return r.Actor.ID == s.ActorID
	default:
		return false
	}
}
