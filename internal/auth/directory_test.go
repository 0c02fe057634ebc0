// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/auditrail/internal/audit"
)

func TestMemoryDirectory(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDirectory(audit.Actor{ID: "u1", Role: audit.RoleUser, Name: "Ana"})

	got, err := d.ResolveActor(ctx, "u1")
	if err != nil || got.Name != "Ana" {
		t.Fatalf("ResolveActor(u1) = %+v, %v", got, err)
	}

	d.Put(audit.Actor{ID: "u1", Role: audit.RolePartner, Name: "Ana Tours"})
	got, _ = d.ResolveActor(ctx, "u1")
	if got.Role != audit.RolePartner {
		t.Errorf("role after Put = %s", got.Role)
	}

	d.Remove("u1")
	if _, err := d.ResolveActor(ctx, "u1"); !errors.Is(err, audit.ErrActorNotFound) {
		t.Errorf("error = %v, want ErrActorNotFound", err)
	}
}

func TestMemoryDirectory_RejectsDeletedActorWrites(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDirectory(audit.Actor{ID: "partner-1", Role: audit.RolePartner, Name: "Acme Tours"})
	w := audit.NewWriter(audit.NewMemoryStore(), audit.DefaultWriterConfig())
	w.SetActorResolver(d)

	caller := &audit.Caller{ID: "partner-1", Role: audit.RolePartner}
	if _, err := w.Write(ctx, caller, audit.WriteInput{Type: audit.EventTypeLogin}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	d.Remove("partner-1")
	if _, err := w.Write(ctx, caller, audit.WriteInput{Type: audit.EventTypeLogin}); !errors.Is(err, audit.ErrActorNotFound) {
		t.Errorf("Write() after removal error = %v, want ErrActorNotFound", err)
	}
}
