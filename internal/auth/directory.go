// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/tomtom215/auditrail/internal/audit"
)

// MemoryDirectory is an in-memory audit.ActorResolver.
type MemoryDirectory struct {
	mu     sync.RWMutex
	actors map[string]audit.Actor
}

var _ audit.ActorResolver = (*MemoryDirectory)(nil)

// NewMemoryDirectory creates a directory seeded with actors.
func NewMemoryDirectory(actors ...audit.Actor) *MemoryDirectory {
	d := &MemoryDirectory{actors: make(map[string]audit.Actor, len(actors))}
	for _, a := range actors {
		d.actors[a.ID] = a
	}
	return d
}

// Put adds or replaces an actor.
func (d *MemoryDirectory) Put(actor audit.Actor) {
	d.mu.Lock()
	d.actors[actor.ID] = actor
	d.mu.Unlock()
}

// Remove deletes an actor. Later writes by it fail with ErrActorNotFound.
func (d *MemoryDirectory) Remove(id string) {
	d.mu.Lock()
	delete(d.actors, id)
	d.mu.Unlock()
}

// ResolveActor implements audit.ActorResolver.
func (d *MemoryDirectory) ResolveActor(_ context.Context, id string) (*audit.Actor, error) {
	d.mu.RLock()
	actor, ok := d.actors[id]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", audit.ErrActorNotFound, id)
	}
	return &actor, nil
}
