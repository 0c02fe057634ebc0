// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package authz

import (
	"testing"
	"time"
)

func TestDecisionCache_GetSet(t *testing.T) {
	c := newDecisionCache(time.Minute, 10)

	if _, ok := c.get("master", "audit:records", "read_all"); ok {
		t.Error("empty cache returned a hit")
	}
	c.set("master", "audit:records", "read_all", true)
	c.set("user", "audit:records", "read_all", false)

	if allowed, ok := c.get("master", "audit:records", "read_all"); !ok || !allowed {
		t.Errorf("get(master) = %v, %v", allowed, ok)
	}
	if allowed, ok := c.get("user", "audit:records", "read_all"); !ok || allowed {
		t.Errorf("get(user) = %v, %v", allowed, ok)
	}
}

func TestDecisionCache_Expiry(t *testing.T) {
	now := time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)
	c := newDecisionCache(time.Minute, 10)
	c.now = func() time.Time { return now }

	c.set("partner", "audit:records", "read_scoped", true)
	now = now.Add(59 * time.Second)
	if _, ok := c.get("partner", "audit:records", "read_scoped"); !ok {
		t.Error("entry expired early")
	}
	now = now.Add(time.Second)
	if _, ok := c.get("partner", "audit:records", "read_scoped"); ok {
		t.Error("entry served after ttl")
	}
}

func TestDecisionCache_Bounded(t *testing.T) {
	now := time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)
	c := newDecisionCache(time.Minute, 3)
	c.now = func() time.Time { return now }

	c.set("a", "o", "x", true)
	c.set("b", "o", "x", true)
	now = now.Add(2 * time.Minute)
	c.set("c", "o", "x", true)
	c.set("d", "o", "x", true)

	// a and b expired and were swept to make room.
	if c.size() != 2 {
		t.Errorf("size = %d, want 2", c.size())
	}

	c.set("e", "o", "x", true)
	c.set("f", "o", "x", true)
	if c.size() > 3 {
		t.Errorf("size = %d exceeds bound", c.size())
	}
	if _, ok := c.get("f", "o", "x"); !ok {
		t.Error("latest entry missing")
	}
}

func TestDecisionCache_Clear(t *testing.T) {
	c := newDecisionCache(time.Minute, 0)
	if c.maxSize != 1024 {
		t.Errorf("maxSize = %d, want default 1024", c.maxSize)
	}
	c.set("a", "o", "x", true)
	c.clear()
	if c.size() != 0 {
		t.Errorf("size after clear = %d", c.size())
	}
}
