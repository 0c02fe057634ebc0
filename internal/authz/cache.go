// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package authz

import (
	"sync"
	"time"
)

type decisionKey struct {
	subject, object, action string
}

type decision struct {
	allowed   bool
	expiresAt time.Time
}

// decisionCache holds recent enforcement results. Expired entries are
// dropped lazily; when the cache is full, a set sweeps expired entries and
// clears everything if that frees nothing.
type decisionCache struct {
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	mu    sync.RWMutex
	items map[decisionKey]decision
}

func newDecisionCache(ttl time.Duration, maxSize int) *decisionCache {
	if maxSize <= 0 {
		maxSize = 1024
	}
	return &decisionCache{
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		items:   make(map[decisionKey]decision),
	}
}

func (c *decisionCache) get(subject, object, action string) (allowed, ok bool) {
	c.mu.RLock()
	d, found := c.items[decisionKey{subject, object, action}]
	c.mu.RUnlock()

	if !found || !c.now().Before(d.expiresAt) {
		return false, false
	}
	return d.allowed, true
}

func (c *decisionCache) set(subject, object, action string, allowed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if len(c.items) >= c.maxSize {
		for k, d := range c.items {
			if !now.Before(d.expiresAt) {
				delete(c.items, k)
			}
		}
		if len(c.items) >= c.maxSize {
			c.items = make(map[decisionKey]decision)
		}
	}
	c.items[decisionKey{subject, object, action}] = decision{
		allowed:   allowed,
		expiresAt: now.Add(c.ttl),
	}
}

func (c *decisionCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *decisionCache) clear() {
	c.mu.Lock()
	c.items = make(map[decisionKey]decision)
	c.mu.Unlock()
}
