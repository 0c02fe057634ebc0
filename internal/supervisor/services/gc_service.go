// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package services

import (
	"context"
	"time"

	"github.com/tomtom215/auditrail/internal/logging"
)

// GarbageCollector is satisfied by *retention.BadgerStore.
type GarbageCollector interface {
	RunGC() error
}

// GCService periodically reclaims Badger value log space.
type GCService struct {
	gc       GarbageCollector
	interval time.Duration
	name     string
}

// NewGCService creates the service. A non-positive interval means 10m.
func NewGCService(gc GarbageCollector, interval time.Duration) *GCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &GCService{gc: gc, interval: interval, name: "retention-gc"}
}

// Serve implements suture.Service.
func (s *GCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.gc.RunGC(); err != nil {
				logging.Warn().Err(err).Msg("Retention store GC failed")
			}
		}
	}
}

// String implements fmt.Stringer for suture's logs.
func (s *GCService) String() string {
	return s.name
}
