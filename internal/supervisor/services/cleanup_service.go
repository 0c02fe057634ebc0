// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package services

import (
	"context"
	"time"

	"github.com/tomtom215/auditrail/internal/audit"
	"github.com/tomtom215/auditrail/internal/logging"
	"github.com/tomtom215/auditrail/internal/metrics"
)

// DefaultCleanupInterval is how often expired records are removed.
const DefaultCleanupInterval = 6 * time.Hour

// CleanupRunner is satisfied by *audit.Lifecycle.
type CleanupRunner interface {
	CleanupExpired(ctx context.Context, caller *audit.Caller, req audit.CleanupRequest) (*audit.CleanupResult, error)
}

// CleanupSchedulerConfig configures the scheduler.
type CleanupSchedulerConfig struct {
	Interval   time.Duration
	Limit      int
	RunOnStart bool
}

// CleanupScheduler deletes expired audit records on a fixed interval. A
// failed run is logged and retried at the next tick; it never restarts the
// service.
type CleanupScheduler struct {
	runner CleanupRunner
	config CleanupSchedulerConfig
	name   string
}

// NewCleanupScheduler creates the scheduler.
func NewCleanupScheduler(runner CleanupRunner, config CleanupSchedulerConfig) *CleanupScheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultCleanupInterval
	}
	return &CleanupScheduler{
		runner: runner,
		config: config,
		name:   "cleanup-scheduler",
	}
}

// Serve implements suture.Service.
func (s *CleanupScheduler) Serve(ctx context.Context) error {
	logging.Info().
		Dur("interval", s.config.Interval).
		Int("limit", s.config.Limit).
		Msg("Audit cleanup scheduler started")

	if s.config.RunOnStart {
		s.RunOnce(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs one cleanup pass as the system caller.
func (s *CleanupScheduler) RunOnce(ctx context.Context) {
	ctx = logging.ContextWithCorrelationID(ctx, logging.GenerateCorrelationID())
	start := time.Now()

	result, err := s.runner.CleanupExpired(ctx, audit.SystemCaller(), audit.CleanupRequest{Limit: s.config.Limit})
	if err != nil {
		if ctx.Err() == nil {
			logging.Ctx(ctx).Error().Err(err).Msg("Scheduled audit cleanup failed")
		}
		return
	}
	metrics.MarkLifecycleRun("cleanup")

	logging.Ctx(ctx).Info().
		Int("candidates", result.Candidates).
		Int("deleted", result.DeletedCount).
		Int("failed", len(result.Errors)).
		Dur("duration", time.Since(start)).
		Msg("Scheduled audit cleanup complete")
}

// String implements fmt.Stringer for suture's logs.
func (s *CleanupScheduler) String() string {
	return s.name
}
