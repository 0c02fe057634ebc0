// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package risk

import (
	"context"
	"fmt"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/auditrail/internal/audit"
	"github.com/tomtom215/auditrail/internal/logging"
	"github.com/tomtom215/auditrail/internal/metrics"
)

// History windows and result bounds.
const (
	NewDeviceWindow       = 30 * 24 * time.Hour
	RapidActionWindow     = 5 * time.Minute
	SuspiciousIPSample    = 5
	SuspiciousIPThreshold = 3
	RapidActionSample     = 11
	RapidActionThreshold  = 10
)

// History check names used in metrics and logs.
const (
	CheckNewDevice    = "new_device"
	CheckSuspiciousIP = "suspicious_ip"
	CheckRapidActions = "rapid_actions"
	CheckGeo          = "geo"
)

// RecordFinder is the read access the engine needs. audit.Store satisfies it.
type RecordFinder interface {
	Query(ctx context.Context, filter audit.Filter) ([]audit.Record, error)
}

// Config holds engine settings.
type Config struct {
	// Location is the timezone business hours are evaluated in.
	Location *time.Location

	// BusinessHourStart and BusinessHourEnd bound the working day [start, end).
	BusinessHourStart int
	BusinessHourEnd   int

	// HistoryTimeout bounds all history reads of one Score call.
	HistoryTimeout time.Duration

	Breaker BreakerConfig
}

// DefaultConfig returns 08:00-18:00 server-local business hours and a two
// second history budget.
func DefaultConfig() Config {
	return Config{
		Location:          time.Local,
		BusinessHourStart: 8,
		BusinessHourEnd:   18,
		HistoryTimeout:    2 * time.Second,
		Breaker:           DefaultBreakerConfig(),
	}
}

// Engine computes risk assessments. It is safe for concurrent use.
type Engine struct {
	finder  RecordFinder
	mu      sync.RWMutex
	geo     GeoLocator
	breaker *gobreaker.CircuitBreaker[[]audit.Record]
	config  Config
	now     func() time.Time
}

// NewEngine creates an engine reading history from finder.
func NewEngine(finder RecordFinder, cfg Config) *Engine {
	defaults := DefaultConfig()
	if cfg.Location == nil {
		cfg.Location = defaults.Location
	}
	if cfg.BusinessHourEnd <= cfg.BusinessHourStart {
		cfg.BusinessHourStart, cfg.BusinessHourEnd = defaults.BusinessHourStart, defaults.BusinessHourEnd
	}
	if cfg.HistoryTimeout <= 0 {
		cfg.HistoryTimeout = defaults.HistoryTimeout
	}
	if cfg.Breaker.MinRequests == 0 {
		cfg.Breaker = defaults.Breaker
	}

	return &Engine{
		finder:  finder,
		geo:     NoopGeoLocator{},
		breaker: newHistoryBreaker(cfg.Breaker),
		config:  cfg,
		now:     time.Now,
	}
}

// SetGeoLocator replaces the geolocation hook.
func (e *Engine) SetGeoLocator(geo GeoLocator) {
	if geo == nil {
		geo = NoopGeoLocator{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.geo = geo
}

func (e *Engine) geoLocator() GeoLocator {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.geo
}

// Score implements audit.RiskScorer. It never returns an error; a failed
// history read yields the "risk evaluation error" assessment.
func (e *Engine) Score(ctx context.Context, rc audit.RiskContext) audit.RiskAssessment {
	if rc.Timestamp.IsZero() {
		rc.Timestamp = e.now()
	}

	t := &tally{}
	timeFactors(t, rc.Timestamp, e.config.Location, e.config.BusinessHourStart, e.config.BusinessHourEnd)
	eventFactors(t, rc.EventType)

	hist, err := e.history(ctx, rc)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("actor_id", rc.ActorID).
			Str("event_type", string(rc.EventType)).
			Msg("Risk evaluation failed, recording zero score")
		return evaluationError()
	}
	if hist.newDevice {
		t.add(WeightNewDevice, FactorNewDevice)
	}
	if hist.suspiciousIP {
		t.add(WeightSuspiciousIP, FactorSuspiciousIP)
	}
	if hist.rapidActions {
		t.add(WeightRapidActions, FactorRapidActions)
	}
	if hist.geoAnomaly {
		t.add(WeightGeoAnomaly, FactorGeoAnomaly)
	}

	patternFactors(t, rc.RecentActions)
	behaviorFactor(t, rc.BehaviorScore)

	assessment := finalize(t)
	metrics.RecordRiskScore(assessment.Score, assessment.IsAnomalous)
	return assessment
}

// historyResult holds the outcome of each history check.
type historyResult struct {
	newDevice    bool
	suspiciousIP bool
	rapidActions bool
	geoAnomaly   bool
}

// history runs the independent history checks concurrently. The first
// failure cancels the rest.
func (e *Engine) history(ctx context.Context, rc audit.RiskContext) (*historyResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.HistoryTimeout)
	defer cancel()

	var res historyResult
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		res.newDevice, err = e.checkNewDevice(gctx, rc)
		return err
	})
	g.Go(func() (err error) {
		res.suspiciousIP, err = e.checkSuspiciousIP(gctx, rc)
		return err
	})
	g.Go(func() (err error) {
		res.rapidActions, err = e.checkRapidActions(gctx, rc)
		return err
	})
	g.Go(func() (err error) {
		res.geoAnomaly, err = e.checkGeo(gctx, rc)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &res, nil
}

// find runs one bounded read through the circuit breaker.
func (e *Engine) find(ctx context.Context, check string, filter audit.Filter) ([]audit.Record, error) {
	start := time.Now()
	records, err := e.breaker.Execute(func() ([]audit.Record, error) {
		return e.finder.Query(ctx, filter)
	})
	metrics.RecordRiskHistory(check, time.Since(start))
	if err != nil {
		metrics.RecordRiskError(check)
		return nil, fmt.Errorf("%s check: %w", check, err)
	}
	return records, nil
}

// checkNewDevice reports whether the actor has not used this user agent in
// the last 30 days. An empty user agent never triggers.
func (e *Engine) checkNewDevice(ctx context.Context, rc audit.RiskContext) (bool, error) {
	if rc.UserAgent == "" || rc.ActorID == "" {
		return false, nil
	}
	records, err := e.find(ctx, CheckNewDevice, audit.Filter{
		ActorID:        rc.ActorID,
		ActorUserAgent: rc.UserAgent,
		Since:          audit.ToMillis(rc.Timestamp.Add(-NewDeviceWindow)),
		Limit:          1,
	})
	if err != nil {
		return false, err
	}
	return len(records) == 0, nil
}

// checkSuspiciousIP reports whether the IP has recent repeated failures.
func (e *Engine) checkSuspiciousIP(ctx context.Context, rc audit.RiskContext) (bool, error) {
	if rc.IP == "" {
		return false, nil
	}
	records, err := e.find(ctx, CheckSuspiciousIP, audit.Filter{
		SourceIP: rc.IP,
		Statuses: []audit.Status{audit.StatusFailure},
		Limit:    SuspiciousIPSample,
	})
	if err != nil {
		return false, err
	}
	return len(records) >= SuspiciousIPThreshold, nil
}

// checkRapidActions reports whether the actor exceeded the action rate in
// the last five minutes.
func (e *Engine) checkRapidActions(ctx context.Context, rc audit.RiskContext) (bool, error) {
	if rc.ActorID == "" {
		return false, nil
	}
	records, err := e.find(ctx, CheckRapidActions, audit.Filter{
		ActorID: rc.ActorID,
		Since:   audit.ToMillis(rc.Timestamp.Add(-RapidActionWindow)),
		Limit:   RapidActionSample,
	})
	if err != nil {
		return false, err
	}
	return len(records) > RapidActionThreshold, nil
}

func (e *Engine) checkGeo(ctx context.Context, rc audit.RiskContext) (bool, error) {
	anomalous, err := e.geoLocator().IsAnomalous(ctx, rc.ActorID, rc.IP)
	if err != nil {
		metrics.RecordRiskError(CheckGeo)
		return false, fmt.Errorf("%s check: %w", CheckGeo, err)
	}
	return anomalous, nil
}
