// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package risk

import (
	"time"

	"github.com/tomtom215/auditrail/internal/audit"
)

// Factor weights.
const (
	WeightOffHours       = 10
	WeightWeekend        = 5
	WeightHighRiskEvent  = 25
	WeightAdminEvent     = 15
	WeightNewDevice      = 20
	WeightSuspiciousIP   = 30
	WeightRapidActions   = 25
	WeightGeoAnomaly     = 15
	WeightPattern        = 10
	WeightLowBehavior    = 20
	LowBehaviorThreshold = 30
)

// Score thresholds.
const (
	AnomalyThreshold  = 60
	CriticalThreshold = 80
	HighThreshold     = 60
	MediumThreshold   = 40
	MaxScore          = 100
)

// Factor descriptions recorded on assessments.
const (
	FactorOffHours          = "off-hours access"
	FactorWeekend           = "weekend access"
	FactorHighRiskEvent     = "high-risk event"
	FactorAdminEvent        = "administrative action"
	FactorNewDevice         = "new device"
	FactorSuspiciousIP      = "suspicious IP activity"
	FactorRapidActions      = "rapid successive actions"
	FactorGeoAnomaly        = "geographic anomaly"
	FactorMultipleLogins    = "multiple login attempts"
	FactorPermissionChanges = "multiple permission changes"
	FactorMassDeletion      = "mass deletion"
	FactorLowBehaviorScore  = "low user behavior score"
	FactorEvaluationError   = "risk evaluation error"
)

// Recommendations by score band.
const (
	RecommendationCritical = "immediate investigation — critical risk"
	RecommendationHigh     = "additional monitoring — high risk"
	RecommendationMedium   = "review recommended — medium risk"
)

// Minimum occurrences in recent actions for each pattern.
const (
	patternLoginThreshold      = 3
	patternPermissionThreshold = 2
	patternDeletionThreshold   = 3
)

var highRiskEvents = map[audit.EventType]struct{}{
	audit.EventTypeDelete:             {},
	audit.EventTypeAssetDelete:        {},
	audit.EventTypePermissionGrant:    {},
	audit.EventTypePermissionRevoke:   {},
	audit.EventTypeRoleChange:         {},
	audit.EventTypeSystemConfigChange: {},
	audit.EventTypeBulkOperation:      {},
}

var adminEvents = map[audit.EventType]struct{}{
	audit.EventTypePermissionGrant:    {},
	audit.EventTypePermissionRevoke:   {},
	audit.EventTypeRoleChange:         {},
	audit.EventTypeSystemConfigChange: {},
	audit.EventTypeBulkOperation:      {},
}

// tally accumulates triggered factors.
type tally struct {
	score   int
	factors []string
}

func (t *tally) add(weight int, factor string) {
	t.score += weight
	t.factors = append(t.factors, factor)
}

// timeFactors scores the action's wall-clock position in loc.
func timeFactors(t *tally, ts time.Time, loc *time.Location, startHour, endHour int) {
	local := ts.In(loc)
	if h := local.Hour(); h < startHour || h >= endHour {
		t.add(WeightOffHours, FactorOffHours)
	}
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		t.add(WeightWeekend, FactorWeekend)
	}
}

// eventFactors scores the event type. Admin events are also high-risk and
// receive both weights.
func eventFactors(t *tally, et audit.EventType) {
	if _, ok := highRiskEvents[et]; ok {
		t.add(WeightHighRiskEvent, FactorHighRiskEvent)
	}
	if _, ok := adminEvents[et]; ok {
		t.add(WeightAdminEvent, FactorAdminEvent)
	}
}

// patternFactors scores the caller-supplied recent action history.
func patternFactors(t *tally, recent []audit.EventType) {
	var logins, permissions, deletions int
	for _, et := range recent {
		switch et {
		case audit.EventTypeLogin:
			logins++
		case audit.EventTypePermissionGrant, audit.EventTypePermissionRevoke, audit.EventTypeRoleChange:
			permissions++
		case audit.EventTypeDelete, audit.EventTypeAssetDelete:
			deletions++
		}
	}
	if logins >= patternLoginThreshold {
		t.add(WeightPattern, FactorMultipleLogins)
	}
	if permissions >= patternPermissionThreshold {
		t.add(WeightPattern, FactorPermissionChanges)
	}
	if deletions >= patternDeletionThreshold {
		t.add(WeightPattern, FactorMassDeletion)
	}
}

func behaviorFactor(t *tally, score *int) {
	if score != nil && *score < LowBehaviorThreshold {
		t.add(WeightLowBehavior, FactorLowBehaviorScore)
	}
}

// Recommendation maps a final score to its advisory text, or "" below 40.
func Recommendation(score int) string {
	switch {
	case score >= CriticalThreshold:
		return RecommendationCritical
	case score >= HighThreshold:
		return RecommendationHigh
	case score >= MediumThreshold:
		return RecommendationMedium
	default:
		return ""
	}
}

// finalize clamps the tally into an assessment.
func finalize(t *tally) audit.RiskAssessment {
	score := t.score
	if score < 0 {
		score = 0
	}
	if score > MaxScore {
		score = MaxScore
	}
	factors := t.factors
	if factors == nil {
		factors = []string{}
	}
	return audit.RiskAssessment{
		Score:          score,
		Factors:        factors,
		IsAnomalous:    score > AnomalyThreshold,
		Recommendation: Recommendation(score),
	}
}

// evaluationError is the assessment returned when history cannot be read.
func evaluationError() audit.RiskAssessment {
	return audit.RiskAssessment{
		Score:       0,
		Factors:     []string{FactorEvaluationError},
		IsAnomalous: false,
	}
}
