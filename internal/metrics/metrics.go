// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Audit Write Metrics
	AuditRecordsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_records_written_total",
			Help: "Total number of audit records written",
		},
		[]string{"category", "severity", "status"},
	)

	AuditWriteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_write_errors_total",
			Help: "Total number of rejected or failed audit writes",
		},
		[]string{"reason"}, // "unauthenticated", "actor_not_found", "validation", "store", "other"
	)

	// Risk Scoring Metrics
	RiskScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "audit_risk_score",
			Help:    "Distribution of computed risk scores",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	RiskAnomalies = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_risk_anomalies_total",
			Help: "Total number of risk assessments flagged as anomalous",
		},
	)

	RiskEvaluationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_risk_evaluation_errors_total",
			Help: "Total number of risk evaluations downgraded because a history read failed",
		},
		[]string{"check"}, // "new_device", "suspicious_ip", "rapid_actions", "geo"
	)

	RiskHistoryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audit_risk_history_duration_seconds",
			Help:    "Duration of historical reads performed during risk scoring",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"check"},
	)

	// Query Metrics
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audit_query_duration_seconds",
			Help:    "Duration of audit read operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Lifecycle Metrics
	LifecycleRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_lifecycle_records_total",
			Help: "Total number of records touched by lifecycle operations",
		},
		[]string{"operation", "result"}, // operation: cleanup, archive, bulk_delete, export
	)

	LifecycleLastRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "audit_lifecycle_last_run_timestamp",
			Help: "Unix timestamp of the last scheduled lifecycle run",
		},
		[]string{"operation"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Publishing Metrics
	PublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_publish_total",
			Help: "Total number of audit notifications published",
		},
		[]string{"topic", "result"}, // result: "success", "failure", "rejected"
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_clients",
			Help: "Current number of live feed websocket clients",
		},
	)

	WSMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages broadcast",
		},
		[]string{"message_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Authorization Metrics
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Total number of authorization decisions",
		},
		[]string{"object", "decision"}, // decision: "allow", "deny", "error"
	)

	AuthzCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authz_cache_hits_total",
			Help: "Total number of authorization decisions served from cache",
		},
	)
)

// RecordWrite records a successful audit write.
func RecordWrite(category, severity, status string) {
	AuditRecordsWritten.WithLabelValues(category, severity, status).Inc()
}

// RecordWriteError records a rejected or failed audit write.
func RecordWriteError(reason string) {
	AuditWriteErrors.WithLabelValues(reason).Inc()
}

// RecordRiskScore records a completed risk assessment.
func RecordRiskScore(score int, anomalous bool) {
	RiskScore.Observe(float64(score))
	if anomalous {
		RiskAnomalies.Inc()
	}
}

// RecordRiskError records a history read failure during scoring.
func RecordRiskError(check string) {
	RiskEvaluationErrors.WithLabelValues(check).Inc()
}

// RecordRiskHistory records the latency of one historical read.
func RecordRiskHistory(check string, duration time.Duration) {
	RiskHistoryDuration.WithLabelValues(check).Observe(duration.Seconds())
}

// ObserveQuery records the latency of a read operation.
func ObserveQuery(operation string, duration time.Duration) {
	QueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordLifecycle adds n records to a lifecycle outcome. Zero is ignored.
func RecordLifecycle(operation, result string, n int) {
	if n <= 0 {
		return
	}
	LifecycleRecords.WithLabelValues(operation, result).Add(float64(n))
}

// MarkLifecycleRun records the completion time of a scheduled run.
func MarkLifecycleRun(operation string) {
	LifecycleLastRun.WithLabelValues(operation).Set(float64(time.Now().Unix()))
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordPublish records a notification publish outcome.
func RecordPublish(topic, result string) {
	PublishTotal.WithLabelValues(topic, result).Inc()
}

// RecordBreakerTransition updates breaker gauges on a state change.
// States are "closed", "half-open" and "open".
func RecordBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
}

func breakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

// RecordAuthzDecision records one authorization outcome.
func RecordAuthzDecision(object string, allowed bool, err error) {
	decision := "deny"
	switch {
	case err != nil:
		decision = "error"
	case allowed:
		decision = "allow"
	}
	AuthzDecisions.WithLabelValues(object, decision).Inc()
}
