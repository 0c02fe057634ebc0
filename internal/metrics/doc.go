// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered on the default registry through promauto and
exposed at /metrics by the API router.

# Available Metrics

Audit Write Metrics:
  - audit_records_written_total: Records appended (counter)
    Labels: category, severity, status
  - audit_write_errors_total: Rejected or failed writes (counter)
    Labels: reason

Risk Metrics:
  - audit_risk_score: Score distribution (histogram, buckets of 10)
  - audit_risk_anomalies_total: Anomalous assessments (counter)
  - audit_risk_evaluation_errors_total: History read failures (counter)
    Labels: check
  - audit_risk_history_duration_seconds: History read latency (histogram)
    Labels: check

Query and Lifecycle Metrics:
  - audit_query_duration_seconds: Read latency (histogram)
    Labels: operation
  - audit_lifecycle_records_total: Records touched by lifecycle batches (counter)
    Labels: operation, result
  - audit_lifecycle_last_run_timestamp: Last scheduled run (gauge)
    Labels: operation

HTTP, Publishing and WebSocket Metrics:
  - api_requests_total, api_request_duration_seconds, api_active_requests
  - audit_publish_total: Notification publishes (counter)
    Labels: topic, result
  - websocket_clients, websocket_messages_sent_total

Circuit Breaker and Authorization Metrics:
  - circuit_breaker_state: 0=closed, 1=half-open, 2=open (gauge)
  - circuit_breaker_state_transitions_total (counter)
  - authz_decisions_total: Labels object, decision
  - authz_cache_hits_total

# Alerting Example

	- alert: AuditAnomalySpike
	  expr: rate(audit_risk_anomalies_total[5m]) > 1
	  for: 10m

	- alert: CircuitBreakerOpen
	  expr: circuit_breaker_state > 1
	  for: 2m
*/
package metrics
