// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	io_prometheus_client "github.com/prometheus/client_model/go"
)

// getCounterValue extracts the value from a Prometheus counter
func getCounterValue(counter prometheus.Counter) float64 {
	var m io_prometheus_client.Metric
	if err := counter.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// getGaugeValue extracts the value from a Prometheus gauge
func getGaugeValue(gauge prometheus.Gauge) float64 {
	var m io_prometheus_client.Metric
	if err := gauge.Write(&m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}

func TestRecordWrite(t *testing.T) {
	counter := AuditRecordsWritten.WithLabelValues("asset_management", "high", "success")
	before := getCounterValue(counter)

	RecordWrite("asset_management", "high", "success")
	RecordWrite("asset_management", "high", "success")

	if got := getCounterValue(counter) - before; got != 2 {
		t.Errorf("written delta = %v, want 2", got)
	}
}

func TestRecordWriteError(t *testing.T) {
	counter := AuditWriteErrors.WithLabelValues("validation")
	before := getCounterValue(counter)

	RecordWriteError("validation")

	if got := getCounterValue(counter) - before; got != 1 {
		t.Errorf("write error delta = %v, want 1", got)
	}
}

func TestRecordRiskScore(t *testing.T) {
	before := getCounterValue(RiskAnomalies)

	RecordRiskScore(20, false)
	if got := getCounterValue(RiskAnomalies); got != before {
		t.Errorf("anomalies = %v after non-anomalous score, want %v", got, before)
	}

	RecordRiskScore(85, true)
	if got := getCounterValue(RiskAnomalies); got != before+1 {
		t.Errorf("anomalies = %v, want %v", got, before+1)
	}
}

func TestRecordLifecycle(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		delta float64
	}{
		{"positive count", 7, 7},
		{"zero ignored", 0, 0},
		{"negative ignored", -3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := LifecycleRecords.WithLabelValues("cleanup", "deleted")
			before := getCounterValue(counter)

			RecordLifecycle("cleanup", "deleted", tt.n)

			if got := getCounterValue(counter) - before; got != tt.delta {
				t.Errorf("delta = %v, want %v", got, tt.delta)
			}
		})
	}
}

func TestRecordBreakerTransition(t *testing.T) {
	tests := []struct {
		to   string
		want float64
	}{
		{"open", 2},
		{"half-open", 1},
		{"closed", 0},
	}

	for _, tt := range tests {
		t.Run(tt.to, func(t *testing.T) {
			RecordBreakerTransition("risk-history", "closed", tt.to)
			if got := getGaugeValue(CircuitBreakerState.WithLabelValues("risk-history")); got != tt.want {
				t.Errorf("state gauge = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecordAuthzDecision(t *testing.T) {
	tests := []struct {
		name     string
		allowed  bool
		err      error
		decision string
	}{
		{"allowed", true, nil, "allow"},
		{"denied", false, nil, "deny"},
		{"error wins over allowed", true, errors.New("boom"), "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := AuthzDecisions.WithLabelValues("audit:records", tt.decision)
			before := getCounterValue(counter)

			RecordAuthzDecision("audit:records", tt.allowed, tt.err)

			if got := getCounterValue(counter) - before; got != 1 {
				t.Errorf("%s delta = %v, want 1", tt.decision, got)
			}
		})
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := getGaugeValue(APIActiveRequests)

	TrackActiveRequest(true)
	TrackActiveRequest(true)
	TrackActiveRequest(false)

	if got := getGaugeValue(APIActiveRequests); got != before+1 {
		t.Errorf("active requests = %v, want %v", got, before+1)
	}
	TrackActiveRequest(false)
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/audit", "200"))

	RecordAPIRequest("GET", "/api/v1/audit", "200", 15*time.Millisecond)

	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/audit", "200"))
	if after != before+1 {
		t.Errorf("api_requests_total = %v, want %v", after, before+1)
	}
}

func TestConcurrentRecording(t *testing.T) {
	counter := PublishTotal.WithLabelValues("audit.anomaly", "success")
	before := getCounterValue(counter)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			RecordPublish("audit.anomaly", "success")
			ObserveQuery("list", time.Millisecond)
			RecordRiskHistory("new_device", time.Millisecond)
		}()
	}
	wg.Wait()

	if got := getCounterValue(counter) - before; got != 50 {
		t.Errorf("publish delta = %v, want 50", got)
	}
}
