// Waypointd - Location Event Ingestion and History
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypointd

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIngestsTotalIncrement(t *testing.T) {
	before := testutil.ToFloat64(IngestsTotal.WithLabelValues(OutcomeRecorded))
	IngestsTotal.WithLabelValues(OutcomeRecorded).Inc()
	after := testutil.ToFloat64(IngestsTotal.WithLabelValues(OutcomeRecorded))

	if after != before+1 {
		t.Errorf("counter did not increment: before=%v after=%v", before, after)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/v1/locations", "200"))
	RecordAPIRequest("POST", "/api/v1/locations", 200, 5*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/v1/locations", "200"))

	if after != before+1 {
		t.Errorf("api counter did not increment: before=%v after=%v", before, after)
	}
}

func TestCircuitBreakerStateGauge(t *testing.T) {
	CircuitBreakerState.WithLabelValues("test-breaker").Set(2)
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("test-breaker")); got != 2 {
		t.Errorf("gauge = %v, want 2", got)
	}
}
