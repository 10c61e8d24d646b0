// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/logs/search", "200"))
	RecordAPIRequest("GET", "/api/logs/search", "200", 15*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/logs/search", "200"))
	if after != before+1 {
		t.Errorf("APIRequestsTotal = %v, want %v", after, before+1)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	mid := testutil.ToFloat64(APIActiveRequests)
	if mid != before+1 {
		t.Errorf("APIActiveRequests after inc = %v, want %v", mid, before+1)
	}
	TrackActiveRequest(false)
	after := testutil.ToFloat64(APIActiveRequests)
	if after != before {
		t.Errorf("APIActiveRequests after dec = %v, want %v", after, before)
	}
}

func TestCircuitBreakerMetrics(t *testing.T) {
	CircuitBreakerState.WithLabelValues("cloud-pull").Set(1)
	if v := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("cloud-pull")); v != 1 {
		t.Errorf("CircuitBreakerState = %v, want 1", v)
	}

	before := testutil.ToFloat64(CircuitBreakerTransitions.WithLabelValues("cloud-pull", "closed", "open"))
	CircuitBreakerTransitions.WithLabelValues("cloud-pull", "closed", "open").Inc()
	after := testutil.ToFloat64(CircuitBreakerTransitions.WithLabelValues("cloud-pull", "closed", "open"))
	if after != before+1 {
		t.Errorf("CircuitBreakerTransitions = %v, want %v", after, before+1)
	}

	beforeReq := testutil.ToFloat64(CircuitBreakerRequests.WithLabelValues("cloud-pull", "success"))
	CircuitBreakerRequests.WithLabelValues("cloud-pull", "success").Inc()
	afterReq := testutil.ToFloat64(CircuitBreakerRequests.WithLabelValues("cloud-pull", "success"))
	if afterReq != beforeReq+1 {
		t.Errorf("CircuitBreakerRequests = %v, want %v", afterReq, beforeReq+1)
	}
}

func TestAppInfoGauge(t *testing.T) {
	AppInfo.WithLabelValues("1.0.0", "go1.23").Set(1)
	if v := testutil.ToFloat64(AppInfo.WithLabelValues("1.0.0", "go1.23")); v != 1 {
		t.Errorf("AppInfo = %v, want 1", v)
	}
}
