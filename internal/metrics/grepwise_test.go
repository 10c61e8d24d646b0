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

func TestRecordBufferDrop(t *testing.T) {
	before := testutil.ToFloat64(BufferDropsTotal)
	RecordBufferDrop()
	after := testutil.ToFloat64(BufferDropsTotal)
	if after != before+1 {
		t.Errorf("BufferDropsTotal = %v, want %v", after, before+1)
	}
}

func TestRecordBufferFlush(t *testing.T) {
	RecordBufferFlush(250)
	// BufferFlushBatchSize is a histogram; just confirm no panic.
}

func TestRecordSearchCacheHitMiss(t *testing.T) {
	beforeHits := testutil.ToFloat64(SearchCacheHits)
	beforeMisses := testutil.ToFloat64(SearchCacheMisses)

	RecordSearchCacheHit()
	RecordSearchCacheMiss()

	if testutil.ToFloat64(SearchCacheHits) != beforeHits+1 {
		t.Errorf("SearchCacheHits not incremented")
	}
	if testutil.ToFloat64(SearchCacheMisses) != beforeMisses+1 {
		t.Errorf("SearchCacheMisses not incremented")
	}
}

func TestRecordAlarmNotifyDuration(t *testing.T) {
	RecordAlarmNotifyDuration("email", 20*time.Millisecond)
	RecordAlarmNotifyDuration("webhook", 5*time.Millisecond)
}

func TestIngestEventsAndErrorsCounters(t *testing.T) {
	before := testutil.ToFloat64(IngestEventsTotal.WithLabelValues("file_tail", "app-log"))
	IngestEventsTotal.WithLabelValues("file_tail", "app-log").Inc()
	after := testutil.ToFloat64(IngestEventsTotal.WithLabelValues("file_tail", "app-log"))
	if after != before+1 {
		t.Errorf("IngestEventsTotal = %v, want %v", after, before+1)
	}

	beforeErr := testutil.ToFloat64(IngestErrorsTotal.WithLabelValues("syslog", "syslog-main"))
	IngestErrorsTotal.WithLabelValues("syslog", "syslog-main").Inc()
	afterErr := testutil.ToFloat64(IngestErrorsTotal.WithLabelValues("syslog", "syslog-main"))
	if afterErr != beforeErr+1 {
		t.Errorf("IngestErrorsTotal = %v, want %v", afterErr, beforeErr+1)
	}
}

func TestPartitionGauges(t *testing.T) {
	before := testutil.ToFloat64(PartitionsActive)
	PartitionsActive.Inc()
	if testutil.ToFloat64(PartitionsActive) != before+1 {
		t.Errorf("PartitionsActive not incremented")
	}
	PartitionsActive.Dec()
	if testutil.ToFloat64(PartitionsActive) != before {
		t.Errorf("PartitionsActive not decremented back")
	}

	beforeSealed := testutil.ToFloat64(PartitionsSealed)
	PartitionsSealed.Inc()
	if testutil.ToFloat64(PartitionsSealed) != beforeSealed+1 {
		t.Errorf("PartitionsSealed not incremented")
	}
	PartitionsSealed.Dec()
}

func TestIndexCounters(t *testing.T) {
	before := testutil.ToFloat64(IndexAddsTotal.WithLabelValues("p-1"))
	IndexAddsTotal.WithLabelValues("p-1").Inc()
	if testutil.ToFloat64(IndexAddsTotal.WithLabelValues("p-1")) != before+1 {
		t.Errorf("IndexAddsTotal not incremented")
	}

	beforeCommits := testutil.ToFloat64(IndexCommitsTotal.WithLabelValues("p-1"))
	IndexCommitsTotal.WithLabelValues("p-1").Inc()
	if testutil.ToFloat64(IndexCommitsTotal.WithLabelValues("p-1")) != beforeCommits+1 {
		t.Errorf("IndexCommitsTotal not incremented")
	}
}

func TestEventBusCounters(t *testing.T) {
	before := testutil.ToFloat64(EventBusPublishedTotal.WithLabelValues("logs"))
	EventBusPublishedTotal.WithLabelValues("logs").Inc()
	after := testutil.ToFloat64(EventBusPublishedTotal.WithLabelValues("logs"))
	if after != before+1 {
		t.Errorf("EventBusPublishedTotal = %v, want %v", after, before+1)
	}

	beforeLag := testutil.ToFloat64(EventBusLaggedTotal.WithLabelValues("logs"))
	EventBusLaggedTotal.WithLabelValues("logs").Inc()
	if testutil.ToFloat64(EventBusLaggedTotal.WithLabelValues("logs")) != beforeLag+1 {
		t.Errorf("EventBusLaggedTotal not incremented")
	}

	EventBusSubscribers.WithLabelValues("logs").Set(3)
	if v := testutil.ToFloat64(EventBusSubscribers.WithLabelValues("logs")); v != 3 {
		t.Errorf("EventBusSubscribers = %v, want 3", v)
	}
}

func TestRetentionMetrics(t *testing.T) {
	RetentionSweepDuration.Observe(0.5)

	before := testutil.ToFloat64(RetentionDeletedTotal.WithLabelValues("default"))
	RetentionDeletedTotal.WithLabelValues("default").Add(42)
	after := testutil.ToFloat64(RetentionDeletedTotal.WithLabelValues("default"))
	if after != before+42 {
		t.Errorf("RetentionDeletedTotal = %v, want %v", after, before+42)
	}
}

func TestAlarmCounters(t *testing.T) {
	before := testutil.ToFloat64(AlarmEvaluationsTotal.WithLabelValues("alarm-1"))
	AlarmEvaluationsTotal.WithLabelValues("alarm-1").Inc()
	if testutil.ToFloat64(AlarmEvaluationsTotal.WithLabelValues("alarm-1")) != before+1 {
		t.Errorf("AlarmEvaluationsTotal not incremented")
	}

	beforeTrig := testutil.ToFloat64(AlarmTriggersTotal.WithLabelValues("alarm-1"))
	AlarmTriggersTotal.WithLabelValues("alarm-1").Inc()
	if testutil.ToFloat64(AlarmTriggersTotal.WithLabelValues("alarm-1")) != beforeTrig+1 {
		t.Errorf("AlarmTriggersTotal not incremented")
	}

	beforeSupp := testutil.ToFloat64(AlarmSuppressionsTotal.WithLabelValues("alarm-1", "email"))
	AlarmSuppressionsTotal.WithLabelValues("alarm-1", "email").Inc()
	if testutil.ToFloat64(AlarmSuppressionsTotal.WithLabelValues("alarm-1", "email")) != beforeSupp+1 {
		t.Errorf("AlarmSuppressionsTotal not incremented")
	}

	beforeNotifyErr := testutil.ToFloat64(AlarmNotifyErrors.WithLabelValues("email"))
	AlarmNotifyErrors.WithLabelValues("email").Inc()
	if testutil.ToFloat64(AlarmNotifyErrors.WithLabelValues("email")) != beforeNotifyErr+1 {
		t.Errorf("AlarmNotifyErrors not incremented")
	}
}
