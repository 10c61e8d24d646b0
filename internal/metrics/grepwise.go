// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Write-behind buffer (C4) metrics.
var (
	BufferDropsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grepwise_buffer_drops_total",
		Help: "Total number of events dropped by the write-behind buffer",
	})

	BufferFlushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "grepwise_buffer_flush_duration_seconds",
		Help:    "Duration of write-behind buffer flush operations",
		Buckets: prometheus.DefBuckets,
	})

	BufferFlushBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "grepwise_buffer_flush_batch_size",
		Help:    "Number of events per flushed batch",
		Buckets: []float64{1, 10, 50, 100, 250, 500, 1000, 5000},
	})

	BufferUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "grepwise_buffer_utilization_ratio",
		Help: "Current write-behind buffer utilization (size/max)",
	})

	BufferDedupedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grepwise_buffer_deduped_total",
		Help: "Total number of events suppressed as redelivery duplicates before enqueue",
	})
)

// RecordBufferDedup increments the buffer dedup counter by one.
func RecordBufferDedup() {
	BufferDedupedTotal.Inc()
}

// RecordBufferDrop increments the buffer drop counter by one.
func RecordBufferDrop() {
	BufferDropsTotal.Inc()
}

// RecordBufferFlush records a completed flush of batchSize events.
func RecordBufferFlush(batchSize int) {
	BufferFlushBatchSize.Observe(float64(batchSize))
}

// Index store (C1) metrics.
var (
	IndexAddsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grepwise_index_adds_total",
		Help: "Total number of events added to the index, per partition",
	}, []string{"partition"})

	IndexSearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "grepwise_index_search_duration_seconds",
		Help:    "Duration of index search operations",
		Buckets: prometheus.DefBuckets,
	})

	IndexCommitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grepwise_index_commits_total",
		Help: "Total number of commit() calls, per partition",
	}, []string{"partition"})

	PartitionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "grepwise_partitions_active",
		Help: "Current number of ACTIVE partitions",
	})

	PartitionsSealed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "grepwise_partitions_sealed",
		Help: "Current number of SEALED partitions",
	})
)

// Search cache (C8) metrics.
var (
	SearchCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grepwise_search_cache_hits_total",
		Help: "Total number of search cache hits",
	})

	SearchCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grepwise_search_cache_misses_total",
		Help: "Total number of search cache misses",
	})

	SearchCacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "grepwise_search_cache_size",
		Help: "Current number of entries in the search cache",
	})
)

// RecordSearchCacheHit and RecordSearchCacheMiss track C8 hit ratio.
func RecordSearchCacheHit()  { SearchCacheHits.Inc() }
func RecordSearchCacheMiss() { SearchCacheMisses.Inc() }

// Alarm scheduler (C9) metrics.
var (
	AlarmEvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grepwise_alarm_evaluations_total",
		Help: "Total number of alarm rule evaluations",
	}, []string{"alarm_id"})

	AlarmTriggersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grepwise_alarm_triggers_total",
		Help: "Total number of AlarmEvent(TRIGGERED) emissions",
	}, []string{"alarm_id"})

	AlarmSuppressionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grepwise_alarm_suppressions_total",
		Help: "Total number of notifications suppressed by throttling",
	}, []string{"alarm_id", "channel"})

	AlarmNotifyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grepwise_alarm_notify_duration_seconds",
		Help:    "Duration of notification channel dispatch",
		Buckets: prometheus.DefBuckets,
	}, []string{"channel"})

	AlarmNotifyErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grepwise_alarm_notify_errors_total",
		Help: "Total number of failed notification dispatches",
	}, []string{"channel"})
)

// RecordAlarmNotifyDuration records the dispatch latency for a channel.
func RecordAlarmNotifyDuration(channel string, d time.Duration) {
	AlarmNotifyDuration.WithLabelValues(channel).Observe(d.Seconds())
}

// Event bus (C10) metrics.
var (
	EventBusPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grepwise_eventbus_published_total",
		Help: "Total number of events published per topic",
	}, []string{"topic"})

	EventBusLaggedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grepwise_eventbus_lagged_total",
		Help: "Total number of times a subscriber's ring buffer overran",
	}, []string{"topic"})

	EventBusSubscribers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "grepwise_eventbus_subscribers",
		Help: "Current number of active subscribers per topic",
	}, []string{"topic"})
)

// Retention worker (C11) metrics.
var (
	RetentionDeletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grepwise_retention_deleted_total",
		Help: "Total number of events deleted by retention sweeps",
	}, []string{"policy"})

	RetentionSweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "grepwise_retention_sweep_duration_seconds",
		Help:    "Duration of a full retention sweep across all policies",
		Buckets: prometheus.DefBuckets,
	})
)

// Ingestion source (C5) metrics.
var (
	IngestEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grepwise_ingest_events_total",
		Help: "Total number of events accepted per source",
	}, []string{"source_type", "source_id"})

	IngestErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grepwise_ingest_errors_total",
		Help: "Total number of transient ingestion errors per source",
	}, []string{"source_type", "source_id"})
)
