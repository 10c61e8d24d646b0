// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package buffer implements the bounded write-behind queue that sits between
// ingestion sources and the indexing pipeline: events are enqueued
// non-blocking (subject to the configured overflow policy) and drained in
// batches by a background flusher.
package buffer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/cartographus/internal/cache"
	"github.com/tomtom215/cartographus/internal/logging"
	"github.com/tomtom215/cartographus/internal/metrics"
	"github.com/tomtom215/cartographus/internal/model"
)

// Policy controls what happens when the buffer is at capacity.
type Policy string

const (
	PolicyBackpressure Policy = "BACKPRESSURE"
	PolicyDropOldest   Policy = "DROP_OLDEST"
)

// EnqueueResult reports the outcome of a single Enqueue call.
type EnqueueResult int

const (
	Accepted EnqueueResult = iota
	Dropped
	Deduped
)

// Sink receives flushed batches. It is expected to run field extraction,
// route events to the correct partitions and commit each touched partition;
// a non-nil error leaves the batch's fate to the caller's retry policy.
type Sink interface {
	Flush(ctx context.Context, events []*model.LogEvent) error
}

// Config configures a Buffer.
type Config struct {
	MaxSize          int
	BatchSize        int
	FlushInterval    time.Duration
	EnqueueTimeout   time.Duration
	DrainTimeout     time.Duration
	Policy           Policy
	WarnStreak       time.Duration
	UtilizationLimit float64

	// DedupWindow, when positive, suppresses events that look identical
	// (same source + raw content) to one already enqueued within this
	// window — a best-effort guard against at-least-once ingestion
	// sources (cloud-pull retries, syslog redelivery) double-enqueuing
	// the same record with a freshly generated ID. Zero disables it; this
	// is never a substitute for exactly-once delivery, which the system
	// does not guarantee.
	DedupWindow   time.Duration
	DedupCapacity int
}

// DefaultConfig returns sane defaults matching the reference deployment.
func DefaultConfig() Config {
	return Config{
		MaxSize:          10000,
		BatchSize:        500,
		FlushInterval:    2 * time.Second,
		EnqueueTimeout:   500 * time.Millisecond,
		DrainTimeout:     10 * time.Second,
		Policy:           PolicyBackpressure,
		WarnStreak:       5 * time.Second,
		UtilizationLimit: 0.8,
	}
}

// Stats is a snapshot of runtime counters.
type Stats struct {
	Size        int
	Max         int
	Utilization float64
	Accepted    int64
	Dropped     int64
	Deduped     int64
	Flushed     int64
	FlushCount  int64
	FlushErrors int64
	Healthy     bool
}

// Buffer is a bounded FIFO of LogEvents with a background flusher. Safe for
// concurrent Enqueue from many ingestion goroutines.
type Buffer struct {
	cfg  Config
	sink Sink

	mu       sync.Mutex
	notFull  *sync.Cond
	queue    []*model.LogEvent
	closed   bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	flushWg  sync.WaitGroup

	accepted    atomic.Int64
	dropped     atomic.Int64
	deduped     atomic.Int64
	flushed     atomic.Int64
	flushCount  atomic.Int64
	flushErrors atomic.Int64

	overUtilSince atomic.Int64 // unix nanos; 0 means "not currently over"

	dedup cache.DeduplicationCache
}

// New constructs a Buffer. sink is invoked by the background flusher with
// batches up to cfg.BatchSize.
func New(cfg Config, sink Sink) *Buffer {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultConfig().MaxSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultConfig().FlushInterval
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyBackpressure
	}
	if cfg.UtilizationLimit <= 0 {
		cfg.UtilizationLimit = DefaultConfig().UtilizationLimit
	}
	b := &Buffer{
		cfg:    cfg,
		sink:   sink,
		queue:  make([]*model.LogEvent, 0, cfg.BatchSize),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	if cfg.DedupWindow > 0 {
		capacity := cfg.DedupCapacity
		if capacity <= 0 {
			capacity = cfg.MaxSize * 4
		}
		// ExactLRU, not BloomLRU: a false-positive duplicate here silently
		// discards a unique log line, which matters more than the memory
		// BloomLRU would save.
		b.dedup = cache.NewExactLRU(capacity, cfg.DedupWindow)
	}
	b.notFull = sync.NewCond(&b.mu)
	return b
}

// dedupKey identifies redelivery of the same record: source plus raw
// content, since NewLogEvent mints a fresh ID per parse even when the
// underlying bytes are an exact resend.
func dedupKey(event *model.LogEvent) string {
	return event.Source + "\x00" + event.RawContent
}

// Start launches the periodic flush loop. The returned Buffer must be
// Close()d to stop it and drain remaining events.
func (b *Buffer) Start(ctx context.Context) {
	go b.flushLoop(ctx)
}

// Enqueue adds an event to the buffer, applying the configured overflow
// policy when full. Never blocks longer than cfg.EnqueueTimeout under
// BACKPRESSURE.
func (b *Buffer) Enqueue(event *model.LogEvent) EnqueueResult {
	if b.dedup != nil && b.dedup.IsDuplicate(dedupKey(event)) {
		b.deduped.Add(1)
		metrics.RecordBufferDedup()
		return Deduped
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.dropped.Add(1)
		metrics.RecordBufferDrop()
		return Dropped
	}

	if len(b.queue) >= b.cfg.MaxSize {
		switch b.cfg.Policy {
		case PolicyDropOldest:
			b.queue = append(b.queue[1:], event)
			b.mu.Unlock()
			b.dropped.Add(1)
			metrics.RecordBufferDrop()
			return Accepted
		default: // BACKPRESSURE
			if !b.waitForSpace() {
				b.mu.Unlock()
				b.dropped.Add(1)
				metrics.RecordBufferDrop()
				return Dropped
			}
		}
	}

	b.queue = append(b.queue, event)
	size := len(b.queue)
	b.mu.Unlock()

	b.accepted.Add(1)
	b.updateUtilization(size)
	return Accepted
}

// waitForSpace blocks (mutex held on entry and exit) until the queue has
// room or cfg.EnqueueTimeout elapses. Returns false on timeout or close.
func (b *Buffer) waitForSpace() bool {
	deadline := time.Now().Add(b.cfg.EnqueueTimeout)
	for len(b.queue) >= b.cfg.MaxSize && !b.closed {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		timer := time.AfterFunc(remaining, b.notFull.Broadcast)
		b.notFull.Wait()
		timer.Stop()
	}
	return !b.closed
}

func (b *Buffer) updateUtilization(size int) {
	util := float64(size) / float64(b.cfg.MaxSize)
	if util > b.cfg.UtilizationLimit {
		b.overUtilSince.CompareAndSwap(0, time.Now().UnixNano())
	} else {
		b.overUtilSince.Store(0)
	}
}

// Stats reports current buffer health.
func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	size := len(b.queue)
	b.mu.Unlock()

	return Stats{
		Size:        size,
		Max:         b.cfg.MaxSize,
		Utilization: float64(size) / float64(b.cfg.MaxSize),
		Accepted:    b.accepted.Load(),
		Dropped:     b.dropped.Load(),
		Deduped:     b.deduped.Load(),
		Flushed:     b.flushed.Load(),
		FlushCount:  b.flushCount.Load(),
		FlushErrors: b.flushErrors.Load(),
		Healthy:     b.healthy(),
	}
}

// healthy reports false when utilization has exceeded UtilizationLimit
// continuously for at least cfg.WarnStreak.
func (b *Buffer) healthy() bool {
	since := b.overUtilSince.Load()
	if since == 0 {
		return true
	}
	return time.Since(time.Unix(0, since)) < b.cfg.WarnStreak
}

func (b *Buffer) flushLoop(ctx context.Context) {
	defer close(b.doneCh)

	ticker := time.NewTicker(b.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.stopCh:
			return
		case <-ticker.C:
			b.flushOnce(context.Background())
		}
	}
}

// flushOnce drains up to BatchSize events and hands them to the sink. On
// error, events are returned to the front of the queue for the next cycle.
func (b *Buffer) flushOnce(ctx context.Context) {
	b.mu.Lock()
	if len(b.queue) == 0 {
		b.mu.Unlock()
		return
	}
	n := b.cfg.BatchSize
	if n > len(b.queue) {
		n = len(b.queue)
	}
	batch := b.queue[:n]
	b.queue = b.queue[n:]
	b.mu.Unlock()
	b.notFull.Broadcast()

	if err := b.sink.Flush(ctx, batch); err != nil {
		b.flushErrors.Add(1)
		logging.Error().Err(err).Int("count", len(batch)).Msg("buffer flush failed, requeueing batch")
		b.mu.Lock()
		b.queue = append(batch, b.queue...)
		b.mu.Unlock()
		return
	}

	b.flushed.Add(int64(len(batch)))
	b.flushCount.Add(1)
	metrics.RecordBufferFlush(len(batch))
}

// Close stops the flush loop and drains remaining events within
// cfg.DrainTimeout, force-flushing whatever remains as a final partial
// batch.
func (b *Buffer) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()
	b.notFull.Broadcast()

	close(b.stopCh)
	<-b.doneCh

	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.DrainTimeout)
	defer cancel()

	for {
		b.mu.Lock()
		empty := len(b.queue) == 0
		b.mu.Unlock()
		if empty {
			return nil
		}
		select {
		case <-ctx.Done():
			return b.forceFlush()
		default:
			b.flushOnce(ctx)
		}
	}
}

// forceFlush drains and flushes everything remaining in one shot, ignoring
// BatchSize, used only when the drain deadline has already expired.
func (b *Buffer) forceFlush() error {
	b.mu.Lock()
	batch := b.queue
	b.queue = nil
	b.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := b.sink.Flush(ctx, batch); err != nil {
		return fmt.Errorf("force flush on shutdown: %w", err)
	}
	b.flushed.Add(int64(len(batch)))
	b.flushCount.Add(1)
	return nil
}
