// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package buffer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/cartographus/internal/model"
)

type recordingSink struct {
	mu    sync.Mutex
	fail  bool
	calls int
	total int
}

func (s *recordingSink) Flush(ctx context.Context, events []*model.LogEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return context.DeadlineExceeded
	}
	s.calls++
	s.total += len(events)
	return nil
}

func (s *recordingSink) snapshot() (calls, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls, s.total
}

func TestEnqueueAccepted(t *testing.T) {
	sink := &recordingSink{}
	b := New(Config{MaxSize: 10, BatchSize: 5, FlushInterval: time.Hour}, sink)

	for i := 0; i < 5; i++ {
		if got := b.Enqueue(model.NewLogEvent("s", "line")); got != Accepted {
			t.Fatalf("Enqueue() = %v, want Accepted", got)
		}
	}
	if stats := b.Stats(); stats.Size != 5 {
		t.Errorf("Stats().Size = %d, want 5", stats.Size)
	}
}

func TestEnqueueDropOldestAtCapacity(t *testing.T) {
	sink := &recordingSink{}
	b := New(Config{MaxSize: 3, BatchSize: 5, FlushInterval: time.Hour, Policy: PolicyDropOldest}, sink)

	for i := 0; i < 5; i++ {
		b.Enqueue(model.NewLogEvent("s", "line"))
	}
	stats := b.Stats()
	if stats.Size != 3 {
		t.Errorf("Stats().Size = %d, want 3", stats.Size)
	}
	if stats.Dropped != 2 {
		t.Errorf("Stats().Dropped = %d, want 2", stats.Dropped)
	}
}

func TestFlushOnceDrainsBatch(t *testing.T) {
	sink := &recordingSink{}
	b := New(Config{MaxSize: 100, BatchSize: 4, FlushInterval: time.Hour}, sink)

	for i := 0; i < 10; i++ {
		b.Enqueue(model.NewLogEvent("s", "line"))
	}
	b.flushOnce(context.Background())

	calls, total := sink.snapshot()
	if calls != 1 || total != 4 {
		t.Errorf("after one flushOnce: calls=%d total=%d, want 1,4", calls, total)
	}
	if stats := b.Stats(); stats.Size != 6 {
		t.Errorf("Stats().Size = %d, want 6", stats.Size)
	}
}

func TestFlushOnceRequeuesOnError(t *testing.T) {
	sink := &recordingSink{fail: true}
	b := New(Config{MaxSize: 100, BatchSize: 4, FlushInterval: time.Hour}, sink)

	for i := 0; i < 4; i++ {
		b.Enqueue(model.NewLogEvent("s", "line"))
	}
	b.flushOnce(context.Background())

	if stats := b.Stats(); stats.Size != 4 {
		t.Errorf("Stats().Size = %d after failed flush, want 4 (requeued)", stats.Size)
	}
	if stats := b.Stats(); stats.FlushErrors != 1 {
		t.Errorf("Stats().FlushErrors = %d, want 1", stats.FlushErrors)
	}
}

func TestCloseDrainsRemainingEvents(t *testing.T) {
	sink := &recordingSink{}
	b := New(Config{MaxSize: 100, BatchSize: 4, FlushInterval: time.Hour, DrainTimeout: 2 * time.Second}, sink)
	b.Start(context.Background())

	for i := 0; i < 10; i++ {
		b.Enqueue(model.NewLogEvent("s", "line"))
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	_, total := sink.snapshot()
	if total != 10 {
		t.Errorf("total flushed = %d, want 10", total)
	}
}

func TestHealthyReportsDownAfterSustainedOverUtilization(t *testing.T) {
	sink := &recordingSink{}
	b := New(Config{MaxSize: 10, BatchSize: 5, FlushInterval: time.Hour, UtilizationLimit: 0.5, WarnStreak: 10 * time.Millisecond}, sink)

	for i := 0; i < 6; i++ {
		b.Enqueue(model.NewLogEvent("s", "line"))
	}
	if !b.healthy() {
		t.Error("expected healthy immediately after crossing the limit (streak not yet elapsed)")
	}
	time.Sleep(20 * time.Millisecond)
	if b.healthy() {
		t.Error("expected unhealthy after the warn streak elapses while over utilization")
	}
}
