// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package searchcache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/cartographus/internal/model"
)

func TestSetThenGetHits(t *testing.T) {
	c := New(10, time.Minute, true)
	fp := Fingerprint("error", time.Time{}, time.Time{})
	c.Set(fp, Result{Events: []*model.LogEvent{{ID: "1"}}})

	r, ok := c.Get(fp)
	if !ok || len(r.Events) != 1 {
		t.Fatalf("Get() = %+v, %v, want a hit with 1 event", r, ok)
	}
}

func TestGetMissExpired(t *testing.T) {
	c := New(10, time.Millisecond, true)
	fp := Fingerprint("error", time.Time{}, time.Time{})
	c.Set(fp, Result{Events: []*model.LogEvent{{ID: "1"}}})
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get(fp); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestDisabledCacheBypassesReads(t *testing.T) {
	c := New(10, time.Minute, false)
	fp := Fingerprint("error", time.Time{}, time.Time{})
	c.Set(fp, Result{Events: []*model.LogEvent{{ID: "1"}}})

	if _, ok := c.Get(fp); ok {
		t.Error("expected disabled cache to report a miss")
	}
}

func TestEvictsLeastRecentlyUsedAtCapacity(t *testing.T) {
	c := New(2, time.Minute, true)
	c.Set("a", Result{})
	c.Set("b", Result{})
	c.Set("c", Result{})

	if _, ok := c.Get("a"); ok {
		t.Error("expected oldest entry to be evicted at capacity")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected most recent entry to still be present")
	}
}

func TestGetOrComputeSingleFlight(t *testing.T) {
	c := New(10, time.Minute, true)
	var calls int64
	compute := func(ctx context.Context) (Result, error) {
		atomic.AddInt64(&calls, 1)
		time.Sleep(10 * time.Millisecond)
		return Result{Events: []*model.LogEvent{{ID: "x"}}}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := c.GetOrCompute(context.Background(), "fp", compute)
			if err != nil || len(r.Events) != 1 {
				t.Errorf("GetOrCompute() = %+v, %v", r, err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Errorf("compute was called %d times, want exactly 1", got)
	}
}

func TestStatsHitRatio(t *testing.T) {
	c := New(10, time.Minute, true)
	fp := Fingerprint("error", time.Time{}, time.Time{})
	c.Set(fp, Result{})
	c.Get(fp)
	c.Get("missing")

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 {
		t.Errorf("Stats() = %+v, want Hits=1 Misses=1", s)
	}
	if s.HitRatio != 0.5 {
		t.Errorf("HitRatio = %v, want 0.5", s.HitRatio)
	}
}
