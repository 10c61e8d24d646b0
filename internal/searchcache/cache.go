// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package searchcache implements the C8 search cache: a fingerprint-keyed
// LRU of recent search results with TTL expiry and single-flight dedup of
// concurrent misses.
package searchcache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/cartographus/internal/metrics"
	"github.com/tomtom215/cartographus/internal/model"
)

// Result is a cached search payload.
type Result struct {
	Events []*model.LogEvent
}

type entry struct {
	key       string
	value     Result
	expiresAt time.Time
}

// Cache is a thread-safe LRU keyed by query fingerprint. Reads are
// bypassed (but single-flight still dedups) when Enabled is false.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	ll       *list.List
	items    map[string]*list.Element

	enabled bool // guarded by mu; Get bypasses cached reads when false
	group   singleflight.Group

	hits   int64
	misses int64
}

// New constructs a Cache with the given capacity and TTL. enabled controls
// whether Get may return a cached value; single-flight collapsing of
// concurrent misses is unaffected by it.
func New(capacity int, ttl time.Duration, enabled bool) *Cache {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Cache{
		capacity: capacity,
		ttl:      ttl,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
		enabled:  enabled,
	}
}

// Fingerprint canonicalizes a compiled query's raw text and time range into
// a stable cache key.
func Fingerprint(raw string, start, end time.Time) string {
	norm := strings.Join(strings.Fields(strings.ToLower(raw)), " ")
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%d", norm, start.UnixMilli(), end.UnixMilli())
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached result for fingerprint if present, not expired,
// and the cache is enabled.
func (c *Cache) Get(fingerprint string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		c.misses++
		return Result{}, false
	}

	el, ok := c.items[fingerprint]
	if !ok {
		c.misses++
		metrics.RecordSearchCacheMiss()
		return Result{}, false
	}
	e := el.Value.(*entry)
	if time.Now().After(e.expiresAt) {
		c.removeElement(el)
		c.misses++
		metrics.RecordSearchCacheMiss()
		return Result{}, false
	}
	c.ll.MoveToFront(el)
	c.hits++
	metrics.RecordSearchCacheHit()
	return e.value, true
}

// Set stores result under fingerprint, evicting the least-recently-used
// entry if at capacity.
func (c *Cache) Set(fingerprint string, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[fingerprint]; ok {
		e := el.Value.(*entry)
		e.value = result
		e.expiresAt = time.Now().Add(c.ttl)
		c.ll.MoveToFront(el)
		return
	}

	el := c.ll.PushFront(&entry{key: fingerprint, value: result, expiresAt: time.Now().Add(c.ttl)})
	c.items[fingerprint] = el

	if c.ll.Len() > c.capacity {
		c.removeElement(c.ll.Back())
	}
	metrics.SearchCacheSize.Set(float64(c.ll.Len()))
}

func (c *Cache) removeElement(el *list.Element) {
	c.ll.Remove(el)
	e := el.Value.(*entry)
	delete(c.items, e.key)
}

// GetOrCompute returns the cached result for fingerprint, or calls compute
// exactly once across concurrent callers sharing the same fingerprint,
// caching and returning its result.
func (c *Cache) GetOrCompute(ctx context.Context, fingerprint string, compute func(ctx context.Context) (Result, error)) (Result, error) {
	if r, ok := c.Get(fingerprint); ok {
		return cloneResult(r), nil
	}

	v, err, _ := c.group.Do(fingerprint, func() (interface{}, error) {
		r, err := compute(context.Background())
		if err != nil {
			return Result{}, err
		}
		c.Set(fingerprint, r)
		return r, nil
	})
	if err != nil {
		return Result{}, err
	}
	return cloneResult(v.(Result)), nil
}

func cloneResult(r Result) Result {
	out := make([]*model.LogEvent, len(r.Events))
	copy(out, r.Events)
	return Result{Events: out}
}

// Stats reports hit/miss counters and the derived hit ratio.
type Stats struct {
	Hits     int64
	Misses   int64
	HitRatio float64
	Size     int
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.hits + c.misses
	var ratio float64
	if total > 0 {
		ratio = float64(c.hits) / float64(total)
	}
	return Stats{Hits: c.hits, Misses: c.misses, HitRatio: ratio, Size: c.ll.Len()}
}

// SetEnabled toggles whether Get may serve cached reads.
func (c *Cache) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}
