// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package partition owns the set of per-bucket indices, routes incoming
// batches to the right ACTIVE partition, seals partitions as new buckets
// roll over, and fans out searches across every partition overlapping a
// query's time range.
package partition

import (
	"container/heap"
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/cartographus/internal/apperr"
	"github.com/tomtom215/cartographus/internal/index"
	"github.com/tomtom215/cartographus/internal/logging"
	"github.com/tomtom215/cartographus/internal/metrics"
	"github.com/tomtom215/cartographus/internal/model"
)

// Archiver hands a sealed partition's directory off to external archival
// storage. It is an out-of-scope collaborator; a nil Archiver disables
// auto-archive regardless of config.
type Archiver interface {
	Archive(ctx context.Context, directory string, meta model.Partition) error
}

// Config configures the partition manager.
type Config struct {
	RootDir           string
	Type              model.PartitionType
	MaxActivePartitions int
	AutoArchive       bool
	IndexConfig       index.Config
}

type entry struct {
	meta   *model.Partition
	idx    *index.Index
	bucket string // time-bucket component of meta.Key, without the source suffix
}

// Manager owns every partition's index and lifecycle.
type Manager struct {
	cfg      Config
	archiver Archiver

	mu        sync.RWMutex
	entries   map[string]*entry // partitionKey -> entry
	bucketSeq []string          // time buckets in first-seen order, oldest first
}

// New constructs a Manager. archiver may be nil.
func New(cfg Config, archiver Archiver) *Manager {
	if cfg.MaxActivePartitions <= 0 {
		cfg.MaxActivePartitions = 2
	}
	return &Manager{
		cfg:      cfg,
		archiver: archiver,
		entries:  make(map[string]*entry),
	}
}

// Route buckets each event by partitionKey(event.recordTime ?? ingestTime,
// source), opening a new ACTIVE partition on first write to a bucket,
// sealing the oldest ACTIVE bucket if this roll-over exceeds
// MaxActivePartitions, writing every event, and finally committing every
// touched partition.
func (m *Manager) Route(ctx context.Context, events []*model.LogEvent) error {
	touched := make(map[string]*entry)

	for _, ev := range events {
		e, err := m.activePartitionFor(ev)
		if err != nil {
			return err
		}
		if err := e.idx.Add(ctx, ev); err != nil {
			return err
		}
		touched[e.meta.Key] = e
		metrics.IndexAddsTotal.WithLabelValues(e.meta.Key).Inc()
	}

	for key, e := range touched {
		if err := e.idx.Commit(); err != nil {
			return err
		}
		metrics.IndexCommitsTotal.WithLabelValues(key).Inc()
	}
	return nil
}

func (m *Manager) activePartitionFor(ev *model.LogEvent) (*entry, error) {
	ts := ev.EffectiveTime()
	key := partitionKey(ts, ev.Source, m.cfg.Type)

	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if ok {
		return e, nil
	}
	return m.openPartition(key, ts, ev.Source)
}

func (m *Manager) openPartition(key string, ts time.Time, source string) (*entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[key]; ok {
		return e, nil
	}

	start, end := bucketBounds(ts, m.cfg.Type)
	dir := filepath.Join(m.cfg.RootDir, "partitions", key)

	idx, err := index.Open(dir, m.cfg.IndexConfig)
	if err != nil {
		return nil, err
	}

	meta := &model.Partition{
		Key:       key,
		Source:    source,
		StartTs:   start,
		EndTs:     end,
		State:     model.PartitionActive,
		Directory: dir,
	}
	bucket := bucketKey(ts, m.cfg.Type)
	e := &entry{meta: meta, idx: idx, bucket: bucket}
	m.entries[key] = e

	isNewBucket := true
	for _, b := range m.bucketSeq {
		if b == bucket {
			isNewBucket = false
			break
		}
	}
	if isNewBucket {
		m.bucketSeq = append(m.bucketSeq, bucket)
		m.sealOverflowLocked()
	}

	metrics.PartitionsActive.Inc()
	logging.Info().Str("partition", key).Str("dir", dir).Msg("opened new ACTIVE partition")
	return e, nil
}

// sealOverflowLocked seals every partition in the oldest bucket(s) beyond
// MaxActivePartitions. Caller holds mu.
func (m *Manager) sealOverflowLocked() {
	for len(m.bucketSeq) > m.cfg.MaxActivePartitions {
		oldest := m.bucketSeq[0]
		m.bucketSeq = m.bucketSeq[1:]
		for _, e := range m.entries {
			if e.meta.State == model.PartitionActive && e.bucket == oldest {
				m.sealLocked(e)
			}
		}
	}
}

// sealLocked transitions e to SEALED, committing it and handing it to the
// archiver if configured. Caller holds mu.
func (m *Manager) sealLocked(e *entry) {
	if err := e.idx.Commit(); err != nil {
		logging.Error().Err(err).Str("partition", e.meta.Key).Msg("commit failed while sealing partition")
	}
	e.meta.State = model.PartitionSealed
	metrics.PartitionsActive.Dec()
	metrics.PartitionsSealed.Inc()
	logging.Info().Str("partition", e.meta.Key).Msg("partition sealed")

	if m.cfg.AutoArchive && m.archiver != nil {
		go func(meta model.Partition, dir string) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := m.archiver.Archive(ctx, dir, meta); err != nil {
				logging.Error().Err(err).Str("partition", meta.Key).Msg("archive hand-off failed")
			}
		}(*e.meta, e.meta.Directory)
	}
}

// searchCandidate is a result awaiting merge, annotated with its sort key.
type searchCandidate struct {
	event *model.LogEvent
	key   int64
}

// candidateHeap is a bounded min-heap over searchCandidate.key, used to
// keep only the top-`limit` results across concurrently searched
// partitions without materializing every match from every partition.
type candidateHeap []searchCandidate

func (h candidateHeap) Len() int            { return len(h) }
func (h candidateHeap) Less(i, j int) bool  { return h[i].key < h[j].key }
func (h candidateHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x any) { *h = append(*h, x.(searchCandidate)) }
func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Search fans out a compiled query to every partition overlapping its time
// range, merging results with a bounded heap sized to the requested limit.
func (m *Manager) Search(cq *model.CompiledQuery, limit int, order index.SortOrder) []*model.LogEvent {
	targets := m.overlapping(cq.StartTime, cq.EndTime)

	type partial struct {
		events []*model.LogEvent
	}
	results := make(chan partial, len(targets))
	var wg sync.WaitGroup
	for _, e := range targets {
		wg.Add(1)
		go func(e *entry) {
			defer wg.Done()
			results <- partial{events: e.idx.Search(cq.Predicate, limit, order)}
		}(e)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	h := &candidateHeap{}
	heap.Init(h)
	// candidateHeap is a min-heap on key and evicts the smallest key on
	// overflow, so key must be the value we want to KEEP the largest of.
	// Desc wants the largest sortKey retained (most recent); Asc wants the
	// smallest sortKey retained, so negate it to make "smallest" the
	// largest key.
	sign := int64(-1)
	if order.Desc {
		sign = 1
	}

	for p := range results {
		for _, ev := range p.events {
			k := sign * sortKeyFor(ev, order.Field)
			if limit <= 0 || h.Len() < limit {
				heap.Push(h, searchCandidate{event: ev, key: k})
			} else if h.Len() > 0 && k > (*h)[0].key {
				heap.Pop(h)
				heap.Push(h, searchCandidate{event: ev, key: k})
			}
		}
	}

	out := make([]*model.LogEvent, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(searchCandidate).event
	}
	sortFinal(out, order)
	return out
}

func sortKeyFor(e *model.LogEvent, field string) int64 {
	if field == "ingestTime" {
		return e.IngestTime.UnixNano()
	}
	if !e.RecordTime.IsZero() {
		return e.RecordTime.UnixNano()
	}
	return e.IngestTime.UnixNano()
}

func sortFinal(events []*model.LogEvent, order index.SortOrder) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		ka, kb := sortKeyFor(a, order.Field), sortKeyFor(b, order.Field)
		if ka == kb {
			return a.ID < b.ID
		}
		if order.Desc {
			return ka > kb
		}
		return ka < kb
	})
}

// overlapping returns every partition whose [StartTs,EndTs) intersects
// [start,end].
func (m *Manager) overlapping(start, end time.Time) []*entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*entry
	for _, e := range m.entries {
		if e.meta.State == model.PartitionArchived {
			continue
		}
		if overlaps(e.meta.StartTs, e.meta.EndTs, start, end) {
			out = append(out, e)
		}
	}
	return out
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if bStart.IsZero() && bEnd.IsZero() {
		return true
	}
	if !bEnd.IsZero() && aStart.After(bEnd) {
		return false
	}
	if !bStart.IsZero() && aEnd.Before(bStart) {
		return false
	}
	return true
}

// DeleteByPredicate applies predicate across every partition overlapping
// [start,end), used by the retention worker for partial-overlap sweeps.
func (m *Manager) DeleteByPredicate(ctx context.Context, predicate model.IndexPredicate, start, end time.Time) (int, error) {
	targets := m.overlapping(start, end)
	total := 0
	for _, e := range targets {
		n, err := e.idx.DeleteByPredicate(ctx, predicate)
		if err != nil {
			return total, err
		}
		total += n
		if err := e.idx.Commit(); err != nil {
			return total, err
		}
	}
	return total, nil
}

// FullyOlderThan returns sealed/archived partitions whose EndTs is at or
// before threshold and whose Source matches sourceFilter (empty = all).
func (m *Manager) FullyOlderThan(threshold time.Time, sourceFilter string) []model.Partition {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Partition
	for _, e := range m.entries {
		if e.meta.State == model.PartitionActive {
			continue
		}
		if sourceFilter != "" && e.meta.Source != sourceFilter {
			continue
		}
		if !e.meta.EndTs.After(threshold) {
			out = append(out, *e.meta)
		}
	}
	return out
}

// RemovePartition closes and forgets a partition after its directory has
// been deleted by the retention worker.
func (m *Manager) RemovePartition(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return apperr.New(apperr.KindNotFound, "partition.RemovePartition", fmt.Sprintf("unknown partition %q", key))
	}
	if err := e.idx.Close(); err != nil {
		return err
	}
	delete(m.entries, key)
	if e.meta.State == model.PartitionSealed {
		metrics.PartitionsSealed.Dec()
	}
	return nil
}

// MarkArchived transitions a partition to ARCHIVED after a successful
// archive hand-off.
func (m *Manager) MarkArchived(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok {
		e.meta.State = model.PartitionArchived
	}
}

// Snapshot returns a copy of every partition's metadata, for status
// reporting.
func (m *Manager) Snapshot() []model.Partition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Partition, 0, len(m.entries))
	for _, e := range m.entries {
		meta := *e.meta
		meta.EventCount = int64(e.idx.Len())
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Close closes every open partition index.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	for _, e := range m.entries {
		if err := e.idx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
