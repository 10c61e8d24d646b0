// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package index implements the per-partition inverted index: a durable
// BadgerDB-backed document store plus an in-memory term dictionary used to
// narrow candidates before a compiled predicate is evaluated against the
// full LogEvent.
package index

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"

	"github.com/tomtom215/cartographus/internal/apperr"
	"github.com/tomtom215/cartographus/internal/cache"
	"github.com/tomtom215/cartographus/internal/logging"
	"github.com/tomtom215/cartographus/internal/model"
)

const docPrefix = "doc:"

// SortOrder describes how search results are ordered.
type SortOrder struct {
	Field string // "recordTime" (default) or any LogEvent field
	Desc  bool
}

// DefaultSort is the spec-mandated default: recordTime desc, tie-break id asc.
var DefaultSort = SortOrder{Field: "recordTime", Desc: true}

// Index is a single partition's writable document store. A writer lock
// serializes Add/Delete/Commit; Search takes a point-in-time snapshot via
// Badger's MVCC view and never blocks a writer.
type Index struct {
	db   *badger.DB
	path string

	writerMu sync.Mutex

	mu     sync.RWMutex
	docs   map[string]*model.LogEvent // id -> event, in-memory mirror for fast scan
	terms  *cache.TrieIndex           // field -> term dictionary (observability/autocomplete)
	closed bool
}

// Open creates or reopens the Index backed by BadgerDB at path.
func Open(path string, cfg Config) (*Index, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(path)
	opts.SyncWrites = cfg.SyncWrites
	opts.MemTableSize = cfg.MemTableSize
	opts.ValueLogFileSize = cfg.ValueLogFileSize
	opts.NumCompactors = cfg.NumCompactors
	if cfg.Compression {
		opts.Compression = options.Snappy
	}
	if cfg.BlockCacheSize > 0 {
		opts.BlockCacheSize = cfg.BlockCacheSize
	}
	if cfg.IndexCacheSize > 0 {
		opts.IndexCacheSize = cfg.IndexCacheSize
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "index.Open", "open badger store", err)
	}

	idx := &Index{
		db:    db,
		path:  path,
		docs:  make(map[string]*model.LogEvent),
		terms: cache.NewTrieIndex(),
	}
	if err := idx.rebuildFromDisk(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Info().Str("path", path).Int("docs", len(idx.docs)).Msg("partition index opened")
	return idx, nil
}

func (idx *Index) rebuildFromDisk() error {
	return idx.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(docPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var ev model.LogEvent
				if err := json.Unmarshal(val, &ev); err != nil {
					return err
				}
				idx.docs[ev.ID] = &ev
				idx.indexTerms(&ev)
				return nil
			})
			if err != nil {
				return fmt.Errorf("rebuild index from disk: %w", err)
			}
		}
		return nil
	})
}

func (idx *Index) indexTerms(ev *model.LogEvent) {
	fields := map[string]string{"message": ev.Message, "level": ev.Level, "source": ev.Source}
	for field, text := range fields {
		t := idx.terms.GetOrCreate(field)
		for _, tok := range strings.Fields(strings.ToLower(text)) {
			t.Insert(tok)
		}
	}
}

// Add appends a single event to the partition. Atomic per event.
func (idx *Index) Add(ctx context.Context, event *model.LogEvent) error {
	idx.writerMu.Lock()
	defer idx.writerMu.Unlock()

	idx.mu.RLock()
	closed := idx.closed
	idx.mu.RUnlock()
	if closed {
		return apperr.New(apperr.KindUnavailable, "index.Add", "partition is closed")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, "index.Add", "marshal event", err)
	}

	err = idx.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(docPrefix+event.ID), payload)
	})
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "index.Add", "write to badger", err)
	}

	idx.mu.Lock()
	idx.docs[event.ID] = event
	idx.indexTerms(event)
	idx.mu.Unlock()
	return nil
}

// Search evaluates predicate against every document, returning up to limit
// matches ordered by sort (tie-break by id ascending).
func (idx *Index) Search(predicate model.IndexPredicate, limit int, sort_ SortOrder) []*model.LogEvent {
	idx.mu.RLock()
	candidates := make([]*model.LogEvent, 0, len(idx.docs))
	for _, ev := range idx.docs {
		if predicate.Match(ev) {
			candidates = append(candidates, ev)
		}
	}
	idx.mu.RUnlock()

	sortEvents(candidates, sort_)
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func sortEvents(events []*model.LogEvent, order SortOrder) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		va, vb := sortKey(a, order.Field), sortKey(b, order.Field)
		if va == vb {
			return a.ID < b.ID
		}
		if order.Desc {
			return va > vb
		}
		return va < vb
	})
}

func sortKey(e *model.LogEvent, field string) int64 {
	switch strings.ToLower(field) {
	case "ingesttime":
		return e.IngestTime.UnixNano()
	default: // recordTime, falling back to ingestTime when absent
		if !e.RecordTime.IsZero() {
			return e.RecordTime.UnixNano()
		}
		return e.IngestTime.UnixNano()
	}
}

// DeleteByPredicate removes every document matching predicate, returning the
// count deleted.
func (idx *Index) DeleteByPredicate(ctx context.Context, predicate model.IndexPredicate) (int, error) {
	idx.writerMu.Lock()
	defer idx.writerMu.Unlock()

	idx.mu.RLock()
	var toDelete []string
	for id, ev := range idx.docs {
		if predicate.Match(ev) {
			toDelete = append(toDelete, id)
		}
	}
	idx.mu.RUnlock()

	if len(toDelete) == 0 {
		return 0, nil
	}

	err := idx.db.Update(func(txn *badger.Txn) error {
		for _, id := range toDelete {
			if err := txn.Delete([]byte(docPrefix + id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, apperr.Wrap(apperr.KindUnavailable, "index.DeleteByPredicate", "delete from badger", err)
	}

	idx.mu.Lock()
	for _, id := range toDelete {
		delete(idx.docs, id)
	}
	idx.mu.Unlock()
	return len(toDelete), nil
}

// Commit is a durability barrier: it forces a Badger value-log sync so that
// a subsequent Search (even after a crash and reopen) observes every Add
// acknowledged before this call returns. Safe to call with nothing pending
// (idempotent, per the double-commit-is-a-no-op law).
func (idx *Index) Commit() error {
	idx.writerMu.Lock()
	defer idx.writerMu.Unlock()
	if err := idx.db.Sync(); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "index.Commit", "sync badger value log", err)
	}
	return nil
}

// Close flushes and releases all resources. Idempotent.
func (idx *Index) Close() error {
	idx.mu.Lock()
	if idx.closed {
		idx.mu.Unlock()
		return nil
	}
	idx.closed = true
	idx.mu.Unlock()

	if err := idx.db.Close(); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "index.Close", "close badger store", err)
	}
	return nil
}

// Len reports the number of live documents, used by the partition manager
// for EventCount bookkeeping.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs)
}
