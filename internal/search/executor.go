// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package search

import (
	"context"

	"github.com/tomtom215/cartographus/internal/index"
	"github.com/tomtom215/cartographus/internal/model"
	"github.com/tomtom215/cartographus/internal/searchcache"
)

// Manager is the subset of *partition.Manager the executor depends on.
type Manager interface {
	Search(cq *model.CompiledQuery, limit int, order index.SortOrder) []*model.LogEvent
}

// Config bounds how much raw work a single query may do before the
// pipeline narrows it down.
type Config struct {
	// MatchLimit bounds how many raw events the partition fan-out may
	// return before the pipeline runs; it is deliberately larger than
	// most head/limit clauses so stats/sort see a representative set.
	MatchLimit int
}

func DefaultConfig() Config {
	return Config{MatchLimit: 50000}
}

// Executor is the C7 search executor: fingerprint, cache, fan out across
// partitions, merge-sort, then run the pipeline.
type Executor struct {
	cfg     Config
	mgr     Manager
	cache   *searchcache.Cache
}

func NewExecutor(cfg Config, mgr Manager, cache *searchcache.Cache) *Executor {
	if cfg.MatchLimit <= 0 {
		cfg.MatchLimit = DefaultConfig().MatchLimit
	}
	return &Executor{cfg: cfg, mgr: mgr, cache: cache}
}

// Run executes a compiled query end to end: fingerprint -> cache lookup ->
// partition fan-out with bounded top-K merge -> pipeline -> cache publish.
// limit bounds the final row count returned to the caller (after the
// pipeline runs), independent of the cfg.MatchLimit used for the raw scan.
func (ex *Executor) Run(ctx context.Context, cq *model.CompiledQuery, limit int) ([]Row, error) {
	fp := searchcache.Fingerprint(cq.Raw, cq.StartTime, cq.EndTime)

	result, err := ex.cache.GetOrCompute(ctx, fp, func(ctx context.Context) (searchcache.Result, error) {
		events := ex.mgr.Search(cq, ex.cfg.MatchLimit, sortOrderFor(cq))
		return searchcache.Result{Events: events}, nil
	})
	if err != nil {
		return nil, err
	}

	rows := rowsFromEvents(result.Events)
	rows, err = runPipeline(rows, cq.Pipeline)
	if err != nil {
		return nil, err
	}
	if limit >= 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}

func sortOrderFor(cq *model.CompiledQuery) index.SortOrder {
	for _, cmd := range cq.Pipeline {
		if cmd.Kind == model.CmdSort && len(cmd.SortFields) > 0 {
			return index.SortOrder{Field: cmd.SortFields[0].Field, Desc: cmd.SortFields[0].Desc}
		}
	}
	return index.DefaultSort
}
