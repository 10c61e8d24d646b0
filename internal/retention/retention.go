// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package retention implements the C11 retention worker: a periodic sweep
// that removes partitions (and partial partitions) older than a policy's
// MaxAgeDays threshold.
package retention

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/cartographus/internal/logging"
	"github.com/tomtom215/cartographus/internal/metrics"
	"github.com/tomtom215/cartographus/internal/model"
)

// Manager is the subset of *partition.Manager the worker depends on.
type Manager interface {
	FullyOlderThan(threshold time.Time, sourceFilter string) []model.Partition
	RemovePartition(key string) error
	MarkArchived(key string)
}

// PolicyStore supplies the currently configured retention policies.
type PolicyStore interface {
	Policies() []model.RetentionPolicy
}

// Config controls the sweep cadence.
type Config struct {
	Interval time.Duration
}

func DefaultConfig() Config {
	return Config{Interval: time.Hour}
}

// Worker runs the retention sweep on a ticker until Stop is called.
type Worker struct {
	cfg      Config
	mgr      Manager
	policies PolicyStore

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
	lastRun time.Time
}

func New(cfg Config, mgr Manager, policies PolicyStore) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	return &Worker{cfg: cfg, mgr: mgr, policies: policies}
}

// Start begins the background sweep loop. It is a no-op if already running.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx)
	logging.Info().Dur("interval", w.cfg.Interval).Msg("retention worker started")
}

// Stop halts the sweep loop and waits for any in-flight sweep to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.cancel()
	w.running = false
	w.mu.Unlock()

	w.wg.Wait()
	logging.Info().Msg("retention worker stopped")
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(time.Now())
		}
	}
}

// Sweep applies every enabled retention policy once, removing partitions
// that are wholly older than the policy's threshold.
func (w *Worker) Sweep(now time.Time) {
	start := now
	var removed int64

	for _, policy := range w.policies.Policies() {
		if !policy.Enabled {
			continue
		}
		threshold := policy.Threshold(now)
		for _, p := range w.mgr.FullyOlderThan(threshold, policy.SourceFilter) {
			if err := w.mgr.RemovePartition(p.Key); err != nil {
				logging.Error().Err(err).Str("partition", p.Key).Msg("retention sweep failed to remove partition")
				continue
			}
			removed++
			metrics.RetentionDeletedTotal.WithLabelValues(policy.Name).Add(float64(p.EventCount))
			logging.Info().Str("partition", p.Key).Str("policy", policy.Name).Msg("retention sweep removed partition")
		}
	}

	w.mu.Lock()
	w.lastRun = start
	w.mu.Unlock()

	metrics.RetentionSweepDuration.Observe(time.Since(start).Seconds())
	if removed > 0 {
		logging.Info().Int64("removed", removed).Dur("duration", time.Since(start)).Msg("retention sweep completed")
	}
}

// LastRun reports when the most recent sweep started.
func (w *Worker) LastRun() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastRun
}
