// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package alarm implements the C9 alarm scheduler: it periodically
// re-evaluates every enabled Alarm's saved query against a sliding time
// window, throttles and groups firings, and dispatches to notification
// channels.
package alarm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/cartographus/internal/cache"
	"github.com/tomtom215/cartographus/internal/logging"
	"github.com/tomtom215/cartographus/internal/metrics"
	"github.com/tomtom215/cartographus/internal/model"
	"github.com/tomtom215/cartographus/internal/query"
	"github.com/tomtom215/cartographus/internal/search"
)

// Executor is the subset of *search.Executor the scheduler depends on.
type Executor interface {
	Run(ctx context.Context, cq *model.CompiledQuery, limit int) ([]search.Row, error)
}

// Store is the subset of alarm persistence the scheduler depends on.
type Store interface {
	Alarms() []model.Alarm
	SaveEvent(event model.AlarmEvent)
}

// Notifier dispatches a triggered AlarmEvent over one channel.
type Notifier interface {
	Notify(ctx context.Context, channel model.NotificationChannel, alarm model.Alarm, event model.AlarmEvent) error
}

// Config controls the scheduler's evaluation cadence.
type Config struct {
	TickInterval time.Duration
}

func DefaultConfig() Config {
	return Config{TickInterval: 30 * time.Second}
}

// maxSuppressionRecords bounds the in-memory suppression/failure audit ring.
const maxSuppressionRecords = 256

// SuppressionRecord is a single throttle-suppression or dispatch-failure
// event, kept for RecentSuppressions' in-memory audit trail.
type SuppressionRecord struct {
	AlarmID   string
	Channel   model.ChannelType
	Reason    string
	Timestamp time.Time
}

// Scheduler runs the periodic alarm-evaluation loop.
type Scheduler struct {
	cfg      Config
	store    Store
	exec     Executor
	notifier Notifier

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool

	// throttle/dedup are keyed per-alarm by its own ThrottleWindowMinutes/
	// GroupingWindowMinutes rather than one shared store: a sliding-window
	// store's bucket width is fixed at construction, so a single shared
	// store would silently ignore each alarm's configured window (see
	// throttleStoreFor/dedupStoreFor).
	windowMu       sync.Mutex
	throttleStores map[time.Duration]*cache.SlidingWindowStore
	dedupStores    map[time.Duration]*cache.UniqueValueStore

	suppressMu   sync.Mutex
	suppressions []SuppressionRecord
}

// windowStoreBuckets bounds every per-window store to the same bucket
// count regardless of window length, so a 5-minute throttle window gets
// 5-second buckets and a 1-hour window gets 1-minute buckets.
const windowStoreBuckets = 60

// windowStoreMaxKeys bounds the number of distinct keys (alarm+channel
// pairs, or alarm IDs) tracked per window-duration store.
const windowStoreMaxKeys = 10000

func New(cfg Config, store Store, exec Executor, notifier Notifier) *Scheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultConfig().TickInterval
	}
	return &Scheduler{
		cfg:            cfg,
		store:          store,
		exec:           exec,
		notifier:       notifier,
		throttleStores: make(map[time.Duration]*cache.SlidingWindowStore),
		dedupStores:    make(map[time.Duration]*cache.UniqueValueStore),
	}
}

// throttleStoreFor returns the shared sliding-window store for the given
// window duration, creating it on first use.
func (s *Scheduler) throttleStoreFor(window time.Duration) *cache.SlidingWindowStore {
	s.windowMu.Lock()
	defer s.windowMu.Unlock()
	store, ok := s.throttleStores[window]
	if !ok {
		store = cache.NewSlidingWindowStore(window, windowStoreBuckets, windowStoreMaxKeys)
		s.throttleStores[window] = store
	}
	return store
}

// dedupStoreFor returns the shared unique-value store for the given
// grouping window duration, creating it on first use.
func (s *Scheduler) dedupStoreFor(window time.Duration) *cache.UniqueValueStore {
	s.windowMu.Lock()
	defer s.windowMu.Unlock()
	store, ok := s.dedupStores[window]
	if !ok {
		store = cache.NewUniqueValueStore(window, windowStoreBuckets, windowStoreMaxKeys)
		s.dedupStores[window] = store
	}
	return store
}

// Start begins the background evaluation loop. It is a no-op if running.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx)
	logging.Info().Dur("interval", s.cfg.TickInterval).Msg("alarm scheduler started")
}

// Stop halts the evaluation loop and waits for the in-flight tick.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	logging.Info().Msg("alarm scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.EvaluateAll(ctx)
		}
	}
}

// EvaluateAll evaluates every enabled alarm once.
func (s *Scheduler) EvaluateAll(ctx context.Context) {
	for _, a := range s.store.Alarms() {
		if !a.Enabled {
			continue
		}
		if err := s.evaluate(ctx, a); err != nil {
			logging.Error().Err(err).Str("alarm", a.ID).Msg("alarm evaluation failed")
		}
	}
}

func (s *Scheduler) evaluate(ctx context.Context, a model.Alarm) error {
	metrics.AlarmEvaluationsTotal.WithLabelValues(a.ID).Inc()

	now := time.Now()
	start := now.Add(-time.Duration(a.TimeWindowMinutes) * time.Minute)
	cq, err := query.Compile(a.Query, start, now)
	if err != nil {
		return fmt.Errorf("compile alarm query: %w", err)
	}

	rows, err := s.exec.Run(ctx, cq, -1)
	if err != nil {
		return fmt.Errorf("run alarm query: %w", err)
	}

	groups := groupRows(rows, a.GroupingKey)
	for groupKey, count := range groups {
		if !a.Condition.Evaluate(float64(count), float64(a.Threshold)) {
			continue
		}
		s.fire(ctx, a, groupKey, count)
	}
	return nil
}

func groupRows(rows []search.Row, groupingKey string) map[string]int {
	groups := make(map[string]int)
	if groupingKey == "" {
		groups[""] = len(rows)
		return groups
	}
	for _, r := range rows {
		groups[r[groupingKey]]++
	}
	return groups
}

func (s *Scheduler) fire(ctx context.Context, a model.Alarm, groupKey string, count int) {
	// Grouping: a group that has already fired within the grouping window
	// is folded into the existing incident rather than raising a new one.
	if a.GroupingKey != "" && a.GroupingWindowMinutes > 0 {
		dedup := s.dedupStoreFor(time.Duration(a.GroupingWindowMinutes) * time.Minute)
		dedupKey := a.ID
		if dedup.CountUnique(dedupKey) > 0 {
			for _, seen := range dedup.GetUnique(dedupKey) {
				if seen == groupKey {
					return
				}
			}
		}
		dedup.Add(dedupKey, groupKey)
	}

	event := model.AlarmEvent{
		ID:         uuid.NewString(),
		AlarmID:    a.ID,
		Timestamp:  time.Now(),
		Status:     model.AlarmTriggered,
		MatchCount: count,
		GroupKey:   groupKey,
	}
	s.store.SaveEvent(event)
	metrics.AlarmTriggersTotal.WithLabelValues(a.ID).Inc()

	for _, ch := range a.NotificationChannels {
		throttleKey := a.ID + "|" + string(ch.Type)
		limit := a.MaxNotificationsPerWindow
		if limit <= 0 {
			limit = 1
		}
		window := time.Duration(a.ThrottleWindowMinutes) * time.Minute
		if window <= 0 {
			window = time.Minute
		}
		throttle := s.throttleStoreFor(window)
		if throttle.Count(throttleKey) >= int64(limit) {
			metrics.AlarmSuppressionsTotal.WithLabelValues(a.ID, string(ch.Type)).Inc()
			s.recordSuppression(a.ID, ch.Type, "throttled")
			continue
		}
		throttle.Increment(throttleKey)
		s.dispatch(ctx, ch, a, event)
	}
}

func (s *Scheduler) dispatch(ctx context.Context, ch model.NotificationChannel, a model.Alarm, event model.AlarmEvent) {
	dispatchStart := time.Now()
	err := s.notifier.Notify(ctx, ch, a, event)
	metrics.RecordAlarmNotifyDuration(string(ch.Type), time.Since(dispatchStart))
	if err != nil {
		metrics.AlarmNotifyErrors.WithLabelValues(string(ch.Type)).Inc()
		logging.Error().Err(err).Str("alarm", a.ID).Str("channel", string(ch.Type)).Msg("notification dispatch failed")
		s.recordSuppression(a.ID, ch.Type, "dispatch_failed: "+err.Error())
	}
}

// recordSuppression appends to the audit ring, dropping the oldest record
// once maxSuppressionRecords is exceeded.
func (s *Scheduler) recordSuppression(alarmID string, channel model.ChannelType, reason string) {
	s.suppressMu.Lock()
	defer s.suppressMu.Unlock()
	s.suppressions = append(s.suppressions, SuppressionRecord{
		AlarmID:   alarmID,
		Channel:   channel,
		Reason:    reason,
		Timestamp: time.Now(),
	})
	if len(s.suppressions) > maxSuppressionRecords {
		s.suppressions = s.suppressions[len(s.suppressions)-maxSuppressionRecords:]
	}
}

// RecentSuppressions returns a snapshot of the most recent throttle
// suppressions and dispatch failures, oldest first.
func (s *Scheduler) RecentSuppressions() []SuppressionRecord {
	s.suppressMu.Lock()
	defer s.suppressMu.Unlock()
	out := make([]SuppressionRecord, len(s.suppressions))
	copy(out, s.suppressions)
	return out
}
