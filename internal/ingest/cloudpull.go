// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/cartographus/internal/extract"
	"github.com/tomtom215/cartographus/internal/logging"
	"github.com/tomtom215/cartographus/internal/metrics"
	"github.com/tomtom215/cartographus/internal/model"
)

// Page is one batch of records pulled from a cloud log API, plus the
// cursor to resume from on the next poll.
type Page struct {
	Lines      []string
	NextCursor string
}

// Puller fetches one page of log lines starting from cursor (empty on
// first call).
type Puller interface {
	Pull(ctx context.Context, cursor string) (Page, error)
}

// CloudPullConfig controls poll cadence and circuit breaker sensitivity.
type CloudPullConfig struct {
	SourceID     string
	PollInterval time.Duration
}

func DefaultCloudPullConfig(sourceID string) CloudPullConfig {
	return CloudPullConfig{SourceID: sourceID, PollInterval: 30 * time.Second}
}

// CloudPull polls a Puller on an interval, persisting its cursor across
// polls and opening a circuit breaker around Pull so a flaky upstream API
// doesn't hot-loop failing requests.
type CloudPull struct {
	cfg       CloudPullConfig
	puller    Puller
	sink      Sink
	extractor *extract.Extractor
	cb        *gobreaker.CircuitBreaker[Page]

	mu     sync.Mutex
	cursor string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewCloudPull(cfg CloudPullConfig, puller Puller, sink Sink, extractor *extract.Extractor) *CloudPull {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultCloudPullConfig(cfg.SourceID).PollInterval
	}
	name := "cloudpull-" + cfg.SourceID
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[Page](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(n string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(n).Set(breakerStateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(n, from.String(), to.String()).Inc()
		},
	})

	return &CloudPull{cfg: cfg, puller: puller, sink: sink, extractor: extractor, cb: cb}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}

func (c *CloudPull) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.run(runCtx)
	logging.Info().Str("source", c.cfg.SourceID).Dur("interval", c.cfg.PollInterval).Msg("cloud pull started")
	return nil
}

func (c *CloudPull) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

func (c *CloudPull) run(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	c.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.poll(ctx)
		}
	}
}

func (c *CloudPull) poll(ctx context.Context) {
	c.mu.Lock()
	cursor := c.cursor
	c.mu.Unlock()

	page, err := c.cb.Execute(func() (Page, error) {
		return c.puller.Pull(ctx, cursor)
	})
	if err != nil {
		result := "failure"
		if errors.Is(err, gobreaker.ErrOpenState) {
			result = "rejected"
		}
		metrics.CircuitBreakerRequests.WithLabelValues(c.cfg.SourceID, result).Inc()
		metrics.IngestErrorsTotal.WithLabelValues("cloud_pull", c.cfg.SourceID).Inc()
		logging.Error().Err(err).Str("source", c.cfg.SourceID).Msg("cloud pull failed")
		return
	}
	metrics.CircuitBreakerRequests.WithLabelValues(c.cfg.SourceID, "success").Inc()

	for _, line := range page.Lines {
		event := model.NewLogEvent(c.cfg.SourceID, line)
		recordAccepted(ctx, "cloud_pull", c.cfg.SourceID, c.extractor, c.sink, event)
	}

	if page.NextCursor != "" {
		c.mu.Lock()
		c.cursor = page.NextCursor
		c.mu.Unlock()
	}
}
