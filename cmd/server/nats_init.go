// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

//go:build nats

package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/tomtom215/cartographus/internal/config"
	"github.com/tomtom215/cartographus/internal/ingest"
	"github.com/tomtom215/cartographus/internal/logging"
	"github.com/tomtom215/cartographus/internal/model"
	"github.com/tomtom215/cartographus/internal/natsbus"
)

// NATSComponents fronts the write-behind buffer with a durable JetStream
// fan-out: ingestion sources Ingest() onto the bus instead of the buffer
// directly, and a drain goroutine forwards each decoded event to the real
// sink in order. This lets the buffer/indexer restart without losing events
// that already landed on the stream.
type NATSComponents struct {
	bus    *natsbus.Bus
	sink   ingest.Sink
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	running bool
}

// InitNATS connects to (or starts an embedded) NATS JetStream instance and
// wraps sink with it. Returns nil, nil when NATS is disabled, in which case
// callers should fall back to wiring ingestion sources directly to sink.
func InitNATS(cfg *config.Config, sink ingest.Sink) (*NATSComponents, error) {
	bus, err := natsbus.New(cfg.NATS)
	if err != nil {
		return nil, fmt.Errorf("init nats bus: %w", err)
	}
	if bus == nil {
		return nil, nil
	}
	return &NATSComponents{bus: bus, sink: sink, done: make(chan struct{})}, nil
}

// Ingest publishes event onto the JetStream subject; it satisfies
// ingest.Sink so ingestion sources can use a *NATSComponents in place of the
// buffer directly.
func (c *NATSComponents) Ingest(_ context.Context, event *model.LogEvent) error {
	return c.bus.Publish(event)
}

// Start begins draining the JetStream subject into the real sink.
func (c *NATSComponents) Start(ctx context.Context) error {
	if c == nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	go func() {
		defer close(c.done)
		err := c.bus.Subscribe(runCtx, func(event *model.LogEvent) {
			if err := c.sink.Ingest(runCtx, event); err != nil {
				logging.Error().Err(err).Str("event_id", event.ID).Msg("nats-drained event rejected by sink")
			}
		})
		if err != nil && runCtx.Err() == nil {
			logging.Error().Err(err).Msg("nats subscribe loop exited unexpectedly")
		}
	}()

	c.mu.Lock()
	c.running = true
	c.mu.Unlock()

	logging.Info().Msg("nats ingestion fan-out started")
	return nil
}

// Shutdown stops the drain goroutine and closes the bus.
func (c *NATSComponents) Shutdown(ctx context.Context) {
	if c == nil {
		return
	}
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	select {
	case <-c.done:
	case <-ctx.Done():
	}
	c.bus.Close(ctx)
	logging.Info().Msg("nats ingestion fan-out stopped")
}

// IsRunning reports whether the drain goroutine is active.
func (c *NATSComponents) IsRunning() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
