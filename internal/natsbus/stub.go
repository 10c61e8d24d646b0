// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

//go:build !nats

package natsbus

import (
	"context"

	"github.com/tomtom215/cartographus/internal/config"
	"github.com/tomtom215/cartographus/internal/logging"
	"github.com/tomtom215/cartographus/internal/model"
)

// Bus is a no-op stand-in used when the binary is built without the "nats"
// tag. Ingestion sources call it unconditionally; it drops nothing because
// callers are expected to fall back to the direct buffer.Sink path when New
// returns nil.
type Bus struct{}

// New logs and returns nil, nil if the caller asked for NATS fan-out in a
// build that doesn't carry it.
func New(cfg config.NATSConfig) (*Bus, error) {
	if cfg.Enabled {
		logging.Warn().Msg("nats fan-out requested but binary was built without the nats tag; ingestion will write directly to the buffer")
	}
	return nil, nil
}

// Publish is a no-op.
func (b *Bus) Publish(event *model.LogEvent) error { return nil }

// Subscribe blocks until ctx is canceled without ever invoking handle.
func (b *Bus) Subscribe(ctx context.Context, handle func(*model.LogEvent)) error {
	<-ctx.Done()
	return ctx.Err()
}

// Close is a no-op.
func (b *Bus) Close(ctx context.Context) {}
