// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package ingest implements the C5 ingestion sources: file tail, syslog
// (UDP/TCP), HTTP push, and cloud-pull, each producing model.LogEvents into
// a shared Sink.
package ingest

import (
	"context"

	"github.com/tomtom215/cartographus/internal/extract"
	"github.com/tomtom215/cartographus/internal/metrics"
	"github.com/tomtom215/cartographus/internal/model"
)

// Sink accepts ingested events for buffering/indexing. *buffer.Buffer
// satisfies this indirectly via a thin adapter at the call site (Buffer's
// Enqueue is synchronous and non-erroring, so the adapter never returns an
// error).
type Sink interface {
	Ingest(ctx context.Context, event *model.LogEvent) error
}

// Source is a running ingestion source; Stop must be safe to call once
// Start has returned, even if Start never fully started (e.g. dial error).
type Source interface {
	Start(ctx context.Context) error
	Stop()
}

// recordAccepted applies the extractor, records metrics, and delivers to
// sink. Shared by every source implementation in this package.
func recordAccepted(ctx context.Context, sourceType, sourceID string, extractor *extract.Extractor, sink Sink, event *model.LogEvent) {
	if extractor != nil {
		event = extractor.Apply(event)
	}
	if err := sink.Ingest(ctx, event); err != nil {
		metrics.IngestErrorsTotal.WithLabelValues(sourceType, sourceID).Inc()
		return
	}
	metrics.IngestEventsTotal.WithLabelValues(sourceType, sourceID).Inc()
}
