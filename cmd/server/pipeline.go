// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/cartographus/internal/buffer"
	"github.com/tomtom215/cartographus/internal/extract"
	"github.com/tomtom215/cartographus/internal/ingest"
	"github.com/tomtom215/cartographus/internal/model"
	"github.com/tomtom215/cartographus/internal/partition"
)

// partitionSink adapts *partition.Manager into buffer.Sink: it applies
// field extraction to every event in the flushed batch before routing it,
// so extraction runs once per event regardless of which ingestion source
// produced it.
type partitionSink struct {
	partitions *partition.Manager
	extractor  *extract.Extractor
}

func newPartitionSink(partitions *partition.Manager, extractor *extract.Extractor) *partitionSink {
	return &partitionSink{partitions: partitions, extractor: extractor}
}

func (s *partitionSink) Flush(ctx context.Context, events []*model.LogEvent) error {
	for i, ev := range events {
		events[i] = s.extractor.Apply(ev)
	}
	return s.partitions.Route(ctx, events)
}

// bufferIngestSink adapts *buffer.Buffer into ingest.Sink. Enqueue never
// blocks past cfg.EnqueueTimeout and never returns an error itself; a
// dropped event (buffer full under PolicyDropOldest, or backpressure
// timeout) surfaces here as an error so callers' accepted/dropped metrics
// stay accurate.
type bufferIngestSink struct {
	buf *buffer.Buffer
}

func newBufferIngestSink(buf *buffer.Buffer) *bufferIngestSink {
	return &bufferIngestSink{buf: buf}
}

// Ingest enqueues event, surfacing a dropped (capacity/backpressure) event
// as an error so callers' accepted/dropped metrics stay accurate. A
// deduped event (see buffer.Config.DedupWindow) is not an error: it was
// intentionally suppressed as a redelivery of an event already accepted.
func (s *bufferIngestSink) Ingest(ctx context.Context, event *model.LogEvent) error {
	if s.buf.Enqueue(event) == buffer.Dropped {
		return fmt.Errorf("buffer: event dropped")
	}
	return nil
}

// sourceService adapts an ingest.Source into a suture.Service so file
// tail, syslog, and cloud-pull sources are supervised the same way as
// every other long-running component.
type sourceService struct {
	name   string
	source ingest.Source
}

func newSourceService(name string, source ingest.Source) *sourceService {
	return &sourceService{name: name, source: source}
}

func (s *sourceService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.source.Start(ctx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.source.Stop()
		<-errCh
		return ctx.Err()
	}
}

func (s *sourceService) String() string {
	return s.name
}
