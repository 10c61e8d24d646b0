// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package api implements the HTTP surface over the ingestion and search
// pipeline: saved-query search, alarm and retention-policy CRUD, HTTP-push
// ingestion, and the real-time WebSocket/SSE feed.
package api

import (
	"time"

	"github.com/tomtom215/cartographus/internal/alarm"
	"github.com/tomtom215/cartographus/internal/config"
	"github.com/tomtom215/cartographus/internal/eventbus"
	"github.com/tomtom215/cartographus/internal/ingest"
	"github.com/tomtom215/cartographus/internal/middleware"
	"github.com/tomtom215/cartographus/internal/partition"
	"github.com/tomtom215/cartographus/internal/retention"
	"github.com/tomtom215/cartographus/internal/search"
	"github.com/tomtom215/cartographus/internal/store"
	"github.com/tomtom215/cartographus/internal/websocket"
)

// Handler wires every collaborator a route needs. Construct one with
// NewHandler and mount it with NewRouter; handler methods live in the
// handlers_*.go files alongside this one.
type Handler struct {
	partitions *partition.Manager
	executor   *search.Executor
	control    *store.Store
	bus        *eventbus.Bus
	hub        *websocket.Hub
	scheduler  *alarm.Scheduler
	retention  *retention.Worker
	cfg        *config.Config
	perf       *middleware.PerformanceMonitor

	httpPush map[string]*ingest.HTTPPush

	startedAt time.Time
}

// NewHandler constructs the API handler. httpPush maps each configured
// HTTP-push source's SourceID to its already-running *ingest.HTTPPush,
// which is mounted directly as the handler for its push route.
func NewHandler(
	partitions *partition.Manager,
	executor *search.Executor,
	control *store.Store,
	bus *eventbus.Bus,
	hub *websocket.Hub,
	scheduler *alarm.Scheduler,
	retentionWorker *retention.Worker,
	cfg *config.Config,
	httpPush map[string]*ingest.HTTPPush,
) *Handler {
	if httpPush == nil {
		httpPush = make(map[string]*ingest.HTTPPush)
	}
	return &Handler{
		partitions: partitions,
		executor:   executor,
		control:    control,
		bus:        bus,
		hub:        hub,
		scheduler:  scheduler,
		retention:  retentionWorker,
		cfg:        cfg,
		perf:       middleware.NewPerformanceMonitor(1000),
		httpPush:   httpPush,
		startedAt:  time.Now(),
	}
}
