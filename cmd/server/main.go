// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package main is the entry point for the GrepWise log observability
// server.
//
// GrepWise ingests logs from file tails, syslog, HTTP push, and (when
// NATS is enabled) JetStream, extracts structured fields, partitions and
// indexes them by time bucket, and serves a saved-query search/alarm API
// over the result.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered env vars / config file via Koanf v2
//  2. Control store: BadgerDB-backed document store for alarms/policies
//  3. Partition manager: time-bucketed BadgerDB indexes (C1/C2)
//  4. Search executor and cache (C6/C7/C8)
//  5. Write-behind buffer and ingestion sources (C4/C5)
//  6. Event bus and WebSocket hub for realtime streaming (C10)
//  7. Alarm scheduler and retention worker (C9/C11)
//  8. HTTP API and supervisor tree
//
// # Build Tags
//
// An optional build tag enables NATS JetStream ingestion:
//
//	go build -tags "nats" ./cmd/server
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM: it stops
// accepting new connections, drains the write-behind buffer, and closes
// the control store.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/cartographus/internal/alarm"
	"github.com/tomtom215/cartographus/internal/api"
	"github.com/tomtom215/cartographus/internal/buffer"
	"github.com/tomtom215/cartographus/internal/config"
	"github.com/tomtom215/cartographus/internal/eventbus"
	"github.com/tomtom215/cartographus/internal/extract"
	"github.com/tomtom215/cartographus/internal/index"
	"github.com/tomtom215/cartographus/internal/ingest"
	"github.com/tomtom215/cartographus/internal/logging"
	"github.com/tomtom215/cartographus/internal/model"
	"github.com/tomtom215/cartographus/internal/partition"
	"github.com/tomtom215/cartographus/internal/retention"
	"github.com/tomtom215/cartographus/internal/search"
	"github.com/tomtom215/cartographus/internal/searchcache"
	"github.com/tomtom215/cartographus/internal/store"
	"github.com/tomtom215/cartographus/internal/supervisor"
	"github.com/tomtom215/cartographus/internal/supervisor/services"
	ws "github.com/tomtom215/cartographus/internal/websocket"
)

//nolint:gocyclo // sequential startup wiring, mirrors the reference deployment
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("starting GrepWise with supervisor tree")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create supervisor tree")
	}

	controlStore, err := store.Open(cfg.Control.DataDir)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open control store")
	}
	defer func() {
		if err := controlStore.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing control store")
		}
	}()

	partitionCfg := partition.Config{
		RootDir:             cfg.Index.DataDir,
		Type:                model.PartitionType(cfg.Partition.BucketSize),
		MaxActivePartitions: cfg.Partition.MaxActive,
		AutoArchive:         false,
		IndexConfig: index.Config{
			SyncWrites: cfg.Index.SyncWrites,
		},
	}
	partitions := partition.New(partitionCfg, nil)
	defer func() {
		if err := partitions.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing partition manager")
		}
	}()

	cache := searchcache.New(cfg.Cache.Size, cfg.Cache.TTL, cfg.Cache.Size > 0)
	executor := search.NewExecutor(search.DefaultConfig(), partitions, cache)

	extractor := extract.New(nil)

	bus := eventbus.New()
	hub := ws.NewHub()

	bufCfg := buffer.DefaultConfig()
	bufCfg.MaxSize = cfg.Buffer.MaxSize
	bufCfg.FlushInterval = cfg.Buffer.FlushInterval
	bufCfg.WarnStreak = cfg.Buffer.WarnStreak
	writeBehind := buffer.New(bufCfg, newPartitionSink(partitions, extractor))
	writeBehind.Start(ctx)
	defer func() {
		if err := writeBehind.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing write-behind buffer")
		}
	}()

	ingestSink := newBufferIngestSink(writeBehind)

	natsComponents, err := InitNATS(cfg, ingestSink)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize NATS")
	}
	AddNATSToSupervisor(tree, natsComponents)

	var sourceSink ingest.Sink = ingestSink
	if natsComponents != nil {
		sourceSink = natsComponents
	}

	httpPush := make(map[string]*ingest.HTTPPush)
	for _, fc := range cfg.Ingest.FileTail {
		tailCfg := ingest.FileTailConfig{
			SourceID:         fc.SourceID,
			Path:             fc.Path,
			NewRecordPattern: fc.NewRecordPattern,
			AccessLog:        fc.AccessLog,
		}
		tail, err := ingest.NewFileTail(tailCfg, sourceSink, extractor)
		if err != nil {
			logging.Error().Err(err).Str("source", fc.SourceID).Msg("failed to start file tail source")
			continue
		}
		tree.AddDataService(newSourceService("filetail:"+fc.SourceID, tail))
		logging.Info().Str("source", fc.SourceID).Str("path", fc.Path).Msg("file tail source configured")
	}
	for _, sc := range cfg.Ingest.Syslog {
		syslogCfg := ingest.SyslogConfig{SourceID: sc.SourceID, Network: sc.Network, Addr: sc.Addr}
		syslogSrc := ingest.NewSyslog(syslogCfg, sourceSink, extractor)
		tree.AddDataService(newSourceService("syslog:"+sc.SourceID, syslogSrc))
		logging.Info().Str("source", sc.SourceID).Str("addr", sc.Addr).Msg("syslog source configured")
	}
	for _, hc := range cfg.Ingest.HTTPPush {
		pushCfg := ingest.HTTPPushConfig{SourceID: hc.SourceID, Token: hc.Token, MaxEventsPerSecond: hc.MaxEventsPerSecond}
		httpPush[hc.SourceID] = ingest.NewHTTPPush(pushCfg, sourceSink, extractor)
		logging.Info().Str("source", hc.SourceID).Msg("http push source configured")
	}

	notifier := alarm.NewMultiNotifier(cfg.Scheduler.SMTPAddr, cfg.Scheduler.SMTPFrom, nil)
	scheduler := alarm.New(alarm.Config{TickInterval: cfg.Scheduler.TickInterval}, controlStore, executor, notifier)
	tree.AddDataService(services.NewBackgroundService(scheduler, "alarm-scheduler"))

	retentionWorker := retention.New(retention.Config{Interval: cfg.Retention.SweepInterval}, partitions, controlStore)
	tree.AddDataService(services.NewBackgroundService(retentionWorker, "retention-worker"))

	handler := api.NewHandler(partitions, executor, controlStore, bus, hub, scheduler, retentionWorker, cfg, httpPush)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	logging.Info().Msg("websocket hub added to supervisor tree")

	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("http server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service failed to stop")
		}
	}

	logging.Info().Msg("application stopped gracefully")
}
