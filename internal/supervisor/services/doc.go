// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package services provides suture.Service wrappers for GrepWise components.

This package adapts existing application components to the suture v4 supervision
model, translating various lifecycle patterns (Start/Stop, ListenAndServe) into
suture's context-aware Serve pattern.

# Overview

Each wrapper implements the suture.Service interface:

	type Service interface {
	    Serve(ctx context.Context) error
	}

The wrappers handle:
  - Lifecycle translation (Start/Stop to Serve pattern)
  - Graceful shutdown via context cancellation
  - Error propagation for supervisor restart decisions
  - Service identification via fmt.Stringer

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts ListenAndServe pattern to Serve
  - Configurable shutdown timeout for draining connections

WebSocket Hub (WebSocketHubService):
  - Wraps websocket.Hub with context support
  - Handles client connection cleanup on shutdown

Background Loop (BackgroundService):
  - Wraps any Start(ctx)/Stop() component
  - Used for the alarm scheduler (C9) and the retention worker (C11)

NATS Components (NATSComponentsService):
  - Wraps the ingestion fan-out bus plus its consume-back-into-the-buffer loop
  - Build tag: nats (disabled by default)

# Usage Example

	tree, _ := supervisor.NewSupervisorTree(logger, config)

	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddDataService(services.NewBackgroundService(alarmScheduler, "alarm-scheduler"))
	tree.AddDataService(services.NewBackgroundService(retentionWorker, "retention-worker"))

	tree.ServeBackground(ctx)

# Error Handling

Return values determine supervisor behavior:

	nil         -> Service stopped cleanly, will not restart
	error       -> Service crashed, supervisor will restart
	ctx.Err()   -> Shutdown requested, normal termination

# See Also

  - internal/supervisor: SupervisorTree that manages these services
  - github.com/thejerf/suture/v4: Underlying supervision library
*/
package services
