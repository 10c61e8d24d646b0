// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package main is the entry point for the GrepWise server application.

GrepWise ingests application logs, extracts structured fields, indexes
them by time bucket, and serves a saved-query search/alarm API over the
result — a self-hosted alternative to shipping logs to a third-party
aggregator.

# Application Architecture

The server implements a layered architecture with Suture v4 process
supervision:

	RootSupervisor ("grepwise")
	├── DataSupervisor ("data-layer")
	│   ├── Ingestion sources (file tail, syslog, cloud-pull)
	│   ├── Alarm scheduler
	│   └── Retention worker
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocket Hub (real-time log/alarm streaming)
	│   └── NATS components (optional, -tags nats)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (search, alarm, retention-policy, realtime routes)

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config files
 2. Logging: zerolog with JSON/console output modes
 3. Control store: BadgerDB document store for alarms and retention policies
 4. Partition manager: time-bucketed BadgerDB indexes
 5. Search executor and query-fingerprint cache
 6. Write-behind buffer and field extractor
 7. Ingestion sources: file tail, syslog, HTTP push, and NATS (optional)
 8. Alarm scheduler and retention worker
 9. Supervisor tree: Suture v4 process supervision
 10. HTTP server: Chi router with middleware stack

# Configuration

Configuration is loaded via Koanf v2 with layered sources (highest
priority wins):

	Priority: Environment variables > Config file > Defaults

Core environment variables:

	# Server
	SERVER_PORT=8080                   # HTTP server port
	LOG_LEVEL=info                     # trace, debug, info, warn, error
	LOG_FORMAT=json                    # json or console

	# Ingestion buffer
	BUFFER_MAX_SIZE=1000
	BUFFER_FLUSH_INTERVAL=1s

	# Partitioning
	PARTITION_BUCKET_SIZE=DAILY        # HOURLY, DAILY, or WEEKLY
	PARTITION_MAX_ACTIVE=2

	# Retention
	RETENTION_SWEEP_INTERVAL=1h

	# Alarm scheduler
	ALARM_TICK_INTERVAL=30s
	ALARM_SMTP_ADDR=smtp.example.com:587
	ALARM_SMTP_FROM=alerts@example.com

	# NATS (optional)
	NATS_ENABLED=true
	NATS_URL=nats://127.0.0.1:4222
	NATS_EMBEDDED=true

# Build Tags

An optional build tag enables NATS JetStream event-bus ingestion:

	go build ./cmd/server                 # Standard build, direct buffer ingestion
	go build -tags nats ./cmd/server       # Route ingestion through NATS JetStream

With the nats tag absent, NATS_ENABLED=true in configuration only logs a
warning; ingestion falls back to wiring sources directly into the
write-behind buffer.

# Signal Handling

The server handles graceful shutdown on SIGINT and SIGTERM:

 1. Stops accepting new HTTP connections
 2. Stops ingestion sources (file tail watchers, syslog listeners)
 3. Drains the write-behind buffer and flushes pending partitions
 4. Stops the alarm scheduler and retention worker
 5. Closes the control store
 6. Reports any services that failed to stop within the shutdown timeout

# See Also

  - internal/config: Configuration management
  - internal/supervisor: Process supervision
  - internal/api: HTTP handlers and routing
  - internal/partition: Time-bucketed index storage
  - internal/search: Saved-query execution
*/
package main
