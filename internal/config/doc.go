// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package config provides centralized configuration management for the log
observability service.

This package handles loading, validation, and parsing of configuration for
all application components. It ensures consistent configuration across the
ingestion, indexing, search, alarm, and retention subsystems and provides
sensible defaults for optional settings.

# Configuration Sources

The package reads configuration, in increasing order of precedence, from:
  - Built-in defaults
  - An optional YAML config file (config.yaml, or CONFIG_PATH)
  - Environment variables

# Configuration Structure

The package organizes configuration into logical groups:

  - BufferConfig: write-behind buffer sizing and flush cadence (C4)
  - PartitionConfig: time-bucket partitioning (C2)
  - IndexConfig: on-disk index store location and durability (C1)
  - SearchCacheConfig: search result cache sizing and TTL (C8)
  - RetentionConfig: retention sweep cadence (C11)
  - SchedulerConfig: alarm evaluation cadence and SMTP notification (C9)
  - EventBusConfig: realtime event bus ring sizing (C10)
  - IngestConfig: file tail, syslog, and HTTP push ingestion sources (C5)
  - NATSConfig: embedded/external NATS JetStream transport
  - ServerConfig: HTTP server settings (host, port, timeouts)
  - APIConfig: API pagination defaults
  - SecurityConfig: rate limiting and CORS
  - LoggingConfig: structured logging level, format, and caller info

# Single-Source Environment Shorthand

Because most deployments run a single instance of each ingestion source
kind, FILETAIL_*, SYSLOG_*, and HTTPPUSH_* environment variables map onto
index 0 of their respective Ingest slice. Deployments running more than one
source of the same kind must configure them via the YAML file instead.

# Usage Example

	import "github.com/tomtom215/cartographus/internal/config"

	cfg, err := config.Load()
	if err != nil {
	    log.Fatalf("failed to load config: %v", err)
	}
	fmt.Printf("listening on %s:%d\n", cfg.Server.Host, cfg.Server.Port)

# Hot Reload

WatchConfigFile wires a koanf file.Provider watch to a reload callback;
callers are responsible for synchronizing access to the reloaded Config.

# Thread Safety

The Config struct is immutable after Load() returns, making it safe for
concurrent access from multiple goroutines without synchronization.
*/
package config
