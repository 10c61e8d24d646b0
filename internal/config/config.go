// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration loaded from environment variables
// and config files. It covers ingestion sources, the write-behind buffer, the
// index/partition store, the search cache, the alarm scheduler, the event bus,
// the retention sweeper, the HTTP server, and ambient logging/security.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in sensible defaults for all optional settings
//  2. Config File: optional YAML config file (config.yaml) for persistent settings
//  3. Environment Variables: override any setting via environment variables
//
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Buffer    BufferConfig    `koanf:"buffer"`
	Partition PartitionConfig `koanf:"partition"`
	Index     IndexConfig     `koanf:"index"`
	Cache     SearchCacheConfig `koanf:"cache"`
	Retention RetentionConfig `koanf:"retention"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	EventBus  EventBusConfig  `koanf:"eventbus"`
	Ingest    IngestConfig    `koanf:"ingest"`
	NATS      NATSConfig      `koanf:"nats"`
	Server    ServerConfig    `koanf:"server"`
	API       APIConfig       `koanf:"api"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
	Control   ControlConfig   `koanf:"control"`
}

// ControlConfig points at the Badger-backed store holding operator-managed
// state that isn't a log event: Alarm definitions, AlarmEvents, and
// RetentionPolicy documents, all served through the alarm/retention CRUD API.
//
// Environment Variables:
//   - CONTROL_DATA_DIR: directory for the control-plane BadgerDB (default: /data/grepwise/control)
type ControlConfig struct {
	DataDir string `koanf:"data_dir"`
}

// BufferConfig controls the write-behind ingestion buffer (C4).
//
// Environment Variables:
//   - BUFFER_MAX_SIZE: max buffered events before a forced flush (default: 1000)
//   - BUFFER_FLUSH_INTERVAL: time-based flush cadence (default: 1s)
//   - BUFFER_WARN_STREAK: sustained over-utilization before Health reports degraded (default: 5s)
//   - BUFFER_DEDUP_WINDOW: suppression window for redelivered source+content
//     duplicates before enqueue; 0 disables it (default: 2m)
type BufferConfig struct {
	MaxSize       int           `koanf:"max_size"`
	FlushInterval time.Duration `koanf:"flush_interval"`
	WarnStreak    time.Duration `koanf:"warn_streak"`
	DedupWindow   time.Duration `koanf:"dedup_window"`
}

// PartitionConfig controls time-bucket rollover and active-partition limits (C2).
//
// Environment Variables:
//   - PARTITION_BUCKET_SIZE: HOURLY, DAILY, or WEEKLY (default: DAILY)
//   - PARTITION_MAX_ACTIVE: number of open buckets kept writable before the oldest seals (default: 2)
type PartitionConfig struct {
	BucketSize string `koanf:"bucket_size"`
	MaxActive  int    `koanf:"max_active"`
}

// IndexConfig controls the per-partition Badger-backed document store (C1).
//
// Environment Variables:
//   - INDEX_DATA_DIR: base directory for partition data (default: /data/grepwise/index)
//   - INDEX_SYNC_WRITES: fsync every write, trading throughput for durability (default: false)
type IndexConfig struct {
	DataDir     string `koanf:"data_dir"`
	SyncWrites  bool   `koanf:"sync_writes"`
}

// SearchCacheConfig controls the query-fingerprint result cache (C8).
//
// Environment Variables:
//   - SEARCH_CACHE_SIZE: max cached results (default: 256)
//   - SEARCH_CACHE_TTL: cache entry lifetime (default: 30s)
type SearchCacheConfig struct {
	Size int           `koanf:"size"`
	TTL  time.Duration `koanf:"ttl"`
}

// RetentionConfig controls the background partition-sweep worker (C11).
//
// Environment Variables:
//   - RETENTION_SWEEP_INTERVAL: how often policies are evaluated (default: 1h)
type RetentionConfig struct {
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// SchedulerConfig controls the alarm evaluation loop (C9).
//
// Environment Variables:
//   - ALARM_TICK_INTERVAL: how often enabled alarms are evaluated (default: 30s)
type SchedulerConfig struct {
	TickInterval time.Duration `koanf:"tick_interval"`
	// SMTPAddr is the host:port of the outbound SMTP relay used for EMAIL channels.
	SMTPAddr string `koanf:"smtp_addr"`
	SMTPFrom string `koanf:"smtp_from"`
}

// EventBusConfig controls the real-time subscriber fan-out (C10).
//
// Environment Variables:
//   - EVENTBUS_RING_SIZE: per-subscriber buffered channel depth (default: 256)
type EventBusConfig struct {
	RingSize int `koanf:"ring_size"`
}

// IngestConfig groups the configuration blocks for every ingestion source
// kind named in spec.md §4.5. Each slice may hold zero or more configured
// sources of that kind; an empty slice means the source kind is disabled.
//
// Environment Variables (single-source shorthand, for the common case of one
// source per kind):
//   - FILETAIL_PATH, FILETAIL_SOURCE_ID, FILETAIL_ACCESS_LOG
//   - SYSLOG_NETWORK, SYSLOG_ADDR, SYSLOG_SOURCE_ID
//   - HTTPPUSH_SOURCE_ID, HTTPPUSH_TOKEN
//
// Multiple sources of the same kind are configured via the YAML file's
// ingest.file_tail / ingest.syslog / ingest.http_push arrays.
type IngestConfig struct {
	FileTail []FileTailSourceConfig `koanf:"file_tail"`
	Syslog   []SyslogSourceConfig   `koanf:"syslog"`
	HTTPPush []HTTPPushSourceConfig `koanf:"http_push"`
}

type FileTailSourceConfig struct {
	SourceID         string `koanf:"source_id"`
	Path             string `koanf:"path"`
	NewRecordPattern string `koanf:"new_record_pattern"`
	AccessLog        bool   `koanf:"access_log"`
}

type SyslogSourceConfig struct {
	SourceID string `koanf:"source_id"`
	Network  string `koanf:"network"` // "udp" or "tcp"
	Addr     string `koanf:"addr"`
}

type HTTPPushSourceConfig struct {
	SourceID string `koanf:"source_id"`
	Token    string `koanf:"token"`
	// MaxEventsPerSecond caps sustained ingestion for this source; 0 disables
	// the limiter. Bursts up to the same size are allowed.
	MaxEventsPerSecond int `koanf:"max_events_per_second"`
}

// NATSConfig holds the event-ingestion fan-out backbone settings. GrepWise
// reuses the teacher's embedded-or-external NATS JetStream wiring verbatim:
// ingestion sources publish raw LogEvents to a subject, the buffer flusher
// and any real-time subscribers consume from there.
type NATSConfig struct {
	Enabled             bool          `koanf:"enabled"`
	URL                 string        `koanf:"url"`
	EmbeddedServer      bool          `koanf:"embedded_server"`
	StoreDir            string        `koanf:"store_dir"`
	MaxMemory           int64         `koanf:"max_memory"`
	MaxStore            int64         `koanf:"max_store"`
	StreamRetentionDays int           `koanf:"stream_retention_days"`
	BatchSize           int           `koanf:"batch_size"`
	FlushInterval       time.Duration `koanf:"flush_interval"`
	SubscribersCount    int           `koanf:"subscribers_count"`
	DurableName         string        `koanf:"durable_name"`
	QueueGroup          string        `koanf:"queue_group"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// APIConfig holds API pagination and response settings.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// SecurityConfig holds the ambient HTTP-edge settings that remain in scope
// (CORS, rate limiting). Auth/JWT issuance, OIDC, and RBAC are non-goals per
// spec.md §1 and are not configured here (see DESIGN.md).
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	TrustedProxies    []string      `koanf:"trusted_proxies"`
}

// LoggingConfig holds logging settings for zerolog.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration using the layered Koanf pipeline: built-in
// defaults, then an optional config file, then environment variables.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// LoadLegacy reads configuration directly from environment variables only,
// preserved for testing and backward compatibility.
//
// Deprecated: Use Load() instead for new code.
func LoadLegacy() (*Config, error) {
	cfg := &Config{
		Buffer: BufferConfig{
			MaxSize:       getIntEnv("BUFFER_MAX_SIZE", 1000),
			FlushInterval: getDurationEnv("BUFFER_FLUSH_INTERVAL", 1*time.Second),
			WarnStreak:    getDurationEnv("BUFFER_WARN_STREAK", 5*time.Second),
			DedupWindow:   getDurationEnv("BUFFER_DEDUP_WINDOW", 2*time.Minute),
		},
		Partition: PartitionConfig{
			BucketSize: getEnv("PARTITION_BUCKET_SIZE", "DAILY"),
			MaxActive:  getIntEnv("PARTITION_MAX_ACTIVE", 2),
		},
		Index: IndexConfig{
			DataDir:    getEnv("INDEX_DATA_DIR", "/data/grepwise/index"),
			SyncWrites: getBoolEnv("INDEX_SYNC_WRITES", false),
		},
		Cache: SearchCacheConfig{
			Size: getIntEnv("SEARCH_CACHE_SIZE", 256),
			TTL:  getDurationEnv("SEARCH_CACHE_TTL", 30*time.Second),
		},
		Retention: RetentionConfig{
			SweepInterval: getDurationEnv("RETENTION_SWEEP_INTERVAL", 1*time.Hour),
		},
		Scheduler: SchedulerConfig{
			TickInterval: getDurationEnv("ALARM_TICK_INTERVAL", 30*time.Second),
			SMTPAddr:     getEnv("SMTP_ADDR", ""),
			SMTPFrom:     getEnv("SMTP_FROM", ""),
		},
		EventBus: EventBusConfig{
			RingSize: getIntEnv("EVENTBUS_RING_SIZE", 256),
		},
		Ingest: IngestConfig{
			FileTail: fileTailFromEnv(),
			Syslog:   syslogFromEnv(),
			HTTPPush: httpPushFromEnv(),
		},
		NATS: NATSConfig{
			Enabled:             getBoolEnv("NATS_ENABLED", true),
			URL:                 getEnv("NATS_URL", "nats://127.0.0.1:4222"),
			EmbeddedServer:      getBoolEnv("NATS_EMBEDDED", true),
			StoreDir:            getEnv("NATS_STORE_DIR", "/data/nats/jetstream"),
			MaxMemory:           getInt64Env("NATS_MAX_MEMORY", 1<<30),
			MaxStore:            getInt64Env("NATS_MAX_STORE", 10<<30),
			StreamRetentionDays: getIntEnv("NATS_RETENTION_DAYS", 7),
			BatchSize:           getIntEnv("NATS_BATCH_SIZE", 1000),
			FlushInterval:       getDurationEnv("NATS_FLUSH_INTERVAL", 5*time.Second),
			SubscribersCount:    getIntEnv("NATS_SUBSCRIBERS", 4),
			DurableName:         getEnv("NATS_DURABLE_NAME", "grepwise-ingest"),
			QueueGroup:          getEnv("NATS_QUEUE_GROUP", "ingest-workers"),
		},
		Server: ServerConfig{
			Port:        getIntEnv("HTTP_PORT", 8080),
			Host:        getEnv("HTTP_HOST", "0.0.0.0"),
			Timeout:     getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		API: APIConfig{
			DefaultPageSize: getIntEnv("API_DEFAULT_PAGE_SIZE", 20),
			MaxPageSize:     getIntEnv("API_MAX_PAGE_SIZE", 100),
		},
		Security: SecurityConfig{
			RateLimitReqs:     getIntEnv("RATE_LIMIT_REQUESTS", 100),
			RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", 1*time.Minute),
			RateLimitDisabled: getBoolEnv("DISABLE_RATE_LIMIT", false),
			CORSOrigins:       getSliceEnv("CORS_ORIGINS", []string{"*"}),
			TrustedProxies:    getSliceEnv("TRUSTED_PROXIES", []string{}),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Caller: getBoolEnv("LOG_CALLER", false),
		},
		Control: ControlConfig{
			DataDir: getEnv("CONTROL_DATA_DIR", "/data/grepwise/control"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func fileTailFromEnv() []FileTailSourceConfig {
	path := getEnv("FILETAIL_PATH", "")
	if path == "" {
		return nil
	}
	return []FileTailSourceConfig{{
		SourceID:         getEnv("FILETAIL_SOURCE_ID", "filetail"),
		Path:             path,
		NewRecordPattern: getEnv("FILETAIL_NEW_RECORD_PATTERN", ""),
		AccessLog:        getBoolEnv("FILETAIL_ACCESS_LOG", false),
	}}
}

func syslogFromEnv() []SyslogSourceConfig {
	addr := getEnv("SYSLOG_ADDR", "")
	if addr == "" {
		return nil
	}
	return []SyslogSourceConfig{{
		SourceID: getEnv("SYSLOG_SOURCE_ID", "syslog"),
		Network:  getEnv("SYSLOG_NETWORK", "udp"),
		Addr:     addr,
	}}
}

func httpPushFromEnv() []HTTPPushSourceConfig {
	sourceID := getEnv("HTTPPUSH_SOURCE_ID", "")
	if sourceID == "" {
		return nil
	}
	return []HTTPPushSourceConfig{{
		SourceID:           sourceID,
		Token:              getEnv("HTTPPUSH_TOKEN", ""),
		MaxEventsPerSecond: getIntEnv("HTTPPUSH_MAX_EVENTS_PER_SECOND", 0),
	}}
}

// NOTE: Validate() lives in config_validate.go
