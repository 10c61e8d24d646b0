// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package config

import (
	"os"
	"testing"
	"time"
)

// Test helpers to reduce cyclomatic complexity

// setupTestEnv sets up test environment variables and returns cleanup function
func setupTestEnv(t *testing.T, envVars map[string]string) func() {
	t.Helper()
	os.Clearenv()
	for k, v := range envVars {
		if err := os.Setenv(k, v); err != nil {
			t.Fatalf("failed to set env var %s: %v", k, err)
		}
	}
	return func() {
		os.Clearenv()
	}
}

// assertNoError checks that error is nil
func assertNoError(t *testing.T, err error, testName string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", testName, err)
	}
}

// assertError checks that error occurred and optionally matches message
func assertError(t *testing.T, err error, expectedMsg, testName string) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: expected error containing %q, got nil", testName, expectedMsg)
	}
	if expectedMsg != "" && err.Error() != expectedMsg {
		t.Errorf("%s: error = %v, want error containing %q", testName, err, expectedMsg)
	}
}

// assertConfigNotNil checks that config is not nil
func assertConfigNotNil(t *testing.T, cfg *Config, testName string) {
	t.Helper()
	if cfg == nil {
		t.Fatalf("%s: config is nil", testName)
	}
}

// assertIntEqual checks integer equality
func assertIntEqual(t *testing.T, got, want int, field, testName string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: %s = %v, want %v", testName, field, got, want)
	}
}

// assertStringEqual checks string equality
func assertStringEqual(t *testing.T, got, want, field string) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %v, want %v", field, got, want)
	}
}

// assertBoolEqual checks boolean equality
func assertBoolEqual(t *testing.T, got, want bool, field string) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %v, want %v", field, got, want)
	}
}

func TestLoadLegacy_Defaults(t *testing.T) {
	defer setupTestEnv(t, nil)()

	cfg, err := LoadLegacy()
	assertNoError(t, err, "LoadLegacy")
	assertConfigNotNil(t, cfg, "LoadLegacy")

	assertIntEqual(t, cfg.Buffer.MaxSize, 1000, "Buffer.MaxSize", "defaults")
	if cfg.Buffer.FlushInterval != 1*time.Second {
		t.Errorf("Buffer.FlushInterval = %v, want 1s", cfg.Buffer.FlushInterval)
	}
	assertStringEqual(t, cfg.Partition.BucketSize, "DAILY", "Partition.BucketSize")
	assertIntEqual(t, cfg.Partition.MaxActive, 2, "Partition.MaxActive", "defaults")
	assertStringEqual(t, cfg.Index.DataDir, "/data/grepwise/index", "Index.DataDir")
	assertBoolEqual(t, cfg.Index.SyncWrites, false, "Index.SyncWrites")
	assertIntEqual(t, cfg.Cache.Size, 256, "Cache.Size", "defaults")
	if cfg.Cache.TTL != 30*time.Second {
		t.Errorf("Cache.TTL = %v, want 30s", cfg.Cache.TTL)
	}
	if cfg.Retention.SweepInterval != 1*time.Hour {
		t.Errorf("Retention.SweepInterval = %v, want 1h", cfg.Retention.SweepInterval)
	}
	if cfg.Scheduler.TickInterval != 30*time.Second {
		t.Errorf("Scheduler.TickInterval = %v, want 30s", cfg.Scheduler.TickInterval)
	}
	assertIntEqual(t, cfg.EventBus.RingSize, 256, "EventBus.RingSize", "defaults")
	assertBoolEqual(t, cfg.NATS.Enabled, true, "NATS.Enabled")
	assertStringEqual(t, cfg.NATS.URL, "nats://127.0.0.1:4222", "NATS.URL")
	assertIntEqual(t, cfg.Server.Port, 8080, "Server.Port", "defaults")
	assertStringEqual(t, cfg.Server.Host, "0.0.0.0", "Server.Host")
	assertStringEqual(t, cfg.Server.Environment, "development", "Server.Environment")
	assertIntEqual(t, cfg.API.DefaultPageSize, 20, "API.DefaultPageSize", "defaults")
	assertIntEqual(t, cfg.API.MaxPageSize, 100, "API.MaxPageSize", "defaults")
	assertIntEqual(t, cfg.Security.RateLimitReqs, 100, "Security.RateLimitReqs", "defaults")
	assertStringEqual(t, cfg.Logging.Level, "info", "Logging.Level")
	assertStringEqual(t, cfg.Logging.Format, "json", "Logging.Format")

	if len(cfg.Ingest.FileTail) != 0 {
		t.Errorf("Ingest.FileTail = %v, want empty", cfg.Ingest.FileTail)
	}
	if len(cfg.Ingest.Syslog) != 0 {
		t.Errorf("Ingest.Syslog = %v, want empty", cfg.Ingest.Syslog)
	}
	if len(cfg.Ingest.HTTPPush) != 0 {
		t.Errorf("Ingest.HTTPPush = %v, want empty", cfg.Ingest.HTTPPush)
	}
}

func TestLoadLegacy_Overrides(t *testing.T) {
	defer setupTestEnv(t, map[string]string{
		"BUFFER_MAX_SIZE":        "500",
		"BUFFER_FLUSH_INTERVAL":  "2s",
		"PARTITION_BUCKET_SIZE":  "HOURLY",
		"PARTITION_MAX_ACTIVE":   "3",
		"INDEX_DATA_DIR":         "/tmp/index",
		"SEARCH_CACHE_SIZE":      "64",
		"RETENTION_SWEEP_INTERVAL": "2h",
		"ALARM_TICK_INTERVAL":    "10s",
		"EVENTBUS_RING_SIZE":     "128",
		"HTTP_PORT":              "9090",
		"HTTP_HOST":              "127.0.0.1",
		"ENVIRONMENT":            "production",
		"LOG_LEVEL":              "debug",
		"LOG_FORMAT":             "console",
	})()

	cfg, err := LoadLegacy()
	assertNoError(t, err, "LoadLegacy overrides")

	assertIntEqual(t, cfg.Buffer.MaxSize, 500, "Buffer.MaxSize", "overrides")
	if cfg.Buffer.FlushInterval != 2*time.Second {
		t.Errorf("Buffer.FlushInterval = %v, want 2s", cfg.Buffer.FlushInterval)
	}
	assertStringEqual(t, cfg.Partition.BucketSize, "HOURLY", "Partition.BucketSize")
	assertIntEqual(t, cfg.Partition.MaxActive, 3, "Partition.MaxActive", "overrides")
	assertStringEqual(t, cfg.Index.DataDir, "/tmp/index", "Index.DataDir")
	assertIntEqual(t, cfg.Cache.Size, 64, "Cache.Size", "overrides")
	if cfg.Retention.SweepInterval != 2*time.Hour {
		t.Errorf("Retention.SweepInterval = %v, want 2h", cfg.Retention.SweepInterval)
	}
	if cfg.Scheduler.TickInterval != 10*time.Second {
		t.Errorf("Scheduler.TickInterval = %v, want 10s", cfg.Scheduler.TickInterval)
	}
	assertIntEqual(t, cfg.EventBus.RingSize, 128, "EventBus.RingSize", "overrides")
	assertIntEqual(t, cfg.Server.Port, 9090, "Server.Port", "overrides")
	assertStringEqual(t, cfg.Server.Host, "127.0.0.1", "Server.Host")
	assertStringEqual(t, cfg.Server.Environment, "production", "Server.Environment")
	assertStringEqual(t, cfg.Logging.Level, "debug", "Logging.Level")
	assertStringEqual(t, cfg.Logging.Format, "console", "Logging.Format")
}

func TestLoadLegacy_IngestShorthand(t *testing.T) {
	defer setupTestEnv(t, map[string]string{
		"FILETAIL_PATH":      "/var/log/app.log",
		"FILETAIL_SOURCE_ID": "app-log",
		"FILETAIL_ACCESS_LOG": "true",
		"SYSLOG_ADDR":        ":514",
		"SYSLOG_NETWORK":     "tcp",
		"SYSLOG_SOURCE_ID":   "syslog-main",
		"HTTPPUSH_SOURCE_ID": "push-main",
		"HTTPPUSH_TOKEN":     "s3cr3t",
	})()

	cfg, err := LoadLegacy()
	assertNoError(t, err, "LoadLegacy ingest shorthand")

	if len(cfg.Ingest.FileTail) != 1 {
		t.Fatalf("Ingest.FileTail = %v, want 1 entry", cfg.Ingest.FileTail)
	}
	ft := cfg.Ingest.FileTail[0]
	assertStringEqual(t, ft.Path, "/var/log/app.log", "FileTail.Path")
	assertStringEqual(t, ft.SourceID, "app-log", "FileTail.SourceID")
	assertBoolEqual(t, ft.AccessLog, true, "FileTail.AccessLog")

	if len(cfg.Ingest.Syslog) != 1 {
		t.Fatalf("Ingest.Syslog = %v, want 1 entry", cfg.Ingest.Syslog)
	}
	sl := cfg.Ingest.Syslog[0]
	assertStringEqual(t, sl.Addr, ":514", "Syslog.Addr")
	assertStringEqual(t, sl.Network, "tcp", "Syslog.Network")
	assertStringEqual(t, sl.SourceID, "syslog-main", "Syslog.SourceID")

	if len(cfg.Ingest.HTTPPush) != 1 {
		t.Fatalf("Ingest.HTTPPush = %v, want 1 entry", cfg.Ingest.HTTPPush)
	}
	hp := cfg.Ingest.HTTPPush[0]
	assertStringEqual(t, hp.SourceID, "push-main", "HTTPPush.SourceID")
	assertStringEqual(t, hp.Token, "s3cr3t", "HTTPPush.Token")
}

func TestValidate_Buffer(t *testing.T) {
	cfg := defaultConfig()
	cfg.Buffer.MaxSize = 0
	assertError(t, cfg.Validate(), "", "zero buffer max size")

	cfg = defaultConfig()
	cfg.Buffer.FlushInterval = 0
	assertError(t, cfg.Validate(), "", "zero flush interval")
}

func TestValidate_Partition(t *testing.T) {
	cfg := defaultConfig()
	cfg.Partition.BucketSize = "MONTHLY"
	assertError(t, cfg.Validate(), "", "invalid bucket size")

	cfg = defaultConfig()
	cfg.Partition.MaxActive = 0
	assertError(t, cfg.Validate(), "", "zero max active partitions")
}

func TestValidate_Index(t *testing.T) {
	cfg := defaultConfig()
	cfg.Index.DataDir = ""
	assertError(t, cfg.Validate(), "", "empty index data dir")
}

func TestValidate_Ingest(t *testing.T) {
	cfg := defaultConfig()
	cfg.Ingest.FileTail = []FileTailSourceConfig{{SourceID: "", Path: "/var/log/x"}}
	assertError(t, cfg.Validate(), "", "file tail missing source id")

	cfg = defaultConfig()
	cfg.Ingest.FileTail = []FileTailSourceConfig{{SourceID: "a", Path: ""}}
	assertError(t, cfg.Validate(), "", "file tail missing path")

	cfg = defaultConfig()
	cfg.Ingest.Syslog = []SyslogSourceConfig{{SourceID: "a", Network: "sctp", Addr: ":514"}}
	assertError(t, cfg.Validate(), "", "syslog bad network")

	cfg = defaultConfig()
	cfg.Ingest.HTTPPush = []HTTPPushSourceConfig{{SourceID: ""}}
	assertError(t, cfg.Validate(), "", "http push missing source id")
}

func TestValidate_NATS(t *testing.T) {
	cfg := defaultConfig()
	cfg.NATS.Enabled = true
	cfg.NATS.URL = ""
	assertError(t, cfg.Validate(), "", "nats enabled without url")

	cfg = defaultConfig()
	cfg.NATS.Enabled = true
	cfg.NATS.URL = "not-a-url"
	assertError(t, cfg.Validate(), "", "nats bad scheme")

	cfg = defaultConfig()
	cfg.NATS.Enabled = false
	cfg.NATS.URL = ""
	assertNoError(t, cfg.Validate(), "nats disabled skips url check")
}

func TestValidate_Server(t *testing.T) {
	cfg := defaultConfig()
	cfg.Server.Port = 0
	assertError(t, cfg.Validate(), "", "zero port")

	cfg = defaultConfig()
	cfg.Server.Port = 70000
	assertError(t, cfg.Validate(), "", "port too large")

	cfg = defaultConfig()
	cfg.Server.Host = ""
	assertError(t, cfg.Validate(), "", "empty host")

	cfg = defaultConfig()
	cfg.Server.Environment = "beta"
	assertError(t, cfg.Validate(), "", "bad environment")
}

func TestValidate_Security(t *testing.T) {
	cfg := defaultConfig()
	cfg.Security.RateLimitReqs = 0
	cfg.Security.RateLimitDisabled = false
	assertError(t, cfg.Validate(), "", "zero rate limit")

	cfg = defaultConfig()
	cfg.Security.RateLimitReqs = 0
	cfg.Security.RateLimitDisabled = true
	assertNoError(t, cfg.Validate(), "rate limit disabled skips check")
}

func TestValidate_Logging(t *testing.T) {
	cfg := defaultConfig()
	cfg.Logging.Level = "verbose"
	assertError(t, cfg.Validate(), "", "bad log level")

	cfg = defaultConfig()
	cfg.Logging.Format = "xml"
	assertError(t, cfg.Validate(), "", "bad log format")
}

func TestValidate_DefaultsPass(t *testing.T) {
	cfg := defaultConfig()
	assertNoError(t, cfg.Validate(), "default config should validate")
}
