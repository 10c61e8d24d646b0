// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package config

import (
	"fmt"
	"strings"
)

// Validate checks that required configuration is present and well-formed.
func (c *Config) Validate() error {
	if err := c.validateBuffer(); err != nil {
		return err
	}
	if err := c.validatePartition(); err != nil {
		return err
	}
	if err := c.validateIndex(); err != nil {
		return err
	}
	if err := c.validateIngest(); err != nil {
		return err
	}
	if err := c.validateNATS(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateBuffer() error {
	if c.Buffer.MaxSize <= 0 {
		return fmt.Errorf("BUFFER_MAX_SIZE must be positive, got: %d", c.Buffer.MaxSize)
	}
	if c.Buffer.FlushInterval <= 0 {
		return fmt.Errorf("BUFFER_FLUSH_INTERVAL must be positive, got: %s", c.Buffer.FlushInterval)
	}
	return nil
}

func (c *Config) validatePartition() error {
	switch c.Partition.BucketSize {
	case "HOURLY", "DAILY", "WEEKLY":
	default:
		return fmt.Errorf("PARTITION_BUCKET_SIZE must be HOURLY, DAILY, or WEEKLY, got: %s", c.Partition.BucketSize)
	}
	if c.Partition.MaxActive <= 0 {
		return fmt.Errorf("PARTITION_MAX_ACTIVE must be positive, got: %d", c.Partition.MaxActive)
	}
	return nil
}

func (c *Config) validateIndex() error {
	if strings.TrimSpace(c.Index.DataDir) == "" {
		return fmt.Errorf("INDEX_DATA_DIR is required")
	}
	return nil
}

// validateIngest checks that every configured source carries the identifying
// fields it needs to register with the ingestion supervisor; it does not
// require any sources to be configured at all (ingestion is opt-in per kind).
func (c *Config) validateIngest() error {
	for i, ft := range c.Ingest.FileTail {
		if ft.SourceID == "" {
			return fmt.Errorf("ingest.file_tail[%d].source_id is required", i)
		}
		if ft.Path == "" {
			return fmt.Errorf("ingest.file_tail[%d].path is required", i)
		}
	}
	for i, sl := range c.Ingest.Syslog {
		if sl.SourceID == "" {
			return fmt.Errorf("ingest.syslog[%d].source_id is required", i)
		}
		if sl.Network != "udp" && sl.Network != "tcp" {
			return fmt.Errorf("ingest.syslog[%d].network must be udp or tcp, got: %s", i, sl.Network)
		}
		if sl.Addr == "" {
			return fmt.Errorf("ingest.syslog[%d].addr is required", i)
		}
	}
	for i, hp := range c.Ingest.HTTPPush {
		if hp.SourceID == "" {
			return fmt.Errorf("ingest.http_push[%d].source_id is required", i)
		}
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if c.NATS.URL == "" {
		return fmt.Errorf("NATS_URL is required when NATS_ENABLED=true")
	}
	if err := validateNATSURL(c.NATS.URL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got: %d", c.Server.Port)
	}
	if c.Server.Host == "" {
		return fmt.Errorf("HTTP_HOST is required")
	}
	switch c.Server.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be development, staging, or production, got: %s", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if !c.Security.RateLimitDisabled && c.Security.RateLimitReqs <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive when rate limiting is enabled, got: %d", c.Security.RateLimitReqs)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, got: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got: %s", c.Logging.Format)
	}
	return nil
}
