// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package index

import (
	"fmt"
	"os"
	"strconv"
)

// Config tunes the BadgerDB-backed document store underlying each
// partition's index. Mirrors the WAL's tuning surface.
type Config struct {
	SyncWrites       bool
	MemTableSize     int64
	ValueLogFileSize int64
	NumCompactors    int
	Compression      bool
	BlockCacheSize   int64
	IndexCacheSize   int64
}

// DefaultConfig returns sane defaults for a partition's on-disk store.
func DefaultConfig() Config {
	return Config{
		SyncWrites:       false,
		MemTableSize:     16 << 20,
		ValueLogFileSize: 64 << 20,
		NumCompactors:    2,
		Compression:      true,
	}
}

// LoadConfig reads tuning knobs from the environment, falling back to
// DefaultConfig for anything unset.
func LoadConfig() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("INDEX_SYNC_WRITES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SyncWrites = b
		}
	}
	if v := os.Getenv("INDEX_COMPRESSION"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Compression = b
		}
	}
	if v := os.Getenv("INDEX_NUM_COMPACTORS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.NumCompactors = n
		}
	}
	return cfg
}

// Validate reports a ConfigError for out-of-range settings.
func (c Config) Validate() error {
	if c.NumCompactors < 1 {
		return &ConfigError{Field: "NumCompactors", Message: "must be at least 1"}
	}
	if c.MemTableSize <= 0 {
		return &ConfigError{Field: "MemTableSize", Message: "must be positive"}
	}
	return nil
}

// ConfigError reports an invalid index Config field.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("index config: %s: %s", e.Field, e.Message)
}
