// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package store is the control-plane persistence layer: Alarm definitions,
// AlarmEvents, and RetentionPolicy documents, all operator-managed through
// the alarm/retention CRUD API rather than flowing through the log-event
// pipeline. It is backed by a dedicated BadgerDB instance, the same
// embedded-KV engine the teacher's WAL package uses for event durability,
// keyed by type-prefixed, JSON-encoded (goccy/go-json) records.
package store
