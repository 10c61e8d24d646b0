// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package natsbus provides the optional NATS JetStream fan-out fabric that
// sits between ingestion sources and the write-behind buffer. When enabled
// (NATS_ENABLED=true, the default), every ingestion source publishes its
// accepted events to a durable JetStream stream instead of calling the
// buffer directly; one or more subscriber workers then drain that stream
// into the buffer. This decouples burst absorption from the ingestion
// process and lets a crashed buffer/indexer catch back up from the stream
// without losing events.
//
// Build without the "nats" tag and the package degrades to a disabled Bus:
// Publish and Subscribe return nil/no-op immediately so cmd/server always
// compiles and callers never need a build-tag conditional of their own.
package natsbus
