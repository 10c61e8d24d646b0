// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package metrics provides Prometheus metrics collection and export for observability.

This package implements application instrumentation using the Prometheus client
library, exposing metrics for monitoring throughput, latency and error rates
across the ingestion, indexing, search and alerting pipeline.

# Overview

metrics.go carries the ambient, domain-agnostic metrics:

  - api_requests_total / api_request_duration_seconds / api_active_requests
  - api_rate_limit_hits_total
  - circuit_breaker_state / circuit_breaker_requests_total /
    circuit_breaker_consecutive_failures / circuit_breaker_state_transitions_total
  - app_info / app_uptime_seconds

grepwise.go carries the per-component metrics for the ingestion and search
pipeline: the write-behind buffer, the index/partition store, the search
cache, the alarm scheduler, the realtime event bus and the retention worker.

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:3857/metrics

# Usage Example

	import (
	    "github.com/tomtom215/cartographus/internal/metrics"
	    "github.com/prometheus/client_golang/prometheus/promhttp"
	)

	func main() {
	    http.Handle("/metrics", promhttp.Handler())
	    metrics.RecordAPIRequest("GET", "/api/logs/search", "200", 23*time.Millisecond)
	}

# Thread Safety

All metric recording functions are thread-safe and designed for concurrent use
from multiple goroutines. The Prometheus client library handles synchronization
internally.

# Cardinality Management

  - Endpoint labels are normalized (no query parameters)
  - Circuit breaker names are derived from the fixed set of configured sources
  - Alarm/topic/policy labels come from configuration, not user input

# See Also

  - internal/middleware: HTTP middleware with metrics integration
  - internal/ingest: circuit breaker instrumentation for outbound pulls
*/
package metrics
