// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"net/http"
	"time"
)

// Health reports overall service health, including the retention worker's
// last completed sweep.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	var lastRetentionSweep *time.Time
	if h.retention != nil {
		last := h.retention.LastRun()
		if !last.IsZero() {
			lastRetentionSweep = &last
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":             status,
		"uptime":             time.Since(h.startedAt).Seconds(),
		"partitionCount":     len(h.partitions.Snapshot()),
		"lastRetentionSweep": lastRetentionSweep,
		"subscriberCount":    h.bus.SubscriberCount("logs"),
		"connectedClients":   h.hub.GetClientCount(),
	}, 0)
}

// HealthLive is the Kubernetes liveness probe: 200 OK as long as the
// process is serving requests at all.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startedAt).Seconds(),
	}, 0)
}

// HealthReady is the Kubernetes readiness probe: 200 only once the
// partition manager holds at least one partition (an empty index still
// serves searches, so absence of partitions is reported, not fatal).
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ready":          true,
		"partitionCount": len(h.partitions.Snapshot()),
	}, 0)
}
