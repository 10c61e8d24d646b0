// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/cartographus/internal/eventbus"
	"github.com/tomtom215/cartographus/internal/index"
	"github.com/tomtom215/cartographus/internal/model"
	"github.com/tomtom215/cartographus/internal/partition"
	"github.com/tomtom215/cartographus/internal/websocket"
)

func newHealthTestHandler(t *testing.T) *Handler {
	t.Helper()
	partitions := partition.New(partition.Config{
		RootDir:             t.TempDir(),
		Type:                model.PartitionDaily,
		MaxActivePartitions: 2,
		IndexConfig:         index.DefaultConfig(),
	}, nil)
	t.Cleanup(func() { _ = partitions.Close() })

	return &Handler{
		partitions: partitions,
		bus:        eventbus.New(),
		hub:        websocket.NewHub(),
		startedAt:  time.Now().Add(-time.Minute),
	}
}

func TestHealthLive(t *testing.T) {
	h := newHealthTestHandler(t)
	w := httptest.NewRecorder()
	h.HealthLive(w, httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestHealthReady(t *testing.T) {
	h := newHealthTestHandler(t)
	w := httptest.NewRecorder()
	h.HealthReady(w, httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestHealth(t *testing.T) {
	h := newHealthTestHandler(t)
	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200, body=%s", w.Code, w.Body.String())
	}
}
