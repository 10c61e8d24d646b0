// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/cartographus/internal/model"
	"github.com/tomtom215/cartographus/internal/store"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "control"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return &Handler{control: s}
}

func withChiContext(r *http.Request, rctx *chi.Context) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestTransitionEvent(t *testing.T) {
	h := newTestHandler(t)

	alarmEvent := model.AlarmEvent{AlarmID: "a1", Status: model.AlarmTriggered}
	h.control.SaveEvent(alarmEvent)
	events := h.control.Events("a1")
	if len(events) != 1 {
		t.Fatalf("expected 1 saved event, got %d", len(events))
	}
	eventID := events[0].ID

	t.Run("ack moves TRIGGERED to ACKNOWLEDGED", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/v1/alarms/a1/events/"+eventID+"/ack?by=ops", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("eventId", eventID)
		req = withChiContext(req, rctx)

		w := httptest.NewRecorder()
		h.AckAlarmEvent(w, req)

		if w.Code != 200 {
			t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
		}
		got, err := h.control.GetEvent(eventID)
		if err != nil {
			t.Fatalf("GetEvent() error = %v", err)
		}
		if got.Status != model.AlarmAcknowledged {
			t.Errorf("Status = %v, want ACKNOWLEDGED", got.Status)
		}
		if got.AckBy != "ops" {
			t.Errorf("AckBy = %q, want %q", got.AckBy, "ops")
		}
	})

	t.Run("resolve after acknowledge succeeds", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/v1/alarms/a1/events/"+eventID+"/resolve?by=ops", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("eventId", eventID)
		req = withChiContext(req, rctx)

		w := httptest.NewRecorder()
		h.ResolveAlarmEvent(w, req)

		if w.Code != 200 {
			t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
		}
	})

	t.Run("ack after resolve is rejected", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/v1/alarms/a1/events/"+eventID+"/ack", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("eventId", eventID)
		req = withChiContext(req, rctx)

		w := httptest.NewRecorder()
		h.AckAlarmEvent(w, req)

		if w.Code != 409 {
			t.Errorf("status = %d, want 409 (invalid transition)", w.Code)
		}
	})
}
