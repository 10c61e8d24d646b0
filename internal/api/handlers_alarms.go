// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/cartographus/internal/model"
	"github.com/tomtom215/cartographus/internal/store"
)

func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// ListAlarms returns every saved alarm.
func (h *Handler) ListAlarms(w http.ResponseWriter, r *http.Request) {
	alarms := h.control.Alarms()
	respondJSON(w, http.StatusOK, alarms, len(alarms))
}

// CreateAlarm validates and persists a new alarm definition.
func (h *Handler) CreateAlarm(w http.ResponseWriter, r *http.Request) {
	var a model.Alarm
	if err := decodeBody(r, &a); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "request body is not a valid alarm", err)
		return
	}
	if apiErr := validateRequest(&a); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	created, err := h.control.CreateAlarm(a)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "CREATE_FAILED", "failed to persist alarm", err)
		return
	}
	respondJSON(w, http.StatusCreated, created, 0)
}

// GetAlarm fetches a single alarm by ID.
func (h *Handler) GetAlarm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, err := h.control.GetAlarm(id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a, 0)
}

// UpdateAlarm replaces an existing alarm's definition.
func (h *Handler) UpdateAlarm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var a model.Alarm
	if err := decodeBody(r, &a); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "request body is not a valid alarm", err)
		return
	}
	a.ID = id
	if apiErr := validateRequest(&a); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}
	if err := h.control.UpdateAlarm(a); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a, 0)
}

// DeleteAlarm removes an alarm by ID.
func (h *Handler) DeleteAlarm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.control.DeleteAlarm(id); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAlarmEvents returns every fired AlarmEvent for one alarm.
func (h *Handler) ListAlarmEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	events := h.control.Events(id)
	respondJSON(w, http.StatusOK, events, len(events))
}

// AckAlarmEvent transitions a TRIGGERED event to ACKNOWLEDGED.
func (h *Handler) AckAlarmEvent(w http.ResponseWriter, r *http.Request) {
	h.transitionEvent(w, r, model.AlarmAcknowledged, func(e *model.AlarmEvent) {
		e.AckBy = r.URL.Query().Get("by")
		now := time.Now()
		e.AckAt = &now
	})
}

// ResolveAlarmEvent transitions an event to RESOLVED.
func (h *Handler) ResolveAlarmEvent(w http.ResponseWriter, r *http.Request) {
	h.transitionEvent(w, r, model.AlarmResolved, func(e *model.AlarmEvent) {
		e.ResolvedBy = r.URL.Query().Get("by")
		now := time.Now()
		e.ResolvedAt = &now
	})
}

func (h *Handler) transitionEvent(w http.ResponseWriter, r *http.Request, next model.AlarmEventStatus, apply func(*model.AlarmEvent)) {
	eventID := chi.URLParam(r, "eventId")
	event, err := h.control.GetEvent(eventID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if !event.Status.CanTransition(next) {
		respondError(w, http.StatusConflict, "INVALID_TRANSITION", "alarm event cannot transition to that status from its current status", nil)
		return
	}
	event.Status = next
	apply(&event)
	if err := h.control.UpdateEvent(event); err != nil {
		respondError(w, http.StatusInternalServerError, "UPDATE_FAILED", "failed to persist alarm event", err)
		return
	}
	respondJSON(w, http.StatusOK, event, 0)
}

// RecentSuppressions exposes the scheduler's in-memory throttle/dispatch
// failure audit trail.
func (h *Handler) RecentSuppressions(w http.ResponseWriter, r *http.Request) {
	records := h.scheduler.RecentSuppressions()
	respondJSON(w, http.StatusOK, records, len(records))
}

// ListRetentionPolicies returns every saved retention policy.
func (h *Handler) ListRetentionPolicies(w http.ResponseWriter, r *http.Request) {
	policies := h.control.Policies()
	respondJSON(w, http.StatusOK, policies, len(policies))
}

// CreateRetentionPolicy validates and persists a new retention policy.
func (h *Handler) CreateRetentionPolicy(w http.ResponseWriter, r *http.Request) {
	var p model.RetentionPolicy
	if err := decodeBody(r, &p); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "request body is not a valid retention policy", err)
		return
	}
	if apiErr := validateRequest(&p); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}
	if err := h.control.CreatePolicy(p); err != nil {
		respondError(w, http.StatusInternalServerError, "CREATE_FAILED", "failed to persist retention policy", err)
		return
	}
	respondJSON(w, http.StatusCreated, p, 0)
}

// GetRetentionPolicy fetches a single policy by name.
func (h *Handler) GetRetentionPolicy(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	p, err := h.control.GetPolicy(name)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p, 0)
}

// UpdateRetentionPolicy replaces an existing policy's definition.
func (h *Handler) UpdateRetentionPolicy(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var p model.RetentionPolicy
	if err := decodeBody(r, &p); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "request body is not a valid retention policy", err)
		return
	}
	p.Name = name
	if apiErr := validateRequest(&p); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}
	if err := h.control.UpdatePolicy(p); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p, 0)
}

// DeleteRetentionPolicy removes a policy by name.
func (h *Handler) DeleteRetentionPolicy(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.control.DeletePolicy(name); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respondStoreError maps a store lookup error to its HTTP status, 404 for
// ErrNotFound and 500 for anything else.
func respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "no such record", err)
		return
	}
	respondError(w, http.StatusInternalServerError, "STORE_ERROR", "store operation failed", err)
}
