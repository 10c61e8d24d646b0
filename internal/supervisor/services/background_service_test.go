// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// mockBackgroundLoop simulates a BackgroundLoop (alarm.Scheduler,
// retention.Worker) for testing.
type mockBackgroundLoop struct {
	running atomic.Bool
	started atomic.Bool
}

func (m *mockBackgroundLoop) Start(_ context.Context) {
	m.started.Store(true)
	m.running.Store(true)
}

func (m *mockBackgroundLoop) Stop() {
	m.running.Store(false)
}

func TestBackgroundService(t *testing.T) {
	t.Run("implements suture.Service interface", func(t *testing.T) {
		var _ suture.Service = (*BackgroundService)(nil)
	})

	t.Run("starts underlying loop", func(t *testing.T) {
		mock := &mockBackgroundLoop{}
		svc := NewBackgroundService(mock, "test-loop")

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		done := make(chan error, 1)
		go func() { done <- svc.Serve(ctx) }()

		var started bool
		for i := 0; i < 10; i++ {
			time.Sleep(20 * time.Millisecond)
			if mock.started.Load() {
				started = true
				break
			}
		}
		if !started {
			t.Error("loop should have been started")
		}
		if !mock.running.Load() {
			t.Error("loop should be running")
		}

		cancel()
		<-done
	})

	t.Run("stops loop on context cancellation", func(t *testing.T) {
		mock := &mockBackgroundLoop{}
		svc := NewBackgroundService(mock, "test-loop")

		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() { done <- svc.Serve(ctx) }()

		for i := 0; i < 10; i++ {
			time.Sleep(20 * time.Millisecond)
			if mock.started.Load() {
				break
			}
		}
		cancel()

		select {
		case err := <-done:
			if err == nil {
				t.Error("expected context.Canceled")
			}
		case <-time.After(time.Second):
			t.Error("service did not stop in time")
		}

		if mock.running.Load() {
			t.Error("loop should have been stopped")
		}
	})

	t.Run("String returns service name", func(t *testing.T) {
		mock := &mockBackgroundLoop{}
		svc := NewBackgroundService(mock, "alarm-scheduler")
		if svc.String() != "alarm-scheduler" {
			t.Errorf("String() = %q, want %q", svc.String(), "alarm-scheduler")
		}
	})
}
