// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package alarm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/cartographus/internal/model"
	"github.com/tomtom215/cartographus/internal/search"
)

type fakeExecutor struct{ rows []search.Row }

func (f fakeExecutor) Run(ctx context.Context, cq *model.CompiledQuery, limit int) ([]search.Row, error) {
	return f.rows, nil
}

type fakeStore struct {
	mu     sync.Mutex
	alarms []model.Alarm
	events []model.AlarmEvent
}

func (f *fakeStore) Alarms() []model.Alarm { return f.alarms }
func (f *fakeStore) SaveEvent(e model.AlarmEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeNotifier) Notify(ctx context.Context, ch model.NotificationChannel, a model.Alarm, event model.AlarmEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

func TestEvaluateAllFiresWhenThresholdCrossed(t *testing.T) {
	exec := fakeExecutor{rows: []search.Row{{}, {}, {}}}
	store := &fakeStore{alarms: []model.Alarm{{
		ID: "a1", Query: "*", Condition: model.CondGreaterEq, Threshold: 2,
		TimeWindowMinutes: 5, Enabled: true,
		NotificationChannels:      []model.NotificationChannel{{Type: model.ChannelWebhook, WebhookURL: "http://example.invalid"}},
		ThrottleWindowMinutes:     1,
		MaxNotificationsPerWindow: 5,
	}}}
	notifier := &fakeNotifier{}
	s := New(Config{}, store, exec, notifier)

	s.EvaluateAll(context.Background())

	if len(store.events) != 1 {
		t.Fatalf("events recorded = %d, want 1", len(store.events))
	}
	if notifier.calls != 1 {
		t.Fatalf("notifier calls = %d, want 1", notifier.calls)
	}
}

func TestEvaluateAllSkipsWhenBelowThreshold(t *testing.T) {
	exec := fakeExecutor{rows: []search.Row{{}}}
	store := &fakeStore{alarms: []model.Alarm{{
		ID: "a1", Query: "*", Condition: model.CondGreaterEq, Threshold: 5,
		TimeWindowMinutes: 5, Enabled: true,
	}}}
	notifier := &fakeNotifier{}
	s := New(Config{}, store, exec, notifier)

	s.EvaluateAll(context.Background())

	if len(store.events) != 0 {
		t.Fatalf("events recorded = %d, want 0 below threshold", len(store.events))
	}
}

func TestFireThrottlesBeyondMaxNotificationsPerWindow(t *testing.T) {
	exec := fakeExecutor{rows: []search.Row{{}, {}}}
	a := model.Alarm{
		ID: "a1", Query: "*", Condition: model.CondGreaterEq, Threshold: 1,
		TimeWindowMinutes:         5,
		Enabled:                   true,
		NotificationChannels:      []model.NotificationChannel{{Type: model.ChannelWebhook, WebhookURL: "http://example.invalid"}},
		ThrottleWindowMinutes:     1,
		MaxNotificationsPerWindow: 1,
	}
	store := &fakeStore{alarms: []model.Alarm{a}}
	notifier := &fakeNotifier{}
	s := New(Config{}, store, exec, notifier)

	s.EvaluateAll(context.Background())
	s.EvaluateAll(context.Background())

	if notifier.calls != 1 {
		t.Errorf("notifier calls = %d, want exactly 1 after throttling a second firing", notifier.calls)
	}
}

func TestFireRecordsSuppressionOnThrottle(t *testing.T) {
	exec := fakeExecutor{rows: []search.Row{{}, {}}}
	a := model.Alarm{
		ID: "a1", Query: "*", Condition: model.CondGreaterEq, Threshold: 1,
		TimeWindowMinutes:         5,
		Enabled:                   true,
		NotificationChannels:      []model.NotificationChannel{{Type: model.ChannelWebhook, WebhookURL: "http://example.invalid"}},
		ThrottleWindowMinutes:     1,
		MaxNotificationsPerWindow: 1,
	}
	store := &fakeStore{alarms: []model.Alarm{a}}
	notifier := &fakeNotifier{}
	s := New(Config{}, store, exec, notifier)

	s.EvaluateAll(context.Background())
	s.EvaluateAll(context.Background())

	records := s.RecentSuppressions()
	if len(records) != 1 {
		t.Fatalf("RecentSuppressions() = %d records, want 1", len(records))
	}
	if records[0].AlarmID != "a1" || records[0].Channel != model.ChannelWebhook {
		t.Errorf("RecentSuppressions()[0] = %+v, want alarm a1 / webhook", records[0])
	}
}

type failingNotifier struct{}

func (failingNotifier) Notify(ctx context.Context, ch model.NotificationChannel, a model.Alarm, event model.AlarmEvent) error {
	return errAlarmDispatchTest
}

var errAlarmDispatchTest = context.DeadlineExceeded

func TestFireRecordsSuppressionOnDispatchFailure(t *testing.T) {
	exec := fakeExecutor{rows: []search.Row{{}, {}}}
	a := model.Alarm{
		ID: "a1", Query: "*", Condition: model.CondGreaterEq, Threshold: 1,
		TimeWindowMinutes:         5,
		Enabled:                   true,
		NotificationChannels:      []model.NotificationChannel{{Type: model.ChannelWebhook, WebhookURL: "http://example.invalid"}},
		ThrottleWindowMinutes:     1,
		MaxNotificationsPerWindow: 5,
	}
	store := &fakeStore{alarms: []model.Alarm{a}}
	s := New(Config{}, store, exec, failingNotifier{})

	s.EvaluateAll(context.Background())

	records := s.RecentSuppressions()
	if len(records) != 1 {
		t.Fatalf("RecentSuppressions() = %d records, want 1", len(records))
	}
	if records[0].Reason == "" {
		t.Error("RecentSuppressions()[0].Reason is empty, want a dispatch-failure reason")
	}
}

// TestThrottleWindowIsPerAlarm guards against regressing to a single
// shared sliding-window store: an alarm with a 5-minute ThrottleWindowMinutes
// must not share its throttle bucket with one configured for 1 hour.
func TestThrottleWindowIsPerAlarm(t *testing.T) {
	s := New(Config{}, &fakeStore{}, fakeExecutor{}, &fakeNotifier{})

	fiveMin := s.throttleStoreFor(5 * time.Minute)
	oneHour := s.throttleStoreFor(time.Hour)
	if fiveMin == oneHour {
		t.Fatal("throttleStoreFor returned the same store for different windows")
	}
	if again := s.throttleStoreFor(5 * time.Minute); again != fiveMin {
		t.Fatal("throttleStoreFor returned a different store for the same window on a second call")
	}
}

// TestDedupWindowIsPerAlarm mirrors TestThrottleWindowIsPerAlarm for the
// grouping/dedup store keyed off GroupingWindowMinutes.
func TestDedupWindowIsPerAlarm(t *testing.T) {
	s := New(Config{}, &fakeStore{}, fakeExecutor{}, &fakeNotifier{})

	tenMin := s.dedupStoreFor(10 * time.Minute)
	oneHour := s.dedupStoreFor(time.Hour)
	if tenMin == oneHour {
		t.Fatal("dedupStoreFor returned the same store for different windows")
	}
	if again := s.dedupStoreFor(10 * time.Minute); again != tenMin {
		t.Fatal("dedupStoreFor returned a different store for the same window on a second call")
	}
}
