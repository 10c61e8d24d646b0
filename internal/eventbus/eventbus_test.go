// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package eventbus

import (
	"testing"

	"github.com/tomtom215/cartographus/internal/model"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := New()
	s := b.Subscribe("logs")
	defer s.Close()

	b.Publish("logs", "hello")

	select {
	case v := <-s.C:
		if v != "hello" {
			t.Errorf("received %v, want hello", v)
		}
	default:
		t.Fatal("expected a buffered event")
	}
}

func TestPublishLogEventFansOutToSourceTopic(t *testing.T) {
	b := New()
	s := b.Subscribe("logs:api")
	defer s.Close()

	b.PublishLogEvent(&model.LogEvent{Source: "api"})

	select {
	case <-s.C:
	default:
		t.Fatal("expected the per-source topic to receive the event")
	}
}

func TestPublishDropsOldestWhenRingFull(t *testing.T) {
	b := New()
	s := b.Subscribe("logs")
	defer s.Close()

	for i := 0; i < DefaultRingSize+10; i++ {
		b.Publish("logs", i)
	}

	if len(s.C) != DefaultRingSize {
		t.Fatalf("buffered = %d, want full ring of %d", len(s.C), DefaultRingSize)
	}
	last := <-s.C
	for len(s.C) > 0 {
		last = <-s.C
	}
	if last != DefaultRingSize+9 {
		t.Errorf("last delivered event = %v, want the most recently published value", last)
	}
}

func TestCloseRemovesSubscriber(t *testing.T) {
	b := New()
	s := b.Subscribe("logs")
	if b.SubscriberCount("logs") != 1 {
		t.Fatalf("SubscriberCount() = %d, want 1", b.SubscriberCount("logs"))
	}
	s.Close()
	if b.SubscriberCount("logs") != 0 {
		t.Errorf("SubscriberCount() after Close = %d, want 0", b.SubscriberCount("logs"))
	}
}
