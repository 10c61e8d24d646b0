// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package eventbus implements the C10 event bus: per-topic fan-out of
// LogEvents and AlarmEvents to subscribers (SSE/WS streams), each with its
// own bounded ring buffer so one slow subscriber never blocks another or
// the publisher.
package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/cartographus/internal/logging"
	"github.com/tomtom215/cartographus/internal/metrics"
	"github.com/tomtom215/cartographus/internal/model"
)

// DefaultRingSize bounds each subscriber's buffered channel.
const DefaultRingSize = 256

// Subscriber is a live topic subscription. Events arrives on C; the
// subscriber must drain it promptly or risk DROP_OLDEST overflow.
type Subscriber struct {
	model.Subscription
	C      chan any
	bus    *Bus
	closed bool
	mu     sync.Mutex
}

// Close unregisters the subscriber and drains its channel.
func (s *Subscriber) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.bus.unsubscribe(s)
}

// Bus is a topic-keyed registry of Subscribers. Publish never blocks: a
// full subscriber ring drops its oldest buffered event to admit the new
// one, per model.DropOldest.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscriber]struct{}
}

func New() *Bus {
	return &Bus{subs: make(map[string]map[*Subscriber]struct{})}
}

// Subscribe registers a new Subscriber on topic with the default ring
// size, returning it ready to receive published events.
func (b *Bus) Subscribe(topic string) *Subscriber {
	s := &Subscriber{
		Subscription: model.Subscription{ID: uuid.NewString(), Topic: topic, Created: time.Now()},
		C:            make(chan any, DefaultRingSize),
		bus:          b,
	}

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*Subscriber]struct{})
	}
	b.subs[topic][s] = struct{}{}
	b.mu.Unlock()

	metrics.EventBusSubscribers.WithLabelValues(topic).Inc()
	logging.Info().Str("topic", topic).Str("subscriber", s.ID).Msg("event bus subscriber registered")
	return s
}

func (b *Bus) unsubscribe(s *Subscriber) {
	b.mu.Lock()
	if set, ok := b.subs[s.Topic]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(b.subs, s.Topic)
		}
	}
	b.mu.Unlock()
	metrics.EventBusSubscribers.WithLabelValues(s.Topic).Dec()
}

// Publish fans event out to every subscriber of topic. A subscriber whose
// ring is full has its oldest buffered event evicted to make room - the
// publisher is never blocked by a slow reader.
func (b *Bus) Publish(topic string, event any) {
	b.mu.RLock()
	subs := make([]*Subscriber, 0, len(b.subs[topic]))
	for s := range b.subs[topic] {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	for _, s := range subs {
		select {
		case s.C <- event:
		default:
			select {
			case <-s.C:
			default:
			}
			select {
			case s.C <- event:
			default:
			}
			metrics.EventBusLaggedTotal.WithLabelValues(topic).Inc()
		}
	}
	metrics.EventBusPublishedTotal.WithLabelValues(topic).Inc()
}

// PublishLogEvent publishes e on topic "logs" plus, if source is non-empty,
// a per-source topic "logs:<source>" so consumers can subscribe narrowly.
func (b *Bus) PublishLogEvent(e *model.LogEvent) {
	b.Publish("logs", e)
	if e.Source != "" {
		b.Publish("logs:"+e.Source, e)
	}
}

// PublishAlarmEvent publishes an AlarmEvent on the "alarms" topic.
func (b *Bus) PublishAlarmEvent(e model.AlarmEvent) {
	b.Publish("alarms", e)
}

// SubscriberCount reports how many subscribers a topic currently has.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// Drain blocks until ctx is done, then closes s. Callers run this as the
// body of their SSE/WS handler goroutine after wiring writes from s.C.
func Drain(ctx context.Context, s *Subscriber) {
	<-ctx.Done()
	s.Close()
}
