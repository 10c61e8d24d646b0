// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

//go:build nats

package natsbus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	json "github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/cartographus/internal/config"
	"github.com/tomtom215/cartographus/internal/logging"
	"github.com/tomtom215/cartographus/internal/model"
)

const (
	streamName = "GREPWISE_EVENTS"
	subject    = "grepwise.events.raw"
)

// Bus is the durable ingestion fan-out fabric: ingestion sources Publish
// raw LogEvents onto a JetStream stream, and the buffer's feed goroutine
// Subscribes to drain them back out in order.
type Bus struct {
	embedded *embeddedServer
	conn     *natsgo.Conn
	pub      message.Publisher
	sub      message.Subscriber
	logger   watermill.LoggerAdapter
}

// New connects to NATS (starting an embedded server first if configured)
// and ensures the GREPWISE_EVENTS stream exists. Returns nil, nil if NATS
// is disabled in cfg.
func New(cfg config.NATSConfig) (*Bus, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	logger := watermill.NewStdLogger(false, false)
	b := &Bus{logger: logger}

	url := cfg.URL
	if cfg.EmbeddedServer {
		es, err := newEmbeddedServer(cfg.StoreDir, cfg.MaxMemory, cfg.MaxStore)
		if err != nil {
			return nil, err
		}
		b.embedded = es
		url = es.ClientURL()
		logging.Info().Str("url", url).Msg("embedded NATS server started")
	}

	nc, err := natsgo.Connect(url,
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2*time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	b.conn = nc

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("jetstream context: %w", err)
	}
	if err := ensureStream(context.Background(), js, cfg); err != nil {
		return nil, err
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: []natsgo.Option{natsgo.RetryOnFailedConnect(true)},
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			TrackMsgId:    true,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create publisher: %w", err)
	}
	b.pub = pub

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: cfg.SubscribersCount,
		AckWaitTimeout:   30 * time.Second,
		NatsOptions:      []natsgo.Option{natsgo.RetryOnFailedConnect(true)},
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			DurablePrefix: cfg.DurableName,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.BindStream(streamName),
				natsgo.AckExplicit(),
			},
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create subscriber: %w", err)
	}
	b.sub = sub

	return b, nil
}

func ensureStream(ctx context.Context, js jetstream.JetStream, cfg config.NATSConfig) error {
	streamCfg := jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subject},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    time.Duration(cfg.StreamRetentionDays) * 24 * time.Hour,
		Storage:   jetstream.FileStorage,
	}
	_, err := js.Stream(ctx, streamName)
	if errors.Is(err, jetstream.ErrStreamNotFound) {
		_, err = js.CreateStream(ctx, streamCfg)
		return err
	}
	if err != nil {
		return fmt.Errorf("check stream %s: %w", streamName, err)
	}
	_, err = js.UpdateStream(ctx, streamCfg)
	return err
}

// Publish marshals event and publishes it to the ingestion stream.
func (b *Bus) Publish(event *model.LogEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal log event: %w", err)
	}
	msg := message.NewMessage(event.ID, data)
	return b.pub.Publish(subject, msg)
}

// Subscribe drains the ingestion stream, calling handle for each decoded
// event and acking only after handle returns. It blocks until ctx is
// canceled.
func (b *Bus) Subscribe(ctx context.Context, handle func(*model.LogEvent)) error {
	msgs, err := b.sub.Subscribe(ctx, subject)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var ev model.LogEvent
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				logging.Error().Err(err).Msg("discarding malformed event from nats bus")
				msg.Ack()
				continue
			}
			handle(&ev)
			msg.Ack()
		}
	}
}

// Close shuts down the publisher, subscriber, connection, and (if started)
// the embedded server.
func (b *Bus) Close(ctx context.Context) {
	if b.pub != nil {
		_ = b.pub.Close()
	}
	if b.sub != nil {
		_ = b.sub.Close()
	}
	if b.conn != nil {
		b.conn.Close()
	}
	if b.embedded != nil {
		b.embedded.Shutdown(ctx)
	}
}
