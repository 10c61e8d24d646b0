// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

//go:build nats

package natsbus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// embeddedServer wraps a self-contained NATS JetStream instance for
// single-node deployments that don't have an external NATS cluster.
type embeddedServer struct {
	server    *server.Server
	clientURL string
}

func newEmbeddedServer(storeDir string, maxMem, maxStore int64) (*embeddedServer, error) {
	opts := &server.Options{
		ServerName:         "grepwise",
		Host:               "127.0.0.1",
		Port:               4222,
		JetStream:          true,
		StoreDir:           storeDir,
		JetStreamMaxMemory: maxMem,
		JetStreamMaxStore:  maxStore,
		DontListen:         false,
		MaxPayload:         8 * 1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create embedded NATS server: %w", err)
	}
	ns.ConfigureLogger()

	go ns.Start()

	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded NATS server not ready within timeout")
	}

	return &embeddedServer{server: ns, clientURL: ns.ClientURL()}, nil
}

func (s *embeddedServer) ClientURL() string { return s.clientURL }

func (s *embeddedServer) Shutdown(ctx context.Context) {
	s.server.Shutdown()
	select {
	case <-ctx.Done():
	default:
		s.server.WaitForShutdown()
	}
}
