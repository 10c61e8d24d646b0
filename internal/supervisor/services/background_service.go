// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package services

import (
	"context"
)

// BackgroundLoop matches the Start/Stop lifecycle shared by the alarm
// scheduler and the retention worker: Start spawns a ticker-driven
// goroutine and returns immediately, Stop cancels it and blocks until the
// goroutine has exited.
//
// Satisfied by:
//   - *alarm.Scheduler from internal/alarm/alarm.go
//   - *retention.Worker from internal/retention/retention.go
type BackgroundLoop interface {
	Start(ctx context.Context)
	Stop()
}

// BackgroundService adapts a BackgroundLoop to suture's Serve pattern.
//
// Example usage:
//
//	svc := services.NewBackgroundService(alarmScheduler, "alarm-scheduler")
//	tree.AddDataService(svc)
type BackgroundService struct {
	loop BackgroundLoop
	name string
}

// NewBackgroundService wraps a BackgroundLoop as a supervised service.
func NewBackgroundService(loop BackgroundLoop, name string) *BackgroundService {
	return &BackgroundService{loop: loop, name: name}
}

// Serve implements suture.Service.
func (s *BackgroundService) Serve(ctx context.Context) error {
	s.loop.Start(ctx)
	<-ctx.Done()
	s.loop.Stop()
	return ctx.Err()
}

// String implements fmt.Stringer for logging.
func (s *BackgroundService) String() string {
	return s.name
}
