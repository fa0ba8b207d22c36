// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package services

import (
	"context"
	"fmt"
)

// StartStopper matches components that run a background worker between
// Start and Stop.
//
// Satisfied by *scheduler.Loop and *notify.Dispatcher.
type StartStopper interface {
	Start(ctx context.Context) error
	Stop() error
}

// NamedStartStopper is a StartStopper that reports its own service name.
type NamedStartStopper interface {
	StartStopper
	Name() string
}

// StartStopService adapts a Start/Stop component to suture's Serve pattern:
//  1. Calls Start(ctx)
//  2. Waits for context cancellation
//  3. Calls Stop(), which blocks until the worker has exited
type StartStopService struct {
	component StartStopper
	name      string
}

// NewSchedulerService wraps a scheduler loop. The service takes the loop's
// name ("rooms-scheduler" or "compliance-scheduler").
//
//	tree.AddLifecycleService(services.NewSchedulerService(sched.RoomLoop()))
func NewSchedulerService(loop NamedStartStopper) *StartStopService {
	return &StartStopService{component: loop, name: loop.Name()}
}

// NewDispatcherService wraps the notification dispatcher.
func NewDispatcherService(dispatcher StartStopper) *StartStopService {
	return &StartStopService{component: dispatcher, name: "notification-dispatcher"}
}

// Serve implements suture.Service. A failed Start is returned so suture
// restarts the service under its backoff policy.
func (s *StartStopService) Serve(ctx context.Context) error {
	if err := s.component.Start(ctx); err != nil {
		return fmt.Errorf("%s start failed: %w", s.name, err)
	}

	<-ctx.Done()

	if err := s.component.Stop(); err != nil {
		return fmt.Errorf("%s stop failed: %w", s.name, err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer for suture's log messages.
func (s *StartStopService) String() string {
	return s.name
}
