// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/agora/internal/logging"
)

// Loop runs one pass immediately on Start and then on every tick.
type Loop struct {
	name     string
	interval time.Duration
	enabled  bool
	run      func(ctx context.Context) (PassResult, error)
	logger   zerolog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// RoomLoop returns the loop driving RunRoomPass.
func (s *Scheduler) RoomLoop() *Loop {
	return s.newLoop(PassRooms, s.cfg.RoomInterval, s.RunRoomPass)
}

// ComplianceLoop returns the loop driving RunCompliancePass.
func (s *Scheduler) ComplianceLoop() *Loop {
	return s.newLoop(PassCompliance, s.cfg.ComplianceInterval, s.RunCompliancePass)
}

func (s *Scheduler) newLoop(pass string, interval time.Duration, run func(context.Context) (PassResult, error)) *Loop {
	return &Loop{
		name:     pass + "-scheduler",
		interval: interval,
		enabled:  s.cfg.Enabled,
		run:      run,
		logger:   s.logger.With().Str("pass", pass).Logger(),
	}
}

// Name returns the loop's service name.
func (l *Loop) Name() string {
	return l.name
}

// Start begins the loop.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return fmt.Errorf("%s already running", l.name)
	}
	if l.interval <= 0 {
		l.mu.Unlock()
		return fmt.Errorf("%s: interval must be positive", l.name)
	}
	l.running = true
	l.stopCh = make(chan struct{})
	l.doneCh = make(chan struct{})
	l.mu.Unlock()

	if !l.enabled {
		l.logger.Info().Msg("Scheduled pass disabled")
		go func() {
			defer close(l.doneCh)
			<-l.stopCh
		}()
		return nil
	}

	l.logger.Info().Dur("interval", l.interval).Msg("Starting scheduled pass")
	go l.loop(ctx)
	return nil
}

// Stop ends the loop and waits for an in-flight pass to return.
func (l *Loop) Stop() error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()

	close(l.stopCh)
	<-l.doneCh

	l.mu.Lock()
	l.running = false
	l.mu.Unlock()

	l.logger.Info().Msg("Scheduled pass stopped")
	return nil
}

// IsRunning reports whether the loop has been started.
func (l *Loop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

func (l *Loop) loop(ctx context.Context) {
	defer close(l.doneCh)

	// Stop cancels an in-flight pass.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-l.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.tick(ctx)

	for {
		select {
		case <-ticker.C:
			l.tick(ctx)
		case <-l.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (l *Loop) tick(ctx context.Context) {
	if _, err := l.run(ctx); err != nil && ctx.Err() == nil {
		logging.Ctx(ctx).Error().Err(err).Str("service", l.name).Msg("Scheduled pass failed")
	}
}
