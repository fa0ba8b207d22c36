// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/agora/internal/metrics"
	"github.com/tomtom215/agora/internal/store"
)

// GarbageCollector matches *store.BadgerStore.
type GarbageCollector interface {
	RunGC() error
}

// BadgerGCService runs value log garbage collection on a fixed interval.
// A GC error is logged and the next tick tries again; only a closed store
// ends the service.
type BadgerGCService struct {
	gc       GarbageCollector
	interval time.Duration
	logger   zerolog.Logger
	name     string
}

// NewBadgerGCService creates a GC service. Non-positive intervals fall back
// to ten minutes.
func NewBadgerGCService(gc GarbageCollector, interval time.Duration, logger zerolog.Logger) *BadgerGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &BadgerGCService{
		gc:       gc,
		interval: interval,
		logger:   logger.With().Str("service", "badger-gc").Logger(),
		name:     "badger-gc",
	}
}

// Serve implements suture.Service.
func (s *BadgerGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			err := s.gc.RunGC()
			switch {
			case errors.Is(err, store.ErrClosed):
				// Nothing left to collect; do not restart.
				return nil
			case err != nil:
				metrics.StoreGCRuns.WithLabelValues("error").Inc()
				s.logger.Warn().Err(err).Msg("Value log GC failed")
			default:
				metrics.StoreGCRuns.WithLabelValues("success").Inc()
				s.logger.Debug().Dur("duration", time.Since(start)).Msg("Value log GC complete")
			}
		}
	}
}

// String implements fmt.Stringer for suture's log messages.
func (s *BadgerGCService) String() string {
	return s.name
}
