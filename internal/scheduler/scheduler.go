// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/agora/internal/audit"
	"github.com/tomtom215/agora/internal/engine"
	"github.com/tomtom215/agora/internal/logging"
	"github.com/tomtom215/agora/internal/metrics"
	"github.com/tomtom215/agora/internal/models"
)

// Pass names, used in metrics and logs.
const (
	PassRooms      = "rooms"
	PassCompliance = "compliance"
)

// Skip reasons.
const (
	SkipBudget = "budget_exceeded"
	SkipFailed = "evaluation_failed"
	SkipError  = "error"
)

// Config configures the scheduled passes.
type Config struct {
	// Enabled turns both loops on. Passes can still be run directly.
	Enabled bool `koanf:"enabled"`

	// RoomInterval is the period of the room evaluation pass.
	RoomInterval time.Duration `koanf:"room_interval" validate:"gt=0"`

	// ComplianceInterval is the period of the compliance pass.
	ComplianceInterval time.Duration `koanf:"compliance_interval" validate:"gt=0"`

	// EvaluationBudget bounds the time spent on one room.
	EvaluationBudget time.Duration `koanf:"evaluation_budget" validate:"gt=0"`

	// Concurrency is the number of rooms evaluated in parallel.
	Concurrency int `koanf:"concurrency" validate:"min=1,max=64"`

	// PageSize is the number of rooms loaded per page.
	PageSize int `koanf:"page_size" validate:"min=1,max=200"`
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:            true,
		RoomInterval:       time.Hour,
		ComplianceInterval: 24 * time.Hour,
		EvaluationBudget:   30 * time.Second,
		Concurrency:        4,
		PageSize:           100,
	}
}

// RoomEngine is the subset of *engine.Engine the scheduler drives.
type RoomEngine interface {
	ListRooms(ctx context.Context, cursor string, limit int) ([]models.RoomSummary, string, error)
	EvaluateRoom(ctx context.Context, roomID string, actor audit.Actor) (*models.Room, error)
	EvaluateCompliance(ctx context.Context, roomID string, actor audit.Actor) (engine.ComplianceResult, error)
}

// PassResult summarizes one pass.
type PassResult struct {
	Pass       string        `json:"pass"`
	Processed  int           `json:"processed"`
	Skipped    int           `json:"skipped"`
	Changed    int           `json:"changed"`
	Violations int           `json:"violations"`
	Restored   int           `json:"restored"`
	Duration   time.Duration `json:"duration"`

	// States counts rooms by state after the pass. Room pass only.
	States map[models.RoomState]int `json:"states,omitempty"`
}

// Scheduler runs the periodic room and compliance passes.
type Scheduler struct {
	engine RoomEngine
	cfg    Config
	logger zerolog.Logger
}

// New creates a Scheduler.
func New(eng RoomEngine, cfg Config) *Scheduler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultConfig().PageSize
	}
	if cfg.EvaluationBudget <= 0 {
		cfg.EvaluationBudget = DefaultConfig().EvaluationBudget
	}
	return &Scheduler{
		engine: eng,
		cfg:    cfg,
		logger: logging.WithComponent("scheduler"),
	}
}

// RunRoomPass evaluates every non-deleted room once. A room that fails or
// overruns its budget is skipped and picked up again by the next pass.
func (s *Scheduler) RunRoomPass(ctx context.Context) (PassResult, error) {
	actor := audit.Actor{ID: "room-pass", Type: audit.ActorScheduler}
	result := PassResult{Pass: PassRooms, States: make(map[models.RoomState]int)}

	err := s.runPass(ctx, PassRooms, &result, func(ctx context.Context, room models.RoomSummary, record func(func(*PassResult))) error {
		before := room.State
		updated, err := s.engine.EvaluateRoom(ctx, room.ID, actor)
		if err != nil {
			return err
		}
		record(func(r *PassResult) {
			r.States[updated.State]++
			if updated.State != before {
				r.Changed++
			}
		})
		return nil
	})
	if err != nil {
		return result, err
	}

	for _, state := range []models.RoomState{models.RoomStatePending, models.RoomStateActive, models.RoomStateLocked} {
		metrics.RoomsByState.WithLabelValues(string(state)).Set(float64(result.States[state]))
	}
	return result, nil
}

// RunCompliancePass recomputes member cadence flags in every Active or
// Locked room.
func (s *Scheduler) RunCompliancePass(ctx context.Context) (PassResult, error) {
	actor := audit.Actor{ID: "compliance-pass", Type: audit.ActorScheduler}
	result := PassResult{Pass: PassCompliance}

	err := s.runPass(ctx, PassCompliance, &result, func(ctx context.Context, room models.RoomSummary, record func(func(*PassResult))) error {
		if room.State != models.RoomStateActive && room.State != models.RoomStateLocked {
			return nil
		}
		res, err := s.engine.EvaluateCompliance(ctx, room.ID, actor)
		if err != nil {
			return err
		}
		record(func(r *PassResult) {
			r.Violations += res.Violations
			r.Restored += res.Restored
		})
		return nil
	})
	return result, err
}

type roomFunc func(ctx context.Context, room models.RoomSummary, record func(func(*PassResult))) error

// runPass pages through live rooms and applies fn to each with bounded
// parallelism. Only listing errors and cancellation end a pass early.
func (s *Scheduler) runPass(ctx context.Context, pass string, result *PassResult, fn roomFunc) error {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	log := s.logger.With().
		Str("pass", pass).
		Str("correlation_id", logging.CorrelationIDFromContext(ctx)).
		Logger()
	start := time.Now()

	var mu sync.Mutex
	record := func(update func(*PassResult)) {
		mu.Lock()
		defer mu.Unlock()
		update(result)
	}

	cursor := ""
	for {
		page, next, err := s.engine.ListRooms(ctx, cursor, s.cfg.PageSize)
		if err != nil {
			return fmt.Errorf("%s pass: %w", pass, err)
		}

		var g errgroup.Group
		g.SetLimit(s.cfg.Concurrency)
		for _, room := range page {
			g.Go(func() error {
				roomCtx, cancel := context.WithTimeout(ctx, s.cfg.EvaluationBudget)
				defer cancel()

				err := fn(roomCtx, room, record)
				if err == nil {
					record(func(r *PassResult) { r.Processed++ })
					return nil
				}
				if ctx.Err() != nil {
					return nil
				}

				reason := skipReason(err)
				metrics.RecordSkippedRoom(pass, reason)
				record(func(r *PassResult) { r.Skipped++ })
				log.Warn().Err(err).Str("room_id", room.ID).Str("reason", reason).Msg("Room skipped")
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			log.Info().Int("processed", result.Processed).Msg("Pass interrupted")
			return err
		}
		if next == "" {
			break
		}
		cursor = next
	}

	result.Duration = time.Since(start)
	metrics.RecordPass(pass, result.Processed, result.Duration)
	log.Info().
		Int("processed", result.Processed).
		Int("skipped", result.Skipped).
		Int("changed", result.Changed).
		Int("violations", result.Violations).
		Dur("duration", result.Duration).
		Msg("Pass completed")
	return nil
}

func skipReason(err error) string {
	var evalErr *engine.EvaluationError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return SkipBudget
	case errors.As(err, &evalErr):
		return SkipFailed
	}
	return SkipError
}
