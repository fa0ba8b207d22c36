// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

// Package engine orchestrates room lifecycle operations.
//
// Every operation that can change a room runs as one transition unit:
//  1. acquire the room's lock (one writer per room, rooms run in parallel)
//  2. open a store transaction
//  3. apply the membership or activity change
//  4. recompute counters and evaluate the state machine
//  5. apply transitions, append events, run the deletion cascade
//  6. commit
//  7. after commit, mirror events to the audit log and queue
//     notifications and badge grants
//
// A failed step rolls the whole unit back. Evaluation failures are then
// recorded as a room.evaluation_failed event in a separate transaction.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/agora/internal/activity"
	"github.com/tomtom215/agora/internal/audit"
	"github.com/tomtom215/agora/internal/content"
	"github.com/tomtom215/agora/internal/ledger"
	"github.com/tomtom215/agora/internal/lifecycle"
	"github.com/tomtom215/agora/internal/logging"
	"github.com/tomtom215/agora/internal/models"
	"github.com/tomtom215/agora/internal/notify"
	"github.com/tomtom215/agora/internal/store"
)

// Errors
var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrTooFewFounders = errors.New("too few founders")
	ErrDuplicateName  = errors.New("room name already taken")
	ErrInvalidName    = errors.New("invalid room name")

	ErrInvalidThresholds = lifecycle.ErrInvalidThresholds
	ErrRoomDeleted       = ledger.ErrRoomDeleted
	ErrAlreadyMember     = ledger.ErrAlreadyMember
	ErrNotMember         = ledger.ErrNotMember
)

// EvaluationError wraps a failure while evaluating or transitioning a room.
type EvaluationError struct {
	RoomID string
	Err    error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluate room %s: %v", e.RoomID, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// Evaluation sources, used in metrics and logs.
const (
	SourceMembership = "membership"
	SourceScheduler  = "scheduler"
	SourceAPI        = "api"
	SourceCreate     = "create"
)

// Config holds engine configuration.
type Config struct {
	Lifecycle lifecycle.Config
	Activity  activity.Config

	// DefaultThresholds apply when a room is created without explicit thresholds.
	DefaultThresholds models.Thresholds

	// BadgeTTL sets ExpiresAt on granted badges; 0 means no expiry.
	BadgeTTL time.Duration

	// FailureRecordTimeout bounds the best-effort evaluation_failed append.
	FailureRecordTimeout time.Duration
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Lifecycle:            lifecycle.DefaultConfig(),
		Activity:             activity.DefaultConfig(),
		DefaultThresholds:    models.DefaultThresholds(),
		FailureRecordTimeout: 5 * time.Second,
	}
}

// EventMirror receives committed events.
type EventMirror interface {
	Log(events ...audit.Event)
}

// Deps are the engine's collaborators. Nil fields get in-process defaults.
type Deps struct {
	Purger content.Purger
	Sink   notify.Sink
	Audit  EventMirror
	Clock  func() time.Time
	Logger *zerolog.Logger
}

// Engine implements the room lifecycle operations.
type Engine struct {
	store    store.Store
	cfg      Config
	activity *activity.Aggregator
	ledger   *ledger.Ledger
	purger   content.Purger
	sink     notify.Sink
	audit    EventMirror
	clock    func() time.Time
	locks    *keyedLock
	logger   zerolog.Logger
}

// New creates an Engine.
func New(st store.Store, cfg Config, deps Deps) (*Engine, error) {
	if st == nil {
		return nil, errors.New("engine: nil store")
	}
	if err := lifecycle.ValidateThresholds(cfg.DefaultThresholds); err != nil {
		return nil, fmt.Errorf("engine default thresholds: %w", err)
	}
	if cfg.FailureRecordTimeout <= 0 {
		cfg.FailureRecordTimeout = 5 * time.Second
	}

	e := &Engine{
		store:    st,
		cfg:      cfg,
		activity: activity.NewAggregator(cfg.Activity),
		ledger:   ledger.New(),
		purger:   deps.Purger,
		sink:     deps.Sink,
		audit:    deps.Audit,
		clock:    deps.Clock,
		locks:    newKeyedLock(),
	}
	if e.purger == nil {
		e.purger = content.NewMemoryRegistry()
	}
	if e.sink == nil {
		e.sink = notify.NopSink{}
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if deps.Logger != nil {
		e.logger = deps.Logger.With().Str("component", "engine").Logger()
	} else {
		e.logger = logging.WithComponent("engine")
	}
	return e, nil
}

func (e *Engine) now() time.Time {
	return e.clock().UTC()
}

// effects collects what a transition unit does after it commits. It is reset
// at the start of every transaction attempt.
type effects struct {
	events      []audit.Event
	notes       []notify.Notification
	grants      []notify.GrantRequest
	transitions []lifecycle.Transition
	evaluations []evalOutcome
	compliance  []complianceFlip
}

type complianceFlip struct {
	requirement string
	violated    bool
}

type evalOutcome struct {
	source string
	result string
}

// mutateRoom runs fn as one transition unit on roomID.
func (e *Engine) mutateRoom(ctx context.Context, roomID string, actor audit.Actor, fn func(tx store.Tx, room *models.Room, fx *effects) error) (*models.Room, error) {
	unlock, err := e.locks.Lock(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("acquire room lock: %w", err)
	}
	defer unlock()

	start := time.Now()
	var (
		fx  *effects
		out *models.Room
	)
	err = e.store.Update(ctx, func(tx store.Tx) error {
		fx = &effects{}
		room, err := tx.GetRoom(roomID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrRoomNotFound
		}
		if err != nil {
			return err
		}
		if err := fn(tx, room, fx); err != nil {
			return err
		}
		out = room
		return nil
	})

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		e.recordFailure(ctx, roomID, actor, evalErr, time.Since(start))
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	e.dispatch(ctx, roomID, fx, time.Since(start))
	return out, nil
}

// dispatch runs the post-commit side effects of a transition unit.
func (e *Engine) dispatch(ctx context.Context, roomID string, fx *effects, elapsed time.Duration) {
	if e.audit != nil && len(fx.events) > 0 {
		e.audit.Log(fx.events...)
	}
	for _, n := range fx.notes {
		e.sink.Notify(n)
	}
	for _, g := range fx.grants {
		e.sink.Grant(g)
	}
	recordOutcome(fx, elapsed)

	for _, t := range fx.transitions {
		logging.Ctx(ctx).Info().
			Str("component", "engine").
			Str("room_id", roomID).
			Str("from", string(t.From)).
			Str("to", string(t.To)).
			Str("trigger", string(t.Trigger)).
			Str("reason", t.Reason).
			Msg("Room transitioned")
	}
}

// recordFailure appends room.evaluation_failed in its own transaction.
func (e *Engine) recordFailure(ctx context.Context, roomID string, actor audit.Actor, evalErr *EvaluationError, elapsed time.Duration) {
	recordFailureMetric(elapsed)
	logging.Ctx(ctx).Error().
		Err(evalErr.Err).
		Str("component", "engine").
		Str("room_id", roomID).
		Msg("Room evaluation failed, rolled back")

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.FailureRecordTimeout)
	defer cancel()

	event := e.newEvent(ctx, audit.EventTypeRoomEvaluationFailed, roomID, actor)
	event.Severity = audit.SeverityError
	event.Reason = evalErr.Err.Error()

	err := e.store.Update(rctx, func(tx store.Tx) error {
		ev := event
		return tx.AppendEvent(&ev)
	})
	if err != nil {
		e.logger.Warn().Err(err).Str("room_id", roomID).Msg("Failed to record evaluation failure")
	}
}

// appendEvent appends event inside tx and remembers it for the audit mirror.
func (e *Engine) appendEvent(tx store.Tx, fx *effects, event audit.Event) error {
	if err := tx.AppendEvent(&event); err != nil {
		return fmt.Errorf("append %s event: %w", event.Type, err)
	}
	fx.events = append(fx.events, event)
	return nil
}

func (e *Engine) newEvent(ctx context.Context, typ audit.EventType, roomID string, actor audit.Actor) audit.Event {
	return audit.Event{
		Timestamp:     e.now(),
		Type:          typ,
		Severity:      audit.SeverityInfo,
		RoomID:        roomID,
		Actor:         actor,
		CorrelationID: logging.CorrelationIDFromContext(ctx),
		RequestID:     logging.RequestIDFromContext(ctx),
	}
}

// MemberActor returns the actor for a member-initiated operation.
func MemberActor(memberID string) audit.Actor {
	return audit.Actor{ID: memberID, Type: audit.ActorMember}
}

// SystemActor returns the actor for an engine-initiated operation.
func SystemActor(component string) audit.Actor {
	return audit.Actor{ID: component, Type: audit.ActorSystem}
}
