// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

// Package lifecycle holds the room state machine.
//
// Evaluate is a pure function of a room snapshot and the evaluation instant.
// It returns a Decision describing the transitions to apply; Decision.Apply
// updates the room's state and timestamps. Persisting the room, appending
// events and running cascades are the engine's job.
//
// State diagram:
//
//	Pending --> Active <--> Locked
//	   |          |           |
//	   +----------+-----------+--> Deleted (terminal)
//
// Transitions are either membership-driven (member counts crossing a
// threshold) or time-driven (the poster window, pending expiry). Only
// time-driven transitions can be deferred by a reply burst.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/agora/internal/models"
)

// ErrInvalidThresholds is returned when thresholds fall below their floors.
var ErrInvalidThresholds = errors.New("invalid thresholds")

// Trigger classifies what caused a transition.
type Trigger string

const (
	TriggerMembership Trigger = "membership"
	TriggerTime       Trigger = "time"
)

// ReasonInsufficientPosters is the fixed reason for Active -> Locked.
const ReasonInsufficientPosters = "insufficient distinct posters in the 72-hour window"

// Config holds the time-based rules of the state machine.
type Config struct {
	// ActivationGrace blocks Active -> Locked right after activation.
	// Zero, the default, applies the poster rule from the next evaluation on.
	ActivationGrace time.Duration

	// PendingExpiry deletes rooms that stay pending this long.
	PendingExpiry time.Duration

	// MaxDeferral bounds how long a burst can hold back a time-driven transition.
	MaxDeferral time.Duration
}

// DefaultConfig returns the default rule timings.
func DefaultConfig() Config {
	return Config{
		PendingExpiry: 30 * 24 * time.Hour,
		MaxDeferral:   2 * time.Hour,
	}
}

// Snapshot is the input of one evaluation. The room's counters must already
// be recomputed.
type Snapshot struct {
	Room  *models.Room
	Now   time.Time
	Burst bool
}

// Transition is one state change.
type Transition struct {
	From    models.RoomState
	To      models.RoomState
	Trigger Trigger
	Reason  string
}

// Decision is the outcome of Evaluate.
type Decision struct {
	// Transitions to apply in order. Empty when nothing changes.
	Transitions []Transition

	// Deferred is the time-driven transition held back by a burst, if any.
	Deferred *Transition

	// DeferralStarted is true when this evaluation opened a new deferral.
	DeferralStarted bool

	// DeferralCleared is true when an open deferral ends without a held transition.
	DeferralCleared bool
}

// Changed reports whether the decision changes the room's state.
func (d Decision) Changed() bool {
	return len(d.Transitions) > 0
}

// Final returns the state the room ends in.
func (d Decision) Final(current models.RoomState) models.RoomState {
	if n := len(d.Transitions); n > 0 {
		return d.Transitions[n-1].To
	}
	return current
}

// ValidateThresholds checks t against the floors.
func ValidateThresholds(t models.Thresholds) error {
	switch {
	case t.MinMembersToCreate < models.FloorMembersToCreate:
		return fmt.Errorf("%w: min_members_to_create %d below floor %d", ErrInvalidThresholds, t.MinMembersToCreate, models.FloorMembersToCreate)
	case t.MinMembersToActivate < models.FloorMembersToActivate:
		return fmt.Errorf("%w: min_members_to_activate %d below floor %d", ErrInvalidThresholds, t.MinMembersToActivate, models.FloorMembersToActivate)
	case t.MinMembersToMaintain < models.FloorMembersToMaintain:
		return fmt.Errorf("%w: min_members_to_maintain %d below floor %d", ErrInvalidThresholds, t.MinMembersToMaintain, models.FloorMembersToMaintain)
	case t.MinUniquePosters72h < models.FloorUniquePosters72h:
		return fmt.Errorf("%w: min_unique_posters_72h %d below floor %d", ErrInvalidThresholds, t.MinUniquePosters72h, models.FloorUniquePosters72h)
	case t.MinMembersToActivate < t.MinMembersToCreate:
		return fmt.Errorf("%w: min_members_to_activate %d below min_members_to_create %d", ErrInvalidThresholds, t.MinMembersToActivate, t.MinMembersToCreate)
	}
	return nil
}

// Evaluate applies the transition rules to a snapshot.
func Evaluate(cfg Config, snap Snapshot) Decision {
	room := snap.Room
	th := room.Thresholds
	state := room.State
	var d Decision

	if state.IsTerminal() {
		return d
	}

	// timed proposes a time-driven transition, honoring burst deferral.
	timed := func(t Transition) bool {
		if snap.Burst && (room.DeferredSince == nil || snap.Now.Sub(*room.DeferredSince) < cfg.MaxDeferral) {
			d.Deferred = &t
			d.DeferralStarted = room.DeferredSince == nil
			return false
		}
		d.Transitions = append(d.Transitions, t)
		return true
	}

	if state == models.RoomStatePending {
		switch {
		case room.MemberCount >= th.MinMembersToActivate:
			d.Transitions = append(d.Transitions, Transition{
				From: state, To: models.RoomStateActive, Trigger: TriggerMembership,
				Reason: fmt.Sprintf("member count %d reached activation threshold %d", room.MemberCount, th.MinMembersToActivate),
			})
			state = models.RoomStateActive
		case room.MemberCount < th.MinMembersToCreate:
			d.Transitions = append(d.Transitions, Transition{
				From: state, To: models.RoomStateDeleted, Trigger: TriggerMembership,
				Reason: fmt.Sprintf("member count %d fell below founding minimum %d before activation", room.MemberCount, th.MinMembersToCreate),
			})
			state = models.RoomStateDeleted
		case cfg.PendingExpiry > 0 && snap.Now.Sub(room.CreatedAt) >= cfg.PendingExpiry:
			if timed(Transition{
				From: state, To: models.RoomStateDeleted, Trigger: TriggerTime,
				Reason: fmt.Sprintf("room did not reach %d members within %s", th.MinMembersToActivate, cfg.PendingExpiry),
			}) {
				state = models.RoomStateDeleted
			}
		}
	}

	switch state {
	case models.RoomStateActive:
		switch {
		case room.MemberCount < th.MinMembersToMaintain:
			d.Transitions = append(d.Transitions, Transition{
				From: state, To: models.RoomStateDeleted, Trigger: TriggerMembership,
				Reason: maintainReason(room.MemberCount, th.MinMembersToMaintain),
			})
		case room.UniquePosters72h < th.MinUniquePosters72h && !inGrace(cfg, room, snap.Now, d):
			timed(Transition{
				From: state, To: models.RoomStateLocked, Trigger: TriggerTime,
				Reason: ReasonInsufficientPosters,
			})
		}
	case models.RoomStateLocked:
		switch {
		case room.MemberCount < th.MinMembersToMaintain:
			d.Transitions = append(d.Transitions, Transition{
				From: state, To: models.RoomStateDeleted, Trigger: TriggerMembership,
				Reason: maintainReason(room.MemberCount, th.MinMembersToMaintain),
			})
		case room.UniquePosters72h >= th.MinUniquePosters72h:
			d.Transitions = append(d.Transitions, Transition{
				From: state, To: models.RoomStateActive, Trigger: TriggerMembership,
				Reason: fmt.Sprintf("%d distinct posters in the 72-hour window with %d members", room.UniquePosters72h, room.MemberCount),
			})
		}
	}

	if d.Deferred == nil && room.DeferredSince != nil {
		d.DeferralCleared = true
	}
	return d
}

// inGrace reports whether the room activated too recently to be locked.
// The poster rule never chains onto an activation in the same evaluation.
func inGrace(cfg Config, room *models.Room, now time.Time, d Decision) bool {
	if len(d.Transitions) > 0 {
		return true
	}
	if cfg.ActivationGrace <= 0 || room.ActivatedAt == nil {
		return false
	}
	return now.Sub(*room.ActivatedAt) < cfg.ActivationGrace
}

func maintainReason(count, floor int) string {
	return fmt.Sprintf("member count %d below maintenance minimum %d", count, floor)
}

// Apply writes the decision's state, timestamps and deferral bookkeeping to room.
func (d Decision) Apply(room *models.Room, now time.Time) {
	now = now.UTC()

	for _, t := range d.Transitions {
		room.State = t.To
		switch t.To {
		case models.RoomStateActive:
			if t.From == models.RoomStatePending {
				room.ActivatedAt = models.TimePtr(now)
			}
			room.LockedAt = nil
		case models.RoomStateLocked:
			room.LockedAt = models.TimePtr(now)
		case models.RoomStateDeleted:
			room.DeletedAt = models.TimePtr(now)
		}
	}

	switch {
	case d.DeferralStarted:
		room.DeferredSince = models.TimePtr(now)
	case d.Deferred == nil:
		room.DeferredSince = nil
	}
}
