// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package models

import (
	"time"
)

// RoomState is the lifecycle state of a room.
type RoomState string

const (
	RoomStatePending RoomState = "pending"
	RoomStateActive  RoomState = "active"
	RoomStateLocked  RoomState = "locked"
	RoomStateDeleted RoomState = "deleted"
)

// IsTerminal reports whether no further transitions are possible.
func (s RoomState) IsTerminal() bool {
	return s == RoomStateDeleted
}

// Valid reports whether s is a known state.
func (s RoomState) Valid() bool {
	switch s {
	case RoomStatePending, RoomStateActive, RoomStateLocked, RoomStateDeleted:
		return true
	}
	return false
}

// Threshold floors. Per-room thresholds may be raised but never set below these.
const (
	FloorMembersToCreate   = 6
	FloorMembersToActivate = 10
	FloorMembersToMaintain = 10
	FloorUniquePosters72h  = 4
)

// Thresholds are the per-room lifecycle limits.
type Thresholds struct {
	MinMembersToCreate   int `json:"min_members_to_create" koanf:"min_members_to_create" validate:"min=6"`
	MinMembersToActivate int `json:"min_members_to_activate" koanf:"min_members_to_activate" validate:"min=10"`
	MinMembersToMaintain int `json:"min_members_to_maintain" koanf:"min_members_to_maintain" validate:"min=10"`
	MinUniquePosters72h  int `json:"min_unique_posters_72h" koanf:"min_unique_posters_72h" validate:"min=4"`
}

// DefaultThresholds returns the floor values, which are also the defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinMembersToCreate:   FloorMembersToCreate,
		MinMembersToActivate: FloorMembersToActivate,
		MinMembersToMaintain: FloorMembersToMaintain,
		MinUniquePosters72h:  FloorUniquePosters72h,
	}
}

// Room is a membership-gated discussion space with its own lifecycle.
type Room struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatorID   string    `json:"creator_id"`
	State       RoomState `json:"state"`

	// Derived counters, recomputed inside every transition unit.
	MemberCount       int `json:"member_count"`
	ActiveMemberCount int `json:"active_member_count"`
	UniquePosters72h  int `json:"unique_posters_72h"`

	Thresholds Thresholds `json:"thresholds"`

	CreatedAt    time.Time  `json:"created_at"`
	ActivatedAt  *time.Time `json:"activated_at,omitempty"`
	LockedAt     *time.Time `json:"locked_at,omitempty"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
	LastActivity *time.Time `json:"last_activity,omitempty"`

	// DeferredSince is set while a time-driven transition is held back by a
	// reply burst; nil otherwise.
	DeferredSince *time.Time `json:"deferred_since,omitempty"`

	// LastEvaluatedAt is informational and not part of the idempotence contract.
	LastEvaluatedAt *time.Time `json:"last_evaluated_at,omitempty"`
}

// Clone returns a deep copy of r.
func (r *Room) Clone() *Room {
	c := *r
	c.ActivatedAt = cloneTime(r.ActivatedAt)
	c.LockedAt = cloneTime(r.LockedAt)
	c.DeletedAt = cloneTime(r.DeletedAt)
	c.LastActivity = cloneTime(r.LastActivity)
	c.DeferredSince = cloneTime(r.DeferredSince)
	c.LastEvaluatedAt = cloneTime(r.LastEvaluatedAt)
	return &c
}

// RoomSummary is the listing view of a room.
type RoomSummary struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	State             RoomState  `json:"state"`
	MemberCount       int        `json:"member_count"`
	ActiveMemberCount int        `json:"active_member_count"`
	UniquePosters72h  int        `json:"unique_posters_72h"`
	CreatedAt         time.Time  `json:"created_at"`
	LastActivity      *time.Time `json:"last_activity,omitempty"`
}

// Summary returns the listing view of r.
func (r *Room) Summary() RoomSummary {
	return RoomSummary{
		ID:                r.ID,
		Name:              r.Name,
		Description:       r.Description,
		State:             r.State,
		MemberCount:       r.MemberCount,
		ActiveMemberCount: r.ActiveMemberCount,
		UniquePosters72h:  r.UniquePosters72h,
		CreatedAt:         r.CreatedAt,
		LastActivity:      cloneTime(r.LastActivity),
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// TimePtr returns a pointer to t.
func TimePtr(t time.Time) *time.Time {
	return &t
}
