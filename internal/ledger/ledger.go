// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

// Package ledger maintains room memberships.
//
// Memberships are keyed by (room, member) and are never hard-deleted.
// Leaving ends the current period; re-joining reactivates the record and
// moves the previous period into History. Deleting a room ends every
// membership it still has.
//
// All methods run inside a caller-provided store transaction so membership
// changes commit together with the room evaluation they trigger.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/agora/internal/models"
	"github.com/tomtom215/agora/internal/store"
)

// Errors
var (
	// ErrRoomDeleted is returned when joining or leaving a deleted room.
	ErrRoomDeleted = errors.New("room is deleted")

	// ErrAlreadyMember is returned when joining a room the member is active in.
	ErrAlreadyMember = errors.New("already a member")

	// ErrNotMember is returned when the member has no active membership.
	ErrNotMember = errors.New("not a member")
)

// Ledger applies membership changes. It is stateless; all state lives in the store.
type Ledger struct{}

// New creates a Ledger.
func New() *Ledger {
	return &Ledger{}
}

// Join creates or reactivates the membership of memberID in room.
func (l *Ledger) Join(tx store.Tx, room *models.Room, memberID string, at time.Time) (*models.Membership, error) {
	if room.State == models.RoomStateDeleted {
		return nil, ErrRoomDeleted
	}

	m, err := tx.GetMembership(room.ID, memberID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		m = &models.Membership{RoomID: room.ID, MemberID: memberID}
	case err != nil:
		return nil, fmt.Errorf("load membership: %w", err)
	case m.IsActive:
		return nil, ErrAlreadyMember
	default:
		if m.LeftAt != nil {
			m.History = append(m.History, models.MembershipPeriod{JoinedAt: m.JoinedAt, LeftAt: *m.LeftAt})
		}
		// Roles do not survive a re-join. Post and view history does.
		m.IsFounder = false
		m.IsModerator = false
	}

	m.JoinedAt = at.UTC()
	m.LeftAt = nil
	m.IsActive = true
	m.MeetsPostRequirement = true
	m.MeetsViewRequirement = true

	if err := tx.PutMembership(m); err != nil {
		return nil, fmt.Errorf("store membership: %w", err)
	}
	return m, nil
}

// Found creates the founding membership of memberID in a new room.
func (l *Ledger) Found(tx store.Tx, room *models.Room, memberID string, at time.Time) (*models.Membership, error) {
	m, err := l.Join(tx, room, memberID, at)
	if err != nil {
		return nil, err
	}
	m.IsFounder = true
	if err := tx.PutMembership(m); err != nil {
		return nil, fmt.Errorf("store membership: %w", err)
	}
	return m, nil
}

// Leave ends the active membership of memberID in room.
func (l *Ledger) Leave(tx store.Tx, room *models.Room, memberID string, at time.Time) (*models.Membership, error) {
	if room.State == models.RoomStateDeleted {
		return nil, ErrRoomDeleted
	}
	m, err := l.active(tx, room.ID, memberID)
	if err != nil {
		return nil, err
	}
	end(m, at)
	if err := tx.PutMembership(m); err != nil {
		return nil, fmt.Errorf("store membership: %w", err)
	}
	return m, nil
}

// EndAll ends every active membership of roomID and returns the memberships
// that were active, ordered by member ID.
func (l *Ledger) EndAll(tx store.Tx, roomID string, at time.Time) ([]*models.Membership, error) {
	active, err := l.ListActive(tx, roomID)
	if err != nil {
		return nil, err
	}
	for _, m := range active {
		end(m, at)
		if err := tx.PutMembership(m); err != nil {
			return nil, fmt.Errorf("store membership: %w", err)
		}
	}
	return active, nil
}

// Get returns the active membership of memberID in roomID.
func (l *Ledger) Get(tx store.Tx, roomID, memberID string) (*models.Membership, error) {
	return l.active(tx, roomID, memberID)
}

// ListActive returns the active memberships of roomID, ordered by member ID.
func (l *Ledger) ListActive(tx store.Tx, roomID string) ([]*models.Membership, error) {
	all, err := tx.ListMemberships(roomID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	active := all[:0]
	for _, m := range all {
		if m.IsActive {
			active = append(active, m)
		}
	}
	return active, nil
}

// IsFounder reports whether memberID is an active founder of roomID.
func (l *Ledger) IsFounder(tx store.Tx, roomID, memberID string) (bool, error) {
	m, err := l.active(tx, roomID, memberID)
	if errors.Is(err, ErrNotMember) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return m.IsFounder, nil
}

// IsModerator reports whether memberID is an active moderator of roomID.
func (l *Ledger) IsModerator(tx store.Tx, roomID, memberID string) (bool, error) {
	m, err := l.active(tx, roomID, memberID)
	if errors.Is(err, ErrNotMember) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return m.IsModerator, nil
}

// SetModerator grants or revokes the room moderator role. It reports whether
// the flag changed.
func (l *Ledger) SetModerator(tx store.Tx, roomID, memberID string, moderator bool) (bool, error) {
	m, err := l.active(tx, roomID, memberID)
	if err != nil {
		return false, err
	}
	if m.IsModerator == moderator {
		return false, nil
	}
	m.IsModerator = moderator
	if err := tx.PutMembership(m); err != nil {
		return false, fmt.Errorf("store membership: %w", err)
	}
	return true, nil
}

func (l *Ledger) active(tx store.Tx, roomID, memberID string) (*models.Membership, error) {
	m, err := tx.GetMembership(roomID, memberID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotMember
	}
	if err != nil {
		return nil, fmt.Errorf("load membership: %w", err)
	}
	if !m.IsActive {
		return nil, ErrNotMember
	}
	return m, nil
}

func end(m *models.Membership, at time.Time) {
	m.IsActive = false
	m.LeftAt = models.TimePtr(at.UTC())
}

// Counts summarizes the active memberships of a room.
type Counts struct {
	Members   int
	Compliant int
}

// Count tallies active and compliant memberships.
func Count(memberships []*models.Membership) Counts {
	var c Counts
	for _, m := range memberships {
		if !m.IsActive {
			continue
		}
		c.Members++
		if m.Compliant() {
			c.Compliant++
		}
	}
	return c
}
