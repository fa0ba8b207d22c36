// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/agora/internal/audit"
	"github.com/tomtom215/agora/internal/models"
	"github.com/tomtom215/agora/internal/store"
)

// JoinRoom adds memberID to a room and re-evaluates it in the same unit.
func (e *Engine) JoinRoom(ctx context.Context, roomID, memberID string) (*models.Room, error) {
	actor := MemberActor(memberID)
	return e.mutateRoom(ctx, roomID, actor, func(tx store.Tx, room *models.Room, fx *effects) error {
		if _, err := e.ledger.Join(tx, room, memberID, e.now()); err != nil {
			return err
		}
		event := e.newEvent(ctx, audit.EventTypeMemberJoined, room.ID, actor)
		event.MemberID = memberID
		event.Reason = "member joined"
		if err := e.appendEvent(tx, fx, event); err != nil {
			return err
		}
		return e.evaluate(ctx, tx, room, actor, SourceMembership, fx)
	})
}

// LeaveRoom ends memberID's membership and re-evaluates the room in the
// same unit. Leaving can delete the room immediately.
func (e *Engine) LeaveRoom(ctx context.Context, roomID, memberID string) (*models.Room, error) {
	actor := MemberActor(memberID)
	return e.mutateRoom(ctx, roomID, actor, func(tx store.Tx, room *models.Room, fx *effects) error {
		if _, err := e.ledger.Leave(tx, room, memberID, e.now()); err != nil {
			return err
		}
		event := e.newEvent(ctx, audit.EventTypeMemberLeft, room.ID, actor)
		event.MemberID = memberID
		event.Reason = "member left"
		if err := e.appendEvent(tx, fx, event); err != nil {
			return err
		}
		return e.evaluate(ctx, tx, room, actor, SourceMembership, fx)
	})
}

// ListMembers returns the active memberships of a room.
func (e *Engine) ListMembers(ctx context.Context, roomID string) ([]*models.Membership, error) {
	var members []*models.Membership
	err := e.store.View(ctx, func(tx store.Tx) error {
		if _, err := tx.GetRoom(roomID); err != nil {
			return err
		}
		var err error
		members, err = e.ledger.ListActive(tx, roomID)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// Role is a member's standing in one room.
type Role struct {
	Member    bool `json:"member"`
	Founder   bool `json:"founder"`
	Moderator bool `json:"moderator"`
}

// MemberRole returns memberID's role in a room.
func (e *Engine) MemberRole(ctx context.Context, roomID, memberID string) (Role, error) {
	var role Role
	err := e.store.View(ctx, func(tx store.Tx) error {
		if _, err := tx.GetRoom(roomID); err != nil {
			return err
		}
		m, err := e.ledger.Get(tx, roomID, memberID)
		if errors.Is(err, ErrNotMember) {
			return nil
		}
		if err != nil {
			return err
		}
		role = Role{Member: true, Founder: m.IsFounder, Moderator: m.IsModerator}
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return Role{}, ErrRoomNotFound
	}
	return role, err
}

// SetModerator grants or revokes the room moderator role of memberID.
// Authorization of actor is the caller's responsibility.
func (e *Engine) SetModerator(ctx context.Context, roomID, memberID string, moderator bool, actor audit.Actor) error {
	_, err := e.mutateRoom(ctx, roomID, actor, func(tx store.Tx, room *models.Room, fx *effects) error {
		if room.State == models.RoomStateDeleted {
			return ErrRoomDeleted
		}
		changed, err := e.ledger.SetModerator(tx, room.ID, memberID, moderator)
		if err != nil || !changed {
			return err
		}

		typ, reason := audit.EventTypeModeratorAssigned, "moderator role granted"
		if !moderator {
			typ, reason = audit.EventTypeModeratorRevoked, "moderator role revoked"
		}
		event := e.newEvent(ctx, typ, room.ID, actor)
		event.MemberID = memberID
		event.Reason = reason
		return e.appendEvent(tx, fx, event)
	})
	return err
}
