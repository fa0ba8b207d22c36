// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tomtom215/agora/internal/audit"
	"github.com/tomtom215/agora/internal/lifecycle"
	"github.com/tomtom215/agora/internal/models"
	"github.com/tomtom215/agora/internal/notify"
	"github.com/tomtom215/agora/internal/store"
)

// Listing limits.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
	MaxEventLimit    = 1000
)

// CreateRoomRequest holds the inputs of CreateRoom.
type CreateRoomRequest struct {
	Name        string
	Description string
	CreatorID   string

	// Founders are the co-founders; the creator is added if missing.
	Founders []string

	// Thresholds overrides the configured defaults when set.
	Thresholds *models.Thresholds
}

type createdMetadata struct {
	Founders   []string          `json:"founders"`
	Thresholds models.Thresholds `json:"thresholds"`
}

// CreateRoom creates a pending room with every founder as an active member.
func (e *Engine) CreateRoom(ctx context.Context, req CreateRoomRequest) (*models.Room, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if req.CreatorID == "" {
		return nil, fmt.Errorf("%w: creator is required", ErrTooFewFounders)
	}

	thresholds := e.cfg.DefaultThresholds
	if req.Thresholds != nil {
		thresholds = *req.Thresholds
	}
	if err := lifecycle.ValidateThresholds(thresholds); err != nil {
		return nil, err
	}

	founders := distinctFounders(req.CreatorID, req.Founders)
	if len(founders) < thresholds.MinMembersToCreate {
		return nil, fmt.Errorf("%w: %d distinct founders, need %d", ErrTooFewFounders, len(founders), thresholds.MinMembersToCreate)
	}

	// Names are unique among live rooms; serialize creators of the same name.
	unlock, err := e.locks.Lock(ctx, "name:"+strings.ToLower(name))
	if err != nil {
		return nil, fmt.Errorf("acquire name lock: %w", err)
	}
	defer unlock()

	actor := MemberActor(req.CreatorID)
	roomID := uuid.New().String()
	var (
		fx   *effects
		room *models.Room
	)

	err = e.store.Update(ctx, func(tx store.Tx) error {
		fx = &effects{}
		now := e.now()

		_, err := tx.RoomIDByName(name)
		switch {
		case err == nil:
			return fmt.Errorf("%w: %q", ErrDuplicateName, name)
		case !errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("check room name: %w", err)
		}

		room = &models.Room{
			ID:          roomID,
			Name:        name,
			Description: strings.TrimSpace(req.Description),
			CreatorID:   req.CreatorID,
			State:       models.RoomStatePending,
			Thresholds:  thresholds,
			CreatedAt:   now,
		}
		if err := tx.PutRoom(room); err != nil {
			return fmt.Errorf("store room: %w", err)
		}

		created := e.newEvent(ctx, audit.EventTypeRoomCreated, roomID, actor)
		created.ToState = string(models.RoomStatePending)
		created.Reason = fmt.Sprintf("room %q founded by %d members", name, len(founders))
		created.Metadata = audit.MustJSON(createdMetadata{Founders: founders, Thresholds: thresholds})
		if err := e.appendEvent(tx, fx, created); err != nil {
			return err
		}

		for _, founder := range founders {
			if _, err := e.ledger.Found(tx, room, founder, now); err != nil {
				return fmt.Errorf("add founder %s: %w", founder, err)
			}
			joined := e.newEvent(ctx, audit.EventTypeMemberJoined, roomID, actor)
			joined.MemberID = founder
			joined.Reason = "founding member"
			if err := e.appendEvent(tx, fx, joined); err != nil {
				return err
			}
		}

		fx.notes = append(fx.notes, notify.Notification{
			TemplateKey: notify.TemplateRoomCreated,
			Recipients:  founders,
			RoomID:      roomID,
			Payload:     audit.MustJSON(map[string]string{"room_name": name}),
			CreatedAt:   now,
		})
		fx.grants = append(fx.grants, e.grant(req.CreatorID, notify.BadgeRoomFounder, roomID,
			fmt.Sprintf("founded room %q", name), now))

		return e.evaluate(ctx, tx, room, actor, SourceCreate, fx)
	})

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		// The room was never committed, so there is nothing to attach a failure event to.
		e.logger.Error().Err(evalErr.Err).Str("room_name", name).Msg("Room creation rolled back")
	}
	if err != nil {
		return nil, err
	}

	e.dispatch(ctx, roomID, fx, 0)
	e.logger.Info().Str("room_id", roomID).Str("room_name", name).Int("founders", len(founders)).Msg("Room created")
	return room, nil
}

// distinctFounders returns the creator followed by the other founders,
// without duplicates or empty IDs.
func distinctFounders(creator string, others []string) []string {
	seen := map[string]bool{creator: true}
	out := []string{creator}
	for _, id := range others {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// GetRoomState returns a room by ID. Deleted rooms stay addressable.
func (e *Engine) GetRoomState(ctx context.Context, roomID string) (*models.Room, error) {
	var room *models.Room
	err := e.store.View(ctx, func(tx store.Tx) error {
		var err error
		room, err = tx.GetRoom(roomID)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return room, nil
}

// ListRooms pages through non-deleted rooms. The returned cursor is empty
// on the last page.
func (e *Engine) ListRooms(ctx context.Context, cursor string, limit int) ([]models.RoomSummary, string, error) {
	limit = clampLimit(limit)

	var rooms []*models.Room
	err := e.store.View(ctx, func(tx store.Tx) error {
		var err error
		rooms, err = tx.ListLiveRooms(cursor, limit)
		return err
	})
	if err != nil {
		return nil, "", fmt.Errorf("list rooms: %w", err)
	}

	out := make([]models.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Summary())
	}

	next := ""
	if len(rooms) == limit {
		next = rooms[len(rooms)-1].ID
	}
	return out, next, nil
}

// ListEventsForRoom returns a room's events in insertion order.
func (e *Engine) ListEventsForRoom(ctx context.Context, roomID string, filter audit.QueryFilter) ([]audit.Event, error) {
	switch {
	case filter.Limit <= 0:
		filter.Limit = audit.DefaultQueryFilter().Limit
	case filter.Limit > MaxEventLimit:
		filter.Limit = MaxEventLimit
	}

	var events []audit.Event
	err := e.store.View(ctx, func(tx store.Tx) error {
		if _, err := tx.GetRoom(roomID); err != nil {
			return err
		}
		var err error
		events, err = tx.ListEvents(roomID, filter)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	}
	return limit
}
