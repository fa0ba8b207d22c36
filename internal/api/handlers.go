// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package api

import (
	"context"
	"time"

	"github.com/tomtom215/agora/internal/audit"
	"github.com/tomtom215/agora/internal/engine"
	"github.com/tomtom215/agora/internal/models"
)

// RoomEngine is the lifecycle engine surface used by the handlers.
// Satisfied by *engine.Engine.
type RoomEngine interface {
	CreateRoom(ctx context.Context, req engine.CreateRoomRequest) (*models.Room, error)
	GetRoomState(ctx context.Context, roomID string) (*models.Room, error)
	ListRooms(ctx context.Context, cursor string, limit int) ([]models.RoomSummary, string, error)
	JoinRoom(ctx context.Context, roomID, memberID string) (*models.Room, error)
	LeaveRoom(ctx context.Context, roomID, memberID string) (*models.Room, error)
	ListMembers(ctx context.Context, roomID string) ([]*models.Membership, error)
	MemberRole(ctx context.Context, roomID, memberID string) (engine.Role, error)
	SetModerator(ctx context.Context, roomID, memberID string, moderator bool, actor audit.Actor) error
	ListEventsForRoom(ctx context.Context, roomID string, filter audit.QueryFilter) ([]audit.Event, error)
	RecordPost(ctx context.Context, roomID, memberID, postID string, at time.Time) (*models.Room, error)
	RecordView(ctx context.Context, roomID, memberID string, at time.Time) (*models.Room, error)
	EvaluateRoom(ctx context.Context, roomID string, actor audit.Actor) (*models.Room, error)
}

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Handler holds the dependencies of the API handlers.
//
// Handler methods are split across files:
//   - handlers_rooms.go: room, membership and event endpoints
//   - handlers_activity.go: activity reports and manual evaluation
//   - handlers_health.go: liveness and readiness probes
type Handler struct {
	engine    RoomEngine
	checks    map[string]ReadinessCheck
	startTime time.Time
}

// NewHandler creates the API handler. checks are run by the readiness probe.
func NewHandler(eng RoomEngine, checks map[string]ReadinessCheck) *Handler {
	return &Handler{
		engine:    eng,
		checks:    checks,
		startTime: time.Now(),
	}
}
