// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/agora/internal/audit"
	"github.com/tomtom215/agora/internal/authz"
	"github.com/tomtom215/agora/internal/engine"
	"github.com/tomtom215/agora/internal/models"
	"github.com/tomtom215/agora/internal/validation"
)

// RoomResponse is a room as seen by the caller.
type RoomResponse struct {
	*models.Room
	Role *engine.Role `json:"role,omitempty"`
}

// RoomsPage is the data of GET /rooms.
type RoomsPage struct {
	Rooms []models.RoomSummary `json:"rooms"`
}

// MemberResponse is one active membership.
type MemberResponse struct {
	MemberID      string     `json:"member_id"`
	IsFounder     bool       `json:"is_founder"`
	IsModerator   bool       `json:"is_moderator"`
	JoinedAt      time.Time  `json:"joined_at"`
	LastPostAt    *time.Time `json:"last_post_at,omitempty"`
	LastViewAt    *time.Time `json:"last_view_at,omitempty"`
	PostCompliant bool       `json:"post_compliant"`
	ViewCompliant bool       `json:"view_compliant"`
}

func memberResponse(m *models.Membership) MemberResponse {
	return MemberResponse{
		MemberID:      m.MemberID,
		IsFounder:     m.IsFounder,
		IsModerator:   m.IsModerator,
		JoinedAt:      m.JoinedAt,
		LastPostAt:    m.LastPostAt,
		LastViewAt:    m.LastViewAt,
		PostCompliant: m.MeetsPostRequirement,
		ViewCompliant: m.MeetsViewRequirement,
	}
}

func roomIDParam(r *http.Request) string {
	return chi.URLParam(r, "id")
}

func callerID(r *http.Request) string {
	if s := authz.SubjectFromContext(r.Context()); s != nil {
		return s.ID
	}
	return ""
}

// CreateRoom handles POST /rooms.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req CreateRoomRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(rw, err)
		return
	}

	room, err := h.engine.CreateRoom(r.Context(), engine.CreateRoomRequest{
		Name:        req.Name,
		Description: req.Description,
		CreatorID:   callerID(r),
		Founders:    req.Founders,
		Thresholds:  req.Thresholds,
	})
	if err != nil {
		writeEngineError(rw, err)
		return
	}

	rw.Created(room)
}

// ListRooms handles GET /rooms.
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	query, err := parseListRoomsQuery(r)
	if err != nil {
		writeQueryError(rw, err)
		return
	}

	rooms, next, err := h.engine.ListRooms(r.Context(), query.Cursor, query.Limit)
	if err != nil {
		writeEngineError(rw, err)
		return
	}

	limit := query.Limit
	if limit <= 0 {
		limit = engine.DefaultListLimit
	}
	rw.SuccessWithPagination(RoomsPage{Rooms: rooms}, &PaginationMeta{
		Count:      len(rooms),
		Limit:      limit,
		HasMore:    next != "",
		NextCursor: next,
	})
}

// GetRoom handles GET /rooms/{id}. The caller's own role is included when
// they belong to the room.
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	roomID := roomIDParam(r)

	room, err := h.engine.GetRoomState(r.Context(), roomID)
	if err != nil {
		writeEngineError(rw, err)
		return
	}

	resp := RoomResponse{Room: room}
	if room.State != models.RoomStateDeleted {
		role, err := h.engine.MemberRole(r.Context(), roomID, callerID(r))
		if err != nil {
			writeEngineError(rw, err)
			return
		}
		if role.Member {
			resp.Role = &role
		}
	}
	rw.Success(resp)
}

// JoinRoom handles POST /rooms/{id}/members. The caller joins.
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	room, err := h.engine.JoinRoom(r.Context(), roomIDParam(r), callerID(r))
	if err != nil {
		writeEngineError(rw, err)
		return
	}
	rw.Success(room.Summary())
}

// LeaveRoom handles DELETE /rooms/{id}/members/me.
func (h *Handler) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	room, err := h.engine.LeaveRoom(r.Context(), roomIDParam(r), callerID(r))
	if err != nil {
		writeEngineError(rw, err)
		return
	}
	rw.Success(room.Summary())
}

// ListMembers handles GET /rooms/{id}/members.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	members, err := h.engine.ListMembers(r.Context(), roomIDParam(r))
	if err != nil {
		writeEngineError(rw, err)
		return
	}

	out := make([]MemberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, memberResponse(m))
	}
	rw.Success(out)
}

// SetModerator handles PUT /rooms/{id}/moderators/{member}.
func (h *Handler) SetModerator(w http.ResponseWriter, r *http.Request) {
	h.setModerator(w, r, true)
}

// RevokeModerator handles DELETE /rooms/{id}/moderators/{member}.
func (h *Handler) RevokeModerator(w http.ResponseWriter, r *http.Request) {
	h.setModerator(w, r, false)
}

func (h *Handler) setModerator(w http.ResponseWriter, r *http.Request, moderator bool) {
	rw := NewResponseWriter(w, r)

	memberID := chi.URLParam(r, "member")
	if !validation.IsMemberID(memberID) {
		rw.Error(http.StatusBadRequest, ErrCodeValidation, "invalid member ID")
		return
	}

	err := h.engine.SetModerator(r.Context(), roomIDParam(r), memberID, moderator, engine.MemberActor(callerID(r)))
	if err != nil {
		writeEngineError(rw, err)
		return
	}
	rw.NoContent()
}

// ListEvents handles GET /rooms/{id}/events.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	query, err := parseListEventsQuery(r)
	if err != nil {
		writeQueryError(rw, err)
		return
	}

	events, err := h.engine.ListEventsForRoom(r.Context(), roomIDParam(r), query.Filter())
	if err != nil {
		writeEngineError(rw, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}

	limit := query.Limit
	if limit <= 0 {
		limit = audit.DefaultQueryFilter().Limit
	}
	hasMore := len(events) == limit
	next := ""
	if hasMore {
		next = strconv.FormatUint(events[len(events)-1].Sequence, 10)
	}
	rw.SuccessWithPagination(events, &PaginationMeta{
		Count:      len(events),
		Limit:      limit,
		HasMore:    hasMore,
		NextCursor: next,
	})
}

func writeQueryError(rw *ResponseWriter, err error) {
	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		apiErr := verr.ToAPIError()
		rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidation, apiErr.Message, apiErr.Details)
		return
	}
	rw.BadRequest("invalid query parameter: " + err.Error())
}
