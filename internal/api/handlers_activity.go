// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/agora/internal/engine"
	"github.com/tomtom215/agora/internal/models"
)

type activityRecorder func(ctx context.Context, roomID string, req ActivityRequest, at time.Time) (*models.Room, error)

// RecordPost handles POST /rooms/{id}/activity/posts, reported by the
// content service on behalf of a member.
func (h *Handler) RecordPost(w http.ResponseWriter, r *http.Request) {
	h.recordActivity(w, r, func(ctx context.Context, roomID string, req ActivityRequest, at time.Time) (*models.Room, error) {
		return h.engine.RecordPost(ctx, roomID, req.MemberID, req.PostID, at)
	})
}

// RecordView handles POST /rooms/{id}/activity/views.
func (h *Handler) RecordView(w http.ResponseWriter, r *http.Request) {
	h.recordActivity(w, r, func(ctx context.Context, roomID string, req ActivityRequest, at time.Time) (*models.Room, error) {
		return h.engine.RecordView(ctx, roomID, req.MemberID, at)
	})
}

func (h *Handler) recordActivity(w http.ResponseWriter, r *http.Request, record activityRecorder) {
	rw := NewResponseWriter(w, r)

	var req ActivityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(rw, err)
		return
	}

	var at time.Time
	if req.At != nil {
		at = *req.At
	}
	room, err := record(r.Context(), roomIDParam(r), req, at)
	if err != nil {
		writeEngineError(rw, err)
		return
	}
	rw.Success(room.Summary())
}

// EvaluateRoom handles POST /rooms/{id}/evaluate. A failed evaluation is
// rolled back and reported as 500; the room is retried on the next pass.
func (h *Handler) EvaluateRoom(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	room, err := h.engine.EvaluateRoom(r.Context(), roomIDParam(r), engine.MemberActor(callerID(r)))
	if err != nil {
		writeEngineError(rw, err)
		return
	}
	rw.Success(room)
}
