// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/agora/internal/audit"
	"github.com/tomtom215/agora/internal/models"
	"github.com/tomtom215/agora/internal/validation"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

// CreateRoomRequest is the body of POST /rooms. The caller is the creator
// and is counted among the founders whether or not Founders lists them.
type CreateRoomRequest struct {
	Name        string             `json:"name" validate:"required,roomname"`
	Description string             `json:"description" validate:"max=2000"`
	Founders    []string           `json:"founders" validate:"max=1000,dive,memberid"`
	Thresholds  *models.Thresholds `json:"thresholds,omitempty"`
}

// ActivityRequest is the body of the post and view reports. A missing At
// means now. PostID is only read on post reports.
type ActivityRequest struct {
	MemberID string     `json:"member_id" validate:"required,memberid"`
	PostID   string     `json:"post_id,omitempty" validate:"omitempty,max=128"`
	At       *time.Time `json:"at,omitempty"`
}

// ListRoomsQuery holds the query parameters of GET /rooms.
type ListRoomsQuery struct {
	Cursor string `json:"cursor" validate:"omitempty,max=128"`
	Limit  int    `json:"limit" validate:"min=0,max=200"`
}

// ListEventsQuery holds the query parameters of GET /rooms/{id}/events.
type ListEventsQuery struct {
	After    uint64   `json:"after"`
	Limit    int      `json:"limit" validate:"min=0,max=1000"`
	Types    []string `json:"types" validate:"max=32,dive,max=64"`
	MemberID string   `json:"member_id" validate:"omitempty,memberid"`
}

// Filter converts the query to an audit filter.
func (q ListEventsQuery) Filter() audit.QueryFilter {
	filter := audit.QueryFilter{
		AfterSequence: q.After,
		Limit:         q.Limit,
		MemberID:      q.MemberID,
	}
	for _, t := range q.Types {
		filter.Types = append(filter.Types, audit.EventType(t))
	}
	return filter
}

// decodeJSON reads a bounded JSON body into v and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return ErrEmptyBody
		case errors.As(err, &maxErr):
			return ErrBodyTooLarge
		default:
			return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
		}
	}
	if verr := validation.ValidateStruct(v); verr != nil {
		return verr
	}
	return nil
}

// writeDecodeError maps decodeJSON failures to 400, 413 or a validation error.
func writeDecodeError(rw *ResponseWriter, err error) {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		apiErr := verr.ToAPIError()
		rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidation, apiErr.Message, apiErr.Details)
	case errors.Is(err, ErrBodyTooLarge):
		rw.Error(http.StatusRequestEntityTooLarge, ErrCodeBadRequest, err.Error())
	default:
		rw.BadRequest(err.Error())
	}
}

// parseListRoomsQuery reads and validates GET /rooms parameters.
func parseListRoomsQuery(r *http.Request) (ListRoomsQuery, error) {
	q := r.URL.Query()
	query := ListRoomsQuery{Cursor: q.Get("cursor")}

	var err error
	if query.Limit, err = intParam(q.Get("limit")); err != nil {
		return query, fmt.Errorf("limit: %w", err)
	}
	if verr := validation.ValidateStruct(&query); verr != nil {
		return query, verr
	}
	return query, nil
}

// parseListEventsQuery reads and validates GET /rooms/{id}/events parameters.
// types is a comma-separated list.
func parseListEventsQuery(r *http.Request) (ListEventsQuery, error) {
	q := r.URL.Query()
	query := ListEventsQuery{MemberID: q.Get("member_id")}

	var err error
	if query.Limit, err = intParam(q.Get("limit")); err != nil {
		return query, fmt.Errorf("limit: %w", err)
	}
	if after := q.Get("after"); after != "" {
		if query.After, err = strconv.ParseUint(after, 10, 64); err != nil {
			return query, fmt.Errorf("after: %w", err)
		}
	}
	query.Types = splitCommaSeparated(q.Get("types"))

	if verr := validation.ValidateStruct(&query); verr != nil {
		return query, verr
	}
	return query, nil
}

func intParam(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func splitCommaSeparated(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
