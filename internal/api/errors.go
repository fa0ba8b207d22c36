// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/agora/internal/engine"
)

// Request decoding errors
var (
	ErrEmptyBody     = errors.New("request body is required")
	ErrBodyTooLarge  = errors.New("request body too large")
	ErrMalformedJSON = errors.New("malformed JSON body")
)

// errorMapping maps an engine sentinel to its HTTP status and code.
type errorMapping struct {
	target error
	status int
	code   string
}

var engineErrors = []errorMapping{
	{engine.ErrRoomNotFound, http.StatusNotFound, ErrCodeNotFound},
	{engine.ErrTooFewFounders, http.StatusBadRequest, ErrCodeTooFewFounders},
	{engine.ErrInvalidThresholds, http.StatusBadRequest, ErrCodeInvalidThresholds},
	{engine.ErrInvalidName, http.StatusBadRequest, ErrCodeInvalidName},
	{engine.ErrDuplicateName, http.StatusConflict, ErrCodeDuplicateName},
	{engine.ErrAlreadyMember, http.StatusConflict, ErrCodeAlreadyMember},
	{engine.ErrNotMember, http.StatusConflict, ErrCodeNotMember},
	{engine.ErrRoomDeleted, http.StatusGone, ErrCodeRoomDeleted},
}

// writeEngineError maps engine errors to responses. Unknown errors are
// logged and returned as 500.
func writeEngineError(rw *ResponseWriter, err error) {
	for _, m := range engineErrors {
		if errors.Is(err, m.target) {
			rw.Error(m.status, m.code, err.Error())
			return
		}
	}
	rw.InternalError(err)
}
