// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared process-wide; it caches struct
// metadata and reports fields by their json (or koanf) names.
//
// Custom tags:
//   - roomname: 1-80 characters after trimming; letters, digits, spaces and - _ ' . &
//   - memberid: non-empty identifier without whitespace or control characters
//
// Usage:
//
//	type createRoomRequest struct {
//	    Name     string   `json:"name" validate:"required,roomname"`
//	    Founders []string `json:"founders" validate:"min=5,dive,memberid"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	    return
//	}
package validation
