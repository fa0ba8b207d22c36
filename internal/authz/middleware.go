// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package authz

import (
	"context"
	"net/http"

	"github.com/tomtom215/agora/internal/logging"
)

// RoomRoleResolver returns the room roles of a member. A missing room or
// membership yields no roles and no error.
type RoomRoleResolver interface {
	RoomRoles(ctx context.Context, roomID, memberID string) ([]string, error)
}

// DenyFunc writes an authentication or authorization failure.
type DenyFunc func(w http.ResponseWriter, r *http.Request, status int, message string)

// Middleware authenticates callers from identity headers and authorizes
// them against the enforcer.
type Middleware struct {
	enforcer *Enforcer
	rooms    RoomRoleResolver
	roomID   func(*http.Request) string
	deny     DenyFunc
}

// NewMiddleware creates the authorization middleware. roomID extracts the
// room of a request, or "" for requests outside a room.
func NewMiddleware(enforcer *Enforcer, rooms RoomRoleResolver, roomID func(*http.Request) string, deny DenyFunc) *Middleware {
	if deny == nil {
		deny = func(w http.ResponseWriter, _ *http.Request, status int, message string) {
			http.Error(w, message, status)
		}
	}
	return &Middleware{enforcer: enforcer, rooms: rooms, roomID: roomID, deny: deny}
}

// Identify rejects requests without a member identity with 401.
func (m *Middleware) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := SubjectFromRequest(r)
		if subject == nil {
			m.deny(w, r, http.StatusUnauthorized, "member identity required")
			return
		}
		ctx := ContextWithSubject(r.Context(), subject)
		ctx = logging.ContextWithLogger(ctx, logging.LoggerFromContext(ctx).With().Str("member_id", subject.ID).Logger())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Authorize returns middleware allowing the request when the caller's global
// or room roles permit action on object.
func (m *Middleware) Authorize(object, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := SubjectFromContext(r.Context())
			if subject == nil {
				m.deny(w, r, http.StatusUnauthorized, "member identity required")
				return
			}

			roles := subject.Roles
			if m.rooms != nil && m.roomID != nil {
				if roomID := m.roomID(r); roomID != "" {
					roomRoles, err := m.rooms.RoomRoles(r.Context(), roomID, subject.ID)
					if err != nil {
						logging.Ctx(r.Context()).Error().Err(err).Str("room_id", roomID).Msg("Failed to resolve room roles")
						m.deny(w, r, http.StatusInternalServerError, "authorization failed")
						return
					}
					roles = append(append([]string{}, roles...), roomRoles...)
				}
			}

			allowed, err := m.enforcer.EnforceRoles(roles, object, action)
			if err != nil {
				logging.Ctx(r.Context()).Error().Err(err).Msg("Authorization error")
				m.deny(w, r, http.StatusInternalServerError, "authorization failed")
				return
			}
			if !allowed {
				logging.Ctx(r.Context()).Debug().
					Str("member_id", subject.ID).
					Str("object", object).
					Str("action", action).
					Strs("roles", roles).
					Msg("Authorization denied")
				m.deny(w, r, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
