// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package authz

import (
	"context"
	"net/http"
	"strings"

	"github.com/tomtom215/agora/internal/validation"
)

// Identity headers set by the upstream gateway.
const (
	HeaderMemberID    = "X-Member-ID"
	HeaderMemberRoles = "X-Member-Roles"
)

// Subject is the authenticated caller.
type Subject struct {
	ID    string
	Roles []string
}

// HasRole reports whether s carries role.
func (s *Subject) HasRole(role string) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type subjectKey struct{}

// ContextWithSubject returns ctx carrying s.
func ContextWithSubject(ctx context.Context, s *Subject) context.Context {
	return context.WithValue(ctx, subjectKey{}, s)
}

// SubjectFromContext returns the caller, or nil when unauthenticated.
func SubjectFromContext(ctx context.Context) *Subject {
	s, _ := ctx.Value(subjectKey{}).(*Subject)
	return s
}

// SubjectFromRequest reads the identity headers. It returns nil without a
// well-formed member ID. Every identified caller is at least a member.
func SubjectFromRequest(r *http.Request) *Subject {
	id := strings.TrimSpace(r.Header.Get(HeaderMemberID))
	if !validation.IsMemberID(id) {
		return nil
	}
	roles := append([]string{RoleMember}, strings.Split(r.Header.Get(HeaderMemberRoles), ",")...)
	return &Subject{ID: id, Roles: normalizeRoles(roles)}
}
