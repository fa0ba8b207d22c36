// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package models

import "time"

// MembershipPeriod is one closed join/leave interval.
type MembershipPeriod struct {
	JoinedAt time.Time `json:"joined_at"`
	LeftAt   time.Time `json:"left_at"`
}

// Membership is a member's standing in one room, keyed by (RoomID, MemberID).
type Membership struct {
	RoomID   string     `json:"room_id"`
	MemberID string     `json:"member_id"`
	JoinedAt time.Time  `json:"joined_at"`
	LeftAt   *time.Time `json:"left_at,omitempty"`
	IsActive bool       `json:"is_active"`

	LastPostAt *time.Time `json:"last_post_at,omitempty"`
	LastViewAt *time.Time `json:"last_view_at,omitempty"`
	PostCount  int        `json:"post_count"`

	IsFounder   bool `json:"is_founder"`
	IsModerator bool `json:"is_moderator"`

	MeetsPostRequirement bool `json:"meets_post_requirement"`
	MeetsViewRequirement bool `json:"meets_view_requirement"`

	// History holds earlier periods of this membership, oldest first.
	History []MembershipPeriod `json:"history,omitempty"`
}

// Compliant reports whether both cadence requirements are met.
func (m *Membership) Compliant() bool {
	return m.MeetsPostRequirement && m.MeetsViewRequirement
}

// Clone returns a deep copy of m.
func (m *Membership) Clone() *Membership {
	c := *m
	c.LeftAt = cloneTime(m.LeftAt)
	c.LastPostAt = cloneTime(m.LastPostAt)
	c.LastViewAt = cloneTime(m.LastViewAt)
	if m.History != nil {
		c.History = append([]MembershipPeriod(nil), m.History...)
	}
	return &c
}
