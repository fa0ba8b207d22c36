// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package notify

import (
	"time"

	"github.com/goccy/go-json"
)

// Default topics.
const (
	TopicNotifications = "agora.notifications"
	TopicBadges        = "agora.badges"
)

// Notification template keys.
const (
	TemplateRoomCreated       = "room.created"
	TemplateRoomActivated     = "room.activated"
	TemplateRoomLocked        = "room.locked"
	TemplateRoomUnlocked      = "room.unlocked"
	TemplateRoomDeleted       = "room.deleted"
	TemplateComplianceWarning = "membership.compliance_warning"
)

// Badge names.
const (
	BadgeRoomFounder      = "room_founder"
	BadgeCommunityBuilder = "community_builder"
)

// Notification asks the external deliverer to notify a set of members.
type Notification struct {
	ID          string          `json:"id"`
	TemplateKey string          `json:"template_key"`
	Recipients  []string        `json:"recipients"`
	RoomID      string          `json:"room_id"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// GrantRequest asks the badge subsystem to grant a badge.
type GrantRequest struct {
	ID        string     `json:"id"`
	MemberID  string     `json:"member_id"`
	Badge     string     `json:"badge"`
	Reason    string     `json:"reason"`
	RoomID    string     `json:"room_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Sink accepts notifications and badge grants for asynchronous delivery.
// Implementations must not block.
type Sink interface {
	Notify(n Notification)
	Grant(g GrantRequest)
}

// NopSink discards everything.
type NopSink struct{}

// Notify implements Sink.
func (NopSink) Notify(Notification) {}

// Grant implements Sink.
func (NopSink) Grant(GrantRequest) {}
