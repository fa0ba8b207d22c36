// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package audit

import (
	"time"

	"github.com/goccy/go-json"
)

// EventType categorizes lifecycle events.
type EventType string

const (
	// Room lifecycle events
	EventTypeRoomCreated            EventType = "room.created"
	EventTypeRoomActivated          EventType = "room.activated"
	EventTypeRoomLocked             EventType = "room.locked"
	EventTypeRoomUnlocked           EventType = "room.unlocked"
	EventTypeRoomDeleted            EventType = "room.deleted"
	EventTypeRoomEvaluationDeferred EventType = "room.evaluation_deferred"
	EventTypeRoomEvaluationFailed   EventType = "room.evaluation_failed"

	// Membership events
	EventTypeMemberJoined        EventType = "membership.joined"
	EventTypeMemberLeft          EventType = "membership.left"
	EventTypeMemberEnded         EventType = "membership.ended"
	EventTypeModeratorAssigned   EventType = "membership.moderator_assigned"
	EventTypeModeratorRevoked    EventType = "membership.moderator_revoked"
	EventTypeComplianceViolation EventType = "compliance.violation"
	EventTypeComplianceRestored  EventType = "compliance.restored"
)

// Severity indicates the severity level of an event.
type Severity string

const (
	SeverityDebug    Severity = "debug"
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Actor types.
const (
	ActorMember    = "member"
	ActorSystem    = "system"
	ActorScheduler = "scheduler"
)

// Actor represents who caused an event.
type Actor struct {
	// ID is the member identity, or the component name for system actors.
	ID string `json:"id"`

	// Type is one of member, system, scheduler.
	Type string `json:"type"`
}

// Event is an immutable lifecycle record. Sequence orders events by
// insertion and is assigned by the store when the event is appended.
type Event struct {
	ID        string    `json:"id"`
	Sequence  uint64    `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Severity  Severity  `json:"severity"`

	RoomID   string `json:"room_id"`
	MemberID string `json:"member_id,omitempty"`
	Actor    Actor  `json:"actor"`

	// FromState and ToState are set on room transitions.
	FromState string `json:"from_state,omitempty"`
	ToState   string `json:"to_state,omitempty"`

	// Reason is the human-readable explanation.
	Reason string `json:"reason"`

	// Metadata carries event-specific structured details.
	Metadata json.RawMessage `json:"metadata,omitempty"`

	CorrelationID string `json:"correlation_id,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
}

// QueryFilter defines filtering options for event queries.
type QueryFilter struct {
	// Types filters by event types.
	Types []EventType `json:"types,omitempty"`

	// Severities filters by severity levels.
	Severities []Severity `json:"severities,omitempty"`

	// MemberID filters by member.
	MemberID string `json:"member_id,omitempty"`

	// AfterSequence returns only events with a greater sequence (cursor).
	AfterSequence uint64 `json:"after_sequence,omitempty"`

	// StartTime is the beginning of the time range.
	StartTime *time.Time `json:"start_time,omitempty"`

	// EndTime is the end of the time range.
	EndTime *time.Time `json:"end_time,omitempty"`

	// Limit is the maximum number of results; 0 means no limit.
	Limit int `json:"limit,omitempty"`
}

// DefaultQueryFilter returns a sensible default filter.
func DefaultQueryFilter() QueryFilter {
	return QueryFilter{
		Limit: 100,
	}
}

// Matches returns true if the event matches all filter criteria.
func (f *QueryFilter) Matches(event *Event) bool {
	if event.Sequence <= f.AfterSequence {
		return false
	}

	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if event.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(f.Severities) > 0 {
		found := false
		for _, sev := range f.Severities {
			if event.Severity == sev {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.MemberID != "" && event.MemberID != f.MemberID {
		return false
	}

	if f.StartTime != nil && event.Timestamp.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && event.Timestamp.After(*f.EndTime) {
		return false
	}

	return true
}

// MustJSON marshals v for use as event metadata, returning nil on failure.
func MustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
