// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package models

import (
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestRoomState(t *testing.T) {
	tests := []struct {
		state    RoomState
		valid    bool
		terminal bool
	}{
		{RoomStatePending, true, false},
		{RoomStateActive, true, false},
		{RoomStateLocked, true, false},
		{RoomStateDeleted, true, true},
		{RoomState("archived"), false, false},
		{RoomState(""), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
			if got := tt.state.IsTerminal(); got != tt.terminal {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.terminal)
			}
		})
	}
}

func TestRoomClone(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := &Room{
		ID:           "room-1",
		Name:         "Gardening",
		State:        RoomStateActive,
		Thresholds:   DefaultThresholds(),
		CreatedAt:    now,
		ActivatedAt:  TimePtr(now),
		LastActivity: TimePtr(now),
	}

	c := r.Clone()
	*c.ActivatedAt = now.Add(time.Hour)
	c.Thresholds.MinMembersToMaintain = 20
	c.LockedAt = TimePtr(now)

	if !r.ActivatedAt.Equal(now) {
		t.Error("mutating the clone's ActivatedAt changed the original")
	}
	if r.Thresholds.MinMembersToMaintain != FloorMembersToMaintain {
		t.Error("mutating the clone's thresholds changed the original")
	}
	if r.LockedAt != nil {
		t.Error("setting the clone's LockedAt changed the original")
	}
}

func TestRoomSummary(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := &Room{
		ID:                "room-1",
		Name:              "Gardening",
		Description:       "Plants",
		State:             RoomStateLocked,
		MemberCount:       12,
		ActiveMemberCount: 11,
		UniquePosters72h:  2,
		CreatedAt:         now,
		LastActivity:      TimePtr(now),
	}

	s := r.Summary()
	if s.ID != r.ID || s.State != r.State || s.ActiveMemberCount != 11 || s.UniquePosters72h != 2 {
		t.Errorf("Summary() = %+v, fields do not match room", s)
	}
	*s.LastActivity = now.Add(time.Hour)
	if !r.LastActivity.Equal(now) {
		t.Error("summary shares LastActivity with the room")
	}
}

func TestRoomJSON_OmitsUnsetTimestamps(t *testing.T) {
	r := &Room{ID: "room-1", State: RoomStatePending, Thresholds: DefaultThresholds()}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	body := string(data)
	for _, field := range []string{"activated_at", "locked_at", "deleted_at", "deferred_since"} {
		if strings.Contains(body, field) {
			t.Errorf("JSON contains %q for a pending room: %s", field, body)
		}
	}
	if !strings.Contains(body, `"min_unique_posters_72h":4`) {
		t.Errorf("JSON missing thresholds: %s", body)
	}
}

func TestMembershipCompliant(t *testing.T) {
	tests := []struct {
		name       string
		post, view bool
		want       bool
	}{
		{"both met", true, true, true},
		{"post missing", false, true, false},
		{"view missing", true, false, false},
		{"neither", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Membership{MeetsPostRequirement: tt.post, MeetsViewRequirement: tt.view}
			if got := m.Compliant(); got != tt.want {
				t.Errorf("Compliant() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMembershipClone(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := &Membership{
		RoomID:     "room-1",
		MemberID:   "m01",
		JoinedAt:   now,
		LastPostAt: TimePtr(now),
		History:    []MembershipPeriod{{JoinedAt: now.Add(-48 * time.Hour), LeftAt: now.Add(-24 * time.Hour)}},
	}

	c := m.Clone()
	*c.LastPostAt = now.Add(time.Hour)
	c.History[0].LeftAt = now
	c.History = append(c.History, MembershipPeriod{JoinedAt: now, LeftAt: now})

	if !m.LastPostAt.Equal(now) {
		t.Error("mutating the clone's LastPostAt changed the original")
	}
	if len(m.History) != 1 || !m.History[0].LeftAt.Equal(now.Add(-24*time.Hour)) {
		t.Errorf("mutating the clone's history changed the original: %+v", m.History)
	}
}
