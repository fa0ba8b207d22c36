// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/agora/internal/models"
	"github.com/tomtom215/agora/internal/store"
)

var t0 = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

func update(t *testing.T, st store.Store, fn func(tx store.Tx) error) error {
	t.Helper()
	return st.Update(context.Background(), fn)
}

func TestJoinLeaveRejoin(t *testing.T) {
	st := store.NewMemoryStore()
	l := New()
	room := &models.Room{ID: "r1", State: models.RoomStateActive}

	if err := update(t, st, func(tx store.Tx) error {
		_, err := l.Join(tx, room, "alice", t0)
		return err
	}); err != nil {
		t.Fatalf("Join: %v", err)
	}

	err := update(t, st, func(tx store.Tx) error {
		_, err := l.Join(tx, room, "alice", t0)
		return err
	})
	if !errors.Is(err, ErrAlreadyMember) {
		t.Fatalf("second Join = %v, want ErrAlreadyMember", err)
	}

	if err := update(t, st, func(tx store.Tx) error {
		_, err := l.Leave(tx, room, "alice", t0.Add(time.Hour))
		return err
	}); err != nil {
		t.Fatalf("Leave: %v", err)
	}

	err = update(t, st, func(tx store.Tx) error {
		_, err := l.Leave(tx, room, "alice", t0.Add(2*time.Hour))
		return err
	})
	if !errors.Is(err, ErrNotMember) {
		t.Fatalf("second Leave = %v, want ErrNotMember", err)
	}

	var rejoined *models.Membership
	if err := update(t, st, func(tx store.Tx) error {
		var err error
		rejoined, err = l.Join(tx, room, "alice", t0.Add(3*time.Hour))
		return err
	}); err != nil {
		t.Fatalf("re-Join: %v", err)
	}

	if !rejoined.IsActive || rejoined.LeftAt != nil {
		t.Errorf("re-joined membership not active: %+v", rejoined)
	}
	if len(rejoined.History) != 1 {
		t.Fatalf("History = %d periods, want 1", len(rejoined.History))
	}
	if !rejoined.History[0].LeftAt.Equal(t0.Add(time.Hour)) {
		t.Errorf("history period = %+v", rejoined.History[0])
	}
	if !rejoined.JoinedAt.Equal(t0.Add(3 * time.Hour)) {
		t.Errorf("JoinedAt = %v", rejoined.JoinedAt)
	}
}

func TestJoinDeletedRoom(t *testing.T) {
	st := store.NewMemoryStore()
	room := &models.Room{ID: "r1", State: models.RoomStateDeleted}

	err := update(t, st, func(tx store.Tx) error {
		_, err := New().Join(tx, room, "alice", t0)
		return err
	})
	if !errors.Is(err, ErrRoomDeleted) {
		t.Errorf("Join deleted room = %v, want ErrRoomDeleted", err)
	}

	err = update(t, st, func(tx store.Tx) error {
		_, err := New().Leave(tx, room, "alice", t0)
		return err
	})
	if !errors.Is(err, ErrRoomDeleted) {
		t.Errorf("Leave deleted room = %v, want ErrRoomDeleted", err)
	}
}

func TestRejoinDropsRoles(t *testing.T) {
	st := store.NewMemoryStore()
	l := New()
	room := &models.Room{ID: "r1", State: models.RoomStateActive}
	lastPost := t0.Add(30 * time.Minute)

	var rejoined *models.Membership
	err := update(t, st, func(tx store.Tx) error {
		m, err := l.Found(tx, room, "alice", t0)
		if err != nil {
			return err
		}
		m.LastPostAt = models.TimePtr(lastPost)
		m.PostCount = 3
		if err := tx.PutMembership(m); err != nil {
			return err
		}
		if _, err := l.SetModerator(tx, "r1", "alice", true); err != nil {
			return err
		}
		if _, err := l.Leave(tx, room, "alice", t0.Add(time.Hour)); err != nil {
			return err
		}
		rejoined, err = l.Join(tx, room, "alice", t0.Add(2*time.Hour))
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	if rejoined.IsFounder || rejoined.IsModerator {
		t.Errorf("roles survived re-join: founder=%v moderator=%v", rejoined.IsFounder, rejoined.IsModerator)
	}
	if rejoined.PostCount != 3 || rejoined.LastPostAt == nil || !rejoined.LastPostAt.Equal(lastPost) {
		t.Errorf("post history lost on re-join: count=%d last=%v", rejoined.PostCount, rejoined.LastPostAt)
	}
}

func TestRolesAndEndAll(t *testing.T) {
	st := store.NewMemoryStore()
	l := New()
	room := &models.Room{ID: "r1", State: models.RoomStatePending}

	err := update(t, st, func(tx store.Tx) error {
		if _, err := l.Found(tx, room, "alice", t0); err != nil {
			return err
		}
		if _, err := l.Join(tx, room, "bob", t0); err != nil {
			return err
		}
		_, err := l.SetModerator(tx, "r1", "bob", true)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		member        string
		wantFounder   bool
		wantModerator bool
	}{
		{"alice", true, false},
		{"bob", false, true},
		{"carol", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.member, func(t *testing.T) {
			err := st.View(context.Background(), func(tx store.Tx) error {
				founder, err := l.IsFounder(tx, "r1", tt.member)
				if err != nil {
					return err
				}
				moderator, err := l.IsModerator(tx, "r1", tt.member)
				if err != nil {
					return err
				}
				if founder != tt.wantFounder || moderator != tt.wantModerator {
					t.Errorf("founder=%v moderator=%v, want %v %v", founder, moderator, tt.wantFounder, tt.wantModerator)
				}
				return nil
			})
			if err != nil {
				t.Fatal(err)
			}
		})
	}

	var ended []*models.Membership
	if err := update(t, st, func(tx store.Tx) error {
		var err error
		ended, err = l.EndAll(tx, "r1", t0.Add(time.Hour))
		return err
	}); err != nil {
		t.Fatal(err)
	}
	if len(ended) != 2 {
		t.Fatalf("ended %d memberships, want 2", len(ended))
	}

	err = st.View(context.Background(), func(tx store.Tx) error {
		active, err := l.ListActive(tx, "r1")
		if err != nil {
			return err
		}
		if len(active) != 0 {
			t.Errorf("active memberships after EndAll = %d", len(active))
		}
		all, err := tx.ListMemberships("r1")
		if err != nil {
			return err
		}
		if len(all) != 2 {
			t.Errorf("memberships must be kept, got %d", len(all))
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestCount(t *testing.T) {
	ms := []*models.Membership{
		{IsActive: true, MeetsPostRequirement: true, MeetsViewRequirement: true},
		{IsActive: true, MeetsPostRequirement: false, MeetsViewRequirement: true},
		{IsActive: false, MeetsPostRequirement: true, MeetsViewRequirement: true},
	}
	got := Count(ms)
	if got.Members != 2 || got.Compliant != 1 {
		t.Errorf("Count = %+v, want 2 members 1 compliant", got)
	}
}
