// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/agora/internal/models"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func room(state models.RoomState, members, posters int) *models.Room {
	r := &models.Room{
		ID:               "r1",
		State:            state,
		MemberCount:      members,
		UniquePosters72h: posters,
		Thresholds:       models.DefaultThresholds(),
		CreatedAt:        now.Add(-10 * 24 * time.Hour),
	}
	if state == models.RoomStateActive || state == models.RoomStateLocked {
		r.ActivatedAt = models.TimePtr(now.Add(-7 * 24 * time.Hour))
	}
	return r
}

func states(d Decision) []models.RoomState {
	out := make([]models.RoomState, 0, len(d.Transitions))
	for _, t := range d.Transitions {
		out = append(out, t.To)
	}
	return out
}

func TestEvaluateRules(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		room *models.Room
		want []models.RoomState
	}{
		{"pending with 9 members stays pending", room(models.RoomStatePending, 9, 0), nil},
		{"pending with 10 members activates", room(models.RoomStatePending, 10, 0), []models.RoomState{models.RoomStateActive}},
		{"pending below founding minimum deletes", room(models.RoomStatePending, 5, 0), []models.RoomState{models.RoomStateDeleted}},
		{"active with 4 posters stays active", room(models.RoomStateActive, 12, 4), nil},
		{"active with 3 posters locks", room(models.RoomStateActive, 12, 3), []models.RoomState{models.RoomStateLocked}},
		{"active below maintain deletes", room(models.RoomStateActive, 9, 8), []models.RoomState{models.RoomStateDeleted}},
		{"member loss wins over lock", room(models.RoomStateActive, 9, 0), []models.RoomState{models.RoomStateDeleted}},
		{"locked regaining posters unlocks", room(models.RoomStateLocked, 10, 4), []models.RoomState{models.RoomStateActive}},
		{"locked with posters but 9 members deletes", room(models.RoomStateLocked, 9, 4), []models.RoomState{models.RoomStateDeleted}},
		{"locked without posters stays locked", room(models.RoomStateLocked, 10, 3), nil},
		{"deleted is absorbing", room(models.RoomStateDeleted, 20, 20), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(cfg, Snapshot{Room: tt.room, Now: now})
			got := states(d)
			if len(got) != len(tt.want) {
				t.Fatalf("transitions = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("transition %d = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLockReasonIsFixed(t *testing.T) {
	d := Evaluate(DefaultConfig(), Snapshot{Room: room(models.RoomStateActive, 10, 0), Now: now})
	if len(d.Transitions) != 1 || d.Transitions[0].Reason != ReasonInsufficientPosters {
		t.Fatalf("unexpected decision %+v", d)
	}
}

func TestActivationChainsIntoDeletion(t *testing.T) {
	r := room(models.RoomStatePending, 10, 0)
	r.Thresholds.MinMembersToMaintain = 12

	d := Evaluate(DefaultConfig(), Snapshot{Room: r, Now: now})
	got := states(d)
	if len(got) != 2 || got[0] != models.RoomStateActive || got[1] != models.RoomStateDeleted {
		t.Fatalf("transitions = %v, want [active deleted]", got)
	}

	d.Apply(r, now)
	if r.State != models.RoomStateDeleted || r.ActivatedAt == nil || r.DeletedAt == nil {
		t.Errorf("room after apply = %+v", r)
	}
}

func TestActivationGrace(t *testing.T) {
	fresh := room(models.RoomStateActive, 10, 3)
	fresh.ActivatedAt = models.TimePtr(now.Add(-time.Hour))

	if got := states(Evaluate(DefaultConfig(), Snapshot{Room: fresh, Now: now})); len(got) != 1 || got[0] != models.RoomStateLocked {
		t.Errorf("without grace a fresh room should lock, got %v", got)
	}

	cfg := DefaultConfig()
	cfg.ActivationGrace = 72 * time.Hour
	if d := Evaluate(cfg, Snapshot{Room: fresh, Now: now}); d.Changed() {
		t.Errorf("room inside grace should not lock: %+v", d)
	}

	activating := room(models.RoomStatePending, 10, 0)
	if got := states(Evaluate(DefaultConfig(), Snapshot{Room: activating, Now: now})); len(got) != 1 || got[0] != models.RoomStateActive {
		t.Errorf("activation should not chain into a lock in the same evaluation: %v", got)
	}
}

func TestPendingExpiry(t *testing.T) {
	cfg := DefaultConfig()
	r := room(models.RoomStatePending, 7, 0)
	r.CreatedAt = now.Add(-31 * 24 * time.Hour)

	d := Evaluate(cfg, Snapshot{Room: r, Now: now})
	if got := states(d); len(got) != 1 || got[0] != models.RoomStateDeleted {
		t.Fatalf("expired pending room transitions = %v", got)
	}
	if d.Transitions[0].Trigger != TriggerTime {
		t.Errorf("expiry trigger = %s, want time", d.Transitions[0].Trigger)
	}
}

func TestBurstDeferral(t *testing.T) {
	cfg := DefaultConfig()
	r := room(models.RoomStateActive, 10, 2)

	d := Evaluate(cfg, Snapshot{Room: r, Now: now, Burst: true})
	if d.Changed() || d.Deferred == nil || !d.DeferralStarted {
		t.Fatalf("first burst should defer: %+v", d)
	}
	d.Apply(r, now)
	if r.DeferredSince == nil || r.State != models.RoomStateActive {
		t.Fatalf("deferral not recorded: %+v", r)
	}

	later := now.Add(time.Hour)
	d = Evaluate(cfg, Snapshot{Room: r, Now: later, Burst: true})
	if d.Changed() || d.DeferralStarted {
		t.Fatalf("continuing burst should defer without a new start: %+v", d)
	}

	capped := now.Add(cfg.MaxDeferral)
	d = Evaluate(cfg, Snapshot{Room: r, Now: capped, Burst: true})
	if got := states(d); len(got) != 1 || got[0] != models.RoomStateLocked {
		t.Fatalf("deferral cap should lock: %+v", d)
	}
	d.Apply(r, capped)
	if r.DeferredSince != nil {
		t.Errorf("deferral should clear once the transition applies")
	}
}

func TestBurstNeverDefersMemberLoss(t *testing.T) {
	r := room(models.RoomStateActive, 9, 0)
	d := Evaluate(DefaultConfig(), Snapshot{Room: r, Now: now, Burst: true})
	if got := states(d); len(got) != 1 || got[0] != models.RoomStateDeleted {
		t.Errorf("member-driven deletion must not defer: %+v", d)
	}
}

func TestDeferralClearsWhenPostersRecover(t *testing.T) {
	r := room(models.RoomStateActive, 10, 5)
	r.DeferredSince = models.TimePtr(now.Add(-time.Hour))

	d := Evaluate(DefaultConfig(), Snapshot{Room: r, Now: now, Burst: true})
	if !d.DeferralCleared {
		t.Fatalf("deferral should clear: %+v", d)
	}
	d.Apply(r, now)
	if r.DeferredSince != nil {
		t.Errorf("DeferredSince = %v, want nil", r.DeferredSince)
	}
}

func TestUnlockClearsLockedAt(t *testing.T) {
	r := room(models.RoomStateLocked, 10, 4)
	r.LockedAt = models.TimePtr(now.Add(-time.Hour))

	Evaluate(DefaultConfig(), Snapshot{Room: r, Now: now}).Apply(r, now)
	if r.State != models.RoomStateActive || r.LockedAt != nil {
		t.Errorf("room after unlock = %+v", r)
	}
}

func TestValidateThresholds(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.Thresholds)
		wantErr bool
	}{
		{"defaults", func(*models.Thresholds) {}, false},
		{"raised", func(th *models.Thresholds) { th.MinMembersToActivate = 25; th.MinUniquePosters72h = 8 }, false},
		{"create below floor", func(th *models.Thresholds) { th.MinMembersToCreate = 5 }, true},
		{"activate below floor", func(th *models.Thresholds) { th.MinMembersToActivate = 9 }, true},
		{"maintain below floor", func(th *models.Thresholds) { th.MinMembersToMaintain = 3 }, true},
		{"posters below floor", func(th *models.Thresholds) { th.MinUniquePosters72h = 3 }, true},
		{"activate below create", func(th *models.Thresholds) { th.MinMembersToCreate = 12 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := models.DefaultThresholds()
			tt.mutate(&th)
			err := ValidateThresholds(th)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateThresholds = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidThresholds) {
				t.Errorf("error %v does not wrap ErrInvalidThresholds", err)
			}
		})
	}
}
