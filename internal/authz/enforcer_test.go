// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package authz

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestEnforcer(t *testing.T, cfg EnforcerConfig) *Enforcer {
	t.Helper()
	e, err := NewEnforcer(cfg)
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestDefaultPolicy(t *testing.T) {
	e := newTestEnforcer(t, DefaultEnforcerConfig())

	tests := []struct {
		name   string
		roles  []string
		object string
		action string
		want   bool
	}{
		{"member lists rooms", []string{RoleMember}, ObjRooms, ActRead, true},
		{"member creates room", []string{RoleMember}, ObjRooms, ActCreate, true},
		{"member joins", []string{RoleMember}, ObjRoomMembership, ActWrite, true},
		{"member reads events", []string{RoleMember}, ObjRoomEvents, ActRead, false},
		{"room member reads events", []string{RoleMember, RoleRoomMember}, ObjRoomEvents, ActRead, false},
		{"founder reads events", []string{RoleMember, RoleRoomFounder}, ObjRoomEvents, ActRead, true},
		{"founder appoints moderators", []string{RoleRoomFounder}, ObjRoomModerators, ActWrite, true},
		{"room moderator reads events", []string{RoleRoomModerator}, ObjRoomEvents, ActRead, true},
		{"room moderator cannot appoint", []string{RoleRoomModerator}, ObjRoomModerators, ActWrite, false},
		{"room moderator evaluates", []string{RoleRoomModerator}, ObjRoomEvaluate, ActWrite, true},
		{"global moderator appoints", []string{RoleModerator}, ObjRoomModerators, ActWrite, true},
		{"global moderator inherits member", []string{RoleModerator}, ObjRooms, ActCreate, true},
		{"member cannot report activity", []string{RoleMember}, ObjRoomActivity, ActWrite, false},
		{"service reports activity", []string{RoleService}, ObjRoomActivity, ActWrite, true},
		{"service cannot join", []string{RoleService}, ObjRoomMembership, ActWrite, false},
		{"no roles falls back to member", nil, ObjRooms, ActRead, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.EnforceRoles(tt.roles, tt.object, tt.action)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("EnforceRoles(%v, %s, %s) = %v, want %v", tt.roles, tt.object, tt.action, got, tt.want)
			}
		})
	}
}

func TestPolicyChangesClearCache(t *testing.T) {
	e := newTestEnforcer(t, DefaultEnforcerConfig())

	if ok, _ := e.Enforce(RoleMember, ObjRoomEvaluate, ActWrite); ok {
		t.Fatal("member should not evaluate rooms by default")
	}
	if e.cache.size() == 0 {
		t.Fatal("decision was not cached")
	}

	if _, err := e.AddPolicy(RoleMember, ObjRoomEvaluate, ActWrite); err != nil {
		t.Fatal(err)
	}
	if ok, _ := e.Enforce(RoleMember, ObjRoomEvaluate, ActWrite); !ok {
		t.Error("added policy not applied")
	}

	if _, err := e.RemovePolicy(RoleMember, ObjRoomEvaluate, ActWrite); err != nil {
		t.Fatal(err)
	}
	if ok, _ := e.Enforce(RoleMember, ObjRoomEvaluate, ActWrite); ok {
		t.Error("removed policy still applied")
	}
}

func TestPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.csv")
	policy := "p, member, rooms, read\np, auditor, room_events, read\n"
	if err := os.WriteFile(path, []byte(policy), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultEnforcerConfig()
	cfg.PolicyPath = path
	e := newTestEnforcer(t, cfg)

	if ok, _ := e.EnforceRoles([]string{"auditor"}, ObjRoomEvents, ActRead); !ok {
		t.Error("auditor should read events from file policy")
	}
	if ok, _ := e.EnforceRoles([]string{RoleMember}, ObjRooms, ActCreate); ok {
		t.Error("file policy should replace the default policy")
	}
	if err := e.LoadPolicy(); err != nil {
		t.Errorf("LoadPolicy: %v", err)
	}

	cfg.PolicyPath = filepath.Join(t.TempDir(), "missing.csv")
	if _, err := NewEnforcer(cfg); err == nil {
		t.Error("missing policy file should fail")
	}
}

func TestLoadPolicyWithoutFile(t *testing.T) {
	e := newTestEnforcer(t, DefaultEnforcerConfig())
	if err := e.LoadPolicy(); !errors.Is(err, ErrNoAdapter) {
		t.Errorf("LoadPolicy = %v, want ErrNoAdapter", err)
	}
}

func TestNormalizeRoles(t *testing.T) {
	got := normalizeRoles([]string{" Moderator", "member", "", "MEMBER", "service "})
	want := []string{"moderator", "member", "service"}
	if len(got) != len(want) {
		t.Fatalf("normalizeRoles = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("normalizeRoles[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
