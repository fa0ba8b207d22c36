// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package authz

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/tomtom215/agora/internal/metrics"
)

// Global roles, carried by the caller's identity.
const (
	RoleMember    = "member"
	RoleModerator = "moderator"
	RoleService   = "service"
)

// Room roles, resolved per request from the membership ledger.
const (
	RoleRoomMember    = "room_member"
	RoleRoomFounder   = "room_founder"
	RoleRoomModerator = "room_moderator"
)

// Objects.
const (
	ObjRooms          = "rooms"
	ObjRoomMembership = "room_membership"
	ObjRoomMembers    = "room_members"
	ObjRoomEvents     = "room_events"
	ObjRoomModerators = "room_moderators"
	ObjRoomEvaluate   = "room_evaluate"
	ObjRoomActivity   = "room_activity"
)

// Actions.
const (
	ActRead   = "read"
	ActCreate = "create"
	ActWrite  = "write"
)

// modelText is an RBAC model with role inheritance.
const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// DefaultPolicy is loaded when no policy file is configured.
var DefaultPolicy = [][]string{
	{"p", RoleMember, ObjRooms, ActRead},
	{"p", RoleMember, ObjRooms, ActCreate},
	{"p", RoleMember, ObjRoomMembership, ActWrite},
	{"p", RoleMember, ObjRoomMembers, ActRead},

	{"p", RoleRoomFounder, ObjRoomEvents, ActRead},
	{"p", RoleRoomFounder, ObjRoomModerators, ActWrite},
	{"p", RoleRoomModerator, ObjRoomEvents, ActRead},
	{"p", RoleRoomModerator, ObjRoomEvaluate, ActWrite},

	{"p", RoleModerator, ObjRoomEvents, ActRead},
	{"p", RoleModerator, ObjRoomModerators, ActWrite},
	{"p", RoleModerator, ObjRoomEvaluate, ActWrite},

	{"p", RoleService, ObjRoomActivity, ActWrite},
	{"p", RoleService, ObjRooms, ActRead},

	{"g", RoleModerator, RoleMember},
	{"g", RoleRoomFounder, RoleRoomMember},
	{"g", RoleRoomModerator, RoleRoomMember},
}

// EnforcerConfig holds configuration for the Casbin enforcer.
type EnforcerConfig struct {
	// PolicyPath is a Casbin CSV policy file. Empty uses DefaultPolicy.
	PolicyPath string `koanf:"policy_path"`

	// AutoReload re-reads PolicyPath every ReloadInterval.
	AutoReload     bool          `koanf:"auto_reload"`
	ReloadInterval time.Duration `koanf:"reload_interval"`

	// DefaultRole is assumed for callers without roles.
	DefaultRole string `koanf:"default_role"`

	CacheEnabled bool          `koanf:"cache_enabled"`
	CacheTTL     time.Duration `koanf:"cache_ttl"`
}

// DefaultEnforcerConfig returns default configuration.
func DefaultEnforcerConfig() EnforcerConfig {
	return EnforcerConfig{
		ReloadInterval: 30 * time.Second,
		DefaultRole:    RoleMember,
		CacheEnabled:   true,
		CacheTTL:       5 * time.Minute,
	}
}

// ErrNoAdapter is returned by LoadPolicy when no policy file is configured.
var ErrNoAdapter = errors.New("no policy adapter configured; using default policy")

// Enforcer wraps the Casbin enforcer with a decision cache and metrics.
type Enforcer struct {
	config   EnforcerConfig
	enforcer *casbin.SyncedEnforcer
	cache    *enforcementCache
}

// NewEnforcer creates an Enforcer.
func NewEnforcer(config EnforcerConfig) (*Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	if config.PolicyPath != "" {
		if _, statErr := os.Stat(config.PolicyPath); statErr != nil {
			return nil, fmt.Errorf("policy file: %w", statErr)
		}
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(config.PolicyPath))
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadPolicy(enforcer, DefaultPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	if config.AutoReload && config.PolicyPath != "" && config.ReloadInterval > 0 {
		enforcer.StartAutoLoadPolicy(config.ReloadInterval)
	}

	e := &Enforcer{config: config, enforcer: enforcer}
	if config.CacheEnabled {
		e.cache = newEnforcementCache(config.CacheTTL)
	}
	return e, nil
}

func loadPolicy(enforcer *casbin.SyncedEnforcer, rules [][]string) error {
	for _, rule := range rules {
		if len(rule) < 3 {
			continue
		}
		switch rule[0] {
		case "p":
			if len(rule) < 4 {
				continue
			}
			if _, err := enforcer.AddPolicy(rule[1], rule[2], rule[3]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", rule, err)
			}
		case "g":
			if _, err := enforcer.AddGroupingPolicy(rule[1], rule[2]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", rule, err)
			}
		}
	}
	return nil
}

// Enforce checks whether role may perform action on object.
func (e *Enforcer) Enforce(role, object, action string) (bool, error) {
	if e.cache != nil {
		if allowed, ok := e.cache.get(role, object, action); ok {
			metrics.AuthzCacheLookups.WithLabelValues("hit").Inc()
			return allowed, nil
		}
		metrics.AuthzCacheLookups.WithLabelValues("miss").Inc()
	}

	allowed, err := e.enforcer.Enforce(role, object, action)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	if e.cache != nil {
		e.cache.set(role, object, action, allowed)
	}
	return allowed, nil
}

// EnforceRoles reports whether any of roles may perform action on object.
// Callers without roles are checked as the default role.
func (e *Enforcer) EnforceRoles(roles []string, object, action string) (bool, error) {
	if len(roles) == 0 && e.config.DefaultRole != "" {
		roles = []string{e.config.DefaultRole}
	}

	allowed := false
	for _, role := range roles {
		ok, err := e.Enforce(role, object, action)
		if err != nil {
			return false, err
		}
		if ok {
			allowed = true
			break
		}
	}

	decision := "deny"
	if allowed {
		decision = "allow"
	}
	metrics.AuthzDecisions.WithLabelValues(object, action, decision).Inc()
	return allowed, nil
}

// AddPolicy adds a policy rule.
func (e *Enforcer) AddPolicy(role, object, action string) (bool, error) {
	added, err := e.enforcer.AddPolicy(role, object, action)
	if err != nil {
		return false, fmt.Errorf("failed to add policy: %w", err)
	}
	if e.cache != nil {
		e.cache.clear()
	}
	return added, nil
}

// RemovePolicy removes a policy rule.
func (e *Enforcer) RemovePolicy(role, object, action string) (bool, error) {
	removed, err := e.enforcer.RemovePolicy(role, object, action)
	if err != nil {
		return false, fmt.Errorf("failed to remove policy: %w", err)
	}
	if e.cache != nil {
		e.cache.clear()
	}
	return removed, nil
}

// LoadPolicy reloads the policy file.
func (e *Enforcer) LoadPolicy() error {
	if e.config.PolicyPath == "" {
		return ErrNoAdapter
	}
	if err := e.enforcer.LoadPolicy(); err != nil {
		return err
	}
	if e.cache != nil {
		e.cache.clear()
	}
	return nil
}

// Close stops policy reload and cache cleanup.
func (e *Enforcer) Close() {
	e.enforcer.StopAutoLoadPolicy()
	if e.cache != nil {
		e.cache.stop()
	}
}

// normalizeRoles lowercases and de-duplicates roles.
func normalizeRoles(roles []string) []string {
	seen := make(map[string]bool, len(roles))
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}
