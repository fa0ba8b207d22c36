// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

// Package authz provides role-based access control using Casbin.
//
// Callers are identified by the X-Member-ID header set by the upstream
// gateway; X-Member-Roles carries comma-separated global roles. Every
// identified caller is a member. Room roles (room_member, room_founder,
// room_moderator) are resolved per request from the membership ledger and
// checked together with the global roles.
//
// # RBAC Model
//
//	[request_definition]
//	r = sub, obj, act
//
//	[policy_definition]
//	p = sub, obj, act
//
//	[role_definition]
//	g = _, _
//
//	[policy_effect]
//	e = some(where (p.eft == allow))
//
//	[matchers]
//	m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
//
// # Default Policy
//
//	p, member, rooms, read
//	p, member, rooms, create
//	p, member, room_membership, write
//	p, member, room_members, read
//	p, room_founder, room_events, read
//	p, room_founder, room_moderators, write
//	p, room_moderator, room_events, read
//	p, room_moderator, room_evaluate, write
//	p, moderator, room_events, read
//	p, moderator, room_moderators, write
//	p, moderator, room_evaluate, write
//	p, service, room_activity, write
//	p, service, rooms, read
//	g, moderator, member
//
// A CSV file in the same format replaces the default policy when
// EnforcerConfig.PolicyPath is set.
//
// # Usage
//
//	enforcer, err := authz.NewEnforcer(authz.DefaultEnforcerConfig())
//	mw := authz.NewMiddleware(enforcer, resolver, roomIDFromRequest, writeDenied)
//
//	r.Use(mw.Identify)
//	r.With(mw.Authorize(authz.ObjRoomEvents, authz.ActRead)).Get("/rooms/{id}/events", h.RoomEvents)
package authz
