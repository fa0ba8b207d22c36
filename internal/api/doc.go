// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

/*
Package api provides the HTTP REST API for the room lifecycle engine.

Routes (chi):

	GET    /api/v1/rooms                              list non-deleted rooms (cursor paged)
	POST   /api/v1/rooms                              create a pending room
	GET    /api/v1/rooms/{id}                         room state, with the caller's role
	GET    /api/v1/rooms/{id}/members                 active memberships
	POST   /api/v1/rooms/{id}/members                 join as the caller
	DELETE /api/v1/rooms/{id}/members/me              leave
	GET    /api/v1/rooms/{id}/events                  lifecycle events in sequence order
	GET    /api/v1/rooms/{id}/events/export           events as a JSON or CEF file
	PUT    /api/v1/rooms/{id}/moderators/{member}     grant room moderator
	DELETE /api/v1/rooms/{id}/moderators/{member}     revoke room moderator
	POST   /api/v1/rooms/{id}/activity/posts          report a post (service role)
	POST   /api/v1/rooms/{id}/activity/views          report a view (service role)
	POST   /api/v1/rooms/{id}/evaluate                re-evaluate the room now
	GET    /api/v1/health/live, /api/v1/health/ready  probes
	GET    /metrics                                   Prometheus

Callers are identified by the X-Member-ID and X-Member-Roles headers set by
the upstream gateway. Room roles (member, founder, moderator) are resolved
from the membership ledger per request and checked with the Casbin enforcer
in internal/authz.

Every response uses the APIResponse envelope:

	{"success": false,
	 "error": {"code": "ROOM_DELETED", "message": "room has been deleted"},
	 "meta": {"request_id": "...", "timestamp": "...", "duration_ms": 1}}

Engine errors map to status codes:

	400  TOO_FEW_FOUNDERS, INVALID_THRESHOLDS, INVALID_NAME, VALIDATION_ERROR
	404  NOT_FOUND
	409  DUPLICATE_NAME, ALREADY_MEMBER, NOT_MEMBER
	410  ROOM_DELETED
*/
package api
