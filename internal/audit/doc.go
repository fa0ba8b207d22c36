// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

// Package audit defines the append-only lifecycle event log.
//
// Every room transition, membership change and compliance violation is
// recorded as an Event. Events are appended by the engine inside the same
// storage transaction as the change they describe, so an event exists if
// and only if its change committed. The store assigns each event a
// monotonically increasing Sequence; listing a room's events in sequence
// order yields insertion order.
//
// # Event Types
//
// Room lifecycle:
//   - room.created, room.activated, room.locked, room.unlocked, room.deleted
//   - room.evaluation_deferred: a time-driven transition was held back by a reply burst
//   - room.evaluation_failed: a transition rolled back (appended best effort afterwards)
//
// Membership:
//   - membership.joined, membership.left
//   - membership.ended: membership closed by a room deletion cascade
//   - membership.moderator_assigned, membership.moderator_revoked
//   - compliance.violation, compliance.restored
//
// # Consumers
//
// Moderation tooling reads events through the room events endpoint and can
// export them with JSONExporter or CEFExporter. The Logger mirrors committed
// events into the structured log stream.
package audit
