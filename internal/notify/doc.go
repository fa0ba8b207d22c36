// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

// Package notify delivers member notifications and badge grants to external
// subsystems over watermill.
//
// The engine queues messages on a Sink after a transition commits. The
// Dispatcher publishes them from a background worker through a circuit
// breaker; delivery is fire-and-forget and failures are only logged and
// counted.
//
// Transports:
//   - channel: in-process gochannel pub/sub (default, also used in tests)
//   - nats: NATS or NATS JetStream via watermill-nats
//
// Topics:
//   - agora.notifications: Notification JSON, metadata template_key and room_id
//   - agora.badges: GrantRequest JSON, metadata badge and member_id
package notify
