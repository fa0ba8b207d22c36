// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

/*
Package main is the entry point for the Agora server.

Agora runs the lifecycle of membership-gated community rooms: creation
with founders, activation once enough members join, locking when posting
dries up, and deletion with a content purge. Membership compliance is
checked on a schedule and badges are granted to members who keep up.

# Application Architecture

The server runs under a Suture v4 supervisor tree:

	RootSupervisor ("agora")
	├── StorageSupervisor ("storage-layer")
	│   └── BadgerDB value log GC (badger backend only)
	├── LifecycleSupervisor ("lifecycle-layer")
	│   ├── Notification dispatcher (watermill publisher)
	│   ├── Room pass scheduler
	│   └── Compliance pass scheduler
	└── APISupervisor ("api-layer")
	    └── HTTP Server (chi router)

Component initialization order:

 1. Configuration: Koanf v2 with defaults, config file and environment
 2. Logging: zerolog with JSON/console output modes
 3. Room store: BadgerDB, or in-memory outside production
 4. Audit mirror: committed events copied to the log stream
 5. Notifications: GoChannel or NATS publisher behind a circuit breaker
 6. Content purger: HTTP content service or in-process registry
 7. Room engine and scheduler
 8. Authorization: Casbin enforcer with decision cache
 9. Supervisor tree and HTTP server

# Configuration

Configuration is loaded via Koanf v2 (highest priority wins):

	Priority: Environment variables > Config file > Defaults

Core environment variables:

	HTTP_PORT=8470               # HTTP server port
	ENVIRONMENT=production       # development, production, test
	LOG_LEVEL=info               # trace, debug, info, warn, error
	LOG_FORMAT=json              # json or console

	STORAGE_BACKEND=badger       # badger or memory
	BADGER_PATH=/data/agora

	NOTIFY_TRANSPORT=nats        # channel or nats
	NATS_URL=nats://nats:4222

	CONTENT_PURGE_URL=http://content:8080/internal
	CASBIN_POLICY_PATH=/etc/agora/policy.csv

	SCHEDULER_ENABLED=true
	ROOM_PASS_INTERVAL=1h
	COMPLIANCE_PASS_INTERVAL=24h

# Signal Handling

SIGINT and SIGTERM cancel the root context and the supervisor stops every
service. The dispatcher drains its queue on stop. The store is closed once
the tree has returned.
*/
package main
