// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

/*
Package config loads Agora's configuration with koanf.

# Configuration Sources

Layers are applied in order, later layers overriding earlier ones:

 1. Struct defaults (defaultConfig)
 2. YAML file: CONFIG_PATH, else config.yaml, config.yml,
    /etc/agora/config.yaml, /etc/agora/config.yml
 3. Environment variables listed in envMappings (others are ignored)

# Sections

  - server: HTTP listener and timeouts
  - storage: BadgerDB path and tuning, or the in-memory backend
  - lifecycle: room thresholds (never below the 6/10/10/4 floors) and timings
  - scheduler: room and compliance pass intervals, per-room budget, parallelism
  - notifications: in-process channel or NATS JetStream delivery
  - content: content purge endpoint
  - security: rate limiting and Casbin policy
  - logging, audit

# Example

	server:
	  port: 8470
	storage:
	  backend: badger
	  path: /var/lib/agora
	lifecycle:
	  min_members_to_activate: 12
	notifications:
	  transport: nats
	  nats_url: nats://nats:4222

Environment overrides use flat names, e.g. HTTP_PORT=9000, LOG_LEVEL=debug,
NOTIFY_TRANSPORT=nats, MIN_MEMBERS_TO_ACTIVATE=12.
*/
package config
