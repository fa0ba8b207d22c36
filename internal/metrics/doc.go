// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

/*
Package metrics provides Prometheus metrics collection and export for observability.

Collectors are registered on the default registry through promauto and are
exposed at /metrics by the HTTP server.

# Available Metrics

Room lifecycle:
  - agora_room_transitions_total: applied transitions (counter)
    Labels: from_state, to_state, trigger
  - agora_room_evaluations_total: evaluations (counter)
    Labels: source, result
  - agora_room_evaluation_duration_seconds: evaluation latency (histogram)
  - agora_rooms: rooms by state as of the last room pass (gauge)

Scheduler:
  - agora_scheduler_pass_duration_seconds: pass duration (histogram)
  - agora_scheduler_rooms_processed_total, agora_scheduler_rooms_skipped_total
  - agora_scheduler_last_success_timestamp

Compliance and delivery:
  - agora_compliance_flag_changes_total
    Labels: requirement, outcome
  - agora_notifications_published_total, agora_notifications_dropped_total
  - agora_notification_queue_depth
  - agora_content_purges_total

Storage:
  - agora_store_conflicts_total: optimistic transaction conflicts
  - agora_store_gc_runs_total: value log GC runs

HTTP:
  - api_requests_total, api_request_duration_seconds, api_active_requests

Circuit breakers:
  - circuit_breaker_state (0=closed, 1=half-open, 2=open)
  - circuit_breaker_requests_total, circuit_breaker_state_transitions_total

# Example Queries

Rooms locked per day:

	sum(increase(agora_room_transitions_total{to_state="locked"}[1d]))

Rooms skipped because they exceeded their evaluation budget:

	rate(agora_scheduler_rooms_skipped_total{reason="budget_exceeded"}[1h])
*/
package metrics
