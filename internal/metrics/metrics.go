// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Room Lifecycle Metrics
	RoomTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_room_transitions_total",
			Help: "Total number of applied room state transitions",
		},
		[]string{"from_state", "to_state", "trigger"},
	)

	RoomEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_room_evaluations_total",
			Help: "Total number of room evaluations",
		},
		[]string{"source", "result"}, // result: "changed", "unchanged", "deferred", "failed"
	)

	RoomEvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agora_room_evaluation_duration_seconds",
			Help:    "Duration of a single room evaluation including its transaction",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	RoomsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "agora_rooms",
			Help: "Number of non-deleted rooms seen by the last room pass, by state",
		},
		[]string{"state"},
	)

	// Scheduler Metrics
	SchedulerPassDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agora_scheduler_pass_duration_seconds",
			Help:    "Duration of scheduler passes",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		},
		[]string{"pass"},
	)

	SchedulerRoomsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_scheduler_rooms_processed_total",
			Help: "Total number of rooms processed by scheduler passes",
		},
		[]string{"pass"},
	)

	SchedulerRoomsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_scheduler_rooms_skipped_total",
			Help: "Total number of rooms skipped by scheduler passes",
		},
		[]string{"pass", "reason"}, // reason: "budget_exceeded", "error"
	)

	SchedulerLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "agora_scheduler_last_success_timestamp",
			Help: "Unix timestamp of the last completed pass",
		},
		[]string{"pass"},
	)

	// Compliance Metrics
	ComplianceFlagChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_compliance_flag_changes_total",
			Help: "Total number of membership compliance flag changes",
		},
		[]string{"requirement", "outcome"}, // outcome: "violation", "restored"
	)

	// Notification Metrics
	NotificationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_notifications_published_total",
			Help: "Total number of notification and badge messages published",
		},
		[]string{"topic", "result"}, // result: "success", "failure"
	)

	NotificationsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_notifications_dropped_total",
			Help: "Total number of notifications dropped because the queue was full",
		},
		[]string{"topic"},
	)

	NotificationQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agora_notification_queue_depth",
			Help: "Current number of queued notification messages",
		},
	)

	// Content Metrics
	ContentPurges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_content_purges_total",
			Help: "Total number of room content purges",
		},
		[]string{"result"},
	)

	// Storage Metrics
	StoreConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agora_store_conflicts_total",
			Help: "Total number of storage transaction conflicts",
		},
	)

	StoreGCRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_store_gc_runs_total",
			Help: "Total number of value log GC runs",
		},
		[]string{"result"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Authorization Metrics
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Total number of authorization decisions",
		},
		[]string{"object", "action", "decision"},
	)

	AuthzCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_cache_lookups_total",
			Help: "Authorization decision cache lookups",
		},
		[]string{"result"}, // result: "hit", "miss"
	)
)

// RecordTransition records an applied room transition.
func RecordTransition(from, to, trigger string) {
	RoomTransitions.WithLabelValues(from, to, trigger).Inc()
}

// RecordEvaluation records one room evaluation and its latency.
func RecordEvaluation(source, result string, duration time.Duration) {
	RoomEvaluations.WithLabelValues(source, result).Inc()
	RoomEvaluationDuration.Observe(duration.Seconds())
}

// RecordPass records a completed scheduler pass.
func RecordPass(pass string, rooms int, duration time.Duration) {
	SchedulerPassDuration.WithLabelValues(pass).Observe(duration.Seconds())
	SchedulerRoomsProcessed.WithLabelValues(pass).Add(float64(rooms))
	SchedulerLastSuccess.WithLabelValues(pass).Set(float64(time.Now().Unix()))
}

// RecordSkippedRoom records a room a pass could not finish.
func RecordSkippedRoom(pass, reason string) {
	SchedulerRoomsSkipped.WithLabelValues(pass, reason).Inc()
}

// RecordComplianceChange records a compliance flag flip.
func RecordComplianceChange(requirement string, violated bool) {
	outcome := "restored"
	if violated {
		outcome = "violation"
	}
	ComplianceFlagChanges.WithLabelValues(requirement, outcome).Inc()
}

// RecordPublish records a publish attempt on a topic.
func RecordPublish(topic string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	NotificationsPublished.WithLabelValues(topic, result).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
