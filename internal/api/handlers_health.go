// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package api

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// readinessTimeout bounds each readiness check.
const readinessTimeout = 2 * time.Second

// HealthStatus is the data of the health endpoints.
type HealthStatus struct {
	Status string            `json:"status"`
	Uptime float64           `json:"uptime_seconds"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HealthLive handles GET /health/live. It returns 200 while the process runs.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(HealthStatus{
		Status: "alive",
		Uptime: time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles GET /health/ready. It returns 503 while any
// readiness check fails.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := HealthStatus{
		Status: "ready",
		Uptime: time.Since(h.startTime).Seconds(),
		Checks: make(map[string]string, len(names)),
	}
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		err := h.checks[name](ctx)
		cancel()

		if err != nil {
			status.Status = "not_ready"
			status.Checks[name] = err.Error()
			continue
		}
		status.Checks[name] = "ok"
	}

	if status.Status != "ready" {
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "service not ready", status)
		return
	}
	rw.Success(status)
}
