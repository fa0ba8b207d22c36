// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

/*
Package middleware provides chi-compatible HTTP middleware shared by the
room API.

  - RequestID: X-Request-ID propagation, correlation ID and a request-scoped
    zerolog logger in the context
  - AccessLog: one structured log line per request
  - PrometheusMetrics: api_requests_total, api_request_duration_seconds and
    api_active_requests, labeled by chi route pattern

Typical stack:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)

Authentication and authorization live in internal/authz.
*/
package middleware
