// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/agora/internal/authz"
	"github.com/tomtom215/agora/internal/engine"
	"github.com/tomtom215/agora/internal/middleware"
)

// RouterConfig holds HTTP routing settings.
type RouterConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool
}

// DefaultRouterConfig returns 100 requests per minute per caller.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
	}
}

// NewRouter builds the HTTP handler:
//
//	/metrics                     Prometheus scrape endpoint
//	/api/v1/health/{live,ready}  probes, unauthenticated
//	/api/v1/rooms/...            room API, identified and authorized
func NewRouter(h *Handler, enforcer *authz.Enforcer, cfg RouterConfig) http.Handler {
	authorizer := authz.NewMiddleware(enforcer, roomRoleResolver{engine: h.engine}, roomIDParam, writeDenied)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, ErrCodeBadRequest, "method not allowed")
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1/rooms", func(r chi.Router) {
		r.Use(rateLimit(cfg))
		r.Use(chimiddleware.Compress(5, "application/json"))
		r.Use(authorizer.Identify)

		r.With(authorizer.Authorize(authz.ObjRooms, authz.ActRead)).Get("/", h.ListRooms)
		r.With(authorizer.Authorize(authz.ObjRooms, authz.ActCreate)).Post("/", h.CreateRoom)

		r.Route("/{id}", func(r chi.Router) {
			r.With(authorizer.Authorize(authz.ObjRooms, authz.ActRead)).Get("/", h.GetRoom)

			r.With(authorizer.Authorize(authz.ObjRoomMembers, authz.ActRead)).Get("/members", h.ListMembers)
			r.With(authorizer.Authorize(authz.ObjRoomMembership, authz.ActWrite)).Post("/members", h.JoinRoom)
			r.With(authorizer.Authorize(authz.ObjRoomMembership, authz.ActWrite)).Delete("/members/me", h.LeaveRoom)

			r.With(authorizer.Authorize(authz.ObjRoomEvents, authz.ActRead)).Get("/events", h.ListEvents)
			r.With(authorizer.Authorize(authz.ObjRoomEvents, authz.ActRead)).Get("/events/export", h.ExportEvents)

			r.Route("/moderators/{member}", func(r chi.Router) {
				r.Use(authorizer.Authorize(authz.ObjRoomModerators, authz.ActWrite))
				r.Put("/", h.SetModerator)
				r.Delete("/", h.RevokeModerator)
			})

			r.Route("/activity", func(r chi.Router) {
				r.Use(authorizer.Authorize(authz.ObjRoomActivity, authz.ActWrite))
				r.Post("/posts", h.RecordPost)
				r.Post("/views", h.RecordView)
			})

			r.With(authorizer.Authorize(authz.ObjRoomEvaluate, authz.ActWrite)).Post("/evaluate", h.EvaluateRoom)
		})
	})

	return r
}

// rateLimit limits per member ID, falling back to the client IP.
func rateLimit(cfg RouterConfig) func(http.Handler) http.Handler {
	if cfg.RateLimitDisabled || cfg.RateLimitRequests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		cfg.RateLimitRequests,
		cfg.RateLimitWindow,
		httprate.WithKeyFuncs(memberOrIPKey),
		httprate.WithLimitHandler(writeRateLimited),
	)
}

func memberOrIPKey(r *http.Request) (string, error) {
	if id := r.Header.Get(authz.HeaderMemberID); id != "" {
		return "member:" + id, nil
	}
	return httprate.KeyByIP(r)
}

// roomRoleResolver maps engine roles to authz room roles.
type roomRoleResolver struct {
	engine RoomEngine
}

func (rr roomRoleResolver) RoomRoles(ctx context.Context, roomID, memberID string) ([]string, error) {
	role, err := rr.engine.MemberRole(ctx, roomID, memberID)
	if errors.Is(err, engine.ErrRoomNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var roles []string
	if role.Member {
		roles = append(roles, authz.RoleRoomMember)
	}
	if role.Founder {
		roles = append(roles, authz.RoleRoomFounder)
	}
	if role.Moderator {
		roles = append(roles, authz.RoleRoomModerator)
	}
	return roles, nil
}
