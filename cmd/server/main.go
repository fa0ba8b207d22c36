// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/agora/internal/api"
	"github.com/tomtom215/agora/internal/config"
	"github.com/tomtom215/agora/internal/logging"
	"github.com/tomtom215/agora/internal/supervisor"
	"github.com/tomtom215/agora/internal/supervisor/services"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
		Output: os.Stderr,
	})
	watchLogLevel()

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("storage", cfg.Storage.Backend).
		Str("transport", cfg.Notifications.Transport).
		Bool("scheduler", cfg.Scheduler.Enabled).
		Msg("Starting Agora with supervisor tree")

	st, gc, err := openStore(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open room store")
	}

	auditLogger := newAuditLogger(cfg)

	dispatcher, err := newDispatcher(cfg)
	if err != nil {
		closeQuietly("room store", st.Close)
		logging.Fatal().Err(err).Msg("Failed to initialize notification transport")
	}

	purger, err := newPurger(cfg)
	if err != nil {
		closeQuietly("notification publisher", dispatcher.Close)
		closeQuietly("room store", st.Close)
		logging.Fatal().Err(err).Msg("Failed to initialize content purger")
	}

	eng, err := newEngine(cfg, st, purger, dispatcher, auditLogger)
	if err != nil {
		closeQuietly("notification publisher", dispatcher.Close)
		closeQuietly("room store", st.Close)
		logging.Fatal().Err(err).Msg("Failed to create room engine")
	}

	enforcer, err := newEnforcer(cfg)
	if err != nil {
		closeQuietly("notification publisher", dispatcher.Close)
		closeQuietly("room store", st.Close)
		logging.Fatal().Err(err).Msg("Failed to initialize authorization")
	}

	handler := api.NewHandler(eng, map[string]api.ReadinessCheck{
		"store": storeCheck(st),
	})
	server := newHTTPServer(cfg, api.NewRouter(handler, enforcer, api.RouterConfig{
		RateLimitRequests: cfg.Security.RateLimitReqs,
		RateLimitWindow:   cfg.Security.RateLimitWindow,
		RateLimitDisabled: cfg.Security.RateLimitDisabled,
	}))

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// Storage layer
	if gc != nil {
		tree.AddStorageService(services.NewBadgerGCService(gc, cfg.Storage.GCInterval, logging.WithComponent("badger-gc")))
		logging.Info().Dur("interval", cfg.Storage.GCInterval).Msg("BadgerDB GC service added")
	}

	// Lifecycle layer
	tree.AddLifecycleService(services.NewDispatcherService(dispatcher))
	if cfg.Scheduler.Enabled {
		sched := newScheduler(cfg, eng)
		tree.AddLifecycleService(services.NewSchedulerService(sched.RoomLoop()))
		tree.AddLifecycleService(services.NewSchedulerService(sched.ComplianceLoop()))
		logging.Info().
			Dur("room_interval", cfg.Scheduler.RoomInterval).
			Dur("compliance_interval", cfg.Scheduler.ComplianceInterval).
			Msg("Scheduler services added")
	} else {
		logging.Info().Msg("Scheduler disabled (SCHEDULER_ENABLED=false)")
	}

	// API layer
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// The channel delivers exactly one value when the tree returns.
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish...")
		err = <-errCh
	case err = <-errCh:
		stop()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	// Services are stopped; release what they were using.
	enforcer.Close()
	closeQuietly("notification publisher", dispatcher.Close)
	closeQuietly("audit mirror", auditLogger.Close)
	closeQuietly("room store", st.Close)

	logging.Info().Msg("Application stopped gracefully")
}

func closeQuietly(what string, fn func() error) {
	if err := fn(); err != nil {
		logging.Error().Err(err).Str("resource", what).Msg("Error during close")
	}
}
