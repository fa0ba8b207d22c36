// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/tomtom215/agora/internal/activity"
	"github.com/tomtom215/agora/internal/api"
	"github.com/tomtom215/agora/internal/audit"
	"github.com/tomtom215/agora/internal/authz"
	"github.com/tomtom215/agora/internal/breaker"
	"github.com/tomtom215/agora/internal/config"
	"github.com/tomtom215/agora/internal/content"
	"github.com/tomtom215/agora/internal/engine"
	"github.com/tomtom215/agora/internal/lifecycle"
	"github.com/tomtom215/agora/internal/logging"
	"github.com/tomtom215/agora/internal/models"
	"github.com/tomtom215/agora/internal/notify"
	"github.com/tomtom215/agora/internal/scheduler"
	"github.com/tomtom215/agora/internal/store"
	"github.com/tomtom215/agora/internal/supervisor/services"
)

// openStore opens the configured room store. The garbage collector is nil
// for the memory backend.
func openStore(cfg *config.Config) (store.Store, services.GarbageCollector, error) {
	switch cfg.Storage.Backend {
	case "memory":
		logging.Warn().Msg("Using in-memory room store; state is lost on restart")
		return store.NewMemoryStore(), nil, nil
	default:
		bs, err := store.OpenBadger(store.BadgerConfig{
			Path:              cfg.Storage.Path,
			SyncWrites:        cfg.Storage.SyncWrites,
			MaxRetries:        cfg.Storage.MaxRetries,
			GCRatio:           cfg.Storage.GCRatio,
			SequenceBandwidth: cfg.Storage.SequenceBandwidth,
		})
		if err != nil {
			return nil, nil, err
		}
		return bs, bs, nil
	}
}

func newAuditLogger(cfg *config.Config) *audit.Logger {
	return audit.NewLogger(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		LogLevel:   audit.Severity(cfg.Audit.LogLevel),
		BufferSize: cfg.Audit.BufferSize,
	}, logging.Logger())
}

func newDispatcher(cfg *config.Config) (*notify.Dispatcher, error) {
	n := cfg.Notifications

	publisher, err := notify.NewPublisher(notify.TransportConfig{
		Transport:     n.Transport,
		NATSURL:       n.NATSURL,
		JetStream:     n.JetStream,
		AutoProvision: n.AutoProvision,
		MaxReconnects: n.MaxReconnects,
		ReconnectWait: n.ReconnectWait,
		ChannelBuffer: n.ChannelBuffer,
	}, logging.NewWatermillAdapter(logging.WithComponent("watermill")))
	if err != nil {
		return nil, fmt.Errorf("create %s publisher: %w", n.Transport, err)
	}

	cb := breaker.DefaultConfig("notifications")
	cb.FailureThreshold = n.BreakerFailureThreshold
	cb.Timeout = n.BreakerTimeout

	logging.Info().
		Str("transport", n.Transport).
		Str("notification_topic", n.NotificationTopic).
		Str("badge_topic", n.BadgeTopic).
		Msg("Notification transport initialized")

	return notify.NewDispatcher(publisher, notify.DispatcherConfig{
		QueueSize:         n.QueueSize,
		NotificationTopic: n.NotificationTopic,
		BadgeTopic:        n.BadgeTopic,
		DrainTimeout:      n.DrainTimeout,
		Breaker:           cb,
	}, logging.Logger()), nil
}

// newPurger returns the HTTP purger when a content service is configured,
// otherwise the in-process registry.
func newPurger(cfg *config.Config) (content.Purger, error) {
	c := cfg.Content
	if c.PurgeURL == "" {
		logging.Warn().Msg("No content service configured (CONTENT_PURGE_URL); purging the in-process registry only")
		return content.NewMemoryRegistry(), nil
	}

	cb := breaker.DefaultConfig("content-purge")
	cb.FailureThreshold = c.BreakerFailureThreshold
	cb.Timeout = c.BreakerTimeout

	return content.NewHTTPPurger(content.HTTPConfig{
		BaseURL: c.PurgeURL,
		Token:   c.Token,
		Timeout: c.Timeout,
		Breaker: cb,
	})
}

func newEngine(cfg *config.Config, st store.Store, purger content.Purger, sink notify.Sink, mirror engine.EventMirror) (*engine.Engine, error) {
	l := cfg.Lifecycle
	engineCfg := engine.DefaultConfig()
	engineCfg.Lifecycle = lifecycle.Config{
		ActivationGrace: l.ActivationGrace,
		PendingExpiry:   l.PendingExpiry,
		MaxDeferral:     l.MaxDeferral,
	}
	engineCfg.Activity = activity.Config{
		PosterWindow:    activity.DefaultConfig().PosterWindow,
		BurstPosts:      l.BurstPosts,
		BurstWindow:     l.BurstWindow,
		PostRequirement: l.PostRequirement,
		ViewRequirement: l.ViewRequirement,
	}
	engineCfg.DefaultThresholds = models.Thresholds{
		MinMembersToCreate:   l.MinMembersToCreate,
		MinMembersToActivate: l.MinMembersToActivate,
		MinMembersToMaintain: l.MinMembersToMaintain,
		MinUniquePosters72h:  l.MinUniquePosters72h,
	}
	engineCfg.BadgeTTL = l.BadgeTTL

	return engine.New(st, engineCfg, engine.Deps{
		Purger: purger,
		Sink:   sink,
		Audit:  mirror,
	})
}

func newScheduler(cfg *config.Config, eng *engine.Engine) *scheduler.Scheduler {
	s := cfg.Scheduler
	return scheduler.New(eng, scheduler.Config{
		Enabled:            s.Enabled,
		RoomInterval:       s.RoomInterval,
		ComplianceInterval: s.ComplianceInterval,
		EvaluationBudget:   s.EvaluationBudget,
		Concurrency:        s.Concurrency,
		PageSize:           s.PageSize,
	})
}

// newEnforcer builds the Casbin enforcer. A policy file without periodic
// reload is reloaded when the file changes.
func newEnforcer(cfg *config.Config) (*authz.Enforcer, error) {
	c := cfg.Security.Casbin
	enforcer, err := authz.NewEnforcer(authz.EnforcerConfig{
		PolicyPath:     c.PolicyPath,
		AutoReload:     c.AutoReload,
		ReloadInterval: c.ReloadInterval,
		DefaultRole:    c.DefaultRole,
		CacheEnabled:   c.CacheEnabled,
		CacheTTL:       c.CacheTTL,
	})
	if err != nil {
		return nil, err
	}

	if c.PolicyPath != "" && !c.AutoReload {
		err := config.WatchConfigFile(c.PolicyPath, func() {
			if err := enforcer.LoadPolicy(); err != nil {
				logging.Error().Err(err).Str("path", c.PolicyPath).Msg("Failed to reload authorization policy")
				return
			}
			logging.Info().Str("path", c.PolicyPath).Msg("Authorization policy reloaded")
		})
		if err != nil {
			logging.Warn().Err(err).Str("path", c.PolicyPath).Msg("Cannot watch authorization policy file")
		}
	}
	return enforcer, nil
}

// watchLogLevel re-applies the log level when the file named by CONFIG_PATH
// changes. Other settings need a restart.
func watchLogLevel() {
	path := os.Getenv(config.ConfigPathEnvVar)
	if path == "" {
		return
	}
	err := config.WatchConfigFile(path, func() {
		cfg, err := config.LoadWithKoanf()
		if err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("Ignoring invalid configuration change")
			return
		}
		logging.SetLevelString(cfg.Logging.Level)
		logging.Info().Str("level", cfg.Logging.Level).Msg("Log level reloaded")
	})
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("Cannot watch configuration file")
	}
}

// storeCheck reports the store ready when a read transaction opens.
func storeCheck(st store.Store) api.ReadinessCheck {
	return func(ctx context.Context) error {
		return st.View(ctx, func(store.Tx) error { return nil })
	}
}

func newHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       2 * cfg.Server.WriteTimeout,
	}
}
