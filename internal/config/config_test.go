// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Lifecycle.MinMembersToCreate != 6 || cfg.Lifecycle.MinMembersToActivate != 10 ||
		cfg.Lifecycle.MinMembersToMaintain != 10 || cfg.Lifecycle.MinUniquePosters72h != 4 {
		t.Errorf("threshold defaults = %+v", cfg.Lifecycle)
	}
	if cfg.Scheduler.RoomInterval != time.Hour || cfg.Scheduler.ComplianceInterval != 24*time.Hour {
		t.Errorf("scheduler defaults = %+v", cfg.Scheduler)
	}
	if cfg.Server.Addr() != "0.0.0.0:8470" {
		t.Errorf("Addr() = %q", cfg.Server.Addr())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"activate below floor", func(c *Config) { c.Lifecycle.MinMembersToActivate = 9 }, "MIN_MEMBERS_TO_ACTIVATE"},
		{"create below floor", func(c *Config) { c.Lifecycle.MinMembersToCreate = 5 }, "MIN_MEMBERS_TO_CREATE"},
		{"posters below floor", func(c *Config) { c.Lifecycle.MinUniquePosters72h = 3 }, "MIN_UNIQUE_POSTERS_72H"},
		{"create above activate", func(c *Config) { c.Lifecycle.MinMembersToCreate = 12 }, "must not be below"},
		{"raised thresholds", func(c *Config) {
			c.Lifecycle.MinMembersToCreate = 8
			c.Lifecycle.MinMembersToActivate = 20
		}, ""},
		{"zero room interval", func(c *Config) { c.Scheduler.RoomInterval = 0 }, "room_interval"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "sqlite" }, "backend"},
		{"badger without path", func(c *Config) { c.Storage.Path = "" }, "BADGER_PATH"},
		{"memory in production", func(c *Config) {
			c.Storage.Backend = "memory"
			c.Server.Environment = "production"
		}, "not allowed in production"},
		{"unknown transport", func(c *Config) { c.Notifications.Transport = "kafka" }, "transport"},
		{"nats bad scheme", func(c *Config) {
			c.Notifications.Transport = "nats"
			c.Notifications.NATSURL = "http://nats:4222"
		}, "scheme"},
		{"nats ok", func(c *Config) { c.Notifications.Transport = "nats" }, ""},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "level"},
		{"bad purge url", func(c *Config) { c.Content.PurgeURL = "not a url" }, "purge_url"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadWithKoanf(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agora.yaml")
	yaml := `
server:
  port: 9000
storage:
  backend: memory
lifecycle:
  min_members_to_activate: 12
scheduler:
  evaluation_budget: 5s
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MIN_MEMBERS_TO_ACTIVATE", "15")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000 from file", cfg.Server.Port)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("backend = %q", cfg.Storage.Backend)
	}
	if cfg.Lifecycle.MinMembersToActivate != 15 {
		t.Errorf("activate = %d, env should override file", cfg.Lifecycle.MinMembersToActivate)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
	if cfg.Scheduler.EvaluationBudget != 5*time.Second {
		t.Errorf("budget = %v", cfg.Scheduler.EvaluationBudget)
	}
	if cfg.Scheduler.RoomInterval != time.Hour {
		t.Errorf("room interval default lost: %v", cfg.Scheduler.RoomInterval)
	}
}

func TestLoadWithKoanfRejectsInvalid(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("MIN_UNIQUE_POSTERS_72H", "2")

	if _, err := LoadWithKoanf(); err == nil {
		t.Error("expected validation error for posters below floor")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"HTTP_PORT":        "server.port",
		"nats_url":         "notifications.nats_url",
		"CASBIN_CACHE_TTL": "security.casbin.cache_ttl",
		"PATH":             "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}
