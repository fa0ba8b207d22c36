// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/agora/internal/models"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/agora/config.yaml",
	"/etc/agora/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8470,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Storage: StorageConfig{
			Backend:           "badger",
			Path:              "/data/agora",
			MaxRetries:        3,
			GCInterval:        10 * time.Minute,
			GCRatio:           0.5,
			SequenceBandwidth: 100,
		},
		Lifecycle: LifecycleConfig{
			MinMembersToCreate:   models.FloorMembersToCreate,
			MinMembersToActivate: models.FloorMembersToActivate,
			MinMembersToMaintain: models.FloorMembersToMaintain,
			MinUniquePosters72h:  models.FloorUniquePosters72h,
			ActivationGrace:      0,
			PendingExpiry:        30 * 24 * time.Hour,
			MaxDeferral:          2 * time.Hour,
			BurstPosts:           5,
			BurstWindow:          10 * time.Minute,
			PostRequirement:      14 * 24 * time.Hour,
			ViewRequirement:      7 * 24 * time.Hour,
		},
		Scheduler: SchedulerConfig{
			Enabled:            true,
			RoomInterval:       time.Hour,
			ComplianceInterval: 24 * time.Hour,
			EvaluationBudget:   30 * time.Second,
			Concurrency:        4,
			PageSize:           100,
		},
		Notifications: NotificationsConfig{
			Transport:               "channel",
			NATSURL:                 "nats://127.0.0.1:4222",
			JetStream:               true,
			AutoProvision:           true,
			MaxReconnects:           -1,
			ReconnectWait:           2 * time.Second,
			ChannelBuffer:           256,
			QueueSize:               1024,
			NotificationTopic:       "agora.notifications",
			BadgeTopic:              "agora.badges",
			DrainTimeout:            5 * time.Second,
			BreakerFailureThreshold: 5,
			BreakerTimeout:          30 * time.Second,
		},
		Content: ContentConfig{
			Timeout:                 10 * time.Second,
			BreakerFailureThreshold: 5,
			BreakerTimeout:          30 * time.Second,
		},
		Security: SecurityConfig{
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			Casbin: CasbinConfig{
				DefaultRole:    "member",
				ReloadInterval: 30 * time.Second,
				CacheEnabled:   true,
				CacheTTL:       5 * time.Minute,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Audit: AuditConfig{
			Enabled:    true,
			LogLevel:   "info",
			BufferSize: 1000,
		},
	}
}

// LoadWithKoanf loads configuration from struct defaults, then the config
// file, then mapped environment variables, and validates the result.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var envMappings = map[string]string{
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"environment":           "server.environment",

	"storage_backend":      "storage.backend",
	"badger_path":          "storage.path",
	"badger_sync_writes":   "storage.sync_writes",
	"badger_max_retries":   "storage.max_retries",
	"badger_gc_interval":   "storage.gc_interval",
	"badger_gc_ratio":      "storage.gc_ratio",
	"badger_seq_bandwidth": "storage.sequence_bandwidth",

	"min_members_to_create":   "lifecycle.min_members_to_create",
	"min_members_to_activate": "lifecycle.min_members_to_activate",
	"min_members_to_maintain": "lifecycle.min_members_to_maintain",
	"min_unique_posters_72h":  "lifecycle.min_unique_posters_72h",
	"activation_grace":        "lifecycle.activation_grace",
	"pending_expiry":          "lifecycle.pending_expiry",
	"max_deferral":            "lifecycle.max_deferral",
	"burst_posts":             "lifecycle.burst_posts",
	"burst_window":            "lifecycle.burst_window",
	"post_requirement":        "lifecycle.post_requirement",
	"view_requirement":        "lifecycle.view_requirement",
	"badge_ttl":               "lifecycle.badge_ttl",

	"scheduler_enabled":        "scheduler.enabled",
	"room_pass_interval":       "scheduler.room_interval",
	"compliance_pass_interval": "scheduler.compliance_interval",
	"evaluation_budget":        "scheduler.evaluation_budget",
	"scheduler_concurrency":    "scheduler.concurrency",
	"scheduler_page_size":      "scheduler.page_size",

	"notify_transport":        "notifications.transport",
	"nats_url":                "notifications.nats_url",
	"nats_jetstream":          "notifications.jetstream",
	"nats_auto_provision":     "notifications.auto_provision",
	"nats_max_reconnects":     "notifications.max_reconnects",
	"nats_reconnect_wait":     "notifications.reconnect_wait",
	"notify_channel_buffer":   "notifications.channel_buffer",
	"notify_queue_size":       "notifications.queue_size",
	"notify_topic":            "notifications.notification_topic",
	"badge_topic":             "notifications.badge_topic",
	"notify_drain_timeout":    "notifications.drain_timeout",
	"notify_breaker_failures": "notifications.breaker_failure_threshold",
	"notify_breaker_timeout":  "notifications.breaker_timeout",

	"content_purge_url":        "content.purge_url",
	"content_token":            "content.token",
	"content_timeout":          "content.timeout",
	"content_breaker_failures": "content.breaker_failure_threshold",
	"content_breaker_timeout":  "content.breaker_timeout",

	"rate_limit_requests":    "security.rate_limit_reqs",
	"rate_limit_window":      "security.rate_limit_window",
	"disable_rate_limit":     "security.rate_limit_disabled",
	"casbin_policy_path":     "security.casbin.policy_path",
	"casbin_default_role":    "security.casbin.default_role",
	"casbin_auto_reload":     "security.casbin.auto_reload",
	"casbin_reload_interval": "security.casbin.reload_interval",
	"casbin_cache_enabled":   "security.casbin.cache_enabled",
	"casbin_cache_ttl":       "security.casbin.cache_ttl",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"audit_enabled":     "audit.enabled",
	"audit_log_level":   "audit.log_level",
	"audit_buffer_size": "audit.buffer_size",
}

// envTransformFunc maps environment variable names to config keys.
// Unmapped variables are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// WatchConfigFile calls callback whenever the file at path changes.
func WatchConfigFile(path string, callback func()) error {
	return file.Provider(path).Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
