// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Storage       StorageConfig       `koanf:"storage"`
	Lifecycle     LifecycleConfig     `koanf:"lifecycle"`
	Scheduler     SchedulerConfig     `koanf:"scheduler"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Content       ContentConfig       `koanf:"content"`
	Security      SecurityConfig      `koanf:"security"`
	Logging       LoggingConfig       `koanf:"logging"`
	Audit         AuditConfig         `koanf:"audit"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	Environment     string        `koanf:"environment" validate:"oneof=development production test"`
}

// StorageConfig selects and tunes the room store.
type StorageConfig struct {
	// Backend is "badger" or "memory". The memory store loses all rooms on restart.
	Backend    string `koanf:"backend" validate:"oneof=badger memory"`
	Path       string `koanf:"path"`
	SyncWrites bool   `koanf:"sync_writes"`

	// MaxRetries bounds transaction retries on write conflicts.
	MaxRetries int `koanf:"max_retries" validate:"min=0,max=20"`

	GCInterval        time.Duration `koanf:"gc_interval" validate:"gt=0"`
	GCRatio           float64       `koanf:"gc_ratio" validate:"gt=0,lt=1"`
	SequenceBandwidth uint64        `koanf:"sequence_bandwidth" validate:"min=1"`
}

// LifecycleConfig holds room thresholds and lifecycle timings.
type LifecycleConfig struct {
	MinMembersToCreate   int `koanf:"min_members_to_create"`
	MinMembersToActivate int `koanf:"min_members_to_activate"`
	MinMembersToMaintain int `koanf:"min_members_to_maintain"`
	MinUniquePosters72h  int `koanf:"min_unique_posters_72h"`

	ActivationGrace time.Duration `koanf:"activation_grace" validate:"min=0"`
	PendingExpiry   time.Duration `koanf:"pending_expiry" validate:"min=0"`
	MaxDeferral     time.Duration `koanf:"max_deferral" validate:"min=0"`

	BurstPosts      int           `koanf:"burst_posts" validate:"min=0"`
	BurstWindow     time.Duration `koanf:"burst_window" validate:"min=0"`
	PostRequirement time.Duration `koanf:"post_requirement" validate:"gt=0"`
	ViewRequirement time.Duration `koanf:"view_requirement" validate:"gt=0"`

	// BadgeTTL sets an expiry on granted badges; 0 means none.
	BadgeTTL time.Duration `koanf:"badge_ttl" validate:"min=0"`
}

// SchedulerConfig holds the periodic pass settings.
type SchedulerConfig struct {
	Enabled            bool          `koanf:"enabled"`
	RoomInterval       time.Duration `koanf:"room_interval" validate:"gt=0"`
	ComplianceInterval time.Duration `koanf:"compliance_interval" validate:"gt=0"`
	EvaluationBudget   time.Duration `koanf:"evaluation_budget" validate:"gt=0"`
	Concurrency        int           `koanf:"concurrency" validate:"min=1,max=64"`
	PageSize           int           `koanf:"page_size" validate:"min=1,max=200"`
}

// NotificationsConfig holds notification and badge delivery settings.
type NotificationsConfig struct {
	// Transport is "channel" (in-process) or "nats".
	Transport     string        `koanf:"transport" validate:"oneof=channel nats"`
	NATSURL       string        `koanf:"nats_url"`
	JetStream     bool          `koanf:"jetstream"`
	AutoProvision bool          `koanf:"auto_provision"`
	MaxReconnects int           `koanf:"max_reconnects" validate:"min=-1"`
	ReconnectWait time.Duration `koanf:"reconnect_wait" validate:"min=0"`
	ChannelBuffer int64         `koanf:"channel_buffer" validate:"min=0"`

	QueueSize         int           `koanf:"queue_size" validate:"min=1"`
	NotificationTopic string        `koanf:"notification_topic" validate:"required"`
	BadgeTopic        string        `koanf:"badge_topic" validate:"required"`
	DrainTimeout      time.Duration `koanf:"drain_timeout" validate:"gt=0"`

	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold" validate:"min=1"`
	BreakerTimeout          time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
}

// ContentConfig configures the content purge client. An empty PurgeURL
// uses the in-process registry.
type ContentConfig struct {
	PurgeURL string        `koanf:"purge_url" validate:"omitempty,url"`
	Token    string        `koanf:"token"`
	Timeout  time.Duration `koanf:"timeout" validate:"gt=0"`

	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold" validate:"min=1"`
	BreakerTimeout          time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
}

// SecurityConfig holds rate limiting and authorization settings.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	Casbin CasbinConfig `koanf:"casbin"`
}

// CasbinConfig holds authorization policy settings.
type CasbinConfig struct {
	PolicyPath     string        `koanf:"policy_path"`
	DefaultRole    string        `koanf:"default_role"`
	AutoReload     bool          `koanf:"auto_reload"`
	ReloadInterval time.Duration `koanf:"reload_interval" validate:"min=0"`
	CacheEnabled   bool          `koanf:"cache_enabled"`
	CacheTTL       time.Duration `koanf:"cache_ttl" validate:"min=0"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// AuditConfig holds the audit mirror settings.
type AuditConfig struct {
	Enabled    bool   `koanf:"enabled"`
	LogLevel   string `koanf:"log_level" validate:"oneof=debug info warning error critical"`
	BufferSize int    `koanf:"buffer_size" validate:"min=1"`
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return joinHostPort(s.Host, s.Port)
}
