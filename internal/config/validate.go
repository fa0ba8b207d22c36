// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package config

import (
	"fmt"
	"net/url"

	"github.com/tomtom215/agora/internal/models"
	"github.com/tomtom215/agora/internal/validation"
)

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}
	if err := c.validateLifecycle(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validateLifecycle() error {
	l := c.Lifecycle
	floors := []struct {
		name       string
		value, min int
	}{
		{"MIN_MEMBERS_TO_CREATE", l.MinMembersToCreate, models.FloorMembersToCreate},
		{"MIN_MEMBERS_TO_ACTIVATE", l.MinMembersToActivate, models.FloorMembersToActivate},
		{"MIN_MEMBERS_TO_MAINTAIN", l.MinMembersToMaintain, models.FloorMembersToMaintain},
		{"MIN_UNIQUE_POSTERS_72H", l.MinUniquePosters72h, models.FloorUniquePosters72h},
	}
	for _, f := range floors {
		if f.value < f.min {
			return fmt.Errorf("%s must be at least %d, got %d", f.name, f.min, f.value)
		}
	}
	if l.MinMembersToActivate < l.MinMembersToCreate {
		return fmt.Errorf("MIN_MEMBERS_TO_ACTIVATE (%d) must not be below MIN_MEMBERS_TO_CREATE (%d)",
			l.MinMembersToActivate, l.MinMembersToCreate)
	}
	if l.BurstPosts > 0 && l.BurstWindow <= 0 {
		return fmt.Errorf("BURST_WINDOW must be positive when BURST_POSTS is set")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.Storage.Backend == "badger" && c.Storage.Path == "" {
		return fmt.Errorf("BADGER_PATH is required when STORAGE_BACKEND=badger")
	}
	if c.Storage.Backend == "memory" && c.Server.Environment == "production" {
		return fmt.Errorf("STORAGE_BACKEND=memory is not allowed in production")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	n := c.Notifications
	if n.Transport != "nats" {
		return nil
	}
	if n.NATSURL == "" {
		return fmt.Errorf("NATS_URL is required when NOTIFY_TRANSPORT=nats")
	}
	u, err := url.Parse(n.NATSURL)
	if err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	switch u.Scheme {
	case "nats", "tls", "ws", "wss":
	default:
		return fmt.Errorf("NATS_URL scheme must be nats, tls, ws or wss, got %q", u.Scheme)
	}
	return nil
}
