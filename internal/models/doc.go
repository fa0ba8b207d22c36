// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

// Package models defines the persisted domain types shared by the storage,
// ledger, lifecycle and API layers: rooms, thresholds and memberships.
package models
