// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package store

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/agora/internal/audit"
	"github.com/tomtom215/agora/internal/models"
)

// Errors
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a transaction could not commit after retries.
	ErrConflict = errors.New("transaction conflict")

	// ErrClosed is returned when the store has been closed.
	ErrClosed = errors.New("store is closed")
)

// Store is a transactional room store.
type Store interface {
	// Update runs fn in a read-write transaction. The transaction commits when
	// fn returns nil and is discarded otherwise. fn may run more than once
	// when the backend retries a conflicting transaction, so it must not
	// keep state outside the transaction between attempts.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// View runs fn in a read-only snapshot.
	View(ctx context.Context, fn func(tx Tx) error) error

	// Close releases the store's resources.
	Close() error
}

// Tx is the typed view of one transaction over the shared key layout.
type Tx interface {
	GetRoom(id string) (*models.Room, error)
	RoomIDByName(name string) (string, error)
	PutRoom(room *models.Room) error
	ListLiveRooms(after string, limit int) ([]*models.Room, error)

	GetMembership(roomID, memberID string) (*models.Membership, error)
	PutMembership(m *models.Membership) error
	ListMemberships(roomID string) ([]*models.Membership, error)

	PutPostBucket(roomID, memberID string, at time.Time) error
	PostersSince(roomID string, since time.Time) (map[string]time.Time, error)
	PrunePostBuckets(roomID string, before time.Time) (int, error)
	GetBurst(roomID string) ([]time.Time, error)
	PutBurst(roomID string, posts []time.Time) error

	AppendEvent(event *audit.Event) error
	ListEvents(roomID string, filter audit.QueryFilter) ([]audit.Event, error)
}

var errReadOnly = errors.New("write in read-only transaction")
