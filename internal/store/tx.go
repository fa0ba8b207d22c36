// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package store

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/agora/internal/audit"
	"github.com/tomtom215/agora/internal/models"
)

// kv is the raw key-value surface a backend provides for one transaction.
type kv interface {
	get(key string) ([]byte, error)
	set(key string, value []byte) error
	delete(key string) error

	// scan visits keys under prefix in ascending order, beginning at the
	// first key >= start, until fn returns false.
	scan(prefix, start string, fn func(key string, value []byte) (bool, error)) error

	// nextSequence returns the next event sequence number.
	nextSequence() (uint64, error)
}

// txn implements Tx over a backend kv.
type txn struct {
	kv kv
}

var _ Tx = (*txn)(nil)

func (t *txn) getJSON(key string, v interface{}) error {
	data, err := t.kv.get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (t *txn) setJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return t.kv.set(key, data)
}

// GetRoom returns the room with the given ID, deleted rooms included.
func (t *txn) GetRoom(id string) (*models.Room, error) {
	var room models.Room
	if err := t.getJSON(roomKey(id), &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// RoomIDByName resolves a non-deleted room by case-insensitive name.
func (t *txn) RoomIDByName(name string) (string, error) {
	data, err := t.kv.get(roomNameKey(name))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// PutRoom writes the room and keeps the name and live indexes in step with
// its state. Deleted rooms release their name and leave the live index.
func (t *txn) PutRoom(room *models.Room) error {
	if room.ID == "" {
		return fmt.Errorf("put room: empty id")
	}
	if err := t.setJSON(roomKey(room.ID), room); err != nil {
		return err
	}

	if room.State == models.RoomStateDeleted {
		if err := t.kv.delete(liveKey(room.ID)); err != nil {
			return err
		}
		owner, err := t.RoomIDByName(room.Name)
		switch {
		case errors.Is(err, ErrNotFound):
			return nil
		case err != nil:
			return err
		case owner == room.ID:
			return t.kv.delete(roomNameKey(room.Name))
		}
		return nil
	}

	if err := t.kv.set(liveKey(room.ID), nil); err != nil {
		return err
	}
	return t.kv.set(roomNameKey(room.Name), []byte(room.ID))
}

// ListLiveRooms pages through non-deleted rooms in ID order, starting after
// the given cursor. A limit <= 0 returns every remaining room.
func (t *txn) ListLiveRooms(after string, limit int) ([]*models.Room, error) {
	start := prefixLive
	if after != "" {
		start = liveKey(after) + "\x00"
	}

	var ids []string
	err := t.kv.scan(prefixLive, start, func(key string, _ []byte) (bool, error) {
		ids = append(ids, key[len(prefixLive):])
		return limit <= 0 || len(ids) < limit, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan live rooms: %w", err)
	}

	rooms := make([]*models.Room, 0, len(ids))
	for _, id := range ids {
		room, err := t.GetRoom(id)
		if err != nil {
			return nil, fmt.Errorf("load room %s: %w", id, err)
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// GetMembership returns the membership record for (roomID, memberID),
// including ended memberships.
func (t *txn) GetMembership(roomID, memberID string) (*models.Membership, error) {
	var m models.Membership
	if err := t.getJSON(memberKey(roomID, memberID), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// PutMembership writes a membership record.
func (t *txn) PutMembership(m *models.Membership) error {
	if m.RoomID == "" || m.MemberID == "" {
		return fmt.Errorf("put membership: empty key")
	}
	return t.setJSON(memberKey(m.RoomID, m.MemberID), m)
}

// ListMemberships returns every membership record of a room, active or not,
// ordered by member ID.
func (t *txn) ListMemberships(roomID string) ([]*models.Membership, error) {
	var out []*models.Membership
	err := t.kv.scan(memberPrefix(roomID), memberPrefix(roomID), func(key string, value []byte) (bool, error) {
		var m models.Membership
		if err := json.Unmarshal(value, &m); err != nil {
			return false, fmt.Errorf("decode %s: %w", key, err)
		}
		out = append(out, &m)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PutPostBucket records a post by memberID in the day bucket containing at.
// The bucket keeps the latest post of that member in that day.
func (t *txn) PutPostBucket(roomID, memberID string, at time.Time) error {
	key := activityKey(roomID, memberID, at)
	existing, err := t.kv.get(key)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return err
	default:
		if prev, perr := strconv.ParseInt(string(existing), 10, 64); perr == nil && prev >= at.UnixNano() {
			return nil
		}
	}
	return t.kv.set(key, []byte(strconv.FormatInt(at.UnixNano(), 10)))
}

// PostersSince returns each member's latest post at or after since.
func (t *txn) PostersSince(roomID string, since time.Time) (map[string]time.Time, error) {
	posters := make(map[string]time.Time)
	sinceNanos := since.UnixNano()

	err := t.kv.scan(activityPrefix(roomID), activityDayPrefix(roomID, since), func(key string, value []byte) (bool, error) {
		_, member, ok := splitActivityKey(roomID, key)
		if !ok {
			return true, nil
		}
		nanos, err := strconv.ParseInt(string(value), 10, 64)
		if err != nil {
			return false, fmt.Errorf("decode %s: %w", key, err)
		}
		if nanos < sinceNanos {
			return true, nil
		}
		at := time.Unix(0, nanos).UTC()
		if prev, seen := posters[member]; !seen || at.After(prev) {
			posters[member] = at
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return posters, nil
}

// PrunePostBuckets deletes day buckets strictly older than the day containing before.
func (t *txn) PrunePostBuckets(roomID string, before time.Time) (int, error) {
	cutoff := dayBucket(before)

	var stale []string
	err := t.kv.scan(activityPrefix(roomID), activityPrefix(roomID), func(key string, _ []byte) (bool, error) {
		day, _, ok := splitActivityKey(roomID, key)
		if !ok || day >= cutoff {
			return false, nil
		}
		stale = append(stale, key)
		return true, nil
	})
	if err != nil {
		return 0, err
	}

	for _, key := range stale {
		if err := t.kv.delete(key); err != nil {
			return 0, err
		}
	}
	return len(stale), nil
}

// GetBurst returns the recent post timestamps kept for burst detection.
func (t *txn) GetBurst(roomID string) ([]time.Time, error) {
	var posts []time.Time
	err := t.getJSON(burstKey(roomID), &posts)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return posts, err
}

// PutBurst replaces the recent post timestamps of a room.
func (t *txn) PutBurst(roomID string, posts []time.Time) error {
	return t.setJSON(burstKey(roomID), posts)
}

// AppendEvent assigns the next sequence number and ID (when empty) and
// writes the event.
func (t *txn) AppendEvent(event *audit.Event) error {
	if event.RoomID == "" {
		return fmt.Errorf("append event: empty room id")
	}
	seq, err := t.kv.nextSequence()
	if err != nil {
		return fmt.Errorf("allocate event sequence: %w", err)
	}
	event.Sequence = seq
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	return t.setJSON(eventKey(event.RoomID, seq), event)
}

// ListEvents returns a room's events in insertion order, filtered.
func (t *txn) ListEvents(roomID string, filter audit.QueryFilter) ([]audit.Event, error) {
	var events []audit.Event
	start := eventKey(roomID, filter.AfterSequence+1)

	err := t.kv.scan(eventPrefix(roomID), start, func(key string, value []byte) (bool, error) {
		var event audit.Event
		if err := json.Unmarshal(value, &event); err != nil {
			return false, fmt.Errorf("decode %s: %w", key, err)
		}
		if filter.Matches(&event) {
			events = append(events, event)
		}
		return filter.Limit <= 0 || len(events) < filter.Limit, nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}
