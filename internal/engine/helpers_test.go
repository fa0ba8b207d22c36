// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package engine

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/agora/internal/audit"
	"github.com/tomtom215/agora/internal/content"
	"github.com/tomtom215/agora/internal/models"
	"github.com/tomtom215/agora/internal/notify"
	"github.com/tomtom215/agora/internal/store"
)

var t0 = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingSink struct {
	mu     sync.Mutex
	notes  []notify.Notification
	grants []notify.GrantRequest
}

func (s *recordingSink) Notify(n notify.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, n)
}

func (s *recordingSink) Grant(g notify.GrantRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants = append(s.grants, g)
}

func (s *recordingSink) notesFor(template string) []notify.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []notify.Notification
	for _, n := range s.notes {
		if n.TemplateKey == template {
			out = append(out, n)
		}
	}
	return out
}

func (s *recordingSink) grantsFor(badge string) []notify.GrantRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []notify.GrantRequest
	for _, g := range s.grants {
		if g.Badge == badge {
			out = append(out, g)
		}
	}
	return out
}

type recordingMirror struct {
	mu     sync.Mutex
	events []audit.Event
}

func (m *recordingMirror) Log(events ...audit.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
}

type harness struct {
	engine   *Engine
	clock    *fakeClock
	sink     *recordingSink
	registry *content.MemoryRegistry
	mirror   *recordingMirror
	store    store.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithPurger(t, nil)
}

func newHarnessWithPurger(t *testing.T, purger content.Purger) *harness {
	t.Helper()

	h := &harness{
		clock:    &fakeClock{now: t0},
		sink:     &recordingSink{},
		registry: content.NewMemoryRegistry(),
		mirror:   &recordingMirror{},
		store:    store.NewMemoryStore(),
	}
	if purger == nil {
		purger = h.registry
	}

	logger := zerolog.New(io.Discard)
	e, err := New(h.store, DefaultConfig(), Deps{
		Purger: purger,
		Sink:   h.sink,
		Audit:  h.mirror,
		Clock:  h.clock.Now,
		Logger: &logger,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.engine = e
	t.Cleanup(func() { _ = h.store.Close() })
	return h
}

func memberIDsN(prefix string, from, n int) []string {
	out := make([]string, 0, n)
	for i := from; i < from+n; i++ {
		out = append(out, fmt.Sprintf("%s%02d", prefix, i))
	}
	return out
}

// createRoom founds a room with m00 as creator and m01..m(n-1) as co-founders.
func (h *harness) createRoom(t *testing.T, name string, n int) *models.Room {
	t.Helper()
	members := memberIDsN("m", 0, n)
	room, err := h.engine.CreateRoom(context.Background(), CreateRoomRequest{
		Name:      name,
		CreatorID: members[0],
		Founders:  members[1:],
	})
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	return room
}

// join adds members m<from>..m<from+n-1>.
func (h *harness) join(t *testing.T, roomID string, from, n int) *models.Room {
	t.Helper()
	var room *models.Room
	for _, id := range memberIDsN("m", from, n) {
		var err error
		room, err = h.engine.JoinRoom(context.Background(), roomID, id)
		if err != nil {
			t.Fatalf("JoinRoom(%s): %v", id, err)
		}
	}
	return room
}

// activeRoom creates a room and fills it to n members, activating it at t0.
// Founders m00..m03 post first so joins past the tenth do not lock it.
func (h *harness) activeRoom(t *testing.T, name string, n int) *models.Room {
	t.Helper()
	room := h.createRoom(t, name, 6)
	for _, id := range memberIDsN("m", 0, 4) {
		h.post(t, room.ID, id, time.Time{})
	}
	room = h.join(t, room.ID, 6, n-6)
	if room.State != models.RoomStateActive {
		t.Fatalf("room state = %s, want active", room.State)
	}
	return room
}

func (h *harness) post(t *testing.T, roomID, memberID string, at time.Time) {
	t.Helper()
	if _, err := h.engine.RecordPost(context.Background(), roomID, memberID, "", at); err != nil {
		t.Fatalf("RecordPost(%s): %v", memberID, err)
	}
}

func (h *harness) events(t *testing.T, roomID string) []audit.Event {
	t.Helper()
	events, err := h.engine.ListEventsForRoom(context.Background(), roomID, audit.QueryFilter{Limit: MaxEventLimit})
	if err != nil {
		t.Fatalf("ListEventsForRoom: %v", err)
	}
	return events
}

func countEvents(events []audit.Event, typ audit.EventType) int {
	n := 0
	for _, e := range events {
		if e.Type == typ {
			n++
		}
	}
	return n
}
