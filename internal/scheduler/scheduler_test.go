// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/agora/internal/audit"
	"github.com/tomtom215/agora/internal/engine"
	"github.com/tomtom215/agora/internal/metrics"
	"github.com/tomtom215/agora/internal/models"
	"github.com/tomtom215/agora/internal/store"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.PageSize = 2
	cfg.EvaluationBudget = time.Second
	return cfg
}

func newEngine(t *testing.T) (*engine.Engine, *clock) {
	t.Helper()
	c := &clock{now: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)}
	st := store.NewMemoryStore()
	t.Cleanup(func() { _ = st.Close() })
	eng, err := engine.New(st, engine.DefaultConfig(), engine.Deps{Clock: c.Now})
	if err != nil {
		t.Fatal(err)
	}
	return eng, c
}

func createActiveRoom(t *testing.T, eng *engine.Engine, name string) string {
	t.Helper()
	ctx := context.Background()
	ids := make([]string, 10)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s-%d", name, i)
	}
	room, err := eng.CreateRoom(ctx, engine.CreateRoomRequest{Name: name, CreatorID: ids[0], Founders: ids[1:6]})
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range ids[6:] {
		if room, err = eng.JoinRoom(ctx, room.ID, id); err != nil {
			t.Fatal(err)
		}
	}
	if room.State != models.RoomStateActive {
		t.Fatalf("room %s is %s", name, room.State)
	}
	return room.ID
}

func TestRunRoomPassLocksQuietRooms(t *testing.T) {
	ctx := context.Background()
	eng, c := newEngine(t)

	var rooms []string
	for _, name := range []string{"alpha", "beta", "gamma"} {
		rooms = append(rooms, createActiveRoom(t, eng, name))
	}
	for i := 0; i < 4; i++ {
		if _, err := eng.RecordPost(ctx, rooms[0], fmt.Sprintf("alpha-%d", i), "", time.Time{}); err != nil {
			t.Fatal(err)
		}
	}
	c.Advance(73 * time.Hour)

	s := New(eng, testConfig())

	// Posts at t0 fell out of the 72-hour window, so every room locks.
	result, err := s.RunRoomPass(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.Processed != 3 || result.Changed != 3 || result.Skipped != 0 {
		t.Errorf("result = %+v", result)
	}
	if result.States[models.RoomStateLocked] != 3 {
		t.Errorf("states = %v", result.States)
	}
	if got := testutil.ToFloat64(metrics.RoomsByState.WithLabelValues("locked")); got != 3 {
		t.Errorf("locked gauge = %v", got)
	}

	// A second pass without new activity changes nothing.
	result, err = s.RunRoomPass(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed != 0 || result.Processed != 3 {
		t.Errorf("second pass = %+v", result)
	}
}

func TestRunCompliancePass(t *testing.T) {
	ctx := context.Background()
	eng, c := newEngine(t)
	roomID := createActiveRoom(t, eng, "delta")

	c.Advance(8 * 24 * time.Hour)
	s := New(eng, testConfig())

	result, err := s.RunCompliancePass(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.Processed != 1 || result.Violations != 10 {
		t.Errorf("result = %+v, want 10 view violations", result)
	}

	result, err = s.RunCompliancePass(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.Violations != 0 {
		t.Errorf("repeated pass raised %d violations", result.Violations)
	}

	members, err := eng.ListMembers(ctx, roomID)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 10 {
		t.Errorf("members = %d, compliance must not remove members", len(members))
	}
}

type fakeEngine struct {
	rooms     []models.RoomSummary
	calls     atomic.Int32
	slowRoom  string
	failRoom  string
	listErr   error
	inFlight  atomic.Int32
	maxFlight atomic.Int32
}

func (f *fakeEngine) ListRooms(_ context.Context, cursor string, limit int) ([]models.RoomSummary, string, error) {
	if f.listErr != nil {
		return nil, "", f.listErr
	}
	start := 0
	for i, r := range f.rooms {
		if r.ID == cursor {
			start = i + 1
		}
	}
	end := start + limit
	if end >= len(f.rooms) {
		return f.rooms[start:], "", nil
	}
	return f.rooms[start:end], f.rooms[end-1].ID, nil
}

func (f *fakeEngine) EvaluateRoom(ctx context.Context, roomID string, _ audit.Actor) (*models.Room, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxFlight.Load()
		if n <= m || f.maxFlight.CompareAndSwap(m, n) {
			break
		}
	}

	switch roomID {
	case f.slowRoom:
		<-ctx.Done()
		return nil, fmt.Errorf("acquire room lock: %w", ctx.Err())
	case f.failRoom:
		return nil, &engine.EvaluationError{RoomID: roomID, Err: errors.New("boom")}
	}
	time.Sleep(time.Millisecond)
	return &models.Room{ID: roomID, State: models.RoomStateActive}, nil
}

func (f *fakeEngine) EvaluateCompliance(context.Context, string, audit.Actor) (engine.ComplianceResult, error) {
	return engine.ComplianceResult{}, nil
}

func fakeRooms(n int) []models.RoomSummary {
	out := make([]models.RoomSummary, n)
	for i := range out {
		out[i] = models.RoomSummary{ID: fmt.Sprintf("room-%02d", i), State: models.RoomStateActive}
	}
	return out
}

func TestRunRoomPassSkipsFailingRooms(t *testing.T) {
	f := &fakeEngine{rooms: fakeRooms(5), slowRoom: "room-01", failRoom: "room-03"}
	cfg := testConfig()
	cfg.EvaluationBudget = 20 * time.Millisecond
	s := New(f, cfg)

	budgetBefore := testutil.ToFloat64(metrics.SchedulerRoomsSkipped.WithLabelValues(PassRooms, SkipBudget))
	failedBefore := testutil.ToFloat64(metrics.SchedulerRoomsSkipped.WithLabelValues(PassRooms, SkipFailed))

	result, err := s.RunRoomPass(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Processed != 3 || result.Skipped != 2 {
		t.Errorf("result = %+v", result)
	}
	if f.calls.Load() != 5 {
		t.Errorf("evaluated %d rooms, want 5", f.calls.Load())
	}
	if d := testutil.ToFloat64(metrics.SchedulerRoomsSkipped.WithLabelValues(PassRooms, SkipBudget)) - budgetBefore; d != 1 {
		t.Errorf("budget skips = %v", d)
	}
	if d := testutil.ToFloat64(metrics.SchedulerRoomsSkipped.WithLabelValues(PassRooms, SkipFailed)) - failedBefore; d != 1 {
		t.Errorf("failed skips = %v", d)
	}
}

func TestRunRoomPassConcurrencyLimit(t *testing.T) {
	f := &fakeEngine{rooms: fakeRooms(20)}
	cfg := testConfig()
	cfg.PageSize = 20
	cfg.Concurrency = 3
	s := New(f, cfg)

	if _, err := s.RunRoomPass(context.Background()); err != nil {
		t.Fatal(err)
	}
	if m := f.maxFlight.Load(); m > 3 {
		t.Errorf("max in flight = %d, limit 3", m)
	}
}

func TestRunRoomPassListError(t *testing.T) {
	f := &fakeEngine{listErr: errors.New("store closed")}
	s := New(f, testConfig())
	if _, err := s.RunRoomPass(context.Background()); err == nil {
		t.Error("expected list error")
	}
}

func TestLoopRunsImmediately(t *testing.T) {
	f := &fakeEngine{rooms: fakeRooms(2)}
	cfg := testConfig()
	cfg.RoomInterval = time.Hour
	loop := New(f, cfg).RoomLoop()

	if err := loop.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := loop.Start(context.Background()); err == nil {
		t.Error("second Start should fail")
	}

	deadline := time.Now().Add(2 * time.Second)
	for f.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if f.calls.Load() < 2 {
		t.Errorf("initial pass evaluated %d rooms", f.calls.Load())
	}

	if err := loop.Stop(); err != nil {
		t.Fatal(err)
	}
	if loop.IsRunning() {
		t.Error("loop still running after Stop")
	}
	if err := loop.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestLoopDisabled(t *testing.T) {
	f := &fakeEngine{rooms: fakeRooms(2)}
	cfg := testConfig()
	cfg.Enabled = false
	loop := New(f, cfg).ComplianceLoop()

	if err := loop.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := loop.Stop(); err != nil {
		t.Fatal(err)
	}
	if f.calls.Load() != 0 {
		t.Error("disabled loop ran a pass")
	}
	if loop.Name() != "compliance-scheduler" {
		t.Errorf("Name() = %q", loop.Name())
	}
}
