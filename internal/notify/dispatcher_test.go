// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package notify

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/tomtom215/agora/internal/metrics"
)

func newChannel(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	pub, err := NewPublisher(TransportConfig{Transport: TransportChannel, ChannelBuffer: 16}, nil)
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	ch, ok := pub.(*gochannel.GoChannel)
	if !ok {
		t.Fatalf("channel transport returned %T", pub)
	}
	t.Cleanup(func() { _ = ch.Close() })
	return ch
}

func receive(t *testing.T, msgs <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-msgs:
		msg.Ack()
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestDispatcherPublishesNotificationsAndGrants(t *testing.T) {
	ch := newChannel(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notes, err := ch.Subscribe(ctx, TopicNotifications)
	if err != nil {
		t.Fatal(err)
	}
	badges, err := ch.Subscribe(ctx, TopicBadges)
	if err != nil {
		t.Fatal(err)
	}

	d := NewDispatcher(ch, DefaultDispatcherConfig(), zerolog.New(io.Discard))
	if err := d.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = d.Stop() }()

	d.Notify(Notification{TemplateKey: TemplateRoomActivated, RoomID: "r1", Recipients: []string{"alice", "bob"}})
	d.Grant(GrantRequest{MemberID: "alice", Badge: BadgeCommunityBuilder, Reason: "room activated", RoomID: "r1"})

	msg := receive(t, notes)
	var n Notification
	if err := json.Unmarshal(msg.Payload, &n); err != nil {
		t.Fatal(err)
	}
	if n.TemplateKey != TemplateRoomActivated || len(n.Recipients) != 2 || n.ID == "" {
		t.Errorf("notification = %+v", n)
	}
	if msg.Metadata.Get("room_id") != "r1" {
		t.Errorf("metadata room_id = %q", msg.Metadata.Get("room_id"))
	}

	msg = receive(t, badges)
	var g GrantRequest
	if err := json.Unmarshal(msg.Payload, &g); err != nil {
		t.Fatal(err)
	}
	if g.Badge != BadgeCommunityBuilder || g.MemberID != "alice" {
		t.Errorf("grant = %+v", g)
	}
}

func TestDispatcherSkipsEmptyRecipients(t *testing.T) {
	d := NewDispatcher(newChannel(t), DefaultDispatcherConfig(), zerolog.New(io.Discard))
	d.Notify(Notification{TemplateKey: TemplateRoomLocked})
	if len(d.queue) != 0 {
		t.Errorf("queued %d messages for no recipients", len(d.queue))
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	cfg := DefaultDispatcherConfig()
	cfg.QueueSize = 1
	d := NewDispatcher(newChannel(t), cfg, zerolog.New(io.Discard))

	dropped := metrics.NotificationsDropped.WithLabelValues(TopicNotifications)
	before := testutil.ToFloat64(dropped)

	// Not started, so nothing drains the queue.
	d.Notify(Notification{TemplateKey: TemplateRoomLocked, Recipients: []string{"a"}})
	d.Notify(Notification{TemplateKey: TemplateRoomLocked, Recipients: []string{"b"}})

	if got := testutil.ToFloat64(dropped) - before; got != 1 {
		t.Errorf("dropped delta = %v, want 1", got)
	}
}

type failingPublisher struct{ calls int }

func (p *failingPublisher) Publish(string, ...*message.Message) error {
	p.calls++
	return errors.New("broker unavailable")
}

func (p *failingPublisher) Close() error { return nil }

func TestDispatcherSurvivesPublishFailures(t *testing.T) {
	pub := &failingPublisher{}
	d := NewDispatcher(pub, DefaultDispatcherConfig(), zerolog.New(io.Discard))

	d.Notify(Notification{TemplateKey: TemplateRoomDeleted, Recipients: []string{"a"}})
	d.Grant(GrantRequest{MemberID: "a", Badge: BadgeRoomFounder})

	if err := d.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := d.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if pub.calls != 2 {
		t.Errorf("publish calls = %d, want 2", pub.calls)
	}
}

func TestNewPublisherUnknownTransport(t *testing.T) {
	if _, err := NewPublisher(TransportConfig{Transport: "carrier-pigeon"}, nil); err == nil {
		t.Error("expected error for unknown transport")
	}
}
