// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/agora/internal/breaker"
	"github.com/tomtom215/agora/internal/metrics"
)

// DispatcherConfig configures the Dispatcher.
type DispatcherConfig struct {
	// QueueSize bounds the number of undelivered messages.
	QueueSize int

	// NotificationTopic and BadgeTopic name the publish topics.
	NotificationTopic string
	BadgeTopic        string

	// DrainTimeout bounds how long Stop keeps publishing queued messages.
	DrainTimeout time.Duration

	// Breaker configures the circuit breaker around publishes.
	Breaker breaker.Config
}

// DefaultDispatcherConfig returns the defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		QueueSize:         1024,
		NotificationTopic: TopicNotifications,
		BadgeTopic:        TopicBadges,
		DrainTimeout:      5 * time.Second,
		Breaker:           breaker.DefaultConfig("notify-publisher"),
	}
}

type outbound struct {
	topic string
	msg   *message.Message
}

// Dispatcher delivers notifications and badge grants through a watermill
// publisher from a single background worker. Enqueueing never blocks: when
// the queue is full the message is dropped, logged and counted.
type Dispatcher struct {
	publisher message.Publisher
	cb        *gobreaker.CircuitBreaker[interface{}]
	cfg       DispatcherConfig
	logger    zerolog.Logger
	queue     chan outbound

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

var _ Sink = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher. Call Start to begin delivery.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewDispatcher(publisher message.Publisher, cfg DispatcherConfig, logger zerolog.Logger) *Dispatcher {
	def := DefaultDispatcherConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.NotificationTopic == "" {
		cfg.NotificationTopic = def.NotificationTopic
	}
	if cfg.BadgeTopic == "" {
		cfg.BadgeTopic = def.BadgeTopic
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = def.DrainTimeout
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker = def.Breaker
	}

	return &Dispatcher{
		publisher: publisher,
		cb:        breaker.New(cfg.Breaker),
		cfg:       cfg,
		logger:    logger.With().Str("component", "notify-dispatcher").Logger(),
		queue:     make(chan outbound, cfg.QueueSize),
	}
}

// Notify queues a notification.
func (d *Dispatcher) Notify(n Notification) {
	if len(n.Recipients) == 0 {
		return
	}
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	d.enqueue(d.cfg.NotificationTopic, n.ID, n, map[string]string{
		"template_key": n.TemplateKey,
		"room_id":      n.RoomID,
	})
}

// Grant queues a badge grant.
func (d *Dispatcher) Grant(g GrantRequest) {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	d.enqueue(d.cfg.BadgeTopic, g.ID, g, map[string]string{
		"badge":     g.Badge,
		"member_id": g.MemberID,
	})
}

func (d *Dispatcher) enqueue(topic, id string, v interface{}, metadata map[string]string) {
	payload, err := json.Marshal(v)
	if err != nil {
		d.logger.Error().Err(err).Str("topic", topic).Msg("Failed to encode message")
		return
	}

	msg := message.NewMessage(id, payload)
	for k, val := range metadata {
		msg.Metadata.Set(k, val)
	}

	select {
	case d.queue <- outbound{topic: topic, msg: msg}:
		metrics.NotificationQueueDepth.Set(float64(len(d.queue)))
	default:
		metrics.NotificationsDropped.WithLabelValues(topic).Inc()
		d.logger.Warn().
			Str("topic", topic).
			Str("message_id", id).
			Int("queue_size", d.cfg.QueueSize).
			Msg("Notification queue full, dropping message")
	}
}

// Start begins the delivery worker.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return fmt.Errorf("dispatcher already running")
	}
	d.running = true
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})

	d.logger.Info().Int("queue_size", d.cfg.QueueSize).Msg("Starting notification dispatcher")
	go d.run(ctx)
	return nil
}

// Stop drains queued messages (bounded by DrainTimeout) and stops the worker.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	d.mu.Unlock()

	close(d.stopCh)
	<-d.doneCh
	d.logger.Info().Msg("Notification dispatcher stopped")
	return nil
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.doneCh)

	for {
		select {
		case item := <-d.queue:
			d.publish(item)
		case <-d.stopCh:
			d.drain()
			return
		case <-ctx.Done():
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	deadline := time.After(d.cfg.DrainTimeout)
	for {
		select {
		case item := <-d.queue:
			d.publish(item)
		case <-deadline:
			if n := len(d.queue); n > 0 {
				d.logger.Warn().Int("remaining", n).Msg("Drain timeout, abandoning queued messages")
			}
			return
		default:
			return
		}
	}
}

func (d *Dispatcher) publish(item outbound) {
	metrics.NotificationQueueDepth.Set(float64(len(d.queue)))

	err := breaker.Execute(d.cb, func() error {
		return d.publisher.Publish(item.topic, item.msg)
	})
	metrics.RecordPublish(item.topic, err)
	if err != nil {
		d.logger.Error().
			Err(err).
			Str("topic", item.topic).
			Str("message_id", item.msg.UUID).
			Msg("Failed to publish message")
	}
}

// Close closes the underlying publisher. Call after Stop.
func (d *Dispatcher) Close() error {
	return d.publisher.Close()
}
