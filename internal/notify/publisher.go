// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package notify

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"
)

// Transports
const (
	TransportChannel = "channel"
	TransportNATS    = "nats"
)

// TransportConfig selects and configures the message transport.
type TransportConfig struct {
	// Transport is "channel" (in-process) or "nats".
	Transport string

	// NATSURL is the NATS server URL.
	NATSURL string

	// JetStream publishes through JetStream instead of core NATS.
	JetStream bool

	// AutoProvision creates JetStream streams on first publish.
	AutoProvision bool

	// MaxReconnects and ReconnectWait tune the NATS client.
	MaxReconnects int
	ReconnectWait time.Duration

	// ChannelBuffer is the output buffer of the in-process transport.
	ChannelBuffer int64
}

// NewPublisher creates the configured watermill publisher. For the channel
// transport the returned GoChannel is also a Subscriber, which in-process
// consumers and tests use to observe published messages.
func NewPublisher(cfg TransportConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	switch cfg.Transport {
	case "", TransportChannel:
		return gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: cfg.ChannelBuffer,
			Persistent:          false,
		}, logger), nil

	case TransportNATS:
		natsOpts := []natsgo.Option{
			natsgo.RetryOnFailedConnect(true),
			natsgo.MaxReconnects(cfg.MaxReconnects),
			natsgo.ReconnectWait(cfg.ReconnectWait),
			natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
				if err != nil {
					logger.Error("NATS disconnected", err, nil)
				}
			}),
			natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
				logger.Info("NATS reconnected", watermill.LogFields{
					"url": nc.ConnectedUrl(),
				})
			}),
		}

		pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
			URL:         cfg.NATSURL,
			NatsOptions: natsOpts,
			Marshaler:   &wmNats.NATSMarshaler{},
			JetStream: wmNats.JetStreamConfig{
				Disabled:      !cfg.JetStream,
				AutoProvision: cfg.AutoProvision,
				TrackMsgId:    true,
				PublishOptions: []natsgo.PubOpt{
					natsgo.RetryAttempts(3),
					natsgo.RetryWait(100 * time.Millisecond),
				},
			},
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("create NATS publisher: %w", err)
		}
		return pub, nil
	}

	return nil, fmt.Errorf("unknown notification transport %q", cfg.Transport)
}
