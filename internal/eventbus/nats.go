/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/friendsincode/cronoapp/internal/events"
	"github.com/friendsincode/cronoapp/internal/telemetry"
)

const natsSubjectPrefix = "cronoapp.events."

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL   string
	Token string

	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns default NATS configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		MaxReconnects: -1, // unlimited
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// NATSBus fans events out to every instance over core NATS subjects
// ("cronoapp.events.<type>"). The client library handles reconnects; while
// disconnected, publishes are buffered by the client and local delivery continues.
type NATSBus struct {
	conn   *nats.Conn
	logger zerolog.Logger
	nodeID string

	local *localSubs

	mu   sync.Mutex
	nsub map[events.EventType]*nats.Subscription
}

// NewNATSBus connects to NATS. Unlike the redis bus there is no local-only mode:
// a failed initial connection is returned to the caller.
func NewNATSBus(cfg NATSConfig, nodeID string, logger zerolog.Logger) (*NATSBus, error) {
	log := logger.With().Str("component", "eventbus").Str("backend", "nats").Logger()

	opts := []nats.Option{
		nats.Name("cronoapp-" + nodeID),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	log.Info().Str("url", conn.ConnectedUrl()).Str("node_id", nodeID).Msg("nats event bus initialized")

	return &NATSBus{
		conn:   conn,
		logger: log,
		nodeID: nodeID,
		local:  newLocalSubs(),
		nsub:   make(map[events.EventType]*nats.Subscription),
	}, nil
}

// Subscribe registers a subscriber for an event type.
func (nb *NATSBus) Subscribe(eventType events.EventType) events.Subscriber {
	sub := nb.local.add(eventType)

	nb.mu.Lock()
	defer nb.mu.Unlock()
	if _, exists := nb.nsub[eventType]; exists {
		return sub
	}

	s, err := nb.conn.Subscribe(natsSubjectPrefix+string(eventType), func(msg *nats.Msg) {
		env, err := decodeEnvelope(msg.Data)
		if err != nil {
			nb.logger.Error().Err(err).Msg("failed to decode nats message")
			return
		}
		if env.NodeID == nb.nodeID {
			return
		}
		if dropped := nb.local.deliver(eventType, env.Payload); dropped > 0 {
			nb.logger.Warn().Str("event_type", string(eventType)).Int("dropped", dropped).Msg("subscriber channel full, dropping event")
		}
	})
	if err != nil {
		nb.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to subscribe to nats subject")
		return sub
	}
	nb.nsub[eventType] = s
	return sub
}

// Publish delivers payload to local subscribers and forwards it to other nodes.
func (nb *NATSBus) Publish(eventType events.EventType, payload events.Payload) {
	telemetry.EventBusPublishedTotal.WithLabelValues(string(eventType)).Inc()
	nb.local.deliver(eventType, payload)

	data, err := encodeEnvelope(eventType, payload, nb.nodeID)
	if err != nil {
		nb.logger.Error().Err(err).Msg("failed to encode nats message")
		return
	}
	if err := nb.conn.Publish(natsSubjectPrefix+string(eventType), data); err != nil {
		nb.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to publish to nats")
	}
}

// Unsubscribe removes a subscriber and closes it.
func (nb *NATSBus) Unsubscribe(eventType events.EventType, sub events.Subscriber) {
	if nb.local.remove(eventType, sub) > 0 {
		return
	}

	nb.mu.Lock()
	defer nb.mu.Unlock()
	if s, exists := nb.nsub[eventType]; exists {
		_ = s.Unsubscribe()
		delete(nb.nsub, eventType)
	}
}

// Close drains pending messages and closes the connection.
func (nb *NATSBus) Close() error {
	if err := nb.conn.Drain(); err != nil {
		nb.conn.Close()
		return fmt.Errorf("drain nats: %w", err)
	}
	nb.logger.Info().Msg("nats event bus closed")
	return nil
}
