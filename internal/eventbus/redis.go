/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/cronoapp/internal/events"
	"github.com/friendsincode/cronoapp/internal/telemetry"
)

const redisChannelPrefix = "cronoapp:events:"

// RedisBus fans events out to every instance through redis pub/sub. Local
// subscribers always receive local publishes directly; messages echoed back from
// redis by this node are dropped.
type RedisBus struct {
	client *redis.Client
	logger zerolog.Logger
	nodeID string

	local *localSubs

	mu       sync.Mutex
	channels map[events.EventType]*redis.PubSub

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Circuit breaker state, guarded by mu.
	useFallback   bool
	failCount     int
	maxFails      int
	checkInterval time.Duration
}

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	PoolSize     int
	MinIdleConns int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Circuit breaker
	MaxFailures   int
	CheckInterval time.Duration
}

// DefaultRedisConfig returns default Redis configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:          "localhost:6379",
		PoolSize:      10,
		MinIdleConns:  2,
		DialTimeout:   5 * time.Second,
		ReadTimeout:   3 * time.Second,
		WriteTimeout:  3 * time.Second,
		MaxFailures:   5,
		CheckInterval: 30 * time.Second,
	}
}

// NewRedisBus creates a Redis-backed event bus. When redis cannot be reached the
// bus starts in local-only mode and keeps probing in the background.
func NewRedisBus(cfg RedisConfig, nodeID string, logger zerolog.Logger) *RedisBus {
	ctx, cancel := context.WithCancel(context.Background())

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	rb := &RedisBus{
		client:        client,
		logger:        logger.With().Str("component", "eventbus").Str("backend", "redis").Logger(),
		nodeID:        nodeID,
		local:         newLocalSubs(),
		channels:      make(map[events.EventType]*redis.PubSub),
		ctx:           ctx,
		cancel:        cancel,
		maxFails:      cfg.MaxFailures,
		checkInterval: cfg.CheckInterval,
	}
	if rb.maxFails <= 0 {
		rb.maxFails = 5
	}
	if rb.checkInterval <= 0 {
		rb.checkInterval = 30 * time.Second
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, cfg.DialTimeout+time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		rb.logger.Warn().Err(err).Msg("redis unreachable, delivering events locally only")
		rb.useFallback = true
	} else {
		rb.logger.Info().Str("addr", cfg.Addr).Str("node_id", nodeID).Msg("redis event bus initialized")
	}

	rb.wg.Add(1)
	go rb.monitor()

	return rb
}

// Subscribe registers a subscriber for an event type.
func (rb *RedisBus) Subscribe(eventType events.EventType) events.Subscriber {
	sub := rb.local.add(eventType)

	rb.mu.Lock()
	defer rb.mu.Unlock()
	if !rb.useFallback {
		rb.ensureChannelLocked(eventType)
	}
	return sub
}

// ensureChannelLocked opens the redis subscription for eventType once.
func (rb *RedisBus) ensureChannelLocked(eventType events.EventType) {
	if _, exists := rb.channels[eventType]; exists {
		return
	}
	pubsub := rb.client.Subscribe(rb.ctx, redisChannelPrefix+string(eventType))
	rb.channels[eventType] = pubsub

	rb.wg.Add(1)
	go rb.receive(eventType, pubsub)
}

func (rb *RedisBus) receive(eventType events.EventType, pubsub *redis.PubSub) {
	defer rb.wg.Done()

	ch := pubsub.Channel()
	for {
		select {
		case <-rb.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			env, err := decodeEnvelope([]byte(msg.Payload))
			if err != nil {
				rb.logger.Error().Err(err).Msg("failed to decode redis message")
				continue
			}
			if env.NodeID == rb.nodeID {
				continue
			}

			if dropped := rb.local.deliver(eventType, env.Payload); dropped > 0 {
				rb.logger.Warn().Str("event_type", string(eventType)).Int("dropped", dropped).Msg("subscriber channel full, dropping event")
			}
		}
	}
}

// Publish delivers payload to local subscribers and forwards it to other nodes.
func (rb *RedisBus) Publish(eventType events.EventType, payload events.Payload) {
	telemetry.EventBusPublishedTotal.WithLabelValues(string(eventType)).Inc()
	rb.local.deliver(eventType, payload)

	rb.mu.Lock()
	fallback := rb.useFallback
	rb.mu.Unlock()
	if fallback {
		return
	}

	data, err := encodeEnvelope(eventType, payload, rb.nodeID)
	if err != nil {
		rb.logger.Error().Err(err).Msg("failed to encode redis message")
		return
	}

	ctx, cancel := context.WithTimeout(rb.ctx, 2*time.Second)
	defer cancel()

	if err := rb.client.Publish(ctx, redisChannelPrefix+string(eventType), data).Err(); err != nil {
		rb.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to publish to redis")
		rb.handleFailure()
		return
	}

	rb.mu.Lock()
	rb.failCount = 0
	rb.mu.Unlock()
}

// Unsubscribe removes a subscriber and closes it.
func (rb *RedisBus) Unsubscribe(eventType events.EventType, sub events.Subscriber) {
	remaining := rb.local.remove(eventType, sub)
	if remaining > 0 {
		return
	}

	rb.mu.Lock()
	defer rb.mu.Unlock()
	if pubsub, exists := rb.channels[eventType]; exists {
		_ = pubsub.Close()
		delete(rb.channels, eventType)
	}
}

// Close stops receivers and closes the redis client.
func (rb *RedisBus) Close() error {
	rb.cancel()

	rb.mu.Lock()
	for eventType, pubsub := range rb.channels {
		_ = pubsub.Close()
		delete(rb.channels, eventType)
	}
	rb.mu.Unlock()

	rb.wg.Wait()

	if err := rb.client.Close(); err != nil {
		rb.logger.Error().Err(err).Msg("failed to close redis client")
		return err
	}
	rb.logger.Info().Msg("redis event bus closed")
	return nil
}

// Degraded reports whether the bus is currently delivering locally only.
func (rb *RedisBus) Degraded() bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.useFallback
}

// handleFailure trips the circuit breaker after maxFails consecutive errors.
func (rb *RedisBus) handleFailure() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.failCount++
	if rb.failCount < rb.maxFails || rb.useFallback {
		return
	}

	rb.logger.Warn().Int("fail_count", rb.failCount).Msg("redis failure threshold reached, delivering events locally only")
	rb.useFallback = true
	for eventType, pubsub := range rb.channels {
		_ = pubsub.Close()
		delete(rb.channels, eventType)
	}
}

// monitor periodically probes redis while the breaker is open.
func (rb *RedisBus) monitor() {
	defer rb.wg.Done()

	ticker := time.NewTicker(rb.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rb.ctx.Done():
			return
		case <-ticker.C:
			rb.tryReconnect()
		}
	}
}

func (rb *RedisBus) tryReconnect() {
	rb.mu.Lock()
	fallback := rb.useFallback
	rb.mu.Unlock()
	if !fallback {
		return
	}

	ctx, cancel := context.WithTimeout(rb.ctx, 5*time.Second)
	defer cancel()
	if err := rb.client.Ping(ctx).Err(); err != nil {
		rb.logger.Debug().Err(err).Msg("redis still unavailable")
		return
	}

	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.useFallback = false
	rb.failCount = 0
	for _, eventType := range rb.local.types() {
		rb.ensureChannelLocked(eventType)
	}
	rb.logger.Info().Msg("reconnected to redis")
}
