/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package leadership elects one instance to run background jobs.
package leadership

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/cronoapp/internal/telemetry"
)

const (
	defaultElectionKey     = "cronoapp:leader:workers"
	defaultLeaseDuration   = 15 * time.Second
	defaultRenewalInterval = 5 * time.Second
)

// releaseScript deletes the lease only if this instance still owns it.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// renewScript extends the lease only if this instance still owns it.
const renewScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
else
	return 0
end
`

// ElectionConfig configures leader election behavior.
type ElectionConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// ElectionKey is the redis key holding the current leader id.
	ElectionKey string
	// LeaseDuration is how long a lease stays valid without renewal.
	LeaseDuration time.Duration
	// RenewalInterval is how often the lease is acquired or renewed.
	RenewalInterval time.Duration
	InstanceID      string
}

// DefaultConfig returns default election configuration.
func DefaultConfig() ElectionConfig {
	return ElectionConfig{
		RedisAddr:       "localhost:6379",
		ElectionKey:     defaultElectionKey,
		LeaseDuration:   defaultLeaseDuration,
		RenewalInterval: defaultRenewalInterval,
		InstanceID:      uuid.NewString(),
	}
}

// Election manages a redis lease: whoever holds the key is leader.
type Election struct {
	client *redis.Client
	logger zerolog.Logger
	config ElectionConfig

	mu       sync.RWMutex
	isLeader bool
	cancel   context.CancelFunc
	done     chan struct{}
	leaderCh chan bool
}

// NewElection connects to redis and prepares an election.
func NewElection(config ElectionConfig, logger zerolog.Logger) (*Election, error) {
	if config.ElectionKey == "" {
		config.ElectionKey = defaultElectionKey
	}
	if config.LeaseDuration <= 0 {
		config.LeaseDuration = defaultLeaseDuration
	}
	if config.RenewalInterval <= 0 {
		config.RenewalInterval = defaultRenewalInterval
	}
	if config.InstanceID == "" {
		config.InstanceID = uuid.NewString()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis for leader election: %w", err)
	}

	return &Election{
		client:   client,
		logger:   logger.With().Str("component", "leader_election").Str("instance_id", config.InstanceID).Logger(),
		config:   config,
		leaderCh: make(chan bool, 1),
	}, nil
}

// Start begins campaigning in the background.
func (e *Election) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.done = make(chan struct{})
	e.mu.Unlock()

	e.logger.Info().Dur("lease", e.config.LeaseDuration).Msg("starting leader election")
	go e.campaign(ctx)
}

// Stop ends the campaign, releases the lease if held and closes redis.
func (e *Election) Stop() error {
	e.mu.RLock()
	cancel, done := e.cancel, e.done
	e.mu.RUnlock()

	if cancel != nil {
		cancel()
		<-done
	}

	if e.IsLeader() {
		ctx, cancelRelease := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelRelease()
		if err := e.client.Eval(ctx, releaseScript, []string{e.config.ElectionKey}, e.config.InstanceID).Err(); err != nil {
			e.logger.Error().Err(err).Msg("failed to release leadership")
		}
		e.setLeader(false)
	}
	return e.client.Close()
}

// IsLeader reports whether this instance currently holds the lease.
func (e *Election) IsLeader() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.isLeader
}

// LeaderCh receives leadership transitions.
func (e *Election) LeaderCh() <-chan bool {
	return e.leaderCh
}

// Leader returns the id of the current leader, or "" when there is none.
func (e *Election) Leader(ctx context.Context) (string, error) {
	id, err := e.client.Get(ctx, e.config.ElectionKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get leader: %w", err)
	}
	return id, nil
}

func (e *Election) campaign(ctx context.Context) {
	defer close(e.done)

	ticker := time.NewTicker(e.config.RenewalInterval)
	defer ticker.Stop()

	e.attempt(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.attempt(ctx)
		}
	}
}

func (e *Election) attempt(ctx context.Context) {
	held, err := e.acquire(ctx)
	if err != nil {
		if ctx.Err() == nil {
			e.logger.Error().Err(err).Msg("leader election round failed")
		}
		e.setLeader(false)
		return
	}
	e.setLeader(held)
}

func (e *Election) acquire(ctx context.Context) (bool, error) {
	ok, err := e.client.SetNX(ctx, e.config.ElectionKey, e.config.InstanceID, e.config.LeaseDuration).Result()
	if err != nil {
		return false, fmt.Errorf("set lease: %w", err)
	}
	if ok {
		return true, nil
	}

	renewed, err := e.client.Eval(ctx, renewScript, []string{e.config.ElectionKey},
		e.config.InstanceID, e.config.LeaseDuration.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("renew lease: %w", err)
	}
	return renewed == 1, nil
}

func (e *Election) setLeader(leader bool) {
	e.mu.Lock()
	if e.isLeader == leader {
		e.mu.Unlock()
		return
	}
	e.isLeader = leader
	e.mu.Unlock()

	if leader {
		e.logger.Info().Msg("acquired leadership")
		telemetry.LeaderElectionStatus.WithLabelValues(e.config.InstanceID).Set(1)
	} else {
		e.logger.Warn().Msg("lost leadership")
		telemetry.LeaderElectionStatus.WithLabelValues(e.config.InstanceID).Set(0)
	}
	telemetry.LeaderElectionChanges.Inc()

	// Keep only the latest transition.
	select {
	case <-e.leaderCh:
	default:
	}
	select {
	case e.leaderCh <- leader:
	default:
	}
}
