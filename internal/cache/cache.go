/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based caching layer for derived per-user views.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/cronoapp/internal/models"
)

// Default TTL values for different cache types
const (
	DefaultReportTTL      = 5 * time.Minute
	DefaultActiveEntryTTL = 10 * time.Minute
)

// Key prefixes for Redis cache
const (
	keyRoot        = "cronoapp:cache:"
	KeyReport      = keyRoot + "report:" // + user_id:period:anchor
	KeyActiveEntry = keyRoot + "active:" // + user_id
)

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ReportTTL      time.Duration
	ActiveEntryTTL time.Duration

	// DisableOnError turns caching off after the first redis error.
	DisableOnError bool
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		ReportTTL:      DefaultReportTTL,
		ActiveEntryTTL: DefaultActiveEntryTTL,
		DisableOnError: true,
	}
}

// Cache provides Redis-backed caching with graceful fallback. A nil *Cache is
// valid and behaves as an always-missing cache.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool
}

// New creates a new cache instance. An unreachable redis yields a disabled cache,
// not an error.
func New(cfg Config, logger zerolog.Logger) *Cache {
	log := logger.With().Str("component", "cache").Logger()

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis cache unavailable, running without caching")
		_ = client.Close()
		return &Cache{logger: log, config: cfg, disabled: true}
	}

	log.Info().Str("addr", cfg.RedisAddr).Msg("redis cache initialized")
	return &Cache{client: client, logger: log, config: cfg}
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

func (c *Cache) handleError(err error, operation string) {
	if err == nil || errors.Is(err, redis.Nil) {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to redis error")
	}
}

func (c *Cache) get(ctx context.Context, key string, dest any) bool {
	if !c.IsAvailable() {
		return false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		c.handleError(err, "get")
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		return false
	}
	return true
}

func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.IsAvailable() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}
	return nil
}

func (c *Cache) delete(ctx context.Context, keys ...string) error {
	if !c.IsAvailable() {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.handleError(err, "delete")
		return err
	}
	return nil
}

// deletePattern deletes all keys matching a pattern using SCAN.
func (c *Cache) deletePattern(ctx context.Context, pattern string) error {
	if !c.IsAvailable() {
		return nil
	}

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			c.handleError(err, "scan")
			return err
		}
		if len(keys) > 0 {
			if err := c.delete(ctx, keys...); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// ReportKey builds the cache key of one report. anchor identifies the range,
// e.g. the first day of the period in 2006-01-02 form plus the time zone.
func ReportKey(userID, period, anchor string) string {
	return KeyReport + userID + ":" + period + ":" + anchor
}

// GetReport loads a cached report into dest.
func (c *Cache) GetReport(ctx context.Context, userID, period, anchor string, dest any) bool {
	return c.get(ctx, ReportKey(userID, period, anchor), dest)
}

// SetReport stores a report.
func (c *Cache) SetReport(ctx context.Context, userID, period, anchor string, report any) error {
	if c == nil {
		return nil
	}
	return c.set(ctx, ReportKey(userID, period, anchor), report, c.config.ReportTTL)
}

// InvalidateReports removes every cached report of a user.
func (c *Cache) InvalidateReports(ctx context.Context, userID string) error {
	if !c.IsAvailable() {
		return nil
	}
	c.logger.Debug().Str("user_id", userID).Msg("invalidating report cache")
	return c.deletePattern(ctx, KeyReport+userID+":*")
}

// cachedActive distinguishes "no running timer" from a cache miss.
type cachedActive struct {
	Entry *models.TimeEntry `json:"entry"`
}

// GetActiveEntry returns the cached running entry. found is false on a miss; a hit
// with a nil entry means the user has no running timer.
func (c *Cache) GetActiveEntry(ctx context.Context, userID string) (entry *models.TimeEntry, found bool) {
	var v cachedActive
	if !c.get(ctx, KeyActiveEntry+userID, &v) {
		return nil, false
	}
	return v.Entry, true
}

// SetActiveEntry caches the running entry (nil for none).
func (c *Cache) SetActiveEntry(ctx context.Context, userID string, entry *models.TimeEntry) error {
	if c == nil {
		return nil
	}
	return c.set(ctx, KeyActiveEntry+userID, cachedActive{Entry: entry}, c.config.ActiveEntryTTL)
}

// InvalidateActiveEntry drops the cached running entry.
func (c *Cache) InvalidateActiveEntry(ctx context.Context, userID string) error {
	return c.delete(ctx, KeyActiveEntry+userID)
}

// InvalidateUser removes all caches derived from a user's data.
func (c *Cache) InvalidateUser(ctx context.Context, userID string) error {
	if err := c.InvalidateActiveEntry(ctx, userID); err != nil {
		return err
	}
	return c.InvalidateReports(ctx, userID)
}

// FlushAll removes all cached data.
func (c *Cache) FlushAll(ctx context.Context) error {
	c.logger.Warn().Msg("flushing all cache data")
	return c.deletePattern(ctx, keyRoot+"*")
}
