/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// EventBusBackend selects how events reach other instances.
type EventBusBackend string

const (
	EventBusMemory EventBusBackend = "memory"
	EventBusRedis  EventBusBackend = "redis"
	EventBusNATS   EventBusBackend = "nats"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment   string
	HTTPBind      string
	HTTPPort      int
	DBBackend     DatabaseBackend
	DBDSN         string
	JWTSigningKey string
	JWTTTL        time.Duration
	DefaultTZ     string

	// Export archive storage. Filesystem is used unless an S3 bucket is set.
	ExportRoot        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
	S3Bucket          string
	S3Endpoint        string // For S3-compatible services (MinIO, Spaces, etc.)
	S3UsePathStyle    bool   // Required for MinIO

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Redis is shared by the cache, the redis event bus and leader election.
	CacheEnabled          bool
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	EventBus              EventBusBackend
	NATSURL               string
	LeaderElectionEnabled bool
	InstanceID            string

	// Long-running timer reminders
	ReminderEnabled   bool
	ReminderThreshold time.Duration
	ReminderInterval  time.Duration
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:   getEnv("CRONO_ENV", "development"),
		HTTPBind:      getEnv("CRONO_HTTP_BIND", "0.0.0.0"),
		HTTPPort:      getEnvInt("CRONO_HTTP_PORT", 8080),
		DBBackend:     DatabaseBackend(getEnv("CRONO_DB_BACKEND", string(DatabasePostgres))),
		DBDSN:         getEnv("CRONO_DB_DSN", ""),
		JWTSigningKey: getEnv("CRONO_JWT_SIGNING_KEY", ""),
		JWTTTL:        time.Duration(getEnvInt("CRONO_JWT_TTL_HOURS", 24*30)) * time.Hour,
		DefaultTZ:     getEnv("CRONO_DEFAULT_TZ", "Europe/Rome"),

		ExportRoot:        getEnv("CRONO_EXPORT_ROOT", "./exports"),
		S3AccessKeyID:     getEnvAny([]string{"CRONO_S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"}, ""),
		S3SecretAccessKey: getEnvAny([]string{"CRONO_S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"}, ""),
		S3Region:          getEnvAny([]string{"CRONO_S3_REGION", "AWS_REGION"}, "us-east-1"),
		S3Bucket:          getEnv("CRONO_S3_BUCKET", ""),
		S3Endpoint:        getEnv("CRONO_S3_ENDPOINT", ""),
		S3UsePathStyle:    getEnvBool("CRONO_S3_USE_PATH_STYLE", false),

		TracingEnabled:    getEnvBool("CRONO_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("CRONO_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("CRONO_TRACING_SAMPLE_RATE", 1.0),

		CacheEnabled:          getEnvBool("CRONO_CACHE_ENABLED", false),
		RedisAddr:             getEnv("CRONO_REDIS_ADDR", "localhost:6379"),
		RedisPassword:         getEnv("CRONO_REDIS_PASSWORD", ""),
		RedisDB:               getEnvInt("CRONO_REDIS_DB", 0),
		EventBus:              EventBusBackend(getEnv("CRONO_EVENT_BUS", string(EventBusMemory))),
		NATSURL:               getEnv("CRONO_NATS_URL", "nats://localhost:4222"),
		LeaderElectionEnabled: getEnvBool("CRONO_LEADER_ELECTION_ENABLED", false),
		InstanceID:            getEnv("CRONO_INSTANCE_ID", ""),

		ReminderEnabled:   getEnvBool("CRONO_REMINDER_ENABLED", true),
		ReminderThreshold: time.Duration(getEnvInt("CRONO_REMINDER_THRESHOLD_MINUTES", 120)) * time.Minute,
		ReminderInterval:  time.Duration(getEnvInt("CRONO_REMINDER_INTERVAL_SECONDS", 60)) * time.Second,
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("CRONO_DB_DSN must be provided")
	}

	if cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("CRONO_JWT_SIGNING_KEY must be provided")
	}

	switch cfg.EventBus {
	case EventBusMemory, EventBusRedis, EventBusNATS:
	default:
		return nil, fmt.Errorf("unsupported event bus %q", cfg.EventBus)
	}

	if _, err := time.LoadLocation(cfg.DefaultTZ); err != nil {
		return nil, fmt.Errorf("invalid CRONO_DEFAULT_TZ %q: %w", cfg.DefaultTZ, err)
	}

	if strings.EqualFold(cfg.Environment, "production") && len(cfg.JWTSigningKey) < 32 {
		return nil, fmt.Errorf("CRONO_JWT_SIGNING_KEY must be at least 32 characters in production")
	}

	return cfg, nil
}

// Location returns the default time zone used when a client does not send one.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DefaultTZ)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTPBind, c.HTTPPort)
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}
