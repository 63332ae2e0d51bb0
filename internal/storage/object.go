/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package storage stores export archives on disk or in S3-compatible buckets.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"github.com/friendsincode/cronoapp/internal/config"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("object not found")

// ErrInvalidKey is returned for empty keys or keys escaping the store root.
var ErrInvalidKey = errors.New("invalid object key")

// ObjectStore abstracts object storage operations.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// Location describes where a key is stored, for API responses and logs.
	Location(key string) string
}

// New returns an S3 store when a bucket is configured and a filesystem store
// rooted at cfg.ExportRoot otherwise.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (ObjectStore, error) {
	if cfg.S3Bucket == "" {
		return NewFSStore(cfg.ExportRoot, logger), nil
	}

	if cfg.S3AccessKeyID == "" || cfg.S3SecretAccessKey == "" {
		logger.Warn().Msg("S3 credentials not configured, falling back to the default credential chain")
	}
	s3, err := NewS3Store(ctx, S3Config{
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		Region:          cfg.S3Region,
		Bucket:          cfg.S3Bucket,
		Endpoint:        cfg.S3Endpoint,
		UsePathStyle:    cfg.S3UsePathStyle,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init s3 storage: %w", err)
	}
	return s3, nil
}

// cleanKey normalizes a slash separated key and rejects traversal.
func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
