/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// FSStore implements ObjectStore on the local filesystem.
type FSStore struct {
	rootDir string
	logger  zerolog.Logger
}

// NewFSStore creates a filesystem store rooted at rootDir.
func NewFSStore(rootDir string, logger zerolog.Logger) *FSStore {
	return &FSStore{
		rootDir: rootDir,
		logger:  logger.With().Str("component", "storage_fs").Logger(),
	}
}

func (s *FSStore) fullPath(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.rootDir, filepath.FromSlash(cleaned)), nil
}

// Put writes data atomically through a temporary file.
func (s *FSStore) Put(ctx context.Context, key string, data []byte, _ string) error {
	fullPath, err := s.fullPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename file: %w", err)
	}

	s.logger.Debug().Str("path", fullPath).Int("bytes", len(data)).Msg("filesystem storage: object stored")
	return nil
}

// Get reads an object.
func (s *FSStore) Get(ctx context.Context, key string) ([]byte, error) {
	fullPath, err := s.fullPath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

// Delete removes an object. Missing objects are not an error.
func (s *FSStore) Delete(ctx context.Context, key string) error {
	fullPath, err := s.fullPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	s.logger.Debug().Str("path", fullPath).Msg("filesystem storage: object deleted")
	return nil
}

// Location returns the file path for key.
func (s *FSStore) Location(key string) string {
	fullPath, err := s.fullPath(key)
	if err != nil {
		return key
	}
	return fullPath
}
