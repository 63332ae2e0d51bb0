/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package settings is the per-user application state container: language, theme
// and notification preferences.
package settings

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/friendsincode/cronoapp/internal/events"
	"github.com/friendsincode/cronoapp/internal/models"
	"github.com/friendsincode/cronoapp/internal/store"
)

var (
	ErrInvalidLanguage = errors.New("unsupported language")
	ErrInvalidTheme    = errors.New("theme must be light, dark or system")
)

// Service reads and updates user settings.
type Service struct {
	store  store.SettingsStore
	bus    events.Broker
	logger zerolog.Logger
}

// NewService creates a settings service.
func NewService(st store.SettingsStore, bus events.Broker, logger zerolog.Logger) *Service {
	return &Service{
		store:  st,
		bus:    bus,
		logger: logger.With().Str("component", "settings").Logger(),
	}
}

// Get returns the user's settings, defaults included.
func (s *Service) Get(ctx context.Context, userID string) (*models.UserSettings, error) {
	return s.store.GetSettings(ctx, userID)
}

// Update validates and stores a settings change.
func (s *Service) Update(ctx context.Context, userID string, upd models.SettingsUpdate) (*models.UserSettings, error) {
	if upd.Language != nil && !models.IsValidLanguage(*upd.Language) {
		return nil, ErrInvalidLanguage
	}
	if upd.Theme != nil && !models.IsValidTheme(*upd.Theme) {
		return nil, ErrInvalidTheme
	}

	updated, err := s.store.UpdateSettings(ctx, userID, upd)
	if err != nil {
		return nil, err
	}

	if s.bus != nil {
		s.bus.Publish(events.EventSettingsUpdated, events.Payload{
			"user_id":               userID,
			"language":              updated.Language,
			"theme":                 string(updated.Theme),
			"notifications_enabled": updated.NotificationsEnabled,
		})
	}
	return updated, nil
}

// Language returns the user's language, falling back to the default on error.
func (s *Service) Language(ctx context.Context, userID string) string {
	st, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		s.logger.Debug().Err(err).Str("user_id", userID).Msg("settings lookup failed, using default language")
		return models.DefaultLanguage
	}
	return st.Language
}
