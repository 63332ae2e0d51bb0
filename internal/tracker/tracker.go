/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package tracker owns the timer lifecycle and manual edits of time entries.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/cronoapp/internal/events"
	"github.com/friendsincode/cronoapp/internal/models"
	"github.com/friendsincode/cronoapp/internal/store"
	"github.com/friendsincode/cronoapp/internal/telemetry"
)

// MinDuration is the shortest session kept when a timer is stopped; shorter
// sessions are treated as accidental taps and discarded.
const MinDuration = 60 * time.Second

var (
	ErrActivityNotFound = errors.New("activity not found")
	ErrEntryNotFound    = errors.New("entry not found")
	ErrInvalidRange     = errors.New("end must be after start")
	ErrNotRunning       = errors.New("entry is not running")
)

// Store is the persistence the tracker needs.
type Store interface {
	store.ActivityStore
	store.EntryStore
}

// StopResult describes what Stop did with the entry.
type StopResult struct {
	Entry     *models.TimeEntry `json:"entry"`
	Discarded bool              `json:"discarded"`
}

// Service implements timer and entry operations.
type Service struct {
	store  Store
	bus    events.Broker
	cache  Cache
	now    func() time.Time
	logger zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Cache holds the derived views a write must drop before it returns.
// *cache.Cache satisfies it.
type Cache interface {
	GetActiveEntry(ctx context.Context, userID string) (*models.TimeEntry, bool)
	SetActiveEntry(ctx context.Context, userID string, entry *models.TimeEntry) error
	InvalidateUser(ctx context.Context, userID string) error
}

// WithCache enables the active entry cache and synchronous invalidation of
// the user's cached reports.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// NewService creates a tracker.
func NewService(st Store, bus events.Broker, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store:  st,
		bus:    bus,
		now:    time.Now,
		logger: logger.With().Str("component", "tracker").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins a timer on activityID. A timer that is already running is
// stopped first, with the usual short-session rule.
func (s *Service) Start(ctx context.Context, userID, activityID string) (*models.TimeEntry, error) {
	if _, err := s.store.GetActivity(ctx, userID, activityID); err != nil {
		return nil, mapNotFound(err, ErrActivityNotFound)
	}

	running, err := s.store.ActiveEntry(ctx, userID)
	switch {
	case err == nil:
		if _, err := s.Stop(ctx, userID, running.ID); err != nil {
			return nil, fmt.Errorf("stop running timer: %w", err)
		}
	case errors.Is(err, store.ErrNotFound):
	default:
		return nil, err
	}

	entry := &models.TimeEntry{
		UserID:     userID,
		ActivityID: activityID,
		StartTime:  s.now().UTC(),
	}
	if err := s.store.CreateEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}

	s.invalidate(ctx, userID)
	telemetry.TimerEventsTotal.WithLabelValues("started").Inc()
	s.publish(events.EventEntryStarted, entry)
	s.logger.Debug().Str("user_id", userID).Str("entry_id", entry.ID).Msg("timer started")
	return entry, nil
}

// Stop ends a running entry. Sessions shorter than MinDuration are deleted and
// reported as discarded.
func (s *Service) Stop(ctx context.Context, userID, entryID string) (*StopResult, error) {
	entry, err := s.store.GetEntry(ctx, userID, entryID)
	if err != nil {
		return nil, mapNotFound(err, ErrEntryNotFound)
	}
	if !entry.Running() {
		return nil, ErrNotRunning
	}

	now := s.now().UTC()
	if now.Sub(entry.StartTime) < MinDuration {
		if err := s.store.DeleteEntry(ctx, userID, entryID); err != nil {
			return nil, mapNotFound(err, ErrEntryNotFound)
		}
		s.invalidate(ctx, userID)
		telemetry.TimerEventsTotal.WithLabelValues("discarded").Inc()
		s.publish(events.EventEntryDiscarded, entry)
		return &StopResult{Entry: entry, Discarded: true}, nil
	}

	updated, err := s.store.UpdateEntry(ctx, userID, entryID, models.TimeEntryUpdate{EndTime: &now})
	if err != nil {
		return nil, mapNotFound(err, ErrEntryNotFound)
	}

	s.invalidate(ctx, userID)
	telemetry.TimerEventsTotal.WithLabelValues("stopped").Inc()
	s.publish(events.EventEntryStopped, updated)
	return &StopResult{Entry: updated}, nil
}

// AddManual records a completed session.
func (s *Service) AddManual(ctx context.Context, userID, activityID string, start, end time.Time) (*models.TimeEntry, error) {
	if !end.After(start) {
		return nil, ErrInvalidRange
	}
	if _, err := s.store.GetActivity(ctx, userID, activityID); err != nil {
		return nil, mapNotFound(err, ErrActivityNotFound)
	}

	end = end.UTC()
	entry := &models.TimeEntry{
		UserID:     userID,
		ActivityID: activityID,
		StartTime:  start.UTC(),
		EndTime:    &end,
	}
	if err := s.store.CreateEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}

	telemetry.TimerEventsTotal.WithLabelValues("manual").Inc()
	s.invalidate(ctx, userID)
	s.publish(events.EventEntryUpdated, entry)
	return entry, nil
}

// Update edits an entry. The resulting range is validated before it is stored.
func (s *Service) Update(ctx context.Context, userID, entryID string, upd models.TimeEntryUpdate) (*models.TimeEntry, error) {
	if _, err := upd.Columns(); err != nil {
		return nil, err
	}

	current, err := s.store.GetEntry(ctx, userID, entryID)
	if err != nil {
		return nil, mapNotFound(err, ErrEntryNotFound)
	}

	next := upd.Apply(*current)
	if next.EndTime != nil && !next.EndTime.After(next.StartTime) {
		return nil, ErrInvalidRange
	}
	if upd.ActivityID != nil && *upd.ActivityID != current.ActivityID {
		if _, err := s.store.GetActivity(ctx, userID, *upd.ActivityID); err != nil {
			return nil, mapNotFound(err, ErrActivityNotFound)
		}
	}

	updated, err := s.store.UpdateEntry(ctx, userID, entryID, upd)
	if err != nil {
		return nil, mapNotFound(err, ErrEntryNotFound)
	}

	s.invalidate(ctx, userID)
	s.publish(events.EventEntryUpdated, updated)
	return updated, nil
}

// Delete removes an entry.
func (s *Service) Delete(ctx context.Context, userID, entryID string) error {
	entry, err := s.store.GetEntry(ctx, userID, entryID)
	if err != nil {
		return mapNotFound(err, ErrEntryNotFound)
	}
	if err := s.store.DeleteEntry(ctx, userID, entryID); err != nil {
		return mapNotFound(err, ErrEntryNotFound)
	}

	s.invalidate(ctx, userID)
	s.publish(events.EventEntryDeleted, entry)
	return nil
}

// Active returns the running entry, or nil when no timer runs.
func (s *Service) Active(ctx context.Context, userID string) (*models.TimeEntry, error) {
	if s.cache != nil {
		if entry, found := s.cache.GetActiveEntry(ctx, userID); found {
			return entry, nil
		}
	}

	entry, err := s.store.ActiveEntry(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		entry, err = nil, nil
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetActiveEntry(ctx, userID, entry); err != nil {
			s.logger.Debug().Err(err).Msg("failed to cache active entry")
		}
	}
	return entry, nil
}

// invalidate drops the user's active entry and reports before the write returns.
func (s *Service) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateUser(ctx, userID); err != nil {
		s.logger.Debug().Err(err).Str("user_id", userID).Msg("failed to invalidate user cache")
	}
}

func (s *Service) publish(eventType events.EventType, entry *models.TimeEntry) {
	if s.bus == nil {
		return
	}
	payload := events.Payload{
		"user_id":     entry.UserID,
		"entry_id":    entry.ID,
		"activity_id": entry.ActivityID,
		"start_time":  entry.StartTime.Format(time.RFC3339),
	}
	if entry.EndTime != nil {
		payload["end_time"] = entry.EndTime.Format(time.RFC3339)
	}
	s.bus.Publish(eventType, payload)
}

func mapNotFound(err, target error) error {
	if errors.Is(err, store.ErrNotFound) {
		return target
	}
	return err
}
