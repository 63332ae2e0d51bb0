/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package reminder nudges users whose timer has been running for a long time.
package reminder

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/cronoapp/internal/events"
	"github.com/friendsincode/cronoapp/internal/models"
	"github.com/friendsincode/cronoapp/internal/telemetry"
)

const (
	DefaultThreshold = 2 * time.Hour
	DefaultInterval  = time.Minute
)

// Store is what the reminder reads.
type Store interface {
	RunningEntriesStartedBefore(ctx context.Context, cutoff time.Time) ([]models.TimeEntry, error)
	GetSettings(ctx context.Context, userID string) (*models.UserSettings, error)
}

// Service periodically publishes timer.reminder for long-running entries.
// Each entry is reminded at most once per process.
type Service struct {
	store     Store
	bus       events.Broker
	threshold time.Duration
	interval  time.Duration
	now       func() time.Time
	logger    zerolog.Logger

	mu   sync.Mutex
	sent map[string]struct{}
}

// NewService creates a reminder. Non-positive durations fall back to defaults.
func NewService(st Store, bus events.Broker, threshold, interval time.Duration, logger zerolog.Logger) *Service {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Service{
		store:     st,
		bus:       bus,
		threshold: threshold,
		interval:  interval,
		now:       time.Now,
		logger:    logger.With().Str("component", "reminder").Logger(),
		sent:      make(map[string]struct{}),
	}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Run checks for long-running timers every interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info().Dur("threshold", s.threshold).Dur("interval", s.interval).Msg("reminder started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("reminder stopping")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	if _, err := s.Check(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error().Err(err).Msg("reminder check failed")
	}
}

// Check runs one pass and returns the number of reminders published.
func (s *Service) Check(ctx context.Context) (int, error) {
	now := s.now().UTC()
	entries, err := s.store.RunningEntriesStartedBefore(ctx, now.Add(-s.threshold))
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Forget entries that stopped so the map does not grow without bound.
	current := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		current[e.ID] = struct{}{}
	}
	for id := range s.sent {
		if _, ok := current[id]; !ok {
			delete(s.sent, id)
		}
	}

	count := 0
	for _, e := range entries {
		if _, done := s.sent[e.ID]; done {
			continue
		}
		if !s.enabledFor(ctx, e.UserID) {
			s.sent[e.ID] = struct{}{}
			continue
		}

		s.bus.Publish(events.EventTimerReminder, events.Payload{
			"user_id":         e.UserID,
			"entry_id":        e.ID,
			"activity_id":     e.ActivityID,
			"start_time":      e.StartTime.Format(time.RFC3339),
			"elapsed_seconds": int64(now.Sub(e.StartTime).Seconds()),
		})
		s.sent[e.ID] = struct{}{}
		telemetry.RemindersSentTotal.Inc()
		count++

		s.logger.Debug().Str("user_id", e.UserID).Str("entry_id", e.ID).Msg("reminder sent")
	}
	return count, nil
}

func (s *Service) enabledFor(ctx context.Context, userID string) bool {
	st, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return true
	}
	return st.NotificationsEnabled
}
