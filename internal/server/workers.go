/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"errors"
	"time"

	"github.com/friendsincode/cronoapp/internal/db"
	"github.com/friendsincode/cronoapp/internal/events"
)

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	if s.election != nil {
		s.election.Start(ctx)
	}

	// Reminders run on the leader only when election is enabled.
	switch {
	case s.leaderAware != nil:
		s.goWorker(ctx, "leader-aware reminder", s.leaderAware.Run)
	case s.reminder != nil:
		s.goWorker(ctx, "reminder", s.reminder.Run)
	}

	if s.db != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					db.UpdateConnectionMetrics(s.db)
				}
			}
		}()
	}

	if s.cache != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.runCacheInvalidationListener(ctx)
		}()
	}
}

func (s *Server) goWorker(ctx context.Context, name string, run func(context.Context) error) {
	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error().Err(err).Str("worker", name).Msg("background worker exited")
		}
	}()
}

// runCacheInvalidationListener drops a user's cached views when their data changes on
// another instance. Local writes invalidate synchronously before they return.
func (s *Server) runCacheInvalidationListener(ctx context.Context) {
	merged := make(chan events.Payload, 64)
	subs := make(map[events.EventType]events.Subscriber, len(events.DataTypes))
	for _, et := range events.DataTypes {
		subs[et] = s.bus.Subscribe(et)
	}
	defer func() {
		for et, sub := range subs {
			s.bus.Unsubscribe(et, sub)
		}
	}()

	for _, sub := range subs {
		go func(sub events.Subscriber) {
			for payload := range sub {
				select {
				case merged <- payload:
				case <-ctx.Done():
					return
				}
			}
		}(sub)
	}

	s.logger.Info().Int("event_types", len(subs)).Msg("cache invalidation listener started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("cache invalidation listener stopped")
			return
		case payload := <-merged:
			userID := payload.UserID()
			if userID == "" {
				continue
			}
			if err := s.cache.InvalidateUser(ctx, userID); err != nil {
				s.logger.Debug().Err(err).Str("user_id", userID).Msg("cache invalidation failed")
			}
		}
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}
