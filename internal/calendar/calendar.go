/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package calendar builds the day view and applies calendar edits.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/cronoapp/internal/layout"
	"github.com/friendsincode/cronoapp/internal/models"
	"github.com/friendsincode/cronoapp/internal/store"
	"github.com/friendsincode/cronoapp/internal/telemetry"
	"github.com/friendsincode/cronoapp/internal/tracker"
)

// MinutesPerDay is the bottom edge of the day grid.
const MinutesPerDay = 24 * 60

// Edge selects which end of an entry Adjust moves.
type Edge string

const (
	EdgeStart Edge = "start"
	EdgeEnd   Edge = "end"
)

// QuickAdjustments are the minute offsets offered next to a selected entry.
var QuickAdjustments = []int{-15, -10, -5, 5, 10, 15}

var (
	ErrInvalidEdge  = errors.New("edge must be start or end")
	ErrInvalidDelta = errors.New("delta must be non-zero and within one day")
	ErrInvalidSize  = errors.New("duration must be at least one minute")
)

// Store is the read access the day view needs.
type Store interface {
	EntriesByRange(ctx context.Context, userID string, start, end time.Time) ([]models.TimeEntry, error)
	ListActivities(ctx context.Context, userID string) ([]models.Activity, error)
	GetEntry(ctx context.Context, userID, id string) (*models.TimeEntry, error)
}

// EntryUpdater applies validated edits; satisfied by *tracker.Service.
type EntryUpdater interface {
	Update(ctx context.Context, userID, entryID string, upd models.TimeEntryUpdate) (*models.TimeEntry, error)
}

// Block is one entry placed on the day grid.
type Block struct {
	Entry           models.TimeEntry `json:"entry"`
	Activity        *models.Activity `json:"activity,omitempty"`
	Column          int              `json:"column"`
	TotalColumns    int              `json:"total_columns"`
	StartMin        int              `json:"start_min"`
	EndMin          int              `json:"end_min"`
	DurationSeconds int64            `json:"duration_seconds"`
	Running         bool             `json:"running"`
}

// DayView is the laid-out content of one local calendar day.
type DayView struct {
	Date       string  `json:"date"`
	Timezone   string  `json:"timezone"`
	Entries    []Block `json:"entries"`
	MaxColumns int     `json:"max_columns"`
}

// Service builds day views.
type Service struct {
	store   Store
	updater EntryUpdater
	now     func() time.Time
	logger  zerolog.Logger
}

// NewService creates a calendar service.
func NewService(st Store, updater EntryUpdater, logger zerolog.Logger) *Service {
	return &Service{
		store:   st,
		updater: updater,
		now:     time.Now,
		logger:  logger.With().Str("component", "calendar").Logger(),
	}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Day returns the entries that start on date (in loc) laid out in columns.
// Running entries extend to now; entries ending on a later day stop at 24:00.
func (s *Service) Day(ctx context.Context, userID string, date time.Time, loc *time.Location) (*DayView, error) {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.In(loc).Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, loc)
	nextDay := dayStart.AddDate(0, 0, 1)
	dayEnd := nextDay.Add(-time.Millisecond)

	entries, err := s.store.EntriesByRange(ctx, userID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	activities, err := s.store.ListActivities(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load activities: %w", err)
	}
	byID := make(map[string]*models.Activity, len(activities))
	for i := range activities {
		byID[activities[i].ID] = &activities[i]
	}

	now := s.now()
	intervals := make([]layout.Interval, len(entries))
	byEntry := make(map[string]models.TimeEntry, len(entries))
	for i, e := range entries {
		intervals[i] = layout.Interval{
			ID:       e.ID,
			StartMin: layout.MinuteOfDay(e.StartTime.In(loc)),
			EndMin:   endMinute(e.EndOr(now).In(loc), nextDay),
		}
		byEntry[e.ID] = e
	}

	view := &DayView{
		Date:     dayStart.Format("2006-01-02"),
		Timezone: loc.String(),
		Entries:  make([]Block, 0, len(entries)),
	}
	for _, p := range layout.Layout(intervals) {
		e := byEntry[p.Interval.ID]
		view.Entries = append(view.Entries, Block{
			Entry:           e,
			Activity:        byID[e.ActivityID],
			Column:          p.Column,
			TotalColumns:    p.TotalColumns,
			StartMin:        p.StartMin,
			EndMin:          p.EndMin,
			DurationSeconds: int64(e.Duration(now) / time.Second),
			Running:         e.Running(),
		})
		if p.TotalColumns > view.MaxColumns {
			view.MaxColumns = p.TotalColumns
		}
	}
	if len(view.Entries) > 0 {
		telemetry.CalendarMaxColumns.Observe(float64(view.MaxColumns))
	}
	return view, nil
}

func endMinute(end, nextDay time.Time) int {
	if !end.Before(nextDay) {
		return MinutesPerDay
	}
	return layout.MinuteOfDay(end)
}

// Move shifts both ends of an entry by deltaMinutes. A running entry is closed at
// its current end.
func (s *Service) Move(ctx context.Context, userID, entryID string, deltaMinutes int) (*models.TimeEntry, error) {
	if err := checkDelta(deltaMinutes); err != nil {
		return nil, err
	}
	entry, err := s.entry(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}

	shift := time.Duration(deltaMinutes) * time.Minute
	start := entry.StartTime.Add(shift)
	end := entry.EndOr(s.now()).Add(shift)
	return s.updater.Update(ctx, userID, entryID, models.TimeEntryUpdate{StartTime: &start, EndTime: &end})
}

// Adjust moves one edge of an entry by deltaMinutes.
func (s *Service) Adjust(ctx context.Context, userID, entryID string, edge Edge, deltaMinutes int) (*models.TimeEntry, error) {
	if edge != EdgeStart && edge != EdgeEnd {
		return nil, ErrInvalidEdge
	}
	if err := checkDelta(deltaMinutes); err != nil {
		return nil, err
	}
	entry, err := s.entry(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}

	shift := time.Duration(deltaMinutes) * time.Minute
	var upd models.TimeEntryUpdate
	if edge == EdgeStart {
		start := entry.StartTime.Add(shift)
		upd.StartTime = &start
	} else {
		end := entry.EndOr(s.now()).Add(shift)
		upd.EndTime = &end
	}
	return s.updater.Update(ctx, userID, entryID, upd)
}

// Resize sets the end of an entry to start + durationMinutes.
func (s *Service) Resize(ctx context.Context, userID, entryID string, durationMinutes int) (*models.TimeEntry, error) {
	if durationMinutes < 1 {
		return nil, ErrInvalidSize
	}
	entry, err := s.entry(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}
	end := entry.StartTime.Add(time.Duration(durationMinutes) * time.Minute)
	return s.updater.Update(ctx, userID, entryID, models.TimeEntryUpdate{EndTime: &end})
}

func (s *Service) entry(ctx context.Context, userID, entryID string) (*models.TimeEntry, error) {
	entry, err := s.store.GetEntry(ctx, userID, entryID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, tracker.ErrEntryNotFound
	}
	return entry, err
}

func checkDelta(delta int) error {
	if delta == 0 || delta > MinutesPerDay || delta < -MinutesPerDay {
		return ErrInvalidDelta
	}
	return nil
}
