/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package reports aggregates tracked time by life area and by day.
package reports

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/friendsincode/cronoapp/internal/models"
	"github.com/friendsincode/cronoapp/internal/telemetry"
)

// Period selects the report range.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ErrInvalidPeriod is returned for an unknown period.
var ErrInvalidPeriod = errors.New("period must be day, week or month")

// unknownAreaName labels totals whose area no longer exists.
const unknownAreaName = "..."

// ParsePeriod validates a period name.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return p, nil
	}
	return "", ErrInvalidPeriod
}

// Store is the read access reports need.
type Store interface {
	EntriesByRange(ctx context.Context, userID string, start, end time.Time) ([]models.TimeEntry, error)
	ListActivities(ctx context.Context, userID string) ([]models.Activity, error)
	ListAreas(ctx context.Context, userID string) ([]models.LifeArea, error)
}

// Request identifies one report. Anchor picks the period and defaults to Now;
// Now is the end of running entries.
type Request struct {
	UserID   string
	Period   Period
	Anchor   time.Time
	Now      time.Time
	Location *time.Location
	Language string
}

// Cache stores built reports. *cache.Cache satisfies it.
type Cache interface {
	GetReport(ctx context.Context, userID, period, anchor string, dest any) bool
	SetReport(ctx context.Context, userID, period, anchor string, report any) error
	InvalidateReports(ctx context.Context, userID string) error
}

// AreaTotal is the time spent in one life area.
type AreaTotal struct {
	AreaID  string  `json:"area_id"`
	Name    string  `json:"name"`
	Color   string  `json:"color"`
	Seconds int64   `json:"seconds"`
	Percent float64 `json:"percent"`
}

// DayTotal is the time that started on one day of the range.
type DayTotal struct {
	Date    string `json:"date"`
	Label   string `json:"label"`
	Seconds int64  `json:"seconds"`
}

// Report is the aggregated view of a period.
type Report struct {
	Period       Period      `json:"period"`
	Start        time.Time   `json:"start"`
	End          time.Time   `json:"end"`
	Timezone     string      `json:"timezone"`
	TotalSeconds int64       `json:"total_seconds"`
	Sessions     int         `json:"sessions"`
	Areas        []AreaTotal `json:"areas"`
	Days         []DayTotal  `json:"days"`
}

// Service builds reports.
type Service struct {
	store  Store
	cache  Cache
	logger zerolog.Logger
}

// NewService creates a report service. c may be nil.
func NewService(st Store, c Cache, logger zerolog.Logger) *Service {
	return &Service{
		store:  st,
		cache:  c,
		logger: logger.With().Str("component", "reports").Logger(),
	}
}

// Range returns the inclusive bounds of period around now: the day itself, the
// Monday to Sunday week, or the calendar month.
func Range(period Period, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	var start, next time.Time
	switch period {
	case PeriodDay:
		start, next = today, today.AddDate(0, 0, 1)
	case PeriodWeek:
		offset := (int(today.Weekday()) + 6) % 7 // days since Monday
		start = today.AddDate(0, 0, -offset)
		next = start.AddDate(0, 0, 7)
	case PeriodMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		next = start.AddDate(0, 1, 0)
	default:
		return time.Time{}, time.Time{}, ErrInvalidPeriod
	}
	return start, next.Add(-time.Millisecond), nil
}

// Build returns the report for req, from cache when possible.
func (s *Service) Build(ctx context.Context, req Request) (*Report, error) {
	if req.Location == nil {
		req.Location = time.UTC
	}
	if req.Anchor.IsZero() {
		req.Anchor = req.Now
	}
	start, end, err := Range(req.Period, req.Anchor, req.Location)
	if err != nil {
		return nil, err
	}

	anchor := start.Format("2006-01-02") + "@" + req.Location.String() + "@" + req.Language
	if s.cache != nil {
		var cached Report
		if s.cache.GetReport(ctx, req.UserID, string(req.Period), anchor, &cached) {
			telemetry.ReportCacheTotal.WithLabelValues("hit").Inc()
			return &cached, nil
		}
		telemetry.ReportCacheTotal.WithLabelValues("miss").Inc()
	}

	var (
		entries    []models.TimeEntry
		activities []models.Activity
		areas      []models.LifeArea
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = s.store.EntriesByRange(gctx, req.UserID, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		activities, err = s.store.ListActivities(gctx, req.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		areas, err = s.store.ListAreas(gctx, req.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load report data: %w", err)
	}

	report := Aggregate(req, start, end, entries, activities, areas)

	// A running entry keeps growing, so such a report is never cached.
	if s.cache != nil && !hasRunning(entries) {
		if err := s.cache.SetReport(ctx, req.UserID, string(req.Period), anchor, report); err != nil {
			s.logger.Debug().Err(err).Msg("failed to cache report")
		}
	}
	return report, nil
}

// Aggregate computes a report from already loaded rows. Entries whose activity is
// unknown or whose duration is not positive are skipped; running entries end at
// req.Now.
func Aggregate(req Request, start, end time.Time, entries []models.TimeEntry, activities []models.Activity, areas []models.LifeArea) *Report {
	loc := req.Location
	if loc == nil {
		loc = time.UTC
	}

	activityByID := make(map[string]models.Activity, len(activities))
	for _, a := range activities {
		activityByID[a.ID] = a
	}
	areaByID := make(map[string]models.LifeArea, len(areas))
	for _, a := range areas {
		areaByID[a.ID] = a
	}

	report := &Report{
		Period:   req.Period,
		Start:    start,
		End:      end,
		Timezone: loc.String(),
		Areas:    []AreaTotal{},
	}

	dayIndex := make(map[string]int)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		dayIndex[key] = len(report.Days)
		report.Days = append(report.Days, DayTotal{
			Date:  key,
			Label: dayLabel(req.Period, day, req.Language),
		})
	}

	totals := make(map[string]*AreaTotal)
	var order []string
	for _, e := range entries {
		activity, ok := activityByID[e.ActivityID]
		if !ok {
			continue
		}
		seconds := int64(e.Duration(req.Now) / time.Second)
		if seconds <= 0 {
			continue
		}

		report.Sessions++
		report.TotalSeconds += seconds

		at, ok := totals[activity.LifeAreaID]
		if !ok {
			at = &AreaTotal{AreaID: activity.LifeAreaID, Name: unknownAreaName, Color: activity.Color}
			if area, found := areaByID[activity.LifeAreaID]; found {
				at.Name = area.Name
			}
			totals[activity.LifeAreaID] = at
			order = append(order, activity.LifeAreaID)
		}
		at.Seconds += seconds

		if i, found := dayIndex[e.StartTime.In(loc).Format("2006-01-02")]; found {
			report.Days[i].Seconds += seconds
		}
	}

	for _, id := range order {
		at := *totals[id]
		if report.TotalSeconds > 0 {
			at.Percent = float64(at.Seconds) * 100 / float64(report.TotalSeconds)
		}
		report.Areas = append(report.Areas, at)
	}
	sort.SliceStable(report.Areas, func(i, j int) bool {
		return report.Areas[i].Seconds > report.Areas[j].Seconds
	})
	return report
}

var weekdayLabels = map[string][7]string{
	"it": {"dom", "lun", "mar", "mer", "gio", "ven", "sab"},
	"en": {"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
}

func dayLabel(period Period, day time.Time, language string) string {
	switch period {
	case PeriodDay:
		return day.Format("15")
	case PeriodWeek:
		labels, ok := weekdayLabels[language]
		if !ok {
			labels = weekdayLabels[models.DefaultLanguage]
		}
		return labels[day.Weekday()]
	default:
		return day.Format("2")
	}
}

func hasRunning(entries []models.TimeEntry) bool {
	for i := range entries {
		if entries[i].Running() {
			return true
		}
	}
	return false
}

// Invalidate drops cached reports of a user.
func (s *Service) Invalidate(ctx context.Context, userID string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.InvalidateReports(ctx, userID)
}
