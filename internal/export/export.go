/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package export renders a user's tracked time as JSON, CSV or iCalendar.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/friendsincode/cronoapp/internal/models"
	"github.com/friendsincode/cronoapp/internal/storage"
)

// Format selects the export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatICS  Format = "ics"
)

var (
	ErrInvalidFormat = errors.New("format must be json, csv or ics")
	ErrInvalidRange  = errors.New("end must be after start")
	ErrNoStorage     = errors.New("archive storage not configured")
)

// ParseFormat validates a format name. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatICS:
		return f, nil
	}
	return "", ErrInvalidFormat
}

// Store is what the exporter reads.
type Store interface {
	EntriesByRange(ctx context.Context, userID string, start, end time.Time) ([]models.TimeEntry, error)
	ListActivities(ctx context.Context, userID string) ([]models.Activity, error)
	ListAreas(ctx context.Context, userID string) ([]models.LifeArea, error)
}

// Row is one completed entry with its names resolved.
type Row struct {
	EntryID         string    `json:"entry_id"`
	Area            string    `json:"area"`
	Activity        string    `json:"activity"`
	Color           string    `json:"color"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationSeconds int64     `json:"duration_seconds"`
}

// Result contains rendered export data.
type Result struct {
	Data        []byte
	Filename    string
	ContentType string
}

// ArchiveResult describes a stored export.
type ArchiveResult struct {
	Key      string `json:"key"`
	Location string `json:"location"`
	Filename string `json:"filename"`
	Bytes    int    `json:"bytes"`
}

// Service renders and archives exports.
type Service struct {
	store   Store
	objects storage.ObjectStore
	now     func() time.Time
	logger  zerolog.Logger
}

// NewService creates an exporter. objects may be nil, which disables Archive.
func NewService(st Store, objects storage.ObjectStore, logger zerolog.Logger) *Service {
	return &Service{
		store:   st,
		objects: objects,
		now:     time.Now,
		logger:  logger.With().Str("component", "export").Logger(),
	}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Export renders the completed entries that start within [start, end].
func (s *Service) Export(ctx context.Context, userID string, format Format, start, end time.Time) (*Result, error) {
	if !end.After(start) {
		return nil, ErrInvalidRange
	}
	rows, err := s.rows(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	var data []byte
	var contentType string
	switch format {
	case FormatJSON:
		data, err = renderJSON(rows, start, end, s.now())
		contentType = "application/json"
	case FormatCSV:
		data, err = renderCSV(rows)
		contentType = "text/csv; charset=utf-8"
	case FormatICS:
		data = renderICS(rows, s.now())
		contentType = "text/calendar; charset=utf-8"
	default:
		return nil, ErrInvalidFormat
	}
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}

	filename := fmt.Sprintf("cronoapp-%s-to-%s.%s",
		start.Format("2006-01-02"),
		end.Format("2006-01-02"),
		format)

	return &Result{Data: data, Filename: filename, ContentType: contentType}, nil
}

// Archive renders an export and stores it under exports/<user>/<filename>.
func (s *Service) Archive(ctx context.Context, userID string, format Format, start, end time.Time) (*ArchiveResult, error) {
	if s.objects == nil {
		return nil, ErrNoStorage
	}
	res, err := s.Export(ctx, userID, format, start, end)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("exports/%s/%s", userID, res.Filename)
	if err := s.objects.Put(ctx, key, res.Data, res.ContentType); err != nil {
		return nil, fmt.Errorf("store archive: %w", err)
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("key", key).
		Int("bytes", len(res.Data)).
		Msg("export archived")

	return &ArchiveResult{
		Key:      key,
		Location: s.objects.Location(key),
		Filename: res.Filename,
		Bytes:    len(res.Data),
	}, nil
}

func (s *Service) rows(ctx context.Context, userID string, start, end time.Time) ([]Row, error) {
	var (
		entries    []models.TimeEntry
		activities []models.Activity
		areas      []models.LifeArea
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = s.store.EntriesByRange(gctx, userID, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		activities, err = s.store.ListActivities(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		areas, err = s.store.ListAreas(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load export data: %w", err)
	}

	activityByID := make(map[string]models.Activity, len(activities))
	for _, a := range activities {
		activityByID[a.ID] = a
	}
	areaByID := make(map[string]models.LifeArea, len(areas))
	for _, a := range areas {
		areaByID[a.ID] = a
	}

	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		if e.Running() {
			continue
		}
		row := Row{
			EntryID:         e.ID,
			StartTime:       e.StartTime.UTC(),
			EndTime:         e.EndTime.UTC(),
			DurationSeconds: int64(e.EndTime.Sub(e.StartTime).Seconds()),
		}
		if act, ok := activityByID[e.ActivityID]; ok {
			row.Activity = act.Name
			row.Color = act.Color
			if area, ok := areaByID[act.LifeAreaID]; ok {
				row.Area = area.Name
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type jsonDocument struct {
	ExportedAt time.Time `json:"exported_at"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Entries    []Row     `json:"entries"`
}

func renderJSON(rows []Row, start, end, now time.Time) ([]byte, error) {
	return json.MarshalIndent(jsonDocument{
		ExportedAt: now.UTC(),
		Start:      start.UTC(),
		End:        end.UTC(),
		Entries:    rows,
	}, "", "  ")
}

var csvHeader = []string{"entry_id", "area", "activity", "start_time", "end_time", "duration_seconds"}

func renderCSV(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := w.Write([]string{
			r.EntryID,
			r.Area,
			r.Activity,
			r.StartTime.Format(time.RFC3339),
			r.EndTime.Format(time.RFC3339),
			strconv.FormatInt(r.DurationSeconds, 10),
		}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func renderICS(rows []Row, now time.Time) []byte {
	var buf bytes.Buffer
	buf.WriteString("BEGIN:VCALENDAR\r\n")
	buf.WriteString("VERSION:2.0\r\n")
	buf.WriteString("PRODID:-//Cronoapp//Time Export//EN\r\n")
	buf.WriteString("X-WR-CALNAME:Cronoapp\r\n")
	buf.WriteString("CALSCALE:GREGORIAN\r\n")
	buf.WriteString("METHOD:PUBLISH\r\n")

	stamp := formatICalTime(now)
	for _, r := range rows {
		summary := r.Activity
		if summary == "" {
			summary = "..."
		}
		buf.WriteString("BEGIN:VEVENT\r\n")
		buf.WriteString(fmt.Sprintf("UID:%s@cronoapp\r\n", r.EntryID))
		buf.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", stamp))
		buf.WriteString(fmt.Sprintf("DTSTART:%s\r\n", formatICalTime(r.StartTime)))
		buf.WriteString(fmt.Sprintf("DTEND:%s\r\n", formatICalTime(r.EndTime)))
		buf.WriteString(fmt.Sprintf("SUMMARY:%s\r\n", escapeICalText(summary)))
		if r.Area != "" {
			buf.WriteString(fmt.Sprintf("CATEGORIES:%s\r\n", escapeICalText(r.Area)))
		}
		if r.Color != "" {
			buf.WriteString(fmt.Sprintf("X-APPLE-CALENDAR-COLOR:%s\r\n", r.Color))
		}
		buf.WriteString("END:VEVENT\r\n")
	}

	buf.WriteString("END:VCALENDAR\r\n")
	return buf.Bytes()
}

func formatICalTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

func escapeICalText(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
