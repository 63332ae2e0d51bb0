/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package store is the explicit persistence boundary of cronoapp. Every query is
// scoped by the owning user id.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/friendsincode/cronoapp/internal/models"
)

// DeleteBatchSize bounds the number of ids removed per DELETE statement and the
// size of IN lists used while collecting cascaded rows.
const DeleteBatchSize = 450

var (
	// ErrNotFound is returned when a record does not exist or belongs to another user.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint would be violated.
	ErrConflict = errors.New("conflict")
)

// DeleteStats reports how many rows a cascading delete removed.
type DeleteStats struct {
	Areas      int64 `json:"areas"`
	Activities int64 `json:"activities"`
	Entries    int64 `json:"entries"`
}

// SeedArea is one life area created by a template, with its activity names.
type SeedArea struct {
	Name       string
	Color      string
	Activities []string
}

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	UserByID(ctx context.Context, id string) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	SetOnboarded(ctx context.Context, userID string, onboarded bool) error
}

// AreaStore persists life areas.
type AreaStore interface {
	ListAreas(ctx context.Context, userID string) ([]models.LifeArea, error)
	GetArea(ctx context.Context, userID, id string) (*models.LifeArea, error)
	CreateArea(ctx context.Context, area *models.LifeArea) error
	UpdateArea(ctx context.Context, userID, id string, upd models.LifeAreaUpdate) (*models.LifeArea, error)
	// DeleteArea removes the area with its activities and their entries.
	DeleteArea(ctx context.Context, userID, id string) (DeleteStats, error)
}

// ActivityStore persists activities.
type ActivityStore interface {
	ListActivities(ctx context.Context, userID string) ([]models.Activity, error)
	GetActivity(ctx context.Context, userID, id string) (*models.Activity, error)
	CreateActivity(ctx context.Context, activity *models.Activity) error
	UpdateActivity(ctx context.Context, userID, id string, upd models.ActivityUpdate) (*models.Activity, error)
	// DeleteActivity removes the activity and its entries.
	DeleteActivity(ctx context.Context, userID, id string) (DeleteStats, error)
}

// EntryStore persists time entries.
type EntryStore interface {
	// EntriesByRange returns entries whose start lies in [start, end], ordered by start.
	EntriesByRange(ctx context.Context, userID string, start, end time.Time) ([]models.TimeEntry, error)
	// ActiveEntry returns the most recently started open entry.
	ActiveEntry(ctx context.Context, userID string) (*models.TimeEntry, error)
	// RunningEntriesStartedBefore lists open entries of every user started at or before cutoff.
	RunningEntriesStartedBefore(ctx context.Context, cutoff time.Time) ([]models.TimeEntry, error)
	GetEntry(ctx context.Context, userID, id string) (*models.TimeEntry, error)
	CreateEntry(ctx context.Context, entry *models.TimeEntry) error
	UpdateEntry(ctx context.Context, userID, id string, upd models.TimeEntryUpdate) (*models.TimeEntry, error)
	DeleteEntry(ctx context.Context, userID, id string) error
}

// SettingsStore persists user preferences.
type SettingsStore interface {
	// GetSettings returns stored settings or the defaults when none were saved.
	GetSettings(ctx context.Context, userID string) (*models.UserSettings, error)
	UpdateSettings(ctx context.Context, userID string, upd models.SettingsUpdate) (*models.UserSettings, error)
}

// TemplateStore applies onboarding templates.
type TemplateStore interface {
	// ApplyTemplate creates areas and activities and marks the user onboarded,
	// atomically.
	ApplyTemplate(ctx context.Context, userID string, seed []SeedArea) ([]models.LifeArea, []models.Activity, error)
}

// APIKeyStore persists personal API keys.
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, userID string) ([]models.APIKey, error)
	APIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, userID, id string, at time.Time) error
	TouchAPIKey(ctx context.Context, id string, at time.Time) error
}

// Repository is the full persistence surface.
type Repository interface {
	UserStore
	AreaStore
	ActivityStore
	EntryStore
	SettingsStore
	TemplateStore
	APIKeyStore
}

// chunk splits ids into slices of at most size elements.
func chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = DeleteBatchSize
	}
	out := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}
