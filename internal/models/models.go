/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"errors"
	"strings"
	"time"
)

// ErrEmptyUpdate is returned when an update carries no fields to change.
var ErrEmptyUpdate = errors.New("update has no fields")

// User represents an authenticated account.
type User struct {
	ID        string    `gorm:"size:36;primaryKey" json:"id"`
	Email     string    `gorm:"size:255;uniqueIndex" json:"email"`
	Password  string    `json:"-"`
	Onboarded bool      `gorm:"default:false" json:"onboarded"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeEmail lowercases and trims an email address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// LifeArea groups activities into a broad area of life (work, health, ...).
type LifeArea struct {
	ID        string    `gorm:"size:36;primaryKey" json:"id"`
	UserID    string    `gorm:"size:36;index;not null" json:"user_id"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	Color     string    `gorm:"size:16" json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Activity is a trackable thing a user does within a life area.
type Activity struct {
	ID         string    `gorm:"size:36;primaryKey" json:"id"`
	UserID     string    `gorm:"size:36;index;not null" json:"user_id"`
	LifeAreaID string    `gorm:"size:36;index;not null" json:"life_area_id"`
	Name       string    `gorm:"size:120;not null" json:"name"`
	Color      string    `gorm:"size:16" json:"color"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TimeEntry is one tracked session. A nil EndTime means the timer is still running.
type TimeEntry struct {
	ID         string     `gorm:"size:36;primaryKey" json:"id"`
	UserID     string     `gorm:"size:36;index:idx_time_entries_user_start,priority:1;not null" json:"user_id"`
	ActivityID string     `gorm:"size:36;index;not null" json:"activity_id"`
	StartTime  time.Time  `gorm:"index:idx_time_entries_user_start,priority:2;not null" json:"start_time"`
	EndTime    *time.Time `gorm:"index" json:"end_time"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Running reports whether the entry has no end time yet.
func (e *TimeEntry) Running() bool {
	return e.EndTime == nil
}

// EndOr returns the entry end, or now when the entry is still running.
func (e *TimeEntry) EndOr(now time.Time) time.Time {
	if e.EndTime == nil {
		return now
	}
	return *e.EndTime
}

// Duration returns the elapsed time of the entry, resolving a running entry to now.
func (e *TimeEntry) Duration(now time.Time) time.Duration {
	return e.EndOr(now).Sub(e.StartTime)
}
