/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// LifeAreaUpdate lists the mutable fields of a life area. Nil fields are left unchanged.
type LifeAreaUpdate struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

// Columns returns the column map for a gorm Updates call.
func (u LifeAreaUpdate) Columns() (map[string]any, error) {
	cols := make(map[string]any, 2)
	if u.Name != nil {
		cols["name"] = *u.Name
	}
	if u.Color != nil {
		cols["color"] = *u.Color
	}
	if len(cols) == 0 {
		return nil, ErrEmptyUpdate
	}
	return cols, nil
}

// ActivityUpdate lists the mutable fields of an activity.
type ActivityUpdate struct {
	Name       *string `json:"name,omitempty"`
	Color      *string `json:"color,omitempty"`
	LifeAreaID *string `json:"life_area_id,omitempty"`
}

// Columns returns the column map for a gorm Updates call.
func (u ActivityUpdate) Columns() (map[string]any, error) {
	cols := make(map[string]any, 3)
	if u.Name != nil {
		cols["name"] = *u.Name
	}
	if u.Color != nil {
		cols["color"] = *u.Color
	}
	if u.LifeAreaID != nil {
		cols["life_area_id"] = *u.LifeAreaID
	}
	if len(cols) == 0 {
		return nil, ErrEmptyUpdate
	}
	return cols, nil
}

// TimeEntryUpdate lists the mutable fields of a time entry. Ownership and creation
// time are never part of an update.
type TimeEntryUpdate struct {
	ActivityID *string    `json:"activity_id,omitempty"`
	StartTime  *time.Time `json:"start_time,omitempty"`
	EndTime    *time.Time `json:"end_time,omitempty"`
}

// Columns returns the column map for a gorm Updates call.
func (u TimeEntryUpdate) Columns() (map[string]any, error) {
	cols := make(map[string]any, 3)
	if u.ActivityID != nil {
		cols["activity_id"] = *u.ActivityID
	}
	if u.StartTime != nil {
		cols["start_time"] = *u.StartTime
	}
	if u.EndTime != nil {
		cols["end_time"] = *u.EndTime
	}
	if len(cols) == 0 {
		return nil, ErrEmptyUpdate
	}
	return cols, nil
}

// Apply returns a copy of entry with the update applied, used to validate the result
// before it is persisted.
func (u TimeEntryUpdate) Apply(entry TimeEntry) TimeEntry {
	if u.ActivityID != nil {
		entry.ActivityID = *u.ActivityID
	}
	if u.StartTime != nil {
		entry.StartTime = *u.StartTime
	}
	if u.EndTime != nil {
		end := *u.EndTime
		entry.EndTime = &end
	}
	return entry
}

// SettingsUpdate lists the user preferences a client may change.
type SettingsUpdate struct {
	Language             *string          `json:"language,omitempty"`
	Theme                *ThemePreference `json:"theme,omitempty"`
	NotificationsEnabled *bool            `json:"notifications_enabled,omitempty"`
}

// Columns returns the column map for a gorm Updates call.
func (u SettingsUpdate) Columns() (map[string]any, error) {
	cols := make(map[string]any, 3)
	if u.Language != nil {
		cols["language"] = *u.Language
	}
	if u.Theme != nil {
		cols["theme"] = string(*u.Theme)
	}
	if u.NotificationsEnabled != nil {
		cols["notifications_enabled"] = *u.NotificationsEnabled
	}
	if len(cols) == 0 {
		return nil, ErrEmptyUpdate
	}
	return cols, nil
}
