/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// ThemePreference selects the client color scheme.
type ThemePreference string

const (
	ThemeLight  ThemePreference = "light"
	ThemeDark   ThemePreference = "dark"
	ThemeSystem ThemePreference = "system"
)

// Default values for a user that never changed their settings.
const (
	DefaultLanguage = "it"
	DefaultTheme    = ThemeSystem
)

// ValidLanguages contains the languages the clients ship translations for.
var ValidLanguages = []string{"it", "en"}

// UserSettings stores per-user preferences that the clients used to keep on the device.
type UserSettings struct {
	UserID               string          `gorm:"size:36;primaryKey" json:"user_id"`
	Language             string          `gorm:"size:8;default:'it'" json:"language"`
	Theme                ThemePreference `gorm:"size:16;default:'system'" json:"theme"`
	NotificationsEnabled bool            `gorm:"default:true" json:"notifications_enabled"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (UserSettings) TableName() string {
	return "user_settings"
}

// DefaultUserSettings returns the settings used before a user stores any preference.
func DefaultUserSettings(userID string) UserSettings {
	return UserSettings{
		UserID:               userID,
		Language:             DefaultLanguage,
		Theme:                DefaultTheme,
		NotificationsEnabled: true,
	}
}

// IsValidLanguage checks if a value is a supported language.
func IsValidLanguage(val string) bool {
	for _, v := range ValidLanguages {
		if v == val {
			return true
		}
	}
	return false
}

// IsValidTheme checks if a value is a known theme preference.
func IsValidTheme(val ThemePreference) bool {
	switch val {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}
