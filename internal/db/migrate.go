/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"gorm.io/gorm"

	"github.com/friendsincode/cronoapp/internal/models"
)

// Models lists every table managed by Migrate, in dependency order.
func Models() []any {
	return []any{
		&models.User{},
		&models.UserSettings{},
		&models.APIKey{},
		&models.LifeArea{},
		&models.Activity{},
		&models.TimeEntry{},
	}
}

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(Models()...); err != nil {
		return err
	}

	if err := applyPostgresSingleRunningTimerGuard(database); err != nil {
		return err
	}

	return nil
}

// applyPostgresSingleRunningTimerGuard allows at most one open entry per user. Other
// backends rely on the tracker stopping the previous timer before starting a new one.
func applyPostgresSingleRunningTimerGuard(database *gorm.DB) error {
	if database.Dialector.Name() != "postgres" {
		return nil
	}

	return database.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS idx_time_entries_one_running
ON time_entries (user_id)
WHERE end_time IS NULL
`).Error
}
