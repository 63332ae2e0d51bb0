/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/friendsincode/cronoapp/internal/telemetry"
)

const startTimeKey = "crono:start_time"

// RegisterCallbacks registers telemetry callbacks around gorm's CRUD processors.
func RegisterCallbacks(db *gorm.DB) error {
	cb := db.Callback()

	if err := cb.Query().Before("gorm:query").Register("telemetry:before_query", beforeCallback); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("telemetry:after_query", afterCallback("query")); err != nil {
		return err
	}
	if err := cb.Create().Before("gorm:create").Register("telemetry:before_create", beforeCallback); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("telemetry:after_create", afterCallback("create")); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("telemetry:before_update", beforeCallback); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("telemetry:after_update", afterCallback("update")); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("telemetry:before_delete", beforeCallback); err != nil {
		return err
	}
	return cb.Delete().After("gorm:delete").Register("telemetry:after_delete", afterCallback("delete"))
}

func beforeCallback(db *gorm.DB) {
	db.InstanceSet(startTimeKey, time.Now())
}

func afterCallback(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(startTimeKey)
		if !ok {
			return
		}
		started, ok := v.(time.Time)
		if !ok {
			return
		}

		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}
		telemetry.DatabaseQueryDuration.WithLabelValues(operation, table).Observe(time.Since(started).Seconds())

		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			telemetry.DatabaseErrorsTotal.WithLabelValues(operation, table).Inc()
		}
	}
}

// UpdateConnectionMetrics publishes connection pool gauges. Called periodically.
func UpdateConnectionMetrics(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	stats := sqlDB.Stats()
	telemetry.DatabaseConnectionsActive.Set(float64(stats.InUse))
	telemetry.DatabaseConnectionsIdle.Set(float64(stats.Idle))
}
