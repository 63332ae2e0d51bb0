/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package storetest provides sqlite-backed repositories for package tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/friendsincode/cronoapp/internal/db"
	"github.com/friendsincode/cronoapp/internal/models"
	"github.com/friendsincode/cronoapp/internal/store"
)

// New returns a migrated in-memory store closed when the test ends.
func New(t testing.TB) *store.GormStore {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// Every connection to ":memory:" is a distinct database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrate(database); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store.NewGormStore(database)
}

// Fixture is a user with one area and activity.
type Fixture struct {
	User     *models.User
	Area     *models.LifeArea
	Activity *models.Activity
}

// Seed creates a user owning one area and one activity.
func Seed(t testing.TB, s *store.GormStore, email string) Fixture {
	t.Helper()
	ctx := context.Background()

	user := &models.User{Email: email, Password: "hash"}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	area := &models.LifeArea{UserID: user.ID, Name: "Lavoro", Color: "#06B6D4"}
	if err := s.CreateArea(ctx, area); err != nil {
		t.Fatalf("create area: %v", err)
	}
	activity := &models.Activity{UserID: user.ID, LifeAreaID: area.ID, Name: "Deep Work", Color: area.Color}
	if err := s.CreateActivity(ctx, activity); err != nil {
		t.Fatalf("create activity: %v", err)
	}
	return Fixture{User: user, Area: area, Activity: activity}
}

// Clock is a settable time source.
type Clock struct {
	T time.Time
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time { return c.T }

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) { c.T = c.T.Add(d) }
