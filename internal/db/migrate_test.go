package db

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/cronoapp/internal/models"
)

func TestMigrateCreatesTables(t *testing.T) {
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := RegisterCallbacks(database); err != nil {
		t.Fatalf("register callbacks: %v", err)
	}
	if err := Migrate(database); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for _, model := range Models() {
		if !database.Migrator().HasTable(model) {
			t.Fatalf("expected table for %T", model)
		}
	}

	// Callbacks must not break ordinary queries.
	var count int64
	if err := database.Model(&models.TimeEntry{}).Count(&count).Error; err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty table, got %d", count)
	}
}
