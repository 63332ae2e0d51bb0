/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/friendsincode/cronoapp/internal/models"
)

// GormStore implements Repository on top of gorm.
type GormStore struct {
	db *gorm.DB
}

var _ Repository = (*GormStore)(nil)

// NewGormStore wraps a migrated database handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// Users

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	ensureID(&user.ID)
	user.Email = models.NormalizeEmail(user.Email)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrConflict
		}
		return tx.Create(user).Error
	})
}

func (s *GormStore) UserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *GormStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "email = ?", models.NormalizeEmail(email)).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *GormStore) SetOnboarded(ctx context.Context, userID string, onboarded bool) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("onboarded", onboarded)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Life areas

func (s *GormStore) ListAreas(ctx context.Context, userID string) ([]models.LifeArea, error) {
	var areas []models.LifeArea
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&areas).Error
	return areas, err
}

func (s *GormStore) GetArea(ctx context.Context, userID, id string) (*models.LifeArea, error) {
	var area models.LifeArea
	if err := s.db.WithContext(ctx).First(&area, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, notFound(err)
	}
	return &area, nil
}

func (s *GormStore) CreateArea(ctx context.Context, area *models.LifeArea) error {
	ensureID(&area.ID)
	return s.db.WithContext(ctx).Create(area).Error
}

func (s *GormStore) UpdateArea(ctx context.Context, userID, id string, upd models.LifeAreaUpdate) (*models.LifeArea, error) {
	cols, err := upd.Columns()
	if err != nil {
		return nil, err
	}
	res := s.db.WithContext(ctx).Model(&models.LifeArea{}).Where("id = ? AND user_id = ?", id, userID).Updates(cols)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetArea(ctx, userID, id)
}

func (s *GormStore) DeleteArea(ctx context.Context, userID, id string) (DeleteStats, error) {
	var stats DeleteStats
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var area models.LifeArea
		if err := tx.First(&area, "id = ? AND user_id = ?", id, userID).Error; err != nil {
			return notFound(err)
		}

		var activityIDs []string
		if err := tx.Model(&models.Activity{}).
			Where("user_id = ? AND life_area_id = ?", userID, id).
			Pluck("id", &activityIDs).Error; err != nil {
			return err
		}

		entryIDs, err := entryIDsForActivities(tx, userID, activityIDs)
		if err != nil {
			return err
		}

		if stats.Entries, err = deleteInBatches(tx, &models.TimeEntry{}, userID, entryIDs); err != nil {
			return fmt.Errorf("delete entries: %w", err)
		}
		if stats.Activities, err = deleteInBatches(tx, &models.Activity{}, userID, activityIDs); err != nil {
			return fmt.Errorf("delete activities: %w", err)
		}
		if stats.Areas, err = deleteInBatches(tx, &models.LifeArea{}, userID, []string{id}); err != nil {
			return fmt.Errorf("delete area: %w", err)
		}
		return nil
	})
	return stats, err
}

// Activities

func (s *GormStore) ListActivities(ctx context.Context, userID string) ([]models.Activity, error) {
	var activities []models.Activity
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&activities).Error
	return activities, err
}

func (s *GormStore) GetActivity(ctx context.Context, userID, id string) (*models.Activity, error) {
	var activity models.Activity
	if err := s.db.WithContext(ctx).First(&activity, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, notFound(err)
	}
	return &activity, nil
}

func (s *GormStore) CreateActivity(ctx context.Context, activity *models.Activity) error {
	ensureID(&activity.ID)
	return s.db.WithContext(ctx).Create(activity).Error
}

func (s *GormStore) UpdateActivity(ctx context.Context, userID, id string, upd models.ActivityUpdate) (*models.Activity, error) {
	cols, err := upd.Columns()
	if err != nil {
		return nil, err
	}
	res := s.db.WithContext(ctx).Model(&models.Activity{}).Where("id = ? AND user_id = ?", id, userID).Updates(cols)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetActivity(ctx, userID, id)
}

func (s *GormStore) DeleteActivity(ctx context.Context, userID, id string) (DeleteStats, error) {
	var stats DeleteStats
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var activity models.Activity
		if err := tx.First(&activity, "id = ? AND user_id = ?", id, userID).Error; err != nil {
			return notFound(err)
		}

		entryIDs, err := entryIDsForActivities(tx, userID, []string{id})
		if err != nil {
			return err
		}
		if stats.Entries, err = deleteInBatches(tx, &models.TimeEntry{}, userID, entryIDs); err != nil {
			return fmt.Errorf("delete entries: %w", err)
		}
		if stats.Activities, err = deleteInBatches(tx, &models.Activity{}, userID, []string{id}); err != nil {
			return fmt.Errorf("delete activity: %w", err)
		}
		return nil
	})
	return stats, err
}

func entryIDsForActivities(tx *gorm.DB, userID string, activityIDs []string) ([]string, error) {
	var ids []string
	for _, part := range chunk(activityIDs, DeleteBatchSize) {
		var found []string
		if err := tx.Model(&models.TimeEntry{}).
			Where("user_id = ? AND activity_id IN ?", userID, part).
			Pluck("id", &found).Error; err != nil {
			return nil, fmt.Errorf("collect entries: %w", err)
		}
		ids = append(ids, found...)
	}
	return ids, nil
}

func deleteInBatches(tx *gorm.DB, model any, userID string, ids []string) (int64, error) {
	var total int64
	for _, part := range chunk(ids, DeleteBatchSize) {
		res := tx.Where("user_id = ? AND id IN ?", userID, part).Delete(model)
		if res.Error != nil {
			return total, res.Error
		}
		total += res.RowsAffected
	}
	return total, nil
}

// Time entries

func (s *GormStore) EntriesByRange(ctx context.Context, userID string, start, end time.Time) ([]models.TimeEntry, error) {
	var entries []models.TimeEntry
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND start_time >= ? AND start_time <= ?", userID, start.UTC(), end.UTC()).
		Order("start_time ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

func (s *GormStore) ActiveEntry(ctx context.Context, userID string) (*models.TimeEntry, error) {
	var entry models.TimeEntry
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND end_time IS NULL", userID).
		Order("start_time DESC").
		First(&entry).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &entry, nil
}

func (s *GormStore) RunningEntriesStartedBefore(ctx context.Context, cutoff time.Time) ([]models.TimeEntry, error) {
	var entries []models.TimeEntry
	err := s.db.WithContext(ctx).
		Where("end_time IS NULL AND start_time <= ?", cutoff.UTC()).
		Order("start_time ASC").
		Find(&entries).Error
	return entries, err
}

func (s *GormStore) GetEntry(ctx context.Context, userID, id string) (*models.TimeEntry, error) {
	var entry models.TimeEntry
	if err := s.db.WithContext(ctx).First(&entry, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, notFound(err)
	}
	return &entry, nil
}

func (s *GormStore) CreateEntry(ctx context.Context, entry *models.TimeEntry) error {
	ensureID(&entry.ID)
	entry.StartTime = entry.StartTime.UTC()
	if entry.EndTime != nil {
		end := entry.EndTime.UTC()
		entry.EndTime = &end
	}
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *GormStore) UpdateEntry(ctx context.Context, userID, id string, upd models.TimeEntryUpdate) (*models.TimeEntry, error) {
	if upd.StartTime != nil {
		start := upd.StartTime.UTC()
		upd.StartTime = &start
	}
	if upd.EndTime != nil {
		end := upd.EndTime.UTC()
		upd.EndTime = &end
	}
	cols, err := upd.Columns()
	if err != nil {
		return nil, err
	}
	res := s.db.WithContext(ctx).Model(&models.TimeEntry{}).Where("id = ? AND user_id = ?", id, userID).Updates(cols)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetEntry(ctx, userID, id)
}

func (s *GormStore) DeleteEntry(ctx context.Context, userID, id string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.TimeEntry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Settings

func (s *GormStore) GetSettings(ctx context.Context, userID string) (*models.UserSettings, error) {
	var settings models.UserSettings
	err := s.db.WithContext(ctx).First(&settings, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		def := models.DefaultUserSettings(userID)
		return &def, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *GormStore) UpdateSettings(ctx context.Context, userID string, upd models.SettingsUpdate) (*models.UserSettings, error) {
	if _, err := upd.Columns(); err != nil {
		return nil, err
	}

	var out *models.UserSettings
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		settings := models.DefaultUserSettings(userID)
		err := tx.First(&settings, "user_id = ?", userID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if upd.Language != nil {
			settings.Language = *upd.Language
		}
		if upd.Theme != nil {
			settings.Theme = *upd.Theme
		}
		if upd.NotificationsEnabled != nil {
			settings.NotificationsEnabled = *upd.NotificationsEnabled
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"language", "theme", "notifications_enabled", "updated_at"}),
		}).Create(&settings).Error; err != nil {
			return err
		}
		out = &settings
		return nil
	})
	return out, err
}

// Templates

func (s *GormStore) ApplyTemplate(ctx context.Context, userID string, seed []SeedArea) ([]models.LifeArea, []models.Activity, error) {
	var (
		areas      []models.LifeArea
		activities []models.Activity
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, sa := range seed {
			area := models.LifeArea{
				ID:     uuid.NewString(),
				UserID: userID,
				Name:   sa.Name,
				Color:  sa.Color,
			}
			if err := tx.Create(&area).Error; err != nil {
				return fmt.Errorf("create area %q: %w", sa.Name, err)
			}
			areas = append(areas, area)

			for _, name := range sa.Activities {
				activity := models.Activity{
					ID:         uuid.NewString(),
					UserID:     userID,
					LifeAreaID: area.ID,
					Name:       name,
					Color:      sa.Color,
				}
				if err := tx.Create(&activity).Error; err != nil {
					return fmt.Errorf("create activity %q: %w", name, err)
				}
				activities = append(activities, activity)
			}
		}

		res := tx.Model(&models.User{}).Where("id = ?", userID).Update("onboarded", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return areas, activities, nil
}

// API keys

func (s *GormStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	ensureID(&key.ID)
	return s.db.WithContext(ctx).Create(key).Error
}

func (s *GormStore) ListAPIKeys(ctx context.Context, userID string) ([]models.APIKey, error) {
	var keys []models.APIKey
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&keys).Error
	return keys, err
}

func (s *GormStore) APIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	var key models.APIKey
	if err := s.db.WithContext(ctx).First(&key, "key_hash = ?", hash).Error; err != nil {
		return nil, notFound(err)
	}
	return &key, nil
}

func (s *GormStore) RevokeAPIKey(ctx context.Context, userID, id string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.APIKey{}).
		Where("id = ? AND user_id = ? AND revoked_at IS NULL", id, userID).
		Update("revoked_at", at.UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) TouchAPIKey(ctx context.Context, id string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.APIKey{}).Where("id = ?", id).Update("last_used_at", at.UTC()).Error
}
