package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/friendsincode/cronoapp/internal/events"
	"github.com/friendsincode/cronoapp/internal/models"
	"github.com/friendsincode/cronoapp/internal/store/storetest"
)

func TestUpdateValidatesAndPublishes(t *testing.T) {
	st := storetest.New(t)
	fx := storetest.Seed(t, st, "settings@example.com")
	bus := events.NewBus()
	sub := bus.Subscribe(events.EventSettingsUpdated)
	svc := NewService(st, bus, zerolog.Nop())
	ctx := context.Background()

	fr := "fr"
	if _, err := svc.Update(ctx, fx.User.ID, models.SettingsUpdate{Language: &fr}); !errors.Is(err, ErrInvalidLanguage) {
		t.Fatalf("expected ErrInvalidLanguage, got %v", err)
	}
	sepia := models.ThemePreference("sepia")
	if _, err := svc.Update(ctx, fx.User.ID, models.SettingsUpdate{Theme: &sepia}); !errors.Is(err, ErrInvalidTheme) {
		t.Fatalf("expected ErrInvalidTheme, got %v", err)
	}
	if _, err := svc.Update(ctx, fx.User.ID, models.SettingsUpdate{}); !errors.Is(err, models.ErrEmptyUpdate) {
		t.Fatalf("expected ErrEmptyUpdate, got %v", err)
	}

	if got := svc.Language(ctx, fx.User.ID); got != models.DefaultLanguage {
		t.Fatalf("expected default language, got %q", got)
	}

	en := "en"
	off := false
	updated, err := svc.Update(ctx, fx.User.ID, models.SettingsUpdate{Language: &en, NotificationsEnabled: &off})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Language != "en" || updated.NotificationsEnabled {
		t.Fatalf("unexpected settings %+v", updated)
	}
	if got := svc.Language(ctx, fx.User.ID); got != "en" {
		t.Fatalf("expected en, got %q", got)
	}

	select {
	case p := <-sub:
		if p["language"] != "en" || p.UserID() != fx.User.ID {
			t.Fatalf("unexpected payload %v", p)
		}
	default:
		t.Fatal("expected settings.updated event")
	}
}
