package cache

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestNilCacheIsAlwaysMissing(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	if c.IsAvailable() {
		t.Fatal("nil cache must not be available")
	}
	var dest map[string]any
	if c.GetReport(ctx, "u1", "week", "2026-03-02", &dest) {
		t.Fatal("expected miss")
	}
	if err := c.SetReport(ctx, "u1", "week", "2026-03-02", dest); err != nil {
		t.Fatalf("set on nil cache: %v", err)
	}
	if _, found := c.GetActiveEntry(ctx, "u1"); found {
		t.Fatal("expected miss")
	}
	if err := c.InvalidateUser(ctx, "u1"); err != nil {
		t.Fatalf("invalidate on nil cache: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close nil cache: %v", err)
	}
}

func TestUnreachableRedisDisablesCache(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RedisAddr = "127.0.0.1:1"

	c := New(cfg, zerolog.Nop())
	defer c.Close()

	if c.IsAvailable() {
		t.Fatal("expected disabled cache")
	}
	if err := c.SetActiveEntry(context.Background(), "u1", nil); err != nil {
		t.Fatalf("set on disabled cache: %v", err)
	}
}

func TestReportKeyLayout(t *testing.T) {
	got := ReportKey("u1", "month", "2026-03-01@Europe/Rome")
	want := "cronoapp:cache:report:u1:month:2026-03-01@Europe/Rome"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
