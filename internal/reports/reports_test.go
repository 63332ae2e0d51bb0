package reports

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/cronoapp/internal/models"
	"github.com/friendsincode/cronoapp/internal/store/storetest"
)

func TestRange(t *testing.T) {
	loc := time.UTC
	// Wednesday
	now := time.Date(2026, 3, 4, 15, 30, 0, 0, loc)

	tests := []struct {
		period    Period
		wantStart time.Time
		wantDays  int
	}{
		{PeriodDay, time.Date(2026, 3, 4, 0, 0, 0, 0, loc), 1},
		{PeriodWeek, time.Date(2026, 3, 2, 0, 0, 0, 0, loc), 7},
		{PeriodMonth, time.Date(2026, 3, 1, 0, 0, 0, 0, loc), 31},
	}
	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			start, end, err := Range(tt.period, now, loc)
			if err != nil {
				t.Fatalf("range: %v", err)
			}
			if !start.Equal(tt.wantStart) {
				t.Fatalf("start = %v, want %v", start, tt.wantStart)
			}
			wantEnd := tt.wantStart.AddDate(0, 0, tt.wantDays).Add(-time.Millisecond)
			if !end.Equal(wantEnd) {
				t.Fatalf("end = %v, want %v", end, wantEnd)
			}
		})
	}

	sunday := time.Date(2026, 3, 8, 22, 0, 0, 0, loc)
	start, _, _ := Range(PeriodWeek, sunday, loc)
	if !start.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, loc)) {
		t.Fatalf("sunday belongs to the week starting monday, got %v", start)
	}

	if _, _, err := Range("year", now, loc); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestAggregate(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, loc)
	req := Request{UserID: "u", Period: PeriodWeek, Now: now, Location: loc, Language: "it"}
	start, end, _ := Range(PeriodWeek, now, loc)

	areas := []models.LifeArea{
		{ID: "work", Name: "Lavoro"},
		{ID: "health", Name: "Salute"},
	}
	activities := []models.Activity{
		{ID: "meet", LifeAreaID: "work", Color: "#06B6D4"},
		{ID: "gym", LifeAreaID: "health", Color: "#10B981"},
		{ID: "ghost-area", LifeAreaID: "deleted", Color: "#000000"},
	}
	at := func(day, hour int) time.Time { return time.Date(2026, 3, day, hour, 0, 0, 0, loc) }
	end1 := at(2, 10)
	end2 := at(3, 8)
	end3 := at(4, 9)
	same := at(4, 7)
	end5 := at(2, 20)
	entries := []models.TimeEntry{
		{ID: "1", ActivityID: "meet", StartTime: at(2, 9), EndTime: &end1},       // 1h work monday
		{ID: "2", ActivityID: "gym", StartTime: at(3, 6), EndTime: &end2},        // 2h health tuesday
		{ID: "3", ActivityID: "meet", StartTime: at(4, 8), EndTime: &end3},       // 1h work wednesday
		{ID: "4", ActivityID: "meet", StartTime: same, EndTime: &same},           // zero, skipped
		{ID: "5", ActivityID: "missing", StartTime: at(2, 18), EndTime: &end5},   // orphan, skipped
		{ID: "6", ActivityID: "gym", StartTime: at(4, 11)},                       // running, 1h to now
		{ID: "7", ActivityID: "ghost-area", StartTime: at(4, 10), EndTime: &now}, // 2h, area missing
	}

	r := Aggregate(req, start, end, entries, activities, areas)

	if r.Sessions != 5 {
		t.Fatalf("expected 5 sessions, got %d", r.Sessions)
	}
	if r.TotalSeconds != 7*3600 {
		t.Fatalf("expected 7h, got %ds", r.TotalSeconds)
	}

	if len(r.Areas) != 3 {
		t.Fatalf("expected 3 areas, got %+v", r.Areas)
	}
	if r.Areas[0].AreaID != "health" || r.Areas[0].Seconds != 3*3600 {
		t.Fatalf("largest area should be health with 3h, got %+v", r.Areas[0])
	}
	for i := 1; i < len(r.Areas); i++ {
		if r.Areas[i].Seconds > r.Areas[i-1].Seconds {
			t.Fatalf("areas not sorted desc: %+v", r.Areas)
		}
	}
	for _, a := range r.Areas {
		if a.AreaID == "deleted" && a.Name != unknownAreaName {
			t.Fatalf("missing area should use placeholder name, got %q", a.Name)
		}
		if a.AreaID == "work" && a.Color != "#06B6D4" {
			t.Fatalf("area color comes from its activity, got %q", a.Color)
		}
	}

	if len(r.Days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(r.Days))
	}
	if r.Days[0].Label != "lun" || r.Days[6].Label != "dom" {
		t.Fatalf("unexpected labels %q..%q", r.Days[0].Label, r.Days[6].Label)
	}
	wantDays := []int64{3600, 7200, 4 * 3600, 0, 0, 0, 0}
	for i, want := range wantDays {
		if r.Days[i].Seconds != want {
			t.Errorf("day %s: got %d want %d", r.Days[i].Date, r.Days[i].Seconds, want)
		}
	}
}

func TestAggregateLabels(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, loc)

	start, end, _ := Range(PeriodMonth, now, loc)
	r := Aggregate(Request{Period: PeriodMonth, Now: now, Location: loc}, start, end, nil, nil, nil)
	if len(r.Days) != 28 || r.Days[0].Label != "1" || r.Days[27].Label != "28" {
		t.Fatalf("unexpected month days %+v", r.Days)
	}
	if r.Areas == nil {
		t.Fatal("areas must be an empty list, not null")
	}

	start, end, _ = Range(PeriodDay, now, loc)
	r = Aggregate(Request{Period: PeriodDay, Now: now, Location: loc}, start, end, nil, nil, nil)
	if len(r.Days) != 1 || r.Days[0].Label != "00" {
		t.Fatalf("unexpected day breakdown %+v", r.Days)
	}

	start, end, _ = Range(PeriodWeek, now, loc)
	r = Aggregate(Request{Period: PeriodWeek, Now: now, Location: loc, Language: "en"}, start, end, nil, nil, nil)
	if r.Days[0].Label != "Mon" {
		t.Fatalf("expected english label, got %q", r.Days[0].Label)
	}
}

func TestBuildFromStore(t *testing.T) {
	st := storetest.New(t)
	fx := storetest.Seed(t, st, "reports@example.com")
	ctx := context.Background()

	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	end := now.Add(-time.Hour)
	if err := st.CreateEntry(ctx, &models.TimeEntry{
		UserID: fx.User.ID, ActivityID: fx.Activity.ID, StartTime: now.Add(-3 * time.Hour), EndTime: &end,
	}); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	svc := NewService(st, nil, zerolog.Nop())
	r, err := svc.Build(ctx, Request{UserID: fx.User.ID, Period: PeriodDay, Now: now, Location: time.UTC})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if r.TotalSeconds != 2*3600 || len(r.Areas) != 1 || r.Areas[0].Name != fx.Area.Name {
		t.Fatalf("unexpected report %+v", r)
	}
	if r.Areas[0].Percent != 100 {
		t.Fatalf("expected 100%%, got %v", r.Areas[0].Percent)
	}
}

func TestParsePeriod(t *testing.T) {
	if p, err := ParsePeriod("week"); err != nil || p != PeriodWeek {
		t.Fatalf("unexpected %v %v", p, err)
	}
	if _, err := ParsePeriod("Settimana"); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

// memCache is a Cache kept in a map, round-tripping through JSON like redis does.
type memCache struct {
	items map[string][]byte
	sets  int
}

func newMemCache() *memCache {
	return &memCache{items: make(map[string][]byte)}
}

func (c *memCache) key(userID, period, anchor string) string {
	return userID + "|" + period + "|" + anchor
}

func (c *memCache) GetReport(_ context.Context, userID, period, anchor string, dest any) bool {
	data, ok := c.items[c.key(userID, period, anchor)]
	if !ok {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

func (c *memCache) SetReport(_ context.Context, userID, period, anchor string, report any) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	c.sets++
	c.items[c.key(userID, period, anchor)] = data
	return nil
}

func (c *memCache) InvalidateReports(_ context.Context, userID string) error {
	for k := range c.items {
		if len(k) > len(userID) && k[:len(userID)+1] == userID+"|" {
			delete(c.items, k)
		}
	}
	return nil
}

func TestBuildServesCacheUntilInvalidated(t *testing.T) {
	st := storetest.New(t)
	fx := storetest.Seed(t, st, "cached@example.com")
	ctx := context.Background()
	c := newMemCache()
	svc := NewService(st, c, zerolog.Nop())

	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	addDone := func(start time.Time, d time.Duration) {
		t.Helper()
		end := start.Add(d)
		if err := st.CreateEntry(ctx, &models.TimeEntry{
			UserID: fx.User.ID, ActivityID: fx.Activity.ID, StartTime: start, EndTime: &end,
		}); err != nil {
			t.Fatalf("create entry: %v", err)
		}
	}
	req := Request{UserID: fx.User.ID, Period: PeriodDay, Now: now, Location: time.UTC}

	addDone(now.Add(-4*time.Hour), time.Hour)
	r, err := svc.Build(ctx, req)
	if err != nil || r.TotalSeconds != 3600 {
		t.Fatalf("first build = %+v (%v)", r, err)
	}
	if c.sets != 1 {
		t.Fatalf("completed report should be cached, sets = %d", c.sets)
	}

	addDone(now.Add(-2*time.Hour), 30*time.Minute)
	r, _ = svc.Build(ctx, req)
	if r.TotalSeconds != 3600 {
		t.Fatalf("expected cached total before invalidation, got %d", r.TotalSeconds)
	}

	if err := svc.Invalidate(ctx, fx.User.ID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	r, _ = svc.Build(ctx, req)
	if r.TotalSeconds != 5400 || r.Sessions != 2 {
		t.Fatalf("after invalidation = %+v", r)
	}
}

func TestBuildDoesNotCacheRunningEntries(t *testing.T) {
	st := storetest.New(t)
	fx := storetest.Seed(t, st, "running@example.com")
	ctx := context.Background()
	c := newMemCache()
	svc := NewService(st, c, zerolog.Nop())

	started := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	if err := st.CreateEntry(ctx, &models.TimeEntry{
		UserID: fx.User.ID, ActivityID: fx.Activity.ID, StartTime: started,
	}); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	req := Request{UserID: fx.User.ID, Period: PeriodDay, Now: started.Add(time.Hour), Location: time.UTC}
	r, err := svc.Build(ctx, req)
	if err != nil || r.TotalSeconds != 3600 {
		t.Fatalf("build = %+v (%v)", r, err)
	}
	if c.sets != 0 {
		t.Fatalf("report with a running entry must not be cached, sets = %d", c.sets)
	}

	req.Now = started.Add(2 * time.Hour)
	r, _ = svc.Build(ctx, req)
	if r.TotalSeconds != 7200 {
		t.Fatalf("running total should follow now, got %d", r.TotalSeconds)
	}
}

func TestBuildAnchorPicksRangeNowEndsRunning(t *testing.T) {
	st := storetest.New(t)
	fx := storetest.Seed(t, st, "anchor@example.com")
	ctx := context.Background()
	svc := NewService(st, nil, zerolog.Nop())

	started := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	if err := st.CreateEntry(ctx, &models.TimeEntry{
		UserID: fx.User.ID, ActivityID: fx.Activity.ID, StartTime: started,
	}); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	r, err := svc.Build(ctx, Request{
		UserID:   fx.User.ID,
		Period:   PeriodDay,
		Anchor:   time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
		Now:      started.Add(2 * time.Hour),
		Location: time.UTC,
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if r.TotalSeconds != 7200 || r.Sessions != 1 {
		t.Fatalf("anchored report = %+v, want the running entry measured to now", r)
	}
	if !r.Start.Equal(time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start = %v", r.Start)
	}
}
