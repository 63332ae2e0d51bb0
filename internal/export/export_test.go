package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/cronoapp/internal/models"
	"github.com/friendsincode/cronoapp/internal/storage"
	"github.com/friendsincode/cronoapp/internal/store/storetest"
)

func seedEntries(t *testing.T) (*Service, string, time.Time) {
	t.Helper()
	ctx := context.Background()
	st := storetest.New(t)
	fx := storetest.Seed(t, st, "export@example.com")

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	done := day.Add(10 * time.Hour)
	entries := []*models.TimeEntry{
		{UserID: fx.User.ID, ActivityID: fx.Activity.ID, StartTime: day.Add(9 * time.Hour), EndTime: &done},
		{UserID: fx.User.ID, ActivityID: fx.Activity.ID, StartTime: day.Add(11 * time.Hour)},
	}
	for _, e := range entries {
		if err := st.CreateEntry(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	svc := NewService(st, storage.NewFSStore(t.TempDir(), zerolog.Nop()), zerolog.Nop())
	svc.SetClock(func() time.Time { return day.Add(12 * time.Hour) })
	return svc, fx.User.ID, day
}

func TestExportFormats(t *testing.T) {
	svc, userID, day := seedEntries(t)
	ctx := context.Background()
	end := day.Add(24 * time.Hour)

	t.Run("json", func(t *testing.T) {
		res, err := svc.Export(ctx, userID, FormatJSON, day, end)
		if err != nil {
			t.Fatal(err)
		}
		var doc jsonDocument
		if err := json.Unmarshal(res.Data, &doc); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(doc.Entries) != 1 {
			t.Fatalf("entries = %d, want 1 (running entries are skipped)", len(doc.Entries))
		}
		row := doc.Entries[0]
		if row.Area != "Lavoro" || row.Activity != "Deep Work" || row.DurationSeconds != 3600 {
			t.Fatalf("unexpected row %+v", row)
		}
		if res.Filename != "cronoapp-2025-03-10-to-2025-03-11.json" {
			t.Fatalf("filename = %q", res.Filename)
		}
	})

	t.Run("csv", func(t *testing.T) {
		res, err := svc.Export(ctx, userID, FormatCSV, day, end)
		if err != nil {
			t.Fatal(err)
		}
		records, err := csv.NewReader(strings.NewReader(string(res.Data))).ReadAll()
		if err != nil {
			t.Fatal(err)
		}
		if len(records) != 2 || records[0][0] != "entry_id" || records[1][5] != "3600" {
			t.Fatalf("records = %v", records)
		}
		if !strings.HasPrefix(res.ContentType, "text/csv") {
			t.Fatalf("content type = %q", res.ContentType)
		}
	})

	t.Run("ics", func(t *testing.T) {
		res, err := svc.Export(ctx, userID, FormatICS, day, end)
		if err != nil {
			t.Fatal(err)
		}
		body := string(res.Data)
		for _, want := range []string{"BEGIN:VCALENDAR\r\n", "DTSTART:20250310T090000Z\r\n", "DTEND:20250310T100000Z\r\n", "SUMMARY:Deep Work\r\n", "END:VCALENDAR\r\n"} {
			if !strings.Contains(body, want) {
				t.Errorf("ics missing %q", want)
			}
		}
		if strings.Count(body, "BEGIN:VEVENT") != 1 {
			t.Errorf("expected one event")
		}
	})
}

func TestExportValidation(t *testing.T) {
	svc, userID, day := seedEntries(t)
	ctx := context.Background()

	if _, err := svc.Export(ctx, userID, FormatJSON, day, day); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("empty range err = %v", err)
	}
	if _, err := svc.Export(ctx, userID, Format("xml"), day, day.Add(time.Hour)); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("format err = %v", err)
	}
	if _, err := ParseFormat("PDF"); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("ParseFormat err = %v", err)
	}
	if f, err := ParseFormat(""); err != nil || f != FormatJSON {
		t.Fatalf("ParseFormat(\"\") = %q, %v", f, err)
	}
}

func TestArchiveStoresUnderUserPrefix(t *testing.T) {
	svc, userID, day := seedEntries(t)
	ctx := context.Background()

	res, err := svc.Archive(ctx, userID, FormatCSV, day, day.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	wantKey := "exports/" + userID + "/cronoapp-2025-03-10-to-2025-03-11.csv"
	if res.Key != wantKey {
		t.Fatalf("key = %q, want %q", res.Key, wantKey)
	}
	data, err := svc.objects.Get(ctx, res.Key)
	if err != nil || len(data) != res.Bytes {
		t.Fatalf("stored %d bytes, %v; want %d", len(data), err, res.Bytes)
	}

	noStore := NewService(svc.store, nil, zerolog.Nop())
	if _, err := noStore.Archive(ctx, userID, FormatCSV, day, day.Add(time.Hour)); !errors.Is(err, ErrNoStorage) {
		t.Fatalf("archive without storage err = %v", err)
	}
}

func TestEscapeICalText(t *testing.T) {
	if got := escapeICalText("a,b;c\\d\ne"); got != `a\,b\;c\\d\ne` {
		t.Fatalf("escape = %q", got)
	}
}
