package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/friendsincode/cronoapp/internal/layout"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{" 23:59 ", 1439, false},
		{"24:00", 1440, false},
		{"24:01", 0, true},
		{"9", 0, true},
		{"09:60", 0, true},
		{"ab:cd", 0, true},
	}
	for _, tt := range tests {
		got, err := parseClock(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseClock(%q) err=%v, wantErr=%v", tt.in, err, tt.wantErr)
		}
		if !tt.wantErr && got != tt.want {
			t.Fatalf("parseClock(%q)=%d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseLayoutFile(t *testing.T) {
	data := []byte(`
intervals:
  - id: standup
    start: "09:00"
    end: "09:30"
  - start: "09:15"
    end: "10:00"
`)
	got, err := parseLayoutFile(data)
	if err != nil {
		t.Fatalf("parseLayoutFile: %v", err)
	}
	want := []layout.Interval{
		{ID: "standup", StartMin: 540, EndMin: 570},
		{ID: "2", StartMin: 555, EndMin: 600},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d intervals, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("interval %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if _, err := parseLayoutFile([]byte("intervals:\n  - start: nope\n    end: \"10:00\"\n")); err == nil {
		t.Fatalf("expected error for bad start")
	}
}

func TestPrintLayout(t *testing.T) {
	color.NoColor = true
	items := layout.Layout([]layout.Interval{
		{ID: "a", StartMin: 540, EndMin: 600},
		{ID: "b", StartMin: 570, EndMin: 630},
	})

	var buf bytes.Buffer
	printLayout(&buf, items)
	out := buf.String()

	for _, want := range []string{"09:00-10:00", "1/2", "09:30-10:30", "2/2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestParseDateRange(t *testing.T) {
	start, end, err := parseDateRange("2025-03-01", "2025-03-08", time.UTC)
	if err != nil {
		t.Fatalf("parseDateRange: %v", err)
	}
	if end.Sub(start) != 7*24*time.Hour {
		t.Fatalf("range = %v, want 7 days", end.Sub(start))
	}
	if _, _, err := parseDateRange("2025-03-08", "2025-03-01", time.UTC); err == nil {
		t.Fatalf("expected error for reversed range")
	}
}
