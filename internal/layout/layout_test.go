/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package layout

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"
	"time"
)

func hm(h, m int) int { return h*60 + m }

type placement struct {
	column int
	total  int
}

func byID(out []Positioned) map[string]placement {
	res := make(map[string]placement, len(out))
	for _, p := range out {
		res[p.Interval.ID] = placement{column: p.Column, total: p.TotalColumns}
	}
	return res
}

func TestLayoutScenarios(t *testing.T) {
	tests := []struct {
		name  string
		input []Interval
		want  map[string]placement
	}{
		{
			name:  "empty",
			input: nil,
			want:  map[string]placement{},
		},
		{
			name:  "single interval",
			input: []Interval{{ID: "A", StartMin: hm(9, 0), EndMin: hm(10, 0)}},
			want:  map[string]placement{"A": {0, 1}},
		},
		{
			name: "partial overlap",
			input: []Interval{
				{ID: "A", StartMin: hm(9, 0), EndMin: hm(10, 0)},
				{ID: "B", StartMin: hm(9, 30), EndMin: hm(10, 30)},
			},
			want: map[string]placement{"A": {0, 2}, "B": {1, 2}},
		},
		{
			name: "touching intervals share a column",
			input: []Interval{
				{ID: "A", StartMin: hm(9, 0), EndMin: hm(10, 0)},
				{ID: "B", StartMin: hm(10, 0), EndMin: hm(11, 0)},
			},
			want: map[string]placement{"A": {0, 1}, "B": {0, 1}},
		},
		{
			name: "disjoint intervals get independent clusters",
			input: []Interval{
				{ID: "A", StartMin: hm(9, 0), EndMin: hm(9, 30)},
				{ID: "B", StartMin: hm(10, 0), EndMin: hm(10, 30)},
			},
			want: map[string]placement{"A": {0, 1}, "B": {0, 1}},
		},
		{
			name: "identical bounds",
			input: []Interval{
				{ID: "A", StartMin: hm(9, 0), EndMin: hm(10, 0)},
				{ID: "B", StartMin: hm(9, 0), EndMin: hm(10, 0)},
			},
			want: map[string]placement{"A": {0, 2}, "B": {1, 2}},
		},
		{
			name: "triple overlap",
			input: []Interval{
				{ID: "A", StartMin: hm(9, 0), EndMin: hm(10, 0)},
				{ID: "B", StartMin: hm(9, 15), EndMin: hm(9, 45)},
				{ID: "C", StartMin: hm(9, 30), EndMin: hm(10, 30)},
			},
			want: map[string]placement{"A": {0, 3}, "B": {1, 3}, "C": {2, 3}},
		},
		{
			name: "transitive chain keeps one cluster",
			input: []Interval{
				{ID: "A", StartMin: hm(9, 0), EndMin: hm(10, 0)},
				{ID: "B", StartMin: hm(9, 30), EndMin: hm(11, 0)},
				{ID: "C", StartMin: hm(10, 30), EndMin: hm(11, 30)},
			},
			want: map[string]placement{"A": {0, 2}, "B": {1, 2}, "C": {0, 2}},
		},
		{
			name:  "zero length",
			input: []Interval{{ID: "A", StartMin: hm(9, 0), EndMin: hm(9, 0)}},
			want:  map[string]placement{"A": {0, 1}},
		},
		{
			name: "smallest free column is reused",
			input: []Interval{
				{ID: "A", StartMin: hm(9, 0), EndMin: hm(9, 30)},
				{ID: "B", StartMin: hm(9, 0), EndMin: hm(9, 40)},
				{ID: "C", StartMin: hm(9, 0), EndMin: hm(12, 0)},
				{ID: "D", StartMin: hm(9, 45), EndMin: hm(10, 0)},
			},
			want: map[string]placement{"A": {0, 3}, "B": {1, 3}, "C": {2, 3}, "D": {0, 3}},
		},
		{
			name: "later burst does not inherit earlier width",
			input: []Interval{
				{ID: "A", StartMin: hm(8, 0), EndMin: hm(9, 0)},
				{ID: "B", StartMin: hm(8, 0), EndMin: hm(9, 0)},
				{ID: "C", StartMin: hm(8, 0), EndMin: hm(9, 0)},
				{ID: "D", StartMin: hm(14, 0), EndMin: hm(15, 0)},
			},
			want: map[string]placement{"A": {0, 3}, "B": {1, 3}, "C": {2, 3}, "D": {0, 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Layout(tt.input)
			if len(out) != len(tt.input) {
				t.Fatalf("got %d results, want %d", len(out), len(tt.input))
			}
			got := byID(out)
			for id, want := range tt.want {
				if got[id] != want {
					t.Errorf("%s: got column=%d total=%d, want column=%d total=%d",
						id, got[id].column, got[id].total, want.column, want.total)
				}
			}
		})
	}
}

func TestLayoutTenIdentical(t *testing.T) {
	input := make([]Interval, 10)
	for i := range input {
		input[i] = Interval{ID: fmt.Sprintf("e%d", i), StartMin: hm(9, 0), EndMin: hm(10, 0)}
	}
	out := Layout(input)
	seen := make(map[int]bool)
	for _, p := range out {
		if p.TotalColumns != 10 {
			t.Fatalf("%s: total columns = %d, want 10", p.Interval.ID, p.TotalColumns)
		}
		seen[p.Column] = true
	}
	for c := 0; c < 10; c++ {
		if !seen[c] {
			t.Fatalf("column %d not used", c)
		}
	}
}

func TestLayoutEmptyReturnsNonNil(t *testing.T) {
	out := Layout([]Interval{})
	if out == nil || len(out) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", out)
	}
}

func TestLayoutDurationFloor(t *testing.T) {
	out := Layout([]Interval{
		{ID: "neg", StartMin: hm(9, 0), EndMin: hm(8, 0)},
		{ID: "zero", StartMin: hm(9, 1), EndMin: hm(9, 1)},
	})
	for _, p := range out {
		if p.EndMin != p.StartMin+1 {
			t.Errorf("%s: end = %d, want %d", p.Interval.ID, p.EndMin, p.StartMin+1)
		}
	}
	// The clamped neg interval ends at 9:01 so zero starting at 9:01 reuses column 0.
	got := byID(out)
	if got["neg"] != (placement{0, 1}) || got["zero"] != (placement{0, 1}) {
		t.Fatalf("unexpected placement: %+v", got)
	}
}

func TestLayoutTieBreakShorterFirst(t *testing.T) {
	out := Layout([]Interval{
		{ID: "long", StartMin: hm(9, 0), EndMin: hm(11, 0)},
		{ID: "short", StartMin: hm(9, 0), EndMin: hm(9, 30)},
	})
	if out[0].Interval.ID != "short" || out[0].Column != 0 {
		t.Fatalf("expected short interval first in column 0, got %s in %d", out[0].Interval.ID, out[0].Column)
	}
}

func TestLayoutDoesNotMutateInput(t *testing.T) {
	input := []Interval{
		{ID: "B", StartMin: hm(10, 0), EndMin: hm(9, 0)},
		{ID: "A", StartMin: hm(9, 0), EndMin: hm(10, 0)},
	}
	_ = Layout(input)
	if input[0].ID != "B" || input[0].EndMin != hm(9, 0) {
		t.Fatalf("input was modified: %+v", input)
	}
}

func randomIntervals(r *rand.Rand, n int) []Interval {
	out := make([]Interval, n)
	for i := range out {
		start := r.Intn(24 * 60)
		out[i] = Interval{ID: fmt.Sprintf("i%d", i), StartMin: start, EndMin: start + r.Intn(180) - 10}
	}
	return out
}

func overlaps(a, b Positioned) bool {
	return a.StartMin < b.EndMin && b.StartMin < a.EndMin
}

func TestLayoutProperties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		input := randomIntervals(r, 1+r.Intn(30))
		out := Layout(input)

		for i := range out {
			if out[i].TotalColumns < 1 {
				t.Fatalf("round %d: total columns < 1", round)
			}
			if out[i].Column >= out[i].TotalColumns {
				t.Fatalf("round %d: column %d >= total %d", round, out[i].Column, out[i].TotalColumns)
			}
			cols := map[int]bool{out[i].Column: true}
			for j := range out {
				if i == j || !overlaps(out[i], out[j]) {
					continue
				}
				if out[i].Column == out[j].Column {
					t.Fatalf("round %d: %s and %s overlap in column %d", round, out[i].Interval.ID, out[j].Interval.ID, out[i].Column)
				}
				cols[out[j].Column] = true
			}
			if out[i].TotalColumns < len(cols) {
				t.Fatalf("round %d: total %d below distinct overlapping columns %d", round, out[i].TotalColumns, len(cols))
			}
		}

		shuffled := append([]Interval(nil), input...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		if !sameTotals(out, Layout(shuffled)) {
			t.Fatalf("round %d: totals changed after reordering input", round)
		}
		if !samePlacements(out, Layout(input)) {
			t.Fatalf("round %d: layout not idempotent", round)
		}
	}
}

func sameTotals(a, b []Positioned) bool {
	ta := make(map[string]int, len(a))
	for _, p := range a {
		ta[p.Interval.ID] = p.TotalColumns
	}
	for _, p := range b {
		if ta[p.Interval.ID] != p.TotalColumns {
			return false
		}
	}
	return len(a) == len(b)
}

func samePlacements(a, b []Positioned) bool {
	key := func(ps []Positioned) []string {
		out := make([]string, len(ps))
		for i, p := range ps {
			out[i] = fmt.Sprintf("%s/%d/%d", p.Interval.ID, p.Column, p.TotalColumns)
		}
		sort.Strings(out)
		return out
	}
	ka, kb := key(a), key(b)
	if len(ka) != len(kb) {
		return false
	}
	for i := range ka {
		if ka[i] != kb[i] {
			return false
		}
	}
	return true
}

func TestClusterIndependence(t *testing.T) {
	base := []Interval{
		{ID: "A", StartMin: hm(8, 0), EndMin: hm(9, 0)},
		{ID: "B", StartMin: hm(8, 30), EndMin: hm(9, 30)},
		{ID: "C", StartMin: hm(11, 0), EndMin: hm(12, 0)},
		{ID: "D", StartMin: hm(15, 0), EndMin: hm(16, 0)},
	}
	touching := append([]Interval(nil), base...)
	touching[2] = Interval{ID: "C", StartMin: hm(9, 30), EndMin: hm(10, 30)}

	for _, in := range [][]Interval{base, touching} {
		if got := byID(Layout(in))["D"]; got != (placement{0, 1}) {
			t.Fatalf("unrelated cluster changed: %+v", got)
		}
	}
}

func TestMinuteOfDay(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	ts := time.Date(2026, 3, 14, 9, 45, 30, 0, loc)
	if got := MinuteOfDay(ts); got != 585 {
		t.Fatalf("MinuteOfDay = %d, want 585", got)
	}
}
