/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package layout assigns overlapping day intervals to side-by-side columns.
package layout

import (
	"sort"
	"time"
)

// Interval is a time range expressed in minutes on a linear scale (usually minutes of day).
type Interval struct {
	ID       string
	StartMin int
	EndMin   int
}

// Positioned is an interval with its assigned column and the column count of its cluster.
type Positioned struct {
	Interval     Interval
	StartMin     int
	EndMin       int
	Column       int
	TotalColumns int
}

type activeSlot struct {
	endMin int
	column int
}

// Layout places every interval in a column so that intervals sharing a column never
// overlap. Intervals are processed by start, then end; touching intervals do not
// overlap. TotalColumns is the peak concurrency of the cluster the interval belongs to,
// where a cluster closes as soon as no interval is active.
//
// Results are returned in processing order. Intervals with end <= start are laid out
// as one minute long.
func Layout(intervals []Interval) []Positioned {
	if len(intervals) == 0 {
		return []Positioned{}
	}

	items := make([]Positioned, len(intervals))
	for i, iv := range intervals {
		end := iv.EndMin
		if end < iv.StartMin+1 {
			end = iv.StartMin + 1
		}
		items[i] = Positioned{Interval: iv, StartMin: iv.StartMin, EndMin: end}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].StartMin != items[j].StartMin {
			return items[i].StartMin < items[j].StartMin
		}
		return items[i].EndMin < items[j].EndMin
	})

	var (
		active      []activeSlot
		free        []int
		nextColumn  int
		cluster     []int
		clusterPeak int
	)

	flush := func() {
		total := clusterPeak
		if total < 1 {
			total = 1
		}
		for _, idx := range cluster {
			items[idx].TotalColumns = total
		}
		cluster = cluster[:0]
		clusterPeak = 0
	}

	for i := range items {
		item := &items[i]

		kept := active[:0]
		for _, slot := range active {
			if slot.endMin <= item.StartMin {
				free = append(free, slot.column)
				continue
			}
			kept = append(kept, slot)
		}
		active = kept

		if len(active) == 0 {
			flush()
			free = free[:0]
			nextColumn = 0
		}

		if len(free) > 0 {
			sort.Ints(free)
			item.Column = free[0]
			free = free[1:]
		} else {
			item.Column = nextColumn
			nextColumn++
		}

		active = append(active, activeSlot{endMin: item.EndMin, column: item.Column})
		if len(active) > clusterPeak {
			clusterPeak = len(active)
		}
		cluster = append(cluster, i)
	}
	flush()

	return items
}

// MinuteOfDay returns the minutes elapsed since midnight of t in t's location.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
