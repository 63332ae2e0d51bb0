/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/friendsincode/cronoapp/internal/layout"
)

var layoutNoColor bool

var layoutCmd = &cobra.Command{
	Use:   "layout FILE",
	Short: "Lay out a day of intervals into calendar columns",
	Long: `Read intervals from a YAML file and print the column each one is placed in.

Input format:
  intervals:
    - id: standup
      start: "09:00"
      end: "09:30"
    - id: review
      start: "09:15"
      end: "10:00"

Use "-" to read from stdin.
`,
	Args: cobra.ExactArgs(1),
	RunE: runLayout,
}

func init() {
	layoutCmd.Flags().BoolVar(&layoutNoColor, "no-color", false, "Disable colored output")
	rootCmd.AddCommand(layoutCmd)
}

type layoutFile struct {
	Intervals []layoutInput `yaml:"intervals"`
}

type layoutInput struct {
	ID    string `yaml:"id"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

func runLayout(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("read intervals: %w", err)
	}

	intervals, err := parseLayoutFile(data)
	if err != nil {
		return err
	}
	if layoutNoColor {
		color.NoColor = true
	}
	printLayout(cmd.OutOrStdout(), layout.Layout(intervals))
	return nil
}

func parseLayoutFile(data []byte) ([]layout.Interval, error) {
	var f layoutFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse intervals: %w", err)
	}

	out := make([]layout.Interval, 0, len(f.Intervals))
	for i, in := range f.Intervals {
		start, err := parseClock(in.Start)
		if err != nil {
			return nil, fmt.Errorf("interval %d start: %w", i, err)
		}
		end, err := parseClock(in.End)
		if err != nil {
			return nil, fmt.Errorf("interval %d end: %w", i, err)
		}
		id := in.ID
		if id == "" {
			id = strconv.Itoa(i + 1)
		}
		out = append(out, layout.Interval{ID: id, StartMin: start, EndMin: end})
	}
	return out, nil
}

// parseClock reads HH:MM as minutes since midnight. 24:00 is accepted as end of day.
func parseClock(s string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("%q is not HH:MM", s)
	}
	hours, err := strconv.Atoi(h)
	if err != nil {
		return 0, fmt.Errorf("%q is not HH:MM", s)
	}
	minutes, err := strconv.Atoi(m)
	if err != nil {
		return 0, fmt.Errorf("%q is not HH:MM", s)
	}
	total := hours*60 + minutes
	if hours < 0 || minutes < 0 || minutes > 59 || total > 24*60 {
		return 0, fmt.Errorf("%q is out of range", s)
	}
	return total, nil
}

func formatClock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

var columnColors = []*color.Color{
	color.New(color.FgCyan),
	color.New(color.FgGreen),
	color.New(color.FgMagenta),
	color.New(color.FgYellow),
	color.New(color.FgBlue),
	color.New(color.FgRed),
}

func printLayout(w io.Writer, items []layout.Positioned) {
	header := color.New(color.Bold)
	header.Fprintf(w, "%-13s %-8s %s\n", "TIME", "COLUMN", "ID")
	for _, p := range items {
		c := columnColors[p.Column%len(columnColors)]
		c.Fprintf(w, "%s-%s   %d/%-6d %s\n",
			formatClock(p.StartMin),
			formatClock(p.EndMin),
			p.Column+1,
			p.TotalColumns,
			p.Interval.ID)
	}
}
