/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/cronoapp/internal/db"
	"github.com/friendsincode/cronoapp/internal/export"
	"github.com/friendsincode/cronoapp/internal/models"
	"github.com/friendsincode/cronoapp/internal/storage"
	"github.com/friendsincode/cronoapp/internal/store"
)

var (
	exportEmail   string
	exportFrom    string
	exportTo      string
	exportFormat  string
	exportOut     string
	exportArchive bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a user's completed time entries",
	Long: `Render a user's completed time entries as JSON, CSV or iCalendar.

Examples:
  # Last month as CSV on stdout
  cronoapp export --email me@example.com --from 2025-02-01 --to 2025-03-01 --format csv

  # Store the export in the configured archive (filesystem or S3)
  cronoapp export --email me@example.com --from 2025-01-01 --to 2026-01-01 --format ics --archive
`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportEmail, "email", "", "Account email (required)")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Start date, YYYY-MM-DD (required)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "End date, YYYY-MM-DD, exclusive (required)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "json, csv or ics")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Write to file instead of stdout")
	exportCmd.Flags().BoolVar(&exportArchive, "archive", false, "Store in the export archive instead of printing")
	_ = exportCmd.MarkFlagRequired("email")
	_ = exportCmd.MarkFlagRequired("from")
	_ = exportCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}
	start, end, err := parseDateRange(exportFrom, exportTo, cfg.Location())
	if err != nil {
		return err
	}

	database, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close(database)

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	st := store.NewGormStore(database)
	user, err := st.UserByEmail(ctx, models.NormalizeEmail(exportEmail))
	if err != nil {
		return fmt.Errorf("find user %q: %w", exportEmail, err)
	}

	var objects storage.ObjectStore
	if exportArchive {
		objects, err = storage.New(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("init export storage: %w", err)
		}
	}
	svc := export.NewService(st, objects, logger)

	if exportArchive {
		res, err := svc.Archive(ctx, user.ID, format, start, end)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "archived %d bytes to %s\n", res.Bytes, res.Location)
		return nil
	}

	res, err := svc.Export(ctx, user.ID, format, start, end)
	if err != nil {
		return err
	}
	if exportOut == "" {
		_, err = cmd.OutOrStdout().Write(res.Data)
		return err
	}
	if err := os.WriteFile(exportOut, res.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", exportOut, err)
	}
	logger.Info().Str("path", exportOut).Int("bytes", len(res.Data)).Msg("export written")
	return nil
}

// parseDateRange reads two YYYY-MM-DD dates as local midnights.
func parseDateRange(from, to string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01-02", from, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --from %q: %w", from, err)
	}
	end, err := time.ParseInLocation("2006-01-02", to, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --to %q: %w", to, err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, export.ErrInvalidRange
	}
	return start, end, nil
}
