/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"github.com/spf13/cobra"

	"github.com/friendsincode/cronoapp/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long:  "Create or update tables and indexes for the configured database backend.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close(database)

		logger.Info().
			Str("backend", string(cfg.DBBackend)).
			Int("models", len(db.Models())).
			Msg("Database schema up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
