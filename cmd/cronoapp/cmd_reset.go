/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/friendsincode/cronoapp/internal/db"
	"github.com/friendsincode/cronoapp/internal/models"
)

var (
	resetForce         bool
	resetDeleteExports bool
	resetKeepUsers     int
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the database and optionally delete archived exports",
	Long: `Reset Cronoapp to a fresh state.

This command will:
- Drop all tables from the database (except optionally preserved users)
- Re-create empty tables
- Optionally delete archived exports from the local export directory

WARNING: This action is irreversible! All data will be lost.

Examples:
  # Interactive reset (will prompt for confirmation)
  cronoapp reset

  # Force reset without confirmation
  cronoapp reset --force

  # Reset but keep the 2 oldest accounts
  cronoapp reset --force --keep-users=2
`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetForce, "force", "f", false, "Skip confirmation prompt")
	resetCmd.Flags().BoolVar(&resetDeleteExports, "delete-exports", false, "Also delete archived exports in CRONO_EXPORT_ROOT")
	resetCmd.Flags().IntVar(&resetKeepUsers, "keep-users", 0, "Number of oldest accounts to preserve (0 = delete all)")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	if !resetForce {
		fmt.Println()
		fmt.Println("WARNING: this will DELETE ALL DATA from Cronoapp:")
		if resetKeepUsers > 0 {
			fmt.Printf("  - all accounts EXCEPT the oldest %d\n", resetKeepUsers)
		} else {
			fmt.Println("  - all accounts, settings and API keys")
		}
		fmt.Println("  - all life areas, activities and time entries")
		if resetDeleteExports {
			fmt.Printf("  - ALL ARCHIVED EXPORTS in %s\n", cfg.ExportRoot)
		}
		fmt.Println("This action CANNOT be undone!")
		fmt.Println()

		fmt.Print("Type 'yes' to confirm reset: ")
		reader := bufio.NewReader(os.Stdin)
		response, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		if strings.TrimSpace(strings.ToLower(response)) != "yes" {
			fmt.Println("Reset cancelled.")
			return nil
		}
	}

	logger.Info().
		Bool("delete_exports", resetDeleteExports).
		Int("keep_users", resetKeepUsers).
		Msg("Starting database reset")

	database, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close(database)

	var preservedUsers []models.User
	if resetKeepUsers > 0 && database.Migrator().HasTable(&models.User{}) {
		if err := database.Order("created_at ASC").Limit(resetKeepUsers).Find(&preservedUsers).Error; err != nil {
			return fmt.Errorf("load users to preserve: %w", err)
		}
		for _, u := range preservedUsers {
			logger.Info().Str("user_id", u.ID).Str("email", u.Email).Msg("Preserving user")
		}
	}

	// Drop in reverse migration order so dependents go first.
	tables := db.Models()
	logger.Info().Msg("Dropping all tables")
	for i := len(tables) - 1; i >= 0; i-- {
		if err := database.Migrator().DropTable(tables[i]); err != nil {
			logger.Debug().Err(err).Msg("drop table (may not exist)")
		}
	}

	if resetDeleteExports && cfg.ExportRoot != "" {
		logger.Info().Str("path", cfg.ExportRoot).Msg("Deleting archived exports")
		if err := os.RemoveAll(cfg.ExportRoot); err != nil {
			logger.Warn().Err(err).Msg("failed to delete export directory")
		}
	}

	logger.Info().Msg("Creating fresh database schema")
	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	for _, u := range preservedUsers {
		u.UpdatedAt = u.CreatedAt
		u.Onboarded = false
		if err := database.Create(&u).Error; err != nil {
			logger.Error().Err(err).Str("email", u.Email).Msg("failed to restore user")
			continue
		}
		logger.Info().Str("user_id", u.ID).Str("email", u.Email).Msg("User restored")
	}

	logger.Info().Msg("Reset complete")
	fmt.Println()
	fmt.Println("Cronoapp has been reset to a fresh state.")
	fmt.Println("Next: start the server with `cronoapp serve`.")
	fmt.Println()

	return nil
}
