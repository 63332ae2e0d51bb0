/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/friendsincode/cronoapp/internal/config"
	"github.com/friendsincode/cronoapp/internal/db"
	"github.com/friendsincode/cronoapp/internal/logging"
	"github.com/friendsincode/cronoapp/internal/server"
	"github.com/friendsincode/cronoapp/internal/version"
)

var (
	logger zerolog.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "cronoapp",
	Short: "Cronoapp - personal time tracking",
	Long:  "Cronoapp tracks where your time goes across life areas and activities, with a calendar, reports and a live event stream.",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Cronoapp server",
	Long:  "Start the HTTP API server, the event stream and the reminder worker",
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = logging.Setup(cfg.Environment)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logger.Info().Str("version", version.String()).Msg("Cronoapp starting")

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}

	httpServer := srv.HTTPServer()
	serveErr := make(chan error, 1)

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-quit:
		logger.Info().Msg("shutting down gracefully...")
	case err := <-serveErr:
		runErr = fmt.Errorf("http server: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(timeoutCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("Cronoapp stopped")
	return runErr
}

// openDatabase connects and migrates, for the maintenance commands.
func openDatabase() (*gorm.DB, error) {
	database, err := db.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.Migrate(database); err != nil {
		_ = db.Close(database)
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return database, nil
}
