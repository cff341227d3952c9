// Package main implements the entry point for the DOZO server, which serves
// the task API and runs the reminder, overdue and digest notification jobs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/dozo/internal/config"
	"github.com/phrazzld/dozo/internal/platform/logger"
)

func main() {
	migrateCmd := flag.String("migrate", "", "run a migration command (up, down, reset, status, version) and exit")
	flag.Parse()

	cfg, err := loadAppConfig()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *migrateCmd != "" {
		if err := handleMigrations(ctx, cfg, *migrateCmd); err != nil {
			slog.Error("Migration failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

// loadAppConfig loads configuration and sets up structured logging.
func loadAppConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if _, err := logger.Setup(cfg.Server); err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"database_driver", cfg.Database.Driver,
		"scheduler_enabled", cfg.Scheduler.Enabled)
	if cfg.Mail.Host == "" {
		slog.Debug("Mail host not configured, notifications are logged instead of sent")
	}
	return cfg, nil
}

// run wires the application and serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	db, err := setupAppDatabase(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}

	app, err := newApplication(cfg, slog.Default(), db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}
