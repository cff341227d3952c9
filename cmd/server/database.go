package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/dozo/internal/config"
	"github.com/phrazzld/dozo/internal/platform/sqlstore"
)

// setupAppDatabase opens the configured backend and applies pending
// migrations, so a fresh database is usable on first start.
func setupAppDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	dialect, err := sqlstore.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sqlstore.Open(ctx, dialect, cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	if err := sqlstore.Migrate(ctx, db, dialect, "up", logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	logger.Info("Database connection established", "driver", string(dialect))
	return db, nil
}

// handleMigrations runs a single goose command and closes the database.
func handleMigrations(ctx context.Context, cfg *config.Config, command string) error {
	dialect, err := sqlstore.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return err
	}

	db, err := sqlstore.Open(ctx, dialect, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
		}
	}()

	slog.Info("Executing migrations", "command", command, "driver", string(dialect))
	return sqlstore.Migrate(ctx, db, dialect, command, slog.Default())
}
