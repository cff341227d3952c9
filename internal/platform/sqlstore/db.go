package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Dialect identifies a supported SQL backend.
type Dialect string

// Supported dialects.
const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// ParseDialect validates a configured driver name.
func ParseDialect(name string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(name)); d {
	case Postgres, SQLite:
		return d, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", name)
	}
}

// DriverName returns the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	if d == SQLite {
		return "sqlite"
	}
	return "pgx"
}

// BindType returns the sqlx placeholder style of the dialect.
func (d Dialect) BindType() int {
	if d == SQLite {
		return sqlx.QUESTION
	}
	return sqlx.DOLLAR
}

func (d Dialect) rebind(query string) string {
	return sqlx.Rebind(d.BindType(), query)
}

// sqlitePragmas are appended to every SQLite DSN. Foreign keys are off by
// default in SQLite and task deletion relies on ON DELETE CASCADE.
const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// DSN returns the connection string passed to sql.Open.
func (d Dialect) DSN(url string) string {
	if d != SQLite || strings.Contains(url, "foreign_keys") {
		return url
	}
	if strings.Contains(url, "?") {
		return url + "&" + sqlitePragmas
	}
	return url + "?" + sqlitePragmas
}

// Open establishes a connection pool for the dialect, configures it and
// verifies connectivity.
func Open(ctx context.Context, dialect Dialect, url string) (*sql.DB, error) {
	db, err := sql.Open(dialect.DriverName(), dialect.DSN(url))
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if dialect == SQLite {
		// A single writer avoids SQLITE_BUSY between the scheduler and
		// request handlers.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
