package testdb

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/phrazzld/dozo/internal/platform/sqlstore"
	"github.com/stretchr/testify/require"
)

// TestTimeout defines a default timeout for test database operations.
const TestTimeout = 5 * time.Second

// GetTestDatabaseURL returns the Postgres URL for tests.
// It checks DATABASE_URL and DOZO_TEST_DB_URL environment variables
// in that order, returning the first non-empty value.
func GetTestDatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return os.Getenv("DOZO_TEST_DB_URL")
}

// IsIntegrationTestEnvironment reports whether a Postgres URL is configured.
func IsIntegrationTestEnvironment() bool {
	return GetTestDatabaseURL() != ""
}

// OpenSQLite opens a fresh, fully migrated SQLite database that is closed
// when the test ends.
func OpenSQLite(t testing.TB) *sql.DB {
	t.Helper()
	return open(t, sqlstore.SQLite, "file:"+filepath.Join(t.TempDir(), "dozo.db"))
}

// OpenPostgres opens the integration database and migrates it, or skips
// the test when no URL is configured.
func OpenPostgres(t testing.TB) *sql.DB {
	t.Helper()
	url := GetTestDatabaseURL()
	if url == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres test")
	}
	return open(t, sqlstore.Postgres, url)
}

func open(t testing.TB, dialect sqlstore.Dialect, url string) *sql.DB {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	db, err := sqlstore.Open(ctx, dialect, url)
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, sqlstore.Migrate(ctx, db, dialect, "up", nil), "failed to run migrations")
	return db
}

// WithTx executes a test function within a transaction, automatically rolling back
// after the test completes. This ensures test isolation and prevents side effects.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.Begin()
	require.NoError(t, err, "failed to begin transaction")

	defer func() {
		// sql.ErrTxDone is expected if tx is already committed or rolled back
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("Warning: failed to rollback transaction: %v", err)
		}
	}()

	fn(t, tx)
}
