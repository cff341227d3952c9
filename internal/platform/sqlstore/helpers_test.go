package sqlstore_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/phrazzld/dozo/internal/domain"
	"github.com/phrazzld/dozo/internal/platform/sqlstore"
	"github.com/stretchr/testify/require"
)

// openTestDB creates a migrated SQLite database in a temp directory.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	dsn := "file:" + filepath.Join(t.TempDir(), "dozo.db")
	db, err := sqlstore.Open(ctx, sqlstore.SQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, sqlstore.Migrate(ctx, db, sqlstore.SQLite, "up", nil))
	return db
}

func createUser(t *testing.T, s *sqlstore.UserStore, name string) *domain.User {
	t.Helper()
	u, err := domain.NewUser(name, name+"@example.com", "password123")
	require.NoError(t, err)
	u.HashedPassword = "$2a$10$hash"
	u.Password = ""
	require.NoError(t, s.Create(context.Background(), u))
	return u
}

func createTask(t *testing.T, s *sqlstore.TaskStore, userID uuid.UUID, title string, due *civil.Date, at *civil.Time) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(userID, title, domain.PriorityNormal, due, at)
	require.NoError(t, err)
	require.NoError(t, s.Create(context.Background(), task))
	return task
}

func day(offset int) *civil.Date {
	d := civil.Date{Year: 2025, Month: time.March, Day: 10}.AddDays(offset)
	return &d
}

func ptr[T any](v T) *T { return &v }
