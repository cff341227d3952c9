package service_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/phrazzld/dozo/internal/domain"
	"github.com/phrazzld/dozo/internal/mocks"
	"github.com/phrazzld/dozo/internal/platform/sqlstore"
	"github.com/phrazzld/dozo/internal/service"
	"github.com/phrazzld/dozo/internal/service/auth"
	"github.com/phrazzld/dozo/internal/testdb"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	db       *sql.DB
	tasks    *sqlstore.TaskStore
	users    *sqlstore.UserStore
	notifier *mocks.MockNotifier
	taskSvc  service.TaskService
	userSvc  *service.UserServiceImpl
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.OpenSQLite(t)
	f := &fixture{
		db:       db,
		tasks:    sqlstore.NewTaskStore(db, sqlstore.SQLite, nil),
		users:    sqlstore.NewUserStore(db, sqlstore.SQLite, nil),
		notifier: mocks.NewMockNotifier(),
	}

	var err error
	f.taskSvc, err = service.NewTaskService(f.tasks, f.users, db, nil)
	require.NoError(t, err)
	f.userSvc, err = service.NewUserService(f.users, auth.NewBcryptHasher(bcrypt.MinCost), f.notifier, db, nil)
	require.NoError(t, err)
	return f
}

func (f *fixture) register(t *testing.T, name string) *domain.User {
	t.Helper()
	u, err := f.userSvc.Register(context.Background(), name, name+"@example.com", "password123")
	require.NoError(t, err)
	return u
}

// markBoth records both delivery flags the way the notification gate does.
func (f *fixture) markBoth(t *testing.T, task *domain.Task) {
	t.Helper()
	ctx := context.Background()
	ok, err := f.tasks.MarkNotified(ctx, task.ID, domain.KindReminder, task.DueDate)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = f.tasks.MarkNotified(ctx, task.ID, domain.KindOverdue, task.DueDate)
	require.NoError(t, err)
	require.True(t, ok)
}

func (f *fixture) stored(t *testing.T, task *domain.Task) *domain.Task {
	t.Helper()
	got, err := f.tasks.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	return got
}

func date(y int, m time.Month, d int) *civil.Date {
	v := civil.Date{Year: y, Month: m, Day: d}
	return &v
}
