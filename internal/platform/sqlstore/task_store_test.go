package sqlstore_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/phrazzld/dozo/internal/domain"
	"github.com/phrazzld/dozo/internal/platform/sqlstore"
	"github.com/phrazzld/dozo/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStores(t *testing.T) (*sql.DB, *sqlstore.TaskStore, *sqlstore.UserStore) {
	db := openTestDB(t)
	return db, sqlstore.NewTaskStore(db, sqlstore.SQLite, nil), sqlstore.NewUserStore(db, sqlstore.SQLite, nil)
}

func TestTaskStore_CreateAndGet(t *testing.T) {
	_, tasks, users := newStores(t)
	ctx := context.Background()
	owner := createUser(t, users, "alice")

	created := createTask(t, tasks, owner.ID, "Pay rent", day(0), &civil.Time{Hour: 14, Minute: 0})

	got, err := tasks.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, owner.ID, got.UserID)
	assert.Equal(t, "Pay rent", got.Title)
	assert.Equal(t, domain.PriorityNormal, got.Priority)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, *day(0), *got.DueDate)
	require.NotNil(t, got.DueTime)
	assert.Equal(t, civil.Time{Hour: 14}, *got.DueTime)
	assert.False(t, got.ReminderSent)
	assert.False(t, got.OverdueSent)
	assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Millisecond)

	_, err = tasks.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestTaskStore_CreateUnknownUser(t *testing.T) {
	_, tasks, _ := newStores(t)
	task, err := domain.NewTask(uuid.New(), "orphan", domain.PriorityLow, nil, nil)
	require.NoError(t, err)

	err = tasks.Create(context.Background(), task)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestTaskStore_UpdateDoesNotTouchFlags(t *testing.T) {
	_, tasks, users := newStores(t)
	ctx := context.Background()
	owner := createUser(t, users, "alice")
	task := createTask(t, tasks, owner.ID, "Draft", day(0), nil)

	ok, err := tasks.MarkNotified(ctx, task.ID, domain.KindReminder, task.DueDate)
	require.NoError(t, err)
	require.True(t, ok)

	// A stale in-memory copy with flags false must not clear the stored flag.
	task.Title = "Final"
	task.Completed = true
	require.NoError(t, tasks.Update(ctx, task))

	got, err := tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Final", got.Title)
	assert.True(t, got.Completed)
	assert.True(t, got.ReminderSent)

	missing := *task
	missing.ID = uuid.New()
	assert.ErrorIs(t, tasks.Update(ctx, &missing), store.ErrTaskNotFound)
}

func TestTaskStore_MarkNotifiedIsConditional(t *testing.T) {
	_, tasks, users := newStores(t)
	ctx := context.Background()
	owner := createUser(t, users, "alice")
	task := createTask(t, tasks, owner.ID, "Report", day(-1), nil)

	ok, err := tasks.MarkNotified(ctx, task.ID, domain.KindOverdue, task.DueDate)
	require.NoError(t, err)
	assert.True(t, ok, "first write wins")

	ok, err = tasks.MarkNotified(ctx, task.ID, domain.KindOverdue, task.DueDate)
	require.NoError(t, err)
	assert.False(t, ok, "second write finds the flag already set")

	ok, err = tasks.MarkNotified(ctx, task.ID, domain.KindReminder, day(5))
	require.NoError(t, err)
	assert.False(t, ok, "due date moved since the event was evaluated")

	got, err := tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, got.OverdueSent)
	assert.False(t, got.ReminderSent, "flags are independent")

	_, err = tasks.MarkNotified(ctx, task.ID, domain.KindDigest, task.DueDate)
	assert.ErrorIs(t, err, domain.ErrInvalidNotificationKind)
}

func TestTaskStore_MarkNotifiedConcurrentWritersOnlyOneWins(t *testing.T) {
	_, tasks, users := newStores(t)
	ctx := context.Background()
	owner := createUser(t, users, "alice")
	task := createTask(t, tasks, owner.ID, "Race", day(0), nil)

	const writers = 8
	var wg sync.WaitGroup
	results := make(chan bool, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := tasks.MarkNotified(ctx, task.ID, domain.KindReminder, task.DueDate)
			assert.NoError(t, err)
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for ok := range results {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
}

func TestTaskStore_ResetNotified(t *testing.T) {
	_, tasks, users := newStores(t)
	ctx := context.Background()
	owner := createUser(t, users, "alice")
	task := createTask(t, tasks, owner.ID, "Reset me", day(-2), nil)

	_, err := tasks.MarkNotified(ctx, task.ID, domain.KindOverdue, task.DueDate)
	require.NoError(t, err)
	require.NoError(t, tasks.ResetNotified(ctx, task.ID))

	got, err := tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, got.OverdueSent)
	assert.False(t, got.ReminderSent)

	assert.ErrorIs(t, tasks.ResetNotified(ctx, uuid.New()), store.ErrTaskNotFound)
}

func TestTaskStore_Find(t *testing.T) {
	_, tasks, users := newStores(t)
	ctx := context.Background()
	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")

	past := createTask(t, tasks, alice.ID, "past", day(-3), nil)
	createTask(t, tasks, alice.ID, "today", day(0), nil)
	createTask(t, tasks, alice.ID, "later", day(4), nil)
	createTask(t, tasks, alice.ID, "undated", nil, nil)
	createTask(t, tasks, bob.ID, "bob today", day(0), nil)

	done := createTask(t, tasks, alice.ID, "done", day(0), nil)
	done.Completed = true
	require.NoError(t, tasks.Update(ctx, done))

	titles := func(ts []*domain.Task) []string {
		out := make([]string, 0, len(ts))
		for _, t := range ts {
			out = append(out, t.Title)
		}
		return out
	}

	got, err := tasks.Find(ctx, store.TaskFilter{DueOn: day(0), Completed: ptr(false)})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"today", "bob today"}, titles(got))

	got, err = tasks.Find(ctx, store.TaskFilter{DueBefore: day(0), Completed: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, []string{"past"}, titles(got))

	got, err = tasks.Find(ctx, store.TaskFilter{
		UserID:    &alice.ID,
		Completed: ptr(false),
		DueAfter:  day(-4),
		OrderBy:   store.OrderDueAsc,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"past", "today", "later"}, titles(got))

	got, err = tasks.Find(ctx, store.TaskFilter{UserID: &alice.ID, OrderBy: store.OrderDueAsc, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"past", "today"}, titles(got))

	_, err = tasks.MarkNotified(ctx, past.ID, domain.KindOverdue, past.DueDate)
	require.NoError(t, err)
	got, err = tasks.Find(ctx, store.TaskFilter{DueBefore: day(0), OverdueSent: ptr(false)})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = tasks.Find(ctx, store.TaskFilter{UserID: &alice.ID})
	require.NoError(t, err)
	assert.Len(t, got, 5)
	for _, task := range got {
		assert.Equal(t, alice.ID, task.UserID)
	}
}

func TestTaskStore_DeleteAndDeleteCompleted(t *testing.T) {
	_, tasks, users := newStores(t)
	ctx := context.Background()
	owner := createUser(t, users, "alice")

	keep := createTask(t, tasks, owner.ID, "keep", nil, nil)
	for _, title := range []string{"a", "b"} {
		task := createTask(t, tasks, owner.ID, title, nil, nil)
		task.Completed = true
		require.NoError(t, tasks.Update(ctx, task))
	}

	n, err := tasks.DeleteCompleted(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, tasks.Delete(ctx, keep.ID))
	assert.ErrorIs(t, tasks.Delete(ctx, keep.ID), store.ErrTaskNotFound)
}

func TestTaskStore_WithTxRollsBack(t *testing.T) {
	db, tasks, users := newStores(t)
	ctx := context.Background()
	owner := createUser(t, users, "alice")
	task := createTask(t, tasks, owner.ID, "before", nil, nil)

	err := store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := tasks.WithTx(tx)
		task.Title = "after"
		if err := txTasks.Update(ctx, task); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	got, err := tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "before", got.Title)
}
