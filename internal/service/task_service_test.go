package service_test

import (
	"context"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/phrazzld/dozo/internal/domain"
	"github.com/phrazzld/dozo/internal/service"
	"github.com/phrazzld/dozo/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTask(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	owner := f.register(t, "alice")

	task, err := f.taskSvc.CreateTask(ctx, owner.ID, service.TaskInput{
		Title:   "  water plants  ",
		DueDate: date(2025, 3, 10),
		DueTime: &civil.Time{Hour: 9},
	})
	require.NoError(t, err)

	assert.Equal(t, "water plants", task.Title)
	assert.Equal(t, domain.PriorityNormal, task.Priority)
	assert.False(t, task.Completed)

	got := f.stored(t, task)
	assert.Equal(t, task.Title, got.Title)
	assert.False(t, got.ReminderSent)
	assert.False(t, got.OverdueSent)
	assert.Equal(t, *date(2025, 3, 10), *got.DueDate)
	assert.Equal(t, civil.Time{Hour: 9}, *got.DueTime)
}

func TestCreateTaskErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	owner := f.register(t, "alice")

	_, err := f.taskSvc.CreateTask(ctx, owner.ID, service.TaskInput{Title: "   "})
	assert.ErrorIs(t, err, domain.ErrEmptyTitle)

	_, err = f.taskSvc.CreateTask(ctx, owner.ID, service.TaskInput{Title: "x", Priority: "urgent"})
	assert.ErrorIs(t, err, domain.ErrInvalidPriority)

	_, err = f.taskSvc.CreateTask(ctx, uuid.New(), service.TaskInput{Title: "orphan"})
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestTaskOwnership(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")

	task, err := f.taskSvc.CreateTask(ctx, alice.ID, service.TaskInput{Title: "private"})
	require.NoError(t, err)

	_, err = f.taskSvc.GetTask(ctx, bob.ID, task.ID)
	assert.ErrorIs(t, err, service.ErrTaskNotOwned)
	_, err = f.taskSvc.UpdateTask(ctx, bob.ID, task.ID, service.TaskInput{Title: "mine now"})
	assert.ErrorIs(t, err, service.ErrTaskNotOwned)
	_, err = f.taskSvc.ToggleTask(ctx, bob.ID, task.ID)
	assert.ErrorIs(t, err, service.ErrTaskNotOwned)
	assert.ErrorIs(t, f.taskSvc.DeleteTask(ctx, bob.ID, task.ID), service.ErrTaskNotOwned)

	got := f.stored(t, task)
	assert.Equal(t, "private", got.Title)
	assert.False(t, got.Completed)

	_, err = f.taskSvc.GetTask(ctx, alice.ID, uuid.New())
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestUpdateTaskDueDateResetsFlags(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	owner := f.register(t, "alice")

	task, err := f.taskSvc.CreateTask(ctx, owner.ID, service.TaskInput{Title: "report", DueDate: date(2025, 3, 1)})
	require.NoError(t, err)
	f.markBoth(t, task)

	updated, err := f.taskSvc.UpdateTask(ctx, owner.ID, task.ID, service.TaskInput{
		Title:    "report v2",
		Priority: domain.PriorityHigh,
		DueDate:  date(2025, 3, 20),
	})
	require.NoError(t, err)
	assert.False(t, updated.ReminderSent)
	assert.False(t, updated.OverdueSent)

	got := f.stored(t, task)
	assert.Equal(t, "report v2", got.Title)
	assert.Equal(t, domain.PriorityHigh, got.Priority)
	assert.Equal(t, *date(2025, 3, 20), *got.DueDate)
	assert.False(t, got.ReminderSent)
	assert.False(t, got.OverdueSent)
}

func TestUpdateTaskClearingDueDateResetsFlags(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	owner := f.register(t, "alice")

	task, err := f.taskSvc.CreateTask(ctx, owner.ID, service.TaskInput{Title: "report", DueDate: date(2025, 3, 1)})
	require.NoError(t, err)
	f.markBoth(t, task)

	_, err = f.taskSvc.UpdateTask(ctx, owner.ID, task.ID, service.TaskInput{Title: "report"})
	require.NoError(t, err)

	got := f.stored(t, task)
	assert.Nil(t, got.DueDate)
	assert.False(t, got.ReminderSent)
	assert.False(t, got.OverdueSent)
}

func TestUpdateTaskKeepsFlagsWhenDateUnchanged(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	owner := f.register(t, "alice")

	task, err := f.taskSvc.CreateTask(ctx, owner.ID, service.TaskInput{Title: "standup", DueDate: date(2025, 3, 10), DueTime: &civil.Time{Hour: 9}})
	require.NoError(t, err)
	f.markBoth(t, task)

	_, err = f.taskSvc.UpdateTask(ctx, owner.ID, task.ID, service.TaskInput{
		Title:   "standup (moved)",
		DueDate: date(2025, 3, 10),
		DueTime: &civil.Time{Hour: 10, Minute: 30},
	})
	require.NoError(t, err)

	got := f.stored(t, task)
	assert.Equal(t, civil.Time{Hour: 10, Minute: 30}, *got.DueTime)
	assert.True(t, got.ReminderSent)
	assert.True(t, got.OverdueSent)
}

func TestUpdateTaskInvalidInputChangesNothing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	owner := f.register(t, "alice")

	task, err := f.taskSvc.CreateTask(ctx, owner.ID, service.TaskInput{Title: "keep", DueDate: date(2025, 3, 1)})
	require.NoError(t, err)
	f.markBoth(t, task)

	_, err = f.taskSvc.UpdateTask(ctx, owner.ID, task.ID, service.TaskInput{Title: "", DueDate: date(2025, 4, 1)})
	assert.ErrorIs(t, err, domain.ErrEmptyTitle)

	got := f.stored(t, task)
	assert.Equal(t, "keep", got.Title)
	assert.True(t, got.ReminderSent)
}

func TestToggleTask(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	owner := f.register(t, "alice")

	task, err := f.taskSvc.CreateTask(ctx, owner.ID, service.TaskInput{Title: "pay rent", DueDate: date(2025, 3, 1)})
	require.NoError(t, err)
	f.markBoth(t, task)

	done, err := f.taskSvc.ToggleTask(ctx, owner.ID, task.ID)
	require.NoError(t, err)
	assert.True(t, done.Completed)
	got := f.stored(t, task)
	assert.True(t, got.Completed)
	assert.True(t, got.ReminderSent, "completing keeps flags")
	assert.True(t, got.OverdueSent, "completing keeps flags")

	reopened, err := f.taskSvc.ToggleTask(ctx, owner.ID, task.ID)
	require.NoError(t, err)
	assert.False(t, reopened.Completed)
	got = f.stored(t, task)
	assert.False(t, got.Completed)
	assert.False(t, got.ReminderSent, "re-opening resets flags")
	assert.False(t, got.OverdueSent, "re-opening resets flags")
}

func TestListDeleteAndClearCompleted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")

	var created []*domain.Task
	for _, title := range []string{"first", "second", "third"} {
		task, err := f.taskSvc.CreateTask(ctx, alice.ID, service.TaskInput{Title: title})
		require.NoError(t, err)
		created = append(created, task)
	}
	_, err := f.taskSvc.CreateTask(ctx, bob.ID, service.TaskInput{Title: "bob's"})
	require.NoError(t, err)

	_, err = f.taskSvc.ToggleTask(ctx, alice.ID, created[0].ID)
	require.NoError(t, err)

	all, err := f.taskSvc.ListTasks(ctx, alice.ID, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Title, "newest first")

	open := false
	pending, err := f.taskSvc.ListTasks(ctx, alice.ID, &open)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	require.NoError(t, f.taskSvc.DeleteTask(ctx, alice.ID, created[1].ID))
	assert.ErrorIs(t, f.taskSvc.DeleteTask(ctx, alice.ID, created[1].ID), store.ErrTaskNotFound)

	n, err := f.taskSvc.ClearCompleted(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	remaining, err := f.taskSvc.ListTasks(ctx, alice.ID, nil)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "third", remaining[0].Title)

	bobs, err := f.taskSvc.ListTasks(ctx, bob.ID, nil)
	require.NoError(t, err)
	assert.Len(t, bobs, 1)
}
