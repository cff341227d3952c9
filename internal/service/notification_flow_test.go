package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/phrazzld/dozo/internal/domain"
	"github.com/phrazzld/dozo/internal/notification"
	"github.com/phrazzld/dozo/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Exercises task edits against the notification engine on a real database.
func TestEditMakesTaskNotifiableAgain(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	owner := f.register(t, "alice")

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	engine := notification.NewEngine(f.tasks, f.users, f.notifier, notification.DefaultConfig(),
		notification.WithClock(func() time.Time { return now }))

	task, err := f.taskSvc.CreateTask(ctx, owner.ID, service.TaskInput{Title: "dentist", DueDate: date(2025, 3, 10)})
	require.NoError(t, err)
	late, err := f.taskSvc.CreateTask(ctx, owner.ID, service.TaskInput{Title: "library books", DueDate: date(2025, 3, 7)})
	require.NoError(t, err)

	report, err := engine.RunReminderTick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Sent)
	assert.True(t, f.stored(t, task).ReminderSent)
	assert.True(t, f.stored(t, late).OverdueSent)

	report, err = engine.RunReminderTick(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Evaluated, "flags keep both tasks out of the scans")

	// Move the reminder to tomorrow and back: the date changed, so the
	// flag resets and today's reminder fires again.
	_, err = f.taskSvc.UpdateTask(ctx, owner.ID, task.ID, service.TaskInput{Title: "dentist", DueDate: date(2025, 3, 11)})
	require.NoError(t, err)
	_, err = f.taskSvc.UpdateTask(ctx, owner.ID, task.ID, service.TaskInput{Title: "dentist", DueDate: date(2025, 3, 10)})
	require.NoError(t, err)

	// Complete and re-open the overdue task.
	_, err = f.taskSvc.ToggleTask(ctx, owner.ID, late.ID)
	require.NoError(t, err)
	report, err = engine.RunReminderTick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent, "completed task is out of the overdue scan")

	_, err = f.taskSvc.ToggleTask(ctx, owner.ID, late.ID)
	require.NoError(t, err)
	report, err = engine.RunReminderTick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)

	assert.Len(t, f.notifier.CallsOf(domain.KindReminder), 2)
	assert.Len(t, f.notifier.CallsOf(domain.KindOverdue), 2)
}

func TestDigestOnRealStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	owner := f.register(t, "alice")
	_, err := f.userSvc.UpdatePreferences(ctx, owner.ID, domain.Preferences{Digest: true})
	require.NoError(t, err)
	quiet := f.register(t, "bob")
	_, err = f.userSvc.UpdatePreferences(ctx, quiet.ID, domain.Preferences{Digest: true})
	require.NoError(t, err)

	for day := 1; day <= 15; day++ {
		_, err := f.taskSvc.CreateTask(ctx, owner.ID, service.TaskInput{Title: "upcoming", DueDate: date(2025, 3, 10+day)})
		require.NoError(t, err)
	}
	_, err = f.taskSvc.CreateTask(ctx, owner.ID, service.TaskInput{Title: "today", DueDate: date(2025, 3, 10)})
	require.NoError(t, err)
	_, err = f.taskSvc.CreateTask(ctx, owner.ID, service.TaskInput{Title: "undated"})
	require.NoError(t, err)

	now := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)
	cfg := notification.DefaultConfig()
	cfg.DigestLookaheadDays = 15
	engine := notification.NewEngine(f.tasks, f.users, f.notifier, cfg,
		notification.WithClock(func() time.Time { return now }))

	report, err := engine.RunDigestTick(ctx)
	require.NoError(t, err)
	assert.Equal(t, notification.TickReport{Evaluated: 2, Sent: 1, Skipped: 1}, report)

	calls := f.notifier.CallsOf(domain.KindDigest)
	require.Len(t, calls, 1)
	d := calls[0].Digest
	assert.Len(t, d.DueToday, 1)
	require.Len(t, d.Upcoming, 10)
	for i, task := range d.Upcoming {
		assert.Equal(t, *date(2025, 3, 11+i), *task.DueDate)
	}
}
