package notification_test

import (
	"context"
	"math/rand"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/phrazzld/dozo/internal/domain"
	"github.com/phrazzld/dozo/internal/mocks"
	"github.com/phrazzld/dozo/internal/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dueOn(d *civil.Date) *domain.Task {
	return &domain.Task{ID: uuid.New(), DueDate: d}
}

func TestPartitionUpcomingCap(t *testing.T) {
	t.Parallel()

	today := *day(0)
	tasks := make([]*domain.Task, 0, 15)
	for i := 1; i <= 15; i++ {
		tasks = append(tasks, dueOn(day(i)))
	}
	rand.New(rand.NewSource(7)).Shuffle(len(tasks), func(i, j int) { tasks[i], tasks[j] = tasks[j], tasks[i] })

	d := notification.Partition(tasks, today, 15, 10)

	require.Len(t, d.Upcoming, 10)
	for i, task := range d.Upcoming {
		assert.Equal(t, *day(i+1), *task.DueDate, "upcoming[%d]", i)
	}
	assert.Empty(t, d.Overdue)
	assert.Empty(t, d.DueToday)
}

func TestPartitionBuckets(t *testing.T) {
	t.Parallel()

	today := *day(0)
	overdueLate := dueOn(day(-1))
	overdueEarly := dueOn(day(-9))
	dueToday := dueOn(day(0))
	edge := dueOn(day(7))
	beyond := dueOn(day(8))
	undated := &domain.Task{ID: uuid.New()}
	completed := dueOn(day(0))
	completed.Completed = true

	d := notification.Partition(
		[]*domain.Task{beyond, overdueLate, edge, undated, dueToday, completed, overdueEarly},
		today, 7, 10)

	assert.Equal(t, today, d.Date)
	assert.Equal(t, []*domain.Task{overdueEarly, overdueLate}, d.Overdue)
	assert.Equal(t, []*domain.Task{dueToday}, d.DueToday)
	assert.Equal(t, []*domain.Task{edge}, d.Upcoming)
	assert.False(t, d.IsEmpty())
}

func TestPartitionEmpty(t *testing.T) {
	t.Parallel()
	d := notification.Partition([]*domain.Task{dueOn(day(30))}, *day(0), 7, 10)
	assert.True(t, d.IsEmpty())
}

func TestBuildDigestScopesToUser(t *testing.T) {
	t.Parallel()

	tasks := mocks.NewMockTaskStore()
	users := mocks.NewMockUserStore()
	me := newUser(t, users, allOn())
	other := newUser(t, users, allOn())

	mine := newTask(t, tasks, me, "mine", day(2), nil)
	newTask(t, tasks, other, "theirs", day(2), nil)
	done := newTask(t, tasks, me, "done", day(-1), nil)
	done.Completed = true
	tasks.Put(done)

	agg := notification.NewDigestAggregator(tasks, 7, 10)
	d, err := agg.BuildDigest(context.Background(), me, *day(0))
	require.NoError(t, err)

	require.Len(t, d.Upcoming, 1)
	assert.Equal(t, mine.ID, d.Upcoming[0].ID)
	assert.Empty(t, d.Overdue)
	assert.Empty(t, d.DueToday)
}
