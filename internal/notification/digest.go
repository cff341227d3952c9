package notification

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/phrazzld/dozo/internal/domain"
	"github.com/phrazzld/dozo/internal/store"
)

// DigestAggregator builds daily digests.
type DigestAggregator struct {
	tasks         store.TaskStore
	lookaheadDays int
	upcomingLimit int
}

// NewDigestAggregator creates a DigestAggregator.
func NewDigestAggregator(tasks store.TaskStore, lookaheadDays, upcomingLimit int) *DigestAggregator {
	return &DigestAggregator{tasks: tasks, lookaheadDays: lookaheadDays, upcomingLimit: upcomingLimit}
}

// BuildDigest collects the open tasks of user due up to the lookahead
// horizon and partitions them.
func (a *DigestAggregator) BuildDigest(ctx context.Context, user *domain.User, today civil.Date) (*domain.Digest, error) {
	horizon := today.AddDays(a.lookaheadDays)
	open := false
	tasks, err := a.tasks.Find(ctx, store.TaskFilter{
		UserID:        &user.ID,
		Completed:     &open,
		DueOnOrBefore: &horizon,
		OrderBy:       store.OrderDueAsc,
	})
	if err != nil {
		return nil, fmt.Errorf("digest tasks for user %s: %w", user.ID, err)
	}
	return Partition(tasks, today, a.lookaheadDays, a.upcomingLimit), nil
}

// Partition splits tasks into the overdue, due-today and upcoming buckets.
// Completed and undated tasks are ignored. Overdue and upcoming are sorted
// by due date; upcoming covers (today, today+days] and holds at most limit
// entries.
func Partition(tasks []*domain.Task, today civil.Date, days, limit int) *domain.Digest {
	horizon := today.AddDays(days)
	d := &domain.Digest{Date: today}
	for _, t := range tasks {
		if t.Completed || t.DueDate == nil {
			continue
		}
		due := *t.DueDate
		switch {
		case due.Before(today):
			d.Overdue = append(d.Overdue, t)
		case due == today:
			d.DueToday = append(d.DueToday, t)
		case !due.After(horizon):
			d.Upcoming = append(d.Upcoming, t)
		}
	}
	byDue := func(s []*domain.Task) {
		sort.SliceStable(s, func(i, j int) bool { return s[i].DueDate.Before(*s[j].DueDate) })
	}
	byDue(d.Overdue)
	byDue(d.Upcoming)
	if limit > 0 && len(d.Upcoming) > limit {
		d.Upcoming = d.Upcoming[:limit]
	}
	return d
}
