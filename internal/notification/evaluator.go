package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/dozo/internal/domain"
	"github.com/phrazzld/dozo/internal/redact"
	"github.com/phrazzld/dozo/internal/store"
)

// Event is one candidate notification produced by a scan.
type Event struct {
	Kind domain.NotificationKind
	Task *domain.Task
	User *domain.User
}

// ReminderDue reports whether task should get a reminder at now.
//
// The task must be open, not yet reminded and due on today's UTC date. When
// it also has a due time, the due instant must fall inside
// [now, now+lookahead]. A task whose time has already passed today is not
// reminder-eligible and does not become overdue until its date is past.
func ReminderDue(task *domain.Task, now time.Time, lookahead time.Duration) bool {
	if task.Completed || task.ReminderSent || task.DueDate == nil {
		return false
	}
	if *task.DueDate != domain.Today(now) {
		return false
	}
	dueAt, timed := task.DueAt()
	if !timed {
		return true
	}
	now = now.UTC()
	return !dueAt.Before(now) && !dueAt.After(now.Add(lookahead))
}

// OverdueDue reports whether task should get an overdue notice at now:
// open, not yet notified, and due on a date before today.
func OverdueDue(task *domain.Task, now time.Time) bool {
	if task.Completed || task.OverdueSent || task.DueDate == nil {
		return false
	}
	return task.DueDate.Before(domain.Today(now))
}

// Evaluator finds eligible tasks. It never writes.
type Evaluator struct {
	tasks     store.TaskStore
	users     store.UserStore
	lookahead time.Duration
	logger    *slog.Logger
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(tasks store.TaskStore, users store.UserStore, lookahead time.Duration, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{tasks: tasks, users: users, lookahead: lookahead, logger: logger}
}

// EvaluateReminders returns reminder events for tasks due today.
func (e *Evaluator) EvaluateReminders(ctx context.Context, now time.Time) ([]Event, error) {
	today := domain.Today(now)
	open, notSent := false, false
	tasks, err := e.tasks.Find(ctx, store.TaskFilter{
		Completed:    &open,
		ReminderSent: &notSent,
		DueOn:        &today,
		OrderBy:      store.OrderDueAsc,
	})
	if err != nil {
		return nil, fmt.Errorf("reminder scan: %w", err)
	}
	return e.events(ctx, domain.KindReminder, tasks, func(t *domain.Task) bool {
		return ReminderDue(t, now, e.lookahead)
	}), nil
}

// EvaluateOverdue returns overdue events for tasks due before today.
func (e *Evaluator) EvaluateOverdue(ctx context.Context, now time.Time) ([]Event, error) {
	today := domain.Today(now)
	open, notSent := false, false
	tasks, err := e.tasks.Find(ctx, store.TaskFilter{
		Completed:   &open,
		OverdueSent: &notSent,
		DueBefore:   &today,
		OrderBy:     store.OrderDueAsc,
	})
	if err != nil {
		return nil, fmt.Errorf("overdue scan: %w", err)
	}
	return e.events(ctx, domain.KindOverdue, tasks, func(t *domain.Task) bool {
		return OverdueDue(t, now)
	}), nil
}

// events pairs each eligible task with its owner. Owners are loaded once
// per scan; tasks whose owner cannot be loaded are skipped.
func (e *Evaluator) events(ctx context.Context, kind domain.NotificationKind, tasks []*domain.Task, eligible func(*domain.Task) bool) []Event {
	owners := make(map[uuid.UUID]*domain.User)
	missing := make(map[uuid.UUID]bool)
	events := make([]Event, 0, len(tasks))

	for _, task := range tasks {
		if !eligible(task) || missing[task.UserID] {
			continue
		}
		owner, ok := owners[task.UserID]
		if !ok {
			u, err := e.users.GetByID(ctx, task.UserID)
			if err != nil {
				missing[task.UserID] = true
				e.logger.WarnContext(ctx, "skipping tasks of unloadable user",
					slog.String("kind", kind.String()),
					slog.String("user_id", task.UserID.String()),
					slog.String("error", redact.Error(err)))
				continue
			}
			owners[task.UserID] = u
			owner = u
		}
		events = append(events, Event{Kind: kind, Task: task, User: owner})
	}
	return events
}
