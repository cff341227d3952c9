package notification

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/civil"
	"github.com/phrazzld/dozo/internal/domain"
	"github.com/phrazzld/dozo/internal/store"
)

// Outcome is the result of one delivery attempt.
type Outcome int

const (
	// Delivered means the notification was sent and the flag recorded.
	Delivered Outcome = iota
	// Unsubscribed means the user has the kind switched off.
	Unsubscribed
	// AlreadyHandled means the flag was already set, possibly by a
	// concurrent runner.
	AlreadyHandled
	// Stale means the task was deleted, completed or rescheduled since the
	// scan.
	Stale
	// SendFailed means the notifier reported failure; the flag is untouched
	// and the task stays eligible.
	SendFailed
	// StoreFailed means the task could not be re-read.
	StoreFailed
	// Empty means a digest had nothing to report.
	Empty
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Unsubscribed:
		return "unsubscribed"
	case AlreadyHandled:
		return "already_handled"
	case Stale:
		return "stale"
	case SendFailed:
		return "send_failed"
	case StoreFailed:
		return "store_failed"
	case Empty:
		return "empty"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// SendFunc sends one notification and reports whether it was accepted.
type SendFunc func(ctx context.Context, user *domain.User, task *domain.Task) bool

// Gate enforces at-most-once delivery of flagged notification kinds.
type Gate struct {
	tasks  store.TaskStore
	logger *slog.Logger
}

// NewGate creates a Gate.
func NewGate(tasks store.TaskStore, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{tasks: tasks, logger: logger}
}

// TryDeliver sends kind for task to user unless something makes it
// unnecessary, and records the delivery flag after a confirmed send.
//
// The preference check comes first and touches no flag. The task is then
// re-read so that a task completed, deleted or rescheduled since the scan is
// not notified. The flag write is conditional on the flag still being false
// and the due date unchanged; losing that race reports AlreadyHandled.
//
// A non-nil error is returned only for store failures. Delivered with an
// error means the email went out but the flag could not be written.
func (g *Gate) TryDeliver(ctx context.Context, task *domain.Task, user *domain.User, kind domain.NotificationKind, send SendFunc) (Outcome, error) {
	if !kind.HasTaskFlag() {
		return StoreFailed, fmt.Errorf("%w: %s has no delivery flag", domain.ErrInvalidNotificationKind, kind)
	}
	if !user.Preferences.Allows(kind) {
		return Unsubscribed, nil
	}

	current, err := g.tasks.GetByID(ctx, task.ID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return Stale, nil
		}
		return StoreFailed, fmt.Errorf("re-read task: %w", err)
	}
	if current.Flag(kind) {
		return AlreadyHandled, nil
	}
	if current.Completed || !domain.SameDate(current.DueDate, task.DueDate) || !sameTime(current.DueTime, task.DueTime) {
		return Stale, nil
	}

	if !send(ctx, user, current) {
		return SendFailed, nil
	}

	marked, err := g.tasks.MarkNotified(ctx, current.ID, kind, current.DueDate)
	if err != nil {
		return Delivered, fmt.Errorf("record %s flag: %w", kind, err)
	}
	if !marked {
		g.logger.DebugContext(ctx, "delivery flag already recorded",
			slog.String("kind", kind.String()),
			slog.String("task_id", current.ID.String()))
		return AlreadyHandled, nil
	}
	return Delivered, nil
}

func sameTime(a, b *civil.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
