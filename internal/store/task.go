package store

import (
	"context"
	"database/sql"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/phrazzld/dozo/internal/domain"
)

// TaskOrder selects the ordering of Find results.
type TaskOrder int

const (
	// OrderCreatedDesc lists newest tasks first.
	OrderCreatedDesc TaskOrder = iota
	// OrderDueAsc lists tasks by due date, earliest first, then by creation.
	OrderDueAsc
)

// TaskFilter is the predicate for TaskStore.Find. Nil fields do not
// constrain the result. Any of the due-date bounds excludes undated tasks.
type TaskFilter struct {
	UserID        *uuid.UUID
	Completed     *bool
	ReminderSent  *bool
	OverdueSent   *bool
	DueOn         *civil.Date
	DueBefore     *civil.Date // strictly before
	DueAfter      *civil.Date // strictly after
	DueOnOrBefore *civil.Date
	OrderBy       TaskOrder
	// Limit caps the number of results when positive.
	Limit int
}

// HasDueBound reports whether any due-date constraint is set.
func (f TaskFilter) HasDueBound() bool {
	return f.DueOn != nil || f.DueBefore != nil || f.DueAfter != nil || f.DueOnOrBefore != nil
}

// Matches reports whether t satisfies the filter, ignoring ordering and limit.
func (f TaskFilter) Matches(t *domain.Task) bool {
	if f.UserID != nil && t.UserID != *f.UserID {
		return false
	}
	if f.Completed != nil && t.Completed != *f.Completed {
		return false
	}
	if f.ReminderSent != nil && t.ReminderSent != *f.ReminderSent {
		return false
	}
	if f.OverdueSent != nil && t.OverdueSent != *f.OverdueSent {
		return false
	}
	if !f.HasDueBound() {
		return true
	}
	if t.DueDate == nil {
		return false
	}
	d := *t.DueDate
	if f.DueOn != nil && d != *f.DueOn {
		return false
	}
	if f.DueBefore != nil && !d.Before(*f.DueBefore) {
		return false
	}
	if f.DueAfter != nil && !d.After(*f.DueAfter) {
		return false
	}
	if f.DueOnOrBefore != nil && d.After(*f.DueOnOrBefore) {
		return false
	}
	return true
}

// TaskStore defines the interface for task data persistence.
type TaskStore interface {
	// Create saves a new task.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Update writes title, completion, priority and due fields.
	// It never writes the delivery flags; see MarkNotified and ResetNotified.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteCompleted removes all completed tasks of a user and returns
	// how many were removed.
	DeleteCompleted(ctx context.Context, userID uuid.UUID) (int64, error)

	// Find returns tasks matching the filter.
	Find(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)

	// MarkNotified sets the delivery flag for kind to true, provided the
	// flag is still false and the due date still equals dueDate. It returns
	// false without error when that precondition no longer holds, which
	// callers treat as "already handled".
	MarkNotified(ctx context.Context, id uuid.UUID, kind domain.NotificationKind, dueDate *civil.Date) (bool, error)

	// ResetNotified clears both delivery flags.
	// Returns ErrTaskNotFound if the task does not exist.
	ResetNotified(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}
