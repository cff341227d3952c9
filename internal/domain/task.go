package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// MaxTitleLength is the maximum number of characters in a task title.
const MaxTitleLength = 256

// Priority ranks a task. The zero value is not a valid priority.
type Priority string

// Valid task priorities.
const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// ParsePriority converts user input into a Priority. An empty string
// yields PriorityNormal.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PriorityNormal, nil
	case PriorityLow, PriorityNormal, PriorityHigh:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, s)
	}
}

// IsValid reports whether p is one of the defined priorities.
func (p Priority) IsValid() bool {
	return p == PriorityLow || p == PriorityNormal || p == PriorityHigh
}

// Task is a to-do item owned by a user.
//
// ReminderSent and OverdueSent record that the corresponding notification
// has been delivered. They only move from false to true after a confirmed
// send, and only move back when the task is edited in a way that makes the
// earlier notification meaningless (due date changed, or re-opened).
type Task struct {
	ID           uuid.UUID   `json:"id"`
	UserID       uuid.UUID   `json:"user_id"`
	Title        string      `json:"title"`
	Completed    bool        `json:"completed"`
	Priority     Priority    `json:"priority"`
	DueDate      *civil.Date `json:"due_date,omitempty"`
	DueTime      *civil.Time `json:"due_time,omitempty"`
	ReminderSent bool        `json:"reminder_sent"`
	OverdueSent  bool        `json:"overdue_sent"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// NewTask creates a validated, incomplete task with both delivery flags false.
func NewTask(userID uuid.UUID, title string, priority Priority, dueDate *civil.Date, dueTime *civil.Time) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     strings.TrimSpace(title),
		Priority:  priority,
		DueDate:   dueDate,
		DueTime:   dueTime,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if task.Priority == "" {
		task.Priority = PriorityNormal
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}

// Validate checks if the Task has valid data.
// A due time without a due date is allowed; it is simply never consulted.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return fmt.Errorf("%w: task ID cannot be empty", ErrInvalidID)
	}
	if t.UserID == uuid.Nil {
		return ErrEmptyUserID
	}
	if t.Title == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(t.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if !t.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, t.Priority)
	}
	if t.DueDate != nil && !t.DueDate.IsValid() {
		return fmt.Errorf("%w: invalid due date", ErrValidation)
	}
	if t.DueTime != nil && !t.DueTime.IsValid() {
		return fmt.Errorf("%w: invalid due time", ErrValidation)
	}
	return nil
}

// DueAt returns the instant a task with both a due date and a due time is
// due, interpreted in UTC. The second result is false when either part is
// missing.
func (t *Task) DueAt() (time.Time, bool) {
	if t.DueDate == nil || t.DueTime == nil {
		return time.Time{}, false
	}
	return civil.DateTime{Date: *t.DueDate, Time: *t.DueTime}.In(time.UTC), true
}

// Flag reports the delivery flag for kind. Kinds without a per-task flag
// always report false.
func (t *Task) Flag(kind NotificationKind) bool {
	switch kind {
	case KindReminder:
		return t.ReminderSent
	case KindOverdue:
		return t.OverdueSent
	default:
		return false
	}
}

// ResetFlags clears both delivery flags.
func (t *Task) ResetFlags() {
	t.ReminderSent = false
	t.OverdueSent = false
}

// TaskEdit carries the user-editable fields of a task.
type TaskEdit struct {
	Title    string
	Priority Priority
	DueDate  *civil.Date
	DueTime  *civil.Time
}

// ApplyEdit replaces the editable fields and validates the result. It
// returns true when the due date changed, in which case both delivery
// flags have been reset. Changing only the due time keeps the flags.
func (t *Task) ApplyEdit(edit TaskEdit) (bool, error) {
	updated := *t
	updated.Title = strings.TrimSpace(edit.Title)
	updated.Priority = edit.Priority
	if updated.Priority == "" {
		updated.Priority = PriorityNormal
	}
	updated.DueDate = edit.DueDate
	updated.DueTime = edit.DueTime

	if err := updated.Validate(); err != nil {
		return false, err
	}

	reset := !SameDate(t.DueDate, edit.DueDate)
	if reset {
		updated.ResetFlags()
	}
	updated.UpdatedAt = time.Now().UTC()
	*t = updated
	return reset, nil
}

// Toggle flips the completion state. Re-opening a completed task resets
// both delivery flags and returns true; completing a task keeps them.
func (t *Task) Toggle() bool {
	t.Completed = !t.Completed
	t.UpdatedAt = time.Now().UTC()
	if !t.Completed {
		t.ResetFlags()
		return true
	}
	return false
}

// SameDate reports whether two optional dates are equal.
func SameDate(a, b *civil.Date) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Today returns the current UTC calendar day.
func Today(now time.Time) civil.Date {
	return civil.DateOf(now.UTC())
}
