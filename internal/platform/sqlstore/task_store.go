package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/dozo/internal/domain"
	"github.com/phrazzld/dozo/internal/platform/logger"
	"github.com/phrazzld/dozo/internal/store"
)

// taskRow is the database shape of a task. Due date and time travel as
// ISO-8601 strings in both dialects.
type taskRow struct {
	ID           uuid.UUID      `db:"id"`
	UserID       uuid.UUID      `db:"user_id"`
	Title        string         `db:"title"`
	Completed    bool           `db:"completed"`
	Priority     string         `db:"priority"`
	DueDate      sql.NullString `db:"due_date"`
	DueTime      sql.NullString `db:"due_time"`
	ReminderSent bool           `db:"reminder_sent"`
	OverdueSent  bool           `db:"overdue_sent"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r *taskRow) toDomain() (*domain.Task, error) {
	task := &domain.Task{
		ID:           r.ID,
		UserID:       r.UserID,
		Title:        r.Title,
		Completed:    r.Completed,
		Priority:     domain.Priority(r.Priority),
		ReminderSent: r.ReminderSent,
		OverdueSent:  r.OverdueSent,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if r.DueDate.Valid {
		d, err := civil.ParseDate(r.DueDate.String)
		if err != nil {
			return nil, fmt.Errorf("invalid due_date %q for task %s: %w", r.DueDate.String, r.ID, err)
		}
		task.DueDate = &d
	}
	if r.DueTime.Valid {
		t, err := civil.ParseTime(r.DueTime.String)
		if err != nil {
			return nil, fmt.Errorf("invalid due_time %q for task %s: %w", r.DueTime.String, r.ID, err)
		}
		task.DueTime = &t
	}
	return task, nil
}

func dateArg(d *civil.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func timeArg(t *civil.Time) any {
	if t == nil {
		return nil
	}
	return civil.Time{Hour: t.Hour, Minute: t.Minute, Second: t.Second}.String()
}

// TaskStore implements store.TaskStore on top of PostgreSQL or SQLite.
type TaskStore struct {
	db      store.DBTX
	dialect Dialect
	logger  *slog.Logger
}

// NewTaskStore creates a TaskStore using the given connection or transaction.
// If logger is nil, a default logger will be used.
func NewTaskStore(db store.DBTX, dialect Dialect, logger *slog.Logger) *TaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskStore{
		db:      db,
		dialect: dialect,
		logger:  logger.With(slog.String("component", "task_store")),
	}
}

// Ensure TaskStore implements store.TaskStore interface
var _ store.TaskStore = (*TaskStore)(nil)

// WithTx implements store.TaskStore.WithTx
func (s *TaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &TaskStore{db: tx, dialect: s.dialect, logger: s.logger}
}

func (s *TaskStore) columns() string {
	dueCols := "due_date, due_time"
	if s.dialect == Postgres {
		dueCols = "to_char(due_date, 'YYYY-MM-DD') AS due_date, to_char(due_time, 'HH24:MI:SS') AS due_time"
	}
	return "id, user_id, title, completed, priority, " + dueCols +
		", reminder_sent, overdue_sent, created_at, updated_at"
}

// Create implements store.TaskStore.Create
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := s.dialect.rebind(`
		INSERT INTO tasks (id, user_id, title, completed, priority, due_date, due_time,
			reminder_sent, overdue_sent, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query,
		task.ID, task.UserID, task.Title, task.Completed, string(task.Priority),
		dateArg(task.DueDate), timeArg(task.DueTime),
		task.ReminderSent, task.OverdueSent, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during task creation",
				slog.String("task_id", task.ID.String()),
				slog.String("user_id", task.UserID.String()))
			return fmt.Errorf("%w: user with ID %s not found", store.ErrInvalidEntity, task.UserID)
		}
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return store.NewStoreError("task", "create", "insert failed", MapError(err))
	}

	log.Debug("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", task.UserID.String()))
	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := s.dialect.rebind("SELECT " + s.columns() + " FROM tasks WHERE id = ?")
	tasks, err := s.query(ctx, query, id)
	if err != nil {
		return nil, store.NewStoreError("task", "get", "query failed", err)
	}
	if len(tasks) == 0 {
		return nil, store.ErrTaskNotFound
	}
	return tasks[0], nil
}

// Update implements store.TaskStore.Update
func (s *TaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return err
	}

	query := s.dialect.rebind(`
		UPDATE tasks
		SET title = ?, completed = ?, priority = ?, due_date = ?, due_time = ?, updated_at = ?
		WHERE id = ?`)
	result, err := s.db.ExecContext(ctx, query,
		task.Title, task.Completed, string(task.Priority),
		dateArg(task.DueDate), timeArg(task.DueTime), task.UpdatedAt, task.ID)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return store.NewStoreError("task", "update", "update failed", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// Delete implements store.TaskStore.Delete
func (s *TaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, s.dialect.rebind("DELETE FROM tasks WHERE id = ?"), id)
	if err != nil {
		return store.NewStoreError("task", "delete", "delete failed", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// DeleteCompleted implements store.TaskStore.DeleteCompleted
func (s *TaskStore) DeleteCompleted(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := s.dialect.rebind("DELETE FROM tasks WHERE user_id = ? AND completed = ?")
	result, err := s.db.ExecContext(ctx, query, userID, true)
	if err != nil {
		return 0, store.NewStoreError("task", "delete_completed", "delete failed", MapError(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// Find implements store.TaskStore.Find
func (s *TaskStore) Find(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	query, args := s.buildFind(filter)
	tasks, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, store.NewStoreError("task", "find", "query failed", err)
	}
	return tasks, nil
}

func (s *TaskStore) buildFind(f store.TaskFilter) (string, []any) {
	var where []string
	var args []any
	add := func(cond string, arg any) {
		where = append(where, cond)
		args = append(args, arg)
	}

	if f.UserID != nil {
		add("user_id = ?", *f.UserID)
	}
	if f.Completed != nil {
		add("completed = ?", *f.Completed)
	}
	if f.ReminderSent != nil {
		add("reminder_sent = ?", *f.ReminderSent)
	}
	if f.OverdueSent != nil {
		add("overdue_sent = ?", *f.OverdueSent)
	}
	if f.HasDueBound() {
		where = append(where, "due_date IS NOT NULL")
	}
	if f.DueOn != nil {
		add("due_date = ?", f.DueOn.String())
	}
	if f.DueBefore != nil {
		add("due_date < ?", f.DueBefore.String())
	}
	if f.DueAfter != nil {
		add("due_date > ?", f.DueAfter.String())
	}
	if f.DueOnOrBefore != nil {
		add("due_date <= ?", f.DueOnOrBefore.String())
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(s.columns())
	b.WriteString(" FROM tasks")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	switch f.OrderBy {
	case store.OrderDueAsc:
		b.WriteString(" ORDER BY due_date ASC NULLS LAST, created_at ASC, id ASC")
	default:
		b.WriteString(" ORDER BY created_at DESC, id ASC")
	}
	if f.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, f.Limit)
	}

	return s.dialect.rebind(b.String()), args
}

func (s *TaskStore) query(ctx context.Context, query string, args ...any) ([]*domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var records []taskRow
	if err := sqlx.StructScan(rows, &records); err != nil {
		return nil, fmt.Errorf("failed to scan tasks: %w", err)
	}

	tasks := make([]*domain.Task, 0, len(records))
	for i := range records {
		task, err := records[i].toDomain()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func flagColumn(kind domain.NotificationKind) (string, error) {
	switch kind {
	case domain.KindReminder:
		return "reminder_sent", nil
	case domain.KindOverdue:
		return "overdue_sent", nil
	default:
		return "", fmt.Errorf("%w: %s has no delivery flag", domain.ErrInvalidNotificationKind, kind)
	}
}

// MarkNotified implements store.TaskStore.MarkNotified.
// The flag write is conditioned on the flag still being false and the due
// date being unchanged, so an edit racing with an in-flight send is never
// overwritten.
func (s *TaskStore) MarkNotified(ctx context.Context, id uuid.UUID, kind domain.NotificationKind, dueDate *civil.Date) (bool, error) {
	col, err := flagColumn(kind)
	if err != nil {
		return false, err
	}

	args := []any{true, id, false}
	dueCond := "due_date IS NULL"
	if dueDate != nil {
		dueCond = "due_date = ?"
		args = append(args, dueDate.String())
	}
	query := s.dialect.rebind(fmt.Sprintf(
		"UPDATE tasks SET %[1]s = ? WHERE id = ? AND %[1]s = ? AND %[2]s", col, dueCond))

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, store.NewStoreError("task", "mark_notified", "update failed", MapError(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

// ResetNotified implements store.TaskStore.ResetNotified
func (s *TaskStore) ResetNotified(ctx context.Context, id uuid.UUID) error {
	query := s.dialect.rebind("UPDATE tasks SET reminder_sent = ?, overdue_sent = ? WHERE id = ?")
	result, err := s.db.ExecContext(ctx, query, false, false, id)
	if err != nil {
		return store.NewStoreError("task", "reset_notified", "update failed", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrTaskNotFound)
}
