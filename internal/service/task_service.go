package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/phrazzld/dozo/internal/domain"
	"github.com/phrazzld/dozo/internal/platform/logger"
	"github.com/phrazzld/dozo/internal/store"
)

// TaskInput carries the user-editable fields of a task.
type TaskInput struct {
	Title    string
	Priority domain.Priority
	DueDate  *civil.Date
	DueTime  *civil.Time
}

// TaskService provides task operations scoped to an owning user.
//
// It is the only place delivery flags are reset: changing the due date or
// re-opening a completed task clears both flags so the task can be notified
// again.
type TaskService interface {
	// CreateTask creates an incomplete task for userID.
	CreateTask(ctx context.Context, userID uuid.UUID, input TaskInput) (*domain.Task, error)

	// GetTask returns a task owned by userID.
	GetTask(ctx context.Context, userID, taskID uuid.UUID) (*domain.Task, error)

	// ListTasks returns the user's tasks, newest first. A non-nil completed
	// restricts the list to that state.
	ListTasks(ctx context.Context, userID uuid.UUID, completed *bool) ([]*domain.Task, error)

	// UpdateTask replaces the editable fields of a task.
	UpdateTask(ctx context.Context, userID, taskID uuid.UUID, input TaskInput) (*domain.Task, error)

	// ToggleTask flips the completion state of a task.
	ToggleTask(ctx context.Context, userID, taskID uuid.UUID) (*domain.Task, error)

	// DeleteTask removes a task.
	DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error

	// ClearCompleted removes the user's completed tasks and returns how many were removed.
	ClearCompleted(ctx context.Context, userID uuid.UUID) (int64, error)
}

// taskServiceImpl implements the TaskService interface
type taskServiceImpl struct {
	tasks  store.TaskStore
	users  store.UserStore
	db     *sql.DB
	logger *slog.Logger
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(tasks store.TaskStore, users store.UserStore, db *sql.DB, logger *slog.Logger) (TaskService, error) {
	if tasks == nil || users == nil || db == nil {
		return nil, errors.New("task service requires task store, user store and db")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &taskServiceImpl{
		tasks:  tasks,
		users:  users,
		db:     db,
		logger: logger.With(slog.String("component", "task_service")),
	}, nil
}

// CreateTask implements TaskService.CreateTask
func (s *taskServiceImpl) CreateTask(ctx context.Context, userID uuid.UUID, input TaskInput) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := domain.NewTask(userID, input.Title, input.Priority, input.DueDate, input.DueTime)
	if err != nil {
		log.Debug("invalid task input", slog.String("error", err.Error()))
		return nil, err
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := s.users.WithTx(tx).GetByID(ctx, userID); err != nil {
			return err
		}
		return s.tasks.WithTx(tx).Create(ctx, task)
	})
	if err != nil {
		if !store.IsNotFoundError(err) {
			log.Error("failed to create task",
				slog.String("error", err.Error()),
				slog.String("user_id", userID.String()))
		}
		return nil, taskError("create", err)
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", userID.String()))
	return task, nil
}

// GetTask implements TaskService.GetTask
func (s *taskServiceImpl) GetTask(ctx context.Context, userID, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.owned(ctx, s.tasks, userID, taskID)
	if err != nil {
		return nil, taskError("get", err)
	}
	return task, nil
}

// ListTasks implements TaskService.ListTasks
func (s *taskServiceImpl) ListTasks(ctx context.Context, userID uuid.UUID, completed *bool) ([]*domain.Task, error) {
	tasks, err := s.tasks.Find(ctx, store.TaskFilter{
		UserID:    &userID,
		Completed: completed,
		OrderBy:   store.OrderCreatedDesc,
	})
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list tasks",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, taskError("list", err)
	}
	return tasks, nil
}

// UpdateTask implements TaskService.UpdateTask
// A due-date change resets both delivery flags; a due-time change alone does not.
func (s *taskServiceImpl) UpdateTask(ctx context.Context, userID, taskID uuid.UUID, input TaskInput) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var task *domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)

		current, err := s.owned(ctx, txTasks, userID, taskID)
		if err != nil {
			return err
		}
		reset, err := current.ApplyEdit(domain.TaskEdit{
			Title:    input.Title,
			Priority: input.Priority,
			DueDate:  input.DueDate,
			DueTime:  input.DueTime,
		})
		if err != nil {
			return err
		}
		if err := txTasks.Update(ctx, current); err != nil {
			return err
		}
		if reset {
			if err := txTasks.ResetNotified(ctx, taskID); err != nil {
				return err
			}
			log.Debug("due date changed; delivery flags reset", slog.String("task_id", taskID.String()))
		}
		task = current
		return nil
	})
	if err != nil {
		return nil, taskError("update", err)
	}
	return task, nil
}

// ToggleTask implements TaskService.ToggleTask
// Re-opening a completed task resets both delivery flags.
func (s *taskServiceImpl) ToggleTask(ctx context.Context, userID, taskID uuid.UUID) (*domain.Task, error) {
	var task *domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)

		current, err := s.owned(ctx, txTasks, userID, taskID)
		if err != nil {
			return err
		}
		reopened := current.Toggle()
		if err := txTasks.Update(ctx, current); err != nil {
			return err
		}
		if reopened {
			if err := txTasks.ResetNotified(ctx, taskID); err != nil {
				return err
			}
		}
		task = current
		return nil
	})
	if err != nil {
		return nil, taskError("toggle", err)
	}
	return task, nil
}

// DeleteTask implements TaskService.DeleteTask
func (s *taskServiceImpl) DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error {
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)
		if _, err := s.owned(ctx, txTasks, userID, taskID); err != nil {
			return err
		}
		return txTasks.Delete(ctx, taskID)
	})
	if err != nil {
		return taskError("delete", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("task deleted",
		slog.String("task_id", taskID.String()),
		slog.String("user_id", userID.String()))
	return nil
}

// ClearCompleted implements TaskService.ClearCompleted
func (s *taskServiceImpl) ClearCompleted(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.tasks.DeleteCompleted(ctx, userID)
	if err != nil {
		return 0, taskError("clear completed", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("completed tasks cleared",
		slog.String("user_id", userID.String()),
		slog.Int64("count", n))
	return n, nil
}

// owned loads a task and checks that userID owns it.
func (s *taskServiceImpl) owned(ctx context.Context, tasks store.TaskStore, userID, taskID uuid.UUID) (*domain.Task, error) {
	task, err := tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID {
		logger.FromContextOrDefault(ctx, s.logger).Warn("task access by non-owner",
			slog.String("task_id", taskID.String()),
			slog.String("user_id", userID.String()))
		return nil, ErrTaskNotOwned
	}
	return task, nil
}
