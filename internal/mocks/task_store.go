package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/phrazzld/dozo/internal/domain"
	"github.com/phrazzld/dozo/internal/store"
)

// MockTaskStore implements store.TaskStore in memory. Tasks are copied on
// the way in and out so callers cannot mutate stored state directly.
type MockTaskStore struct {
	// Function fields for customizable behavior
	CreateFn          func(ctx context.Context, task *domain.Task) error
	GetByIDFn         func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	UpdateFn          func(ctx context.Context, task *domain.Task) error
	DeleteFn          func(ctx context.Context, id uuid.UUID) error
	DeleteCompletedFn func(ctx context.Context, userID uuid.UUID) (int64, error)
	FindFn            func(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error)
	MarkNotifiedFn    func(ctx context.Context, id uuid.UUID, kind domain.NotificationKind, dueDate *civil.Date) (bool, error)
	ResetNotifiedFn   func(ctx context.Context, id uuid.UUID) error

	mu    sync.Mutex
	tasks map[uuid.UUID]domain.Task
	// MarkCalls counts MarkNotified invocations.
	MarkCalls int
}

// NewMockTaskStore creates an empty store.
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{tasks: make(map[uuid.UUID]domain.Task)}
}

var _ store.TaskStore = (*MockTaskStore)(nil)

// Put stores a copy of task, bypassing validation.
func (m *MockTaskStore) Put(task *domain.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.ID] = *task
}

// Snapshot returns a copy of the stored task, or nil.
func (m *MockTaskStore) Snapshot(id uuid.UUID) *domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil
	}
	return &t
}

// Create implements store.TaskStore
func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}
	if err := task.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tasks[task.ID]; exists {
		return store.ErrDuplicate
	}
	m.tasks[task.ID] = *task
	return nil
}

// GetByID implements store.TaskStore
func (m *MockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	if t := m.Snapshot(id); t != nil {
		return t, nil
	}
	return nil, store.ErrTaskNotFound
}

// Update implements store.TaskStore. Delivery flags are preserved.
func (m *MockTaskStore) Update(ctx context.Context, task *domain.Task) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, task)
	}
	if err := task.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.tasks[task.ID]
	if !ok {
		return store.ErrTaskNotFound
	}
	updated := *task
	updated.ReminderSent = existing.ReminderSent
	updated.OverdueSent = existing.OverdueSent
	m.tasks[task.ID] = updated
	return nil
}

// Delete implements store.TaskStore
func (m *MockTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(m.tasks, id)
	return nil
}

// DeleteCompleted implements store.TaskStore
func (m *MockTaskStore) DeleteCompleted(ctx context.Context, userID uuid.UUID) (int64, error) {
	if m.DeleteCompletedFn != nil {
		return m.DeleteCompletedFn(ctx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, t := range m.tasks {
		if t.UserID == userID && t.Completed {
			delete(m.tasks, id)
			n++
		}
	}
	return n, nil
}

// Find implements store.TaskStore using TaskFilter.Matches.
func (m *MockTaskStore) Find(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	if m.FindFn != nil {
		return m.FindFn(ctx, filter)
	}
	m.mu.Lock()
	result := make([]*domain.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		t := t
		if filter.Matches(&t) {
			result = append(result, &t)
		}
	}
	m.mu.Unlock()

	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if filter.OrderBy == store.OrderDueAsc {
			switch {
			case a.DueDate == nil && b.DueDate != nil:
				return false
			case a.DueDate != nil && b.DueDate == nil:
				return true
			case a.DueDate != nil && *a.DueDate != *b.DueDate:
				return a.DueDate.Before(*b.DueDate)
			}
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID.String() < b.ID.String()
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// MarkNotified implements store.TaskStore with the same precondition as the
// SQL implementation.
func (m *MockTaskStore) MarkNotified(ctx context.Context, id uuid.UUID, kind domain.NotificationKind, dueDate *civil.Date) (bool, error) {
	m.mu.Lock()
	m.MarkCalls++
	m.mu.Unlock()
	if m.MarkNotifiedFn != nil {
		return m.MarkNotifiedFn(ctx, id, kind, dueDate)
	}
	if !kind.HasTaskFlag() {
		return false, domain.ErrInvalidNotificationKind
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.Flag(kind) || !domain.SameDate(t.DueDate, dueDate) {
		return false, nil
	}
	if kind == domain.KindReminder {
		t.ReminderSent = true
	} else {
		t.OverdueSent = true
	}
	m.tasks[id] = t
	return true, nil
}

// ResetNotified implements store.TaskStore
func (m *MockTaskStore) ResetNotified(ctx context.Context, id uuid.UUID) error {
	if m.ResetNotifiedFn != nil {
		return m.ResetNotifiedFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	t.ResetFlags()
	m.tasks[id] = t
	return nil
}

// WithTx implements store.TaskStore. The mock has no transactions.
func (m *MockTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return m
}
