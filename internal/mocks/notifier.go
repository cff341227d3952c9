package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/phrazzld/dozo/internal/domain"
)

// NotifierCall records one call to MockNotifier.
type NotifierCall struct {
	Kind   domain.NotificationKind
	User   *domain.User
	Task   *domain.Task
	Digest *domain.Digest
	At     time.Time
}

// MockNotifier records notifications and reports success unless SendFn says
// otherwise. It does not consult user preferences.
type MockNotifier struct {
	// SendFn decides the result of each call. Nil means success.
	SendFn func(call NotifierCall) bool

	mu    sync.Mutex
	calls []NotifierCall
}

// NewMockNotifier creates a notifier that accepts everything.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) record(call NotifierCall) bool {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	fn := m.SendFn
	m.mu.Unlock()
	if fn != nil {
		return fn(call)
	}
	return true
}

// Calls returns a copy of the recorded calls.
func (m *MockNotifier) Calls() []NotifierCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]NotifierCall(nil), m.calls...)
}

// CallsOf returns the recorded calls of one kind.
func (m *MockNotifier) CallsOf(kind domain.NotificationKind) []NotifierCall {
	var out []NotifierCall
	for _, c := range m.Calls() {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (m *MockNotifier) SendReminder(ctx context.Context, user *domain.User, task *domain.Task) bool {
	return m.record(NotifierCall{Kind: domain.KindReminder, User: user, Task: task})
}

func (m *MockNotifier) SendOverdue(ctx context.Context, user *domain.User, task *domain.Task) bool {
	return m.record(NotifierCall{Kind: domain.KindOverdue, User: user, Task: task})
}

func (m *MockNotifier) SendDigest(ctx context.Context, user *domain.User, digest *domain.Digest) bool {
	return m.record(NotifierCall{Kind: domain.KindDigest, User: user, Digest: digest})
}

func (m *MockNotifier) SendWelcome(ctx context.Context, user *domain.User) bool {
	return m.record(NotifierCall{Kind: domain.KindWelcome, User: user})
}

func (m *MockNotifier) SendPasswordChanged(ctx context.Context, user *domain.User, at time.Time) bool {
	return m.record(NotifierCall{Kind: domain.KindPasswordChanged, User: user, At: at})
}
