package notification_test

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/phrazzld/dozo/internal/domain"
	"github.com/phrazzld/dozo/internal/mocks"
)

// refNow is Monday 2025-03-10 13:35 UTC.
var refNow = time.Date(2025, 3, 10, 13, 35, 0, 0, time.UTC)

func day(offset int) *civil.Date {
	d := civil.DateOf(refNow).AddDays(offset)
	return &d
}

func clock(h, m int) *civil.Time {
	return &civil.Time{Hour: h, Minute: m}
}

func newUser(t *testing.T, users *mocks.MockUserStore, prefs domain.Preferences) *domain.User {
	t.Helper()
	id := uuid.New()
	u := &domain.User{
		ID:             id,
		Username:       "user_" + id.String()[:8],
		Email:          id.String()[:8] + "@example.com",
		HashedPassword: "$2a$10$abcdefghijklmnopqrstuv",
		Preferences:    prefs,
		CreatedAt:      refNow.Add(-time.Hour),
		UpdatedAt:      refNow.Add(-time.Hour),
	}
	users.Put(u)
	return u
}

func allOn() domain.Preferences {
	return domain.Preferences{Reminder: true, Overdue: true, Digest: true}
}

func newTask(t *testing.T, tasks *mocks.MockTaskStore, owner *domain.User, title string, due *civil.Date, at *civil.Time) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(owner.ID, title, domain.PriorityNormal, due, at)
	if err != nil {
		t.Fatalf("NewTask: %v", err)
	}
	tasks.Put(task)
	return task
}
