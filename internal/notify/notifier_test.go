package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/phrazzld/dozo/internal/domain"
	"github.com/phrazzld/dozo/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (f *fakeTransport) Deliver(ctx context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func testUser(prefs domain.Preferences) *domain.User {
	return &domain.User{
		ID:          uuid.New(),
		Username:    "jane",
		Email:       "jane@example.com",
		Preferences: prefs,
	}
}

func dueTask(title string, d civil.Date, at *civil.Time) *domain.Task {
	return &domain.Task{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Title:    title,
		Priority: domain.PriorityHigh,
		DueDate:  &d,
		DueTime:  at,
	}
}

func newTestNotifier(t *testing.T, tr Transport) (*Notifier, *logger.TestLogBuffer) {
	t.Helper()
	buf, l := logger.NewTestLogger(t)
	n, err := NewNotifier(tr, "https://dozo.example/", l)
	require.NoError(t, err)
	return n, buf
}

var allOn = domain.Preferences{Reminder: true, Overdue: true, Digest: true}

func TestRenderReminder(t *testing.T) {
	n, _ := newTestNotifier(t, &fakeTransport{})
	task := dueTask("Ship <release>", civil.Date{Year: 2025, Month: time.March, Day: 10}, &civil.Time{Hour: 14, Minute: 5})

	msg, err := n.Render(domain.KindReminder, testUser(allOn), Payload{Task: task})
	require.NoError(t, err)

	assert.Equal(t, "jane@example.com", msg.To)
	assert.Equal(t, `⏰ "Ship <release>" is due soon`, msg.Subject)
	assert.Contains(t, msg.HTML, "Ship &lt;release&gt;", "html body escapes titles")
	assert.Contains(t, msg.HTML, "March 10 at 14:05")
	assert.Contains(t, msg.HTML, "HIGH")
	assert.Contains(t, msg.HTML, "https://dozo.example/tasks")
	assert.Contains(t, msg.Text, "Ship <release>")
	assert.Contains(t, msg.Text, "Due: March 10 at 14:05 (HIGH)")
}

func TestRenderOverdue(t *testing.T) {
	n, _ := newTestNotifier(t, &fakeTransport{})
	task := dueTask("File taxes", civil.Date{Year: 2025, Month: time.April, Day: 15}, nil)

	msg, err := n.Render(domain.KindOverdue, testUser(allOn), Payload{Task: task})
	require.NoError(t, err)
	assert.Equal(t, `⚠ Overdue: "File taxes"`, msg.Subject)
	assert.Contains(t, msg.Text, "Was due: April 15")
}

func TestRenderDigest(t *testing.T) {
	n, _ := newTestNotifier(t, &fakeTransport{})
	today := civil.Date{Year: 2025, Month: time.March, Day: 10}
	digest := &domain.Digest{
		Date:     today,
		Overdue:  []*domain.Task{dueTask("late one", today.AddDays(-2), nil)},
		Upcoming: []*domain.Task{dueTask("soon one", today.AddDays(3), nil)},
	}

	msg, err := n.Render(domain.KindDigest, testUser(allOn), Payload{Digest: digest})
	require.NoError(t, err)
	assert.Equal(t, "☀ DOZO Daily — Mar 10", msg.Subject)
	assert.Contains(t, msg.HTML, "Monday, March 10")
	assert.Contains(t, msg.HTML, "Overdue (1)")
	assert.NotContains(t, msg.HTML, "Due today")
	assert.Contains(t, msg.HTML, "Mar 13")
	assert.Contains(t, msg.Text, "  - soon one (Mar 13)")
}

func TestRenderAccountEmails(t *testing.T) {
	n, _ := newTestNotifier(t, &fakeTransport{})
	user := testUser(domain.Preferences{})

	msg, err := n.Render(domain.KindWelcome, user, Payload{})
	require.NoError(t, err)
	assert.Equal(t, "Welcome to DOZO 👋", msg.Subject)
	assert.Contains(t, msg.HTML, "Stop forgetting")

	at := time.Date(2025, 3, 10, 8, 30, 0, 0, time.FixedZone("X", 3600))
	msg, err = n.Render(domain.KindPasswordChanged, user, Payload{At: at})
	require.NoError(t, err)
	assert.Equal(t, "🔐 Your DOZO password was changed", msg.Subject)
	assert.Contains(t, msg.HTML, "2025-03-10 07:30 UTC")
}

func TestRenderErrors(t *testing.T) {
	n, _ := newTestNotifier(t, &fakeTransport{})
	user := testUser(allOn)

	_, err := n.Render(domain.KindReminder, user, Payload{})
	assert.ErrorIs(t, err, ErrMissingPayload)

	_, err = n.Render(domain.KindReminder, user, Payload{Task: &domain.Task{Title: "undated"}})
	assert.ErrorIs(t, err, ErrMissingPayload)

	_, err = n.Render(domain.KindDigest, user, Payload{})
	assert.ErrorIs(t, err, ErrMissingPayload)

	_, err = n.Render("sms", user, Payload{})
	assert.ErrorIs(t, err, domain.ErrInvalidNotificationKind)
}

func TestSendHonoursPreferences(t *testing.T) {
	tr := &fakeTransport{}
	n, _ := newTestNotifier(t, tr)
	ctx := context.Background()
	task := dueTask("t", civil.Date{Year: 2025, Month: 1, Day: 1}, nil)
	digest := &domain.Digest{DueToday: []*domain.Task{task}}

	off := testUser(domain.Preferences{})
	assert.False(t, n.SendReminder(ctx, off, task))
	assert.False(t, n.SendOverdue(ctx, off, task))
	assert.False(t, n.SendDigest(ctx, off, digest))
	assert.Empty(t, tr.sent)

	assert.True(t, n.SendWelcome(ctx, off), "account emails ignore subscriptions")
	assert.True(t, n.SendPasswordChanged(ctx, off, time.Now()))

	on := testUser(allOn)
	assert.True(t, n.SendReminder(ctx, on, task))
	assert.True(t, n.SendOverdue(ctx, on, task))
	assert.True(t, n.SendDigest(ctx, on, digest))
	assert.Len(t, tr.sent, 5)
}

func TestSendSuppressesEmptyDigest(t *testing.T) {
	tr := &fakeTransport{}
	n, _ := newTestNotifier(t, tr)

	assert.False(t, n.SendDigest(context.Background(), testUser(allOn), &domain.Digest{}))
	assert.False(t, n.SendDigest(context.Background(), testUser(allOn), nil))
	assert.Empty(t, tr.sent)
}

func TestSendAbsorbsTransportErrors(t *testing.T) {
	tr := &fakeTransport{err: errors.New("550 <jane@example.com> mailbox unavailable")}
	n, logs := newTestNotifier(t, tr)
	task := dueTask("t", civil.Date{Year: 2025, Month: 1, Day: 1}, nil)

	var ok bool
	assert.NotPanics(t, func() {
		ok = n.SendReminder(context.Background(), testUser(allOn), task)
	})
	assert.False(t, ok)

	logger.AssertLogContains(t, logs, "email delivery failed")
	logger.AssertLogNotContains(t, logs, "jane@example.com")
}

func TestNewNotifierRequiresTransport(t *testing.T) {
	_, err := NewNotifier(nil, "", nil)
	assert.Error(t, err)
}
