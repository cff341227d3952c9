package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/dozo/internal/domain"
	"github.com/phrazzld/dozo/internal/platform/logger"
	"github.com/phrazzld/dozo/internal/redact"
)

// ErrMissingPayload is returned by Render when the payload lacks the task or
// digest the kind needs.
var ErrMissingPayload = errors.New("notification payload incomplete")

// Payload carries the kind-specific content of a notification.
type Payload struct {
	Task   *domain.Task   // reminder, overdue
	Digest *domain.Digest // digest
	At     time.Time      // password_changed; defaults to now
}

// Notifier renders notifications and hands them to a Transport.
type Notifier struct {
	transport Transport
	templates map[domain.NotificationKind]kindTemplates
	appURL    string
	logger    *slog.Logger
	now       func() time.Time
}

// NewNotifier parses the embedded templates and returns a Notifier.
// If logger is nil, a default logger will be used.
func NewNotifier(transport Transport, appURL string, logger *slog.Logger) (*Notifier, error) {
	if transport == nil {
		return nil, fmt.Errorf("transport cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	tmpl, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	return &Notifier{
		transport: transport,
		templates: tmpl,
		appURL:    strings.TrimRight(appURL, "/"),
		logger:    logger.With(slog.String("component", "notifier")),
		now:       time.Now,
	}, nil
}

// Render builds the message for kind without sending it.
func (n *Notifier) Render(kind domain.NotificationKind, user *domain.User, payload Payload) (Message, error) {
	tmpl, ok := n.templates[kind]
	if !ok {
		return Message{}, fmt.Errorf("%w: %q", domain.ErrInvalidNotificationKind, kind)
	}

	data := templateData{AppURL: n.appURL, User: user, Task: payload.Task, Digest: payload.Digest}
	var subject string

	switch kind {
	case domain.KindReminder:
		if payload.Task == nil || payload.Task.DueDate == nil {
			return Message{}, fmt.Errorf("%w: reminder needs a dated task", ErrMissingPayload)
		}
		data.Due = payload.Task.DueDate.In(time.UTC).Format("January 02")
		if payload.Task.DueTime != nil {
			data.Due += " at " + fmt.Sprintf("%02d:%02d", payload.Task.DueTime.Hour, payload.Task.DueTime.Minute)
		}
		subject = fmt.Sprintf("⏰ \"%s\" is due soon", payload.Task.Title)
	case domain.KindOverdue:
		if payload.Task == nil || payload.Task.DueDate == nil {
			return Message{}, fmt.Errorf("%w: overdue needs a dated task", ErrMissingPayload)
		}
		data.Due = payload.Task.DueDate.In(time.UTC).Format("January 02")
		subject = fmt.Sprintf("⚠ Overdue: \"%s\"", payload.Task.Title)
	case domain.KindDigest:
		if payload.Digest == nil {
			return Message{}, fmt.Errorf("%w: digest needs buckets", ErrMissingPayload)
		}
		day := payload.Digest.Date.In(time.UTC)
		data.Today = day.Format("Monday, January 02")
		subject = "☀ DOZO Daily — " + day.Format("Jan 02")
	case domain.KindWelcome:
		subject = "Welcome to DOZO 👋"
	case domain.KindPasswordChanged:
		at := payload.At
		if at.IsZero() {
			at = n.now()
		}
		data.Timestamp = at.UTC().Format("2006-01-02 15:04 UTC")
		subject = "🔐 Your DOZO password was changed"
	}

	html, text, err := tmpl.render(data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      user.Email,
		ToName:  user.Username,
		Subject: subject,
		HTML:    html,
		Text:    text,
	}, nil
}

// Send renders and delivers a notification. It returns true only when the
// transport accepted the message. A preference that disables the kind, an
// empty digest, a render error or a transport error all yield false; errors
// are logged, never returned.
func (n *Notifier) Send(ctx context.Context, kind domain.NotificationKind, user *domain.User, payload Payload) bool {
	log := logger.FromContextOrDefault(ctx, n.logger).With(
		slog.String("kind", string(kind)),
		slog.String("user_id", user.ID.String()))

	if !user.Preferences.Allows(kind) {
		log.Debug("notification disabled by user preference")
		return false
	}
	if kind == domain.KindDigest && payload.Digest.IsEmpty() {
		log.Debug("empty digest suppressed")
		return false
	}

	msg, err := n.Render(kind, user, payload)
	if err != nil {
		log.Error("failed to render notification", slog.String("error", err.Error()))
		return false
	}

	if err := n.transport.Deliver(ctx, msg); err != nil {
		log.Error("email delivery failed", slog.String("error", redact.Error(err)))
		return false
	}

	log.Info("email sent")
	return true
}

// SendReminder sends the due-soon reminder for task.
func (n *Notifier) SendReminder(ctx context.Context, user *domain.User, task *domain.Task) bool {
	return n.Send(ctx, domain.KindReminder, user, Payload{Task: task})
}

// SendOverdue sends the overdue alert for task.
func (n *Notifier) SendOverdue(ctx context.Context, user *domain.User, task *domain.Task) bool {
	return n.Send(ctx, domain.KindOverdue, user, Payload{Task: task})
}

// SendDigest sends the daily digest. Empty digests are not sent.
func (n *Notifier) SendDigest(ctx context.Context, user *domain.User, digest *domain.Digest) bool {
	return n.Send(ctx, domain.KindDigest, user, Payload{Digest: digest})
}

// SendWelcome sends the account welcome email.
func (n *Notifier) SendWelcome(ctx context.Context, user *domain.User) bool {
	return n.Send(ctx, domain.KindWelcome, user, Payload{})
}

// SendPasswordChanged sends the security alert for a password change at the
// given instant.
func (n *Notifier) SendPasswordChanged(ctx context.Context, user *domain.User, at time.Time) bool {
	return n.Send(ctx, domain.KindPasswordChanged, user, Payload{At: at})
}
