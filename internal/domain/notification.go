package domain

import "fmt"

// NotificationKind identifies an outbound email type.
type NotificationKind string

// Notification kinds. Reminder and overdue are tracked per task through a
// delivery flag; the others are not.
const (
	KindReminder        NotificationKind = "reminder"
	KindOverdue         NotificationKind = "overdue"
	KindDigest          NotificationKind = "digest"
	KindWelcome         NotificationKind = "welcome"
	KindPasswordChanged NotificationKind = "password_changed"
)

// NotificationKinds lists every kind in a stable order.
var NotificationKinds = []NotificationKind{
	KindReminder, KindOverdue, KindDigest, KindWelcome, KindPasswordChanged,
}

// ParseNotificationKind validates a kind name.
func ParseNotificationKind(s string) (NotificationKind, error) {
	for _, k := range NotificationKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidNotificationKind, s)
}

// HasTaskFlag reports whether deliveries of this kind are recorded on the task.
func (k NotificationKind) HasTaskFlag() bool {
	return k == KindReminder || k == KindOverdue
}

func (k NotificationKind) String() string { return string(k) }
