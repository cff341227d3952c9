package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/dozo/internal/domain"
)

// UserFilter selects users. Nil fields do not constrain the result.
type UserFilter struct {
	ReminderEnabled *bool
	OverdueEnabled  *bool
	DigestEnabled   *bool
}

// Matches reports whether u satisfies the filter.
func (f UserFilter) Matches(u *domain.User) bool {
	if f.ReminderEnabled != nil && u.Preferences.Reminder != *f.ReminderEnabled {
		return false
	}
	if f.OverdueEnabled != nil && u.Preferences.Overdue != *f.OverdueEnabled {
		return false
	}
	if f.DigestEnabled != nil && u.Preferences.Digest != *f.DigestEnabled {
		return false
	}
	return true
}

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user. The caller hashes the password first.
	// Returns ErrEmailExists or ErrUsernameExists on a uniqueness conflict.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by their (normalized) email address.
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update writes the profile, password hash and preference fields.
	// Returns ErrUserNotFound if the user does not exist.
	Update(ctx context.Context, user *domain.User) error

	// Delete removes a user together with their tasks.
	// Returns ErrUserNotFound if the user does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// Find returns users matching the filter ordered by creation time.
	Find(ctx context.Context, filter UserFilter) ([]*domain.User, error)

	// WithTx returns a new UserStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) UserStore
}
