package domain

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Field limits for users.
const (
	MinPasswordLength = 8
	// bcrypt ignores bytes beyond 72.
	MaxPasswordLength = 72
	MaxEmailLength    = 120
	MaxBioLength      = 300
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,64}$`)
	validate        = validator.New()
)

// Preferences are the per-user notification subscriptions.
type Preferences struct {
	Reminder bool `json:"reminder"`
	Overdue  bool `json:"overdue"`
	Digest   bool `json:"digest"`
}

// DefaultPreferences are applied to new accounts: reminder and overdue on,
// digest off.
func DefaultPreferences() Preferences {
	return Preferences{Reminder: true, Overdue: true, Digest: false}
}

// Allows reports whether a notification of the given kind may be sent.
// Account emails (welcome, password changed) are always allowed.
func (p Preferences) Allows(kind NotificationKind) bool {
	switch kind {
	case KindReminder:
		return p.Reminder
	case KindOverdue:
		return p.Overdue
	case KindDigest:
		return p.Digest
	case KindWelcome, KindPasswordChanged:
		return true
	default:
		return false
	}
}

// User represents a registered user of DOZO.
type User struct {
	ID             uuid.UUID   `json:"id"`
	Username       string      `json:"username"`
	Email          string      `json:"email"`
	Password       string      `json:"-"` // Plaintext password, used temporarily during registration/updates
	HashedPassword string      `json:"-"`
	Bio            string      `json:"bio,omitempty"`
	Preferences    Preferences `json:"preferences"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// NewUser creates a new User with default preferences.
//
// NOTE: the caller is responsible for hashing the password before storing
// the user.
func NewUser(username, email, password string) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:          uuid.New(),
		Username:    strings.TrimSpace(username),
		Email:       NormalizeEmail(email),
		Password:    password,
		Preferences: DefaultPreferences(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}
	return user, nil
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}
	if !usernamePattern.MatchString(u.Username) {
		return ErrInvalidUsername
	}
	if err := ValidateEmail(u.Email); err != nil {
		return err
	}
	if utf8.RuneCountInString(u.Bio) > MaxBioLength {
		return ErrBioTooLong
	}

	if u.Password != "" {
		return ValidatePassword(u.Password)
	}
	if u.HashedPassword == "" {
		return ErrEmptyHashedPassword
	}
	return nil
}

// ValidateEmail checks presence, length and format of an address.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrEmptyEmail
	}
	if len(email) > MaxEmailLength || validate.Var(email, "email") != nil {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword enforces the plaintext password length rules.
func ValidatePassword(password string) error {
	switch {
	case len(password) < MinPasswordLength:
		return ErrPasswordTooShort
	case len(password) > MaxPasswordLength:
		return ErrPasswordTooLong
	default:
		return nil
	}
}
