package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/dozo/internal/domain"
	"github.com/phrazzld/dozo/internal/platform/logger"
	"github.com/phrazzld/dozo/internal/service/auth"
	"github.com/phrazzld/dozo/internal/store"
)

// AccountNotifier sends the account emails. Both methods report whether the
// message was handed to the transport; neither failure is fatal.
type AccountNotifier interface {
	SendWelcome(ctx context.Context, user *domain.User) bool
	SendPasswordChanged(ctx context.Context, user *domain.User, at time.Time) bool
}

// ProfileInput carries the editable profile fields.
type ProfileInput struct {
	Username string
	Email    string
	Bio      string
}

// UserService provides user-related operations.
type UserService interface {
	// Register creates an account and sends the welcome email.
	Register(ctx context.Context, username, email, password string) (*domain.User, error)

	// GetUser retrieves a user by their ID
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	// UpdateProfile replaces username, email and bio.
	UpdateProfile(ctx context.Context, userID uuid.UUID, input ProfileInput) (*domain.User, error)

	// UpdatePreferences replaces the notification subscriptions.
	UpdatePreferences(ctx context.Context, userID uuid.UUID, prefs domain.Preferences) (*domain.User, error)

	// ChangePassword verifies the current password, stores the new one and
	// sends the password-changed email.
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error

	// DeleteUser deletes a user and their tasks.
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	userStore store.UserStore
	hasher    auth.PasswordHasher
	notifier  AccountNotifier
	db        *sql.DB
	logger    *slog.Logger
	now       func() time.Time
}

// NewUserService creates a new UserService
func NewUserService(userStore store.UserStore, hasher auth.PasswordHasher, notifier AccountNotifier, db *sql.DB, logger *slog.Logger) (*UserServiceImpl, error) {
	if userStore == nil || hasher == nil || notifier == nil || db == nil {
		return nil, errors.New("user service requires user store, hasher, notifier and db")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserServiceImpl{
		userStore: userStore,
		hasher:    hasher,
		notifier:  notifier,
		db:        db,
		logger:    logger.With("component", "user_service"),
		now:       time.Now,
	}, nil
}

// Register implements UserService.Register
// The welcome email is sent after the account is committed; a failed send
// is logged and does not fail registration.
func (s *UserServiceImpl) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := domain.NewUser(username, email, password)
	if err != nil {
		return nil, err
	}
	user.HashedPassword, err = s.hasher.Hash(password)
	if err != nil {
		return nil, userError("register", err)
	}
	user.Password = ""

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.userStore.WithTx(tx).Create(ctx, user)
	})
	if err != nil {
		if store.IsDuplicateError(err) {
			log.Debug("attempted to register an existing account", "error", err)
		} else {
			log.Error("failed to save user to database", "error", err)
		}
		return nil, userError("register", err)
	}

	log.Info("user registered", "user_id", user.ID)
	if !s.notifier.SendWelcome(ctx, user) {
		log.Warn("welcome email not sent", "user_id", user.ID)
	}
	return user, nil
}

// GetUser implements UserService.GetUser
func (s *UserServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		if !store.IsNotFoundError(err) {
			logger.FromContextOrDefault(ctx, s.logger).Error("failed to retrieve user",
				"error", err,
				"user_id", userID)
		}
		return nil, userError("get", err)
	}
	return user, nil
}

// UpdateProfile implements UserService.UpdateProfile
func (s *UserServiceImpl) UpdateProfile(ctx context.Context, userID uuid.UUID, input ProfileInput) (*domain.User, error) {
	return s.modify(ctx, "update profile", userID, func(user *domain.User) error {
		user.Username = strings.TrimSpace(input.Username)
		user.Email = domain.NormalizeEmail(input.Email)
		user.Bio = input.Bio
		return user.Validate()
	})
}

// UpdatePreferences implements UserService.UpdatePreferences
func (s *UserServiceImpl) UpdatePreferences(ctx context.Context, userID uuid.UUID, prefs domain.Preferences) (*domain.User, error) {
	user, err := s.modify(ctx, "update preferences", userID, func(user *domain.User) error {
		user.Preferences = prefs
		return nil
	})
	if err == nil {
		logger.FromContextOrDefault(ctx, s.logger).Info("notification preferences updated",
			"user_id", userID,
			"reminder", prefs.Reminder,
			"overdue", prefs.Overdue,
			"digest", prefs.Digest)
	}
	return user, err
}

// ChangePassword implements UserService.ChangePassword
func (s *UserServiceImpl) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	if err := domain.ValidatePassword(next); err != nil {
		return err
	}
	user, err := s.modify(ctx, "change password", userID, func(user *domain.User) error {
		if err := s.hasher.Compare(user.HashedPassword, current); err != nil {
			if errors.Is(err, auth.ErrPasswordMismatch) {
				return ErrInvalidCredentials
			}
			return err
		}
		hash, err := s.hasher.Hash(next)
		if err != nil {
			return err
		}
		user.HashedPassword = hash
		return nil
	})
	if err != nil {
		return err
	}

	log := logger.FromContextOrDefault(ctx, s.logger)
	log.Info("password changed", "user_id", userID)
	if !s.notifier.SendPasswordChanged(ctx, user, user.UpdatedAt) {
		log.Warn("password change email not sent", "user_id", userID)
	}
	return nil
}

// DeleteUser implements UserService.DeleteUser
func (s *UserServiceImpl) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.userStore.WithTx(tx).Delete(ctx, userID)
	})
	if err != nil {
		return userError("delete", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("user deleted", "user_id", userID)
	return nil
}

// modify runs a read-modify-write of one user inside a transaction,
// following the pattern of getting the complete user first and then
// passing the complete object back to the store.
func (s *UserServiceImpl) modify(ctx context.Context, op string, userID uuid.UUID, change func(*domain.User) error) (*domain.User, error) {
	var user *domain.User
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.userStore.WithTx(tx)

		u, err := txStore.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if err := change(u); err != nil {
			return err
		}
		u.UpdatedAt = s.now().UTC()
		if err := txStore.Update(ctx, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		log := logger.FromContextOrDefault(ctx, s.logger)
		if store.IsNotFoundError(err) || store.IsDuplicateError(err) || errors.Is(err, ErrInvalidCredentials) || errors.Is(err, domain.ErrValidation) {
			log.Debug("user update rejected", "operation", op, "error", err)
		} else {
			log.Error("user update failed", "operation", op, "error", err, "user_id", userID)
		}
		return nil, userError(op, err)
	}
	return user, nil
}
