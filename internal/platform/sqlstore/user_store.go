package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/dozo/internal/domain"
	"github.com/phrazzld/dozo/internal/platform/logger"
	"github.com/phrazzld/dozo/internal/store"
)

const userColumns = `id, username, email, password_hash, bio,
	notify_reminder, notify_overdue, notify_digest, created_at, updated_at`

type userRow struct {
	ID             uuid.UUID `db:"id"`
	Username       string    `db:"username"`
	Email          string    `db:"email"`
	PasswordHash   string    `db:"password_hash"`
	Bio            string    `db:"bio"`
	NotifyReminder bool      `db:"notify_reminder"`
	NotifyOverdue  bool      `db:"notify_overdue"`
	NotifyDigest   bool      `db:"notify_digest"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (r *userRow) toDomain() *domain.User {
	return &domain.User{
		ID:             r.ID,
		Username:       r.Username,
		Email:          r.Email,
		HashedPassword: r.PasswordHash,
		Bio:            r.Bio,
		Preferences: domain.Preferences{
			Reminder: r.NotifyReminder,
			Overdue:  r.NotifyOverdue,
			Digest:   r.NotifyDigest,
		},
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

// UserStore implements store.UserStore on top of PostgreSQL or SQLite.
type UserStore struct {
	db      store.DBTX
	dialect Dialect
	logger  *slog.Logger
}

// NewUserStore creates a UserStore using the given connection or transaction.
// If logger is nil, a default logger will be used.
func NewUserStore(db store.DBTX, dialect Dialect, logger *slog.Logger) *UserStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserStore{
		db:      db,
		dialect: dialect,
		logger:  logger.With(slog.String("component", "user_store")),
	}
}

// Ensure UserStore implements store.UserStore interface
var _ store.UserStore = (*UserStore)(nil)

// WithTx implements store.UserStore.WithTx
func (s *UserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &UserStore{db: tx, dialect: s.dialect, logger: s.logger}
}

// Create implements store.UserStore.Create
func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if user.HashedPassword == "" {
		return domain.ErrEmptyHashedPassword
	}
	user.Email = domain.NormalizeEmail(user.Email)

	query := s.dialect.rebind(`
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, user.HashedPassword, user.Bio,
		user.Preferences.Reminder, user.Preferences.Overdue, user.Preferences.Digest,
		user.CreatedAt, user.UpdatedAt)
	if err != nil {
		mapped := mapUserUniqueViolation(err)
		if store.IsDuplicateError(mapped) {
			log.Warn("duplicate user on create", slog.String("user_id", user.ID.String()))
			return mapped
		}
		log.Error("failed to create user",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return store.NewStoreError("user", "create", "insert failed", mapped)
	}

	log.Info("user created", slog.String("user_id", user.ID.String()))
	return nil
}

// GetByID implements store.UserStore.GetByID
func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.getOne(ctx, "id = ?", id)
}

// GetByEmail implements store.UserStore.GetByEmail
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getOne(ctx, "email = ?", domain.NormalizeEmail(email))
}

func (s *UserStore) getOne(ctx context.Context, cond string, arg any) (*domain.User, error) {
	query := s.dialect.rebind("SELECT " + userColumns + " FROM users WHERE " + cond)
	users, err := s.query(ctx, query, arg)
	if err != nil {
		return nil, store.NewStoreError("user", "get", "query failed", err)
	}
	if len(users) == 0 {
		return nil, store.ErrUserNotFound
	}
	return users[0], nil
}

// Update implements store.UserStore.Update
func (s *UserStore) Update(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if user.HashedPassword == "" {
		return domain.ErrEmptyHashedPassword
	}

	query := s.dialect.rebind(`
		UPDATE users
		SET username = ?, email = ?, password_hash = ?, bio = ?,
			notify_reminder = ?, notify_overdue = ?, notify_digest = ?, updated_at = ?
		WHERE id = ?`)
	result, err := s.db.ExecContext(ctx, query,
		user.Username, domain.NormalizeEmail(user.Email), user.HashedPassword, user.Bio,
		user.Preferences.Reminder, user.Preferences.Overdue, user.Preferences.Digest,
		user.UpdatedAt, user.ID)
	if err != nil {
		mapped := mapUserUniqueViolation(err)
		if store.IsDuplicateError(mapped) {
			return mapped
		}
		log.Error("failed to update user",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return store.NewStoreError("user", "update", "update failed", mapped)
	}
	return CheckRowsAffected(result, store.ErrUserNotFound)
}

// Delete implements store.UserStore.Delete. Tasks are removed by the
// ON DELETE CASCADE foreign key.
func (s *UserStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, s.dialect.rebind("DELETE FROM users WHERE id = ?"), id)
	if err != nil {
		return store.NewStoreError("user", "delete", "delete failed", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrUserNotFound)
}

// Find implements store.UserStore.Find
func (s *UserStore) Find(ctx context.Context, filter store.UserFilter) ([]*domain.User, error) {
	var where []string
	var args []any
	if filter.ReminderEnabled != nil {
		where = append(where, "notify_reminder = ?")
		args = append(args, *filter.ReminderEnabled)
	}
	if filter.OverdueEnabled != nil {
		where = append(where, "notify_overdue = ?")
		args = append(args, *filter.OverdueEnabled)
	}
	if filter.DigestEnabled != nil {
		where = append(where, "notify_digest = ?")
		args = append(args, *filter.DigestEnabled)
	}

	query := "SELECT " + userColumns + " FROM users"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	users, err := s.query(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, store.NewStoreError("user", "find", "query failed", err)
	}
	return users, nil
}

func (s *UserStore) query(ctx context.Context, query string, args ...any) ([]*domain.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var records []userRow
	if err := sqlx.StructScan(rows, &records); err != nil {
		return nil, fmt.Errorf("failed to scan users: %w", err)
	}

	users := make([]*domain.User, 0, len(records))
	for i := range records {
		users = append(users, records[i].toDomain())
	}
	return users, nil
}
