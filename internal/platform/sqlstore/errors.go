package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/dozo/internal/store"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// PostgreSQL error codes
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
	notNullViolationCode    = "23502"
)

type violation int

const (
	noViolation violation = iota
	uniqueViolation
	foreignKeyViolation
	checkViolation
	notNullViolation
)

// classify inspects a driver error and reports the constraint class and a
// description naming the constraint or column involved.
func classify(err error) (violation, string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return uniqueViolation, pgErr.ConstraintName
		case foreignKeyViolationCode:
			return foreignKeyViolation, pgErr.ConstraintName
		case checkViolationCode:
			return checkViolation, pgErr.ConstraintName
		case notNullViolationCode:
			return notNullViolation, pgErr.ColumnName
		}
		return noViolation, ""
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) && liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		msg := liteErr.Error()
		switch {
		case liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE,
			liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY,
			strings.Contains(msg, "UNIQUE constraint"):
			return uniqueViolation, msg
		case liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY,
			strings.Contains(msg, "FOREIGN KEY constraint"):
			return foreignKeyViolation, msg
		case liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_CHECK,
			strings.Contains(msg, "CHECK constraint"):
			return checkViolation, msg
		case liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_NOTNULL,
			strings.Contains(msg, "NOT NULL constraint"):
			return notNullViolation, msg
		}
	}
	return noViolation, ""
}

// MapError maps a database error to an appropriate store error.
// It wraps the original error to preserve context.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	switch kind, detail := classify(err); kind {
	case uniqueViolation:
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	case foreignKeyViolation:
		return fmt.Errorf("%w: foreign key violation (%s): %v", store.ErrInvalidEntity, detail, err)
	case checkViolation:
		return fmt.Errorf("%w: check constraint violation (%s): %v", store.ErrInvalidEntity, detail, err)
	case notNullViolation:
		return fmt.Errorf("%w: not null violation (%s): %v", store.ErrInvalidEntity, detail, err)
	}
	return err
}

// IsUniqueViolation checks if the given error is a unique constraint violation
// in either backend.
func IsUniqueViolation(err error) bool {
	kind, _ := classify(err)
	return kind == uniqueViolation
}

// IsForeignKeyViolation checks if the given error is a foreign key violation
// in either backend.
func IsForeignKeyViolation(err error) bool {
	kind, _ := classify(err)
	return kind == foreignKeyViolation
}

// mapUserUniqueViolation turns a unique violation on the users table into
// ErrEmailExists or ErrUsernameExists. Other errors go through MapError.
func mapUserUniqueViolation(err error) error {
	kind, detail := classify(err)
	if kind != uniqueViolation {
		return MapError(err)
	}
	switch {
	case strings.Contains(detail, "email"):
		return fmt.Errorf("%w: %v", store.ErrEmailExists, err)
	case strings.Contains(detail, "username"):
		return fmt.Errorf("%w: %v", store.ErrUsernameExists, err)
	default:
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
}

// CheckRowsAffected returns notFound when an UPDATE or DELETE matched no rows.
func CheckRowsAffected(result sql.Result, notFound error) error {
	if result == nil {
		return fmt.Errorf("nil result provided to CheckRowsAffected")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
