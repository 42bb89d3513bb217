package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	apperrors "github.com/yourusername/marketplace-api/internal/pkg/errors"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// pgErrorCode возвращает SQLSTATE для pgconn и lib/pq драйверов
func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// isUniqueViolation проверяет Postgres unique violation (23505) для pgconn и lib/pq драйверов
func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pgErrorCode(err) == pgForeignKeyViolation
}

// mapWriteError translates constraint violations into application errors.
func mapWriteError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %s already exists", apperrors.ErrConflict, what)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%w: %s references a missing record", apperrors.ErrNotFound, what)
	default:
		return fmt.Errorf("failed to write %s: %w", what, err)
	}
}

// mapReadError translates gorm.ErrRecordNotFound into apperrors.ErrNotFound.
func mapReadError(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotFound
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}
