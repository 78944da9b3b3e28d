package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes
const (
	// uniqueViolationCode is the PostgreSQL error code for unique constraint violations
	uniqueViolationCode = "23505"

	// checkViolationCode is the PostgreSQL error code for check constraint violations
	checkViolationCode = "23514"

	// notNullViolationCode is the PostgreSQL error code for not null violations
	notNullViolationCode = "23502"
)

var (
	// ErrDuplicateRecord is returned when a saved sequence repeats a record ID.
	ErrDuplicateRecord = errors.New("duplicate history record")

	// ErrInvalidRecord is returned when a record violates a table constraint.
	ErrInvalidRecord = errors.New("invalid history record")
)

// MapError maps a database error to one of the package's sentinel errors,
// wrapping the original for context.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return fmt.Errorf("%w: %v", ErrDuplicateRecord, err)
		case checkViolationCode:
			return fmt.Errorf("%w: check constraint violation (%s): %v",
				ErrInvalidRecord, pgErr.ConstraintName, err)
		case notNullViolationCode:
			return fmt.Errorf("%w: not null violation (%s): %v",
				ErrInvalidRecord, pgErr.ColumnName, err)
		}
	}

	return err
}

// IsUniqueViolation checks if the given error is a PostgreSQL unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
