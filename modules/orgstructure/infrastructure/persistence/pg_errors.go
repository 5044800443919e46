package persistence

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// mapPgError translates constraint violations into the given domain errors and
// leaves everything else untouched.
func mapPgError(err error, unique error, foreignKey error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.Code == pgUniqueViolation && unique != nil:
		return fmt.Errorf("%w (%s)", unique, pgErr.ConstraintName)
	case pgErr.Code == pgForeignKeyViolation && foreignKey != nil:
		return fmt.Errorf("%w (%s)", foreignKey, pgErr.ConstraintName)
	}
	return err
}
