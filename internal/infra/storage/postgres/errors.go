package postgres

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/brazyl/brazyl/internal/infra/storage"
)

// mapError converts driver-level unique violations into *storage.DuplicateKeyError.
// Both supported drivers report SQLSTATE codes, so the check is on the code.
func mapError(table string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return &storage.DuplicateKeyError{Table: table, Constraint: pgErr.ConstraintName, Err: err}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgerrcode.UniqueViolation {
		return &storage.DuplicateKeyError{Table: table, Constraint: pqErr.Constraint, Err: err}
	}

	return err
}
