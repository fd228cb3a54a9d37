package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/brazyl/brazyl/internal/infra/storage"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		duplicate  bool
		constraint string
	}{
		{
			name:       "pgx unique violation",
			err:        &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_whatsapp_number_key"},
			duplicate:  true,
			constraint: "users_whatsapp_number_key",
		},
		{
			name:       "lib/pq unique violation",
			err:        &pq.Error{Code: pq.ErrorCode(pgerrcode.UniqueViolation), Constraint: "users_whatsapp_number_key"},
			duplicate:  true,
			constraint: "users_whatsapp_number_key",
		},
		{
			name: "other pg error",
			err:  &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation},
		},
		{
			name: "plain error",
			err:  errors.New("connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError("users", tt.err)

			var dup *storage.DuplicateKeyError
			if got := errors.As(err, &dup); got != tt.duplicate {
				t.Fatalf("duplicate = %v, want %v (err %v)", got, tt.duplicate, err)
			}
			if !tt.duplicate {
				if err != tt.err {
					t.Errorf("expected error passed through unchanged")
				}
				return
			}
			if dup.Constraint != tt.constraint {
				t.Errorf("constraint = %q, want %q", dup.Constraint, tt.constraint)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("expected driver error to stay reachable")
			}
		})
	}

	if mapError("users", nil) != nil {
		t.Error("nil must stay nil")
	}
}
