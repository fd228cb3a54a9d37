package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brazyl/brazyl/internal/core/domain"
	"github.com/brazyl/brazyl/internal/infra/storage"
)

// UserRepo implements storage.UserRepository using PostgreSQL.
type UserRepo struct {
	db *DB
}

// NewUserRepo creates a new PostgreSQL user repository.
func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts u and fills in its ID and CreatedAt.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	query := `
		INSERT INTO users (id, name, whatsapp_number, active, max_politicians, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`
	if u.MaxPoliticians <= 0 {
		u.MaxPoliticians = domain.DefaultMaxPoliticians
	}
	err := r.db.GetContext(ctx, &u.CreatedAt, query, u.ID, u.Name, u.WhatsAppNumber, u.Active, u.MaxPoliticians)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", mapError("users", err))
	}
	return nil
}

// Get retrieves a user by id.
func (r *UserRepo) Get(ctx context.Context, id string) (*domain.User, error) {
	if !isUUID(id) {
		return nil, storage.ErrNotFound
	}

	var dest struct {
		ID             string    `db:"id"`
		Name           string    `db:"name"`
		WhatsAppNumber string    `db:"whatsapp_number"`
		Active         bool      `db:"active"`
		MaxPoliticians int       `db:"max_politicians"`
		CreatedAt      time.Time `db:"created_at"`
	}

	err := r.db.GetContext(ctx, &dest,
		`SELECT id, name, whatsapp_number, active, max_politicians, created_at FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &domain.User{
		ID:             dest.ID,
		Name:           dest.Name,
		WhatsAppNumber: dest.WhatsAppNumber,
		Active:         dest.Active,
		MaxPoliticians: dest.MaxPoliticians,
		CreatedAt:      dest.CreatedAt,
	}, nil
}
