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

// FollowRepo implements storage.FollowRepository using PostgreSQL.
type FollowRepo struct {
	db *DB
}

// NewFollowRepo creates a new PostgreSQL follow repository.
func NewFollowRepo(db *DB) *FollowRepo {
	return &FollowRepo{db: db}
}

type followRow struct {
	ID           string        `db:"id"`
	UserID       string        `db:"user_id"`
	PoliticianID string        `db:"politician_id"`
	CreatedAt    time.Time     `db:"created_at"`
	Politician   politicianRow `db:"politician"`
}

// joined politician columns, aliased for sqlx's nested struct mapping
const followPoliticianColumns = `
	p.id AS "politician.id", p.external_id AS "politician.external_id",
	p.source AS "politician.source", p.name AS "politician.name",
	p.parliamentary_name AS "politician.parliamentary_name", p.cpf AS "politician.cpf",
	p.position AS "politician.position", p.party AS "politician.party",
	p.state AS "politician.state", p.email AS "politician.email",
	p.phone AS "politician.phone", p.photo_url AS "politician.photo_url",
	p.biography AS "politician.biography", p.social_links AS "politician.social_links",
	p.active AS "politician.active", p.updated_at AS "politician.updated_at"`

// Create inserts f. A second follow of the same politician maps to *storage.DuplicateKeyError.
func (r *FollowRepo) Create(ctx context.Context, f *domain.Follow) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}

	query := `
		INSERT INTO follows (id, user_id, politician_id, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING created_at
	`
	if err := r.db.GetContext(ctx, &f.CreatedAt, query, f.ID, f.UserID, f.PoliticianID); err != nil {
		return fmt.Errorf("failed to create follow: %w", mapError("follows", err))
	}
	return nil
}

// Get retrieves a follow by id, without its politician.
func (r *FollowRepo) Get(ctx context.Context, id string) (*domain.Follow, error) {
	if !isUUID(id) {
		return nil, storage.ErrNotFound
	}

	var f domain.Follow
	err := r.db.QueryRowxContext(ctx,
		`SELECT id, user_id, politician_id, created_at FROM follows WHERE id = $1`, id,
	).Scan(&f.ID, &f.UserID, &f.PoliticianID, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get follow: %w", err)
	}
	return &f, nil
}

// Delete removes a follow.
func (r *FollowRepo) Delete(ctx context.Context, id string) error {
	if !isUUID(id) {
		return storage.ErrNotFound
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM follows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete follow: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete follow: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListByUser returns the user's follows joined with their politicians, newest first.
// A limit of 0 returns every follow.
func (r *FollowRepo) ListByUser(
	ctx context.Context,
	userID string,
	limit, offset int,
) ([]*domain.Follow, int, error) {
	if !isUUID(userID) {
		return []*domain.Follow{}, 0, nil
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM follows WHERE user_id = $1`, userID); err != nil {
		return nil, 0, fmt.Errorf("failed to count follows: %w", err)
	}

	query := `
		SELECT f.id, f.user_id, f.politician_id, f.created_at, ` + followPoliticianColumns + `
		FROM follows f
		JOIN politicians p ON p.id = f.politician_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC, f.id
		LIMIT NULLIF($2, 0) OFFSET $3
	`
	var rows []followRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list follows: %w", err)
	}

	out := make([]*domain.Follow, 0, len(rows))
	for i := range rows {
		p, err := rows[i].Politician.toDomain()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, &domain.Follow{
			ID:           rows[i].ID,
			UserID:       rows[i].UserID,
			PoliticianID: rows[i].PoliticianID,
			CreatedAt:    rows[i].CreatedAt,
			Politician:   p,
		})
	}
	return out, total, nil
}
