package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brazyl/brazyl/internal/core/domain"
	"github.com/brazyl/brazyl/internal/infra/storage"
)

// PoliticianRepo implements storage.PoliticianRepository using PostgreSQL.
type PoliticianRepo struct {
	db *DB
}

// NewPoliticianRepo creates a new PostgreSQL politician repository.
func NewPoliticianRepo(db *DB) *PoliticianRepo {
	return &PoliticianRepo{db: db}
}

// Upsert inserts or refreshes p keyed by (source, external_id).
// xmax is zero only for freshly inserted tuples.
func (r *PoliticianRepo) Upsert(ctx context.Context, p *domain.Politician) (bool, error) {
	links := p.SocialLinks
	if links == nil {
		links = map[string]string{}
	}
	social, err := json.Marshal(links)
	if err != nil {
		return false, fmt.Errorf("encode social links: %w", err)
	}

	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}

	query := `
		INSERT INTO politicians (
			id, external_id, source, name, parliamentary_name, cpf, position, party, state,
			email, phone, photo_url, biography, social_links, active, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
		ON CONFLICT (source, external_id) DO UPDATE SET
			name = EXCLUDED.name,
			parliamentary_name = EXCLUDED.parliamentary_name,
			cpf = EXCLUDED.cpf,
			position = EXCLUDED.position,
			party = EXCLUDED.party,
			state = EXCLUDED.state,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			photo_url = EXCLUDED.photo_url,
			biography = EXCLUDED.biography,
			social_links = EXCLUDED.social_links,
			active = EXCLUDED.active,
			updated_at = NOW()
		RETURNING id, (xmax = 0) AS created
	`

	var dest struct {
		ID      string `db:"id"`
		Created bool   `db:"created"`
	}
	err = r.db.GetContext(ctx, &dest, query,
		id,
		p.ExternalID,
		string(p.Source),
		p.Name,
		p.ParliamentaryName,
		p.CPF,
		string(p.Position),
		p.Party,
		p.State,
		p.Email,
		p.Phone,
		p.PhotoURL,
		p.Biography,
		string(social),
		p.Active,
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert politician %s/%s: %w", p.Source, p.ExternalID, mapError("politicians", err))
	}

	p.ID = dest.ID
	return dest.Created, nil
}

const politicianColumns = `id, external_id, source, name, parliamentary_name, cpf, position, party, state,
	email, phone, photo_url, biography, social_links, active, updated_at`

type politicianRow struct {
	ID                string    `db:"id"`
	ExternalID        string    `db:"external_id"`
	Source            string    `db:"source"`
	Name              string    `db:"name"`
	ParliamentaryName string    `db:"parliamentary_name"`
	CPF               string    `db:"cpf"`
	Position          string    `db:"position"`
	Party             string    `db:"party"`
	State             string    `db:"state"`
	Email             string    `db:"email"`
	Phone             string    `db:"phone"`
	PhotoURL          string    `db:"photo_url"`
	Biography         string    `db:"biography"`
	SocialLinks       []byte    `db:"social_links"`
	Active            bool      `db:"active"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func (row *politicianRow) toDomain() (*domain.Politician, error) {
	p := &domain.Politician{
		ID:                row.ID,
		ExternalID:        row.ExternalID,
		Source:            domain.Source(row.Source),
		Name:              row.Name,
		ParliamentaryName: row.ParliamentaryName,
		CPF:               row.CPF,
		Position:          domain.Position(row.Position),
		Party:             row.Party,
		State:             row.State,
		Email:             row.Email,
		Phone:             row.Phone,
		PhotoURL:          row.PhotoURL,
		Biography:         row.Biography,
		Active:            row.Active,
		UpdatedAt:         row.UpdatedAt,
	}
	if len(row.SocialLinks) > 0 {
		if err := json.Unmarshal(row.SocialLinks, &p.SocialLinks); err != nil {
			return nil, fmt.Errorf("decode social links: %w", err)
		}
	}
	return p, nil
}

// Get retrieves a politician by its internal id.
func (r *PoliticianRepo) Get(ctx context.Context, id string) (*domain.Politician, error) {
	if !isUUID(id) {
		return nil, storage.ErrNotFound
	}
	return r.get(ctx, `SELECT `+politicianColumns+` FROM politicians WHERE id = $1`, id)
}

// GetByExternalID retrieves a politician by its upstream identity.
func (r *PoliticianRepo) GetByExternalID(
	ctx context.Context,
	source domain.Source,
	externalID string,
) (*domain.Politician, error) {
	return r.get(ctx,
		`SELECT `+politicianColumns+` FROM politicians WHERE source = $1 AND external_id = $2`,
		string(source), externalID)
}

func (r *PoliticianRepo) get(ctx context.Context, query string, args ...any) (*domain.Politician, error) {
	var row politicianRow
	err := r.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get politician: %w", err)
	}
	return row.toDomain()
}
