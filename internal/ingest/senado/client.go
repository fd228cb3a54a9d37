// Package senado reads the Senado Federal open data API.
package senado

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/brazyl/brazyl/internal/core/domain"
	"github.com/brazyl/brazyl/internal/infra/cache"
	"github.com/brazyl/brazyl/internal/infra/upstream"
	"github.com/brazyl/brazyl/internal/ingest/normalize"
)

// DefaultBaseURL is the public endpoint.
const DefaultBaseURL = "https://legis.senado.leg.br/dadosabertos"

const dateLayout = "20060102"

// Client is a typed reader over a CachingClient bound to the Senado host.
type Client struct {
	http *cache.CachingClient
	ttl  cache.TTLs
	log  *slog.Logger
}

// New creates a Senado client.
func New(http *cache.CachingClient, ttl cache.TTLs) *Client {
	return &Client{
		http: http,
		ttl:  ttl.WithDefaults(),
		log:  slog.Default().With("component", "senado"),
	}
}

// ListSenadores returns the senators currently in office.
func (c *Client) ListSenadores(ctx context.Context, uf, partido string) ([]map[string]any, error) {
	params := upstream.Params{}
	if uf != "" {
		params["uf"] = strings.ToUpper(uf)
	}
	if partido != "" {
		params["partido"] = strings.ToUpper(partido)
	}

	payload, err := c.get(ctx, "/senador/lista/atual", params, c.ttl.Roster)
	if err != nil {
		return nil, fmt.Errorf("failed to list senadores: %w", err)
	}
	parlamentares := normalize.Path(payload, "ListaParlamentarEmExercicio", "Parlamentares")
	senadores := normalize.Objects(parlamentares["Parlamentar"])
	c.log.Debug("Senadores listed", "count", len(senadores), "uf", uf)
	return senadores, nil
}

// GetSenador returns the Parlamentar object of one senator.
func (c *Client) GetSenador(ctx context.Context, codigo string) (map[string]any, error) {
	payload, err := c.get(ctx, "/senador/"+codigo, nil, c.ttl.Politician)
	if err != nil {
		return nil, fmt.Errorf("failed to get senador %s: %w", codigo, err)
	}
	return normalize.Path(payload, "DetalheParlamentar", "Parlamentar"), nil
}

// ListVotacoes returns plenary ballots between from and to.
func (c *Client) ListVotacoes(ctx context.Context, from, to time.Time) ([]map[string]any, error) {
	params := upstream.Params{}
	if !from.IsZero() {
		params["dataInicio"] = from.Format(dateLayout)
	}
	if !to.IsZero() {
		params["dataFim"] = to.Format(dateLayout)
	}

	payload, err := c.get(ctx, "/votacao/lista", params, c.ttl.Votes)
	if err != nil {
		return nil, fmt.Errorf("failed to list votacoes: %w", err)
	}
	votacoes := normalize.Path(payload, "ListaVotacoes", "Votacoes")
	return normalize.Objects(votacoes["Votacao"]), nil
}

// GetVotoSenador returns how a senator voted on a ballot, or nil when absent.
func (c *Client) GetVotoSenador(ctx context.Context, votacaoID, codigo string) (*domain.Vote, error) {
	payload, err := c.get(ctx, "/votacao/"+votacaoID, nil, c.ttl.Votes)
	if err != nil {
		return nil, fmt.Errorf("failed to get votacao %s: %w", votacaoID, err)
	}

	votos := normalize.Path(payload, "VotacaoDetalhe", "Votacao", "Votos")
	for _, voto := range normalize.Objects(votos["Voto"]) {
		vote := normalize.SenadoVoto(votacaoID, voto)
		if vote.PoliticianID == codigo {
			return &vote, nil
		}
	}
	return nil, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params upstream.Params, ttl time.Duration) (map[string]any, error) {
	body, err := c.http.Get(ctx, endpoint, params, ttl)
	if err != nil {
		return nil, err
	}
	return normalize.DecodeObject(body)
}
