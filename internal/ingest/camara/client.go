// Package camara reads the Câmara dos Deputados open data API (v2).
package camara

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/brazyl/brazyl/internal/core/domain"
	"github.com/brazyl/brazyl/internal/infra/cache"
	"github.com/brazyl/brazyl/internal/infra/upstream"
	"github.com/brazyl/brazyl/internal/ingest/normalize"
)

// DefaultBaseURL is the public v2 endpoint.
const DefaultBaseURL = "https://dadosabertos.camara.leg.br/api/v2"

// MaxItems is the largest page size the API accepts.
const MaxItems = 100

// Client is a typed reader over a CachingClient bound to the Câmara host.
type Client struct {
	http *cache.CachingClient
	ttl  cache.TTLs
	log  *slog.Logger
}

// New creates a Câmara client.
func New(http *cache.CachingClient, ttl cache.TTLs) *Client {
	return &Client{
		http: http,
		ttl:  ttl.WithDefaults(),
		log:  slog.Default().With("component", "camara"),
	}
}

// Page is one page of a "dados" listing.
type Page struct {
	Items   []map[string]any
	HasNext bool
}

// DeputadosFilter narrows the roster listing.
type DeputadosFilter struct {
	UF      string
	Partido string
	Nome    string
	Pagina  int
	Itens   int
}

// ListDeputados returns a page of deputies ordered by name.
func (c *Client) ListDeputados(ctx context.Context, f DeputadosFilter) (*Page, error) {
	params := upstream.Params{
		"pagina":     strconv.Itoa(max(f.Pagina, 1)),
		"itens":      strconv.Itoa(clampItems(f.Itens)),
		"ordem":      "ASC",
		"ordenarPor": "nome",
	}
	if f.UF != "" {
		params["siglaUf"] = strings.ToUpper(f.UF)
	}
	if f.Partido != "" {
		params["siglaPartido"] = strings.ToUpper(f.Partido)
	}
	if f.Nome != "" {
		params["nome"] = f.Nome
	}

	page, err := c.page(ctx, "/deputados", params, c.ttl.Roster)
	if err != nil {
		return nil, fmt.Errorf("failed to list deputados: %w", err)
	}
	c.log.Debug("Deputados listed", "count", len(page.Items), "uf", f.UF, "pagina", params["pagina"])
	return page, nil
}

// GetDeputado returns the "dados" object of one deputy.
func (c *Client) GetDeputado(ctx context.Context, id string) (map[string]any, error) {
	body, err := c.http.Get(ctx, "/deputados/"+id, nil, c.ttl.Politician)
	if err != nil {
		return nil, fmt.Errorf("failed to get deputado %s: %w", id, err)
	}
	payload, err := normalize.DecodeObject(body)
	if err != nil {
		return nil, err
	}
	return normalize.Object(payload, "dados"), nil
}

// ListVotacoes returns ballots registered between from and to, newest first.
func (c *Client) ListVotacoes(ctx context.Context, from, to time.Time, pagina, itens int) (*Page, error) {
	params := upstream.Params{
		"pagina":     strconv.Itoa(max(pagina, 1)),
		"itens":      strconv.Itoa(clampItems(itens)),
		"ordem":      "DESC",
		"ordenarPor": "dataHoraRegistro",
	}
	if !from.IsZero() {
		params["dataInicio"] = from.Format(time.DateOnly)
	}
	if !to.IsZero() {
		params["dataFim"] = to.Format(time.DateOnly)
	}

	page, err := c.page(ctx, "/votacoes", params, c.ttl.Votes)
	if err != nil {
		return nil, fmt.Errorf("failed to list votacoes: %w", err)
	}
	return page, nil
}

// GetVotoDeputado returns how a deputy voted on a ballot, or nil when the deputy
// has no recorded vote.
func (c *Client) GetVotoDeputado(ctx context.Context, votacaoID, deputadoID string) (*domain.Vote, error) {
	body, err := c.http.Get(ctx, "/votacoes/"+votacaoID+"/votos", nil, c.ttl.Votes)
	if err != nil {
		return nil, fmt.Errorf("failed to get votos for %s: %w", votacaoID, err)
	}
	payload, err := normalize.DecodeObject(body)
	if err != nil {
		return nil, err
	}

	for _, voto := range normalize.Objects(payload["dados"]) {
		vote := normalize.CamaraVoto(votacaoID, voto)
		if vote.PoliticianID == deputadoID {
			return &vote, nil
		}
	}
	return nil, nil
}

// ListDespesas returns a page of a deputy's expense ledger.
func (c *Client) ListDespesas(ctx context.Context, deputadoID string, ano, mes, pagina, itens int) (*Page, error) {
	params := upstream.Params{
		"ano":        strconv.Itoa(ano),
		"pagina":     strconv.Itoa(max(pagina, 1)),
		"itens":      strconv.Itoa(clampItems(itens)),
		"ordem":      "ASC",
		"ordenarPor": "dataDocumento",
	}
	if mes > 0 {
		params["mes"] = strconv.Itoa(mes)
	}

	page, err := c.page(ctx, "/deputados/"+deputadoID+"/despesas", params, c.ttl.Expenses)
	if err != nil {
		return nil, fmt.Errorf("failed to list despesas for %s: %w", deputadoID, err)
	}
	return page, nil
}

// Despesas returns the normalized ledger page and its total amount.
func (c *Client) Despesas(ctx context.Context, deputadoID string, ano, mes, pagina int) ([]domain.Expense, float64, error) {
	page, err := c.ListDespesas(ctx, deputadoID, ano, mes, pagina, MaxItems)
	if err != nil {
		return nil, 0, err
	}
	expenses := make([]domain.Expense, 0, len(page.Items))
	var total float64
	for _, item := range page.Items {
		e := normalize.Despesa(item)
		total += e.Amount
		expenses = append(expenses, e)
	}
	return expenses, total, nil
}

func (c *Client) page(ctx context.Context, endpoint string, params upstream.Params, ttl time.Duration) (*Page, error) {
	body, err := c.http.Get(ctx, endpoint, params, ttl)
	if err != nil {
		return nil, err
	}
	payload, err := normalize.DecodeObject(body)
	if err != nil {
		return nil, err
	}

	page := &Page{Items: normalize.Objects(payload["dados"])}
	for _, link := range normalize.Objects(payload["links"]) {
		if normalize.String(link, "rel") == "next" {
			page.HasNext = true
		}
	}
	return page, nil
}

func clampItems(n int) int {
	if n <= 0 || n > MaxItems {
		return MaxItems
	}
	return n
}
