// Package transparencia reads the Portal da Transparência API.
package transparencia

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/brazyl/brazyl/internal/core/domain"
	"github.com/brazyl/brazyl/internal/infra/cache"
	"github.com/brazyl/brazyl/internal/infra/upstream"
	"github.com/brazyl/brazyl/internal/ingest/normalize"
)

// DefaultBaseURL is the public endpoint.
const DefaultBaseURL = "https://api.portaldatransparencia.gov.br/api-de-dados"

// APIKeyHeader carries the portal's access key.
const APIKeyHeader = "chave-api-dados"

// Client is a typed reader over a CachingClient bound to the Transparência host.
type Client struct {
	http *cache.CachingClient
	ttl  cache.TTLs
	log  *slog.Logger
}

// New creates a Transparência client.
func New(http *cache.CachingClient, ttl cache.TTLs) *Client {
	return &Client{
		http: http,
		ttl:  ttl.WithDefaults(),
		log:  slog.Default().With("component", "transparencia"),
	}
}

// Ledger is a page of normalized spending records.
type Ledger struct {
	Expenses []domain.Expense
	Message  string
}

// FindServidorByCPF returns the first civil servant record for cpf, or nil.
func (c *Client) FindServidorByCPF(ctx context.Context, cpf string) (map[string]any, error) {
	digits := onlyDigits(cpf)
	c.log.Info("Looking up servidor", "cpf", maskCPF(digits))

	body, err := c.http.Get(ctx, "/servidores", upstream.Params{"cpf": digits, "pagina": "1"}, c.ttl.Servidor)
	var notFound *upstream.NotFoundError
	if errors.As(err, &notFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find servidor: %w", err)
	}

	results, err := normalize.DecodeList(body)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

// GastosParlamentares returns an empty ledger: the portal exposes no
// per-parliamentarian spending endpoint. Câmara expenses come from the
// Câmara client instead.
func (c *Client) GastosParlamentares(ctx context.Context, cpf string, ano, mes int) (*Ledger, error) {
	c.log.Warn("Parliamentary spending not available from the portal",
		"cpf", maskCPF(onlyDigits(cpf)), "ano", ano, "mes", mes)
	return &Ledger{
		Expenses: []domain.Expense{},
		Message:  "API da Transparência tem dados limitados para parlamentares",
	}, nil
}

// NormalizeGastos maps raw spending records.
func NormalizeGastos(items []map[string]any) []domain.Expense {
	out := make([]domain.Expense, 0, len(items))
	for _, item := range items {
		out = append(out, normalize.Gasto(item))
	}
	return out
}

func onlyDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

func maskCPF(digits string) string {
	if len(digits) < 3 {
		return "***"
	}
	return digits[:3] + "***"
}
