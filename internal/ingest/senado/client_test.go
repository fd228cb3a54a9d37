package senado

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brazyl/brazyl/internal/infra/cache"
	"github.com/brazyl/brazyl/internal/infra/upstream"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	rc := upstream.NewClient(upstream.Config{Name: "senado", BaseURL: server.URL})
	return New(cache.NewCachingClient(cache.New(nil), rc), cache.TTLs{})
}

func TestListSenadores_ListAndSingleObject(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		expect int
	}{
		{
			name: "list",
			body: `{"ListaParlamentarEmExercicio": {"Parlamentares": {"Parlamentar": [
				{"IdentificacaoParlamentar": {"CodigoParlamentar": "1"}},
				{"IdentificacaoParlamentar": {"CodigoParlamentar": "2"}}
			]}}}`,
			expect: 2,
		},
		{
			name: "single object",
			body: `{"ListaParlamentarEmExercicio": {"Parlamentares": {"Parlamentar":
				{"IdentificacaoParlamentar": {"CodigoParlamentar": "1"}}
			}}}`,
			expect: 1,
		},
		{
			name:   "empty",
			body:   `{"ListaParlamentarEmExercicio": {}}`,
			expect: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/senador/lista/atual" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if r.URL.Query().Get("uf") != "AP" {
					t.Errorf("expected uf=AP, got %s", r.URL.RawQuery)
				}
				_, _ = w.Write([]byte(tt.body))
			})

			got, err := c.ListSenadores(context.Background(), "ap", "")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tt.expect {
				t.Errorf("expected %d senadores, got %d", tt.expect, len(got))
			}
		})
	}
}

func TestGetSenador(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"DetalheParlamentar": {"Parlamentar": {"IdentificacaoParlamentar": {"CodigoParlamentar": "5012"}}}}`))
	})

	p, err := c.GetSenador(context.Background(), "5012")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p["IdentificacaoParlamentar"] == nil {
		t.Errorf("unexpected payload %v", p)
	}
}

func TestListVotacoes_DateFormat(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("dataInicio") != "20240501" || q.Get("dataFim") != "20240531" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"ListaVotacoes": {"Votacoes": {"Votacao": [{"CodigoSessaoVotacao": "1"}]}}}`))
	})

	got, err := c.ListVotacoes(context.Background(),
		time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 votacao, got %d", len(got))
	}
}

func TestGetVotoSenador(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"VotacaoDetalhe": {"Votacao": {"Votos": {"Voto": [
			{"CodigoParlamentar": "1", "SiglaVoto": "Sim"},
			{"CodigoParlamentar": "5012", "SiglaVoto": "Não"}
		]}}}}`))
	})

	vote, err := c.GetVotoSenador(context.Background(), "6543", "5012")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vote == nil || vote.Option != "Não" {
		t.Fatalf("unexpected vote %+v", vote)
	}

	vote, err = c.GetVotoSenador(context.Background(), "6543", "999")
	if err != nil || vote != nil {
		t.Errorf("expected nil vote, got %+v, %v", vote, err)
	}
}
