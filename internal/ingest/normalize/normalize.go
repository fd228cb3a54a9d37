// Package normalize maps upstream records into canonical domain records.
// Every function is pure: missing optional fields become empty values and only a
// missing identifier is an error.
package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/brazyl/brazyl/internal/core/domain"
)

// NormalizationError reports an upstream record that cannot be mapped.
type NormalizationError struct {
	Source domain.Source
	Field  string
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("cannot normalize %s record: %s %s", e.Source, e.Field, e.Reason)
}

// Deputado maps a Câmara /deputados/{id} "dados" object. List summaries are
// accepted too; their party and state sit at the top level.
func Deputado(data map[string]any) (*domain.Politician, error) {
	if data == nil {
		return nil, &NormalizationError{Source: domain.SourceCamara, Field: "record", Reason: "is empty"}
	}
	id := String(data, "id")
	if id == "" {
		return nil, &NormalizationError{Source: domain.SourceCamara, Field: "id", Reason: "is missing"}
	}

	status := Object(data, "ultimoStatus")
	if status == nil {
		status = data
	}

	name := String(data, "nomeCivil")
	parliamentary := firstNonEmpty(String(status, "nome"), String(data, "nome"))
	if name == "" {
		name = parliamentary
	}

	p := &domain.Politician{
		ExternalID:        id,
		Source:            domain.SourceCamara,
		Name:              name,
		ParliamentaryName: parliamentary,
		CPF:               String(data, "cpf"),
		Position:          domain.PositionDeputadoFederal,
		Party:             String(status, "siglaPartido"),
		State:             String(status, "siglaUf"),
		Email:             String(status, "email"),
		PhotoURL:          String(status, "urlFoto"),
		Biography:         String(data, "escolaridade"),
		SocialLinks:       map[string]string{},
		Active:            true,
	}
	if gabinete := Object(status, "gabinete"); gabinete != nil {
		p.Phone = String(gabinete, "telefone")
	}
	if site := String(data, "urlWebsite"); site != "" {
		p.SocialLinks["website"] = site
	}
	for _, raw := range Array(data, "redeSocial") {
		link, ok := raw.(string)
		if !ok || link == "" {
			continue
		}
		if key := socialNetwork(link); p.SocialLinks[key] == "" {
			p.SocialLinks[key] = link
		}
	}
	return p, nil
}

// Senador maps a Senado "Parlamentar" object, either from the roster list or
// from DetalheParlamentar.
func Senador(data map[string]any) (*domain.Politician, error) {
	if data == nil {
		return nil, &NormalizationError{Source: domain.SourceSenado, Field: "record", Reason: "is empty"}
	}
	ident := Object(data, "IdentificacaoParlamentar")
	if ident == nil {
		ident = data
	}

	id := String(ident, "CodigoParlamentar")
	if id == "" {
		return nil, &NormalizationError{Source: domain.SourceSenado, Field: "CodigoParlamentar", Reason: "is missing"}
	}

	p := &domain.Politician{
		ExternalID:        id,
		Source:            domain.SourceSenado,
		Name:              String(ident, "NomeCompletoParlamentar"),
		ParliamentaryName: String(ident, "NomeParlamentar"),
		Position:          domain.PositionSenador,
		Party:             String(ident, "SiglaPartidoParlamentar"),
		State:             String(ident, "UfParlamentar"),
		Email:             String(ident, "EmailParlamentar"),
		PhotoURL:          String(ident, "UrlFotoParlamentar"),
		SocialLinks:       map[string]string{},
		Active:            true,
	}
	if p.Name == "" {
		p.Name = p.ParliamentaryName
	}
	if site := String(ident, "UrlPaginaParlamentar"); site != "" {
		p.SocialLinks["website"] = site
	}
	return p, nil
}

// Gasto maps a Portal da Transparência spending record.
func Gasto(data map[string]any) domain.Expense {
	return domain.Expense{
		Description: String(data, "descricao"),
		Amount:      Float(data, "valor"),
		Date:        String(data, "data"),
		Supplier:    String(Object(data, "favorecido"), "nome"),
		Source:      "Portal da Transparência",
	}
}

// Despesa maps a Câmara /deputados/{id}/despesas record.
func Despesa(data map[string]any) domain.Expense {
	return domain.Expense{
		Description: String(data, "tipoDespesa"),
		Amount:      Float(data, "valorDocumento"),
		Date:        String(data, "dataDocumento"),
		Supplier:    String(data, "nomeFornecedor"),
		Source:      "Câmara dos Deputados",
	}
}

// CamaraVoto maps a Câmara /votacoes/{id}/votos entry.
func CamaraVoto(ballotID string, data map[string]any) domain.Vote {
	return domain.Vote{
		BallotID:     ballotID,
		PoliticianID: String(Object(data, "deputado_"), "id"),
		Option:       String(data, "tipoVoto"),
		RecordedAt:   String(data, "dataRegistroVoto"),
	}
}

// SenadoVoto maps a Senado VotacaoDetalhe "Voto" entry.
func SenadoVoto(ballotID string, data map[string]any) domain.Vote {
	return domain.Vote{
		BallotID:     ballotID,
		PoliticianID: String(data, "CodigoParlamentar"),
		Option:       firstNonEmpty(String(data, "SiglaVoto"), String(data, "DescricaoVoto")),
	}
}

// String reads key as a string, rendering numbers without exponent.
func String(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

// Float reads key as a number, accepting numeric strings.
func Float(m map[string]any, key string) float64 {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return v
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
		return f
	default:
		return 0
	}
}

// Object reads key as a nested object.
func Object(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	obj, _ := m[key].(map[string]any)
	return obj
}

// Array reads key as a list. A single object is returned as a one-element list,
// which is how the Senado API encodes single-item collections.
func Array(m map[string]any, key string) []any {
	if m == nil {
		return nil
	}
	switch v := m[key].(type) {
	case []any:
		return v
	case map[string]any:
		return []any{v}
	default:
		return nil
	}
}

// Path walks nested objects.
func Path(m map[string]any, keys ...string) map[string]any {
	for _, k := range keys {
		m = Object(m, k)
		if m == nil {
			return nil
		}
	}
	return m
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func socialNetwork(link string) string {
	lower := strings.ToLower(link)
	for _, name := range []string{"instagram", "facebook", "twitter", "youtube", "tiktok", "linkedin"} {
		if strings.Contains(lower, name) {
			return name
		}
	}
	if strings.Contains(lower, "x.com") {
		return "twitter"
	}
	return "other"
}
