package domain

import "time"

type Position string

const (
	PositionDeputadoFederal Position = "DEPUTADO_FEDERAL"
	PositionSenador         Position = "SENADOR"
)

// Politician is the canonical political-actor record shared by every upstream.
type Politician struct {
	ID                string
	ExternalID        string
	Source            Source
	Name              string
	ParliamentaryName string
	CPF               string
	Position          Position
	Party             string
	State             string
	Email             string
	Phone             string
	PhotoURL          string
	Biography         string
	SocialLinks       map[string]string
	Active            bool
	UpdatedAt         time.Time
}

// Source identifies the upstream host a record came from.
type Source string

const (
	SourceCamara        Source = "camara"
	SourceSenado        Source = "senado"
	SourceTransparencia Source = "transparencia"
)

// Expense is a single normalized spending record.
type Expense struct {
	Description string
	Amount      float64
	Date        string
	Supplier    string
	Source      string
}

// Vote is a single politician's recorded vote on a ballot.
type Vote struct {
	BallotID     string
	PoliticianID string
	Option       string
	RecordedAt   string
}
