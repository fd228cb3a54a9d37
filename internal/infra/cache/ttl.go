package cache

import "time"

// TTLs holds per-call-type expiry. Listings that change often expire first.
type TTLs struct {
	Votes      time.Duration `yaml:"votes"`
	Roster     time.Duration `yaml:"roster"`
	Politician time.Duration `yaml:"politician"`
	Expenses   time.Duration `yaml:"expenses"`
	Servidor   time.Duration `yaml:"servidor"`
}

// DefaultTTLs mirrors how often each upstream dataset changes.
var DefaultTTLs = TTLs{
	Votes:      30 * time.Minute,
	Roster:     time.Hour,
	Politician: time.Hour,
	Expenses:   6 * time.Hour,
	Servidor:   24 * time.Hour,
}

// WithDefaults fills zero values from DefaultTTLs.
func (t TTLs) WithDefaults() TTLs {
	if t.Votes <= 0 {
		t.Votes = DefaultTTLs.Votes
	}
	if t.Roster <= 0 {
		t.Roster = DefaultTTLs.Roster
	}
	if t.Politician <= 0 {
		t.Politician = DefaultTTLs.Politician
	}
	if t.Expenses <= 0 {
		t.Expenses = DefaultTTLs.Expenses
	}
	if t.Servidor <= 0 {
		t.Servidor = DefaultTTLs.Servidor
	}
	return t
}
