package upstream

import (
	"math"
	"time"
)

const (
	// LegislativeBackoffBase is used for the Câmara and Senado hosts.
	LegislativeBackoffBase = 2.0
	// TransparencyBackoffBase is used for the Portal da Transparência host.
	TransparencyBackoffBase = 3.0
)

// Backoff maps a retry index to a wait of Base^attempt seconds.
// Attempt 0 is the wait before the first retry.
type Backoff struct {
	Base float64
}

// Delay returns the wait before retry number attempt.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return time.Duration(math.Pow(b.Base, float64(attempt)) * float64(time.Second))
}
