package upstream

import (
	"testing"
	"time"
)

func TestBackoff_Delay(t *testing.T) {
	tests := []struct {
		base    float64
		attempt int
		expect  time.Duration
	}{
		{LegislativeBackoffBase, 0, 1 * time.Second},
		{LegislativeBackoffBase, 1, 2 * time.Second},
		{LegislativeBackoffBase, 2, 4 * time.Second},
		{TransparencyBackoffBase, 0, 1 * time.Second},
		{TransparencyBackoffBase, 1, 3 * time.Second},
		{TransparencyBackoffBase, 2, 9 * time.Second},
		{LegislativeBackoffBase, -1, 1 * time.Second},
	}

	for _, tt := range tests {
		b := Backoff{Base: tt.base}
		if got := b.Delay(tt.attempt); got != tt.expect {
			t.Errorf("Backoff{%v}.Delay(%d) = %v, want %v", tt.base, tt.attempt, got, tt.expect)
		}
	}
}
