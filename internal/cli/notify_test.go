package cli

import (
	"testing"
	"time"
)

func TestParseScheduleTime(t *testing.T) {
	got, err := parseScheduleTime("2024-03-01T12:00:00Z")
	if err != nil {
		t.Fatalf("RFC3339 rejected: %v", err)
	}
	if !got.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected time %v", got)
	}

	// 09:00 in Brasília is 12:00 UTC
	got, err = parseScheduleTime("01/03/2024 09:00")
	if err != nil {
		t.Fatalf("Brazilian layout rejected: %v", err)
	}
	if !got.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected time %v", got.UTC())
	}

	if _, err := parseScheduleTime("tomorrow"); err == nil {
		t.Error("expected error for unparseable time")
	}
}
