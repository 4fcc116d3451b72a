package clock

import (
	"testing"
	"time"
)

func TestManual_Advance(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := NewManual(start)

	if got := clk.Now(); !got.Equal(start) {
		t.Fatalf("expected %s, got %s", start, got)
	}
	clk.Advance(90 * time.Second)
	if got := clk.Now(); !got.Equal(start.Add(90 * time.Second)) {
		t.Fatalf("expected clock advanced by 90s, got %s", got)
	}
}

func TestFixed_ReturnsUTC(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+2", 2*60*60)
	clk := NewFixed(time.Date(2025, 3, 1, 14, 0, 0, 0, loc))

	if clk.Now().Location() != time.UTC {
		t.Fatalf("expected UTC, got %s", clk.Now().Location())
	}
}
