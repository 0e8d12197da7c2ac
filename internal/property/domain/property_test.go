package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func points(prices ...float64) []PricePoint {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]PricePoint, len(prices))
	for i, p := range prices {
		out[i] = PricePoint{Price: decimal.NewFromFloat(p), Timestamp: start.Add(time.Duration(i) * time.Hour)}
	}
	return out
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name        string
		points      []PricePoint
		wantChange  string
		wantPercent string
	}{
		{"rise", points(100, 150), "50", "50"},
		{"single point", points(100), "0", "0"},
		{"no points", nil, "0", "0"},
		{"fall across many", points(200, 260, 180, 150), "-50", "-25"},
		{"zero first price", points(0, 40), "40", "0"},
		{"fractional percent", points(300, 301), "1", "0.3333333333333333"},
		{"thirds", points(3, 4), "1", "33.3333333333333333"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.points)
			if !got.Change.Equal(decimal.RequireFromString(tt.wantChange)) {
				t.Errorf("Change = %s, want %s", got.Change, tt.wantChange)
			}
			if !got.ChangePercent.Equal(decimal.RequireFromString(tt.wantPercent)) {
				t.Errorf("ChangePercent = %s, want %s", got.ChangePercent, tt.wantPercent)
			}
		})
	}
}

func TestSummarize_PercentIsFloat50(t *testing.T) {
	got := Summarize(points(100, 150))
	if f := got.ChangePercent.InexactFloat64(); f != 50.0 {
		t.Errorf("ChangePercent float = %v, want 50.0", f)
	}
}
