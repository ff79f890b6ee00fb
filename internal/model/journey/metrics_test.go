package journey

import "testing"

func TestOverallPercent(t *testing.T) {
	tests := []struct {
		raw  float64
		want int
	}{
		{0, 0},
		{0.82, 82},
		{1, 100},
		{2, 2},
		{45, 45},
		{100, 100},
	}
	for _, tt := range tests {
		if got := OverallPercent(tt.raw); got != tt.want {
			t.Fatalf("OverallPercent(%v) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
