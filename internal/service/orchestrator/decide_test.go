package orchestrator

import (
	"testing"

	"github.com/zhouzirui/interview-journey/backend/internal/model/orchestrator"
)

func ptr(v float64) *float64 { return &v }

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		onboarded bool
		score     *float64
		module    orchestrator.Module
		depth     int
	}{
		{"onboarding first even with strong score", false, ptr(95), orchestrator.ModuleOnboarding, 1},
		{"onboarding first without metrics", false, nil, orchestrator.ModuleOnboarding, 1},
		{"baseline when no metrics", true, nil, orchestrator.ModuleInterviewJourney, 1},
		{"remediation below target", true, ptr(45), orchestrator.ModuleInterviewJourney, 2},
		{"remediation just below target", true, ptr(59.9), orchestrator.ModuleInterviewJourney, 2},
		{"maintenance at target", true, ptr(60), orchestrator.ModuleProductionInterview, 1},
		{"maintenance above target", true, ptr(82), orchestrator.ModuleProductionInterview, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.onboarded, tt.score)
			if got.Module != tt.module || got.Depth != tt.depth {
				t.Fatalf("Decide = (%s, %d), want (%s, %d)", got.Module, got.Depth, tt.module, tt.depth)
			}
			if got.Reason == "" || got.Description == "" {
				t.Fatalf("Decide returned empty reason or description: %+v", got)
			}
		})
	}
}

func TestNormalizeScore(t *testing.T) {
	tests := []struct {
		raw  float64
		want float64
	}{
		{0, 0},
		{0.45, 45},
		{0.82, 82},
		{1, 100},
		{1.5, 1.5},
		{45, 45},
		{82, 82},
		{100, 100},
	}
	for _, tt := range tests {
		if got := NormalizeScore(tt.raw); got < tt.want-1e-9 || got > tt.want+1e-9 {
			t.Fatalf("NormalizeScore(%v) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestFractionalAndPercentScoresDecideAlike(t *testing.T) {
	for _, pair := range [][2]float64{{0.82, 82}, {0.45, 45}, {1, 100}} {
		a, b := NormalizeScore(pair[0]), NormalizeScore(pair[1])
		if Decide(true, &a) != Decide(true, &b) {
			t.Fatalf("score %v and %v decided differently", pair[0], pair[1])
		}
	}
}

func TestFractionalPerfectScoreIsProduction(t *testing.T) {
	score := NormalizeScore(1.0)
	got := Decide(true, &score)
	if got.Module != orchestrator.ModuleProductionInterview || got.Depth != 1 {
		t.Fatalf("Decide(true, NormalizeScore(1.0)) = (%s, %d), want (%s, 1)", got.Module, got.Depth, orchestrator.ModuleProductionInterview)
	}
}
