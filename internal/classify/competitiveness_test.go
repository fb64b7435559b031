package classify_test

import (
	"math"
	"testing"

	"github.com/LoneStarCivic/LSC-Backend/internal/classify"
)

func TestRateCompetitiveness(t *testing.T) {
	cases := []struct {
		name string
		rep  int
		dem  int
		want classify.Rating
	}{
		{"solid republican", 70, 30, classify.SolidlyRepublican},
		{"solid democrat", 30, 70, classify.SolidlyDemocrat},
		{"even split", 50, 50, classify.Competitive},
		{"just under threshold", 56, 44, classify.Competitive},
		{"exactly at threshold", 57, 43, classify.SolidlyRepublican},
		{"republican only", 10, 0, classify.SolidlyRepublican},
		{"democrat only", 0, 10, classify.SolidlyDemocrat},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify.RateCompetitiveness(tc.rep, tc.dem, classify.DefaultCompetitivenessThreshold)
			if got.Rating != tc.want {
				t.Errorf("rating = %q, want %q", got.Rating, tc.want)
			}
		})
	}
}

// TestRateCompetitiveness_PercentageBounds verifies the known-party
// percentages always sum to 100 when any known-party voters exist.
func TestRateCompetitiveness_PercentageBounds(t *testing.T) {
	for rep := 0; rep <= 20; rep++ {
		for dem := 0; dem <= 20; dem++ {
			if rep+dem == 0 {
				continue
			}
			got := classify.RateCompetitiveness(rep, dem, 57.0)
			if sum := got.RepPct + got.DemPct; math.Abs(sum-100.0) > 1e-9 {
				t.Fatalf("rep=%d dem=%d: pct sum = %f, want 100", rep, dem, sum)
			}
		}
	}
}

// TestRateCompetitiveness_Degenerate verifies 0/0 districts rate Competitive
// instead of failing on a zero denominator.
func TestRateCompetitiveness_Degenerate(t *testing.T) {
	got := classify.RateCompetitiveness(0, 0, 57.0)
	if got.Rating != classify.Competitive {
		t.Errorf("rating = %q, want Competitive", got.Rating)
	}
	if got.RepPct != 0 || got.DemPct != 0 {
		t.Errorf("pcts = %f / %f, want 0 / 0", got.RepPct, got.DemPct)
	}
}
