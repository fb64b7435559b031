package model

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/LoneStarCivic/LSC-Backend/internal/classify"
	"github.com/LoneStarCivic/LSC-Backend/internal/features"
	"github.com/LoneStarCivic/LSC-Backend/internal/obs"
	"github.com/LoneStarCivic/LSC-Backend/internal/voterfile"
)

// syntheticElectorate builds n voters per party in two sharply polarized
// counties, plus a handful of unclassified voters in each.
func syntheticElectorate(n int) []*voterfile.Voter {
	var voters []*voterfile.Voter
	vuid := int64(1)
	add := func(county, zip string, age int, party classify.Party) {
		a := age
		voters = append(voters, &voterfile.Voter{
			VUID:                  vuid,
			CountyName:            county,
			PrecinctCode:          fmt.Sprintf("%d", int(vuid)%4+1),
			ZIP:                   zip,
			Age:                   &a,
			AgeBracket:            voterfile.AgeBracket(&a),
			PrimaryClassification: party,
		})
		vuid++
	}
	for i := 0; i < n; i++ {
		add("REDVILLE", "79901", 50+i%20, classify.Republican)
		add("BLUETON", "78701", 25+i%20, classify.Democrat)
	}
	// Unclassified voters carry their county's typical age so every
	// feature points the same way.
	for i := 0; i < 5; i++ {
		add("REDVILLE", "79901", 55, classify.Unknown)
		add("BLUETON", "78701", 30, classify.Unknown)
	}
	return voters
}

func testConfig() TrainingConfig {
	cfg := DefaultTrainingConfig()
	cfg.Trees = 20
	cfg.MaxDepth = 6
	cfg.Folds = 3
	return cfg
}

func TestTrain_PolarizedCounties(t *testing.T) {
	voters := syntheticElectorate(80)
	priors := features.BuildPriors(voters)

	out := Train(voters, priors, testConfig(), obs.Discard())
	if out.Failure != nil {
		t.Fatalf("training failed: %s", out.Failure.Reason)
	}
	m := out.Model

	if m.Metrics.TestAccuracy < 0.9 {
		t.Errorf("test accuracy = %.3f, want >= 0.9 on polarized data", m.Metrics.TestAccuracy)
	}
	if len(m.Medians) != len(features.Columns) {
		t.Errorf("medians length = %d, want %d", len(m.Medians), len(features.Columns))
	}

	// Unknown voters in a one-party county should impute confidently in
	// that county's direction.
	unknowns := voters[len(voters)-10:]
	countyByVUID := map[int64]string{}
	for _, v := range unknowns {
		countyByVUID[v.VUID] = v.CountyName
	}
	preds := m.Predict(unknowns, priors, 0.65, 0, obs.Discard())
	if len(preds) != 10 {
		t.Fatalf("got %d predictions, want 10", len(preds))
	}
	for _, p := range preds {
		want := classify.Republican
		if countyByVUID[p.VUID] == "BLUETON" {
			want = classify.Democrat
		}
		if p.Party != want {
			t.Errorf("VUID %d (%s): party %s with rep=%.2f dem=%.2f",
				p.VUID, countyByVUID[p.VUID], p.Party, p.RepProb, p.DemProb)
		}
	}
}

func TestTrain_InsufficientLabels(t *testing.T) {
	voters := syntheticElectorate(10)
	out := Train(voters, features.BuildPriors(voters), testConfig(), obs.Discard())
	if out.Failure == nil {
		t.Fatal("want a training failure with 10 voters per class")
	}
	if out.Model != nil {
		t.Error("failure outcome must not also carry a model")
	}
}

func TestPartyFromProbs(t *testing.T) {
	cases := []struct {
		rep, dem float64
		want     classify.Party
	}{
		{0.70, 0.30, classify.Republican},
		{0.65, 0.35, classify.Republican},
		{0.30, 0.70, classify.Democrat},
		{0.60, 0.40, classify.Swing},
		{0.50, 0.50, classify.Swing},
	}
	for _, c := range cases {
		if got := PartyFromProbs(c.rep, c.dem, 0.65); got != c.want {
			t.Errorf("PartyFromProbs(%.2f, %.2f) = %s, want %s", c.rep, c.dem, got, c.want)
		}
	}
}

func TestLeanLabel(t *testing.T) {
	cases := []struct {
		prob float64
		want string
	}{
		{0.80, "Likely Republican"},
		{0.60, "Lean Republican"},
		{0.50, "Toss-up"},
		{0.40, "Lean Democrat"},
		{0.20, "Likely Democrat"},
	}
	for _, c := range cases {
		if got := LeanLabel(c.prob); got != c.want {
			t.Errorf("LeanLabel(%.2f) = %q, want %q", c.prob, got, c.want)
		}
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	voters := syntheticElectorate(60)
	priors := features.BuildPriors(voters)
	out := Train(voters, priors, testConfig(), obs.Discard())
	if out.Failure != nil {
		t.Fatalf("training failed: %s", out.Failure.Reason)
	}

	path := filepath.Join(t.TempDir(), "artifacts", "party_model.json")
	if err := out.Model.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// The reloaded model must predict identically.
	probe := voters[:20]
	before := out.Model.Predict(probe, priors, 0.65, 0, obs.Discard())
	after := loaded.Predict(probe, priors, 0.65, 0, obs.Discard())
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("prediction %d changed after reload: %+v vs %+v", i, before[i], after[i])
		}
	}
}

func TestLoad_RejectsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("want error for missing artifact")
	}
}

func TestApply(t *testing.T) {
	voters := []*voterfile.Voter{{VUID: 1}, {VUID: 2}}
	Apply(voters, []Prediction{
		{VUID: 1, RepProb: 0.8, DemProb: 0.2, Party: classify.Republican},
		{VUID: 99, RepProb: 0.5, DemProb: 0.5, Party: classify.Swing},
	})
	if voters[0].PredictedParty != classify.Republican || voters[0].PredictedRepProb != 0.8 {
		t.Errorf("voter 1 = %+v", voters[0])
	}
	if voters[1].PredictedParty != "" {
		t.Errorf("voter 2 should be untouched, got %q", voters[1].PredictedParty)
	}
}
