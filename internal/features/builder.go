// Package features computes the geographic and demographic party-composition
// priors used both as model features and as the imputation fallback, and the
// categorical encodings that accompany the model artifact.
package features

import (
	"github.com/LoneStarCivic/LSC-Backend/internal/classify"
	"github.com/LoneStarCivic/LSC-Backend/internal/voterfile"
)

// GroupStat is the known-voter party composition of one group (a precinct,
// county, ZIP, or age bracket). "Known" means classified Republican,
// Democrat or Swing from primary history.
type GroupStat struct {
	Republicans int
	Democrats   int
	TotalKnown  int
	RepPct      float64
	DemPct      float64
}

// Priors holds group statistics at every granularity the model consumes.
// A voter's own vote is included in their group's statistic — there is no
// leave-one-out correction. This mildly leaks the training label into the
// feature for small groups; accepted as a modeling simplification.
type Priors struct {
	Precinct   map[string]GroupStat // keyed county name + "|" + precinct code
	County     map[string]GroupStat
	ZIP        map[string]GroupStat
	AgeBracket map[string]GroupStat
}

// PrecinctKey builds the precinct-granularity key for a voter.
func PrecinctKey(v *voterfile.Voter) string {
	return v.CountyName + "|" + v.PrecinctCode
}

func known(p classify.Party) bool {
	return p == classify.Republican || p == classify.Democrat || p == classify.Swing
}

// BuildPriors aggregates the known-voter population into group statistics at
// precinct, county, ZIP and age-bracket granularity. Groups with no known
// voters are simply absent; lookups degrade to missing features.
func BuildPriors(voters []*voterfile.Voter) *Priors {
	p := &Priors{
		Precinct:   map[string]GroupStat{},
		County:     map[string]GroupStat{},
		ZIP:        map[string]GroupStat{},
		AgeBracket: map[string]GroupStat{},
	}

	add := func(m map[string]GroupStat, key string, party classify.Party) {
		if key == "" || key == "|" {
			return
		}
		s := m[key]
		s.TotalKnown++
		switch party {
		case classify.Republican:
			s.Republicans++
		case classify.Democrat:
			s.Democrats++
		}
		m[key] = s
	}

	for _, v := range voters {
		if !known(v.PrimaryClassification) {
			continue
		}
		add(p.Precinct, PrecinctKey(v), v.PrimaryClassification)
		add(p.County, v.CountyName, v.PrimaryClassification)
		add(p.ZIP, v.ZIP, v.PrimaryClassification)
		add(p.AgeBracket, v.AgeBracket, v.PrimaryClassification)
	}

	finalize(p.Precinct)
	finalize(p.County)
	finalize(p.ZIP)
	finalize(p.AgeBracket)
	return p
}

func finalize(m map[string]GroupStat) {
	for k, s := range m {
		if s.TotalKnown > 0 {
			s.RepPct = float64(s.Republicans) / float64(s.TotalKnown)
			s.DemPct = float64(s.Democrats) / float64(s.TotalKnown)
		}
		m[k] = s
	}
}
