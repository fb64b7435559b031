package redistrict

import (
	"sort"

	"github.com/LoneStarCivic/LSC-Backend/internal/voterfile"
)

// Delta compares one new district's actual party counts to the expected
// counts synthesized from the old districts that feed it. A positive net
// change means the new boundaries concentrate more of that party here than
// a no-compositional-change null would predict. This is an estimate, not a
// causal measurement: boundary effects are confounded with demographic
// drift between elections.
type Delta struct {
	District     int
	ActualRep    int
	ActualDem    int
	ExpectedRep  float64
	ExpectedDem  float64
	NetRepChange float64
	NetDemChange float64
}

// Transition counts voters moving from one old district to one new one.
type Transition struct {
	OldDistrict int
	NewDistrict int
	Voters      int
}

// Transitions builds the old-to-new movement matrix for one plan,
// considering only voters assigned under both boundary sets.
func Transitions(voters []*voterfile.Voter, t DistrictType) []Transition {
	type pair struct{ old, new int }
	counts := map[pair]int{}
	for _, v := range voters {
		o, n := t.Old(v), t.New(v)
		if o == nil || n == nil {
			continue
		}
		counts[pair{*o, *n}]++
	}

	out := make([]Transition, 0, len(counts))
	for p, c := range counts {
		out = append(out, Transition{OldDistrict: p.old, NewDistrict: p.new, Voters: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NewDistrict != out[j].NewDistrict {
			return out[i].NewDistrict < out[j].NewDistrict
		}
		return out[i].OldDistrict < out[j].OldDistrict
	})
	return out
}

// ComputeDeltas estimates the redistricting impact for every new district of
// one plan. The expected composition is the contribution-weighted average of
// each feeding old district's party percentages, scaled to the new
// district's actual total. Old-district percentages are taken over the full
// old-boundary population, not just the voters who carried over.
func ComputeDeltas(voters []*voterfile.Voter, t DistrictType) []Delta {
	oldComp := Compositions(voters, t.Old)
	newComp := Compositions(voters, t.New)
	transitions := Transitions(voters, t)

	contributed := map[int]int{}
	for _, tr := range transitions {
		contributed[tr.NewDistrict] += tr.Voters
	}

	deltas := make(map[int]*Delta, len(newComp))
	for d, c := range newComp {
		deltas[d] = &Delta{District: d, ActualRep: c.Republicans, ActualDem: c.Democrats}
	}

	for _, tr := range transitions {
		oc, ok := oldComp[tr.OldDistrict]
		if !ok || oc.Total == 0 {
			continue
		}
		delta := deltas[tr.NewDistrict]
		weight := float64(tr.Voters) / float64(contributed[tr.NewDistrict])
		scale := float64(newComp[tr.NewDistrict].Total)
		delta.ExpectedRep += weight * oc.RepPct * scale
		delta.ExpectedDem += weight * oc.DemPct * scale
	}

	out := make([]*Delta, 0, len(deltas))
	for _, d := range deltas {
		d.NetRepChange = float64(d.ActualRep) - d.ExpectedRep
		d.NetDemChange = float64(d.ActualDem) - d.ExpectedDem
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].District < out[j].District })

	result := make([]Delta, len(out))
	for i, d := range out {
		result[i] = *d
	}
	return result
}
