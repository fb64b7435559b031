package redistrict

import (
	"sort"

	"github.com/LoneStarCivic/LSC-Backend/internal/classify"
	"github.com/LoneStarCivic/LSC-Backend/internal/voterfile"
)

// Turnout is one district's early-voting participation under one boundary
// set, broken down by unified party label.
type Turnout struct {
	District    int
	Registered  int
	EarlyVoters int
	EarlyRep    int
	EarlyDem    int
	TurnoutPct  float64
}

// EarlyTurnout aggregates early-voting participation by district.
func EarlyTurnout(voters []*voterfile.Voter, district func(*voterfile.Voter) *int) []Turnout {
	byDistrict := map[int]*Turnout{}
	for _, v := range voters {
		d := district(v)
		if d == nil {
			continue
		}
		t := byDistrict[*d]
		if t == nil {
			t = &Turnout{District: *d}
			byDistrict[*d] = t
		}
		t.Registered++
		if !v.VotedEarly {
			continue
		}
		t.EarlyVoters++
		switch v.PartyFinal {
		case classify.Republican:
			t.EarlyRep++
		case classify.Democrat:
			t.EarlyDem++
		}
	}

	out := make([]Turnout, 0, len(byDistrict))
	for _, t := range byDistrict {
		if t.Registered > 0 {
			t.TurnoutPct = 100 * float64(t.EarlyVoters) / float64(t.Registered)
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].District < out[j].District })
	return out
}
