// Package redistrict aggregates the unified per-voter party labels into
// per-district compositions and estimates the partisan impact of new
// boundaries against a population-weighted expectation built from the old
// ones.
package redistrict

import (
	"sort"

	"github.com/LoneStarCivic/LSC-Backend/internal/classify"
	"github.com/LoneStarCivic/LSC-Backend/internal/voterfile"
)

// DistrictType selects one of the three legislative plans.
type DistrictType string

const (
	Congressional DistrictType = "cd"
	StateSenate   DistrictType = "sd"
	StateHouse    DistrictType = "hd"
)

// DistrictTypes lists every plan in reporting order.
var DistrictTypes = []DistrictType{Congressional, StateSenate, StateHouse}

// Old returns the voter's district under the prior boundaries for this plan,
// or nil when unassigned.
func (t DistrictType) Old(v *voterfile.Voter) *int {
	switch t {
	case Congressional:
		return v.OldCD
	case StateSenate:
		return v.OldSD
	default:
		return v.OldHD
	}
}

// New returns the voter's district under the 2026 boundaries, or nil.
func (t DistrictType) New(v *voterfile.Voter) *int {
	switch t {
	case Congressional:
		return v.NewCD
	case StateSenate:
		return v.NewSD
	default:
		return v.NewHD
	}
}

// Composition is one district's party makeup over its full voter
// population. Percentages are shares of Total, so Unknown voters dilute
// both parties.
type Composition struct {
	District    int
	Republicans int
	Democrats   int
	Swing       int
	Unknown     int
	Total       int
	RepPct      float64
	DemPct      float64
}

// Compositions aggregates voters by district, using the unified party label.
// Voters with no assignment for this getter are skipped.
func Compositions(voters []*voterfile.Voter, district func(*voterfile.Voter) *int) map[int]*Composition {
	byDistrict := map[int]*Composition{}
	for _, v := range voters {
		d := district(v)
		if d == nil {
			continue
		}
		c := byDistrict[*d]
		if c == nil {
			c = &Composition{District: *d}
			byDistrict[*d] = c
		}
		c.Total++
		switch v.PartyFinal {
		case classify.Republican:
			c.Republicans++
		case classify.Democrat:
			c.Democrats++
		case classify.Swing:
			c.Swing++
		default:
			c.Unknown++
		}
	}
	for _, c := range byDistrict {
		if c.Total > 0 {
			c.RepPct = float64(c.Republicans) / float64(c.Total)
			c.DemPct = float64(c.Democrats) / float64(c.Total)
		}
	}
	return byDistrict
}

// Sorted returns the compositions ordered by district number, for stable
// export.
func Sorted(byDistrict map[int]*Composition) []*Composition {
	out := make([]*Composition, 0, len(byDistrict))
	for _, c := range byDistrict {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].District < out[j].District })
	return out
}

// Rate applies the competitiveness classifier to one composition, over
// known-party voters only.
func (c *Composition) Rate(threshold float64) classify.Competitiveness {
	return classify.RateCompetitiveness(c.Republicans, c.Democrats, threshold)
}
