package spatial

import (
	"math"
	"sort"

	"github.com/engelsjk/polygol"
	"github.com/paulmach/orb"

	"github.com/LoneStarCivic/LSC-Backend/internal/obs"
)

// Key identifies a precinct across datasets: county code + precinct code.
type Key struct {
	County   int
	Precinct string
}

// Lookup maps each matched precinct to exactly one district number.
type Lookup map[Key]int

// MatchStats are the observability counters of a matcher run. Coverage is
// reported, not enforced: precincts can legitimately sit outside every
// district polygon.
type MatchStats struct {
	Precincts int
	Matched   int
	Unmatched int
	Split     int // matched via max-overlap resolution
}

// Coverage is the matched percentage of all precincts.
func (s MatchStats) Coverage() float64 {
	if s.Precincts == 0 {
		return 0
	}
	return float64(s.Matched) / float64(s.Precincts) * 100
}

// Match assigns every precinct that intersects at least one district to the
// district with the largest overlap area. Single-district precincts assign
// directly; split precincts resolve by maximum intersection area with ties
// going to the lowest district number, so reruns are deterministic.
// Precincts intersecting nothing are left out of the lookup and counted.
func Match(precincts []PrecinctShape, districts []DistrictShape, logf obs.Logf) (Lookup, MatchStats) {
	logf = obs.Or(logf)

	// Bounding boxes prefilter the pairwise pass; district counts are small
	// (tens to low hundreds), so a box check per pair is cheap.
	type candidate struct {
		district DistrictShape
		bound    orb.Bound
	}
	cands := make([]candidate, len(districts))
	for i, d := range districts {
		cands[i] = candidate{district: d, bound: d.Geom.Bound()}
	}
	sort.Slice(cands, func(i, j int) bool {
		return cands[i].district.Number < cands[j].district.Number
	})

	lookup := Lookup{}
	stats := MatchStats{Precincts: len(precincts)}

	for _, p := range precincts {
		pb := p.Geom.Bound()

		best := -1
		bestArea := 0.0
		hits := 0
		for _, c := range cands {
			if !pb.Intersects(c.bound) {
				continue
			}
			area := overlapArea(p.Geom, c.district.Geom)
			if area <= 0 {
				continue
			}
			hits++
			// Strict > keeps the first (lowest-numbered) district on ties.
			if area > bestArea {
				bestArea = area
				best = c.district.Number
			}
		}

		switch {
		case hits == 0:
			stats.Unmatched++
		case hits == 1:
			stats.Matched++
			lookup[Key{p.CountyCode, p.PrecinctCode}] = best
		default:
			stats.Matched++
			stats.Split++
			lookup[Key{p.CountyCode, p.PrecinctCode}] = best
		}
	}

	logf("[spatial] matched %d of %d precincts (%.2f%%), %d split, %d unmatched",
		stats.Matched, stats.Precincts, stats.Coverage(), stats.Split, stats.Unmatched)
	return lookup, stats
}

// overlapArea is the intersection area of two multipolygons, 0 when they are
// disjoint or only touch.
func overlapArea(a, b orb.MultiPolygon) float64 {
	inter, err := polygol.Intersection(toGeom(a), toGeom(b))
	if err != nil {
		// Degenerate geometry; treat as no overlap rather than failing the
		// whole run over one precinct.
		return 0
	}
	return geomArea(inter)
}

func toGeom(mp orb.MultiPolygon) [][][][]float64 {
	g := make([][][][]float64, len(mp))
	for i, poly := range mp {
		g[i] = make([][][]float64, len(poly))
		for j, ring := range poly {
			g[i][j] = make([][]float64, len(ring))
			for k, pt := range ring {
				g[i][j][k] = []float64{pt[0], pt[1]}
			}
		}
	}
	return g
}

// geomArea sums ring areas with holes subtracted, independent of winding.
func geomArea(g [][][][]float64) float64 {
	var total float64
	for _, poly := range g {
		for j, ring := range poly {
			var sum float64
			for i := 0; i+1 < len(ring); i++ {
				sum += ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
			}
			area := math.Abs(sum / 2)
			if j == 0 {
				total += area
			} else {
				total -= area
			}
		}
	}
	return total
}
