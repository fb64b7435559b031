package spatial

import (
	"sort"

	"github.com/LoneStarCivic/LSC-Backend/internal/obs"
	"github.com/LoneStarCivic/LSC-Backend/internal/voterfile"
)

// The voter file identifies counties by NAME while precinct shapefiles use
// numeric county CODES. There is no authoritative crosswalk in either
// dataset, so the code for each name is inferred by majority vote: every
// (county name, precinct code) pair from the voter file is matched against
// lookup keys on precinct code alone, and whichever county code co-occurs
// most often wins the name. Ties go to the lowest code for determinism.

// InferCountyCodes builds the county name → county code mapping.
func InferCountyCodes(voters []*voterfile.Voter, lookup Lookup) map[string]int {
	// Distinct (name, precinct) pairs from the voter file.
	voterPairs := map[string]map[string]bool{}
	for _, v := range voters {
		if v.CountyName == "" || v.PrecinctCode == "" {
			continue
		}
		if voterPairs[v.CountyName] == nil {
			voterPairs[v.CountyName] = map[string]bool{}
		}
		voterPairs[v.CountyName][v.PrecinctCode] = true
	}

	// County codes per precinct code from the lookup.
	codesByPrecinct := map[string][]int{}
	for k := range lookup {
		codesByPrecinct[k.Precinct] = append(codesByPrecinct[k.Precinct], k.County)
	}

	mapping := make(map[string]int, len(voterPairs))
	for name, precincts := range voterPairs {
		votes := map[int]int{}
		for pct := range precincts {
			for _, code := range codesByPrecinct[pct] {
				votes[code]++
			}
		}
		best, bestVotes := 0, 0
		for code, n := range votes {
			if n > bestVotes || (n == bestVotes && bestVotes > 0 && code < best) {
				best, bestVotes = code, n
			}
		}
		if bestVotes > 0 {
			mapping[name] = best
		}
	}
	return mapping
}

// CollapseByPrecinct reduces a lookup to precinct code → most common
// district across all counties. This powers the lossy fallback for voters
// whose county-qualified join fails; precinct codes repeat across counties,
// so collisions resolve to the majority district (ties to lowest district).
func CollapseByPrecinct(lookup Lookup) map[string]int {
	counts := map[string]map[int]int{}
	for k, d := range lookup {
		if counts[k.Precinct] == nil {
			counts[k.Precinct] = map[int]int{}
		}
		counts[k.Precinct][d]++
	}

	out := make(map[string]int, len(counts))
	for pct, byDistrict := range counts {
		districts := make([]int, 0, len(byDistrict))
		for d := range byDistrict {
			districts = append(districts, d)
		}
		sort.Ints(districts)
		best, bestN := 0, 0
		for _, d := range districts {
			if byDistrict[d] > bestN {
				best, bestN = d, byDistrict[d]
			}
		}
		out[pct] = best
	}
	return out
}

// AssignStats count how each voter's new district was resolved.
type AssignStats struct {
	Exact     int
	Fallback  int
	Unmatched int
}

// AssignDistricts fills one new-district field on every voter: exact
// (county code, precinct code) join first, then the precinct-code-only
// fallback, else left unassigned. Returns the resolution counters, which
// callers log and persist as observability metrics, especially the fallback
// rate: fallback matches are best-effort, with precinct-code collisions
// resolving to the majority district.
func AssignDistricts(
	voters []*voterfile.Voter,
	lookup Lookup,
	countyCodes map[string]int,
	set func(v *voterfile.Voter, district int),
	logf obs.Logf,
) AssignStats {
	logf = obs.Or(logf)
	fallback := CollapseByPrecinct(lookup)

	var stats AssignStats
	for _, v := range voters {
		if v.PrecinctCode == "" {
			stats.Unmatched++
			continue
		}
		if code, ok := countyCodes[v.CountyName]; ok {
			c := code
			v.CountyCode = &c
			if d, ok := lookup[Key{code, v.PrecinctCode}]; ok {
				set(v, d)
				stats.Exact++
				continue
			}
		}
		if d, ok := fallback[v.PrecinctCode]; ok {
			set(v, d)
			stats.Fallback++
			continue
		}
		stats.Unmatched++
	}

	total := len(voters)
	logf("[spatial] assigned %d voters exactly, %d by precinct-code fallback, %d unmatched (of %d)",
		stats.Exact, stats.Fallback, stats.Unmatched, total)
	return stats
}
