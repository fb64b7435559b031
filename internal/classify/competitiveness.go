package classify

// Rating classifies a district's competitiveness from its known-party split.
type Rating string

const (
	SolidlyRepublican Rating = "Solidly Republican"
	SolidlyDemocrat   Rating = "Solidly Democrat"
	Competitive       Rating = "Competitive"
)

// DefaultCompetitivenessThreshold is the known-party percentage at or above
// which a district is considered solid for one party.
const DefaultCompetitivenessThreshold = 57.0

// Competitiveness is a rated district with its known-party percentages.
// Percentages are over known-party (Republican + Democrat) voters only;
// Swing and Unknown voters are excluded from the denominator.
type Competitiveness struct {
	Rating Rating
	RepPct float64
	DemPct float64
}

// RateCompetitiveness rates a district from its Republican and Democrat
// voter counts. A district with no known-party voters rates Competitive
// with zero percentages rather than dividing by zero.
func RateCompetitiveness(repCount, demCount int, threshold float64) Competitiveness {
	known := repCount + demCount
	if known == 0 {
		return Competitiveness{Rating: Competitive}
	}

	// Multiply before dividing: 57/100 must land exactly on 57.0 so the
	// >= threshold comparison holds at the boundary.
	c := Competitiveness{
		RepPct: 100 * float64(repCount) / float64(known),
		DemPct: 100 * float64(demCount) / float64(known),
	}
	switch {
	case c.RepPct >= threshold:
		c.Rating = SolidlyRepublican
	case c.DemPct >= threshold:
		c.Rating = SolidlyDemocrat
	default:
		c.Rating = Competitive
	}
	return c
}
