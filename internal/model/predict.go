package model

import (
	"github.com/LoneStarCivic/LSC-Backend/internal/classify"
	"github.com/LoneStarCivic/LSC-Backend/internal/features"
	"github.com/LoneStarCivic/LSC-Backend/internal/obs"
	"github.com/LoneStarCivic/LSC-Backend/internal/voterfile"
)

// DefaultProbabilityThreshold is the confidence a probability must reach
// before a voter is assigned a firm predicted party. Below it on both sides
// the prediction is Swing.
const DefaultProbabilityThreshold = 0.65

// DefaultChunkSize bounds how many feature vectors inference materializes
// at once.
const DefaultChunkSize = 200000

// Prediction is one voter's imputed party preference.
type Prediction struct {
	VUID    int64
	RepProb float64
	DemProb float64
	Party   classify.Party
}

// PartyFromProbs applies the confidence threshold to a probability pair.
func PartyFromProbs(repProb, demProb, threshold float64) classify.Party {
	switch {
	case repProb >= threshold:
		return classify.Republican
	case demProb >= threshold:
		return classify.Democrat
	default:
		return classify.Swing
	}
}

// LeanLabel is a five-way reporting label over the Republican probability.
// It never feeds back into classification; the firm threshold above is the
// only labeling path.
func LeanLabel(repProb float64) string {
	switch {
	case repProb >= 0.65:
		return "Likely Republican"
	case repProb >= 0.55:
		return "Lean Republican"
	case repProb > 0.45:
		return "Toss-up"
	case repProb > 0.35:
		return "Lean Democrat"
	default:
		return "Likely Democrat"
	}
}

// Predict runs inference for the given voters in chunks, so statewide runs
// never hold every feature vector in memory at once.
func (m *Model) Predict(voters []*voterfile.Voter, priors *features.Priors, threshold float64, chunkSize int, logf obs.Logf) []Prediction {
	logf = obs.Or(logf)
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	out := make([]Prediction, 0, len(voters))
	for start := 0; start < len(voters); start += chunkSize {
		end := start + chunkSize
		if end > len(voters) {
			end = len(voters)
		}
		for _, v := range voters[start:end] {
			row := features.Vector(v, priors, m.Encoders)
			features.Impute(row, m.Medians)
			p := m.Forest.Prob(row)
			out = append(out, Prediction{
				VUID:    v.VUID,
				RepProb: p[ClassRepublican],
				DemProb: p[ClassDemocrat],
				Party:   PartyFromProbs(p[ClassRepublican], p[ClassDemocrat], threshold),
			})
		}
		if len(voters) > chunkSize {
			logf("[model] predicted %d/%d voters", end, len(voters))
		}
	}
	return out
}

// Apply writes predictions back onto the matching voters.
func Apply(voters []*voterfile.Voter, predictions []Prediction) {
	byVUID := make(map[int64]*voterfile.Voter, len(voters))
	for _, v := range voters {
		byVUID[v.VUID] = v
	}
	for _, p := range predictions {
		v, ok := byVUID[p.VUID]
		if !ok {
			continue
		}
		v.PredictedParty = p.Party
		v.PredictedRepProb = p.RepProb
		v.PredictedDemProb = p.DemProb
	}
}
