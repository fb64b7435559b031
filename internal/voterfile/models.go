package voterfile

import "github.com/LoneStarCivic/LSC-Backend/internal/classify"

// Voter is one normalized voter-file row. District numbers are pointers so a
// missing assignment is distinguishable from district 0. Old* districts come
// from the source file; New* districts are filled in by the spatial matcher.
type Voter struct {
	VUID         int64
	CountyName   string
	CountyCode   *int
	PrecinctCode string
	City         string
	ZIP          string

	Age        *int
	AgeBracket string

	OldCD *int
	OldSD *int
	OldHD *int
	NewCD *int
	NewSD *int
	NewHD *int

	// PrimaryCodes holds raw ballot codes for up to 4 past primaries,
	// most recent first (2024, 2022, 2020, 2018).
	PrimaryCodes [4]string

	// GenElections counts non-empty general-election history columns.
	GenElections int
	VotedEarly   bool

	RepPrimaryVotes   int
	DemPrimaryVotes   int
	TotalPrimaryVotes int

	PrimaryClassification classify.Party

	// PredictedParty is set only for imputation-eligible voters
	// (general-election history, zero primary votes).
	PredictedParty   classify.Party
	PredictedRepProb float64
	PredictedDemProb float64

	PartyFinal classify.Party
}

// HasGenHistory reports whether the voter has any general-election turnout
// record.
func (v *Voter) HasGenHistory() bool { return v.GenElections > 0 }

// ImputationEligible reports whether the voter qualifies for party-preference
// imputation: general-election history and no primary signal at all.
func (v *Voter) ImputationEligible() bool {
	return v.TotalPrimaryVotes == 0 &&
		v.HasGenHistory() &&
		v.PrimaryClassification == classify.Unknown
}

// FinalizeParty computes the unified party label: primary classification when
// the voter has one, otherwise the model's prediction, otherwise Unknown.
func (v *Voter) FinalizeParty() {
	switch v.PrimaryClassification {
	case classify.Republican, classify.Democrat, classify.Swing:
		v.PartyFinal = v.PrimaryClassification
		return
	}
	switch v.PredictedParty {
	case classify.Republican, classify.Democrat, classify.Swing:
		v.PartyFinal = v.PredictedParty
		return
	}
	v.PartyFinal = classify.Unknown
}
