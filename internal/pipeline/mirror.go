package pipeline

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/LoneStarCivic/LSC-Backend/internal/api"
	"github.com/LoneStarCivic/LSC-Backend/internal/redistrict"
	"github.com/LoneStarCivic/LSC-Backend/internal/voterfile"
)

const mirrorBatchSize = 5000

// Mirror writes the run's aggregates (and the compact per-voter assignment
// table) to the relational mirror the read API serves from.
func Mirror(res *Result, gdb *gorm.DB) error {
	matchedPct := voterAssignmentRate(res)
	run := api.Run{
		ID:            res.RunID,
		CreatedAt:     time.Now().UTC(),
		VoterCount:    len(res.Voters),
		MatchedPct:    matchedPct,
		UsedML:        res.UsedML,
		ImputedVoters: res.ImputedVoters,
	}
	if res.Model != nil {
		run.ModelAccuracy = res.Model.Metrics.TestAccuracy
	}

	return gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return fmt.Errorf("inserting run: %w", err)
		}

		for t, plan := range res.Plans {
			comps := mirrorCompositions(res, t, "old", plan.OldCompositions)
			comps = append(comps, mirrorCompositions(res, t, "new", plan.NewCompositions)...)
			if err := tx.CreateInBatches(comps, mirrorBatchSize).Error; err != nil {
				return fmt.Errorf("inserting %s compositions: %w", t, err)
			}

			deltas := make([]api.RedistrictingDelta, 0, len(plan.Deltas))
			for _, d := range plan.Deltas {
				deltas = append(deltas, api.RedistrictingDelta{
					RunID:        res.RunID,
					DistrictType: string(t),
					District:     d.District,
					ActualRep:    d.ActualRep,
					ActualDem:    d.ActualDem,
					ExpectedRep:  d.ExpectedRep,
					ExpectedDem:  d.ExpectedDem,
					NetRepChange: d.NetRepChange,
					NetDemChange: d.NetDemChange,
				})
			}
			if err := tx.CreateInBatches(deltas, mirrorBatchSize).Error; err != nil {
				return fmt.Errorf("inserting %s deltas: %w", t, err)
			}

			turnout := mirrorTurnout(res, t, "old", plan.OldTurnout)
			turnout = append(turnout, mirrorTurnout(res, t, "new", plan.NewTurnout)...)
			if err := tx.CreateInBatches(turnout, mirrorBatchSize).Error; err != nil {
				return fmt.Errorf("inserting %s turnout: %w", t, err)
			}
		}

		assignments := make([]api.VoterAssignment, 0, mirrorBatchSize)
		for _, v := range res.Voters {
			assignments = append(assignments, voterAssignment(res, v))
		}
		if err := tx.CreateInBatches(assignments, mirrorBatchSize).Error; err != nil {
			return fmt.Errorf("inserting voter assignments: %w", err)
		}
		return nil
	})
}

func mirrorCompositions(res *Result, t redistrict.DistrictType, boundary string, comps []*redistrict.Composition) []api.DistrictComposition {
	out := make([]api.DistrictComposition, 0, len(comps))
	for _, c := range comps {
		out = append(out, api.DistrictComposition{
			RunID:        res.RunID,
			DistrictType: string(t),
			Boundary:     boundary,
			District:     c.District,
			Republicans:  c.Republicans,
			Democrats:    c.Democrats,
			Swing:        c.Swing,
			Unknown:      c.Unknown,
			Total:        c.Total,
			RepPct:       c.RepPct,
			DemPct:       c.DemPct,
			Rating:       string(c.Rate(res.CompetitivenessThreshold).Rating),
		})
	}
	return out
}

func mirrorTurnout(res *Result, t redistrict.DistrictType, boundary string, rows []redistrict.Turnout) []api.DistrictTurnout {
	out := make([]api.DistrictTurnout, 0, len(rows))
	for _, r := range rows {
		out = append(out, api.DistrictTurnout{
			RunID:        res.RunID,
			DistrictType: string(t),
			Boundary:     boundary,
			District:     r.District,
			Registered:   r.Registered,
			EarlyVoters:  r.EarlyVoters,
			EarlyRep:     r.EarlyRep,
			EarlyDem:     r.EarlyDem,
			TurnoutPct:   r.TurnoutPct,
		})
	}
	return out
}

func voterAssignment(res *Result, v *voterfile.Voter) api.VoterAssignment {
	return api.VoterAssignment{
		VUID:         v.VUID,
		RunID:        res.RunID,
		CountyName:   v.CountyName,
		PrecinctCode: v.PrecinctCode,
		OldCD:        v.OldCD,
		OldSD:        v.OldSD,
		OldHD:        v.OldHD,
		NewCD:        v.NewCD,
		NewSD:        v.NewSD,
		NewHD:        v.NewHD,
		PartyFinal:   string(v.PartyFinal),
	}
}

// voterAssignmentRate averages the exact+fallback assignment rate across
// the configured plans.
func voterAssignmentRate(res *Result) float64 {
	if len(res.Plans) == 0 || len(res.Voters) == 0 {
		return 0
	}
	total := 0.0
	for _, plan := range res.Plans {
		assigned := plan.Assign.Exact + plan.Assign.Fallback
		total += 100 * float64(assigned) / float64(len(res.Voters))
	}
	return total / float64(len(res.Plans))
}
