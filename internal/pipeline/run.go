// Package pipeline orchestrates one end-to-end estimation run: voter file
// load, early-voting merge, primary classification, spatial assignment,
// preference imputation, and the per-district aggregations.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/LoneStarCivic/LSC-Backend/internal/classify"
	"github.com/LoneStarCivic/LSC-Backend/internal/config"
	"github.com/LoneStarCivic/LSC-Backend/internal/features"
	"github.com/LoneStarCivic/LSC-Backend/internal/model"
	"github.com/LoneStarCivic/LSC-Backend/internal/obs"
	"github.com/LoneStarCivic/LSC-Backend/internal/redistrict"
	"github.com/LoneStarCivic/LSC-Backend/internal/spatial"
	"github.com/LoneStarCivic/LSC-Backend/internal/voterfile"
)

// PlanResult holds every aggregate for one district type.
type PlanResult struct {
	Assign          spatial.AssignStats
	OldCompositions []*redistrict.Composition
	NewCompositions []*redistrict.Composition
	Deltas          []redistrict.Delta
	OldTurnout      []redistrict.Turnout
	NewTurnout      []redistrict.Turnout
}

// Result is everything one pipeline run produces, keyed for export and the
// database mirror.
type Result struct {
	RunID  uuid.UUID
	Voters []*voterfile.Voter

	Plans map[redistrict.DistrictType]*PlanResult

	Model         *model.Model
	UsedML        bool
	ImputedVoters int

	CompetitivenessThreshold float64
}

// Run executes the full pipeline.
func Run(cfg config.Config, logf obs.Logf) (*Result, error) {
	logf = obs.Or(logf)
	if err := cfg.ValidatePipeline(); err != nil {
		return nil, err
	}
	ref, err := cfg.ReferenceTime()
	if err != nil {
		return nil, err
	}

	voters, _, err := voterfile.Load(cfg.VoterFilePath, ref)
	if err != nil {
		return nil, fmt.Errorf("loading voter file: %w", err)
	}
	logf("[pipeline] loaded %d voters", len(voters))

	if cfg.EarlyVotingDir != "" {
		votes, err := voterfile.LoadEarlyVoting(cfg.EarlyVotingDir)
		if err != nil {
			return nil, fmt.Errorf("loading early voting: %w", err)
		}
		matched := voterfile.MergeEarlyVoting(voters, votes)
		logf("[pipeline] merged %d early votes (%d records)", matched, len(votes))
	}

	ClassifyPrimaries(voters, logf)

	res := &Result{
		RunID:                    uuid.New(),
		Voters:                   voters,
		Plans:                    map[redistrict.DistrictType]*PlanResult{},
		CompetitivenessThreshold: cfg.CompetitivenessThreshold,
	}

	if err := assignNewDistricts(cfg, voters, res, logf); err != nil {
		return nil, err
	}
	if err := ImputeParties(cfg, voters, res, logf); err != nil {
		return nil, err
	}
	Aggregate(voters, res)

	logf("[pipeline] run %s complete", res.RunID)
	return res, nil
}

// ClassifyPrimaries labels every voter from their primary ballot history.
func ClassifyPrimaries(voters []*voterfile.Voter, logf obs.Logf) {
	logf = obs.Or(logf)
	counts := map[classify.Party]int{}
	for _, v := range voters {
		c := classify.ClassifyPrimaryCodes(v.PrimaryCodes[:])
		v.PrimaryClassification = c.Party
		v.RepPrimaryVotes = c.RepVotes
		v.DemPrimaryVotes = c.DemVotes
		v.TotalPrimaryVotes = c.TotalVotes
		counts[c.Party]++
	}
	logf("[classify] %d Republican, %d Democrat, %d Swing, %d Unknown",
		counts[classify.Republican], counts[classify.Democrat],
		counts[classify.Swing], counts[classify.Unknown])
}

func setterFor(t redistrict.DistrictType) func(*voterfile.Voter, int) {
	switch t {
	case redistrict.Congressional:
		return func(v *voterfile.Voter, d int) { n := d; v.NewCD = &n }
	case redistrict.StateSenate:
		return func(v *voterfile.Voter, d int) { n := d; v.NewSD = &n }
	default:
		return func(v *voterfile.Voter, d int) { n := d; v.NewHD = &n }
	}
}

func lookupCachePath(dir string, t redistrict.DistrictType) string {
	return filepath.Join(dir, "lookup_"+string(t)+".csv")
}

// assignNewDistricts resolves a precinct-to-district lookup for every
// configured plan (from the cache when present, otherwise by spatial
// matching) and stamps the new assignments onto the voters.
func assignNewDistricts(cfg config.Config, voters []*voterfile.Voter, res *Result, logf obs.Logf) error {
	var precincts []spatial.PrecinctShape
	var precinctWKT string

	loadPrecincts := func() error {
		if precincts != nil {
			return nil
		}
		var err error
		precincts, err = spatial.LoadPrecincts(cfg.PrecinctShapes)
		if err != nil {
			return fmt.Errorf("loading precinct shapes: %w", err)
		}
		precinctWKT, err = spatial.ReadProjection(cfg.PrecinctShapes)
		if err != nil {
			return err
		}
		logf("[spatial] loaded %d precinct shapes", len(precincts))
		return nil
	}

	for _, t := range redistrict.DistrictTypes {
		plan, hasPlan := cfg.Plans[string(t)]

		var lookup spatial.Lookup
		cachePath := ""
		if cfg.LookupCachePath != "" {
			cachePath = lookupCachePath(cfg.LookupCachePath, t)
			if _, err := os.Stat(cachePath); err == nil {
				cached, err := spatial.LoadLookup(cachePath)
				if err != nil {
					return fmt.Errorf("loading cached lookup for %s: %w", t, err)
				}
				lookup = cached
				logf("[spatial] %s: loaded %d cached precinct assignments", t, len(lookup))
			}
		}
		if lookup == nil && !hasPlan {
			continue
		}

		if lookup == nil {
			if err := loadPrecincts(); err != nil {
				return err
			}
			districts, err := spatial.LoadDistricts(plan.Shapefile, plan.DistrictField)
			if err != nil {
				return fmt.Errorf("loading %s plan: %w", t, err)
			}
			districtWKT, err := spatial.ReadProjection(plan.Shapefile)
			if err != nil {
				return err
			}
			if err := spatial.AlignCRS(precincts, precinctWKT, districtWKT); err != nil {
				return fmt.Errorf("aligning %s plan: %w", t, err)
			}
			// AlignCRS projects the shared precinct slice in place, so the
			// working CRS must follow it or a later plan would re-project
			// already-projected coordinates.
			precinctWKT = districtWKT
			var stats spatial.MatchStats
			lookup, stats = spatial.Match(precincts, districts, logf)
			logf("[spatial] %s: matched %.1f%% of precincts", t, stats.Coverage())
			if cachePath != "" {
				if err := spatial.SaveLookup(cachePath, lookup); err != nil {
					return fmt.Errorf("caching lookup for %s: %w", t, err)
				}
			}
		}

		countyCodes := spatial.InferCountyCodes(voters, lookup)
		stats := spatial.AssignDistricts(voters, lookup, countyCodes, setterFor(t), logf)
		res.Plans[t] = &PlanResult{Assign: stats}
	}

	if len(res.Plans) == 0 {
		return fmt.Errorf("no district plans configured")
	}
	return nil
}

// ImputeParties fills predicted parties for imputation-eligible voters and
// finalizes the unified label for everyone. A configured model artifact is
// loaded instead of training; training failure degrades to
// geographic-average imputation rather than aborting the run.
func ImputeParties(cfg config.Config, voters []*voterfile.Voter, res *Result, logf obs.Logf) error {
	logf = obs.Or(logf)
	priors := features.BuildPriors(voters)

	var eligible []*voterfile.Voter
	for _, v := range voters {
		if v.ImputationEligible() {
			eligible = append(eligible, v)
		}
	}
	logf("[impute] %d voters eligible for imputation", len(eligible))

	threshold := cfg.ImputationProbabilityThreshold
	useGeographic := !cfg.UseMLImputation

	if cfg.UseMLImputation {
		var m *model.Model
		if cfg.ModelInPath != "" {
			loaded, err := model.Load(cfg.ModelInPath)
			if err != nil {
				return fmt.Errorf("loading model artifact: %w", err)
			}
			logf("[impute] loaded model artifact from %s", cfg.ModelInPath)
			m = loaded
		} else {
			tc := model.DefaultTrainingConfig()
			tc.SampleCap = cfg.TrainingSampleCap
			if cfg.TrainingTrees > 0 {
				tc.Trees = cfg.TrainingTrees
			}
			outcome := model.Train(voters, priors, tc, logf)
			if outcome.Failure != nil {
				logf("[impute] model training failed (%s), falling back to geographic averages", outcome.Failure.Reason)
				useGeographic = true
			} else {
				m = outcome.Model
			}
		}
		if m != nil {
			res.Model = m
			res.UsedML = true
			preds := m.Predict(eligible, priors, threshold, cfg.InferenceChunkSize, logf)
			model.Apply(eligible, preds)
			res.ImputedVoters = len(preds)
		}
	}

	if useGeographic {
		res.ImputedVoters = geographicImpute(eligible, priors, threshold)
		logf("[impute] geographic-average imputation labeled %d voters", res.ImputedVoters)
	}

	for _, v := range voters {
		v.FinalizeParty()
	}
	return nil
}

// geographicImpute assigns predicted parties from the precinct (or county)
// party shares, renormalized over the two parties and thresholded exactly
// like model probabilities. Voters with no usable prior stay Unknown.
func geographicImpute(eligible []*voterfile.Voter, priors *features.Priors, threshold float64) int {
	imputed := 0
	for _, v := range eligible {
		s, ok := priors.Precinct[features.PrecinctKey(v)]
		if !ok || s.Republicans+s.Democrats == 0 {
			s, ok = priors.County[v.CountyName]
			if !ok || s.Republicans+s.Democrats == 0 {
				continue
			}
		}
		rep := float64(s.Republicans) / float64(s.Republicans+s.Democrats)
		dem := 1 - rep
		v.PredictedRepProb = rep
		v.PredictedDemProb = dem
		v.PredictedParty = model.PartyFromProbs(rep, dem, threshold)
		imputed++
	}
	return imputed
}

// Aggregate computes compositions, deltas and turnout for every assigned
// plan.
func Aggregate(voters []*voterfile.Voter, res *Result) {
	for t, plan := range res.Plans {
		plan.OldCompositions = redistrict.Sorted(redistrict.Compositions(voters, t.Old))
		plan.NewCompositions = redistrict.Sorted(redistrict.Compositions(voters, t.New))
		plan.Deltas = redistrict.ComputeDeltas(voters, t)
		plan.OldTurnout = redistrict.EarlyTurnout(voters, t.Old)
		plan.NewTurnout = redistrict.EarlyTurnout(voters, t.New)
	}
}
