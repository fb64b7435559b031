package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/LoneStarCivic/LSC-Backend/internal/redistrict"
	"github.com/LoneStarCivic/LSC-Backend/internal/voterfile"
)

// Export writes every run artifact as CSV under outputDir.
func Export(res *Result, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	if err := exportVoters(res.Voters, filepath.Join(outputDir, "voters.csv")); err != nil {
		return err
	}
	for t, plan := range res.Plans {
		files := []struct {
			name  string
			write func(*csv.Writer) error
		}{
			{fmt.Sprintf("compositions_%s_old.csv", t), compositionWriter(plan.OldCompositions, res.CompetitivenessThreshold)},
			{fmt.Sprintf("compositions_%s_new.csv", t), compositionWriter(plan.NewCompositions, res.CompetitivenessThreshold)},
			{fmt.Sprintf("deltas_%s.csv", t), deltaWriter(plan.Deltas)},
			{fmt.Sprintf("turnout_%s_old.csv", t), turnoutWriter(plan.OldTurnout)},
			{fmt.Sprintf("turnout_%s_new.csv", t), turnoutWriter(plan.NewTurnout)},
		}
		for _, f := range files {
			if err := writeCSV(filepath.Join(outputDir, f.name), f.write); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeCSV(path string, write func(*csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := write(w); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return nil
}

func itoa(n int) string { return strconv.Itoa(n) }

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', 4, 64) }

func districtOrEmpty(d *int) string {
	if d == nil {
		return ""
	}
	return strconv.Itoa(*d)
}

func exportVoters(voters []*voterfile.Voter, path string) error {
	return writeCSV(path, func(w *csv.Writer) error {
		header := []string{
			"vuid", "county", "precinct",
			"old_cd", "old_sd", "old_hd", "new_cd", "new_sd", "new_hd",
			"primary_classification", "predicted_party",
			"predicted_rep_prob", "predicted_dem_prob", "party_final",
			"voted_early",
		}
		if err := w.Write(header); err != nil {
			return err
		}
		for _, v := range voters {
			row := []string{
				strconv.FormatInt(v.VUID, 10), v.CountyName, v.PrecinctCode,
				districtOrEmpty(v.OldCD), districtOrEmpty(v.OldSD), districtOrEmpty(v.OldHD),
				districtOrEmpty(v.NewCD), districtOrEmpty(v.NewSD), districtOrEmpty(v.NewHD),
				string(v.PrimaryClassification), string(v.PredictedParty),
				ftoa(v.PredictedRepProb), ftoa(v.PredictedDemProb), string(v.PartyFinal),
				strconv.FormatBool(v.VotedEarly),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func compositionWriter(comps []*redistrict.Composition, threshold float64) func(*csv.Writer) error {
	return func(w *csv.Writer) error {
		header := []string{
			"district", "republicans", "democrats", "swing", "unknown",
			"total", "rep_pct", "dem_pct", "rating",
		}
		if err := w.Write(header); err != nil {
			return err
		}
		for _, c := range comps {
			row := []string{
				itoa(c.District), itoa(c.Republicans), itoa(c.Democrats),
				itoa(c.Swing), itoa(c.Unknown), itoa(c.Total),
				ftoa(c.RepPct), ftoa(c.DemPct), string(c.Rate(threshold).Rating),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	}
}

func deltaWriter(deltas []redistrict.Delta) func(*csv.Writer) error {
	return func(w *csv.Writer) error {
		header := []string{
			"district", "actual_rep", "actual_dem",
			"expected_rep", "expected_dem", "net_rep_change", "net_dem_change",
		}
		if err := w.Write(header); err != nil {
			return err
		}
		for _, d := range deltas {
			row := []string{
				itoa(d.District), itoa(d.ActualRep), itoa(d.ActualDem),
				ftoa(d.ExpectedRep), ftoa(d.ExpectedDem),
				ftoa(d.NetRepChange), ftoa(d.NetDemChange),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	}
}

func turnoutWriter(rows []redistrict.Turnout) func(*csv.Writer) error {
	return func(w *csv.Writer) error {
		header := []string{
			"district", "registered", "early_voters", "early_rep", "early_dem", "turnout_pct",
		}
		if err := w.Write(header); err != nil {
			return err
		}
		for _, r := range rows {
			row := []string{
				itoa(r.District), itoa(r.Registered), itoa(r.EarlyVoters),
				itoa(r.EarlyRep), itoa(r.EarlyDem), ftoa(r.TurnoutPct),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	}
}
