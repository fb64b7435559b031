package features

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/LoneStarCivic/LSC-Backend/internal/voterfile"
)

// Columns is the fixed feature order. Districts are deliberately not
// features: the model must generalize across boundary changes.
var Columns = []string{
	"age",
	"county_encoded",
	"city_encoded",
	"age_bracket_encoded",
	"precinct_rep_pct",
	"precinct_dem_pct",
	"county_rep_pct",
	"county_dem_pct",
	"zip_rep_pct",
	"zip_dem_pct",
	"age_bracket_rep_pct",
	"age_bracket_dem_pct",
}

// Vector builds one voter's raw feature vector. Missing values are NaN and
// are resolved later by Impute against training-set medians, so training and
// inference share one missing-value policy.
func Vector(v *voterfile.Voter, priors *Priors, enc Encoders) []float64 {
	x := make([]float64, len(Columns))

	if v.Age != nil {
		x[0] = float64(*v.Age)
	} else {
		x[0] = math.NaN()
	}
	x[1] = float64(enc.County.Transform(v.CountyName))
	x[2] = float64(enc.City.Transform(v.City))
	x[3] = float64(enc.AgeBracket.Transform(v.AgeBracket))

	x[4], x[5] = pcts(priors.Precinct, PrecinctKey(v))
	x[6], x[7] = pcts(priors.County, v.CountyName)
	x[8], x[9] = pcts(priors.ZIP, v.ZIP)
	x[10], x[11] = pcts(priors.AgeBracket, v.AgeBracket)

	return x
}

func pcts(m map[string]GroupStat, key string) (rep, dem float64) {
	if s, ok := m[key]; ok && s.TotalKnown > 0 {
		return s.RepPct, s.DemPct
	}
	return math.NaN(), math.NaN()
}

// Medians computes the per-column median over non-missing training values,
// for missing-value imputation. Columns with no observed values get 0.
func Medians(matrix [][]float64) []float64 {
	if len(matrix) == 0 {
		return make([]float64, len(Columns))
	}
	medians := make([]float64, len(matrix[0]))
	col := make([]float64, 0, len(matrix))
	for j := range medians {
		col = col[:0]
		for _, row := range matrix {
			if !math.IsNaN(row[j]) {
				col = append(col, row[j])
			}
		}
		if len(col) == 0 {
			medians[j] = 0
			continue
		}
		sort.Float64s(col)
		medians[j] = stat.Quantile(0.5, stat.Empirical, col, nil)
	}
	return medians
}

// Impute replaces NaNs in-place with the column median, then any still-NaN
// value (a column that had no training data at all) with 0.
func Impute(row []float64, medians []float64) {
	for j := range row {
		if math.IsNaN(row[j]) {
			if j < len(medians) && !math.IsNaN(medians[j]) {
				row[j] = medians[j]
			} else {
				row[j] = 0
			}
		}
	}
}
