package pipeline

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"

	"github.com/LoneStarCivic/LSC-Backend/internal/classify"
	"github.com/LoneStarCivic/LSC-Backend/internal/config"
	"github.com/LoneStarCivic/LSC-Backend/internal/features"
	"github.com/LoneStarCivic/LSC-Backend/internal/model"
	"github.com/LoneStarCivic/LSC-Backend/internal/obs"
	"github.com/LoneStarCivic/LSC-Backend/internal/redistrict"
	"github.com/LoneStarCivic/LSC-Backend/internal/spatial"
	"github.com/LoneStarCivic/LSC-Backend/internal/voterfile"
)

// writeScenario lays down a 4-voter voter file, a cached congressional
// lookup, and one early-voting file:
//
//	V1: two Republican primaries, stays in district 1
//	V2: one Republican and one Democrat primary, stays in district 1
//	V3: no primaries, general-election history, moves to district 2
//	V4: no history at all, moves to district 2
func writeScenario(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()

	voterCSV := "VUID,COUNTY,PCT,DOB,RZIP,RCITY,NEWCD,PRI24,PRI22,GEN24\n" +
		"1,Travis,100,19700101,78701,Austin,1,RE,RE,\n" +
		"2,Travis,100,19800101,78701,Austin,1,RE,DE,\n" +
		"3,Travis,200,19900101,78702,Austin,1,,,Y\n" +
		"4,Travis,200,19950101,78702,Austin,1,,,\n"
	voterPath := filepath.Join(dir, "voters.csv")
	if err := os.WriteFile(voterPath, []byte(voterCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	lookupDir := filepath.Join(dir, "lookups")
	lookup := spatial.Lookup{
		{County: 227, Precinct: "100"}: 1,
		{County: 227, Precinct: "200"}: 2,
	}
	if err := spatial.SaveLookup(filepath.Join(lookupDir, "lookup_cd.csv"), lookup); err != nil {
		t.Fatal(err)
	}

	evDir := filepath.Join(dir, "early_voting")
	if err := os.MkdirAll(evDir, 0o755); err != nil {
		t.Fatal(err)
	}
	evCSV := "id_voter,county,method\n1,Travis,IN PERSON\n"
	if err := os.WriteFile(filepath.Join(evDir, "early_voting_20241022.csv"), []byte(evCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	return config.Config{
		VoterFilePath:                  voterPath,
		EarlyVotingDir:                 evDir,
		LookupCachePath:                lookupDir,
		OutputDir:                      filepath.Join(dir, "output"),
		ReferenceDate:                  "2024-11-01",
		UseMLImputation:                false,
		ImputationProbabilityThreshold: 0.65,
		CompetitivenessThreshold:       57.0,
	}
}

func voterByVUID(voters []*voterfile.Voter, vuid int64) *voterfile.Voter {
	for _, v := range voters {
		if v.VUID == vuid {
			return v
		}
	}
	return nil
}

func TestRun_EndToEndScenario(t *testing.T) {
	cfg := writeScenario(t)

	res, err := Run(cfg, obs.Discard())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Voters) != 4 {
		t.Fatalf("loaded %d voters, want 4", len(res.Voters))
	}

	v1 := voterByVUID(res.Voters, 1)
	v2 := voterByVUID(res.Voters, 2)
	v3 := voterByVUID(res.Voters, 3)
	v4 := voterByVUID(res.Voters, 4)

	if v1.PrimaryClassification != classify.Republican {
		t.Errorf("V1 = %s, want Republican", v1.PrimaryClassification)
	}
	if v2.PrimaryClassification != classify.Swing {
		t.Errorf("V2 = %s, want Swing", v2.PrimaryClassification)
	}
	if v3.PrimaryClassification != classify.Unknown || !v3.ImputationEligible() {
		t.Errorf("V3 = %s eligible=%v, want Unknown and eligible", v3.PrimaryClassification, v3.ImputationEligible())
	}
	if v4.ImputationEligible() {
		t.Error("V4 has no general-election history and must not be eligible")
	}
	if v4.PartyFinal != classify.Unknown {
		t.Errorf("V4 final = %s, want Unknown", v4.PartyFinal)
	}

	// New assignments come from the cached lookup.
	if v1.NewCD == nil || *v1.NewCD != 1 {
		t.Errorf("V1 new CD = %v, want 1", v1.NewCD)
	}
	if v3.NewCD == nil || *v3.NewCD != 2 {
		t.Errorf("V3 new CD = %v, want 2", v3.NewCD)
	}

	// With ML disabled, V3 imputes from the county average: the only
	// known voters are 1 Republican and 1 Swing, so the two-party share
	// is all-Republican and clears the 0.65 threshold.
	if v3.PredictedParty != classify.Republican {
		t.Errorf("V3 predicted = %s (rep %.2f), want Republican", v3.PredictedParty, v3.PredictedRepProb)
	}
	if v3.PartyFinal != classify.Republican {
		t.Errorf("V3 final = %s, want Republican", v3.PartyFinal)
	}

	if v1.VotedEarly != true {
		t.Error("V1 early-voting record not merged")
	}

	plan := res.Plans[redistrict.Congressional]
	if plan == nil {
		t.Fatal("no congressional plan result")
	}
	if plan.Assign.Exact != 4 {
		t.Errorf("exact assignments = %d, want 4", plan.Assign.Exact)
	}

	// Everyone shares old district 1; after imputation it holds 2
	// Republicans, 1 Swing, 1 Unknown.
	if len(plan.OldCompositions) != 1 {
		t.Fatalf("old compositions = %d, want 1", len(plan.OldCompositions))
	}
	old := plan.OldCompositions[0]
	if old.District != 1 || old.Republicans != 2 || old.Swing != 1 || old.Unknown != 1 || old.Total != 4 {
		t.Errorf("old composition = %+v", old)
	}

	// New district 2 drew half of old district 1, so its expected
	// Republican count is half the old rep share times its 2 voters.
	var d2 *redistrict.Delta
	for i := range plan.Deltas {
		if plan.Deltas[i].District == 2 {
			d2 = &plan.Deltas[i]
		}
	}
	if d2 == nil {
		t.Fatal("no delta for new district 2")
	}
	if d2.ActualRep != 1 || d2.ActualDem != 0 {
		t.Errorf("district 2 actual = %d/%d", d2.ActualRep, d2.ActualDem)
	}
	if d2.ExpectedRep != 1 { // old rep_pct 0.5 × 2 voters
		t.Errorf("district 2 expected rep = %f, want 1", d2.ExpectedRep)
	}
}

const precinctGeoWKT = `GEOGCS["GCS_North_American_1983",DATUM["D_North_American_1983",SPHEROID["GRS_1980",6378137.0,298.257222101]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

const planLCCWKT = `PROJCS["NAD83_Texas_Centric_Mapping_System_Lambert",GEOGCS["GCS_North_American_1983",DATUM["D_North_American_1983",SPHEROID["GRS_1980",6378137.0,298.257222101]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],PROJECTION["Lambert_Conformal_Conic"],PARAMETER["False_Easting",1500000.0],PARAMETER["False_Northing",5000000.0],PARAMETER["Central_Meridian",-100.0],PARAMETER["Standard_Parallel_1",27.5],PARAMETER["Standard_Parallel_2",35.0],PARAMETER["Latitude_Of_Origin",18.0],UNIT["Meter",1.0]]`

type shapeRow struct {
	ring  []shp.Point
	attrs []interface{}
}

// rect is a closed clockwise rectangle ring, the shapefile outer-ring
// winding.
func rect(x0, y0, x1, y1 float64) []shp.Point {
	return []shp.Point{{X: x0, Y: y0}, {X: x0, Y: y1}, {X: x1, Y: y1}, {X: x1, Y: y0}, {X: x0, Y: y0}}
}

func writePolygonShapefile(t *testing.T, path, prjWKT string, fields []shp.Field, rows []shapeRow) {
	t.Helper()
	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.SetFields(fields); err != nil {
		t.Fatal(err)
	}
	for i, row := range rows {
		poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{row.ring}))
		w.Write(&poly)
		for j, attr := range row.attrs {
			// go-shp's writer zero-fills DBF records, so short values
			// read back NUL-padded; pad to the field width with the
			// spaces the DBF spec calls for.
			padded := fmt.Sprintf("%-*v", int(fields[j].Size), attr)
			if err := w.WriteAttribute(i, j, padded); err != nil {
				t.Fatal(err)
			}
		}
	}
	w.Close()

	base := strings.TrimSuffix(path, ".shp")
	// go-shp's writer names the attribute sidecar without the extension
	// dot; its reader wants <base>.dbf.
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(base+".prj", []byte(prjWKT), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Two plans share one geographic precinct shapefile while both plan files
// carry projected coordinates. The precinct geometry is projected in place
// for the first plan, so every later plan must match against the projected
// coordinates rather than re-projecting them.
func TestAssignNewDistricts_MultiplePlansOneProjection(t *testing.T) {
	dir := t.TempDir()

	precincts := filepath.Join(dir, "precincts.shp")
	writePolygonShapefile(t, precincts, precinctGeoWKT,
		[]shp.Field{shp.NumberField("CNTY", 10), shp.StringField("PREC", 10)},
		[]shapeRow{
			{ring: rect(-97.80, 30.20, -97.70, 30.30), attrs: []interface{}{227, "100"}},
			{ring: rect(-97.70, 30.20, -97.60, 30.30), attrs: []interface{}{227, "200"}},
		})

	lcc, err := spatial.ParseLambertConformalConic(planLCCWKT)
	if err != nil {
		t.Fatal(err)
	}
	// District rectangles are padded projected bounding boxes of the
	// precinct squares, so each district dominates its own precinct.
	project := func(x0, y0, x1, y1 float64) []shp.Point {
		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		for _, c := range []orb.Point{{x0, y0}, {x0, y1}, {x1, y1}, {x1, y0}} {
			p := lcc.Forward(c)
			minX, maxX = math.Min(minX, p[0]), math.Max(maxX, p[0])
			minY, maxY = math.Min(minY, p[1]), math.Max(maxY, p[1])
		}
		const pad = 2000 // meters
		return rect(minX-pad, minY-pad, maxX+pad, maxY+pad)
	}

	cdPath := filepath.Join(dir, "cd.shp")
	writePolygonShapefile(t, cdPath, planLCCWKT,
		[]shp.Field{shp.NumberField("District", 10)},
		[]shapeRow{
			{ring: project(-97.80, 30.20, -97.70, 30.30), attrs: []interface{}{1}},
			{ring: project(-97.70, 30.20, -97.60, 30.30), attrs: []interface{}{2}},
		})
	sdPath := filepath.Join(dir, "sd.shp")
	writePolygonShapefile(t, sdPath, planLCCWKT,
		[]shp.Field{shp.NumberField("District", 10)},
		[]shapeRow{
			{ring: project(-97.80, 30.20, -97.70, 30.30), attrs: []interface{}{31}},
			{ring: project(-97.70, 30.20, -97.60, 30.30), attrs: []interface{}{32}},
		})

	cfg := config.Config{
		PrecinctShapes: precincts,
		Plans: map[string]config.Plan{
			"cd": {Shapefile: cdPath, DistrictField: "District"},
			"sd": {Shapefile: sdPath, DistrictField: "District"},
		},
	}
	voters := []*voterfile.Voter{
		{VUID: 1, CountyName: "Travis", PrecinctCode: "100"},
		{VUID: 2, CountyName: "Travis", PrecinctCode: "200"},
	}
	res := &Result{Plans: map[redistrict.DistrictType]*PlanResult{}}

	if err := assignNewDistricts(cfg, voters, res, obs.Discard()); err != nil {
		t.Fatalf("assignNewDistricts: %v", err)
	}

	if voters[0].NewCD == nil || *voters[0].NewCD != 1 {
		t.Errorf("V1 new CD = %v, want 1", voters[0].NewCD)
	}
	if voters[1].NewCD == nil || *voters[1].NewCD != 2 {
		t.Errorf("V2 new CD = %v, want 2", voters[1].NewCD)
	}
	if voters[0].NewSD == nil || *voters[0].NewSD != 31 {
		t.Errorf("V1 new SD = %v, want 31", voters[0].NewSD)
	}
	if voters[1].NewSD == nil || *voters[1].NewSD != 32 {
		t.Errorf("V2 new SD = %v, want 32", voters[1].NewSD)
	}
	for _, plan := range []redistrict.DistrictType{redistrict.Congressional, redistrict.StateSenate} {
		pr := res.Plans[plan]
		if pr == nil {
			t.Fatalf("no %s plan result", plan)
		}
		if pr.Assign.Exact != 2 {
			t.Errorf("%s exact assignments = %d, want 2", plan, pr.Assign.Exact)
		}
	}
}

func TestRun_Export(t *testing.T) {
	cfg := writeScenario(t)
	res, err := Run(cfg, obs.Discard())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := Export(res, cfg.OutputDir); err != nil {
		t.Fatalf("Export: %v", err)
	}

	for _, name := range []string{
		"voters.csv",
		"compositions_cd_old.csv",
		"compositions_cd_new.csv",
		"deltas_cd.csv",
		"turnout_cd_new.csv",
	} {
		if _, err := os.Stat(filepath.Join(cfg.OutputDir, name)); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
	}

	f, err := os.Open(filepath.Join(cfg.OutputDir, "deltas_cd.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	// Header plus one row per new district.
	if len(rows) != 3 {
		t.Fatalf("deltas_cd.csv has %d rows, want 3", len(rows))
	}
	if rows[0][0] != "district" || rows[0][5] != "net_rep_change" {
		t.Errorf("header = %v", rows[0])
	}
}

// A configured model artifact skips training entirely: the loaded forest
// scores eligible voters directly.
func TestImputeParties_LoadsModelArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "party_model.json")
	m := &model.Model{
		Forest: &model.Forest{
			// A single always-Republican leaf (3R/1D).
			Trees:       []*model.TreeNode{{Leaf: true, Counts: [2]int{1, 3}}},
			NumFeatures: len(features.Columns),
		},
		Columns: append([]string(nil), features.Columns...),
		Medians: make([]float64, len(features.Columns)),
	}
	if err := m.Save(path); err != nil {
		t.Fatal(err)
	}

	voters := []*voterfile.Voter{
		{VUID: 1, CountyName: "TRAVIS", PrecinctCode: "100", GenElections: 1, PrimaryClassification: classify.Unknown},
	}
	cfg := config.Config{
		UseMLImputation:                true,
		ModelInPath:                    path,
		ImputationProbabilityThreshold: 0.65,
	}
	res := &Result{Plans: map[redistrict.DistrictType]*PlanResult{}}
	if err := ImputeParties(cfg, voters, res, obs.Discard()); err != nil {
		t.Fatalf("ImputeParties: %v", err)
	}

	if !res.UsedML || res.ImputedVoters != 1 {
		t.Errorf("UsedML=%v imputed=%d, want true and 1", res.UsedML, res.ImputedVoters)
	}
	if voters[0].PredictedParty != classify.Republican || voters[0].PartyFinal != classify.Republican {
		t.Errorf("voter = %q final %q, want Republican", voters[0].PredictedParty, voters[0].PartyFinal)
	}
}

func TestImputeParties_MissingModelArtifact(t *testing.T) {
	cfg := config.Config{
		UseMLImputation: true,
		ModelInPath:     filepath.Join(t.TempDir(), "absent.json"),
	}
	res := &Result{Plans: map[redistrict.DistrictType]*PlanResult{}}
	if err := ImputeParties(cfg, nil, res, obs.Discard()); err == nil {
		t.Fatal("want error for an unreadable model artifact")
	}
}

func TestGeographicImpute_NoUsablePrior(t *testing.T) {
	voters := []*voterfile.Voter{
		{VUID: 1, CountyName: "LONELY", PrecinctCode: "1", GenElections: 1, PrimaryClassification: classify.Unknown},
	}
	res := &Result{Plans: map[redistrict.DistrictType]*PlanResult{}}
	if err := ImputeParties(config.Config{ImputationProbabilityThreshold: 0.65}, voters, res, obs.Discard()); err != nil {
		t.Fatalf("ImputeParties: %v", err)
	}

	if voters[0].PredictedParty != "" {
		t.Errorf("predicted = %q, want empty", voters[0].PredictedParty)
	}
	if voters[0].PartyFinal != classify.Unknown {
		t.Errorf("final = %s, want Unknown", voters[0].PartyFinal)
	}
}
