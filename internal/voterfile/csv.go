package voterfile

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/LoneStarCivic/LSC-Backend/internal/classify"
)

// Schema records which optional voter-file columns were present in a load.
// Column presence is negotiated once here; downstream components consume the
// typed Voter and never re-check columns.
type Schema struct {
	HasZIP         bool
	HasCity        bool
	HasDOB         bool
	PrimaryColumns []string
	GenColumns     []string
	OldDistricts   map[string]bool // CD, SD, HD
}

// primaryColumns in most-recent-first order, matching Voter.PrimaryCodes.
var primaryColumns = []string{"PRI24", "PRI22", "PRI20", "PRI18"}

var oldDistrictColumns = map[string]string{
	"CD": "NEWCD", // source-file names: "NEW" refers to the prior redistricting cycle
	"SD": "NEWSD",
	"HD": "NEWHD",
}

// Load reads and normalizes a voter-file CSV. Required columns are VUID,
// COUNTY and PCT; everything else degrades per the schema. Rows with an
// unparseable VUID are skipped and counted.
func Load(path string, reference time.Time) ([]*Voter, Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Schema{}, err
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReaderSize(f, 1<<20))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, Schema{}, fmt.Errorf("read voterfile header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	col := map[string]int{}
	for i, h := range header {
		col[strings.ToUpper(strings.TrimSpace(h))] = i
	}

	for _, k := range []string{"VUID", "COUNTY", "PCT"} {
		if _, ok := col[k]; !ok {
			return nil, Schema{}, fmt.Errorf("voterfile missing required column: %s", k)
		}
	}

	schema := Schema{
		OldDistricts: map[string]bool{},
	}
	_, schema.HasZIP = col["RZIP"]
	_, schema.HasCity = col["RCITY"]
	_, schema.HasDOB = col["DOB"]
	for _, c := range primaryColumns {
		if _, ok := col[c]; ok {
			schema.PrimaryColumns = append(schema.PrimaryColumns, c)
		}
	}
	for name := range col {
		if strings.HasPrefix(name, "GEN") {
			schema.GenColumns = append(schema.GenColumns, name)
		}
	}
	for dt, c := range oldDistrictColumns {
		if _, ok := col[c]; ok {
			schema.OldDistricts[dt] = true
		}
	}

	var voters []*Voter
	skipped := 0

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, Schema{}, fmt.Errorf("read voterfile row: %w", err)
		}

		get := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		vuid, err := strconv.ParseInt(get("VUID"), 10, 64)
		if err != nil {
			skipped++
			continue
		}

		v := &Voter{
			VUID:         vuid,
			CountyName:   strings.ToUpper(get("COUNTY")),
			PrecinctCode: get("PCT"),
			City:         strings.ToUpper(get("RCITY")),
			ZIP:          get("RZIP"),
		}

		v.Age = AgeFromDOB(get("DOB"), reference)
		v.AgeBracket = AgeBracket(v.Age)

		v.OldCD = parseDistrict(get("NEWCD"))
		v.OldSD = parseDistrict(get("NEWSD"))
		v.OldHD = parseDistrict(get("NEWHD"))

		for i, c := range primaryColumns {
			v.PrimaryCodes[i] = get(c)
		}
		for _, c := range schema.GenColumns {
			if get(c) != "" {
				v.GenElections++
			}
		}

		cl := classify.ClassifyPrimaryCodes(v.PrimaryCodes[:])
		v.RepPrimaryVotes = cl.RepVotes
		v.DemPrimaryVotes = cl.DemVotes
		v.TotalPrimaryVotes = cl.TotalVotes
		v.PrimaryClassification = cl.Party

		voters = append(voters, v)
	}

	if skipped > 0 {
		log.Printf("[voterfile] skipped %d rows with unparseable VUID", skipped)
	}
	return voters, schema, nil
}

// parseDistrict parses a district number, treating blank and 0 as missing
// (the source file uses 0 for voters outside any district).
func parseDistrict(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n == 0 {
		return nil
	}
	return &n
}
