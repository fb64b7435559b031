package spatial

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Lookup tables are cached as CSV between runs: the spatial join over ~9k
// precincts is the slowest stage and its inputs (static shapefiles) never
// change within a cycle.

// SaveLookup writes a lookup table as CNTY,PREC,DISTRICT rows, sorted for
// stable diffs.
func SaveLookup(path string, lookup Lookup) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	keys := make([]Key, 0, len(lookup))
	for k := range lookup {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].County != keys[j].County {
			return keys[i].County < keys[j].County
		}
		return keys[i].Precinct < keys[j].Precinct
	})

	w := csv.NewWriter(f)
	if err := w.Write([]string{"CNTY", "PREC", "DISTRICT"}); err != nil {
		return err
	}
	for _, k := range keys {
		rec := []string{strconv.Itoa(k.County), k.Precinct, strconv.Itoa(lookup[k])}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// LoadLookup reads a cached lookup table written by SaveLookup.
func LoadLookup(path string) (Lookup, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("lookup file %s is empty", path)
	}

	lookup := Lookup{}
	for i, rec := range records[1:] {
		if len(rec) < 3 {
			return nil, fmt.Errorf("lookup row %d: want 3 columns, got %d", i+2, len(rec))
		}
		cnty, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("lookup row %d: bad county code %q", i+2, rec[0])
		}
		dist, err := strconv.Atoi(rec[2])
		if err != nil {
			return nil, fmt.Errorf("lookup row %d: bad district %q", i+2, rec[2])
		}
		lookup[Key{cnty, rec[1]}] = dist
	}
	return lookup, nil
}
