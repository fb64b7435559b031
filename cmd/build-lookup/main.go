package main

import (
	"flag"
	"log"
	"os"

	"github.com/LoneStarCivic/LSC-Backend/internal/spatial"
)

// Builds and caches one precinct-to-district lookup from shapefiles, so
// full pipeline runs can skip the spatial join.
func main() {
	var (
		precinctPath  = flag.String("precincts", "", "path to precinct shapefile (.shp)")
		districtPath  = flag.String("districts", "", "path to district plan shapefile (.shp)")
		districtField = flag.String("field", "DISTRICT", "DBF attribute holding the district number")
		out           = flag.String("out", "", "output CSV path")
	)
	flag.Parse()

	if *precinctPath == "" || *districtPath == "" || *out == "" {
		flag.Usage()
		os.Exit(2)
	}

	precincts, err := spatial.LoadPrecincts(*precinctPath)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("loaded %d precinct shapes", len(precincts))

	districts, err := spatial.LoadDistricts(*districtPath, *districtField)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("loaded %d district shapes", len(districts))

	precinctWKT, err := spatial.ReadProjection(*precinctPath)
	if err != nil {
		log.Fatal(err)
	}
	districtWKT, err := spatial.ReadProjection(*districtPath)
	if err != nil {
		log.Fatal(err)
	}
	if err := spatial.AlignCRS(precincts, precinctWKT, districtWKT); err != nil {
		log.Fatal(err)
	}

	lookup, stats := spatial.Match(precincts, districts, log.Printf)
	log.Printf("matched %d/%d precincts (%.1f%%), %d split",
		stats.Matched, stats.Precincts, stats.Coverage(), stats.Split)

	if err := spatial.SaveLookup(*out, lookup); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s", *out)
}
