package spatial

import (
	"fmt"
	"strconv"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
)

// PrecinctShape is one precinct polygon keyed by county code + precinct code.
type PrecinctShape struct {
	CountyCode   int
	PrecinctCode string
	Geom         orb.MultiPolygon
}

// DistrictShape is one district polygon for a single plan and district type.
type DistrictShape struct {
	Number int
	Geom   orb.MultiPolygon
}

// LoadPrecincts reads a precinct shapefile carrying CNTY and PREC attribute
// fields.
func LoadPrecincts(path string) ([]PrecinctShape, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open precinct shapefile: %w", err)
	}
	defer r.Close()

	cntyIdx, err := fieldIndex(r, "CNTY")
	if err != nil {
		return nil, err
	}
	precIdx, err := fieldIndex(r, "PREC")
	if err != nil {
		return nil, err
	}

	var precincts []PrecinctShape
	for r.Next() {
		n, shape := r.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}
		cnty, err := strconv.Atoi(strings.TrimSpace(r.ReadAttribute(n, cntyIdx)))
		if err != nil {
			return nil, fmt.Errorf("precinct row %d: bad CNTY: %w", n, err)
		}
		precincts = append(precincts, PrecinctShape{
			CountyCode:   cnty,
			PrecinctCode: strings.TrimSpace(r.ReadAttribute(n, precIdx)),
			Geom:         toMultiPolygon(poly),
		})
	}
	return precincts, nil
}

// LoadDistricts reads a district-plan shapefile. districtField names the
// attribute holding the district number ("District" for Capitol plan files,
// "CD118FP"/"SLDUST" for TIGER files; zero-padded strings parse fine).
func LoadDistricts(path, districtField string) ([]DistrictShape, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open district shapefile: %w", err)
	}
	defer r.Close()

	distIdx, err := fieldIndex(r, districtField)
	if err != nil {
		return nil, err
	}

	var districts []DistrictShape
	for r.Next() {
		n, shape := r.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}
		raw := strings.TrimSpace(r.ReadAttribute(n, distIdx))
		num, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("district row %d: bad %s value %q: %w", n, districtField, raw, err)
		}
		districts = append(districts, DistrictShape{Number: num, Geom: toMultiPolygon(poly)})
	}
	return districts, nil
}

func fieldIndex(r *shp.Reader, name string) (int, error) {
	for i, f := range r.Fields() {
		if strings.EqualFold(strings.TrimSpace(f.String()), name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("shapefile has no %s field", name)
}

// toMultiPolygon converts a shapefile polygon record to an orb multipolygon.
// Shapefile outer rings wind clockwise (negative shoelace area) and holes
// counter-clockwise; holes attach to the most recent outer ring.
func toMultiPolygon(p *shp.Polygon) orb.MultiPolygon {
	var mp orb.MultiPolygon
	for i, start := range p.Parts {
		end := len(p.Points)
		if i+1 < len(p.Parts) {
			end = int(p.Parts[i+1])
		}
		ring := make(orb.Ring, 0, end-int(start))
		for _, pt := range p.Points[start:end] {
			ring = append(ring, orb.Point{pt.X, pt.Y})
		}
		if len(ring) < 4 {
			continue
		}
		if signedArea(ring) < 0 || len(mp) == 0 {
			mp = append(mp, orb.Polygon{ring})
		} else {
			mp[len(mp)-1] = append(mp[len(mp)-1], ring)
		}
	}
	return mp
}

// signedArea is the shoelace area of a ring: negative for clockwise winding.
func signedArea(r orb.Ring) float64 {
	var sum float64
	for i := 0; i+1 < len(r); i++ {
		sum += r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
	}
	return sum / 2
}
