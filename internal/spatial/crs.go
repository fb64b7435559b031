package spatial

import (
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Precinct and district shapefiles do not always share a CRS: TIGER files
// ship geographic NAD83 coordinates while Capitol plan files ship a Lambert
// conformal conic projection. Overlap areas are only meaningful in a common
// CRS, so the geographic collection is projected into the plan's CRS using
// the LCC parameters read from its .prj sidecar. Any other CRS pairing is an
// input error rather than a silent misprojection.

// ReadProjection reads the WKT from the .prj sidecar of a shapefile. Returns
// "" when no sidecar exists.
func ReadProjection(shpPath string) (string, error) {
	prj := strings.TrimSuffix(shpPath, ".shp") + ".prj"
	b, err := os.ReadFile(prj)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// SameCRS reports whether two .prj WKT strings describe the same CRS, by
// whitespace-insensitive comparison. Empty WKT compares equal to anything:
// a missing sidecar is treated as "assume same CRS", matching common
// shapefile practice.
func SameCRS(a, b string) bool {
	if a == "" || b == "" {
		return true
	}
	norm := func(s string) string {
		return strings.Join(strings.Fields(strings.ToUpper(s)), "")
	}
	return norm(a) == norm(b)
}

// IsGeographic reports whether the WKT is a geographic (degree) CRS.
func IsGeographic(wkt string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(wkt)), "GEOGCS")
}

// LambertConformalConic is an ellipsoidal LCC projection (GRS80) built from
// .prj parameters.
type LambertConformalConic struct {
	FalseEasting  float64
	FalseNorthing float64
	CentralMerid  float64 // degrees
	LatOrigin     float64 // degrees
	Parallel1     float64 // degrees
	Parallel2     float64 // degrees

	n, f, rho0 float64
}

const (
	grs80A  = 6378137.0
	grs80F  = 1.0 / 298.257222101
	deg2rad = math.Pi / 180
)

var prjParamRe = regexp.MustCompile(`(?i)PARAMETER\s*\[\s*"([^"]+)"\s*,\s*([-0-9.eE+]+)\s*\]`)

// ParseLambertConformalConic extracts LCC parameters from a PROJCS WKT.
// Returns an error when the WKT is not a two-parallel LCC projection.
func ParseLambertConformalConic(wkt string) (*LambertConformalConic, error) {
	if !strings.Contains(strings.ToLower(wkt), "lambert_conformal_conic") {
		return nil, fmt.Errorf("projection is not Lambert conformal conic")
	}

	params := map[string]float64{}
	for _, m := range prjParamRe.FindAllStringSubmatch(wkt, -1) {
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return nil, fmt.Errorf("bad projection parameter %s: %w", m[1], err)
		}
		params[strings.ToLower(m[1])] = v
	}

	get := func(name string) (float64, error) {
		if v, ok := params[name]; ok {
			return v, nil
		}
		return 0, fmt.Errorf("projection missing parameter %s", name)
	}

	lcc := &LambertConformalConic{}
	var err error
	if lcc.FalseEasting, err = get("false_easting"); err != nil {
		return nil, err
	}
	if lcc.FalseNorthing, err = get("false_northing"); err != nil {
		return nil, err
	}
	if lcc.CentralMerid, err = get("central_meridian"); err != nil {
		return nil, err
	}
	if lcc.LatOrigin, err = get("latitude_of_origin"); err != nil {
		return nil, err
	}
	if lcc.Parallel1, err = get("standard_parallel_1"); err != nil {
		return nil, err
	}
	if lcc.Parallel2, err = get("standard_parallel_2"); err != nil {
		return nil, err
	}

	lcc.init()
	return lcc, nil
}

// init precomputes the projection constants (Snyder, Map Projections 15-1).
func (l *LambertConformalConic) init() {
	e2 := 2*grs80F - grs80F*grs80F
	e := math.Sqrt(e2)

	m := func(phi float64) float64 {
		s := math.Sin(phi)
		return math.Cos(phi) / math.Sqrt(1-e2*s*s)
	}
	t := func(phi float64) float64 {
		s := math.Sin(phi)
		return math.Tan(math.Pi/4-phi/2) / math.Pow((1-e*s)/(1+e*s), e/2)
	}

	phi1 := l.Parallel1 * deg2rad
	phi2 := l.Parallel2 * deg2rad
	phi0 := l.LatOrigin * deg2rad

	m1, m2 := m(phi1), m(phi2)
	t0, t1, t2 := t(phi0), t(phi1), t(phi2)

	if phi1 == phi2 {
		l.n = math.Sin(phi1)
	} else {
		l.n = (math.Log(m1) - math.Log(m2)) / (math.Log(t1) - math.Log(t2))
	}
	l.f = m1 / (l.n * math.Pow(t1, l.n))
	l.rho0 = grs80A * l.f * math.Pow(t0, l.n)
}

// Forward projects a lon/lat degree point into the LCC plane (meters).
func (l *LambertConformalConic) Forward(p orb.Point) orb.Point {
	e2 := 2*grs80F - grs80F*grs80F
	e := math.Sqrt(e2)

	phi := p[1] * deg2rad
	lam := p[0] * deg2rad
	lam0 := l.CentralMerid * deg2rad

	s := math.Sin(phi)
	t := math.Tan(math.Pi/4-phi/2) / math.Pow((1-e*s)/(1+e*s), e/2)
	rho := grs80A * l.f * math.Pow(t, l.n)
	theta := l.n * (lam - lam0)

	return orb.Point{
		l.FalseEasting + rho*math.Sin(theta),
		l.FalseNorthing + l.rho0 - rho*math.Cos(theta),
	}
}

// ProjectPrecincts rewrites precinct geometry through a point transform.
func ProjectPrecincts(precincts []PrecinctShape, transform func(orb.Point) orb.Point) {
	for i := range precincts {
		precincts[i].Geom = projectMultiPolygon(precincts[i].Geom, transform)
	}
}

func projectMultiPolygon(mp orb.MultiPolygon, transform func(orb.Point) orb.Point) orb.MultiPolygon {
	out := make(orb.MultiPolygon, len(mp))
	for i, poly := range mp {
		out[i] = make(orb.Polygon, len(poly))
		for j, ring := range poly {
			r := make(orb.Ring, len(ring))
			for k, pt := range ring {
				r[k] = transform(pt)
			}
			out[i][j] = r
		}
	}
	return out
}

// AlignCRS brings precinct geometry into the district plan's CRS. Identical
// CRSs are a no-op. A geographic precinct file with an LCC plan file is
// projected forward. Everything else is rejected.
func AlignCRS(precincts []PrecinctShape, precinctWKT, districtWKT string) error {
	if SameCRS(precinctWKT, districtWKT) {
		return nil
	}
	if IsGeographic(precinctWKT) && !IsGeographic(districtWKT) {
		lcc, err := ParseLambertConformalConic(districtWKT)
		if err != nil {
			return fmt.Errorf("unsupported CRS pair: %w", err)
		}
		ProjectPrecincts(precincts, lcc.Forward)
		return nil
	}
	return fmt.Errorf("unsupported CRS pair: precinct and district shapefiles use different, non-convertible projections")
}
