package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

var (
	// ErrEmptyGeometry is returned when a feature has no geometry or an empty outer ring.
	ErrEmptyGeometry = errors.New("geometry has no points")
	// ErrUnsupportedGeometry is returned for geometries other than Polygon and MultiPolygon.
	ErrUnsupportedGeometry = errors.New("unsupported geometry type")
	// ErrInvalidBounds is returned when a ring has non-finite coordinates.
	ErrInvalidBounds = errors.New("geometry bounds are not finite")
)

// Region is the (west, east, south, north) rectangle enclosing a feature.
type Region struct {
	West  float64 `yaml:"west"`
	East  float64 `yaml:"east"`
	South float64 `yaml:"south"`
	North float64 `yaml:"north"`
}

// RegionFromBound converts an orb.Bound into a Region.
func RegionFromBound(b orb.Bound) Region {
	return Region{
		West:  b.Left(),
		East:  b.Right(),
		South: b.Bottom(),
		North: b.Top(),
	}
}

// BoundsOf computes the region spanned by the outer ring of a polygon. For a
// multipolygon the outer rings of every member polygon are combined.
func BoundsOf(g orb.Geometry) (Region, error) {
	r, err := boundsOf(g)
	if err != nil {
		return Region{}, err
	}
	if !r.Valid() {
		return Region{}, fmt.Errorf("%w: %s", ErrInvalidBounds, r)
	}
	return r, nil
}

func boundsOf(g orb.Geometry) (Region, error) {
	switch geom := g.(type) {
	case nil:
		return Region{}, ErrEmptyGeometry
	case orb.Polygon:
		b, err := outerRingBound(geom)
		if err != nil {
			return Region{}, err
		}
		return RegionFromBound(b), nil
	case orb.MultiPolygon:
		if len(geom) == 0 {
			return Region{}, ErrEmptyGeometry
		}
		var (
			bound orb.Bound
			seen  bool
		)
		for _, poly := range geom {
			b, err := outerRingBound(poly)
			if errors.Is(err, ErrEmptyGeometry) {
				continue
			}
			if !seen {
				bound, seen = b, true
				continue
			}
			bound = bound.Union(b)
		}
		if !seen {
			return Region{}, ErrEmptyGeometry
		}
		return RegionFromBound(bound), nil
	default:
		return Region{}, fmt.Errorf("%w: %s", ErrUnsupportedGeometry, g.GeoJSONType())
	}
}

func outerRingBound(p orb.Polygon) (orb.Bound, error) {
	if len(p) == 0 || len(p[0]) == 0 {
		return orb.Bound{}, ErrEmptyGeometry
	}
	return p[0].Bound(), nil
}

// Valid reports whether the region has finite, ordered bounds.
func (r Region) Valid() bool {
	for _, v := range []float64{r.West, r.East, r.South, r.North} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return r.West <= r.East && r.South <= r.North
}

// FileName returns the canonical file-name form of the region, built from the
// north edge and the west edge, e.g. "n34x25_w119x50".
func (r Region) FileName() string {
	ns := "n"
	if r.North < 0 {
		ns = "s"
	}
	ew := "w"
	if r.West > 0 {
		ew = "e"
	}
	return fmt.Sprintf("%s%02dx%02d_%s%03dx%02d",
		ns, wholeDegrees(r.North), hundredths(r.North),
		ew, wholeDegrees(r.West), hundredths(r.West))
}

// String formats the region as [w, e, s, n] with two decimals.
func (r Region) String() string {
	return fmt.Sprintf("[%.2f, %.2f, %.2f, %.2f]", r.West, r.East, r.South, r.North)
}

func wholeDegrees(v float64) int {
	return int(math.Abs(math.Trunc(v)))
}

func hundredths(v float64) int {
	return int(math.Abs(math.Trunc(v*100))) % 100
}
