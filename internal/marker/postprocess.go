package marker

import (
	"fmt"

	"marker-locator/internal/raster"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Deduplicate removes markers closer than threshold to an earlier marker.
// Pairs are visited in index order; after a removal the same index is
// tested again, so one marker can knock out several later neighbors in a
// single pass. The slice is compacted in place and returned.
func Deduplicate(ms []Marker, threshold int) []Marker {
	for i := 0; i < len(ms); i++ {
		for j := i + 1; j < len(ms); j++ {
			if Distance(ms[i].Center, ms[j].Center) < threshold {
				ms = append(ms[:j], ms[j+1:]...)
				j--
			}
		}
	}
	return ms
}

// FindMissing synthesizes markers between detections that are spaced
// unusually far apart. It only runs when fewer than expected markers are
// present. Gaps are measured between consecutive markers in slice order,
// which is detection order and not necessarily spatial order; markers
// missing at the border of the pattern are never recovered. The returned
// markers are new and ms is left unchanged.
func FindMissing(ms []Marker, expected, tol, maxDist int) ([]Marker, error) {
	if len(ms) >= expected {
		return nil, nil
	}
	if len(ms) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 markers to interpolate, have %d",
			raster.ErrMalformedInput, len(ms))
	}

	minDistance := Distance(ms[1].Center, ms[0].Center)
	for i := 2; i < len(ms); i++ {
		if d := Distance(ms[i].Center, ms[i-1].Center); d < minDistance {
			minDistance = d
		}
	}

	var missing []Marker
	for i := 1; i < len(ms) && len(ms)+len(missing) < expected; i++ {
		d := Distance(ms[i].Center, ms[i-1].Center)
		if d > minDistance+tol && d < maxDist {
			missing = append(missing, Marker{
				Center:    Midpoint(ms[i-1].Center, ms[i].Center),
				Synthetic: true,
			})
		}
	}
	return missing, nil
}

// SpacingStats summarizes the distances between consecutive markers.
type SpacingStats struct {
	Count  int     `cbor:"count"`
	Mean   float64 `cbor:"mean"`
	StdDev float64 `cbor:"stddev"`
	Min    float64 `cbor:"min"`
	Max    float64 `cbor:"max"`
}

// Spacing computes statistics over consecutive-pair distances in slice
// order. Fewer than two markers yields a zero value.
func Spacing(ms []Marker) SpacingStats {
	if len(ms) < 2 {
		return SpacingStats{}
	}
	d := make([]float64, len(ms)-1)
	for i := 1; i < len(ms); i++ {
		d[i-1] = float64(Distance(ms[i].Center, ms[i-1].Center))
	}

	s := SpacingStats{
		Count: len(d),
		Mean:  stat.Mean(d, nil),
		Min:   floats.Min(d),
		Max:   floats.Max(d),
	}
	if len(d) > 1 {
		s.StdDev = stat.StdDev(d, nil)
	}
	return s
}
