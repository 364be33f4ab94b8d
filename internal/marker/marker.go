// Package marker computes fiducial marker centers and colors from detected
// quadrilaterals, and cleans up the resulting marker sets.
package marker

import (
	"fmt"

	"marker-locator/internal/raster"
	"marker-locator/pkg/colorutil"
	"marker-locator/pkg/geometry"
)

// sampleRadius is the half-width of the high accuracy color window.
const sampleRadius = 2

// Marker is a detected or synthesized fiducial square.
type Marker struct {
	Center geometry.PointInt `cbor:"center"`
	Color  colorutil.Triple  `cbor:"color"`
	// Synthetic is set on markers interpolated between two detections.
	// They carry no sampled color.
	Synthetic bool `cbor:"synthetic,omitempty"`
}

func (m Marker) String() string {
	if m.Synthetic {
		return fmt.Sprintf("(%d,%d) synthetic", m.Center.X, m.Center.Y)
	}
	return fmt.Sprintf("(%d,%d) %s", m.Center.X, m.Center.Y, m.Color)
}

// ValidateQuad checks that vertices describe a quadrilateral.
func ValidateQuad(vertices []geometry.PointInt) error {
	if len(vertices) != 4 {
		return fmt.Errorf("%w: expected 4 vertices, got %d", raster.ErrMalformedInput, len(vertices))
	}
	return nil
}

// Center returns the marker center for a quadrilateral. This is not the
// centroid: it starts from the smallest x and the smallest y found over all
// four vertices (possibly from different vertices) and offsets them by half
// the |v3.x-v1.x| and |v2.y-v0.y| spans. Any other vertex count returns the
// first vertex.
func Center(vertices []geometry.PointInt) geometry.PointInt {
	if len(vertices) != 4 {
		return vertices[0]
	}

	deltaY := abs(vertices[2].Y - vertices[0].Y)
	deltaX := abs(vertices[3].X - vertices[1].X)

	c := vertices[0]
	for _, v := range vertices {
		if v.X < c.X {
			c.X = v.X
		}
		if v.Y < c.Y {
			c.Y = v.Y
		}
	}
	c.X += deltaX / 2
	c.Y += deltaY / 2
	return c
}

// Distance returns the truncated Euclidean distance between two points.
func Distance(p1, p2 geometry.PointInt) int {
	return p1.Distance(p2)
}

// Midpoint returns the per-axis integer average of two points.
func Midpoint(p1, p2 geometry.PointInt) geometry.PointInt {
	return p1.Midpoint(p2)
}

// CanSample reports whether Color may be called for p on buf.
func CanSample(buf raster.Buffer, p geometry.PointInt, highAccuracy bool) bool {
	if !highAccuracy {
		return buf.Bounds().Contains(p)
	}
	return buf.Bounds().ContainsRect(geometry.Square(p, sampleRadius))
}

// Color samples buf at p. In high accuracy mode it returns the truncated
// per-channel mean of the 5x5 window around p. No clamping is done; use
// CanSample first.
func Color(buf raster.Buffer, p geometry.PointInt, highAccuracy bool) colorutil.Triple {
	if !highAccuracy {
		return buf.At(p.X, p.Y)
	}

	var sum [3]int
	for y := p.Y - sampleRadius; y <= p.Y+sampleRadius; y++ {
		for x := p.X - sampleRadius; x <= p.X+sampleRadius; x++ {
			px := buf.At(x, y)
			sum[0] += int(px[0])
			sum[1] += int(px[1])
			sum[2] += int(px[2])
		}
	}
	const n = (2*sampleRadius + 1) * (2*sampleRadius + 1)
	return colorutil.Triple{uint8(sum[0] / n), uint8(sum[1] / n), uint8(sum[2] / n)}
}

// New builds a marker from a quadrilateral, sampling its color from buf.
func New(vertices []geometry.PointInt, buf raster.Buffer, highAccuracy bool) (Marker, error) {
	if err := ValidateQuad(vertices); err != nil {
		return Marker{}, err
	}
	c := Center(vertices)
	if !CanSample(buf, c, highAccuracy) {
		return Marker{}, fmt.Errorf("%w: center (%d,%d) cannot be sampled in %dx%d raster",
			raster.ErrMalformedInput, c.X, c.Y, buf.Width, buf.Height)
	}
	return Marker{Center: c, Color: Color(buf, c, highAccuracy)}, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
