// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"image"
	"math"
)

// PointInt represents a 2D point with integer raster coordinates.
type PointInt struct {
	X int `json:"x" cbor:"x"`
	Y int `json:"y" cbor:"y"`
}

// Pt is shorthand for PointInt{X: x, Y: y}.
func Pt(x, y int) PointInt {
	return PointInt{X: x, Y: y}
}

// FromImagePoint converts a standard library point.
func FromImagePoint(p image.Point) PointInt {
	return PointInt{X: p.X, Y: p.Y}
}

// ImagePoint converts to a standard library point.
func (p PointInt) ImagePoint() image.Point {
	return image.Point{X: p.X, Y: p.Y}
}

// Distance returns the Euclidean distance to another point, truncated
// toward zero.
func (p PointInt) Distance(other PointInt) int {
	dx := float64(p.X - other.X)
	dy := float64(p.Y - other.Y)
	return int(math.Sqrt(dx*dx + dy*dy))
}

// Midpoint returns the point halfway to other, each axis averaged with
// integer division.
func (p PointInt) Midpoint(other PointInt) PointInt {
	return PointInt{X: (p.X + other.X) / 2, Y: (p.Y + other.Y) / 2}
}

// RectInt represents a rectangle with integer coordinates.
type RectInt struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Contains returns true if the point lies inside the half-open rectangle.
func (r RectInt) Contains(p PointInt) bool {
	return p.X >= r.X && p.X < r.X+r.Width &&
		p.Y >= r.Y && p.Y < r.Y+r.Height
}

// ContainsRect returns true if other lies entirely inside r.
func (r RectInt) ContainsRect(other RectInt) bool {
	return other.X >= r.X && other.Y >= r.Y &&
		other.X+other.Width <= r.X+r.Width &&
		other.Y+other.Height <= r.Y+r.Height
}

// ImageRect converts to a standard library rectangle.
func (r RectInt) ImageRect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Square returns the (2*radius+1) wide square centered on p.
func Square(p PointInt, radius int) RectInt {
	return RectInt{X: p.X - radius, Y: p.Y - radius, Width: 2*radius + 1, Height: 2*radius + 1}
}
