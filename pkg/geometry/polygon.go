package geometry

// Area returns the absolute area of a simple polygon using the shoelace
// formula. Fewer than three vertices have zero area.
func Area(polygon []PointInt) float64 {
	n := len(polygon)
	if n < 3 {
		return 0
	}
	var twice int
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		twice += polygon[i].X*polygon[j].Y - polygon[j].X*polygon[i].Y
	}
	if twice < 0 {
		twice = -twice
	}
	return float64(twice) / 2
}

// IsConvex returns true if the polygon vertices form a convex polygon.
// The polygon is assumed to be simple (non-self-intersecting).
// Collinear runs are tolerated.
func IsConvex(polygon []PointInt) bool {
	if len(polygon) < 3 {
		return false
	}

	n := len(polygon)
	var sign int

	for i := 0; i < n; i++ {
		cross := crossProduct(
			polygon[i],
			polygon[(i+1)%n],
			polygon[(i+2)%n],
		)

		if cross != 0 {
			currentSign := 1
			if cross < 0 {
				currentSign = -1
			}

			if sign == 0 {
				sign = currentSign
			} else if currentSign != sign {
				return false
			}
		}
	}

	return true
}

// crossProduct computes the cross product of vectors OA and OB.
func crossProduct(o, a, b PointInt) int {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}
