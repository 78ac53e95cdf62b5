package optimizer

import "math"

// Point is a 2D path vertex in pixel space.
type Point struct {
	X float64
	Y float64
}

// OptimizePath simplifies a polyline with the Douglas-Peucker algorithm:
// the vertex farthest from the chord between the endpoints is kept when its
// perpendicular distance exceeds tolerance, recursing on both halves;
// otherwise the segment collapses to its endpoints. The first and last
// point are always preserved and the output never exceeds the input.
func OptimizePath(points []Point, tolerance float64) []Point {
	if len(points) <= 2 {
		return points
	}
	if tolerance < 0 {
		tolerance = 0
	}

	keep := make([]bool, len(points))
	keep[0] = true
	keep[len(points)-1] = true
	douglasPeucker(points, 0, len(points)-1, tolerance, keep)

	out := make([]Point, 0, len(points))
	for i, k := range keep {
		if k {
			out = append(out, points[i])
		}
	}
	return out
}

func douglasPeucker(points []Point, first, last int, tolerance float64, keep []bool) {
	if last-first < 2 {
		return
	}

	maxDist := -1.0
	maxIdx := first
	for i := first + 1; i < last; i++ {
		if d := perpendicularDistance(points[i], points[first], points[last]); d > maxDist {
			maxDist = d
			maxIdx = i
		}
	}

	if maxDist > tolerance {
		keep[maxIdx] = true
		douglasPeucker(points, first, maxIdx, tolerance, keep)
		douglasPeucker(points, maxIdx, last, tolerance, keep)
	}
}

// perpendicularDistance is the distance from p to the line through a and b.
// When a and b coincide it degrades to the point distance.
func perpendicularDistance(p, a, b Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	return math.Abs(dy*p.X-dx*p.Y+b.X*a.Y-b.Y*a.X) / length
}
