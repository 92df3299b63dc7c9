// Package landmark holds the facial landmark types shared by the detector,
// region and metric packages. It has no image or inference dependencies.
package landmark

import "math"

// Point is a 2D pixel coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Set is the ordered landmark sequence produced by a detector for one face.
// Indices are stable and carry meaning (see Table).
type Set []Point

// Has reports whether idx addresses a landmark in the set.
func (s Set) Has(idx int) bool {
	return idx >= 0 && idx < len(s)
}

// Select returns the points at the given indices in order, skipping any
// index that is out of range for the set.
func (s Set) Select(indices []int) []Point {
	points := make([]Point, 0, len(indices))
	for _, idx := range indices {
		if s.Has(idx) {
			points = append(points, s[idx])
		}
	}
	return points
}

// Ys returns the y coordinates of the points at the given indices,
// skipping out-of-range indices.
func (s Set) Ys(indices []int) []float64 {
	ys := make([]float64, 0, len(indices))
	for _, idx := range indices {
		if s.Has(idx) {
			ys = append(ys, s[idx].Y)
		}
	}
	return ys
}

// Polygon is an ordered list of vertices.
type Polygon []Point

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Width returns box width
func (b Bounds) Width() float64 {
	return b.MaxX - b.MinX
}

// Height returns box height
func (b Bounds) Height() float64 {
	return b.MaxY - b.MinY
}

// BoundsOf computes the bounding box of points. The second return value is
// false when points is empty.
func BoundsOf(points []Point) (Bounds, bool) {
	if len(points) == 0 {
		return Bounds{}, false
	}
	b := Bounds{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
	for _, p := range points {
		b.MinX = math.Min(b.MinX, p.X)
		b.MinY = math.Min(b.MinY, p.Y)
		b.MaxX = math.Max(b.MaxX, p.X)
		b.MaxY = math.Max(b.MaxY, p.Y)
	}
	return b, true
}

// Bounds returns the bounding box of the polygon vertices.
func (p Polygon) Bounds() (Bounds, bool) {
	return BoundsOf(p)
}

// Empty reports whether the polygon has no vertices.
func (p Polygon) Empty() bool {
	return len(p) == 0
}
