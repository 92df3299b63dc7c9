// Package region derives the forehead polygon and the hairline search area
// from facial landmarks.
package region

import (
	"math"

	"github.com/dudu/hairline/internal/landmark"
)

// DefaultExtension is the fraction of the forehead height the search area
// reaches above the forehead landmarks.
const DefaultExtension = 0.5

// Builder constructs analysis regions from a landmark set.
type Builder struct {
	table     landmark.Table
	extension float64
}

// NewBuilder creates a region builder for the given landmark topology
func NewBuilder(table landmark.Table) *Builder {
	return &Builder{
		table:     table,
		extension: DefaultExtension,
	}
}

// WithExtension returns a copy of the builder using a different upward extension
func (b *Builder) WithExtension(extension float64) *Builder {
	clone := *b
	clone.extension = extension
	return &clone
}

// Forehead returns the forehead landmarks as a polygon, in table order.
// Indices the set does not contain are skipped; nil means no forehead
// landmark was available.
func (b *Builder) Forehead(landmarks landmark.Set) landmark.Polygon {
	points := landmarks.Select(b.table.Forehead)
	if len(points) == 0 {
		return nil
	}
	return landmark.Polygon(points)
}

// Hairline returns the hairline search rectangle: the bounding box of base,
// with the top edge raised by extension times its height and clamped at the
// image top. Corners are ordered top-left, top-right, bottom-right,
// bottom-left. A single point or flat base yields a degenerate rectangle.
func (b *Builder) Hairline(base []landmark.Point) landmark.Polygon {
	box, ok := landmark.BoundsOf(base)
	if !ok {
		return nil
	}

	raise := (box.MaxY - box.MinY) * b.extension
	top := math.Max(0, box.MinY-raise)

	return landmark.Polygon{
		{X: box.MinX, Y: top},
		{X: box.MaxX, Y: top},
		{X: box.MaxX, Y: box.MaxY},
		{X: box.MinX, Y: box.MaxY},
	}
}

// Build returns both the forehead polygon and the hairline search rectangle.
// Both are nil when no forehead landmark is available.
func (b *Builder) Build(landmarks landmark.Set) (forehead, hairline landmark.Polygon) {
	forehead = b.Forehead(landmarks)
	if forehead == nil {
		return nil, nil
	}
	return forehead, b.Hairline(forehead)
}
