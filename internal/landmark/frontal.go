package landmark

import "math"

// DefaultFrontalThreshold is the minimum eye-to-nose distance ratio for a
// face to count as frontal.
const DefaultFrontalThreshold = 0.85

// FrontalScore compares the distances from the nose reference to the centers
// of the left and right eye clusters, returning min/max in [0, 1]. ok is
// false when the set is smaller than the table's topology or the clusters
// are missing.
func (t Table) FrontalScore(s Set) (score float64, ok bool) {
	if len(s) < t.Size || !s.Has(t.FrontalRef) {
		return 0, false
	}
	left, lok := centroid(s.Select(t.FrontalLeft))
	right, rok := centroid(s.Select(t.FrontalRight))
	if !lok || !rok {
		return 0, false
	}

	ref := s[t.FrontalRef]
	dl := math.Hypot(left.X-ref.X, left.Y-ref.Y)
	dr := math.Hypot(right.X-ref.X, right.Y-ref.Y)

	hi := math.Max(dl, dr)
	if hi == 0 {
		return 0, false
	}
	return math.Min(dl, dr) / hi, true
}

// IsFrontal reports whether the face looks straight at the camera.
func (t Table) IsFrontal(s Set, threshold float64) bool {
	score, ok := t.FrontalScore(s)
	return ok && score >= threshold
}

func centroid(points []Point) (Point, bool) {
	if len(points) == 0 {
		return Point{}, false
	}
	var c Point
	for _, p := range points {
		c.X += p.X
		c.Y += p.Y
	}
	n := float64(len(points))
	return Point{X: c.X / n, Y: c.Y / n}, true
}
