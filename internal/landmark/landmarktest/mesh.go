// Package landmarktest provides synthetic face mesh landmark sets for tests.
package landmarktest

import "github.com/dudu/hairline/internal/landmark"

// Reference geometry of the synthetic face.
const (
	ForeheadTopY = 150.0
	ForeheadLowY = 175.0
	EyebrowY     = 220.0
	ChinY        = 400.0
)

var features = map[int]landmark.Point{
	// forehead
	10:  {X: 250, Y: 150},
	67:  {X: 200, Y: 165},
	69:  {X: 215, Y: 160},
	104: {X: 190, Y: 175},
	108: {X: 230, Y: 155},
	109: {X: 240, Y: 152},
	151: {X: 250, Y: 170},
	337: {X: 270, Y: 155},
	338: {X: 260, Y: 152},
	297: {X: 300, Y: 165},
	// eyebrows
	105: {X: 210, Y: 222},
	334: {X: 290, Y: 222},
	336: {X: 265, Y: 216},
	// chin and jaw
	152: {X: 250, Y: 400},
	148: {X: 235, Y: 398},
	176: {X: 220, Y: 394},
	149: {X: 205, Y: 388},
	150: {X: 192, Y: 380},
	136: {X: 180, Y: 368},
	172: {X: 172, Y: 355},
	58:  {X: 166, Y: 340},
	132: {X: 162, Y: 320},
	93:  {X: 160, Y: 300},
	234: {X: 158, Y: 280},
	// eyes and nose, mirrored about x=250
	33:  {X: 190, Y: 240},
	133: {X: 220, Y: 240},
	362: {X: 205, Y: 250},
	263: {X: 310, Y: 240},
	361: {X: 280, Y: 240},
	130: {X: 295, Y: 250},
	1:   {X: 250, Y: 280},
}

// Mesh returns a full 468-point synthetic face. Landmarks that the analysis
// does not use sit at the face center.
func Mesh() landmark.Set {
	set := make(landmark.Set, landmark.MeshSize)
	for i := range set {
		set[i] = landmark.Point{X: 250, Y: 300}
	}
	for idx, p := range features {
		set[idx] = p
	}
	return set
}

// Truncated returns the first n points of Mesh, simulating a detector with a
// smaller topology.
func Truncated(n int) landmark.Set {
	return Mesh()[:n]
}

// Shifted returns Mesh with every point moved by dx, dy.
func Shifted(dx, dy float64) landmark.Set {
	set := Mesh()
	for i := range set {
		set[i].X += dx
		set[i].Y += dy
	}
	return set
}
