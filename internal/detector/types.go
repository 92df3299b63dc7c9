package detector

import "github.com/dudu/hairline/internal/landmark"

// Point is a detector-space coordinate, kept in float32 to match the
// model tensors.
type Point struct {
	X, Y float32
}

// BoundingBox is an axis-aligned face box in original image pixels.
type BoundingBox struct {
	X1, Y1 float32
	X2, Y2 float32
}

func (b BoundingBox) Width() float32  { return b.X2 - b.X1 }
func (b BoundingBox) Height() float32 { return b.Y2 - b.Y1 }

func (b BoundingBox) Center() Point {
	return Point{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2}
}

// Keypoint indices in the order SCRFD emits them.
const (
	KeypointLeftEye = iota
	KeypointRightEye
	KeypointNose
	KeypointLeftMouth
	KeypointRightMouth
	numKeypoints
)

// Face is one SCRFD candidate.
type Face struct {
	BoundingBox BoundingBox
	Keypoints   [numKeypoints]Point
	Score       float32
}

// Detection is the landmark source result for one image. Present is false
// when no face was found; Landmarks is then empty.
type Detection struct {
	Landmarks landmark.Set
	Present   bool
	// Score is the face detector confidence
	Score float32
	Box   BoundingBox
}
