package pipeline

import (
	"context"

	"gocv.io/x/gocv"

	"github.com/dudu/hairline/internal/detector"
	"github.com/dudu/hairline/internal/hairline"
	"github.com/dudu/hairline/internal/landmark"
	"github.com/dudu/hairline/internal/progress"
)

// LandmarkSource interface for facial landmark detection.
// No face is reported as Detection.Present == false with a nil error.
type LandmarkSource interface {
	Detect(img gocv.Mat) (detector.Detection, error)
	Close() error
}

// PointExtractor interface for hairline edge point extraction
type PointExtractor interface {
	Extract(img gocv.Mat, region landmark.Polygon) []landmark.Point
}

// Recorder interface for snapshot persistence
type Recorder interface {
	Record(ctx context.Context, snap progress.Snapshot) error
}

var (
	_ LandmarkSource = (*detector.MeshSource)(nil)
	_ PointExtractor = (*hairline.Extractor)(nil)
	_ Recorder       = (*progress.Tracker)(nil)
)
