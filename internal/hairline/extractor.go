// Package hairline finds candidate hairline boundary points inside the
// hairline search region using masked edge detection.
package hairline

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/dudu/hairline/internal/landmark"
)

// Options holds the Canny hysteresis thresholds.
type Options struct {
	LowThreshold  float32 `toml:"low_threshold"`
	HighThreshold float32 `toml:"high_threshold"`
}

// DefaultOptions returns the reference thresholds
func DefaultOptions() Options {
	return Options{LowThreshold: 50, HighThreshold: 150}
}

// Extractor traces edge contours inside a region polygon
type Extractor struct {
	opts Options
}

// NewExtractor creates an extractor
func NewExtractor(opts Options) *Extractor {
	return &Extractor{opts: opts}
}

// Extract returns every vertex of the external contours of the edges that
// fall inside region. An empty region or image yields no points. Point order
// is whatever the contour tracer produces.
func (e *Extractor) Extract(img gocv.Mat, region landmark.Polygon) []landmark.Point {
	if region.Empty() || img.Empty() {
		return nil
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if img.Channels() == 1 {
		img.CopyTo(&gray)
	} else {
		gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	}

	mask := regionMask(gray.Rows(), gray.Cols(), region)
	defer mask.Close()

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, e.opts.LowThreshold, e.opts.HighThreshold)

	// pixels outside the mask must stay zero
	masked := gocv.Zeros(gray.Rows(), gray.Cols(), gocv.MatTypeCV8U)
	defer masked.Close()
	gocv.BitwiseAndWithMask(edges, edges, &masked, mask)

	contours := gocv.FindContours(masked, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var points []landmark.Point
	for i := 0; i < contours.Size(); i++ {
		for _, p := range contours.At(i).ToPoints() {
			points = append(points, landmark.Point{X: float64(p.X), Y: float64(p.Y)})
		}
	}
	return points
}

// regionMask fills the polygon into a single channel mask of the image size
func regionMask(rows, cols int, region landmark.Polygon) gocv.Mat {
	mask := gocv.Zeros(rows, cols, gocv.MatTypeCV8U)

	pts := make([]image.Point, len(region))
	for i, p := range region {
		// truncate like an integer cast of the vertex coordinates
		pts[i] = image.Pt(int(p.X), int(p.Y))
	}
	pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
	defer pv.Close()
	gocv.FillPoly(&mask, pv, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	return mask
}
