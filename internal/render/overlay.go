// Package render draws analysis overlays and progress charts.
package render

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/dudu/hairline/internal/landmark"
	"github.com/dudu/hairline/internal/pipeline"
)

var (
	landmarkColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	pointColor    = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	regionColor   = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	textColor     = color.RGBA{R: 255, G: 0, B: 0, A: 255}
)

const (
	landmarkRadius = 2
	pointRadius    = 3
	textTop        = 30
	lineHeight     = 25
	textScale      = 0.6
)

// Overlay draws the landmarks, hairline points, search region and scores on
// a copy of img. The caller owns the returned Mat.
func Overlay(img gocv.Mat, r *pipeline.Result) gocv.Mat {
	vis := img.Clone()
	if r == nil || vis.Empty() {
		return vis
	}

	for _, p := range r.Landmarks {
		gocv.Circle(&vis, pixel(p), landmarkRadius, landmarkColor, -1)
	}
	for _, p := range r.HairlinePoints {
		gocv.Circle(&vis, pixel(p), pointRadius, pointColor, -1)
	}
	if len(r.HairlineRegion) > 0 {
		outline := make([]image.Point, len(r.HairlineRegion))
		for i, p := range r.HairlineRegion {
			outline[i] = pixel(p)
		}
		pv := gocv.NewPointsVectorFromPoints([][]image.Point{outline})
		gocv.Polylines(&vis, pv, true, regionColor, 1)
		pv.Close()
	}

	for i, text := range Summary(r) {
		gocv.PutText(&vis, text, image.Pt(10, textTop+i*lineHeight),
			gocv.FontHersheySimplex, textScale, textColor, 2)
	}
	return vis
}

// Summary returns the text lines drawn on the overlay
func Summary(r *pipeline.Result) []string {
	return []string{
		fmt.Sprintf("Hairline Type: %s", r.HairlineType),
		fmt.Sprintf("Hairline Height: %.3f", r.HairlineHeight),
		fmt.Sprintf("Forehead Ratio: %.3f", r.ForeheadRatio),
		fmt.Sprintf("Density Score: %.3f", r.DensityScore),
		fmt.Sprintf("Symmetry Score: %.3f", r.SymmetryScore),
	}
}

func pixel(p landmark.Point) image.Point {
	return image.Pt(int(p.X), int(p.Y))
}
