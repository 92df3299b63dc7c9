package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/dudu/hairline/internal/imageio"
	"github.com/dudu/hairline/internal/progress"
)

// ErrNoData is returned when a chart is requested for an empty series
var ErrNoData = errors.New("no data to plot")

// Default chart size in pixels
const (
	ChartWidth  = 1200
	ChartHeight = 800
)

var (
	axisColor  = color.RGBA{R: 60, G: 60, B: 60, A: 255}
	labelColor = color.RGBA{R: 20, G: 20, B: 20, A: 255}
)

type panel struct {
	title string
	color color.RGBA
	value func(progress.SeriesPoint) float64
}

var panels = []panel{
	{"Hairline Height Over Time", color.RGBA{R: 31, G: 119, B: 180, A: 255}, func(p progress.SeriesPoint) float64 { return p.HairlineHeight }},
	{"Forehead Ratio Over Time", color.RGBA{R: 44, G: 160, B: 44, A: 255}, func(p progress.SeriesPoint) float64 { return p.ForeheadRatio }},
	{"Hair Density Over Time", color.RGBA{R: 214, G: 39, B: 40, A: 255}, func(p progress.SeriesPoint) float64 { return p.DensityScore }},
	{"Overall Progress Score", color.RGBA{R: 148, G: 103, B: 189, A: 255}, func(p progress.SeriesPoint) float64 { return p.ProgressScore }},
}

// Panel margins inside each quadrant
const (
	marginLeft   = 70
	marginRight  = 20
	marginTop    = 40
	marginBottom = 50
)

// ProgressChart plots the series as a 2x2 grid: hairline height, forehead
// ratio, density and overall progress score. The caller owns the returned Mat.
func ProgressChart(series []progress.SeriesPoint, width, height int) (gocv.Mat, error) {
	if len(series) == 0 {
		return gocv.NewMat(), ErrNoData
	}
	if width <= 0 || height <= 0 {
		return gocv.NewMat(), fmt.Errorf("invalid chart size %dx%d", width, height)
	}

	chart := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), height, width, gocv.MatTypeCV8UC3)

	cellW, cellH := width/2, height/2
	for i, p := range panels {
		cell := image.Rect(
			(i%2)*cellW, (i/2)*cellH,
			(i%2+1)*cellW, (i/2+1)*cellH,
		)
		drawPanel(&chart, cell, p, series)
	}
	return chart, nil
}

// WriteProgressChart renders the default size chart to path
func WriteProgressChart(path string, series []progress.SeriesPoint) error {
	chart, err := ProgressChart(series, ChartWidth, ChartHeight)
	if err != nil {
		return err
	}
	defer chart.Close()

	return imageio.Save(path, chart)
}

func drawPanel(img *gocv.Mat, cell image.Rectangle, p panel, series []progress.SeriesPoint) {
	plot := image.Rect(
		cell.Min.X+marginLeft, cell.Min.Y+marginTop,
		cell.Max.X-marginRight, cell.Max.Y-marginBottom,
	)
	if plot.Dx() <= 0 || plot.Dy() <= 0 {
		return
	}

	gocv.PutText(img, p.title, image.Pt(plot.Min.X, cell.Min.Y+25),
		gocv.FontHersheySimplex, 0.55, labelColor, 1)
	gocv.Rectangle(img, plot, axisColor, 1)

	values := make([]float64, len(series))
	for i, s := range series {
		values[i] = p.value(s)
	}
	lo, hi := valueRange(values)

	gocv.PutText(img, fmt.Sprintf("%.3f", hi), image.Pt(cell.Min.X+5, plot.Min.Y+5),
		gocv.FontHersheySimplex, 0.4, labelColor, 1)
	gocv.PutText(img, fmt.Sprintf("%.3f", lo), image.Pt(cell.Min.X+5, plot.Max.Y),
		gocv.FontHersheySimplex, 0.4, labelColor, 1)

	points := make([]image.Point, len(values))
	for i, v := range values {
		points[i] = image.Pt(xPos(plot, i, len(values)), yPos(plot, v, lo, hi))
	}
	for i := 1; i < len(points); i++ {
		gocv.Line(img, points[i-1], points[i], p.color, 2)
	}
	for _, pt := range points {
		gocv.Circle(img, pt, 4, p.color, -1)
	}

	for _, i := range labelIndices(len(series)) {
		gocv.PutText(img, series[i].Date, image.Pt(points[i].X-30, plot.Max.Y+20),
			gocv.FontHersheySimplex, 0.4, labelColor, 1)
	}
}

// valueRange returns a non-empty plotting range around values
func valueRange(values []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = math.Max(math.Abs(hi)*0.1, 0.05)
	}
	return lo - pad, hi + pad
}

func xPos(plot image.Rectangle, i, n int) int {
	if n == 1 {
		return plot.Min.X + plot.Dx()/2
	}
	return plot.Min.X + i*plot.Dx()/(n-1)
}

func yPos(plot image.Rectangle, v, lo, hi float64) int {
	frac := (v - lo) / (hi - lo)
	return plot.Max.Y - int(math.Round(frac*float64(plot.Dy())))
}

// labelIndices picks at most five evenly spaced x labels, always including
// the first and last sample.
func labelIndices(n int) []int {
	const maxLabels = 5
	if n <= maxLabels {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	idx := make([]int, 0, maxLabels)
	for k := 0; k < maxLabels; k++ {
		idx = append(idx, k*(n-1)/(maxLabels-1))
	}
	return idx
}
