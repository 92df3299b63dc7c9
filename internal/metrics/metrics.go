// Package metrics derives the normalized hairline measurements from facial
// landmarks and detected hairline edge points.
//
// Every metric has a documented fallback value so that degenerate geometry
// (empty point sets, missing landmarks, collapsed faces) still yields a
// complete Bundle instead of NaN or an error. The only failure is a landmark
// set that contains none of the forehead indices.
package metrics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/dudu/hairline/internal/landmark"
)

// Placeholder scores. Recession and analysis quality are not computed yet;
// every bundle carries these values.
const (
	RecessionPlaceholder = 0.3
	QualityPlaceholder   = 0.7
)

// ErrInsufficientLandmarks is returned when no hairline point was detected
// and none of the forehead landmark indices exist in the landmark set.
var ErrInsufficientLandmarks = errors.New("insufficient landmarks")

// ErrInvalidImageSize is returned for non-positive image dimensions.
var ErrInvalidImageSize = errors.New("invalid image size")

// Config holds the tunable constants of the metric engine.
type Config struct {
	// DensitySaturation is the edge point count at which density reaches 1.
	DensitySaturation float64 `toml:"density_saturation"`
	// SymmetrySaturation is the mean height difference in pixels at which
	// symmetry reaches 0.
	SymmetrySaturation float64 `toml:"symmetry_saturation"`

	DefaultForeheadRatio float64 `toml:"default_forehead_ratio"`
	DefaultDensity       float64 `toml:"default_density"`
	DefaultSymmetry      float64 `toml:"default_symmetry"`
	RecessionScore       float64 `toml:"recession_score"`
	AnalysisQuality      float64 `toml:"analysis_quality"`
}

// DefaultConfig returns the reference constants.
func DefaultConfig() Config {
	return Config{
		DensitySaturation:    50,
		SymmetrySaturation:   50,
		DefaultForeheadRatio: 0.3,
		DefaultDensity:       0.3,
		DefaultSymmetry:      0.5,
		RecessionScore:       RecessionPlaceholder,
		AnalysisQuality:      QualityPlaceholder,
	}
}

// Validate checks that the divisors are usable.
func (c Config) Validate() error {
	if c.DensitySaturation <= 0 {
		return fmt.Errorf("density_saturation must be positive, got %v", c.DensitySaturation)
	}
	if c.SymmetrySaturation <= 0 {
		return fmt.Errorf("symmetry_saturation must be positive, got %v", c.SymmetrySaturation)
	}
	return nil
}

// Bundle is the full set of scores for one photo.
type Bundle struct {
	HairlineHeight  float64 `json:"hairline_height"`
	ForeheadRatio   float64 `json:"forehead_ratio"`
	DensityScore    float64 `json:"density_score"`
	SymmetryScore   float64 `json:"symmetry_score"`
	RecessionScore  float64 `json:"recession_score"`
	AnalysisQuality float64 `json:"analysis_quality"`
}

// Engine computes metric bundles.
type Engine struct {
	cfg   Config
	table landmark.Table
}

// NewEngine creates a metric engine for the given landmark topology
func NewEngine(table landmark.Table, cfg Config) *Engine {
	return &Engine{cfg: cfg, table: table}
}

// Config returns the engine constants
func (e *Engine) Config() Config {
	return e.cfg
}

// HairlineHeight locates the hairline row. It is the topmost hairline point
// when any were detected, otherwise the topmost forehead landmark. The row is
// returned in pixels and normalized by the image height.
func (e *Engine) HairlineHeight(points []landmark.Point, landmarks landmark.Set, imageHeight int) (y, normalized float64, err error) {
	if imageHeight <= 0 {
		return 0, 0, fmt.Errorf("%w: height %d", ErrInvalidImageSize, imageHeight)
	}

	if len(points) > 0 {
		y = points[0].Y
		for _, p := range points[1:] {
			y = math.Min(y, p.Y)
		}
	} else {
		ys := landmarks.Ys(e.table.Forehead)
		if len(ys) == 0 {
			return 0, 0, ErrInsufficientLandmarks
		}
		y = floats.Min(ys)
	}

	return y, y / float64(imageHeight), nil
}

// ForeheadRatio is the share of the face height taken by the forehead:
// (eyebrow - hairline) / (chin - hairline). Missing eyebrow or chin landmarks
// and a non-positive face height give the default ratio.
func (e *Engine) ForeheadRatio(landmarks landmark.Set, hairlineY float64) float64 {
	brows := landmarks.Ys(e.table.Eyebrows)
	chin := landmarks.Ys(e.table.Chin)
	if len(brows) == 0 || len(chin) == 0 {
		return e.cfg.DefaultForeheadRatio
	}

	eyebrowY := stat.Mean(brows, nil)
	chinY := floats.Max(chin)

	faceHeight := chinY - hairlineY
	if faceHeight <= 0 {
		return e.cfg.DefaultForeheadRatio
	}
	return (eyebrowY - hairlineY) / faceHeight
}

// DensityScore maps the edge point count linearly onto [0, 1], saturating at
// DensitySaturation points. No points gives the default density.
func (e *Engine) DensityScore(points []landmark.Point) float64 {
	if len(points) == 0 {
		return e.cfg.DefaultDensity
	}
	return math.Min(float64(len(points))/e.cfg.DensitySaturation, 1.0)
}

// SymmetryScore compares the mean height of hairline points left and right of
// the image midline. Points on the midline belong to neither side. Fewer than
// two points, or an empty side, gives the default symmetry.
func (e *Engine) SymmetryScore(points []landmark.Point, imageWidth int) float64 {
	if len(points) < 2 {
		return e.cfg.DefaultSymmetry
	}

	width := float64(imageWidth)
	mid := width / 2

	var left, right []float64
	for _, p := range points {
		switch {
		case p.X < mid:
			left = append(left, p.Y)
		case p.X > mid:
			// mirrored to (width - x, y); only the height is compared
			right = append(right, p.Y)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return e.cfg.DefaultSymmetry
	}

	diff := math.Abs(stat.Mean(left, nil) - stat.Mean(right, nil))
	return 1 - math.Min(diff/e.cfg.SymmetrySaturation, 1.0)
}

// Compute builds the full bundle for one photo and also returns the hairline
// row in pixels.
func (e *Engine) Compute(points []landmark.Point, landmarks landmark.Set, imageWidth, imageHeight int) (Bundle, float64, error) {
	y, height, err := e.HairlineHeight(points, landmarks, imageHeight)
	if err != nil {
		return Bundle{}, 0, err
	}

	return Bundle{
		HairlineHeight:  height,
		ForeheadRatio:   e.ForeheadRatio(landmarks, y),
		DensityScore:    e.DensityScore(points),
		SymmetryScore:   e.SymmetryScore(points, imageWidth),
		RecessionScore:  e.cfg.RecessionScore,
		AnalysisQuality: e.cfg.AnalysisQuality,
	}, y, nil
}
