// Package enhancer prepares photos for hairline analysis: resizing to a
// working width, local contrast enhancement and a basic quality gate.
package enhancer

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Options holds the preprocessing constants.
type Options struct {
	Width         int     `toml:"width"`
	ClipLimit     float64 `toml:"clip_limit"`
	TileSize      int     `toml:"tile_size"`
	MinSide       int     `toml:"min_side"`
	MinBrightness float64 `toml:"min_brightness"`
	MaxBrightness float64 `toml:"max_brightness"`
}

// DefaultOptions returns the reference preprocessing settings
func DefaultOptions() Options {
	return Options{
		Width:         800,
		ClipLimit:     2.0,
		TileSize:      8,
		MinSide:       300,
		MinBrightness: 50,
		MaxBrightness: 200,
	}
}

// Validate checks option ranges
func (o Options) Validate() error {
	switch {
	case o.Width <= 0:
		return fmt.Errorf("width must be positive, got %d", o.Width)
	case o.TileSize <= 0:
		return fmt.Errorf("tile_size must be positive, got %d", o.TileSize)
	case o.ClipLimit <= 0:
		return fmt.Errorf("clip_limit must be positive, got %v", o.ClipLimit)
	case o.MinBrightness >= o.MaxBrightness:
		return fmt.Errorf("min_brightness %v must be below max_brightness %v", o.MinBrightness, o.MaxBrightness)
	}
	return nil
}

// Quality is the outcome of an image quality check.
type Quality struct {
	OK         bool    `json:"ok"`
	Reason     string  `json:"reason"`
	Brightness float64 `json:"brightness"`
}

// Quality check reasons
const (
	ReasonEmpty    = "Image could not be loaded"
	ReasonTooDark  = "Image too dark"
	ReasonTooLight = "Image too bright"
	ReasonOK       = "Image quality OK"
)

// Enhancer applies preprocessing with fixed options
type Enhancer struct {
	opts Options
}

// New creates an enhancer
func New(opts Options) *Enhancer {
	return &Enhancer{opts: opts}
}

// Options returns the enhancer settings
func (e *Enhancer) Options() Options {
	return e.opts
}

// Resize scales img to the given width keeping the aspect ratio.
// The caller owns the returned Mat.
func Resize(img gocv.Mat, width int) gocv.Mat {
	if img.Empty() || width <= 0 || img.Cols() == width {
		return img.Clone()
	}
	ratio := float64(width) / float64(img.Cols())
	height := int(float64(img.Rows()) * ratio)

	resized := gocv.NewMat()
	gocv.Resize(img, &resized, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)
	return resized
}

// Enhance equalizes the lightness channel of a BGR image with CLAHE.
// The caller owns the returned Mat.
func (e *Enhancer) Enhance(img gocv.Mat) gocv.Mat {
	if img.Empty() || img.Channels() != 3 {
		return img.Clone()
	}

	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(img, &lab, gocv.ColorBGRToLab)

	channels := gocv.Split(lab)
	defer func() {
		for _, ch := range channels {
			ch.Close()
		}
	}()

	clahe := gocv.NewCLAHEWithParams(e.opts.ClipLimit, image.Pt(e.opts.TileSize, e.opts.TileSize))
	defer clahe.Close()
	equalized := gocv.NewMat()
	clahe.Apply(channels[0], &equalized)
	channels[0].Close()
	channels[0] = equalized

	merged := gocv.NewMat()
	defer merged.Close()
	gocv.Merge(channels, &merged)

	result := gocv.NewMat()
	gocv.CvtColor(merged, &result, gocv.ColorLabToBGR)
	return result
}

// Preprocess resizes img to the working width and enhances it.
// The caller owns the returned Mat.
func (e *Enhancer) Preprocess(img gocv.Mat) gocv.Mat {
	resized := Resize(img, e.opts.Width)
	defer resized.Close()
	return e.Enhance(resized)
}

// Validate checks that img is large enough and neither too dark nor too
// bright for analysis.
func (e *Enhancer) Validate(img gocv.Mat) Quality {
	if img.Empty() {
		return Quality{Reason: ReasonEmpty}
	}
	if img.Rows() < e.opts.MinSide || img.Cols() < e.opts.MinSide {
		return Quality{Reason: fmt.Sprintf("Image too small (min %dx%d required)", e.opts.MinSide, e.opts.MinSide)}
	}

	brightness := Brightness(img)
	switch {
	case brightness < e.opts.MinBrightness:
		return Quality{Reason: ReasonTooDark, Brightness: brightness}
	case brightness > e.opts.MaxBrightness:
		return Quality{Reason: ReasonTooLight, Brightness: brightness}
	}
	return Quality{OK: true, Reason: ReasonOK, Brightness: brightness}
}

// Brightness returns the mean gray level of img
func Brightness(img gocv.Mat) float64 {
	if img.Channels() == 1 {
		return img.Mean().Val1
	}
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	return gray.Mean().Val1
}
