// Package ui shows the camera preview window.
package ui

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/dudu/hairline/internal/camera"
)

// Instructions are drawn on every preview frame
var Instructions = []string{
	"Position your face in the center",
	"Press SPACE to capture, ESC to cancel",
}

// Window manages the preview display
type Window struct {
	window *gocv.Window
	name   string
	guide  bool
}

var _ camera.Preview = (*Window)(nil)

// NewWindow creates a new preview window
func NewWindow(name string, width, height int) *Window {
	window := gocv.NewWindow(name)
	// Force window to appear on macOS
	if width > 0 && height > 0 {
		window.ResizeWindow(width, height)
	}
	window.MoveWindow(100, 100)
	return &Window{
		window: window,
		name:   name,
		guide:  true,
	}
}

// SetGuide toggles the face guide ellipse
func (w *Window) SetGuide(on bool) {
	w.guide = on
}

// Show draws the capture instructions on frame and displays it
func (w *Window) Show(frame *gocv.Mat) {
	DrawInstructions(frame, w.guide)
	w.window.IMShow(*frame)
}

// WaitKey waits for key press, returns key code or -1
func (w *Window) WaitKey(delayMs int) int {
	return w.window.WaitKey(delayMs)
}

// Close closes the window
func (w *Window) Close() error {
	if w.window != nil {
		return w.window.Close()
	}
	return nil
}

// DrawInstructions writes the instruction lines and, when guide is set, an
// ellipse marking where the face should be.
func DrawInstructions(frame *gocv.Mat, guide bool) {
	green := color.RGBA{G: 255, A: 255}
	for i, line := range Instructions {
		gocv.PutText(frame, line, image.Pt(10, 30+i*30),
			gocv.FontHersheySimplex, 0.7, green, 2)
	}

	if !guide {
		return
	}
	w, h := frame.Cols(), frame.Rows()
	center := image.Pt(w/2, h/2)
	axes := image.Pt(w/6, h/3)
	gocv.Ellipse(frame, center, axes, 0, 0, 360, color.RGBA{G: 255, R: 255, A: 255}, 2)
}
