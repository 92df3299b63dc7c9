// Package camera grabs still photos from a webcam.
package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Key codes handled by Grab
const (
	KeySpace  = 32
	KeyEscape = 27
	KeyQuit   = 'q'
)

var (
	// ErrCanceled is returned when the user cancels the capture
	ErrCanceled = errors.New("capture canceled")
	// ErrReadFailed is returned when the camera stops delivering frames
	ErrReadFailed = errors.New("failed to read frame from camera")
)

// Capture manages webcam capture
type Capture struct {
	webcam   *gocv.VideoCapture
	deviceID int
	width    int
	height   int
	mu       sync.Mutex
}

// Open opens the camera device at the requested resolution and frame rate
func Open(deviceID, width, height, fps int) (*Capture, error) {
	webcam, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", deviceID, err)
	}
	if !webcam.IsOpened() {
		webcam.Close()
		return nil, fmt.Errorf("camera %d is not available", deviceID)
	}

	if width > 0 && height > 0 {
		webcam.Set(gocv.VideoCaptureFrameWidth, float64(width))
		webcam.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}
	if fps > 0 {
		webcam.Set(gocv.VideoCaptureFPS, float64(fps))
	}

	// Camera may not support the requested resolution
	return &Capture{
		webcam:   webcam,
		deviceID: deviceID,
		width:    int(webcam.Get(gocv.VideoCaptureFrameWidth)),
		height:   int(webcam.Get(gocv.VideoCaptureFrameHeight)),
	}, nil
}

// Read captures a frame into the provided Mat
func (c *Capture) Read(frame *gocv.Mat) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.webcam == nil {
		return false
	}
	return c.webcam.Read(frame)
}

// Width returns frame width
func (c *Capture) Width() int {
	return c.width
}

// Height returns frame height
func (c *Capture) Height() int {
	return c.height
}

// Close releases the camera
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.webcam != nil {
		err := c.webcam.Close()
		c.webcam = nil
		return err
	}
	return nil
}

// Source delivers frames
type Source interface {
	Read(frame *gocv.Mat) bool
}

// Preview shows frames and reports key presses
type Preview interface {
	Show(frame *gocv.Mat)
	WaitKey(delayMs int) int
}

var _ Source = (*Capture)(nil)

// Grab shows the live preview until SPACE is pressed and returns a copy of
// the frame shown at that moment. ESC or q returns ErrCanceled. The caller
// owns the returned Mat.
func Grab(ctx context.Context, src Source, preview Preview) (gocv.Mat, error) {
	frame := gocv.NewMat()
	defer frame.Close()

	for {
		if err := ctx.Err(); err != nil {
			return gocv.NewMat(), err
		}
		if !src.Read(&frame) || frame.Empty() {
			return gocv.NewMat(), ErrReadFailed
		}

		// The preview draws on what it is given, keep the clean frame
		shown := frame.Clone()
		preview.Show(&shown)
		shown.Close()

		switch preview.WaitKey(1) {
		case KeySpace:
			return frame.Clone(), nil
		case KeyEscape, KeyQuit:
			return gocv.NewMat(), ErrCanceled
		}
	}
}
