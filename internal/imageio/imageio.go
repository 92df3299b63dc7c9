// Package imageio reads and writes photos as BGR gocv Mats. OpenCV handles
// the common formats; webp, tiff and bmp fall back to the Go decoders.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedFormat is returned for files that are not images
var ErrUnsupportedFormat = errors.New("unsupported image format")

var extensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// IsImage reports whether path has a supported image extension
func IsImage(path string) bool {
	return extensions[strings.ToLower(filepath.Ext(path))]
}

// Load reads an image file into a BGR Mat. The caller owns the Mat.
func Load(path string) (gocv.Mat, error) {
	if !IsImage(path) {
		return gocv.NewMat(), fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	img := gocv.IMRead(path, gocv.IMReadColor)
	if !img.Empty() {
		return img, nil
	}
	img.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to read image: %w", err)
	}
	return decodeFallback(data)
}

// Decode decodes encoded image bytes into a BGR Mat. The caller owns the Mat.
func Decode(data []byte) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.NewMat(), errors.New("failed to decode image: no data")
	}

	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err == nil {
		if !img.Empty() {
			return img, nil
		}
		img.Close()
	}

	return decodeFallback(data)
}

func decodeFallback(data []byte) (gocv.Mat, error) {
	decoded, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to decode image: %w", err)
	}

	mat, err := gocv.ImageToMatRGB(decoded)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to convert %s image: %w", format, err)
	}
	return mat, nil
}

// Save writes img to path, creating the parent directory. The format
// follows the file extension.
func Save(path string, img gocv.Mat) error {
	if img.Empty() {
		return errors.New("failed to save image: empty image")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if ok := gocv.IMWrite(path, img); !ok {
		return fmt.Errorf("failed to write image: %s", path)
	}
	return nil
}

// EncodePNG encodes img as PNG bytes
func EncodePNG(img gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.PNGFileExt, img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
