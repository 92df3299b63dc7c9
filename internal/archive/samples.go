package archive

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/dudu/hairline/internal/enhancer"
	"github.com/dudu/hairline/internal/imageio"
)

// SampleCount is the number of synthetic sample photos
const SampleCount = 5

var (
	hairColor  = color.RGBA{R: 33, G: 67, B: 101, A: 255}
	skinColor  = color.RGBA{R: 204, G: 229, B: 255, A: 255}
	inkColor   = color.RGBA{A: 255}
	whiteColor = gocv.NewScalar(255, 255, 255, 0)
)

// SampleFace draws a 500x500 cartoon face whose hair band starts at
// hairlineY. The caller owns the returned Mat.
func SampleFace(hairlineY int) gocv.Mat {
	img := gocv.NewMatWithSizeFromScalar(whiteColor, 500, 500, gocv.MatTypeCV8UC3)

	gocv.Rectangle(&img, image.Rect(150, hairlineY, 350, 200), hairColor, -1)
	gocv.Rectangle(&img, image.Rect(150, 200, 350, 300), skinColor, -1)
	gocv.Circle(&img, image.Pt(200, 250), 10, inkColor, -1)
	gocv.Circle(&img, image.Pt(300, 250), 10, inkColor, -1)
	gocv.Ellipse(&img, image.Pt(250, 320), image.Pt(30, 10), 0, 0, 180, inkColor, 2)

	return img
}

// CreateSamples writes SampleCount synthetic faces with a hairline that
// drops 15 px per sample into input/raw_images.
func (a *Archive) CreateSamples() ([]string, error) {
	paths := make([]string, 0, SampleCount)
	for i := 0; i < SampleCount; i++ {
		img := SampleFace(100 + i*15)
		path := filepath.Join(a.Dir(RawImages), fmt.Sprintf("sample_%02d.jpg", i+1))
		err := imageio.Save(path, img)
		img.Close()
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	a.log.WithField("count", len(paths)).Info("sample images created")
	return paths, nil
}

// Rejection is an image that failed the quality check
type Rejection struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Scan checks every image file in dir and splits them into valid paths and
// rejections. Both lists are sorted by path.
func (a *Archive) Scan(dir string, enh *enhancer.Enhancer) ([]string, []Rejection, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read input folder: %w", err)
	}

	var valid []string
	var invalid []Rejection
	for _, e := range entries {
		if e.IsDir() || !imageio.IsImage(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())

		img, err := imageio.Load(path)
		if err != nil {
			invalid = append(invalid, Rejection{Path: path, Reason: "Cannot read image file"})
			continue
		}
		q := enh.Validate(img)
		img.Close()

		if q.OK {
			valid = append(valid, path)
		} else {
			invalid = append(invalid, Rejection{Path: path, Reason: q.Reason})
		}
	}

	sort.Strings(valid)
	sort.Slice(invalid, func(i, j int) bool { return invalid[i].Path < invalid[j].Path })

	a.log.WithFields(logrus.Fields{
		"dir":     dir,
		"valid":   len(valid),
		"invalid": len(invalid),
	}).Info("folder scanned")
	return valid, invalid, nil
}
