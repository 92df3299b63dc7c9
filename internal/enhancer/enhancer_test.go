package enhancer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func solid(rows, cols int, level float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(level, level, level, 0), rows, cols, gocv.MatTypeCV8UC3)
}

func TestResize_KeepsAspect(t *testing.T) {
	img := solid(500, 1000, 128)
	defer img.Close()

	resized := Resize(img, 800)
	defer resized.Close()

	assert.Equal(t, 800, resized.Cols())
	assert.Equal(t, 400, resized.Rows())
}

func TestResize_TruncatesHeight(t *testing.T) {
	img := solid(333, 600, 128)
	defer img.Close()

	resized := Resize(img, 800)
	defer resized.Close()

	// 333 * 4/3 = 444
	assert.Equal(t, 444, resized.Rows())
}

func TestResize_SameWidthClones(t *testing.T) {
	img := solid(100, 800, 128)
	defer img.Close()

	resized := Resize(img, 800)
	defer resized.Close()

	assert.Equal(t, 100, resized.Rows())
	assert.Equal(t, 800, resized.Cols())
}

func TestEnhance_PreservesShape(t *testing.T) {
	img := solid(120, 160, 90)
	defer img.Close()

	e := New(DefaultOptions())
	out := e.Enhance(img)
	defer out.Close()

	require.False(t, out.Empty())
	assert.Equal(t, 120, out.Rows())
	assert.Equal(t, 160, out.Cols())
	assert.Equal(t, 3, out.Channels())
}

func TestPreprocess(t *testing.T) {
	img := solid(400, 400, 128)
	defer img.Close()

	e := New(DefaultOptions())
	out := e.Preprocess(img)
	defer out.Close()

	assert.Equal(t, 800, out.Cols())
	assert.Equal(t, 800, out.Rows())
}

func TestValidate(t *testing.T) {
	e := New(DefaultOptions())

	tests := []struct {
		name   string
		rows   int
		cols   int
		level  float64
		ok     bool
		reason string
	}{
		{"ok", 400, 400, 128, true, ReasonOK},
		{"too small", 299, 400, 128, false, "Image too small (min 300x300 required)"},
		{"too narrow", 400, 200, 128, false, "Image too small (min 300x300 required)"},
		{"too dark", 400, 400, 20, false, ReasonTooDark},
		{"too bright", 400, 400, 240, false, ReasonTooLight},
		{"dark boundary", 400, 400, 50, true, ReasonOK},
		{"bright boundary", 400, 400, 200, true, ReasonOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := solid(tt.rows, tt.cols, tt.level)
			defer img.Close()

			q := e.Validate(img)

			assert.Equal(t, tt.ok, q.OK)
			assert.Equal(t, tt.reason, q.Reason)
		})
	}
}

func TestValidate_Empty(t *testing.T) {
	img := gocv.NewMat()
	defer img.Close()

	q := New(DefaultOptions()).Validate(img)

	assert.False(t, q.OK)
	assert.Equal(t, ReasonEmpty, q.Reason)
}

func TestBrightness(t *testing.T) {
	img := solid(10, 10, 100)
	defer img.Close()

	assert.InDelta(t, 100, Brightness(img), 1)
}

func TestOptions_Validate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())

	opts := DefaultOptions()
	opts.MinBrightness = 210
	assert.Error(t, opts.Validate())

	opts = DefaultOptions()
	opts.Width = 0
	assert.Error(t, opts.Validate())
}
