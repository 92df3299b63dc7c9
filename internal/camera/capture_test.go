package camera

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

type fakeSource struct {
	frames int
	reads  int
}

func (f *fakeSource) Read(frame *gocv.Mat) bool {
	if f.reads >= f.frames {
		return false
	}
	f.reads++
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(f.reads), 0, 0, 0), 4, 4, gocv.MatTypeCV8UC3)
	defer m.Close()
	m.CopyTo(frame)
	return true
}

type fakePreview struct {
	keys  []int
	shown int
}

func (f *fakePreview) Show(frame *gocv.Mat) {
	f.shown++
	// drawing on the preview frame must not leak into the capture
	frame.SetTo(gocv.NewScalar(255, 255, 255, 0))
}

func (f *fakePreview) WaitKey(int) int {
	if len(f.keys) == 0 {
		return -1
	}
	k := f.keys[0]
	f.keys = f.keys[1:]
	return k
}

func TestGrab_Space(t *testing.T) {
	src := &fakeSource{frames: 10}
	preview := &fakePreview{keys: []int{-1, -1, KeySpace}}

	img, err := Grab(context.Background(), src, preview)
	require.NoError(t, err)
	defer img.Close()

	assert.Equal(t, 3, src.reads)
	assert.Equal(t, 3, preview.shown)
	assert.Equal(t, uint8(3), img.GetVecbAt(0, 0)[0])
}

func TestGrab_Cancel(t *testing.T) {
	for _, key := range []int{KeyEscape, KeyQuit} {
		img, err := Grab(context.Background(), &fakeSource{frames: 10}, &fakePreview{keys: []int{key}})
		assert.ErrorIs(t, err, ErrCanceled)
		assert.True(t, img.Empty())
		img.Close()
	}
}

func TestGrab_ReadFailure(t *testing.T) {
	img, err := Grab(context.Background(), &fakeSource{frames: 2}, &fakePreview{})
	defer img.Close()

	assert.ErrorIs(t, err, ErrReadFailed)
}

func TestGrab_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &fakeSource{frames: 2}
	img, err := Grab(ctx, src, &fakePreview{})
	defer img.Close()

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, src.reads)
}
