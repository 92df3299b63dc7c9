package imageio

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	return img
}

func TestIsImage(t *testing.T) {
	assert.True(t, IsImage("a/b/photo.JPG"))
	assert.True(t, IsImage("scan.tiff"))
	assert.True(t, IsImage("x.webp"))
	assert.False(t, IsImage("notes.txt"))
	assert.False(t, IsImage("noext"))
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "img.png")

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 30, 0), 30, 40, gocv.MatTypeCV8UC3)
	defer img.Close()

	require.NoError(t, Save(path, img))

	loaded, err := Load(path)
	require.NoError(t, err)
	defer loaded.Close()

	assert.Equal(t, 30, loaded.Rows())
	assert.Equal(t, 40, loaded.Cols())
	assert.Equal(t, 3, loaded.Channels())
	v := loaded.GetVecbAt(0, 0)
	assert.Equal(t, []uint8{10, 20, 30}, []uint8{v[0], v[1], v[2]})
}

func TestLoad_BMP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.bmp")
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, testImage()))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)
	defer loaded.Close()

	assert.Equal(t, 30, loaded.Rows())
	assert.Equal(t, 40, loaded.Cols())
}

func TestDecode_TIFF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, tiff.Encode(&buf, testImage(), nil))

	mat, err := Decode(buf.Bytes())
	require.NoError(t, err)
	defer mat.Close()

	assert.Equal(t, 40, mat.Cols())
	// BGR order
	v := mat.GetVecbAt(5, 5)
	assert.Equal(t, uint8(50), v[0])
	assert.Equal(t, uint8(200), v[2])
}

func TestLoad_Unsupported(t *testing.T) {
	_, err := Load("notes.txt")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.jpg"))
	assert.Error(t, err)
}

func TestDecode_Garbage(t *testing.T) {
	_, err := Decode([]byte("definitely not an image"))
	assert.Error(t, err)

	_, err = Decode(nil)
	assert.Error(t, err)
}

func TestSave_Empty(t *testing.T) {
	img := gocv.NewMat()
	defer img.Close()

	assert.Error(t, Save(filepath.Join(t.TempDir(), "x.png"), img))
}

func TestEncodePNG(t *testing.T) {
	img := gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC3)
	defer img.Close()

	data, err := EncodePNG(img)
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 8, cfg.Width)
}
