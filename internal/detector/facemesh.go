package detector

import (
	"fmt"
	"image"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/dudu/hairline/internal/inference"
	"github.com/dudu/hairline/internal/landmark"
)

// Tensor layouts for the mesh model input
const (
	LayoutNHWC = "nhwc"
	LayoutNCHW = "nchw"
)

// FaceMeshOptions configures the 468-point landmark model.
type FaceMeshOptions struct {
	InputSize int    `toml:"input_size"`
	Layout    string `toml:"layout"`
	// Expand is the crop side relative to the longer face box side
	Expand            float32 `toml:"expand"`
	PresenceThreshold float32 `toml:"presence_threshold"`
	InputName         string  `toml:"input_name"`
	LandmarksOutput   string  `toml:"landmarks_output"`
	PresenceOutput    string  `toml:"presence_output"`
}

// DefaultFaceMeshOptions matches the MediaPipe face_landmark model export
func DefaultFaceMeshOptions() FaceMeshOptions {
	return FaceMeshOptions{
		InputSize:         192,
		Layout:            LayoutNHWC,
		Expand:            1.5,
		PresenceThreshold: 0.5,
		InputName:         "input_1",
		LandmarksOutput:   "conv2d_21",
		PresenceOutput:    "conv2d_31",
	}
}

// FaceMesh predicts 468 facial landmarks inside a face box
type FaceMesh struct {
	session *inference.Session
	opts    FaceMeshOptions
}

// NewFaceMesh creates a new face mesh landmark detector
func NewFaceMesh(modelPath string, opts FaceMeshOptions, sessionOpts inference.Options) (*FaceMesh, error) {
	if opts.Layout != LayoutNHWC && opts.Layout != LayoutNCHW {
		return nil, fmt.Errorf("unknown tensor layout %q", opts.Layout)
	}

	session, err := inference.NewSession(modelPath,
		[]string{opts.InputName},
		[]string{opts.LandmarksOutput, opts.PresenceOutput},
		sessionOpts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create face mesh session: %w", err)
	}

	return &FaceMesh{session: session, opts: opts}, nil
}

// cropTransform maps between image pixels and model input pixels
type cropTransform struct {
	centerX, centerY float32
	scale            float32
	half             float32
}

func newCropTransform(box BoundingBox, inputSize int, expand float32) cropTransform {
	c := box.Center()
	side := max(box.Width(), box.Height()) * expand
	if side <= 0 {
		side = 1
	}
	return cropTransform{
		centerX: c.X,
		centerY: c.Y,
		scale:   float32(inputSize) / side,
		half:    float32(inputSize) / 2,
	}
}

// matrix returns the 2x3 affine warp from image to crop
func (t cropTransform) matrix() gocv.Mat {
	M := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	M.SetDoubleAt(0, 0, float64(t.scale))
	M.SetDoubleAt(0, 1, 0)
	M.SetDoubleAt(0, 2, float64(t.half-t.centerX*t.scale))
	M.SetDoubleAt(1, 0, 0)
	M.SetDoubleAt(1, 1, float64(t.scale))
	M.SetDoubleAt(1, 2, float64(t.half-t.centerY*t.scale))
	return M
}

// toImage maps a crop pixel back to image coordinates
func (t cropTransform) toImage(x, y float32) landmark.Point {
	return landmark.Point{
		X: float64((x-t.half)/t.scale + t.centerX),
		Y: float64((y-t.half)/t.scale + t.centerY),
	}
}

// decodeMesh turns x,y,z triples in crop pixels into image landmarks
func decodeMesh(output []float32, t cropTransform) landmark.Set {
	n := len(output) / 3
	if n > landmark.MeshSize {
		n = landmark.MeshSize
	}
	set := make(landmark.Set, n)
	for i := 0; i < n; i++ {
		set[i] = t.toImage(output[i*3], output[i*3+1])
	}
	return set
}

// Detect returns the landmarks for the face in box and the face presence
// probability.
func (f *FaceMesh) Detect(img gocv.Mat, box BoundingBox) (landmark.Set, float32, error) {
	size := f.opts.InputSize
	crop := newCropTransform(box, size, f.opts.Expand)

	M := crop.matrix()
	aligned := gocv.NewMat()
	defer aligned.Close()
	gocv.WarpAffine(img, &aligned, M, image.Pt(size, size))
	M.Close()

	input, err := f.tensorData(aligned)
	if err != nil {
		return nil, 0, err
	}

	shape := []int64{1, int64(size), int64(size), 3}
	if f.opts.Layout == LayoutNCHW {
		shape = []int64{1, 3, int64(size), int64(size)}
	}
	inputTensor, err := inference.CreateTensor(shape, input)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	// nil outputs are allocated by the runtime with the model's shapes
	outputs := []ort.Value{nil, nil}
	if err := f.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, 0, fmt.Errorf("face mesh inference failed: %w", err)
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	mesh, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, 0, fmt.Errorf("unexpected landmark output type %T", outputs[0])
	}
	presence, ok := outputs[1].(*ort.Tensor[float32])
	if !ok {
		return nil, 0, fmt.Errorf("unexpected presence output type %T", outputs[1])
	}

	var score float32
	if data := presence.GetData(); len(data) > 0 {
		score = sigmoid(data[0])
	}
	return decodeMesh(mesh.GetData(), crop), score, nil
}

// tensorData converts the BGR crop to RGB floats in [0, 1] in the model layout
func (f *FaceMesh) tensorData(aligned gocv.Mat) ([]float32, error) {
	size := f.opts.InputSize

	blob := gocv.BlobFromImage(aligned, 1.0/255.0, image.Pt(size, size),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()
	if blob.Empty() {
		return nil, fmt.Errorf("failed to build input blob")
	}

	chw, err := blobData(blob)
	if err != nil {
		return nil, err
	}
	if f.opts.Layout == LayoutNCHW {
		return chw, nil
	}
	return chwToHWC(chw, 3, size, size), nil
}

// chwToHWC interleaves planar channel data
func chwToHWC(chw []float32, channels, height, width int) []float32 {
	plane := height * width
	hwc := make([]float32, len(chw))
	for c := 0; c < channels; c++ {
		for i := 0; i < plane; i++ {
			hwc[i*channels+c] = chw[c*plane+i]
		}
	}
	return hwc
}

// Close releases detector resources
func (f *FaceMesh) Close() error {
	return f.session.Destroy()
}
