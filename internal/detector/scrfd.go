package detector

import (
	"fmt"
	"image"
	"image/color"
	"math"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/dudu/hairline/internal/inference"
)

// SCRFDOptions configures the face detector.
type SCRFDOptions struct {
	InputSize     int     `toml:"input_size"`
	ConfThreshold float32 `toml:"conf_threshold"`
	NMSThreshold  float32 `toml:"nms_threshold"`
}

// DefaultSCRFDOptions returns the settings the det_10g model was trained for
func DefaultSCRFDOptions() SCRFDOptions {
	return SCRFDOptions{
		InputSize:     640,
		ConfThreshold: 0.5,
		NMSThreshold:  0.4,
	}
}

// SCRFD implements the SCRFD face detector
type SCRFD struct {
	session        *inference.Session
	inputSize      int
	confThreshold  float32
	nmsThreshold   float32
	featureStrides []int
	numAnchors     int
}

// NewSCRFD creates a new SCRFD detector
func NewSCRFD(modelPath string, opts SCRFDOptions, sessionOpts inference.Options) (*SCRFD, error) {
	// SCRFD has 1 input and 9 outputs (3 levels × 3 outputs each: score, bbox, kps)
	inputNames := []string{"input.1"}
	outputNames := []string{
		"score_8", "score_16", "score_32",
		"bbox_8", "bbox_16", "bbox_32",
		"kps_8", "kps_16", "kps_32",
	}

	session, err := inference.NewSession(modelPath, inputNames, outputNames, sessionOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create SCRFD session: %w", err)
	}

	return &SCRFD{
		session:        session,
		inputSize:      opts.InputSize,
		confThreshold:  opts.ConfThreshold,
		nmsThreshold:   opts.NMSThreshold,
		featureStrides: []int{8, 16, 32},
		numAnchors:     2, // anchors per position
	}, nil
}

// Detect finds faces in an image, best first
func (s *SCRFD) Detect(img gocv.Mat) ([]Face, error) {
	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	inputBlob, scale := s.preprocess(img)
	defer inputBlob.Close()

	floatData, err := blobData(inputBlob)
	if err != nil {
		return nil, err
	}

	inputTensor, err := inference.CreateTensor(
		[]int64{1, 3, int64(s.inputSize), int64(s.inputSize)},
		floatData,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := make([]ort.Value, 9)
	outputTensors := make([]*ort.Tensor[float32], 9)
	defer func() {
		for _, t := range outputTensors {
			if t != nil {
				t.Destroy()
			}
		}
	}()

	for i, stride := range s.featureStrides {
		fm := s.inputSize / stride
		numAnchors := int64(fm * fm * s.numAnchors)

		for j, width := range []int64{1, 4, 10} { // score, bbox, keypoints
			t, err := inference.CreateEmptyTensor[float32]([]int64{numAnchors, width})
			if err != nil {
				return nil, fmt.Errorf("failed to create output tensor: %w", err)
			}
			outputs[i+3*j] = t
			outputTensors[i+3*j] = t
		}
	}

	if err := s.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	levels := make([]levelOutput, len(s.featureStrides))
	for i, stride := range s.featureStrides {
		levels[i] = levelOutput{
			stride: stride,
			scores: outputTensors[i].GetData(),
			bboxes: outputTensors[i+3].GetData(),
			kps:    outputTensors[i+6].GetData(),
		}
	}

	faces := s.decode(levels, scale, img.Cols(), img.Rows())
	return nms(faces, s.nmsThreshold), nil
}

// preprocess scales the longer side to the model input, pads the bottom and
// right edges with black and returns an NCHW blob normalized to (x-127.5)/128.
// Padding keeps the origin, so boxes only need rescaling.
func (s *SCRFD) preprocess(img gocv.Mat) (gocv.Mat, float32) {
	scale := float32(s.inputSize) / float32(max(img.Rows(), img.Cols()))
	fit := image.Pt(int(float32(img.Cols())*scale), int(float32(img.Rows())*scale))

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(img, &resized, fit, 0, 0, gocv.InterpolationLinear)

	letterboxed := gocv.NewMat()
	defer letterboxed.Close()
	gocv.CopyMakeBorder(resized, &letterboxed, 0, s.inputSize-fit.Y, 0, s.inputSize-fit.X,
		gocv.BorderConstant, color.RGBA{})

	blob := gocv.BlobFromImage(letterboxed, 1.0/128.0, image.Pt(s.inputSize, s.inputSize),
		gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	return blob, scale
}

// levelOutput holds one feature pyramid level's raw outputs
type levelOutput struct {
	stride int
	scores []float32
	bboxes []float32
	kps    []float32
}

// decode converts anchor outputs to faces in original image coordinates
func (s *SCRFD) decode(levels []levelOutput, scale float32, origWidth, origHeight int) []Face {
	var faces []Face

	for _, lvl := range levels {
		stride := float32(lvl.stride)
		fm := s.inputSize / lvl.stride

		anchorIdx := 0
		for y := 0; y < fm; y++ {
			for x := 0; x < fm; x++ {
				for a := 0; a < s.numAnchors; a++ {
					if anchorIdx >= len(lvl.scores) {
						return faces
					}
					score := lvl.scores[anchorIdx]
					if score <= s.confThreshold {
						anchorIdx++
						continue
					}

					cx := float32(x) * stride
					cy := float32(y) * stride

					// distances to edges
					b := lvl.bboxes[anchorIdx*4 : anchorIdx*4+4]
					box := BoundingBox{
						X1: clamp((cx-b[0]*stride)/scale, 0, float32(origWidth)),
						Y1: clamp((cy-b[1]*stride)/scale, 0, float32(origHeight)),
						X2: clamp((cx+b[2]*stride)/scale, 0, float32(origWidth)),
						Y2: clamp((cy+b[3]*stride)/scale, 0, float32(origHeight)),
					}

					face := Face{BoundingBox: box, Score: score}
					k := lvl.kps[anchorIdx*10 : anchorIdx*10+10]
					for i := range face.Keypoints {
						face.Keypoints[i] = Point{(cx + k[i*2]*stride) / scale, (cy + k[i*2+1]*stride) / scale}
					}
					faces = append(faces, face)
					anchorIdx++
				}
			}
		}
	}

	return faces
}

// Close releases detector resources
func (s *SCRFD) Close() error {
	return s.session.Destroy()
}

func sigmoid(x float32) float32 {
	return 1.0 / (1.0 + float32(math.Exp(float64(-x))))
}

func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// blobData copies a CV_32F blob out of OpenCV memory so the tensor does not
// alias a Mat that is about to be closed.
func blobData(blob gocv.Mat) ([]float32, error) {
	data, err := blob.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return append([]float32(nil), data...), nil
}
