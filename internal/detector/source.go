package detector

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/dudu/hairline/internal/inference"
	"github.com/dudu/hairline/internal/logger"
)

// Config locates and tunes both detector models.
type Config struct {
	FaceModel string          `toml:"face_model"`
	MeshModel string          `toml:"mesh_model"`
	CoreML    bool            `toml:"coreml"`
	Threads   int             `toml:"threads"`
	Face      SCRFDOptions    `toml:"face"`
	Mesh      FaceMeshOptions `toml:"mesh"`
}

// DefaultConfig returns the default model locations and settings
func DefaultConfig() Config {
	return Config{
		FaceModel: "models/det_10g.onnx",
		MeshModel: "models/face_landmark.onnx",
		Face:      DefaultSCRFDOptions(),
		Mesh:      DefaultFaceMeshOptions(),
	}
}

// MeshSource finds the most confident face with SCRFD and runs the face mesh
// model on it.
type MeshSource struct {
	faces *SCRFD
	mesh  *FaceMesh
	log   logrus.FieldLogger
}

// NewMeshSource loads both models. inference.Initialize must have been called.
func NewMeshSource(cfg Config, log logrus.FieldLogger) (*MeshSource, error) {
	log = logger.OrDiscard(log)
	sessionOpts := inference.Options{CoreML: cfg.CoreML, IntraOpThreads: cfg.Threads, Log: log}

	faces, err := NewSCRFD(cfg.FaceModel, cfg.Face, sessionOpts)
	if err != nil {
		return nil, err
	}

	mesh, err := NewFaceMesh(cfg.MeshModel, cfg.Mesh, sessionOpts)
	if err != nil {
		faces.Close()
		return nil, err
	}

	return &MeshSource{faces: faces, mesh: mesh, log: log}, nil
}

// Detect returns the landmarks of the best face. No face, or a mesh presence
// below threshold, yields Present=false and a nil error.
func (m *MeshSource) Detect(img gocv.Mat) (Detection, error) {
	faces, err := m.faces.Detect(img)
	if err != nil {
		return Detection{}, fmt.Errorf("face detection failed: %w", err)
	}
	if len(faces) == 0 {
		return Detection{}, nil
	}
	best := faces[0]

	landmarks, presence, err := m.mesh.Detect(img, best.BoundingBox)
	if err != nil {
		return Detection{}, fmt.Errorf("landmark detection failed: %w", err)
	}

	m.log.WithFields(logrus.Fields{
		"faces":     len(faces),
		"score":     best.Score,
		"presence":  presence,
		"landmarks": len(landmarks),
	}).Debug("face mesh detected")

	if presence < m.mesh.opts.PresenceThreshold {
		return Detection{Score: best.Score, Box: best.BoundingBox}, nil
	}

	return Detection{
		Landmarks: landmarks,
		Present:   true,
		Score:     best.Score,
		Box:       best.BoundingBox,
	}, nil
}

// Close releases both models
func (m *MeshSource) Close() error {
	err1 := m.faces.Close()
	err2 := m.mesh.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
