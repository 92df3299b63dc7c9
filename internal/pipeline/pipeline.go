package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/dudu/hairline/internal/classify"
	"github.com/dudu/hairline/internal/landmark"
	"github.com/dudu/hairline/internal/logger"
	"github.com/dudu/hairline/internal/metrics"
	"github.com/dudu/hairline/internal/progress"
	"github.com/dudu/hairline/internal/region"
)

var (
	// ErrNoFaceDetected is returned when the landmark source finds no face
	ErrNoFaceDetected = errors.New("no face detected")
	// ErrEmptyImage is returned for empty input images
	ErrEmptyImage = errors.New("empty image")
)

// Config holds pipeline configuration
type Config struct {
	Table            landmark.Table
	Metrics          metrics.Config
	Rules            classify.Rules
	Extension        float64
	FrontalThreshold float64
}

// DefaultConfig returns the face mesh configuration with reference constants
func DefaultConfig() Config {
	return Config{
		Table:            landmark.FaceMesh(),
		Metrics:          metrics.DefaultConfig(),
		Rules:            classify.DefaultRules(),
		Extension:        region.DefaultExtension,
		FrontalThreshold: landmark.DefaultFrontalThreshold,
	}
}

// Timing holds performance timing information
type Timing struct {
	Detection  time.Duration
	Extraction time.Duration
	Metrics    time.Duration
	Total      time.Duration
}

// Result is the outcome of analyzing one photo.
type Result struct {
	SubjectID      string           `json:"subject_id,omitempty"`
	Timestamp      string           `json:"timestamp,omitempty"`
	Landmarks      landmark.Set     `json:"landmarks"`
	HairlinePoints []landmark.Point `json:"hairline_points"`
	ForeheadRegion landmark.Polygon `json:"forehead_region"`
	HairlineRegion landmark.Polygon `json:"hairline_region"`
	metrics.Bundle
	HairlineType   classify.Type `json:"hairline_type"`
	HairlineY      float64       `json:"hairline_y"`
	ImageWidth     int           `json:"image_width"`
	ImageHeight    int           `json:"image_height"`
	Frontal        bool          `json:"frontal"`
	DetectionScore float32       `json:"detection_score"`
}

// Snapshot converts the result into a progress snapshot
func (r *Result) Snapshot(subjectID, timestamp string, recordedAt time.Time) progress.Snapshot {
	return progress.Snapshot{
		SubjectID:    subjectID,
		Timestamp:    timestamp,
		Bundle:       r.Bundle,
		HairlineType: r.HairlineType,
		RecordedAt:   recordedAt,
	}
}

// Pipeline runs landmark detection, region construction, edge extraction,
// metric computation and classification for one photo at a time.
type Pipeline struct {
	mu         sync.Mutex
	cfg        Config
	source     LandmarkSource
	extractor  PointExtractor
	regions    *region.Builder
	engine     *metrics.Engine
	log        logrus.FieldLogger
	now        func() time.Time
	lastTiming Timing
}

// New creates a new analysis pipeline. The pipeline owns source and closes
// it in Close.
func New(source LandmarkSource, extractor PointExtractor, cfg Config, log logrus.FieldLogger) (*Pipeline, error) {
	if source == nil {
		return nil, errors.New("pipeline: nil landmark source")
	}
	if extractor == nil {
		return nil, errors.New("pipeline: nil point extractor")
	}
	if err := cfg.Table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid landmark table: %w", err)
	}
	if err := cfg.Metrics.Validate(); err != nil {
		return nil, fmt.Errorf("invalid metrics config: %w", err)
	}
	if cfg.Extension < 0 {
		return nil, fmt.Errorf("invalid region extension %v", cfg.Extension)
	}

	return &Pipeline{
		cfg:       cfg,
		source:    source,
		extractor: extractor,
		regions:   region.NewBuilder(cfg.Table).WithExtension(cfg.Extension),
		engine:    metrics.NewEngine(cfg.Table, cfg.Metrics),
		log:       logger.OrDiscard(log),
		now:       time.Now,
	}, nil
}

// Analyze computes the metrics and hairline type for img. Nothing is
// recorded. A photo without a face returns ErrNoFaceDetected.
func (p *Pipeline) Analyze(ctx context.Context, img gocv.Mat) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img.Empty() {
		return nil, ErrEmptyImage
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	totalStart := time.Now()
	var timing Timing

	detectStart := time.Now()
	det, err := p.source.Detect(img)
	timing.Detection = time.Since(detectStart)
	if err != nil {
		return nil, fmt.Errorf("detection failed: %w", err)
	}
	if !det.Present {
		p.log.WithField("score", det.Score).Info("no face detected")
		return nil, ErrNoFaceDetected
	}

	forehead, search := p.regions.Build(det.Landmarks)

	extractStart := time.Now()
	points := p.extractor.Extract(img, search)
	timing.Extraction = time.Since(extractStart)

	metricsStart := time.Now()
	bundle, hairlineY, err := p.engine.Compute(points, det.Landmarks, img.Cols(), img.Rows())
	if err != nil {
		return nil, fmt.Errorf("failed to compute metrics: %w", err)
	}
	kind := p.cfg.Rules.Classify(bundle)
	timing.Metrics = time.Since(metricsStart)

	timing.Total = time.Since(totalStart)
	p.lastTiming = timing

	result := &Result{
		Landmarks:      det.Landmarks,
		HairlinePoints: points,
		ForeheadRegion: forehead,
		HairlineRegion: search,
		Bundle:         bundle,
		HairlineType:   kind,
		HairlineY:      hairlineY,
		ImageWidth:     img.Cols(),
		ImageHeight:    img.Rows(),
		Frontal:        p.cfg.Table.IsFrontal(det.Landmarks, p.cfg.FrontalThreshold),
		DetectionScore: det.Score,
	}

	p.log.WithFields(logrus.Fields{
		"type":     kind,
		"points":   len(points),
		"height":   bundle.HairlineHeight,
		"density":  bundle.DensityScore,
		"symmetry": bundle.SymmetryScore,
		"frontal":  result.Frontal,
		"elapsed":  timing.Total,
	}).Debug("hairline analyzed")

	return result, nil
}

// AnalyzeAndRecord analyzes img and records the result as the subject's
// snapshot at timestamp. An empty timestamp uses the current time. Failed
// analyses record nothing.
func (p *Pipeline) AnalyzeAndRecord(ctx context.Context, img gocv.Mat, rec Recorder, subjectID, timestamp string) (*Result, error) {
	result, err := p.Analyze(ctx, img)
	if err != nil {
		return nil, err
	}

	now := p.now()
	if timestamp == "" {
		timestamp = progress.Timestamp(now)
	}

	if err := rec.Record(ctx, result.Snapshot(subjectID, timestamp, now)); err != nil {
		return nil, fmt.Errorf("failed to record analysis: %w", err)
	}
	result.SubjectID = subjectID
	result.Timestamp = timestamp

	p.log.WithFields(logrus.Fields{
		"subject":   subjectID,
		"timestamp": timestamp,
		"type":      result.HairlineType,
	}).Info("analysis recorded")

	return result, nil
}

// LastTiming returns timing from last Analyze call
func (p *Pipeline) LastTiming() Timing {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastTiming
}

// Close releases pipeline resources
func (p *Pipeline) Close() error {
	if err := p.source.Close(); err != nil {
		return fmt.Errorf("cleanup errors: %w", err)
	}
	return nil
}
