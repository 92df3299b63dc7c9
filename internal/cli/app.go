package cli

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dudu/hairline/internal/archive"
	"github.com/dudu/hairline/internal/config"
	"github.com/dudu/hairline/internal/detector"
	"github.com/dudu/hairline/internal/enhancer"
	"github.com/dudu/hairline/internal/hairline"
	"github.com/dudu/hairline/internal/inference"
	"github.com/dudu/hairline/internal/logger"
	"github.com/dudu/hairline/internal/pipeline"
	"github.com/dudu/hairline/internal/progress"
	"github.com/dudu/hairline/internal/storage"
)

// newLandmarkSource loads the detector models. Tests replace it.
var newLandmarkSource = func(cfg *config.Config, log logrus.FieldLogger) (pipeline.LandmarkSource, error) {
	if err := inference.Initialize(cfg.ORTLibrary); err != nil {
		return nil, err
	}
	return detector.NewMeshSource(cfg.Detector, log)
}

// app holds the services shared by the commands.
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	store    storage.Backend
	tracker  *progress.Tracker
	archive  *archive.Archive
	enhancer *enhancer.Enhancer

	now func() time.Time

	once     sync.Once
	pipeline *pipeline.Pipeline
	pipeErr  error
}

// newApp loads the configuration and opens storage and the archive
func newApp() (*app, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigFile
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	arch, err := archive.New(cfg.DataDir, log)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.StorageConfig(), log)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		log:      log,
		store:    store,
		tracker:  progress.NewTracker(store, cfg.Progress),
		archive:  arch,
		enhancer: enhancer.New(cfg.Enhancer),
		now:      time.Now,
	}, nil
}

// analyzer builds the analysis pipeline on first use
func (a *app) analyzer() (*pipeline.Pipeline, error) {
	a.once.Do(func() {
		source, err := newLandmarkSource(a.cfg, a.log)
		if err != nil {
			a.pipeErr = fmt.Errorf("failed to load landmark models: %w", err)
			return
		}
		extractor := hairline.NewExtractor(a.cfg.Hairline)
		p, err := pipeline.New(source, extractor, a.cfg.Pipeline(), a.log)
		if err != nil {
			source.Close()
			a.pipeErr = err
			return
		}
		a.pipeline = p
	})
	return a.pipeline, a.pipeErr
}

// Close releases the pipeline and the store
func (a *app) Close() error {
	if a.pipeline != nil {
		if err := a.pipeline.Close(); err != nil {
			a.log.WithError(err).Warn("failed to close pipeline")
		}
	}
	return a.store.Close()
}

// withApp runs fn with a freshly opened app and closes it afterwards
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cmd.Context(), a)
}
