// Package config loads the hairline TOML configuration and applies
// environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/dudu/hairline/internal/classify"
	"github.com/dudu/hairline/internal/detector"
	"github.com/dudu/hairline/internal/enhancer"
	"github.com/dudu/hairline/internal/hairline"
	"github.com/dudu/hairline/internal/landmark"
	"github.com/dudu/hairline/internal/logger"
	"github.com/dudu/hairline/internal/metrics"
	"github.com/dudu/hairline/internal/pipeline"
	"github.com/dudu/hairline/internal/progress"
	"github.com/dudu/hairline/internal/region"
	"github.com/dudu/hairline/internal/storage"
)

// Environment variables that override file values
const (
	EnvDataDir        = "HAIRLINE_DATA_DIR"
	EnvStorageDriver  = "HAIRLINE_STORAGE_DRIVER"
	EnvStorageDSN     = "HAIRLINE_STORAGE_DSN"
	EnvLogLevel       = "HAIRLINE_LOG_LEVEL"
	EnvORTLibrary     = "HAIRLINE_ORT_LIBRARY"
	DefaultConfigFile = "hairline.toml"
)

// Default file names inside the data directory
const (
	jsonHistoryFile   = "hairline_data.json"
	sqliteHistoryFile = "hairline.db"
)

// AnalysisConfig tunes region construction and pose reporting
type AnalysisConfig struct {
	Extension        float64 `toml:"extension"`
	FrontalThreshold float64 `toml:"frontal_threshold"`
}

// CameraConfig selects the capture device
type CameraConfig struct {
	Device int `toml:"device"`
	Width  int `toml:"width"`
	Height int `toml:"height"`
	FPS    int `toml:"fps"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr        string `toml:"addr"`
	BodyLimitMB int    `toml:"body_limit_mb"`
}

// WatchConfig configures folder watching
type WatchConfig struct {
	// SettleMillis is how long a new file must stay unchanged before analysis
	SettleMillis int `toml:"settle_ms"`
}

// Config is the full application configuration.
type Config struct {
	DataDir    string `toml:"data_dir"`
	Subject    string `toml:"subject"`
	ORTLibrary string `toml:"ort_library"`

	Log       logger.Options      `toml:"log"`
	Storage   storage.Config      `toml:"storage"`
	Detector  detector.Config     `toml:"detector"`
	Landmarks landmark.Table      `toml:"landmarks"`
	Analysis  AnalysisConfig      `toml:"analysis"`
	Hairline  hairline.Options    `toml:"hairline"`
	Metrics   metrics.Config      `toml:"metrics"`
	Classify  classify.Rules      `toml:"classify"`
	Progress  progress.Thresholds `toml:"progress"`
	Enhancer  enhancer.Options    `toml:"enhancer"`
	Camera    CameraConfig        `toml:"camera"`
	Server    ServerConfig        `toml:"server"`
	Watch     WatchConfig         `toml:"watch"`
}

// Default returns a configuration with every field set
func Default() *Config {
	return &Config{
		DataDir: "data",
		Subject: "user1",
		Log:     logger.DefaultOptions(),
		Storage: storage.Config{
			Driver: storage.DriverJSON,
		},
		Detector:  detector.DefaultConfig(),
		Landmarks: landmark.FaceMesh(),
		Analysis: AnalysisConfig{
			Extension:        region.DefaultExtension,
			FrontalThreshold: landmark.DefaultFrontalThreshold,
		},
		Hairline: hairline.DefaultOptions(),
		Metrics:  metrics.DefaultConfig(),
		Classify: classify.DefaultRules(),
		Progress: progress.DefaultThresholds(),
		Enhancer: enhancer.DefaultOptions(),
		Camera: CameraConfig{
			Width:  1280,
			Height: 720,
			FPS:    30,
		},
		Server: ServerConfig{
			Addr:        ":8080",
			BodyLimitMB: 20,
		},
		Watch: WatchConfig{
			SettleMillis: 500,
		},
	}
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is not an error; an empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	cfg.ApplyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvDataDir); ok && v != "" {
		c.DataDir = v
	}
	if v, ok := lookup(EnvStorageDriver); ok && v != "" {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := lookup(EnvStorageDSN); ok && v != "" {
		c.Storage.DSN = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvORTLibrary); ok && v != "" {
		c.ORTLibrary = v
	}
}

// Save writes the configuration as TOML, creating the parent directory
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects configurations the analysis cannot run with
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}
	if err := c.Landmarks.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if err := c.Progress.Validate(); err != nil {
		return fmt.Errorf("progress: %w", err)
	}
	if err := c.Enhancer.Validate(); err != nil {
		return fmt.Errorf("enhancer: %w", err)
	}
	if err := c.StorageConfig().Validate(); err != nil {
		return err
	}
	if c.Analysis.Extension < 0 {
		return fmt.Errorf("analysis: extension must not be negative, got %v", c.Analysis.Extension)
	}
	if c.Hairline.LowThreshold <= 0 || c.Hairline.HighThreshold < c.Hairline.LowThreshold {
		return fmt.Errorf("hairline: invalid canny thresholds %v/%v", c.Hairline.LowThreshold, c.Hairline.HighThreshold)
	}
	if c.Server.BodyLimitMB <= 0 {
		return fmt.Errorf("server: body_limit_mb must be positive, got %d", c.Server.BodyLimitMB)
	}
	return nil
}

// StorageConfig returns the storage settings with file DSNs defaulted into
// the data directory.
func (c *Config) StorageConfig() storage.Config {
	sc := c.Storage
	if sc.DSN != "" {
		return sc
	}
	switch strings.ToLower(sc.Driver) {
	case storage.DriverJSON:
		sc.DSN = filepath.Join(c.DataDir, jsonHistoryFile)
	case storage.DriverSQLite:
		sc.DSN = filepath.Join(c.DataDir, sqliteHistoryFile)
	}
	return sc
}

// Pipeline returns the analysis pipeline settings
func (c *Config) Pipeline() pipeline.Config {
	return pipeline.Config{
		Table:            c.Landmarks,
		Metrics:          c.Metrics,
		Rules:            c.Classify,
		Extension:        c.Analysis.Extension,
		FrontalThreshold: c.Analysis.FrontalThreshold,
	}
}
