// Package archive manages the on-disk data directory: raw and processed
// input photos, analysis results, progress reports, visualizations and
// exports. Files are named <subject>_<timestamp>[_<kind>].<ext>.
package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/dudu/hairline/internal/imageio"
	"github.com/dudu/hairline/internal/logger"
	"github.com/dudu/hairline/internal/progress"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Kind identifies one archive directory
type Kind string

const (
	RawImages       Kind = "input/raw_images"
	ProcessedImages Kind = "input/processed_images"
	UserData        Kind = "input/user_data"
	Datasets        Kind = "input/datasets"
	Results         Kind = "output/analysis_results"
	Reports         Kind = "output/progress_reports"
	Visualizations  Kind = "output/visualizations"
	Exports         Kind = "output/exports"
)

// Kinds lists every archive directory
var Kinds = []Kind{RawImages, ProcessedImages, UserData, Datasets, Results, Reports, Visualizations, Exports}

// subjectKinds are the directories cleaned per subject
var subjectKinds = []Kind{RawImages, ProcessedImages, Results, Reports, Visualizations}

// ErrInvalidSubject is returned for subject IDs that cannot be used in file names
var ErrInvalidSubject = errors.New("invalid subject id")

// Archive is a data directory rooted at Root.
type Archive struct {
	root string
	log  logrus.FieldLogger
	now  func() time.Time
}

// New opens the archive at root and creates its directories.
func New(root string, log logrus.FieldLogger) (*Archive, error) {
	a := &Archive{root: root, log: logger.OrDiscard(log), now: time.Now}
	if err := a.Setup(); err != nil {
		return nil, err
	}
	return a, nil
}

// Setup creates all archive directories
func (a *Archive) Setup() error {
	for _, k := range Kinds {
		if err := os.MkdirAll(a.Dir(k), 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", k, err)
		}
	}
	return nil
}

// Root returns the archive root directory
func (a *Archive) Root() string {
	return a.root
}

// Dir returns the path of an archive directory
func (a *Archive) Dir(k Kind) string {
	return filepath.Join(a.root, filepath.FromSlash(string(k)))
}

func (a *Archive) timestamp() string {
	return progress.Timestamp(a.now())
}

// ValidateSubject rejects empty subject IDs and IDs containing path separators.
func ValidateSubject(subjectID string) error {
	if strings.TrimSpace(subjectID) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSubject)
	}
	if strings.ContainsAny(subjectID, `/\`) || subjectID == "." || subjectID == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidSubject, subjectID)
	}
	return nil
}

// SaveInput stores a raw photo. An empty name uses <subject>_<timestamp>.jpg.
func (a *Archive) SaveInput(img gocv.Mat, subjectID, name string) (string, error) {
	if err := ValidateSubject(subjectID); err != nil {
		return "", err
	}
	if name == "" {
		name = fmt.Sprintf("%s_%s.jpg", subjectID, a.timestamp())
	}
	return a.saveImage(RawImages, name, img)
}

// SaveProcessed stores a preprocessed photo
func (a *Archive) SaveProcessed(img gocv.Mat, subjectID, description string) (string, error) {
	if err := ValidateSubject(subjectID); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%s_%s.jpg", subjectID, a.timestamp(), description)
	return a.saveImage(ProcessedImages, name, img)
}

// SaveVisualization stores an overlay image
func (a *Archive) SaveVisualization(img gocv.Mat, subjectID, vizType string) (string, error) {
	if err := ValidateSubject(subjectID); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%s_%s.jpg", subjectID, a.timestamp(), vizType)
	return a.saveImage(Visualizations, name, img)
}

func (a *Archive) saveImage(k Kind, name string, img gocv.Mat) (string, error) {
	path := filepath.Join(a.Dir(k), name)
	if err := imageio.Save(path, img); err != nil {
		a.log.WithError(err).WithField("path", path).Error("failed to save image")
		return "", err
	}
	a.log.WithField("path", path).Debug("image saved")
	return path, nil
}

// SaveResult writes an analysis result as indented JSON to
// <subject>_<timestamp>.json. An empty timestamp uses the current time.
func (a *Archive) SaveResult(result any, subjectID, timestamp string) (string, error) {
	if err := ValidateSubject(subjectID); err != nil {
		return "", err
	}
	if timestamp == "" {
		timestamp = a.timestamp()
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}

	path := filepath.Join(a.Dir(Results), fmt.Sprintf("%s_%s.json", subjectID, timestamp))
	if err := writeFile(path, data); err != nil {
		return "", err
	}
	a.log.WithField("path", path).Debug("analysis result saved")
	return path, nil
}

// SaveReport writes a progress report text
func (a *Archive) SaveReport(text, subjectID, reportType string) (string, error) {
	if err := ValidateSubject(subjectID); err != nil {
		return "", err
	}
	path := filepath.Join(a.Dir(Reports), fmt.Sprintf("%s_%s_%s.txt", subjectID, a.timestamp(), reportType))
	if err := writeFile(path, []byte(text)); err != nil {
		return "", err
	}
	a.log.WithField("path", path).Debug("progress report saved")
	return path, nil
}

// ChartPath returns the path for a new progress chart of the subject
func (a *Archive) ChartPath(subjectID string) string {
	return filepath.Join(a.Dir(Visualizations), fmt.Sprintf("%s_%s_progress.png", subjectID, a.timestamp()))
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Entry is one stored analysis result file.
type Entry struct {
	Filename  string `json:"filename"`
	Path      string `json:"path"`
	Timestamp string `json:"timestamp"`
}

// History lists the subject's analysis result files sorted by timestamp.
// Only files named <subject>_*.json match, so subject "al" never picks up
// results of subject "alice".
func (a *Archive) History(subjectID string) ([]Entry, error) {
	if err := ValidateSubject(subjectID); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(a.Dir(Results))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read results: %w", err)
	}

	prefix := subjectID + "_"
	var history []Entry
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		history = append(history, Entry{
			Filename:  name,
			Path:      filepath.Join(a.Dir(Results), name),
			Timestamp: strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json"),
		})
	}

	sort.Slice(history, func(i, j int) bool {
		return history[i].Timestamp < history[j].Timestamp
	})
	return history, nil
}

// Cleanup removes the subject's files older than maxAge from the input and
// output directories and returns how many were removed.
func (a *Archive) Cleanup(subjectID string, maxAge time.Duration) (int, error) {
	if err := ValidateSubject(subjectID); err != nil {
		return 0, err
	}

	cutoff := a.now().Add(-maxAge)
	prefix := subjectID + "_"
	removed := 0

	for _, k := range subjectKinds {
		entries, err := os.ReadDir(a.Dir(k))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return removed, fmt.Errorf("failed to read %s: %w", k, err)
		}

		for _, e := range entries {
			if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			if !info.ModTime().Before(cutoff) {
				continue
			}
			path := filepath.Join(a.Dir(k), e.Name())
			if err := os.Remove(path); err != nil {
				return removed, fmt.Errorf("failed to remove %s: %w", path, err)
			}
			removed++
		}
	}

	a.log.WithFields(logrus.Fields{
		"subject": subjectID,
		"removed": removed,
		"max_age": maxAge,
	}).Info("cleaned up old files")
	return removed, nil
}
