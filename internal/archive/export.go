package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

// ReportFile is one saved progress report
type ReportFile struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

// Export is the backup document for one subject.
type Export struct {
	ExportID   string                `json:"export_id"`
	SubjectID  string                `json:"subject_id"`
	ExportDate time.Time             `json:"export_date"`
	Analyses   []jsoniter.RawMessage `json:"analyses"`
	Reports    []ReportFile          `json:"reports"`
}

// Export collects every analysis result and progress report of the subject
// into one JSON document under output/exports. Unreadable result files are
// skipped with a warning.
func (a *Archive) Export(subjectID string) (string, *Export, error) {
	history, err := a.History(subjectID)
	if err != nil {
		return "", nil, err
	}

	doc := &Export{
		ExportID:   uuid.NewString(),
		SubjectID:  subjectID,
		ExportDate: a.now(),
		Analyses:   make([]jsoniter.RawMessage, 0, len(history)),
		Reports:    []ReportFile{},
	}

	for _, entry := range history {
		data, err := os.ReadFile(entry.Path)
		if err == nil && !json.Valid(data) {
			err = errors.New("invalid JSON")
		}
		if err != nil {
			a.log.WithFields(logrus.Fields{
				"path":  entry.Path,
				"error": err,
			}).Warn("could not load analysis file")
			continue
		}
		doc.Analyses = append(doc.Analyses, jsoniter.RawMessage(data))
	}

	reports, err := a.reportFiles(subjectID)
	if err != nil {
		return "", nil, err
	}
	doc.Reports = append(doc.Reports, reports...)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode export: %w", err)
	}

	path := filepath.Join(a.Dir(Exports), fmt.Sprintf("%s_%s.json", subjectID, a.timestamp()))
	if err := writeFile(path, data); err != nil {
		return "", nil, err
	}

	a.log.WithFields(logrus.Fields{
		"subject":  subjectID,
		"analyses": len(doc.Analyses),
		"reports":  len(doc.Reports),
		"path":     path,
	}).Info("subject data exported")
	return path, doc, nil
}

func (a *Archive) reportFiles(subjectID string) ([]ReportFile, error) {
	entries, err := os.ReadDir(a.Dir(Reports))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read reports: %w", err)
	}

	prefix := subjectID + "_"
	var files []ReportFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		text, err := os.ReadFile(filepath.Join(a.Dir(Reports), e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read report %s: %w", e.Name(), err)
		}
		files = append(files, ReportFile{Filename: e.Name(), Text: string(text)})
	}
	return files, nil
}
