// Package jsonfile stores snapshots in a single JSON document laid out as
// {subject: {timestamp: snapshot}}.
package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/dudu/hairline/internal/logger"
	"github.com/dudu/hairline/internal/progress"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Ensure Store implements the interface.
var _ progress.Store = (*Store)(nil)

type document map[string]map[string]progress.Snapshot

// Store is a progress.Store backed by one JSON file. The whole document is
// rewritten on every change.
type Store struct {
	mu   sync.RWMutex
	path string
	data document
	log  logrus.FieldLogger
}

// NewStore opens the JSON file at path. A missing or empty file starts an
// empty history; a corrupt file is logged and replaced on the next write.
func NewStore(path string, log logrus.FieldLogger) (*Store, error) {
	s := &Store{
		path: path,
		data: make(document),
		log:  logger.OrDiscard(log),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	if len(raw) == 0 {
		return nil
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.log.WithFields(logrus.Fields{
			"path":  s.path,
			"error": err.Error(),
		}).Warn("corrupted history file, resetting data")
		return nil
	}

	// keys in the file win over keys inside the records
	for subject, series := range doc {
		for ts, snap := range series {
			snap.SubjectID = subject
			snap.Timestamp = ts
			series[ts] = snap
		}
	}
	s.data = doc
	return nil
}

// save writes the document to a temp file and renames it over the target.
func (s *Store) save() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}

// Put stores or replaces a snapshot and rewrites the file. On write failure
// the in-memory state is left unchanged.
func (s *Store) Put(_ context.Context, snap progress.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	series, existed := s.data[snap.SubjectID]
	prev, hadPrev := series[snap.Timestamp]
	if !existed {
		series = make(map[string]progress.Snapshot)
		s.data[snap.SubjectID] = series
	}
	series[snap.Timestamp] = snap

	if err := s.save(); err != nil {
		switch {
		case !existed:
			delete(s.data, snap.SubjectID)
		case hadPrev:
			series[snap.Timestamp] = prev
		default:
			delete(series, snap.Timestamp)
		}
		return err
	}
	return nil
}

// Get retrieves one snapshot.
func (s *Store) Get(_ context.Context, subjectID, timestamp string) (*progress.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.data[subjectID][timestamp]
	if !ok {
		return nil, progress.ErrNotFound
	}
	return &snap, nil
}

// List returns every snapshot of a subject.
func (s *Store) List(_ context.Context, subjectID string) ([]progress.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.data[subjectID]
	snaps := make([]progress.Snapshot, 0, len(series))
	for _, snap := range series {
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// Subjects returns the subject IDs with at least one snapshot, sorted.
func (s *Store) Subjects(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id, series := range s.data {
		if len(series) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes one snapshot and rewrites the file.
func (s *Store) Delete(_ context.Context, subjectID, timestamp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	series := s.data[subjectID]
	prev, ok := series[timestamp]
	if !ok {
		return progress.ErrNotFound
	}

	delete(series, timestamp)
	if len(series) == 0 {
		delete(s.data, subjectID)
	}
	if err := s.save(); err != nil {
		if len(series) == 0 {
			s.data[subjectID] = series
		}
		series[timestamp] = prev
		return err
	}
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
