// Package memory provides an in-memory snapshot store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dudu/hairline/internal/progress"
)

// Ensure Store implements the interface.
var _ progress.Store = (*Store)(nil)

// Store is an in-memory implementation of progress.Store.
type Store struct {
	mu       sync.RWMutex
	subjects map[string]map[string]progress.Snapshot
}

// NewStore creates a new in-memory snapshot store.
func NewStore() *Store {
	return &Store{
		subjects: make(map[string]map[string]progress.Snapshot),
	}
}

// Put stores or replaces a snapshot.
func (s *Store) Put(_ context.Context, snap progress.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	series, ok := s.subjects[snap.SubjectID]
	if !ok {
		series = make(map[string]progress.Snapshot)
		s.subjects[snap.SubjectID] = series
	}
	series[snap.Timestamp] = snap
	return nil
}

// Get retrieves one snapshot.
func (s *Store) Get(_ context.Context, subjectID, timestamp string) (*progress.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.subjects[subjectID][timestamp]
	if !ok {
		return nil, progress.ErrNotFound
	}
	return &snap, nil
}

// List returns every snapshot of a subject.
func (s *Store) List(_ context.Context, subjectID string) ([]progress.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.subjects[subjectID]
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

	ids := make([]string, 0, len(s.subjects))
	for id, series := range s.subjects {
		if len(series) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes one snapshot.
func (s *Store) Delete(_ context.Context, subjectID, timestamp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	series, ok := s.subjects[subjectID]
	if !ok {
		return progress.ErrNotFound
	}
	if _, ok := series[timestamp]; !ok {
		return progress.ErrNotFound
	}
	delete(series, timestamp)
	if len(series) == 0 {
		delete(s.subjects, subjectID)
	}
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
