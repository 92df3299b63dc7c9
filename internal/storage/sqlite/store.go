// Package sqlite provides a SQLite-backed snapshot store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/dudu/hairline/internal/classify"
	"github.com/dudu/hairline/internal/progress"
	"github.com/dudu/hairline/internal/storage/migrations"
)

// Ensure Store implements the interface.
var _ progress.Store = (*Store)(nil)

// Store is a SQLite implementation of progress.Store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens or creates the database at path and runs pending migrations.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := migrations.Apply(db, migrations.FS, nil); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Put stores or replaces a snapshot.
func (s *Store) Put(ctx context.Context, snap progress.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (
			subject_id, timestamp, hairline_height, forehead_ratio, density_score,
			symmetry_score, recession_score, analysis_quality, hairline_type, recorded_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(subject_id, timestamp) DO UPDATE SET
			hairline_height = excluded.hairline_height,
			forehead_ratio = excluded.forehead_ratio,
			density_score = excluded.density_score,
			symmetry_score = excluded.symmetry_score,
			recession_score = excluded.recession_score,
			analysis_quality = excluded.analysis_quality,
			hairline_type = excluded.hairline_type,
			recorded_at = excluded.recorded_at
	`,
		snap.SubjectID, snap.Timestamp, snap.HairlineHeight, snap.ForeheadRatio, snap.DensityScore,
		snap.SymmetryScore, snap.RecessionScore, snap.AnalysisQuality, string(snap.HairlineType),
		formatTime(snap.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

const selectSnapshot = `
	SELECT subject_id, timestamp, hairline_height, forehead_ratio, density_score,
		symmetry_score, recession_score, analysis_quality, hairline_type, recorded_at
	FROM snapshots`

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (progress.Snapshot, error) {
	var (
		snap       progress.Snapshot
		kind       string
		recordedAt string
	)
	err := row.Scan(
		&snap.SubjectID, &snap.Timestamp, &snap.HairlineHeight, &snap.ForeheadRatio, &snap.DensityScore,
		&snap.SymmetryScore, &snap.RecessionScore, &snap.AnalysisQuality, &kind, &recordedAt,
	)
	if err != nil {
		return snap, err
	}
	snap.HairlineType = classify.Type(kind)
	snap.RecordedAt = parseTime(recordedAt)
	return snap, nil
}

// Get retrieves one snapshot.
func (s *Store) Get(ctx context.Context, subjectID, timestamp string) (*progress.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, selectSnapshot+" WHERE subject_id = ? AND timestamp = ?", subjectID, timestamp)

	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, progress.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}
	return &snap, nil
}

// List returns every snapshot of a subject ordered by timestamp.
func (s *Store) List(ctx context.Context, subjectID string) ([]progress.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, selectSnapshot+" WHERE subject_id = ? ORDER BY timestamp", subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	snaps := []progress.Snapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// Subjects returns the subject IDs with at least one snapshot, sorted.
func (s *Store) Subjects(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT subject_id FROM snapshots ORDER BY subject_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query subjects: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan subject: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes one snapshot.
func (s *Store) Delete(ctx context.Context, subjectID, timestamp string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE subject_id = ? AND timestamp = ?", subjectID, timestamp)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	if n == 0 {
		return progress.ErrNotFound
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
