// Package postgres provides a Postgres-backed snapshot store.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // Postgres driver
	"github.com/sirupsen/logrus"

	"github.com/dudu/hairline/internal/classify"
	"github.com/dudu/hairline/internal/logger"
	"github.com/dudu/hairline/internal/metrics"
	"github.com/dudu/hairline/internal/progress"
	"github.com/dudu/hairline/internal/storage/migrations"
)

const (
	queryUpsertSnapshot = `
		INSERT INTO snapshots (
			subject_id, timestamp, hairline_height, forehead_ratio, density_score,
			symmetry_score, recession_score, analysis_quality, hairline_type, recorded_at
		)
		VALUES (
			:subject_id, :timestamp, :hairline_height, :forehead_ratio, :density_score,
			:symmetry_score, :recession_score, :analysis_quality, :hairline_type, :recorded_at
		)
		ON CONFLICT (subject_id, timestamp) DO UPDATE SET
			hairline_height = EXCLUDED.hairline_height,
			forehead_ratio = EXCLUDED.forehead_ratio,
			density_score = EXCLUDED.density_score,
			symmetry_score = EXCLUDED.symmetry_score,
			recession_score = EXCLUDED.recession_score,
			analysis_quality = EXCLUDED.analysis_quality,
			hairline_type = EXCLUDED.hairline_type,
			recorded_at = EXCLUDED.recorded_at`

	querySelectSnapshot = `
		SELECT subject_id, timestamp, hairline_height, forehead_ratio, density_score,
			symmetry_score, recession_score, analysis_quality, hairline_type, recorded_at
		FROM snapshots`

	queryGetSnapshot    = querySelectSnapshot + ` WHERE subject_id = ? AND timestamp = ?`
	queryListSnapshots  = querySelectSnapshot + ` WHERE subject_id = ? ORDER BY timestamp`
	queryListSubjects   = `SELECT DISTINCT subject_id FROM snapshots ORDER BY subject_id`
	queryDeleteSnapshot = `DELETE FROM snapshots WHERE subject_id = ? AND timestamp = ?`
)

// Ensure Store implements the interface.
var _ progress.Store = (*Store)(nil)

// SnapshotDB is the snapshots table row
type SnapshotDB struct {
	SubjectID       string  `db:"subject_id"`
	Timestamp       string  `db:"timestamp"`
	HairlineHeight  float64 `db:"hairline_height"`
	ForeheadRatio   float64 `db:"forehead_ratio"`
	DensityScore    float64 `db:"density_score"`
	SymmetryScore   float64 `db:"symmetry_score"`
	RecessionScore  float64 `db:"recession_score"`
	AnalysisQuality float64 `db:"analysis_quality"`
	HairlineType    string  `db:"hairline_type"`
	RecordedAt      string  `db:"recorded_at"`
}

func toRow(s progress.Snapshot) SnapshotDB {
	row := SnapshotDB{
		SubjectID:       s.SubjectID,
		Timestamp:       s.Timestamp,
		HairlineHeight:  s.HairlineHeight,
		ForeheadRatio:   s.ForeheadRatio,
		DensityScore:    s.DensityScore,
		SymmetryScore:   s.SymmetryScore,
		RecessionScore:  s.RecessionScore,
		AnalysisQuality: s.AnalysisQuality,
		HairlineType:    string(s.HairlineType),
	}
	if !s.RecordedAt.IsZero() {
		row.RecordedAt = s.RecordedAt.UTC().Format(time.RFC3339Nano)
	}
	return row
}

func (r SnapshotDB) snapshot() progress.Snapshot {
	snap := progress.Snapshot{
		SubjectID: r.SubjectID,
		Timestamp: r.Timestamp,
		Bundle: metrics.Bundle{
			HairlineHeight:  r.HairlineHeight,
			ForeheadRatio:   r.ForeheadRatio,
			DensityScore:    r.DensityScore,
			SymmetryScore:   r.SymmetryScore,
			RecessionScore:  r.RecessionScore,
			AnalysisQuality: r.AnalysisQuality,
		},
		HairlineType: classify.Type(r.HairlineType),
	}
	if t, err := time.Parse(time.RFC3339Nano, r.RecordedAt); err == nil {
		snap.RecordedAt = t
	}
	return snap
}

// Store is a Postgres implementation of progress.Store.
type Store struct {
	db  *sqlx.DB
	log logrus.FieldLogger
}

// New connects to Postgres and runs pending migrations.
func New(dsn string, log logrus.FieldLogger) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := migrations.Apply(db.DB, migrations.FS, db.Rebind); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return NewWithDB(db, log), nil
}

// NewWithDB wraps an already migrated connection.
func NewWithDB(db *sqlx.DB, log logrus.FieldLogger) *Store {
	return &Store{db: db, log: logger.OrDiscard(log)}
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores or replaces a snapshot.
func (s *Store) Put(ctx context.Context, snap progress.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	query, args, err := sqlx.Named(queryUpsertSnapshot, toRow(snap))
	if err != nil {
		return fmt.Errorf("failed to build upsert query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		s.log.WithFields(logrus.Fields{
			"subject":   snap.SubjectID,
			"timestamp": snap.Timestamp,
			"error":     err.Error(),
		}).Error("database error when saving snapshot")
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Get retrieves one snapshot.
func (s *Store) Get(ctx context.Context, subjectID, timestamp string) (*progress.Snapshot, error) {
	var row SnapshotDB
	if err := s.db.GetContext(ctx, &row, s.db.Rebind(queryGetSnapshot), subjectID, timestamp); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, progress.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	snap := row.snapshot()
	return &snap, nil
}

// List returns every snapshot of a subject ordered by timestamp.
func (s *Store) List(ctx context.Context, subjectID string) ([]progress.Snapshot, error) {
	var rows []SnapshotDB
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(queryListSnapshots), subjectID); err != nil {
		s.log.WithFields(logrus.Fields{
			"subject": subjectID,
			"error":   err.Error(),
		}).Error("database error when listing snapshots")
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	snaps := make([]progress.Snapshot, len(rows))
	for i, r := range rows {
		snaps[i] = r.snapshot()
	}
	return snaps, nil
}

// Subjects returns the subject IDs with at least one snapshot, sorted.
func (s *Store) Subjects(ctx context.Context) ([]string, error) {
	ids := []string{}
	if err := s.db.SelectContext(ctx, &ids, queryListSubjects); err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	return ids, nil
}

// Delete removes one snapshot.
func (s *Store) Delete(ctx context.Context, subjectID, timestamp string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(queryDeleteSnapshot), subjectID, timestamp)
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
