// Package progress stores per-subject metric snapshots and turns a snapshot
// series into a trend report with recommendations.
package progress

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dudu/hairline/internal/classify"
	"github.com/dudu/hairline/internal/metrics"
)

// TimestampLayout is the snapshot key format. Keys in this layout sort
// lexicographically in time order.
const TimestampLayout = "20060102_150405"

var (
	// ErrNotFound is returned when a snapshot does not exist
	ErrNotFound = errors.New("snapshot not found")
	// ErrInvalidSnapshot is returned for snapshots without a subject or timestamp
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// Timestamp formats t as a snapshot key
func Timestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseTimestamp parses a snapshot key.
func ParseTimestamp(ts string) (time.Time, error) {
	t, err := time.ParseInLocation(TimestampLayout, ts, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", ts, err)
	}
	return t, nil
}

// Snapshot is one subject's metric bundle at one timestamp.
type Snapshot struct {
	SubjectID string `json:"subject_id"`
	Timestamp string `json:"timestamp"`
	metrics.Bundle
	HairlineType classify.Type `json:"hairline_type"`
	RecordedAt   time.Time     `json:"recorded_at"`
}

// Validate checks the snapshot key
func (s Snapshot) Validate() error {
	if strings.TrimSpace(s.SubjectID) == "" {
		return fmt.Errorf("%w: empty subject", ErrInvalidSnapshot)
	}
	if strings.TrimSpace(s.Timestamp) == "" {
		return fmt.Errorf("%w: empty timestamp", ErrInvalidSnapshot)
	}
	return nil
}

// Date returns the date part of the timestamp key
func (s Snapshot) Date() string {
	date, _, _ := strings.Cut(s.Timestamp, "_")
	return date
}

// Store persists snapshots keyed by (subject, timestamp).
//
// Put overwrites an existing snapshot with the same key. List returns the
// subject's snapshots in no particular order; an unknown subject yields an
// empty list, not an error.
type Store interface {
	Put(ctx context.Context, snap Snapshot) error
	Get(ctx context.Context, subjectID, timestamp string) (*Snapshot, error)
	List(ctx context.Context, subjectID string) ([]Snapshot, error)
	Subjects(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, subjectID, timestamp string) error
}
