package progress

import (
	"context"
	"fmt"
	"sort"
)

// Tracker records snapshots and builds progress reports on top of a Store.
// It keeps no state of its own; concurrent writers to one subject must be
// serialized by the caller.
type Tracker struct {
	store      Store
	thresholds Thresholds
}

// NewTracker creates a tracker
func NewTracker(store Store, thresholds Thresholds) *Tracker {
	return &Tracker{store: store, thresholds: thresholds}
}

// Store returns the underlying snapshot store
func (t *Tracker) Store() Store {
	return t.store
}

// Record stores a snapshot, replacing any snapshot with the same key.
func (t *Tracker) Record(ctx context.Context, snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	if err := t.store.Put(ctx, snap); err != nil {
		return fmt.Errorf("failed to store snapshot %s/%s: %w", snap.SubjectID, snap.Timestamp, err)
	}
	return nil
}

// Series returns the subject's snapshots sorted by timestamp.
func (t *Tracker) Series(ctx context.Context, subjectID string) ([]Snapshot, error) {
	snaps, err := t.store.List(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots for %s: %w", subjectID, err)
	}
	sort.SliceStable(snaps, func(i, j int) bool {
		return snaps[i].Timestamp < snaps[j].Timestamp
	})
	return snaps, nil
}

// BuildReport computes the subject's trend from the first and last snapshot.
// Fewer than two snapshots yield a report with a no_data or
// insufficient_data status rather than an error.
func (t *Tracker) BuildReport(ctx context.Context, subjectID string) (*Report, error) {
	snaps, err := t.Series(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return t.Evaluate(subjectID, snaps), nil
}

// Evaluate builds a report from an already sorted series.
func (t *Tracker) Evaluate(subjectID string, snaps []Snapshot) *Report {
	report := &Report{SubjectID: subjectID, Samples: len(snaps)}

	switch len(snaps) {
	case 0:
		report.Status = StatusNoData
		report.Message = MessageNoData
		return report
	case 1:
		report.Status = StatusInsufficientData
		report.Message = MessageInsufficientData
		report.Series = seriesOf(snaps)
		return report
	}

	first, last := snaps[0], snaps[len(snaps)-1]

	report.Status = StatusOK
	report.From = first.Timestamp
	report.To = last.Timestamp
	report.HeightDelta = last.HairlineHeight - first.HairlineHeight
	report.DensityDelta = last.DensityScore - first.DensityScore
	report.RatioDelta = last.ForeheadRatio - first.ForeheadRatio
	report.Verdict = t.thresholds.Verdict(report.HeightDelta, report.DensityDelta)
	report.Recommendations = t.thresholds.Recommendations(report.HeightDelta, report.DensityDelta)
	report.Series = seriesOf(snaps)
	return report
}

func seriesOf(snaps []Snapshot) []SeriesPoint {
	points := make([]SeriesPoint, len(snaps))
	for i, s := range snaps {
		points[i] = SeriesPoint{
			Timestamp:      s.Timestamp,
			Date:           s.Date(),
			HairlineHeight: s.HairlineHeight,
			ForeheadRatio:  s.ForeheadRatio,
			DensityScore:   s.DensityScore,
			ProgressScore:  ProgressScore(s.HairlineHeight, s.DensityScore),
		}
	}
	return points
}
