package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudu/hairline/internal/classify"
	"github.com/dudu/hairline/internal/metrics"
	"github.com/dudu/hairline/internal/progress"
)

func snapshot(subject, ts string) progress.Snapshot {
	return progress.Snapshot{
		SubjectID: subject,
		Timestamp: ts,
		Bundle: metrics.Bundle{
			HairlineHeight:  0.21,
			ForeheadRatio:   0.33,
			DensityScore:    0.5,
			SymmetryScore:   0.75,
			RecessionScore:  metrics.RecessionPlaceholder,
			AnalysisQuality: metrics.QualityPlaceholder,
		},
		HairlineType: classify.Normal,
		RecordedAt:   time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRowConversion(t *testing.T) {
	want := snapshot("alice", "20240101_120000")

	row := toRow(want)
	assert.Equal(t, "2024-01-01T12:00:00Z", row.RecordedAt)
	assert.Equal(t, "Normal", row.HairlineType)

	got := row.snapshot()
	assert.Equal(t, want.Bundle, got.Bundle)
	assert.True(t, want.RecordedAt.Equal(got.RecordedAt))
}

func TestRowConversion_ZeroTime(t *testing.T) {
	snap := snapshot("alice", "20240101_120000")
	snap.RecordedAt = time.Time{}

	row := toRow(snap)

	assert.Empty(t, row.RecordedAt)
	assert.True(t, row.snapshot().RecordedAt.IsZero())
}

// TestStore_Postgres runs against a live database when
// HAIRLINE_TEST_POSTGRES_DSN is set.
func TestStore_Postgres(t *testing.T) {
	dsn := os.Getenv("HAIRLINE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("HAIRLINE_TEST_POSTGRES_DSN not set")
	}

	store, err := New(dsn, nil)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	subject := "test-" + time.Now().Format("150405.000000")
	t.Cleanup(func() {
		_, _ = store.db.Exec(store.db.Rebind("DELETE FROM snapshots WHERE subject_id = ?"), subject)
	})

	require.NoError(t, store.Put(ctx, snapshot(subject, "20240201_120000")))
	require.NoError(t, store.Put(ctx, snapshot(subject, "20240101_120000")))

	snaps, err := store.List(ctx, subject)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "20240101_120000", snaps[0].Timestamp)

	got, err := store.Get(ctx, subject, "20240201_120000")
	require.NoError(t, err)
	assert.Equal(t, 0.21, got.HairlineHeight)

	boundary := snapshot(subject, "20240301_120000")
	boundary.HairlineHeight = 0.31
	require.NoError(t, store.Put(ctx, boundary))
	got, err = store.Get(ctx, subject, "20240301_120000")
	require.NoError(t, err)
	assert.Equal(t, 0.31, got.HairlineHeight)
	require.NoError(t, store.Delete(ctx, subject, "20240301_120000"))

	require.NoError(t, store.Delete(ctx, subject, "20240201_120000"))
	_, err = store.Get(ctx, subject, "20240201_120000")
	assert.ErrorIs(t, err, progress.ErrNotFound)
}
