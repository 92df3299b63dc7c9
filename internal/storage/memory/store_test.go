package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudu/hairline/internal/metrics"
	"github.com/dudu/hairline/internal/progress"
)

var refTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func snapshot(subject, ts string, height float64) progress.Snapshot {
	return progress.Snapshot{
		SubjectID: subject,
		Timestamp: ts,
		Bundle:    metrics.Bundle{HairlineHeight: height},
	}
}

func TestNewStore(t *testing.T) {
	store := NewStore()
	require.NotNil(t, store)
	assert.NotNil(t, store.subjects)
}

func TestStore_PutGet(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, snapshot("alice", "20240101_120000", 0.2)))

	got, err := store.Get(ctx, "alice", "20240101_120000")
	require.NoError(t, err)
	assert.Equal(t, 0.2, got.HairlineHeight)
}

func TestStore_PutOverwrites(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, snapshot("alice", "20240101_120000", 0.2)))
	require.NoError(t, store.Put(ctx, snapshot("alice", "20240101_120000", 0.4)))

	snaps, err := store.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, 0.4, snaps[0].HairlineHeight)
}

func TestStore_PutRejectsInvalid(t *testing.T) {
	store := NewStore()

	err := store.Put(context.Background(), snapshot("", "20240101_120000", 0.2))

	assert.ErrorIs(t, err, progress.ErrInvalidSnapshot)
}

func TestStore_GetNotFound(t *testing.T) {
	store := NewStore()

	_, err := store.Get(context.Background(), "bob", "20240101_120000")

	assert.ErrorIs(t, err, progress.ErrNotFound)
}

func TestStore_ListUnknownSubject(t *testing.T) {
	store := NewStore()

	snaps, err := store.List(context.Background(), "nobody")

	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestStore_SubjectsSorted(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, snapshot("carol", "20240101_120000", 0.2)))
	require.NoError(t, store.Put(ctx, snapshot("alice", "20240101_120000", 0.2)))

	ids, err := store.Subjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "carol"}, ids)
}

func TestStore_Delete(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, snapshot("alice", "20240101_120000", 0.2)))
	require.NoError(t, store.Delete(ctx, "alice", "20240101_120000"))

	ids, err := store.Subjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	assert.ErrorIs(t, store.Delete(ctx, "alice", "20240101_120000"), progress.ErrNotFound)
}

func TestStore_ConcurrentPut(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ts := progress.Timestamp(refTime.AddDate(0, 0, i))
			assert.NoError(t, store.Put(ctx, snapshot("alice", ts, 0.2)))
		}(i)
	}
	wg.Wait()

	snaps, err := store.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, snaps, 20)
}
