package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestRecordAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Record(ctx, Attempt{Player: "ana", Level: 0, Score: 90, FinishedAt: base}))
	require.NoError(t, store.Record(ctx, Attempt{Player: "ana", Level: 0, Score: 130, NewRecord: true, FinishedAt: base.Add(time.Minute)}))
	require.NoError(t, store.Record(ctx, Attempt{Player: "bo", Level: 2, Score: 10, FinishedAt: base}))

	got, err := store.Recent(ctx, "ana", 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 130, got[0].Score)
	assert.True(t, got[0].NewRecord)
	assert.Equal(t, base.Add(time.Minute), got[0].FinishedAt)
	assert.False(t, got[1].NewRecord)

	got, err = store.Recent(ctx, "ana", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestBest(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	for _, a := range []Attempt{
		{Player: "ana", Level: 0, Score: 40},
		{Player: "ana", Level: 0, Score: 150},
		{Player: "ana", Level: 3, Score: 210},
		{Player: "bo", Level: 0, Score: 999},
	} {
		require.NoError(t, store.Record(ctx, a))
	}

	best, err := store.Best(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, map[int]int{0: 150, 3: 210}, best)
}

func TestNilStore(t *testing.T) {
	var s *Store
	assert.NoError(t, s.Close())
	assert.Error(t, s.Record(context.Background(), Attempt{}))
}
