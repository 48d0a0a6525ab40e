package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/funnel-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testSnapshot(id string, createdAt time.Time) *model.Snapshot {
	return &model.Snapshot{
		ID:          id,
		CreatedAt:   createdAt,
		Source:      model.SnapshotSourceSync,
		BoardID:     "123",
		BoardName:   "Pipeline",
		ItemCount:   2,
		DatasetHash: "hash-" + id,
		Dataset: &model.AggregateDataset{
			Sellers: []string{"Avery"},
			AllDealsRows: []model.DealRow{
				{Name: "Acme", Stage: "2. Qualification"},
				{Name: "Globex", Stage: "1. Intro"},
			},
		},
	}
}

func TestSQLiteStore_InsertAndGet(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	snap := testSnapshot("a1", time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))
	snap.QA = &model.QAReport{Status: model.QAStatusPass, Score: 100}
	require.NoError(t, s.Insert(ctx, snap))

	got, err := s.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)
	assert.Equal(t, model.SnapshotSourceSync, got.Source)
	assert.Equal(t, "Pipeline", got.BoardName)
	assert.Equal(t, "hash-a1", got.DatasetHash)
	require.NotNil(t, got.Dataset)
	assert.Len(t, got.Dataset.AllDealsRows, 2)
	require.NotNil(t, got.QA)
	assert.Equal(t, model.QAStatusPass, got.QA.Status)
}

func TestSQLiteStore_InsertAssignsIDAndTimestamp(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	snap := testSnapshot("", time.Time{})
	require.NoError(t, s.Insert(ctx, snap))
	assert.NotEmpty(t, snap.ID)
	assert.False(t, snap.CreatedAt.IsZero())

	got, err := s.Get(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, got.ID)
}

func TestSQLiteStore_GetNotFound(t *testing.T) {
	s := newTestSQLiteStore(t)

	_, err := s.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestSQLiteStore_LatestFallsBackToNewest(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, testSnapshot("old", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))))
	require.NoError(t, s.Insert(ctx, testSnapshot("new", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))))

	// No active pointer yet, so Latest returns the newest by created_at.
	got, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", got.ID)
}

func TestSQLiteStore_LatestPrefersActive(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, testSnapshot("old", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))))
	require.NoError(t, s.Insert(ctx, testSnapshot("new", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))))
	require.NoError(t, s.SetActive(ctx, "old"))

	got, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "old", got.ID)

	// Repointing the active snapshot replaces the previous pointer.
	require.NoError(t, s.SetActive(ctx, "new"))
	got, err = s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", got.ID)
}

func TestSQLiteStore_LatestEmpty(t *testing.T) {
	s := newTestSQLiteStore(t)

	_, err := s.Latest(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestSQLiteStore_List(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	for i, id := range []string{"s1", "s2", "s3"} {
		require.NoError(t, s.Insert(ctx, testSnapshot(id, time.Date(2025, 1, i+1, 0, 0, 0, 0, time.UTC))))
	}

	snaps, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.Equal(t, "s3", snaps[0].ID)
	assert.Equal(t, "s1", snaps[2].ID)
	// List returns metadata only.
	assert.Nil(t, snaps[0].Dataset)

	snaps, err = s.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, snaps, 2)
}

func TestSQLiteStore_PruneKeepsActive(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	for i, id := range []string{"s1", "s2", "s3", "s4"} {
		require.NoError(t, s.Insert(ctx, testSnapshot(id, time.Date(2025, 1, i+1, 0, 0, 0, 0, time.UTC))))
	}
	require.NoError(t, s.SetActive(ctx, "s1"))

	// Keep the 2 newest; s1 survives only because it is active.
	removed, err := s.Prune(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	snaps, err := s.List(ctx, 0)
	require.NoError(t, err)
	ids := make([]string, 0, len(snaps))
	for _, snap := range snaps {
		ids = append(ids, snap.ID)
	}
	assert.ElementsMatch(t, []string{"s1", "s3", "s4"}, ids)
}

func TestSQLiteStore_PruneInvalidKeep(t *testing.T) {
	s := newTestSQLiteStore(t)

	_, err := s.Prune(context.Background(), 0)
	require.Error(t, err)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "dsn", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql")
}

func TestOpen_DefaultsToSQLite(t *testing.T) {
	s, err := Open(context.Background(), "", filepath.Join(t.TempDir(), "open.db"), nil)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.Latest(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)
}
