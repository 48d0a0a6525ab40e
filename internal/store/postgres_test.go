package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/funnel-cli/internal/model"
)

func newMockPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func pgSnapshotRow(t *testing.T, snap *model.Snapshot) *pgxmock.Rows {
	t.Helper()
	datasetJSON, err := json.Marshal(snap.Dataset)
	require.NoError(t, err)
	var qaJSON []byte
	if snap.QA != nil {
		qaJSON, err = json.Marshal(snap.QA)
		require.NoError(t, err)
	}
	var createdBy, boardID, boardName *string
	if snap.CreatedBy != "" {
		createdBy = &snap.CreatedBy
	}
	if snap.BoardID != "" {
		boardID = &snap.BoardID
	}
	if snap.BoardName != "" {
		boardName = &snap.BoardName
	}
	return pgxmock.NewRows([]string{
		"id", "created_at", "created_by", "source", "board_id", "board_name",
		"item_count", "dataset_hash", "dataset", "qa",
	}).AddRow(snap.ID, snap.CreatedAt, createdBy, string(snap.Source),
		boardID, boardName, snap.ItemCount, snap.DatasetHash, datasetJSON, qaJSON)
}

// anySnapshotArgs matches the ten snapshots INSERT placeholders without
// constraining their values; pgxmock requires the argument count to match.
func anySnapshotArgs() []any {
	args := make([]any, 10)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestPostgresStore_Insert(t *testing.T) {
	s, mock := newMockPostgres(t)
	ctx := context.Background()

	snap := testSnapshot("b7c3d1e0-0000-0000-0000-000000000001", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))

	mock.ExpectExec("INSERT INTO snapshots").
		WithArgs(anySnapshotArgs()...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"deal_rows"}, dealRowColumns).
		WillReturnResult(int64(len(snap.Dataset.AllDealsRows)))

	require.NoError(t, s.Insert(ctx, snap))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertSkipsCopyWithoutRows(t *testing.T) {
	s, mock := newMockPostgres(t)
	ctx := context.Background()

	snap := testSnapshot("b7c3d1e0-0000-0000-0000-000000000002", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	snap.Dataset.AllDealsRows = nil

	mock.ExpectExec("INSERT INTO snapshots").
		WithArgs(anySnapshotArgs()...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.Insert(ctx, snap))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestPrefersActive(t *testing.T) {
	s, mock := newMockPostgres(t)

	snap := testSnapshot("active-id", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	mock.ExpectQuery("FROM active_snapshot").
		WillReturnRows(pgSnapshotRow(t, snap))

	got, err := s.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "active-id", got.ID)
	require.NotNil(t, got.Dataset)
	assert.Len(t, got.Dataset.AllDealsRows, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestFallsBackToNewest(t *testing.T) {
	s, mock := newMockPostgres(t)

	snap := testSnapshot("newest-id", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	mock.ExpectQuery("FROM active_snapshot").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("ORDER BY created_at DESC").
		WillReturnRows(pgSnapshotRow(t, snap))

	got, err := s.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "newest-id", got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestEmpty(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery("FROM active_snapshot").WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("ORDER BY created_at DESC").WillReturnError(pgx.ErrNoRows)

	_, err := s.Latest(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetNotFound(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery("FROM snapshots WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNoSnapshot)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List(t *testing.T) {
	s, mock := newMockPostgres(t)

	name := "Pipeline"
	rows := pgxmock.NewRows([]string{
		"id", "created_at", "created_by", "source", "board_id", "board_name",
		"item_count", "dataset_hash",
	}).
		AddRow("s2", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), (*string)(nil), "board_sync", (*string)(nil), &name, 5, "h2").
		AddRow("s1", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), (*string)(nil), "xlsx_import", (*string)(nil), (*string)(nil), 3, "h1")

	mock.ExpectQuery("FROM snapshots ORDER BY created_at DESC").
		WithArgs(10).
		WillReturnRows(rows)

	snaps, err := s.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "s2", snaps[0].ID)
	assert.Equal(t, "Pipeline", snaps[0].BoardName)
	assert.Equal(t, model.SnapshotSourceImport, snaps[1].Source)
	assert.Empty(t, snaps[1].BoardName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetActive(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec("INSERT INTO active_snapshot").
		WithArgs("snap-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SetActive(context.Background(), "snap-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Prune(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec("DELETE FROM snapshots").
		WithArgs(52).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	removed, err := s.Prune(context.Background(), 52)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = s.Prune(context.Background(), 0)
	require.Error(t, err)
}

func TestFlattenDealRow(t *testing.T) {
	intro := model.NewDate(2025, time.January, 15)
	size := 120000.0
	months := 6
	r := model.DealRow{
		ID:             "77",
		Name:           "Acme",
		Stage:          "2. Qualification",
		FunnelStage:    "2. Qualification",
		Outcome:        model.OutcomeOpen,
		Owner:          "Avery Chen",
		Sellers:        []string{"Avery", "Blake"},
		IntroDate:      &intro,
		DealSize:       &size,
		DurationMonths: &months,
		Industry:       "Healthcare",
	}

	vals := flattenDealRow("snap-1", r)
	require.Len(t, vals, len(dealRowColumns))
	assert.Equal(t, "snap-1", vals[0])
	assert.Equal(t, "Acme", vals[2])
	assert.Equal(t, "Avery, Blake", *(vals[7].(*string)))
	assert.Equal(t, intro.Time(), vals[8])
	assert.Nil(t, vals[9]) // no start date
	assert.Equal(t, 120000.0, vals[10])
	assert.Equal(t, 6, vals[11])
	assert.Nil(t, vals[13]) // no logo
}
