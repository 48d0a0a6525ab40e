package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/funnel-cli/internal/db"
	"github.com/sells-group/funnel-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot store operations.
var preparedStatements = map[string]string{
	"insert_snapshot": `INSERT INTO snapshots (id, created_at, created_by, source, board_id, board_name, item_count, dataset_hash, dataset, qa) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
	"get_snapshot":    `SELECT id, created_at, created_by, source, board_id, board_name, item_count, dataset_hash, dataset, qa FROM snapshots WHERE id = $1`,
	"set_active":      `INSERT INTO active_snapshot (id, snapshot_id) VALUES (1, $1) ON CONFLICT (id) DO UPDATE SET snapshot_id = EXCLUDED.snapshot_id`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool creates a PostgresStore over an existing pool. Tests
// use this with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	id           UUID PRIMARY KEY,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	created_by   TEXT,
	source       TEXT NOT NULL,
	board_id     TEXT,
	board_name   TEXT,
	item_count   INTEGER NOT NULL,
	dataset_hash TEXT NOT NULL,
	dataset      JSONB NOT NULL,
	qa           JSONB
);

CREATE TABLE IF NOT EXISTS active_snapshot (
	id          INTEGER PRIMARY KEY CHECK (id = 1),
	snapshot_id UUID NOT NULL REFERENCES snapshots(id)
);

CREATE TABLE IF NOT EXISTS deal_rows (
	snapshot_id       UUID NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	deal_id           TEXT,
	deal              TEXT NOT NULL,
	stage             TEXT,
	funnel_stage      TEXT,
	outcome           TEXT,
	owner             TEXT,
	sellers           TEXT,
	intro_date        DATE,
	start_date        DATE,
	deal_size         DOUBLE PRECISION,
	duration_months   INTEGER,
	industry          TEXT,
	logo              TEXT,
	business_function TEXT,
	channel           TEXT
);

CREATE INDEX IF NOT EXISTS idx_snapshots_created_at ON snapshots(created_at);
CREATE INDEX IF NOT EXISTS idx_deal_rows_snapshot_id ON deal_rows(snapshot_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// dealRowColumns is the COPY column order for the flat deal_rows projection.
var dealRowColumns = []string{
	"snapshot_id", "deal_id", "deal", "stage", "funnel_stage", "outcome",
	"owner", "sellers", "intro_date", "start_date", "deal_size",
	"duration_months", "industry", "logo", "business_function", "channel",
}

// Insert persists the snapshot row plus a flat deal_rows projection for
// direct SQL analysis, bulk-loaded via the COPY protocol.
func (s *PostgresStore) Insert(ctx context.Context, snap *model.Snapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}

	datasetJSON, err := json.Marshal(snap.Dataset)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal dataset")
	}
	var qaJSON []byte
	if snap.QA != nil {
		qaJSON, err = json.Marshal(snap.QA)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal qa report")
		}
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO snapshots (id, created_at, created_by, source, board_id, board_name, item_count, dataset_hash, dataset, qa)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		snap.ID, snap.CreatedAt, nullable(snap.CreatedBy), string(snap.Source),
		nullable(snap.BoardID), nullable(snap.BoardName), snap.ItemCount,
		snap.DatasetHash, datasetJSON, qaJSON,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert snapshot %s", snap.ID)
	}

	if snap.Dataset == nil || len(snap.Dataset.AllDealsRows) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(snap.Dataset.AllDealsRows))
	for _, r := range snap.Dataset.AllDealsRows {
		rows = append(rows, flattenDealRow(snap.ID, r))
	}
	if _, err := db.CopyFrom(ctx, s.pool, "deal_rows", dealRowColumns, rows); err != nil {
		return eris.Wrapf(err, "postgres: copy deal rows for snapshot %s", snap.ID)
	}
	return nil
}

func flattenDealRow(snapshotID string, r model.DealRow) []any {
	var intro, start any
	if r.IntroDate != nil {
		intro = r.IntroDate.Time()
	}
	if r.StartDate != nil {
		start = r.StartDate.Time()
	}
	var size any
	if r.DealSize != nil {
		size = *r.DealSize
	}
	var duration any
	if r.DurationMonths != nil {
		duration = *r.DurationMonths
	}
	return []any{
		snapshotID, nullable(r.ID), r.Name, nullable(r.Stage),
		nullable(r.FunnelStage), string(r.Outcome), nullable(r.Owner),
		nullable(strings.Join(r.Sellers, ", ")), intro, start, size, duration,
		nullable(r.Industry), nullable(r.Logo), nullable(r.BusinessFunction),
		nullable(string(r.Channel)),
	}
}

const postgresSnapshotCols = `id, created_at, created_by, source, board_id, board_name, item_count, dataset_hash, dataset, qa`

func (s *PostgresStore) Latest(ctx context.Context) (*model.Snapshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+postgresSnapshotCols+` FROM snapshots
		 WHERE id = (SELECT snapshot_id FROM active_snapshot WHERE id = 1)`)
	snap, err := scanPgSnapshot(row)
	if err == nil {
		return snap, nil
	}
	if !eris.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(err, "postgres: latest snapshot")
	}

	// No active pointer; fall back to the newest snapshot.
	row = s.pool.QueryRow(ctx,
		`SELECT `+postgresSnapshotCols+` FROM snapshots ORDER BY created_at DESC, id DESC LIMIT 1`)
	snap, err = scanPgSnapshot(row)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest snapshot")
	}
	return snap, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*model.Snapshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+postgresSnapshotCols+` FROM snapshots WHERE id = $1`, id)
	snap, err := scanPgSnapshot(row)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get snapshot %s", id)
	}
	return snap, nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]model.Snapshot, error) {
	query := `SELECT id, created_at, created_by, source, board_id, board_name, item_count, dataset_hash
		 FROM snapshots ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list snapshots")
	}
	defer rows.Close()

	var out []model.Snapshot
	for rows.Next() {
		var snap model.Snapshot
		var createdBy, boardID, boardName *string
		if err := rows.Scan(&snap.ID, &snap.CreatedAt, &createdBy, (*string)(&snap.Source),
			&boardID, &boardName, &snap.ItemCount, &snap.DatasetHash); err != nil {
			return nil, eris.Wrap(err, "postgres: scan snapshot")
		}
		snap.CreatedBy = deref(createdBy)
		snap.BoardID = deref(boardID)
		snap.BoardName = deref(boardName)
		out = append(out, snap)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list snapshots")
}

func (s *PostgresStore) SetActive(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO active_snapshot (id, snapshot_id) VALUES (1, $1)
		 ON CONFLICT (id) DO UPDATE SET snapshot_id = EXCLUDED.snapshot_id`, id)
	return eris.Wrapf(err, "postgres: set active snapshot %s", id)
}

// Prune deletes all but the newest keep snapshots. The active snapshot is
// never deleted. Returns the number of snapshots removed.
func (s *PostgresStore) Prune(ctx context.Context, keep int) (int, error) {
	if keep <= 0 {
		return 0, eris.New("postgres: prune keep must be positive")
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM snapshots
		 WHERE id NOT IN (SELECT id FROM snapshots ORDER BY created_at DESC, id DESC LIMIT $1)
		   AND id NOT IN (SELECT snapshot_id FROM active_snapshot)`, keep)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: prune snapshots")
	}
	return int(tag.RowsAffected()), nil
}

func scanPgSnapshot(row pgx.Row) (*model.Snapshot, error) {
	var snap model.Snapshot
	var createdBy, boardID, boardName *string
	var datasetJSON, qaJSON []byte

	if err := row.Scan(&snap.ID, &snap.CreatedAt, &createdBy, (*string)(&snap.Source),
		&boardID, &boardName, &snap.ItemCount, &snap.DatasetHash,
		&datasetJSON, &qaJSON); err != nil {
		return nil, err
	}
	snap.CreatedBy = deref(createdBy)
	snap.BoardID = deref(boardID)
	snap.BoardName = deref(boardName)

	if err := json.Unmarshal(datasetJSON, &snap.Dataset); err != nil {
		return nil, eris.Wrap(err, "unmarshal dataset")
	}
	if len(qaJSON) > 0 {
		if err := json.Unmarshal(qaJSON, &snap.QA); err != nil {
			return nil, eris.Wrap(err, "unmarshal qa report")
		}
	}
	return &snap, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
