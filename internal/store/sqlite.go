package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/funnel-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	id           TEXT PRIMARY KEY,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	created_by   TEXT,
	source       TEXT NOT NULL,
	board_id     TEXT,
	board_name   TEXT,
	item_count   INTEGER NOT NULL,
	dataset_hash TEXT NOT NULL,
	dataset      TEXT NOT NULL,
	qa           TEXT
);

CREATE TABLE IF NOT EXISTS active_snapshot (
	id          INTEGER PRIMARY KEY CHECK (id = 1),
	snapshot_id TEXT NOT NULL REFERENCES snapshots(id)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_created_at ON snapshots(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Insert(ctx context.Context, snap *model.Snapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}

	datasetJSON, qaJSON, err := marshalPayloads(snap)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal snapshot")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, created_at, created_by, source, board_id, board_name, item_count, dataset_hash, dataset, qa)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.CreatedAt, snap.CreatedBy, string(snap.Source),
		snap.BoardID, snap.BoardName, snap.ItemCount, snap.DatasetHash,
		datasetJSON, qaJSON,
	)
	return eris.Wrapf(err, "sqlite: insert snapshot %s", snap.ID)
}

const sqliteSnapshotCols = `id, created_at, created_by, source, board_id, board_name, item_count, dataset_hash, dataset, qa`

func (s *SQLiteStore) Latest(ctx context.Context) (*model.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteSnapshotCols+` FROM snapshots
		 WHERE id = (SELECT snapshot_id FROM active_snapshot WHERE id = 1)`)
	snap, err := scanSnapshot(row)
	if err == nil {
		return snap, nil
	}
	if !eris.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(err, "sqlite: latest snapshot")
	}

	// No activation pointer yet; fall back to the newest snapshot.
	row = s.db.QueryRowContext(ctx,
		`SELECT `+sqliteSnapshotCols+` FROM snapshots ORDER BY created_at DESC, id DESC LIMIT 1`)
	snap, err = scanSnapshot(row)
	if eris.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest snapshot")
	}
	return snap, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteSnapshotCols+` FROM snapshots WHERE id = ?`, id)
	snap, err := scanSnapshot(row)
	if eris.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get snapshot %s", id)
	}
	return snap, nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]model.Snapshot, error) {
	query := `SELECT id, created_at, created_by, source, board_id, board_name, item_count, dataset_hash
		 FROM snapshots ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list snapshots")
	}
	defer rows.Close()

	var out []model.Snapshot
	for rows.Next() {
		var snap model.Snapshot
		var createdBy, boardID, boardName sql.NullString
		if err := rows.Scan(&snap.ID, &snap.CreatedAt, &createdBy, (*string)(&snap.Source),
			&boardID, &boardName, &snap.ItemCount, &snap.DatasetHash); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan snapshot")
		}
		snap.CreatedBy = createdBy.String
		snap.BoardID = boardID.String
		snap.BoardName = boardName.String
		out = append(out, snap)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list snapshots")
}

func (s *SQLiteStore) SetActive(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO active_snapshot (id, snapshot_id) VALUES (1, ?)
		 ON CONFLICT (id) DO UPDATE SET snapshot_id = excluded.snapshot_id`, id)
	return eris.Wrapf(err, "sqlite: set active snapshot %s", id)
}

func (s *SQLiteStore) Prune(ctx context.Context, keep int) (int, error) {
	if keep <= 0 {
		return 0, eris.New("sqlite: prune keep must be positive")
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots
		 WHERE id NOT IN (SELECT id FROM snapshots ORDER BY created_at DESC, id DESC LIMIT ?)
		   AND id NOT IN (SELECT snapshot_id FROM active_snapshot)`, keep)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prune snapshots")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prune rows affected")
	}
	return int(n), nil
}

func marshalPayloads(snap *model.Snapshot) (string, any, error) {
	datasetJSON, err := json.Marshal(snap.Dataset)
	if err != nil {
		return "", nil, err
	}
	var qaJSON any
	if snap.QA != nil {
		b, err := json.Marshal(snap.QA)
		if err != nil {
			return "", nil, err
		}
		qaJSON = string(b)
	}
	return string(datasetJSON), qaJSON, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*model.Snapshot, error) {
	var snap model.Snapshot
	var createdBy, boardID, boardName, qaJSON sql.NullString
	var datasetJSON string

	if err := row.Scan(&snap.ID, &snap.CreatedAt, &createdBy, (*string)(&snap.Source),
		&boardID, &boardName, &snap.ItemCount, &snap.DatasetHash,
		&datasetJSON, &qaJSON); err != nil {
		return nil, err
	}
	snap.CreatedBy = createdBy.String
	snap.BoardID = boardID.String
	snap.BoardName = boardName.String

	if err := json.Unmarshal([]byte(datasetJSON), &snap.Dataset); err != nil {
		return nil, eris.Wrap(err, "unmarshal dataset")
	}
	if qaJSON.Valid && qaJSON.String != "" {
		if err := json.Unmarshal([]byte(qaJSON.String), &snap.QA); err != nil {
			return nil, eris.Wrap(err, "unmarshal qa report")
		}
	}
	return &snap, nil
}
