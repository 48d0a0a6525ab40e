// Package store persists dataset snapshots. Snapshots are immutable once
// inserted; an activation pointer selects the one the API and analyst serve,
// and pruning keeps the history bounded.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/funnel-cli/internal/model"
)

// ErrNoSnapshot is returned when no snapshot exists yet.
var ErrNoSnapshot = eris.New("store: no snapshot")

// Store defines the snapshot persistence interface.
type Store interface {
	// Insert persists a new snapshot. It does not activate it.
	Insert(ctx context.Context, snap *model.Snapshot) error

	// Latest returns the active snapshot, falling back to the newest one
	// when the activation pointer is unset. ErrNoSnapshot when empty.
	Latest(ctx context.Context) (*model.Snapshot, error)

	// Get returns one snapshot by id.
	Get(ctx context.Context, id string) (*model.Snapshot, error)

	// List returns snapshot metadata newest-first, without the dataset and
	// QA payloads. limit <= 0 means no limit.
	List(ctx context.Context, limit int) ([]model.Snapshot, error)

	// SetActive repoints the activation pointer.
	SetActive(ctx context.Context, id string) error

	// Prune deletes the oldest snapshots beyond keep, never the active
	// one. Returns the number deleted.
	Prune(ctx context.Context, keep int) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn, poolCfg)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
