package pipeline

import (
	"context"

	"github.com/sells-group/funnel-cli/internal/model"
	"github.com/sells-group/funnel-cli/internal/store"
	"github.com/sells-group/funnel-cli/pkg/monday"
)

// --- Board client mock ---

type mockClient struct {
	board    *monday.Board
	items    []model.RawRecord
	linked   []model.RawRecord
	boardErr error
	itemsErr error
	byIDsErr error

	byIDsCalls int
}

func (m *mockClient) Board(ctx context.Context, boardID string) (*monday.Board, error) {
	if m.boardErr != nil {
		return nil, m.boardErr
	}
	return m.board, nil
}

func (m *mockClient) Items(ctx context.Context, boardID string, columnIDs []string) ([]model.RawRecord, error) {
	if m.itemsErr != nil {
		return nil, m.itemsErr
	}
	return m.items, nil
}

func (m *mockClient) ItemsByIDs(ctx context.Context, boardID string, ids []string, columnIDs []string) ([]model.RawRecord, error) {
	m.byIDsCalls++
	if m.byIDsErr != nil {
		return nil, m.byIDsErr
	}
	var out []model.RawRecord
	for _, want := range ids {
		for _, rec := range m.linked {
			if rec.ID == want {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

// --- Snapshot store mock ---

type mockStore struct {
	latest    *model.Snapshot
	latestErr error

	inserted  *model.Snapshot
	insertErr error

	activated string
	activeErr error

	pruneKeep int
	pruneErr  error
}

func (m *mockStore) Insert(ctx context.Context, snap *model.Snapshot) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	if snap.ID == "" {
		snap.ID = "snap-test"
	}
	m.inserted = snap
	return nil
}

func (m *mockStore) Latest(ctx context.Context) (*model.Snapshot, error) {
	if m.latestErr != nil {
		return nil, m.latestErr
	}
	if m.latest == nil {
		return nil, store.ErrNoSnapshot
	}
	return m.latest, nil
}

func (m *mockStore) Get(ctx context.Context, id string) (*model.Snapshot, error) {
	return m.latest, nil
}

func (m *mockStore) List(ctx context.Context, limit int) ([]model.Snapshot, error) {
	return nil, nil
}

func (m *mockStore) SetActive(ctx context.Context, id string) error {
	if m.activeErr != nil {
		return m.activeErr
	}
	m.activated = id
	return nil
}

func (m *mockStore) Prune(ctx context.Context, keep int) (int, error) {
	if m.pruneErr != nil {
		return 0, m.pruneErr
	}
	m.pruneKeep = keep
	return 1, nil
}

func (m *mockStore) Migrate(ctx context.Context) error { return nil }
func (m *mockStore) Close() error                      { return nil }
