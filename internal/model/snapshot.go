package model

import "time"

// SnapshotSource identifies how a snapshot was produced.
type SnapshotSource string

const (
	SnapshotSourceSync   SnapshotSource = "board_sync"
	SnapshotSourceImport SnapshotSource = "xlsx_import"
)

// Snapshot is one persisted dataset version. The store inserts a snapshot,
// repoints "latest" at it, and prunes beyond the retention count; snapshots
// are never mutated after insert.
type Snapshot struct {
	ID          string            `json:"id"`
	CreatedAt   time.Time         `json:"created_at"`
	CreatedBy   string            `json:"created_by,omitempty"`
	Source      SnapshotSource    `json:"source"`
	BoardID     string            `json:"board_id,omitempty"`
	BoardName   string            `json:"board_name,omitempty"`
	ItemCount   int               `json:"item_count"`
	DatasetHash string            `json:"dataset_hash"`
	Dataset     *AggregateDataset `json:"dataset"`
	QA          *QAReport         `json:"qa,omitempty"`
}
