package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/funnel-cli/internal/classify"
	"github.com/sells-group/funnel-cli/internal/dataset"
	"github.com/sells-group/funnel-cli/internal/join"
	"github.com/sells-group/funnel-cli/internal/model"
	"github.com/sells-group/funnel-cli/internal/qa"
	"github.com/sells-group/funnel-cli/internal/store"
	"github.com/sells-group/funnel-cli/pkg/monday"
)

// Config wires one sync run.
type Config struct {
	BoardID         string
	AccountsBoardID string

	// Optional pins for the industry join; discovery runs when blank.
	AccountLinkColumnID     string
	AccountIndustryColumnID string

	Sellers   []classify.Seller
	Cutoff    model.Date
	Retention int
	CreatedBy string
}

// Result reports what a completed run produced.
type Result struct {
	Snapshot *model.Snapshot
	Pruned   int
}

// Syncer runs the full board-to-snapshot pipeline.
type Syncer struct {
	client monday.Client
	store  store.Store
	cfg    Config
	now    func() time.Time
}

// New creates a Syncer.
func New(client monday.Client, st store.Store, cfg Config) *Syncer {
	return &Syncer{client: client, store: st, cfg: cfg, now: time.Now}
}

// Run fetches the board, builds a dataset, audits it against the previous
// snapshot, and persists the result. Upstream and persistence errors abort
// with no state change; data defects flow into the QA report instead. With
// dryRun set, nothing is written.
func (s *Syncer) Run(ctx context.Context, dryRun bool) (*Result, error) {
	log := zap.L().With(zap.String("board_id", s.cfg.BoardID))

	board, err := s.client.Board(ctx, s.cfg.BoardID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: fetch board")
	}
	records, err := s.client.Items(ctx, s.cfg.BoardID, nil)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: fetch items")
	}
	log.Info("board fetched",
		zap.String("board_name", board.Name),
		zap.Int("items", len(records)),
		zap.Int("columns", len(board.Columns)))

	roster := classify.NewRoster(s.cfg.Sellers)
	norm := NewNormalizer(board.Columns, roster)

	// Industry lives on the accounts board when one is configured; a failed
	// join degrades to the direct column value.
	engine := join.New(s.client, join.Config{
		TargetBoardID:  s.cfg.AccountsBoardID,
		LinkColumnID:   s.cfg.AccountLinkColumnID,
		TargetColumnID: s.cfg.AccountIndustryColumnID,
		FieldName:      "industry",
		TitleHints:     []string{"account", "contact"},
	})
	industryByID := engine.Resolve(ctx, board.Columns, records, norm.IndustryColumnID())

	asOf := model.DateOf(s.now().UTC())
	ds := buildDataset(norm, records, industryByID, dataset.Options{
		Cutoff:       s.cfg.Cutoff,
		AsOf:         asOf,
		SellerLabels: roster.Labels(),
		Meta: model.DatasetMeta{
			IntroDateCutoff: s.cfg.Cutoff.String(),
			CutoffMonth:     s.cfg.Cutoff.Month(),
			DateBasis:       "intro_date",
			Source:          string(model.SnapshotSourceSync),
			MondayBoardID:   board.ID,
			MondayBoardName: board.Name,
		},
	})

	hash, err := hashDataset(ds)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: hash dataset")
	}

	previous, err := s.store.Latest(ctx)
	if err != nil && !eris.Is(err, store.ErrNoSnapshot) {
		return nil, eris.Wrap(err, "pipeline: load previous snapshot")
	}
	var prevDS *model.AggregateDataset
	if previous != nil {
		prevDS = previous.Dataset
	}

	report := qa.Audit(ds, prevDS, qa.Options{Cutoff: s.cfg.Cutoff, AsOf: asOf})
	log.Info("qa audit complete",
		zap.String("status", string(report.Status)),
		zap.Int("score", report.Score))

	snap := &model.Snapshot{
		CreatedAt:   s.now().UTC(),
		CreatedBy:   s.cfg.CreatedBy,
		Source:      model.SnapshotSourceSync,
		BoardID:     board.ID,
		BoardName:   board.Name,
		ItemCount:   len(ds.AllDealsRows),
		DatasetHash: hash,
		Dataset:     ds,
		QA:          report,
	}

	if dryRun {
		log.Info("dry run, snapshot not persisted", zap.String("dataset_hash", hash))
		return &Result{Snapshot: snap}, nil
	}

	pruned, err := persist(ctx, s.store, snap, s.cfg.Retention)
	if err != nil {
		return nil, err
	}
	log.Info("snapshot persisted",
		zap.String("snapshot_id", snap.ID),
		zap.Int("pruned", pruned))
	return &Result{Snapshot: snap, Pruned: pruned}, nil
}

func persist(ctx context.Context, st store.Store, snap *model.Snapshot, retention int) (int, error) {
	if err := st.Insert(ctx, snap); err != nil {
		return 0, eris.Wrap(err, "pipeline: insert snapshot")
	}
	if err := st.SetActive(ctx, snap.ID); err != nil {
		return 0, eris.Wrap(err, "pipeline: activate snapshot")
	}
	if retention <= 0 {
		retention = 52
	}
	pruned, err := st.Prune(ctx, retention)
	if err != nil {
		// The snapshot is already live; retention cleanup failing is not
		// worth rolling that back.
		zap.L().Warn("snapshot prune failed", zap.Error(err))
		return 0, nil
	}
	return pruned, nil
}

// buildDataset normalizes and aggregates records. Records without a
// resolvable stage are dropped here.
func buildDataset(norm *Normalizer, records []model.RawRecord, industryByID map[string]string, opts dataset.Options) *model.AggregateDataset {
	b := dataset.New(opts)
	skipped := 0
	for _, rec := range records {
		row, ok := norm.Row(rec, industryByID[rec.ID])
		if !ok {
			skipped++
			continue
		}
		b.Add(row)
	}
	if skipped > 0 {
		zap.L().Debug("records without resolvable stage skipped", zap.Int("count", skipped))
	}
	return b.Finalize()
}

// hashDataset returns the hex sha256 of the dataset's canonical JSON form.
func hashDataset(ds *model.AggregateDataset) (string, error) {
	data, err := json.Marshal(ds)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
