package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/funnel-cli/internal/classify"
	"github.com/sells-group/funnel-cli/internal/dataset"
	"github.com/sells-group/funnel-cli/internal/importer"
	"github.com/sells-group/funnel-cli/internal/model"
	"github.com/sells-group/funnel-cli/internal/qa"
	"github.com/sells-group/funnel-cli/internal/store"
)

// Import builds and persists a snapshot from an exported workbook. It runs
// the same normalization, aggregation, and audit path as a live sync; only
// the record source differs, so there is no join enrichment.
type Import struct {
	store store.Store
	cfg   Config
	now   func() time.Time
}

// NewImport creates an Import runner.
func NewImport(st store.Store, cfg Config) *Import {
	return &Import{store: st, cfg: cfg, now: time.Now}
}

// Run processes one workbook.
func (im *Import) Run(ctx context.Context, path string, dryRun bool) (*Result, error) {
	wb, err := importer.ReadWorkbook(path)
	if err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("workbook", path))
	log.Info("workbook read",
		zap.String("sheet", wb.SheetName),
		zap.Int("records", len(wb.Records)))

	roster := classify.NewRoster(im.cfg.Sellers)
	norm := NewNormalizer(wb.Columns, roster)

	asOf := model.DateOf(im.now().UTC())
	ds := buildDataset(norm, wb.Records, nil, dataset.Options{
		Cutoff:       im.cfg.Cutoff,
		AsOf:         asOf,
		SellerLabels: roster.Labels(),
		Meta: model.DatasetMeta{
			IntroDateCutoff: im.cfg.Cutoff.String(),
			CutoffMonth:     im.cfg.Cutoff.Month(),
			DateBasis:       "intro_date",
			Source:          string(model.SnapshotSourceImport),
		},
	})

	hash, err := hashDataset(ds)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: hash dataset")
	}

	previous, err := im.store.Latest(ctx)
	if err != nil && !eris.Is(err, store.ErrNoSnapshot) {
		return nil, eris.Wrap(err, "pipeline: load previous snapshot")
	}
	var prevDS *model.AggregateDataset
	if previous != nil {
		prevDS = previous.Dataset
	}

	report := qa.Audit(ds, prevDS, qa.Options{Cutoff: im.cfg.Cutoff, AsOf: asOf})

	snap := &model.Snapshot{
		CreatedAt:   im.now().UTC(),
		CreatedBy:   im.cfg.CreatedBy,
		Source:      model.SnapshotSourceImport,
		ItemCount:   len(ds.AllDealsRows),
		DatasetHash: hash,
		Dataset:     ds,
		QA:          report,
	}

	if dryRun {
		log.Info("dry run, snapshot not persisted", zap.String("dataset_hash", hash))
		return &Result{Snapshot: snap}, nil
	}

	pruned, err := persist(ctx, im.store, snap, im.cfg.Retention)
	if err != nil {
		return nil, err
	}
	log.Info("snapshot persisted", zap.String("snapshot_id", snap.ID))
	return &Result{Snapshot: snap, Pruned: pruned}, nil
}
