// Package join resolves fields that live on a related board, such as an
// industry stored on a linked accounts board. Discovery, fetching, and
// projection all degrade: any failure disables the join for the run and the
// caller falls back to the direct column value.
package join

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/funnel-cli/internal/classify"
	"github.com/sells-group/funnel-cli/internal/model"
	"github.com/sells-group/funnel-cli/internal/resolve"
	"github.com/sells-group/funnel-cli/pkg/monday"
)

const (
	// fillRateSample bounds how many source records are inspected when
	// ranking candidate link columns.
	fillRateSample = 200

	// batchSize bounds each linked-record fetch.
	batchSize = 100

	// fetchParallelism bounds concurrent batch fetches. Results are merged
	// by chunk index, so parallelism does not affect ordering.
	fetchParallelism = 4
)

// Source is the subset of the board API the engine needs. The destination
// board's column schema is fetched once to discover the target column by
// title.
type Source interface {
	Board(ctx context.Context, boardID string) (*monday.Board, error)
	ItemsByIDs(ctx context.Context, boardID string, ids []string, columnIDs []string) ([]model.RawRecord, error)
}

// Config pins or hints the discovery steps for one joined field.
type Config struct {
	TargetBoardID  string   // destination collection; empty disables the join
	LinkColumnID   string   // optional pin for the relation column
	TargetColumnID string   // optional pin for the authoritative column
	FieldName      string   // semantic name, e.g. "industry"
	TitleHints     []string // relation-column title fragments, e.g. "account"
}

// Engine projects a destination-board field back onto source records.
type Engine struct {
	src Source
	cfg Config
	log *zap.Logger
}

// New creates an Engine for one joined field.
func New(src Source, cfg Config) *Engine {
	return &Engine{src: src, cfg: cfg, log: zap.L().With(zap.String("join_field", cfg.FieldName))}
}

// Resolve returns the joined value per source-record id. A nil map means the
// join is disabled for this run; callers must use the direct column value.
// directColumnID is the column whose text holds the pass-through value and
// whose display text feeds the link-by-name fallback.
func (e *Engine) Resolve(ctx context.Context, columns []model.ColumnMeta, records []model.RawRecord, directColumnID string) map[string]string {
	if e.cfg.TargetBoardID == "" {
		return nil
	}

	linkCol, ok := e.findLinkColumn(columns, records)
	if !ok {
		e.log.Debug("join: no relation column found, falling back to direct value")
		return nil
	}

	ids, perRecord := e.collectLinkedIDs(records, linkCol)
	if len(ids) == 0 {
		e.log.Debug("join: no linked ids found", zap.String("link_column", linkCol.ID))
		return nil
	}

	linked, err := e.fetchLinked(ctx, ids)
	if err != nil {
		e.log.Warn("join: linked fetch failed, join disabled for this run", zap.Error(err))
		return nil
	}

	targetCol := e.findTargetColumn(ctx, linked)
	if targetCol == "" {
		e.log.Debug("join: no target column discovered")
		return nil
	}

	return e.project(records, perRecord, linked, targetCol, directColumnID)
}

// fetchLinked batch-fetches linked records in id chunks with bounded
// parallelism, merging results deterministically by chunk order.
func (e *Engine) fetchLinked(ctx context.Context, ids []string) (map[string]model.RawRecord, error) {
	chunks := chunk(ids, batchSize)
	results := make([][]model.RawRecord, len(chunks))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(fetchParallelism)
	for i, c := range chunks {
		g.Go(func() error {
			recs, err := e.src.ItemsByIDs(gCtx, e.cfg.TargetBoardID, c, nil)
			if err != nil {
				return eris.Wrapf(err, "join: fetch batch %d", i)
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[string]model.RawRecord, len(ids))
	for _, recs := range results {
		for _, r := range recs {
			byID[r.ID] = r
		}
	}
	return byID, nil
}

// project resolves each source record to the first non-empty target value in
// link order, with a link-by-name fallback when the relation text held names
// instead of resolvable ids.
func (e *Engine) project(records []model.RawRecord, perRecord map[string][]string, linked map[string]model.RawRecord, targetCol, directColumnID string) map[string]string {
	byName := map[string]string{}
	for id, rec := range linked {
		if key := classify.Norm(rec.Name); key != "" {
			byName[key] = id
		}
	}

	out := make(map[string]string, len(records))
	for _, rec := range records {
		value := ""
		for _, linkedID := range perRecord[rec.ID] {
			if target, ok := linked[linkedID]; ok {
				if v, ok := target.Field(targetCol); ok {
					if s := resolve.Value(v); s != "" {
						value = s
						break
					}
				}
			}
		}
		if value == "" {
			value = e.byNameFallback(rec, directColumnID, byName, linked, targetCol)
		}
		if value != "" {
			out[rec.ID] = value
		}
	}
	return out
}

// byNameFallback matches comma-split tokens of the relation column's display
// text against linked-record names.
func (e *Engine) byNameFallback(rec model.RawRecord, directColumnID string, byName map[string]string, linked map[string]model.RawRecord, targetCol string) string {
	direct, ok := rec.Field(directColumnID)
	if !ok {
		return ""
	}
	text := resolve.Value(direct)
	if text == "" {
		return ""
	}
	for _, token := range strings.Split(text, ",") {
		key := classify.Norm(token)
		if key == "" {
			continue
		}
		if id, ok := byName[key]; ok {
			if target, ok := linked[id]; ok {
				if v, ok := target.Field(targetCol); ok {
					if s := resolve.Value(v); s != "" {
						return s
					}
				}
			}
		}
	}
	return ""
}

func chunk(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
