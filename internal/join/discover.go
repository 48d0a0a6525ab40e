package join

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/funnel-cli/internal/classify"
	"github.com/sells-group/funnel-cli/internal/model"
	"github.com/sells-group/funnel-cli/internal/resolve"
)

// findLinkColumn picks the relation column on the source board. Strategies
// in order: explicit pin, the destination column's own settings, then a scan
// of relation-typed columns matched by settings board id or title hint, with
// fill rate breaking ties.
func (e *Engine) findLinkColumn(columns []model.ColumnMeta, records []model.RawRecord) (model.ColumnMeta, bool) {
	if e.cfg.LinkColumnID != "" {
		for _, c := range columns {
			if c.ID == e.cfg.LinkColumnID {
				return c, true
			}
		}
		return model.ColumnMeta{}, false
	}

	// Mirror columns carry the id of the relation column they ride on.
	for _, c := range columns {
		if !titleMatches(c.Title, e.cfg.FieldName) {
			continue
		}
		for _, relID := range settingsRelationColumns(c.Settings) {
			for _, rc := range columns {
				if rc.ID == relID {
					return rc, true
				}
			}
		}
	}

	var candidates []model.ColumnMeta
	for _, c := range columns {
		if !c.Type.IsRelation() {
			continue
		}
		if settingsNamesBoard(c.Settings, e.cfg.TargetBoardID) || titleHinted(c.Title, e.cfg.TitleHints) {
			candidates = append(candidates, c)
		}
	}
	switch len(candidates) {
	case 0:
		return model.ColumnMeta{}, false
	case 1:
		return candidates[0], true
	}

	best := candidates[0]
	bestFill := -1
	for _, c := range candidates {
		fill := fillRate(records, c.ID)
		if fill > bestFill {
			best, bestFill = c, fill
		}
	}
	return best, true
}

// findTargetColumn picks the authoritative column on the destination board:
// the pin when set, else the best-filled column whose title contains the
// field's semantic name, sampled over the already-fetched linked records.
// Column ids are machine slugs and never carry the semantic name, so the
// destination board's schema is fetched for its titles.
func (e *Engine) findTargetColumn(ctx context.Context, linked map[string]model.RawRecord) string {
	if e.cfg.TargetColumnID != "" {
		return e.cfg.TargetColumnID
	}

	board, err := e.src.Board(ctx, e.cfg.TargetBoardID)
	if err != nil {
		e.log.Warn("join: target board fetch failed, join disabled for this run", zap.Error(err))
		return ""
	}

	fills := map[string]int{}
	for _, rec := range linked {
		for colID, v := range rec.Fields {
			if resolve.Value(v) != "" {
				fills[colID]++
			}
		}
	}

	best, bestFill := "", -1
	for _, col := range board.Columns {
		if !titleMatches(col.Title, e.cfg.FieldName) {
			continue
		}
		if fill := fills[col.ID]; fill > bestFill {
			best, bestFill = col.ID, fill
		}
	}
	return best
}

// fillRate counts non-empty values for a column over a bounded sample.
func fillRate(records []model.RawRecord, columnID string) int {
	sample := records
	if len(sample) > fillRateSample {
		sample = sample[:fillRateSample]
	}
	fill := 0
	for _, r := range sample {
		if v, ok := r.Field(columnID); ok && resolve.Value(v) != "" {
			fill++
		}
	}
	return fill
}

func titleMatches(title, fieldName string) bool {
	return strings.Contains(classify.Norm(title), classify.Norm(fieldName))
}

func titleHinted(title string, hints []string) bool {
	t := classify.Norm(title)
	for _, h := range hints {
		if strings.Contains(t, classify.Norm(h)) {
			return true
		}
	}
	return false
}

// settingsNamesBoard reports whether a relation column's settings payload
// declares the given board id under any of the shapes the API emits.
func settingsNamesBoard(settings json.RawMessage, boardID string) bool {
	if len(settings) == 0 || boardID == "" {
		return false
	}
	var payload struct {
		BoardIDs []json.Number `json:"boardIds"`
		BoardID  json.Number   `json:"boardId"`
	}
	if err := json.Unmarshal(settings, &payload); err != nil {
		return false
	}
	for _, id := range payload.BoardIDs {
		if id.String() == boardID {
			return true
		}
	}
	return payload.BoardID.String() == boardID
}

// settingsRelationColumns extracts relation-column ids from a mirror
// column's settings payload.
func settingsRelationColumns(settings json.RawMessage) []string {
	if len(settings) == 0 {
		return nil
	}
	var payload struct {
		RelationColumn map[string]bool `json:"relation_column"`
		RelationColID  string          `json:"relation_column_id"`
	}
	if err := json.Unmarshal(settings, &payload); err != nil {
		return nil
	}
	var out []string
	for id, enabled := range payload.RelationColumn {
		if enabled {
			out = append(out, id)
		}
	}
	if payload.RelationColID != "" {
		out = append(out, payload.RelationColID)
	}
	// map iteration order is random; keep discovery deterministic
	sort.Strings(out)
	return out
}

// numberString renders a JSON number or string id as a plain string.
func numberString(v any) string {
	switch n := v.(type) {
	case string:
		return strings.TrimSpace(n)
	case float64:
		return strconv.FormatInt(int64(n), 10)
	case json.Number:
		return n.String()
	default:
		return ""
	}
}
