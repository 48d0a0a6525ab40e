package join

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/sells-group/funnel-cli/internal/model"
)

// idKeys are payload keys that hold a linked record id under the shapes the
// API has been observed to emit.
var idKeys = []string{"linkedPulseId", "linked_pulse_id", "item_id", "itemId", "pulseId", "id"}

// collectLinkedIDs extracts linked target-record ids from every source
// record, returning the deduplicated id set and the per-record link lists in
// payload order.
func (e *Engine) collectLinkedIDs(records []model.RawRecord, linkCol model.ColumnMeta) ([]string, map[string][]string) {
	var all []string
	seen := map[string]bool{}
	perRecord := map[string][]string{}

	for _, rec := range records {
		v, ok := rec.Field(linkCol.ID)
		if !ok || len(v.Raw) == 0 {
			continue
		}
		ids := extractIDs(v.Raw)
		if len(ids) == 0 {
			continue
		}
		perRecord[rec.ID] = ids
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				all = append(all, id)
			}
		}
	}
	return all, perRecord
}

// extractIDs parses the relation payload. Known shapes are tried first; a
// defensive recursive scan over id-like keys is the last resort.
func extractIDs(raw json.RawMessage) []string {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}

	if obj, ok := payload.(map[string]any); ok {
		for _, key := range []string{"linkedPulseIds", "linked_pulse_ids"} {
			if list, ok := obj[key].([]any); ok {
				if ids := idsFromLinkList(list); len(ids) > 0 {
					return ids
				}
			}
		}
	}
	if list, ok := payload.([]any); ok {
		if ids := idsFromLinkList(list); len(ids) > 0 {
			return ids
		}
	}

	// Last resort: scan everything. Map traversal is unordered, so the
	// result is sorted to keep projection deterministic.
	found := map[string]bool{}
	scanForIDs(payload, found)
	if len(found) == 0 {
		return nil
	}
	ids := make([]string, 0, len(found))
	for id := range found {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// idsFromLinkList handles both flat id arrays and arrays of link objects.
func idsFromLinkList(list []any) []string {
	var ids []string
	for _, item := range list {
		switch it := item.(type) {
		case map[string]any:
			for _, key := range idKeys {
				if id := numberString(it[key]); id != "" {
					ids = append(ids, id)
					break
				}
			}
		default:
			if id := numberString(it); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// scanForIDs walks an arbitrary payload collecting values under id-like keys.
func scanForIDs(payload any, found map[string]bool) {
	switch p := payload.(type) {
	case map[string]any:
		for key, v := range p {
			if idLikeKey(key) {
				if id := numberString(v); id != "" {
					found[id] = true
					continue
				}
			}
			scanForIDs(v, found)
		}
	case []any:
		for _, v := range p {
			scanForIDs(v, found)
		}
	}
}

func idLikeKey(key string) bool {
	k := strings.ToLower(key)
	return k == "id" || strings.HasSuffix(k, "_id") || strings.HasSuffix(k, "id") && strings.Contains(k, "pulse")
}
