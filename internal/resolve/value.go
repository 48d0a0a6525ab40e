// Package resolve narrows raw board cell variants into plain text and parses
// the date/amount/duration formats the board mixes freely. Everything here is
// pure; malformed payloads resolve to empty, never to an error.
package resolve

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/sells-group/funnel-cli/internal/model"
)

// candidateKeys is the ordered list of object keys tried when extracting a
// display string from a structured payload.
var candidateKeys = []string{"display_value", "label", "text", "value", "name", "title"}

// Value returns the best available textual representation of a cell.
// Resolution order: plain text, display value, then recursive extraction
// from the structured payload.
func Value(v model.FieldValue) string {
	if s := strings.TrimSpace(v.Text); s != "" {
		return s
	}
	if s := strings.TrimSpace(v.Display); s != "" {
		return s
	}
	if len(v.Raw) == 0 {
		return ""
	}
	var payload any
	if err := json.Unmarshal(v.Raw, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(fromPayload(payload))
}

// fromPayload extracts text from an arbitrary decoded JSON value.
func fromPayload(payload any) string {
	switch p := payload.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(p)
	case float64:
		return strconv.FormatFloat(p, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(p)
	case []any:
		return joinParts(p)
	case map[string]any:
		return fromObject(p)
	default:
		return ""
	}
}

func fromObject(obj map[string]any) string {
	for _, key := range candidateKeys {
		if nested, ok := obj[key]; ok {
			if s := fromPayload(nested); s != "" {
				return s
			}
		}
	}
	// Mirror columns wrap their per-link values in a list.
	if items, ok := obj["mirrored_items"].([]any); ok {
		if s := joinParts(items); s != "" {
			return s
		}
	}
	for _, listKey := range []string{"labels", "ids"} {
		if items, ok := obj[listKey].([]any); ok {
			if s := joinParts(items); s != "" {
				return s
			}
		}
	}
	return ""
}

// joinParts resolves each element and joins the non-empty results with ", ".
func joinParts(items []any) string {
	var parts []string
	for _, it := range items {
		if s := fromPayload(it); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// PrimaryToken returns the first comma-separated token of s, or fallback
// when s is blank.
func PrimaryToken(s, fallback string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	first := strings.TrimSpace(strings.SplitN(s, ",", 2)[0])
	if first == "" {
		return fallback
	}
	return first
}
