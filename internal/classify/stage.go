// Package classify maps raw board labels onto the canonical funnel model:
// normalized stage keys, the eight funnel-stage labels, won/lost outcomes,
// and roster seller matching.
package classify

import (
	"regexp"
	"strings"

	"github.com/sells-group/funnel-cli/internal/model"
)

// ordinalPrefixRe strips a leading "N. " from stage labels.
var ordinalPrefixRe = regexp.MustCompile(`^\s*\d+\.\s*`)

// MatterStages are the six pre-outcome stage keys, deals actively in play.
var MatterStages = map[string]bool{
	"scheduled intro calls": true,
	"qualification":         true,
	"capabilities showcase": true,
	"problem scoping":       true,
	"contracting":           true,
	"commercial proposal":   true,
}

// FunnelStageMap maps normalized stage keys to canonical funnel labels.
var FunnelStageMap = map[string]string{
	"scheduled intro calls": "1. Intro",
	"qualification":         "2. Qualification",
	"capabilities showcase": "3. Capability",
	"problem scoping":       "4. Problem Scoping",
	"contracting":           "5. Contracting",
	"commercial proposal":   "6. Commercial Proposal",
	"won":                   "7. Win",
	"lost":                  "8. Loss",
}

// FunnelStages are the six ordered matter-stage labels used by the funnel
// conversion view.
var FunnelStages = []string{
	"1. Intro",
	"2. Qualification",
	"3. Capability",
	"4. Problem Scoping",
	"5. Contracting",
	"6. Commercial Proposal",
}

// SLADays is the per-stage age threshold beyond which a deal counts as over
// SLA. Intro has the tightest window.
var SLADays = map[string]int{
	"scheduled intro calls": 21,
	"qualification":         30,
	"capabilities showcase": 30,
	"problem scoping":       45,
	"contracting":           45,
	"commercial proposal":   45,
}

// StageNoShow is the stage key excluded from the intro-trend series.
const StageNoShow = "no show/ reschedule"

var wonSynonyms = map[string]bool{
	"won":              true,
	"win":              true,
	"closed won":       true,
	"closed-won":       true,
	"closed won (100%)": true,
}

var lostSynonyms = map[string]bool{
	"lost":            true,
	"loss":            true,
	"closed lost":     true,
	"closed-lost":     true,
	"closed lost (0%)": true,
}

// Norm lowercases and collapses whitespace.
func Norm(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

// CleanStage strips the ordinal prefix and collapses whitespace, keeping the
// original casing.
func CleanStage(s string) string {
	return strings.Join(strings.Fields(ordinalPrefixRe.ReplaceAllString(strings.TrimSpace(s), "")), " ")
}

// StageKey returns the normalized stage key for a raw label, with outcome
// synonyms collapsed onto "won"/"lost".
func StageKey(raw string) string {
	key := Norm(CleanStage(raw))
	switch {
	case wonSynonyms[key]:
		return "won"
	case lostSynonyms[key]:
		return "lost"
	default:
		return key
	}
}

// IsPlaceholderStage reports whether the label is empty or literal header
// text; such rows are excluded entirely.
func IsPlaceholderStage(raw string) bool {
	key := Norm(CleanStage(raw))
	return key == "" || key == "deal stage"
}

// FunnelLabel returns the canonical funnel label for a stage key, or the
// cleaned raw label verbatim when unrecognized.
func FunnelLabel(stageKey, cleaned string) string {
	if label, ok := FunnelStageMap[stageKey]; ok {
		return label
	}
	return cleaned
}

// OutcomeOf returns won/lost for terminal stage keys, open otherwise.
func OutcomeOf(stageKey string) model.Outcome {
	switch stageKey {
	case "won":
		return model.OutcomeWon
	case "lost":
		return model.OutcomeLost
	default:
		return model.OutcomeOpen
	}
}

// KnownStage reports whether the stage key is part of the recognized set
// (matter stages, outcomes, and no-show).
func KnownStage(stageKey string) bool {
	return MatterStages[stageKey] || stageKey == "won" || stageKey == "lost" || stageKey == StageNoShow
}
