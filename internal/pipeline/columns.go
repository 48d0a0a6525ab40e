// Package pipeline turns raw board records into a persisted snapshot: column
// discovery, row normalization, aggregation, audit, and storage.
package pipeline

import (
	"strings"

	"github.com/sells-group/funnel-cli/internal/classify"
	"github.com/sells-group/funnel-cli/internal/model"
)

// columnSet holds the resolved column id per tracked field. An empty id
// means the board has no such column; the field stays blank.
type columnSet struct {
	stage            string
	owner            string
	introDate        string
	nextStep         string
	startDate        string
	dealSize         string
	duration         string
	industry         string
	logo             string
	businessFunction string
	sourceOfLead     string
	revenueSource    string
}

// pickColumns matches board columns to tracked fields by normalized title.
// Matchers are tried in priority order; within one matcher the first
// matching column wins, so board column order is the tie-breaker. Boards
// name the intro column inconsistently ("Intro Date", "Intro Meeting
// Date", "Scheduled Intro"), so that matcher takes any title carrying both
// fragments.
func pickColumns(columns []model.ColumnMeta) columnSet {
	return columnSet{
		stage:            pick(columns, has("deal stage"), is("stage")),
		owner:            pick(columns, has("deal owner"), has("owner")),
		introDate:        pick(columns, has("intro", "date"), has("scheduled intro")),
		nextStep:         pick(columns, has("next step")),
		startDate:        pick(columns, has("start date")),
		dealSize:         pick(columns, has("adjusted", "contract", "num"), has("adjusted", "contract"), has("tcv"), has("contract value")),
		duration:         pick(columns, has("duration")),
		industry:         pick(columns, has("industry")),
		logo:             pick(columns, has("logo"), anyOf(has("account"), has("company"))),
		businessFunction: pick(columns, has("business function"), is("function")),
		sourceOfLead:     pick(columns, has("source of lead")),
		revenueSource:    pick(columns, has("revenue source")),
	}
}

// titleMatch reports whether a normalized column title fits a field.
type titleMatch func(title string) bool

// has matches titles containing every fragment.
func has(fragments ...string) titleMatch {
	return func(t string) bool {
		for _, f := range fragments {
			if !strings.Contains(t, f) {
				return false
			}
		}
		return true
	}
}

func is(want string) titleMatch {
	return func(t string) bool { return t == want }
}

func anyOf(matchers ...titleMatch) titleMatch {
	return func(t string) bool {
		for _, m := range matchers {
			if m(t) {
				return true
			}
		}
		return false
	}
}

func pick(columns []model.ColumnMeta, matchers ...titleMatch) string {
	for _, match := range matchers {
		for _, col := range columns {
			if match(classify.Norm(col.Title)) {
				return col.ID
			}
		}
	}
	return ""
}
