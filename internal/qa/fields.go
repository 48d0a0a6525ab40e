package qa

import (
	"strings"

	"github.com/sells-group/funnel-cli/internal/model"
)

// blankPlaceholder is the token the builder substitutes for empty
// industry/logo/function values.
const blankPlaceholder = "(blank)"

// trackedField describes one audited column: how to read its textual value
// from a row, whether it is required, and the blank-rate thresholds that
// apply when it is optional.
type trackedField struct {
	name     string
	required bool
	warnPct  float64
	failPct  float64
	value    func(model.DealRow) string
}

// trackedFields is the fixed audit surface. Required fields fail on any
// blank; optional fields use their own warn/fail blank percentages.
var trackedFields = []trackedField{
	{name: "deal_name", required: true, value: func(r model.DealRow) string { return r.Name }},
	{name: "stage", required: true, value: func(r model.DealRow) string { return r.Stage }},
	{name: "intro_date", required: true, value: func(r model.DealRow) string { return r.IntroDateText }},
	{name: "seller", warnPct: 10, failPct: 35, value: func(r model.DealRow) string { return strings.Join(r.Sellers, ", ") }},
	{name: "owner", warnPct: 15, failPct: 50, value: func(r model.DealRow) string { return r.Owner }},
	{name: "industry", warnPct: 25, failPct: 60, value: func(r model.DealRow) string { return r.Industry }},
	{name: "logo", warnPct: 25, failPct: 60, value: func(r model.DealRow) string { return r.Logo }},
	{name: "business_function", warnPct: 35, failPct: 75, value: func(r model.DealRow) string { return r.BusinessFunction }},
	{name: "start_date", warnPct: 40, failPct: 85, value: func(r model.DealRow) string { return r.StartDateText }},
	{name: "next_step_date", warnPct: 40, failPct: 85, value: func(r model.DealRow) string { return r.NextStepText }},
	{name: "deal_size", warnPct: 40, failPct: 85, value: func(r model.DealRow) string { return r.DealSizeText }},
	{name: "duration", warnPct: 50, failPct: 90, value: func(r model.DealRow) string { return r.DurationText }},
	{name: "source_of_lead", warnPct: 50, failPct: 90, value: func(r model.DealRow) string { return r.SourceOfLead }},
	{name: "revenue_source", warnPct: 50, failPct: 90, value: func(r model.DealRow) string { return r.RevenueSource }},
}

// isBlank treats whitespace-only and the builder's placeholder token as
// blank.
func isBlank(v string) bool {
	s := strings.TrimSpace(v)
	return s == "" || s == blankPlaceholder
}

// blankCount returns how many rows have a blank value for the field.
func blankCount(rows []model.DealRow, f trackedField) int {
	n := 0
	for _, r := range rows {
		if isBlank(f.value(r)) {
			n++
		}
	}
	return n
}

// columnMissing reports whether the field is blank on every row, which is
// how an entirely unfetched column presents in the flat export.
func columnMissing(rows []model.DealRow, f trackedField) bool {
	return len(rows) > 0 && blankCount(rows, f) == len(rows)
}
