package qa

import (
	"fmt"
	"strings"

	"github.com/sells-group/funnel-cli/internal/model"
)

// formatField describes one parse-validity check: the raw text and whether
// the parsed counterpart is present.
type formatField struct {
	name     string
	required bool // required fields fail on unparseable values, optional warn
	raw      func(model.DealRow) string
	parsed   func(model.DealRow) bool
}

var formatFields = []formatField{
	{
		name:     "intro_date",
		required: true,
		raw:      func(r model.DealRow) string { return r.IntroDateText },
		parsed:   func(r model.DealRow) bool { return r.IntroDate != nil },
	},
	{
		name:   "start_date",
		raw:    func(r model.DealRow) string { return r.StartDateText },
		parsed: func(r model.DealRow) bool { return r.StartDate != nil },
	},
	{
		name:   "next_step_date",
		raw:    func(r model.DealRow) string { return r.NextStepText },
		parsed: func(r model.DealRow) bool { return r.NextStep != nil },
	},
	{
		name:   "deal_size",
		raw:    func(r model.DealRow) string { return r.DealSizeText },
		parsed: func(r model.DealRow) bool { return r.DealSize != nil },
	},
	{
		name:   "duration",
		raw:    func(r model.DealRow) string { return r.DurationText },
		parsed: func(r model.DealRow) bool { return r.DurationMonths != nil },
	},
}

// formatChecks audits parse validity: a non-blank raw value that failed to
// parse is a format defect. Optional fields warn, never fail.
func (a *auditor) formatChecks() {
	for _, f := range formatFields {
		var bad []model.DealRow
		for _, r := range a.rows {
			if strings.TrimSpace(f.raw(r)) != "" && !f.parsed(r) {
				bad = append(bad, r)
			}
		}

		check := model.Check{
			ID:           "fmt_" + f.name,
			Category:     model.CategoryFormat,
			Severity:     model.SeverityPass,
			Metric:       fmt.Sprintf("parse validity for %s", f.name),
			AffectedRows: intPtr(len(bad)),
			AffectedPct:  pctPtr(pct(len(bad), len(a.rows))),
			Result:       fmt.Sprintf("%d of %d rows unparseable", len(bad), len(a.rows)),
		}
		if f.required {
			check.Threshold = "required: any unparseable fails"
		} else {
			check.Threshold = "optional: any unparseable warns"
		}
		if len(bad) > 0 {
			check.Severity = severityIf(f.required, model.SeverityFail, model.SeverityWarn)
			check.Samples = sampleNames(bad, 5)
		}
		a.add(check)
	}
}
