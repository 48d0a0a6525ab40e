package qa

import (
	"fmt"

	"github.com/sells-group/funnel-cli/internal/model"
)

// schemaChecks audits per-field blank and missing rates.
func (a *auditor) schemaChecks() {
	total := len(a.rows)
	for _, f := range trackedFields {
		blanks := blankCount(a.rows, f)
		blankPct := pct(blanks, total)
		missing := columnMissing(a.rows, f)

		check := model.Check{
			ID:           "schema_blank_" + f.name,
			Category:     model.CategorySchema,
			Metric:       fmt.Sprintf("blank rate for %s", f.name),
			AffectedRows: intPtr(blanks),
			AffectedPct:  pctPtr(blankPct),
			Result:       fmt.Sprintf("%d of %d rows blank (%.1f%%)", blanks, total, blankPct),
		}

		switch {
		case f.required:
			check.Threshold = "required: any blank fails"
			check.Severity = model.SeverityPass
			if blanks > 0 {
				check.Severity = model.SeverityFail
				check.Samples = blankSamples(a.rows, f)
			}
		default:
			check.Threshold = fmt.Sprintf("warn>=%.0f%% fail>=%.0f%%", f.warnPct, f.failPct)
			check.Severity = model.SeverityPass
			if blankPct >= f.failPct {
				check.Severity = model.SeverityFail
			} else if blankPct >= f.warnPct {
				check.Severity = model.SeverityWarn
			}
		}
		a.add(check)

		if missing {
			a.add(model.Check{
				ID:           "schema_missing_" + f.name,
				Category:     model.CategorySchema,
				Severity:     severityIf(f.required, model.SeverityFail, model.SeverityWarn),
				Metric:       fmt.Sprintf("column presence for %s", f.name),
				Threshold:    "column must be fetched",
				Result:       fmt.Sprintf("%s is blank on every row; column likely not fetched", f.name),
				AffectedRows: intPtr(total),
				AffectedPct:  pctPtr(100),
			})
		}
	}
}

func blankSamples(rows []model.DealRow, f trackedField) []string {
	var affected []model.DealRow
	for _, r := range rows {
		if isBlank(f.value(r)) {
			affected = append(affected, r)
		}
	}
	return sampleNames(affected, 5)
}

func severityIf(cond bool, then, otherwise model.Severity) model.Severity {
	if cond {
		return then
	}
	return otherwise
}
