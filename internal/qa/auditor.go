// Package qa runs the data-quality audit over a freshly built dataset,
// optionally comparing it against the previous snapshot. The auditor is
// stateless and never fails the sync: each check is isolated, and any
// internal error surfaces as a failed check rather than an aborted report.
package qa

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/funnel-cli/internal/model"
)

// Options configures one audit run.
type Options struct {
	Cutoff model.Date
	AsOf   model.Date
}

// Penalty weights: schema and format failures cost 10, other failures 7,
// warnings 3.
const (
	penaltyHardFail = 10
	penaltySoftFail = 7
	penaltyWarn     = 3
)

type auditor struct {
	opts    Options
	dataset *model.AggregateDataset
	rows    []model.DealRow // current rows, cutoff-filtered
	prev    []model.DealRow // previous rows, cutoff-filtered; nil without a prior snapshot
	hasPrev bool
	checks  []model.Check
}

// Audit evaluates the full check battery. previous may be nil, in which case
// every comparative check reports not_applicable.
func Audit(current *model.AggregateDataset, previous *model.AggregateDataset, opts Options) *model.QAReport {
	a := &auditor{
		opts:    opts,
		dataset: current,
		rows:    filterRows(current.AllDealsRows, opts.Cutoff),
		hasPrev: previous != nil,
	}
	if previous != nil {
		a.prev = filterRows(previous.AllDealsRows, opts.Cutoff)
	}

	a.run("schema_presence", a.schemaChecks)
	a.run("type_format", a.formatChecks)
	a.run("business_rules", a.businessChecks)
	a.run("cross_table", a.crossTableChecks)
	a.run("comparative", a.comparativeChecks)

	return a.report()
}

// filterRows keeps rows whose intro date is on/after the cutoff. Rows with
// no parseable intro date stay in scope so the format and schema checks can
// flag them.
func filterRows(rows []model.DealRow, cutoff model.Date) []model.DealRow {
	out := make([]model.DealRow, 0, len(rows))
	for _, r := range rows {
		if r.IntroDate != nil && r.IntroDate.Before(cutoff) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// run executes one check group, converting a panic into a failed check so a
// defective rule cannot take down the report.
func (a *auditor) run(group string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			zap.L().Error("qa: check group panicked",
				zap.String("group", group),
				zap.Any("panic", rec),
			)
			a.add(model.Check{
				ID:       "qa_internal_" + group,
				Category: model.CategoryCrossTable,
				Severity: model.SeverityFail,
				Metric:   "auditor internal error",
				Result:   fmt.Sprintf("check group %s aborted: %v", group, rec),
			})
		}
	}()
	fn()
}

func (a *auditor) add(c model.Check) {
	a.checks = append(a.checks, c)
}

// report scores the accumulated checks. Score starts at 100 and only
// decreases; status derives from both the worst severity and the score.
func (a *auditor) report() *model.QAReport {
	score := 100
	var warns, fails, passes, nas int
	for _, c := range a.checks {
		switch c.Severity {
		case model.SeverityFail:
			fails++
			if c.Category == model.CategorySchema || c.Category == model.CategoryFormat {
				score -= penaltyHardFail
			} else {
				score -= penaltySoftFail
			}
		case model.SeverityWarn:
			warns++
			score -= penaltyWarn
		case model.SeverityNotApplicable:
			nas++
		default:
			passes++
		}
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	status := model.QAStatusPass
	switch {
	case fails > 0 || score < 70:
		status = model.QAStatusFail
	case warns > 0 || score < 90:
		status = model.QAStatusWarn
	}

	return &model.QAReport{
		Status: status,
		Score:  score,
		Summary: fmt.Sprintf("%d checks: %d pass, %d warn, %d fail, %d n/a; %d rows audited",
			len(a.checks), passes, warns, fails, nas, len(a.rows)),
		Report: model.CheckList{Checks: a.checks},
	}
}

// helpers shared by check groups

func pct(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func intPtr(v int) *int { return &v }

func pctPtr(v float64) *float64 { return &v }

// sampleNames collects up to limit deal names for a check's sample list.
func sampleNames(rows []model.DealRow, limit int) []string {
	var out []string
	for _, r := range rows {
		if len(out) >= limit {
			break
		}
		name := r.Name
		if name == "" {
			name = "(Unnamed deal)"
		}
		out = append(out, name)
	}
	return out
}
