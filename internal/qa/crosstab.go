package qa

import (
	"fmt"

	"github.com/sells-group/funnel-cli/internal/classify"
	"github.com/sells-group/funnel-cli/internal/model"
)

// eligibleRows mirrors the builder's aggregate filter: dated on/after the
// cutoff and matched to at least one seller.
func (a *auditor) eligibleRows() []model.DealRow {
	var out []model.DealRow
	for _, r := range a.rows {
		if r.IntroDate == nil || r.IntroDate.Before(a.opts.Cutoff) || !r.HasSeller() {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (a *auditor) crossTableChecks() {
	a.checkScorecardBuckets()
	a.checkWinLossTotals()
	a.checkIntroTrendTotal()
	a.checkStageMonthSum()
}

// checkScorecardBuckets verifies count == len(records) for each of the five
// scorecard buckets, across every scope.
func (a *auditor) checkScorecardBuckets() {
	buckets := []struct {
		id      string
		count   func(model.SellerScorecard) int
		records func(model.SellerScorecard) []model.KPIRecord
	}{
		{"stage_1_2", func(s model.SellerScorecard) int { return s.Stage12Count }, func(s model.SellerScorecard) []model.KPIRecord { return s.KPIDetails.Stage12 }},
		{"stage_3_4", func(s model.SellerScorecard) int { return s.Stage34Count }, func(s model.SellerScorecard) []model.KPIRecord { return s.KPIDetails.Stage34 }},
		{"stage_1_6", func(s model.SellerScorecard) int { return s.Stage16Count }, func(s model.SellerScorecard) []model.KPIRecord { return s.KPIDetails.Stage16 }},
		{"stage_5_6", func(s model.SellerScorecard) int { return s.Stage56Count }, func(s model.SellerScorecard) []model.KPIRecord { return s.KPIDetails.Stage56 }},
		{"stage_7_8", func(s model.SellerScorecard) int { return s.Stage78Count }, func(s model.SellerScorecard) []model.KPIRecord { return s.KPIDetails.Stage78 }},
	}

	for _, b := range buckets {
		mismatch := 0
		for _, sc := range a.dataset.Scorecard.Sellers {
			diff := b.count(sc) - len(b.records(sc))
			if diff < 0 {
				diff = -diff
			}
			mismatch += diff
		}
		check := model.Check{
			ID:        "xt_scorecard_" + b.id,
			Category:  model.CategoryCrossTable,
			Severity:  model.SeverityPass,
			Metric:    fmt.Sprintf("scorecard %s count vs drill-down length", b.id),
			Threshold: "must match exactly",
			Result:    fmt.Sprintf("summed absolute mismatch %d across %d scopes", mismatch, len(a.dataset.Scorecard.Sellers)),
		}
		if mismatch != 0 {
			check.Severity = model.SeverityFail
			check.AffectedRows = intPtr(mismatch)
		}
		a.add(check)
	}
}

func (a *auditor) checkWinLossTotals() {
	outcomes := 0
	for _, r := range a.eligibleRows() {
		if r.Outcome != model.OutcomeOpen {
			outcomes++
		}
	}
	got := a.dataset.WinLossSources.OverallUnique.Total

	check := model.Check{
		ID:        "xt_winloss_totals",
		Category:  model.CategoryCrossTable,
		Severity:  model.SeverityPass,
		Metric:    "win/loss totals vs outcome rows",
		Threshold: "must match exactly",
		Result:    fmt.Sprintf("view total %d, outcome rows %d", got, outcomes),
	}
	if got != outcomes {
		check.Severity = model.SeverityFail
		check.AffectedRows = intPtr(abs(got - outcomes))
	}
	a.add(check)
}

func (a *auditor) checkIntroTrendTotal() {
	eligible := 0
	for _, r := range a.eligibleRows() {
		if r.StageKey != classify.StageNoShow {
			eligible++
		}
	}
	got := 0
	for _, n := range a.dataset.IntroTrend.Series[model.ScopeOverall] {
		got += n
	}

	check := model.Check{
		ID:        "xt_intro_trend_total",
		Category:  model.CategoryCrossTable,
		Severity:  model.SeverityPass,
		Metric:    "intro trend series total vs eligible rows",
		Threshold: "must match exactly",
		Result:    fmt.Sprintf("series total %d, eligible rows %d", got, eligible),
	}
	if got != eligible {
		check.Severity = model.SeverityFail
		check.AffectedRows = intPtr(abs(got - eligible))
	}
	a.add(check)
}

// checkStageMonthSum reconciles the all-unique stage x month crosstab
// against raw per-stage row counts, reporting the summed absolute mismatch.
func (a *auditor) checkStageMonthSum() {
	rowCounts := map[string]int{}
	for _, r := range a.eligibleRows() {
		rowCounts[r.Stage]++
	}

	mismatch := 0
	table := a.dataset.Tables[model.ScopeAll]
	seen := map[string]bool{}
	for stage, months := range table {
		sum := 0
		for _, n := range months {
			sum += n
		}
		mismatch += abs(sum - rowCounts[stage])
		seen[stage] = true
	}
	for stage, n := range rowCounts {
		if !seen[stage] {
			mismatch += n
		}
	}

	check := model.Check{
		ID:        "xt_stage_month_sum",
		Category:  model.CategoryCrossTable,
		Severity:  model.SeverityPass,
		Metric:    "stage x month crosstab vs raw stage counts",
		Threshold: "summed absolute mismatch must be 0",
		Result:    fmt.Sprintf("summed absolute mismatch %d", mismatch),
	}
	if mismatch != 0 {
		check.Severity = model.SeverityFail
		check.AffectedRows = intPtr(mismatch)
	}
	a.add(check)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
