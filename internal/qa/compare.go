package qa

import (
	"fmt"
	"math"

	"github.com/sells-group/funnel-cli/internal/classify"
	"github.com/sells-group/funnel-cli/internal/model"
)

// comparativeCheckIDs enumerates the drift checks so the not-applicable
// report keeps a stable shape when there is no previous snapshot.
func comparativeCheckIDs() []string {
	ids := []string{"cmp_row_count_delta"}
	for _, f := range trackedFields {
		if !f.required {
			ids = append(ids, "cmp_blank_drift_"+f.name)
		}
	}
	ids = append(ids,
		"cmp_dist_stage", "cmp_dist_seller", "cmp_dist_channel",
		"cmp_winloss_volume", "cmp_key_churn", "cmp_unknown_stage_growth",
		"cmp_blank_growth_industry", "cmp_blank_growth_function",
		"cmp_month_share",
	)
	return ids
}

func (a *auditor) comparativeChecks() {
	if !a.hasPrev {
		for _, id := range comparativeCheckIDs() {
			a.add(model.Check{
				ID:       id,
				Category: model.CategoryComparative,
				Severity: model.SeverityNotApplicable,
				Metric:   "drift vs previous snapshot",
				Result:   "no previous snapshot",
			})
		}
		return
	}

	a.checkRowCountDelta()
	a.checkBlankDrift()
	a.checkDistributionDrift()
	a.checkWinLossVolume()
	a.checkKeyChurn()
	a.checkUnknownStageGrowth()
	a.checkBlankGrowth()
	a.checkMonthShare()
}

// driftCheck books a threshold check over a percentage-like drift value.
func (a *auditor) driftCheck(id, metric string, drift, warnAt, failAt float64, detail string) {
	check := model.Check{
		ID:          id,
		Category:    model.CategoryComparative,
		Severity:    model.SeverityPass,
		Metric:      metric,
		Result:      detail,
		AffectedPct: pctPtr(drift),
	}
	if failAt > 0 {
		check.Threshold = fmt.Sprintf("warn>=%.0f fail>=%.0f", warnAt, failAt)
	} else {
		check.Threshold = fmt.Sprintf("warn>=%.0f", warnAt)
	}
	switch {
	case failAt > 0 && drift >= failAt:
		check.Severity = model.SeverityFail
	case drift >= warnAt:
		check.Severity = model.SeverityWarn
	}
	a.add(check)
}

func (a *auditor) checkRowCountDelta() {
	prev, cur := len(a.prev), len(a.rows)
	if prev == 0 {
		a.add(model.Check{
			ID:       "cmp_row_count_delta",
			Category: model.CategoryComparative,
			Severity: model.SeverityNotApplicable,
			Metric:   "row count drift",
			Result:   "previous snapshot empty",
		})
		return
	}
	drift := math.Abs(float64(cur-prev)) / float64(prev) * 100
	a.driftCheck("cmp_row_count_delta", "row count drift", drift, 20, 35,
		fmt.Sprintf("%d rows now vs %d before (%.1f%% drift)", cur, prev, drift))
}

func (a *auditor) checkBlankDrift() {
	for _, f := range trackedFields {
		if f.required {
			continue
		}
		curPct := pct(blankCount(a.rows, f), len(a.rows))
		prevPct := pct(blankCount(a.prev, f), len(a.prev))
		drift := math.Abs(curPct - prevPct)
		a.driftCheck("cmp_blank_drift_"+f.name,
			fmt.Sprintf("blank-rate drift for %s", f.name), drift, 10, 20,
			fmt.Sprintf("%.1f%% blank now vs %.1f%% before (%.1fpp)", curPct, prevPct, drift))
	}
}

// shareDrift returns the largest absolute percentage-point change in
// category share between the two row sets.
func shareDrift(cur, prev []model.DealRow, key func(model.DealRow) string) float64 {
	curShare := shares(cur, key)
	prevShare := shares(prev, key)
	maxDrift := 0.0
	for k, v := range curShare {
		if d := math.Abs(v - prevShare[k]); d > maxDrift {
			maxDrift = d
		}
	}
	for k, v := range prevShare {
		if _, ok := curShare[k]; !ok && v > maxDrift {
			maxDrift = v
		}
	}
	return maxDrift
}

func shares(rows []model.DealRow, key func(model.DealRow) string) map[string]float64 {
	counts := map[string]int{}
	for _, r := range rows {
		counts[key(r)]++
	}
	out := map[string]float64{}
	for k, n := range counts {
		out[k] = pct(n, len(rows))
	}
	return out
}

func (a *auditor) checkDistributionDrift() {
	dists := []struct {
		id     string
		warnAt float64
		failAt float64
		key    func(model.DealRow) string
	}{
		{"cmp_dist_stage", 15, 30, func(r model.DealRow) string { return r.StageKey }},
		{"cmp_dist_seller", 25, 0, func(r model.DealRow) string {
			if len(r.Sellers) == 0 {
				return "(unmatched)"
			}
			return r.Sellers[0]
		}},
		{"cmp_dist_channel", 30, 0, func(r model.DealRow) string { return string(r.Channel) }},
	}
	for _, d := range dists {
		drift := shareDrift(a.rows, a.prev, d.key)
		a.driftCheck(d.id, "categorical share drift "+d.id[len("cmp_dist_"):], drift, d.warnAt, d.failAt,
			fmt.Sprintf("max share drift %.1fpp", drift))
	}
}

func countOutcomes(rows []model.DealRow) int {
	n := 0
	for _, r := range rows {
		if r.Outcome != model.OutcomeOpen {
			n++
		}
	}
	return n
}

func (a *auditor) checkWinLossVolume() {
	prev, cur := countOutcomes(a.prev), countOutcomes(a.rows)
	if prev == 0 {
		a.add(model.Check{
			ID:       "cmp_winloss_volume",
			Category: model.CategoryComparative,
			Severity: model.SeverityNotApplicable,
			Metric:   "won/lost volume drift",
			Result:   "no previous outcome rows",
		})
		return
	}
	drift := math.Abs(float64(cur-prev)) / float64(prev) * 100
	a.driftCheck("cmp_winloss_volume", "won/lost volume drift", drift, 50, 0,
		fmt.Sprintf("%d outcome rows now vs %d before (%.1f%% drift)", cur, prev, drift))
}

func (a *auditor) checkKeyChurn() {
	curKeys := map[string]bool{}
	for _, r := range a.rows {
		curKeys[r.Key()] = true
	}
	prevKeys := map[string]bool{}
	for _, r := range a.prev {
		prevKeys[r.Key()] = true
	}
	added, removed := 0, 0
	for k := range curKeys {
		if !prevKeys[k] {
			added++
		}
	}
	for k := range prevKeys {
		if !curKeys[k] {
			removed++
		}
	}
	churn := added + removed
	floor := int(math.Max(50, 0.35*float64(len(prevKeys))))

	check := model.Check{
		ID:           "cmp_key_churn",
		Category:     model.CategoryComparative,
		Severity:     model.SeverityPass,
		Metric:       "canonical key churn",
		Threshold:    fmt.Sprintf("warn>max(50, 35%% of previous)=%d", floor),
		Result:       fmt.Sprintf("%d added + %d removed = %d churned keys", added, removed, churn),
		AffectedRows: intPtr(churn),
	}
	if churn > floor {
		check.Severity = model.SeverityWarn
	}
	a.add(check)
}

func countUnknownStages(rows []model.DealRow) int {
	n := 0
	for _, r := range rows {
		if r.StageKey != "" && !classify.KnownStage(r.StageKey) {
			n++
		}
	}
	return n
}

func (a *auditor) checkUnknownStageGrowth() {
	prev, cur := countUnknownStages(a.prev), countUnknownStages(a.rows)
	check := model.Check{
		ID:           "cmp_unknown_stage_growth",
		Category:     model.CategoryComparative,
		Severity:     model.SeverityPass,
		Metric:       "unknown stage label count",
		Threshold:    "any increase warns",
		Result:       fmt.Sprintf("%d unknown now vs %d before", cur, prev),
		AffectedRows: intPtr(cur),
	}
	if cur > prev {
		check.Severity = model.SeverityWarn
	}
	a.add(check)
}

func (a *auditor) checkBlankGrowth() {
	fields := []struct {
		id    string
		value func(model.DealRow) string
	}{
		{"cmp_blank_growth_industry", func(r model.DealRow) string { return r.Industry }},
		{"cmp_blank_growth_function", func(r model.DealRow) string { return r.BusinessFunction }},
	}
	for _, f := range fields {
		count := func(rows []model.DealRow) int {
			n := 0
			for _, r := range rows {
				if isBlank(f.value(r)) {
					n++
				}
			}
			return n
		}
		prev, cur := count(a.prev), count(a.rows)
		growth := cur - prev
		check := model.Check{
			ID:           f.id,
			Category:     model.CategoryComparative,
			Severity:     model.SeverityPass,
			Metric:       "blank count growth",
			Threshold:    "increase of >20 rows warns",
			Result:       fmt.Sprintf("%d blank now vs %d before (+%d)", cur, prev, growth),
			AffectedRows: intPtr(cur),
		}
		if growth > 20 {
			check.Severity = model.SeverityWarn
		}
		a.add(check)
	}
}

func (a *auditor) checkMonthShare() {
	monthOf := func(r model.DealRow) string {
		if r.IntroDate == nil {
			return "(undated)"
		}
		return r.IntroDate.Month()
	}
	drift := shareDrift(a.rows, a.prev, monthOf)
	a.driftCheck("cmp_month_share", "intro-date month share drift", drift, 35, 0,
		fmt.Sprintf("max month share drift %.1fpp", drift))
}
