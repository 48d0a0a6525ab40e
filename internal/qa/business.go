package qa

import (
	"fmt"

	"github.com/sells-group/funnel-cli/internal/classify"
	"github.com/sells-group/funnel-cli/internal/model"
)

// lateStages are the funnel stage keys at or beyond stage 4, where a start
// date is expected.
var lateStages = map[string]bool{
	"problem scoping":     true,
	"contracting":         true,
	"commercial proposal": true,
}

func (a *auditor) businessChecks() {
	a.checkUnknownStages()
	a.checkStage4MissingStart()
	a.checkWonMissingStart()
	a.checkInvalidDuration()
	a.checkNegativeDealSize()
	a.checkFutureIntro()
	a.checkStartIntroGap()
	a.checkDuplicateKeys()
	a.checkUnmatchedOwner()
}

// simpleRowCheck evaluates a predicate over all rows and books a single
// check with the given severity when any row matches.
func (a *auditor) simpleRowCheck(id, metric, threshold string, sev model.Severity, match func(model.DealRow) bool) {
	var bad []model.DealRow
	for _, r := range a.rows {
		if match(r) {
			bad = append(bad, r)
		}
	}
	check := model.Check{
		ID:           id,
		Category:     model.CategoryBusiness,
		Severity:     model.SeverityPass,
		Metric:       metric,
		Threshold:    threshold,
		AffectedRows: intPtr(len(bad)),
		AffectedPct:  pctPtr(pct(len(bad), len(a.rows))),
		Result:       fmt.Sprintf("%d of %d rows affected", len(bad), len(a.rows)),
	}
	if len(bad) > 0 {
		check.Severity = sev
		check.Samples = sampleNames(bad, 5)
	}
	a.add(check)
}

func (a *auditor) checkUnknownStages() {
	a.simpleRowCheck("biz_unknown_stage",
		"stage label in known set", "any unknown stage fails",
		model.SeverityFail,
		func(r model.DealRow) bool {
			return r.StageKey != "" && !classify.KnownStage(r.StageKey)
		})
}

func (a *auditor) checkStage4MissingStart() {
	a.simpleRowCheck("biz_stage4_missing_start",
		"start date present for stage >= 4", "any missing warns",
		model.SeverityWarn,
		func(r model.DealRow) bool {
			return lateStages[r.StageKey] && r.StartDate == nil
		})
}

func (a *auditor) checkWonMissingStart() {
	a.simpleRowCheck("biz_won_missing_start",
		"start date present for won deals", "any missing fails",
		model.SeverityFail,
		func(r model.DealRow) bool {
			return r.Outcome == model.OutcomeWon && r.StartDate == nil
		})
}

func (a *auditor) checkInvalidDuration() {
	a.simpleRowCheck("biz_invalid_duration",
		"positive duration when start date set", "any invalid fails",
		model.SeverityFail,
		func(r model.DealRow) bool {
			return r.StartDate != nil && r.DurationMonths == nil
		})
}

func (a *auditor) checkNegativeDealSize() {
	a.simpleRowCheck("biz_negative_deal_size",
		"deal size non-negative", "any negative fails",
		model.SeverityFail,
		func(r model.DealRow) bool {
			return r.DealSize != nil && *r.DealSize < 0
		})
}

func (a *auditor) checkFutureIntro() {
	horizon := a.opts.AsOf.AddDays(14)
	a.simpleRowCheck("biz_future_intro",
		"intro date not far in the future", "more than 14 days ahead warns",
		model.SeverityWarn,
		func(r model.DealRow) bool {
			return r.IntroDate != nil && r.IntroDate.After(horizon)
		})
}

// checkStartIntroGap flags start dates trailing the intro date: a gap over
// 30 days fails, 1-30 days warns.
func (a *auditor) checkStartIntroGap() {
	var warnRows, failRows []model.DealRow
	for _, r := range a.rows {
		if r.IntroDate == nil || r.StartDate == nil {
			continue
		}
		gap := r.StartDate.DaysSince(*r.IntroDate)
		switch {
		case gap > 30:
			failRows = append(failRows, r)
		case gap >= 1:
			warnRows = append(warnRows, r)
		}
	}

	affected := len(warnRows) + len(failRows)
	check := model.Check{
		ID:           "biz_start_intro_gap",
		Category:     model.CategoryBusiness,
		Severity:     model.SeverityPass,
		Metric:       "start date lag behind intro date",
		Threshold:    "1-30 days warns, >30 days fails",
		AffectedRows: intPtr(affected),
		AffectedPct:  pctPtr(pct(affected, len(a.rows))),
		Result:       fmt.Sprintf("%d rows 1-30 days late, %d rows >30 days late", len(warnRows), len(failRows)),
	}
	switch {
	case len(failRows) > 0:
		check.Severity = model.SeverityFail
		check.Samples = sampleNames(failRows, 5)
	case len(warnRows) > 0:
		check.Severity = model.SeverityWarn
		check.Samples = sampleNames(warnRows, 5)
	}
	a.add(check)
}

func (a *auditor) checkDuplicateKeys() {
	seen := map[string]bool{}
	var dups []model.DealRow
	for _, r := range a.rows {
		key := r.Key()
		if seen[key] {
			dups = append(dups, r)
			continue
		}
		seen[key] = true
	}

	check := model.Check{
		ID:           "biz_duplicate_keys",
		Category:     model.CategoryBusiness,
		Severity:     model.SeverityPass,
		Metric:       "canonical deal key uniqueness",
		Threshold:    "any duplicate warns",
		AffectedRows: intPtr(len(dups)),
		AffectedPct:  pctPtr(pct(len(dups), len(a.rows))),
		Result:       fmt.Sprintf("%d duplicate keys over %d rows", len(dups), len(a.rows)),
	}
	if len(dups) > 0 {
		check.Severity = model.SeverityWarn
		check.Samples = sampleNames(dups, 5)
	}
	a.add(check)
}

func (a *auditor) checkUnmatchedOwner() {
	a.simpleRowCheck("biz_unmatched_owner",
		"owner text matches a roster seller", "any unmatched non-empty owner warns",
		model.SeverityWarn,
		func(r model.DealRow) bool {
			return r.Owner != "" && len(r.Sellers) == 0
		})
}
