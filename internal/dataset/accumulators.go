package dataset

import (
	"github.com/sells-group/funnel-cli/internal/classify"
	"github.com/sells-group/funnel-cli/internal/model"
)

// scorecardAcc holds the in-flight scorecard buckets for one scope.
type scorecardAcc struct {
	stageCounts map[string]int

	stage12 []model.KPIRecord
	stage34 []model.KPIRecord
	stage16 []model.KPIRecord
	stage56 []model.KPIRecord
	stage78 []model.KPIRecord

	missingNextStep []model.KPIRecord
	overSLA         []model.KPIRecord
	stuck           []model.KPIRecord
}

func newScorecardAcc() *scorecardAcc {
	return &scorecardAcc{stageCounts: map[string]int{}}
}

// add books one row into every bucket it qualifies for. A deal flagged both
// missing-next-step and over-SLA still counts once toward stuck.
func (a *scorecardAcc) add(opts Options, name, sellerLabel string, row model.DealRow, month string) {
	a.stageCounts[row.FunnelStage]++

	var ageDays *int
	if row.IntroDate != nil {
		age := opts.AsOf.DaysSince(*row.IntroDate)
		ageDays = &age
	}
	base := model.KPIRecord{
		Deal:         name,
		Seller:       sellerLabel,
		Stage:        row.FunnelStage,
		CreatedMonth: month,
		AgeDays:      ageDays,
		DealSize:     row.DealSize,
	}

	key := row.StageKey
	if key == "scheduled intro calls" || key == "qualification" {
		a.stage12 = append(a.stage12, base)
	}
	if key == "capabilities showcase" || key == "problem scoping" {
		a.stage34 = append(a.stage34, base)
	}
	if classify.MatterStages[key] {
		a.stage16 = append(a.stage16, base)
	}
	if key == "contracting" || key == "commercial proposal" {
		a.stage56 = append(a.stage56, base)
	}
	if key == "won" || key == "lost" {
		a.stage78 = append(a.stage78, base)
	}

	if !classify.MatterStages[key] || key == "scheduled intro calls" {
		return
	}

	missing := row.NextStep == nil
	overSLA := false
	if ageDays != nil {
		if sla, ok := classify.SLADays[key]; ok {
			overSLA = *ageDays > sla
		}
	}
	if missing {
		rec := base
		rec.Reason = "no next step"
		a.missingNextStep = append(a.missingNextStep, rec)
	}
	if overSLA {
		rec := base
		rec.Reason = "over SLA"
		a.overSLA = append(a.overSLA, rec)
	}
	if missing || overSLA {
		rec := base
		m, o := missing, overSLA
		rec.MissingNextStep = &m
		rec.OverSLA = &o
		a.stuck = append(a.stuck, rec)
	}
}

// industryAcc accumulates the industry-action table for one seller.
type industryAcc struct {
	total      int
	industries map[string]*industryBlockAcc
}

type industryBlockAcc struct {
	total     int
	logos     map[string]int
	functions map[string]int
}

func newIndustryAcc() *industryAcc {
	return &industryAcc{industries: map[string]*industryBlockAcc{}}
}

func (a *industryAcc) add(row model.DealRow) {
	a.total++
	block := a.industries[row.Industry]
	if block == nil {
		block = &industryBlockAcc{logos: map[string]int{}, functions: map[string]int{}}
		a.industries[row.Industry] = block
	}
	block.total++
	block.logos[row.Logo]++
	block.functions[row.BusinessFunction]++
}

// winLossAcc accumulates outcome combos keyed by (industry, logo, function).
type winLossAcc struct {
	wonTotal  int
	lostTotal int
	combos    map[comboKey]*comboCount
}

type comboKey struct {
	industry string
	logo     string
	function string
}

type comboCount struct {
	won  int
	lost int
}

func newWinLossAcc() *winLossAcc {
	return &winLossAcc{combos: map[comboKey]*comboCount{}}
}

func (a *winLossAcc) add(row model.DealRow) {
	key := comboKey{industry: row.Industry, logo: row.Logo, function: row.BusinessFunction}
	combo := a.combos[key]
	if combo == nil {
		combo = &comboCount{}
		a.combos[key] = combo
	}
	if row.Outcome == model.OutcomeWon {
		combo.won++
		a.wonTotal++
	} else {
		combo.lost++
		a.lostTotal++
	}
}

// trendAcc accumulates the weekly intro-trend series per scope. The series
// counts every qualifying row; only the drill-down details are deduplicated,
// by exact record identity within a week rather than by deal name.
type trendAcc struct {
	series  map[string]map[string]int
	details map[string]map[string]map[trendKey]model.IntroDetail
}

type trendKey struct {
	id        string
	deal      string
	stage     string
	introDate string
	seller    string
}

func newTrendAcc() *trendAcc {
	return &trendAcc{
		series:  map[string]map[string]int{},
		details: map[string]map[string]map[trendKey]model.IntroDetail{},
	}
}

func (a *trendAcc) add(scope string, intro model.Date, row model.DealRow, name, sellerLabel string) {
	week := intro.WeekStart().String()
	if a.series[scope] == nil {
		a.series[scope] = map[string]int{}
	}
	if a.details[scope] == nil {
		a.details[scope] = map[string]map[trendKey]model.IntroDetail{}
	}
	if a.details[scope][week] == nil {
		a.details[scope][week] = map[trendKey]model.IntroDetail{}
	}

	a.series[scope][week]++

	key := trendKey{id: row.ID, deal: name, stage: row.Stage, introDate: intro.String(), seller: sellerLabel}
	if _, dup := a.details[scope][week][key]; dup {
		return
	}
	a.details[scope][week][key] = model.IntroDetail{
		Deal:      name,
		Stage:     row.Stage,
		IntroDate: intro.String(),
		Seller:    sellerLabel,
	}
}
