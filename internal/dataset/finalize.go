package dataset

import (
	"sort"
	"strings"

	"github.com/sells-group/funnel-cli/internal/classify"
	"github.com/sells-group/funnel-cli/internal/model"
)

const (
	winLossNote = "Scope is limited to included deals after active filters. Overall is unique by deal row; seller views include deals owned by that seller."
	trendNote   = "Weekly trend uses the intro meeting date, excludes deals currently in No Show/ Reschedule."
)

// Finalize orders and projects every accumulated table into the dataset
// JSON shape. The Builder must not be reused afterwards.
func (b *Builder) Finalize() *model.AggregateDataset {
	months := sortedKeys(b.months)
	stages := b.orderedStages()
	scopes := append([]string{model.ScopeAll}, b.opts.SellerLabels...)

	ds := &model.AggregateDataset{
		Sellers: scopes,
		Months:  months,
		Stages:  stages,
		Tables:  map[string]model.CountTable{},
		Details: map[string]model.DetailTable{},
		CarryIn: map[string]model.CountTable{},
		Meta:    b.opts.Meta,
		FunnelMetrics: model.FunnelMetrics{
			Stages:  classify.FunnelStages,
			Sellers: map[string]model.FunnelSellerMetrics{},
		},
		Scorecard: model.Scorecard{
			AsOfDate: b.opts.AsOf.String(),
			Sellers:  map[string]model.SellerScorecard{},
		},
		IndustryAction: model.IndustryAction{Sellers: map[string]model.IndustrySellerAction{}},
		WinLossSources: model.WinLossSources{
			OverallUnique: b.winOverall.finalize(),
			Sellers:       map[string]model.WinLossBucket{},
			Note:          winLossNote,
		},
		IntroTrend:    b.trend.finalize(b.opts.SellerLabels),
		AllDealsRows:  b.allRows,
		CycleTimeRows: b.cycleRows,
	}
	if ds.AllDealsRows == nil {
		ds.AllDealsRows = []model.DealRow{}
	}
	if ds.CycleTimeRows == nil {
		ds.CycleTimeRows = []model.DealRow{}
	}

	for _, scope := range scopes {
		ds.Tables[scope] = projectCounts(b.tables[scope], stages)
		ds.Details[scope] = projectDetails(b.details[scope], stages)
		ds.CarryIn[scope] = emptyCounts(stages)
		ds.Scorecard.Sellers[scope] = b.scorecards[scope].finalize()
	}
	for _, label := range b.opts.SellerLabels {
		ds.FunnelMetrics.Sellers[label] = funnelMetrics(b.funnel[label])
		ds.IndustryAction.Sellers[label] = b.industry[label].finalize()
		ds.WinLossSources.Sellers[label] = b.winSeller[label].finalize()
	}
	return ds
}

// orderedStages sorts observed stages by descending total, ties broken
// alphabetically (case-insensitive).
func (b *Builder) orderedStages() []string {
	stages := make([]string, 0, len(b.stageTotals))
	for s := range b.stageTotals {
		stages = append(stages, s)
	}
	sort.Slice(stages, func(i, j int) bool {
		ti, tj := b.stageTotals[stages[i]], b.stageTotals[stages[j]]
		if ti != tj {
			return ti > tj
		}
		return strings.ToLower(stages[i]) < strings.ToLower(stages[j])
	})
	return stages
}

func projectCounts(table model.CountTable, stages []string) model.CountTable {
	out := model.CountTable{}
	for _, s := range stages {
		cell := map[string]int{}
		for m, n := range table[s] {
			cell[m] = n
		}
		out[s] = cell
	}
	return out
}

func projectDetails(details map[string]map[string]map[string]bool, stages []string) model.DetailTable {
	out := model.DetailTable{}
	for _, s := range stages {
		cell := map[string][]string{}
		for m, names := range details[s] {
			cell[m] = sortedKeys(names)
		}
		out[s] = cell
	}
	return out
}

func emptyCounts(stages []string) model.CountTable {
	out := model.CountTable{}
	for _, s := range stages {
		out[s] = map[string]int{}
	}
	return out
}

// funnelMetrics computes suffix-sum "reached" counts over the six ordered
// stages and the stage-to-stage conversion. Reached models "at least got
// this far", so it is non-increasing by construction.
func funnelMetrics(counts map[string]int) model.FunnelSellerMetrics {
	n := len(classify.FunnelStages)
	m := model.FunnelSellerMetrics{
		Counts:           make([]int, n),
		Reached:          make([]int, n),
		ConversionToNext: make([]*float64, n),
	}
	for i, stage := range classify.FunnelStages {
		m.Counts[i] = counts[stage]
		m.TotalStage16 += counts[stage]
	}
	for i := n - 1; i >= 0; i-- {
		m.Reached[i] = m.Counts[i]
		if i < n-1 {
			m.Reached[i] += m.Reached[i+1]
		}
	}
	for i := 0; i < n-1; i++ {
		if m.Reached[i] > 0 {
			conv := float64(m.Reached[i+1]) / float64(m.Reached[i])
			m.ConversionToNext[i] = &conv
		}
	}
	return m
}

func (a *scorecardAcc) finalize() model.SellerScorecard {
	stuck := append([]model.KPIRecord(nil), a.stuck...)
	sort.SliceStable(stuck, func(i, j int) bool {
		ai, aj := 0, 0
		if stuck[i].AgeDays != nil {
			ai = *stuck[i].AgeDays
		}
		if stuck[j].AgeDays != nil {
			aj = *stuck[j].AgeDays
		}
		if ai != aj {
			return ai > aj
		}
		return strings.ToLower(stuck[i].Deal) < strings.ToLower(stuck[j].Deal)
	})

	s16 := len(a.stage16)
	var missPct, slaPct float64
	if s16 > 0 {
		missPct = float64(len(a.missingNextStep)) / float64(s16)
		slaPct = float64(len(a.overSLA)) / float64(s16)
	}
	top := stuck
	if len(top) > 10 {
		top = top[:10]
	}

	return model.SellerScorecard{
		Stage12Count:       len(a.stage12),
		Stage34Count:       len(a.stage34),
		Stage16Count:       s16,
		Stage56Count:       len(a.stage56),
		Stage78Count:       len(a.stage78),
		MissingNextStep26:  len(a.missingNextStep),
		MissingNextStepPct: missPct,
		OverSLA26:          len(a.overSLA),
		OverSLAPct:         slaPct,
		StuckProxy26:       len(stuck),
		StuckTop10:         top,
		KPIDetails: model.KPIDetails{
			Stage12:         emptied(a.stage12),
			Stage34:         emptied(a.stage34),
			Stage16:         emptied(a.stage16),
			Stage56:         emptied(a.stage56),
			Stage78:         emptied(a.stage78),
			MissingNextStep: emptied(a.missingNextStep),
			OverSLA:         emptied(a.overSLA),
			Stuck:           emptied(stuck),
		},
	}
}

func (a *industryAcc) finalize() model.IndustrySellerAction {
	blocks := make([]model.IndustryBlock, 0, len(a.industries))
	for industry, acc := range a.industries {
		blocks = append(blocks, model.IndustryBlock{
			Industry:  industry,
			Total:     acc.total,
			Logos:     acc.logos,
			Functions: acc.functions,
		})
	}
	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].Total != blocks[j].Total {
			return blocks[i].Total > blocks[j].Total
		}
		return strings.ToLower(blocks[i].Industry) < strings.ToLower(blocks[j].Industry)
	})
	return model.IndustrySellerAction{Total: a.total, Industries: blocks}
}

func (a *winLossAcc) finalize() model.WinLossBucket {
	rows := make([]model.WinLossRow, 0, len(a.combos))
	for key, combo := range a.combos {
		total := combo.won + combo.lost
		row := model.WinLossRow{
			Industry: key.industry,
			Logo:     key.logo,
			Function: key.function,
			Won:      combo.won,
			Lost:     combo.lost,
			Total:    total,
		}
		if total > 0 {
			row.WinRate = float64(combo.won) / float64(total)
			row.LossRate = float64(combo.lost) / float64(total)
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Total != rows[j].Total {
			return rows[i].Total > rows[j].Total
		}
		if rows[i].Lost != rows[j].Lost {
			return rows[i].Lost > rows[j].Lost
		}
		if li, lj := strings.ToLower(rows[i].Industry), strings.ToLower(rows[j].Industry); li != lj {
			return li < lj
		}
		if li, lj := strings.ToLower(rows[i].Logo), strings.ToLower(rows[j].Logo); li != lj {
			return li < lj
		}
		return strings.ToLower(rows[i].Function) < strings.ToLower(rows[j].Function)
	})

	total := a.wonTotal + a.lostTotal
	bucket := model.WinLossBucket{
		WonTotal:  a.wonTotal,
		LostTotal: a.lostTotal,
		Total:     total,
		Rows:      rows,
	}
	if total > 0 {
		bucket.OverallWinRate = float64(a.wonTotal) / float64(total)
	}
	return bucket
}

func (a *trendAcc) finalize(sellerLabels []string) model.IntroTrend {
	weeks := sortedKeys(a.series[model.ScopeOverall])
	trend := model.IntroTrend{
		Weeks:   weeks,
		Series:  map[string]map[string]int{},
		Details: map[string]map[string][]model.IntroDetail{},
		Note:    trendNote,
	}
	scopes := append([]string{model.ScopeOverall}, sellerLabels...)
	for _, scope := range scopes {
		series := map[string]int{}
		details := map[string][]model.IntroDetail{}
		for _, week := range weeks {
			series[week] = a.series[scope][week]
			var list []model.IntroDetail
			for _, d := range a.details[scope][week] {
				list = append(list, d)
			}
			// Total order over every field; map iteration must not leak
			// into the serialized output.
			sort.Slice(list, func(i, j int) bool {
				if li, lj := strings.ToLower(list[i].Deal), strings.ToLower(list[j].Deal); li != lj {
					return li < lj
				}
				if list[i].IntroDate != list[j].IntroDate {
					return list[i].IntroDate < list[j].IntroDate
				}
				if list[i].Stage != list[j].Stage {
					return list[i].Stage < list[j].Stage
				}
				return list[i].Seller < list[j].Seller
			})
			if list == nil {
				list = []model.IntroDetail{}
			}
			details[week] = list
		}
		trend.Series[scope] = series
		trend.Details[scope] = details
	}
	return trend
}

// emptied replaces nil slices with empty ones so the JSON keeps arrays.
func emptied(records []model.KPIRecord) []model.KPIRecord {
	if records == nil {
		return []model.KPIRecord{}
	}
	return records
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
