// Package dataset builds every derived reporting view from normalized deal
// rows in a single pass. A Builder is constructed fresh per sync, fed rows
// sequentially, and finalized once; there is no shared or incremental state.
package dataset

import (
	"github.com/sells-group/funnel-cli/internal/classify"
	"github.com/sells-group/funnel-cli/internal/model"
)

// Options configures one build pass.
type Options struct {
	Cutoff       model.Date // intro-date floor for filtered aggregates
	AsOf         model.Date // "today" for age computations
	SellerLabels []string   // roster labels in display order
	Meta         model.DatasetMeta
}

// Builder accumulates all intermediate tables for one pass. Rows failing the
// cutoff/seller filter still flow into the flat exports; only the derived
// aggregate views are filtered.
type Builder struct {
	opts Options

	tables  map[string]model.CountTable
	details map[string]map[string]map[string]map[string]bool
	funnel  map[string]map[string]int

	scorecards map[string]*scorecardAcc
	industry   map[string]*industryAcc
	winOverall *winLossAcc
	winSeller  map[string]*winLossAcc
	trend      *trendAcc

	months      map[string]bool
	stageTotals map[string]int

	allRows   []model.DealRow
	cycleRows []model.DealRow
}

// New creates an empty Builder.
func New(opts Options) *Builder {
	b := &Builder{
		opts:        opts,
		tables:      map[string]model.CountTable{model.ScopeAll: {}},
		details:     map[string]map[string]map[string]map[string]bool{model.ScopeAll: {}},
		funnel:      map[string]map[string]int{},
		scorecards:  map[string]*scorecardAcc{model.ScopeAll: newScorecardAcc()},
		industry:    map[string]*industryAcc{},
		winOverall:  newWinLossAcc(),
		winSeller:   map[string]*winLossAcc{},
		trend:       newTrendAcc(),
		months:      map[string]bool{},
		stageTotals: map[string]int{},
	}
	for _, label := range opts.SellerLabels {
		b.tables[label] = model.CountTable{}
		b.details[label] = map[string]map[string]map[string]bool{}
		b.funnel[label] = map[string]int{}
		b.scorecards[label] = newScorecardAcc()
		b.industry[label] = newIndustryAcc()
		b.winSeller[label] = newWinLossAcc()
	}
	return b
}

// Add consumes one normalized row. Rows without a resolvable stage must be
// excluded before Add; everything else is accepted and never errors.
func (b *Builder) Add(row model.DealRow) {
	b.allRows = append(b.allRows, row)
	if row.Outcome == model.OutcomeWon || row.Outcome == model.OutcomeLost {
		b.cycleRows = append(b.cycleRows, row)
	}

	if row.IntroDate == nil || row.IntroDate.Before(b.opts.Cutoff) || !row.HasSeller() {
		return
	}

	intro := *row.IntroDate
	month := intro.Month()
	b.months[month] = true
	b.stageTotals[row.Stage]++

	name := row.Name
	if name == "" {
		name = "(Unnamed deal)"
	}

	b.bump(model.ScopeAll, row.Stage, month, name)
	b.scorecards[model.ScopeAll].add(b.opts, name, model.ScopeAll, row, month)
	if row.Outcome != model.OutcomeOpen {
		b.winOverall.add(row)
	}
	if row.StageKey != classify.StageNoShow {
		b.trend.add(model.ScopeOverall, intro, row, name, model.ScopeOverall)
	}

	for _, label := range row.Sellers {
		if _, known := b.tables[label]; !known {
			continue
		}
		b.bump(label, row.Stage, month, name)
		if fs, ok := classify.FunnelStageMap[row.StageKey]; ok && row.Outcome == model.OutcomeOpen {
			b.funnel[label][fs]++
		}
		b.scorecards[label].add(b.opts, name, label, row, month)
		if classify.MatterStages[row.StageKey] {
			b.industry[label].add(row)
		}
		if row.Outcome != model.OutcomeOpen {
			b.winSeller[label].add(row)
		}
		if row.StageKey != classify.StageNoShow {
			b.trend.add(label, intro, row, name, label)
		}
	}
}

// bump increments the count cell and records the deal name in the detail
// cell. Detail cells are sets, so re-adding the same name is a no-op.
func (b *Builder) bump(scope, stage, month, name string) {
	table := b.tables[scope]
	if table[stage] == nil {
		table[stage] = map[string]int{}
	}
	table[stage][month]++

	det := b.details[scope]
	if det[stage] == nil {
		det[stage] = map[string]map[string]bool{}
	}
	if det[stage][month] == nil {
		det[stage][month] = map[string]bool{}
	}
	det[stage][month][name] = true
}
