package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/funnel-cli/internal/classify"
	"github.com/sells-group/funnel-cli/internal/model"
)

var (
	testCutoff = model.NewDate(2024, time.October, 1)
	testAsOf   = model.NewDate(2025, time.March, 15)
)

func testOptions(sellers ...string) Options {
	if sellers == nil {
		sellers = []string{"Somya", "Akshay Iyer"}
	}
	return Options{
		Cutoff:       testCutoff,
		AsOf:         testAsOf,
		SellerLabels: sellers,
		Meta:         model.DatasetMeta{MondayBoardID: "123", MondayBoardName: "Pipeline"},
	}
}

func dealRow(name, stage string, intro model.Date, sellers ...string) model.DealRow {
	key := classify.StageKey(stage)
	label := classify.FunnelLabel(key, classify.CleanStage(stage))
	i := intro
	return model.DealRow{
		ID:          "id-" + name,
		Name:        name,
		Stage:       label,
		StageKey:    key,
		FunnelStage: label,
		Outcome:     classify.OutcomeOf(key),
		Owner:       "owner",
		Sellers:     sellers,
		IntroDate:   &i,
	}
}

func TestBuilder_CountsByStageAndMonth(t *testing.T) {
	b := New(testOptions())
	b.Add(dealRow("Acme", "2. Qualification", model.NewDate(2024, time.October, 1), "Somya"))

	ds := b.Finalize()
	require.Contains(t, ds.Tables, "Somya")
	assert.Equal(t, 1, ds.Tables["Somya"]["2. Qualification"]["2024-10"])
	assert.Equal(t, 1, ds.Tables[model.ScopeAll]["2. Qualification"]["2024-10"])
	assert.Equal(t, []string{"Acme"}, ds.Details["Somya"]["2. Qualification"]["2024-10"])
	assert.Equal(t, []string{"2024-10"}, ds.Months)
}

func TestBuilder_CutoffAndSellerFilter(t *testing.T) {
	b := New(testOptions())
	// Before the cutoff: excluded from aggregates, kept in the flat export.
	b.Add(dealRow("Old Deal", "2. Qualification", model.NewDate(2024, time.September, 30), "Somya"))
	// No roster seller: same treatment.
	b.Add(dealRow("Orphan", "2. Qualification", model.NewDate(2024, time.November, 1)))

	ds := b.Finalize()
	assert.Empty(t, ds.Tables[model.ScopeAll]["2. Qualification"])
	assert.Len(t, ds.AllDealsRows, 2)
	assert.Empty(t, ds.Months)
}

func TestBuilder_UnknownSellerLabelIgnored(t *testing.T) {
	b := New(testOptions())
	b.Add(dealRow("Acme", "2. Qualification", model.NewDate(2024, time.October, 5), "Somya", "Nobody"))

	ds := b.Finalize()
	assert.Equal(t, 1, ds.Tables["Somya"]["2. Qualification"]["2024-10"])
	assert.NotContains(t, ds.Tables, "Nobody")
}

func TestBuilder_StageOrdering(t *testing.T) {
	b := New(testOptions())
	intro := model.NewDate(2024, time.October, 10)
	b.Add(dealRow("A", "2. Qualification", intro, "Somya"))
	b.Add(dealRow("B", "2. Qualification", intro, "Somya"))
	b.Add(dealRow("C", "1. Scheduled Intro Calls", intro, "Somya"))
	b.Add(dealRow("D", "5. Contracting", intro, "Somya"))

	ds := b.Finalize()
	// Descending totals, ties (1 each) alphabetical case-insensitive.
	assert.Equal(t, []string{"2. Qualification", "1. Intro", "5. Contracting"}, ds.Stages)
}

func TestBuilder_FunnelReachedMonotone(t *testing.T) {
	b := New(testOptions("Somya"))
	intro := model.NewDate(2024, time.December, 2)
	b.Add(dealRow("A", "1. Scheduled Intro Calls", intro, "Somya"))
	b.Add(dealRow("B", "2. Qualification", intro, "Somya"))
	b.Add(dealRow("C", "2. Qualification", intro, "Somya"))
	b.Add(dealRow("D", "4. Problem Scoping", intro, "Somya"))
	// Terminal outcomes do not count toward open-funnel stages.
	b.Add(dealRow("E", "7. Win", intro, "Somya"))

	m := b.Finalize().FunnelMetrics.Sellers["Somya"]
	assert.Equal(t, []int{1, 2, 0, 1, 0, 0}, m.Counts)
	assert.Equal(t, 4, m.TotalStage16)
	for i := 1; i < len(m.Reached); i++ {
		assert.LessOrEqual(t, m.Reached[i], m.Reached[i-1])
	}
	assert.Equal(t, []int{4, 3, 1, 1, 0, 0}, m.Reached)
	require.NotNil(t, m.ConversionToNext[0])
	assert.InDelta(t, 0.75, *m.ConversionToNext[0], 1e-9)
	assert.Nil(t, m.ConversionToNext[4]) // reached[4] == 0
}

func TestBuilder_ScorecardBuckets(t *testing.T) {
	b := New(testOptions("Somya"))
	intro := testAsOf.AddDays(-50) // over every SLA except 1/2... 50 > 30
	next := testAsOf.AddDays(7)

	row := dealRow("Stuck Deal", "3. Capabilities Showcase", intro, "Somya")
	b.Add(row) // age 50 > SLA 30, no next step: both flags

	healthy := dealRow("Fresh Deal", "4. Problem Scoping", testAsOf.AddDays(-10), "Somya")
	healthy.NextStep = &next
	b.Add(healthy)

	sc := b.Finalize().Scorecard.Sellers["Somya"]
	assert.Equal(t, 2, sc.Stage34Count)
	assert.Equal(t, 2, sc.Stage16Count)
	assert.Equal(t, 1, sc.MissingNextStep26)
	assert.Equal(t, 1, sc.OverSLA26)
	// One deal, two flags, still a single stuck entry.
	assert.Equal(t, 1, sc.StuckProxy26)
	require.Len(t, sc.StuckTop10, 1)
	assert.Equal(t, "Stuck Deal", sc.StuckTop10[0].Deal)
	require.NotNil(t, sc.StuckTop10[0].MissingNextStep)
	assert.True(t, *sc.StuckTop10[0].MissingNextStep)
	assert.True(t, *sc.StuckTop10[0].OverSLA)
	assert.InDelta(t, 0.5, sc.MissingNextStepPct, 1e-9)
}

func TestBuilder_ScorecardIntroStageNotStuck(t *testing.T) {
	b := New(testOptions("Somya"))
	// Stage 1 deals are never flagged, no matter the age.
	b.Add(dealRow("Ancient Intro", "1. Scheduled Intro Calls", testAsOf.AddDays(-120), "Somya"))

	sc := b.Finalize().Scorecard.Sellers["Somya"]
	assert.Equal(t, 1, sc.Stage12Count)
	assert.Zero(t, sc.StuckProxy26)
	assert.Zero(t, sc.MissingNextStep26)
}

func TestBuilder_WinLossSplit(t *testing.T) {
	b := New(testOptions("Somya"))
	intro := model.NewDate(2025, time.January, 6)

	won := dealRow("Winner", "7. Win", intro, "Somya")
	won.Industry, won.Logo, won.BusinessFunction = "Banking", "Acme", "Ops"
	b.Add(won)

	lost := dealRow("Loser", "8. Loss", intro, "Somya")
	lost.Industry, lost.Logo, lost.BusinessFunction = "Banking", "Acme", "Ops"
	b.Add(lost)

	ds := b.Finalize()
	overall := ds.WinLossSources.OverallUnique
	assert.Equal(t, 1, overall.WonTotal)
	assert.Equal(t, 1, overall.LostTotal)
	assert.InDelta(t, 0.5, overall.OverallWinRate, 1e-9)
	require.Len(t, overall.Rows, 1)
	assert.Equal(t, 2, overall.Rows[0].Total)

	seller := ds.WinLossSources.Sellers["Somya"]
	assert.Equal(t, 2, seller.Total)

	// Terminal rows also feed the cycle-time export.
	assert.Len(t, ds.CycleTimeRows, 2)
}

func TestBuilder_IntroTrendExcludesNoShow(t *testing.T) {
	b := New(testOptions("Somya"))
	intro := model.NewDate(2025, time.February, 5) // Wednesday; week starts 2025-02-03
	b.Add(dealRow("Counted", "2. Qualification", intro, "Somya"))
	b.Add(dealRow("Skipped", "No Show/ Reschedule", intro, "Somya"))

	trend := b.Finalize().IntroTrend
	require.Equal(t, []string{"2025-02-03"}, trend.Weeks)
	assert.Equal(t, 1, trend.Series[model.ScopeOverall]["2025-02-03"])
	assert.Equal(t, 1, trend.Series["Somya"]["2025-02-03"])
	require.Len(t, trend.Details[model.ScopeOverall]["2025-02-03"], 1)
	assert.Equal(t, "Counted", trend.Details[model.ScopeOverall]["2025-02-03"][0].Deal)
}

func TestBuilder_IntroTrendSeriesCountsRepeats(t *testing.T) {
	b := New(testOptions("Somya"))
	intro := model.NewDate(2025, time.February, 5)
	row := dealRow("Repeat", "2. Qualification", intro, "Somya")
	b.Add(row)
	b.Add(row)

	trend := b.Finalize().IntroTrend
	// The weekly series counts every row; only drill-down details dedup.
	assert.Equal(t, 2, trend.Series["Somya"]["2025-02-03"])
	assert.Len(t, trend.Details["Somya"]["2025-02-03"], 1)
}

func TestBuilder_IntroTrendDetailOrderStable(t *testing.T) {
	intro := model.NewDate(2025, time.February, 5)
	build := func(order []string) []model.IntroDetail {
		b := New(testOptions("Somya"))
		for _, stage := range order {
			row := dealRow("Acme", stage, intro, "Somya")
			row.ID = "id-" + stage
			b.Add(row)
		}
		return b.Finalize().IntroTrend.Details["Somya"]["2025-02-03"]
	}

	// Same deal name and intro date in one week: the stage breaks the tie,
	// whatever order the rows arrived in.
	first := build([]string{"5. Contracting", "2. Qualification"})
	second := build([]string{"2. Qualification", "5. Contracting"})
	require.Len(t, first, 2)
	assert.Equal(t, "2. Qualification", first[0].Stage)
	assert.Equal(t, first, second)
}

func TestBuilder_IndustryActionMatterStagesOnly(t *testing.T) {
	b := New(testOptions("Somya"))
	intro := model.NewDate(2025, time.January, 20)

	open := dealRow("Open Deal", "4. Problem Scoping", intro, "Somya")
	open.Industry, open.Logo, open.BusinessFunction = "Retail", "Globex", "Finance"
	b.Add(open)

	won := dealRow("Done Deal", "7. Win", intro, "Somya")
	won.Industry = "Retail"
	b.Add(won)

	action := b.Finalize().IndustryAction.Sellers["Somya"]
	assert.Equal(t, 1, action.Total)
	require.Len(t, action.Industries, 1)
	assert.Equal(t, "Retail", action.Industries[0].Industry)
	assert.Equal(t, map[string]int{"Globex": 1}, action.Industries[0].Logos)
}

func TestBuilder_CarryInEmptyAndDeterministic(t *testing.T) {
	build := func() *model.AggregateDataset {
		b := New(testOptions())
		intro := model.NewDate(2024, time.November, 12)
		b.Add(dealRow("A", "2. Qualification", intro, "Somya"))
		b.Add(dealRow("B", "5. Contracting", intro, "Akshay Iyer"))
		return b.Finalize()
	}

	first, second := build(), build()
	assert.Equal(t, first, second)

	for _, scope := range first.Sellers {
		carry, ok := first.CarryIn[scope]
		require.True(t, ok, scope)
		for _, cell := range carry {
			assert.Empty(t, cell)
		}
	}
	assert.Equal(t, []string{model.ScopeAll, "Somya", "Akshay Iyer"}, first.Sellers)
}

func TestBuilder_DetailDedupByName(t *testing.T) {
	b := New(testOptions("Somya"))
	intro := model.NewDate(2024, time.October, 3)
	b.Add(dealRow("Acme", "2. Qualification", intro, "Somya"))
	dup := dealRow("Acme", "2. Qualification", intro, "Somya")
	dup.ID = "id-other"
	b.Add(dup)

	ds := b.Finalize()
	assert.Equal(t, 2, ds.Tables["Somya"]["2. Qualification"]["2024-10"])
	assert.Equal(t, []string{"Acme"}, ds.Details["Somya"]["2. Qualification"]["2024-10"])
}

func TestBuilder_UnnamedDealPlaceholder(t *testing.T) {
	b := New(testOptions("Somya"))
	row := dealRow("", "2. Qualification", model.NewDate(2024, time.October, 3), "Somya")
	b.Add(row)

	ds := b.Finalize()
	assert.Equal(t, []string{"(Unnamed deal)"}, ds.Details["Somya"]["2. Qualification"]["2024-10"])
}
