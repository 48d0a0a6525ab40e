package pipeline

import (
	"strings"

	"github.com/sells-group/funnel-cli/internal/classify"
	"github.com/sells-group/funnel-cli/internal/model"
	"github.com/sells-group/funnel-cli/internal/resolve"
)

// Normalizer turns raw records into deal rows using a resolved column set
// and the seller roster.
type Normalizer struct {
	cols   columnSet
	roster *classify.Roster
}

// NewNormalizer resolves columns for the given board schema.
func NewNormalizer(columns []model.ColumnMeta, roster *classify.Roster) *Normalizer {
	return &Normalizer{cols: pickColumns(columns), roster: roster}
}

// Row normalizes one record. ok is false when the record has no resolvable
// stage; such records are excluded from every view.
func (n *Normalizer) Row(rec model.RawRecord, industryOverride string) (model.DealRow, bool) {
	rawStage := n.field(rec, n.cols.stage)
	if rawStage == "" || classify.IsPlaceholderStage(rawStage) {
		return model.DealRow{}, false
	}

	key := classify.StageKey(rawStage)
	label := classify.FunnelLabel(key, classify.CleanStage(rawStage))
	owner := n.field(rec, n.cols.owner)

	row := model.DealRow{
		ID:   rec.ID,
		Name: strings.TrimSpace(rec.Name),

		Stage:       label,
		StageKey:    key,
		FunnelStage: label,
		Outcome:     classify.OutcomeOf(key),

		Owner:   owner,
		Sellers: n.roster.Match(owner),

		IntroDateText: n.field(rec, n.cols.introDate),
		StartDateText: n.field(rec, n.cols.startDate),
		NextStepText:  n.field(rec, n.cols.nextStep),
		DealSizeText:  n.field(rec, n.cols.dealSize),
		DurationText:  n.field(rec, n.cols.duration),

		Industry:         n.field(rec, n.cols.industry),
		Logo:             n.field(rec, n.cols.logo),
		BusinessFunction: n.field(rec, n.cols.businessFunction),
		SourceOfLead:     n.field(rec, n.cols.sourceOfLead),
		RevenueSource:    n.field(rec, n.cols.revenueSource),
	}

	row.IntroDate = resolve.ParseDate(row.IntroDateText)
	row.StartDate = resolve.ParseDate(row.StartDateText)
	row.NextStep = resolve.ParseDate(row.NextStepText)
	row.DealSize = resolve.ParseAmount(row.DealSizeText)
	row.DurationMonths = resolve.ParseDurationMonths(row.DurationText)

	if industryOverride != "" {
		row.Industry = industryOverride
	}
	row.Channel = classify.Channel(row.SourceOfLead, row.RevenueSource)

	return row, true
}

// IndustryColumnID exposes the resolved direct industry column for the join
// engine's pass-through path.
func (n *Normalizer) IndustryColumnID() string { return n.cols.industry }

func (n *Normalizer) field(rec model.RawRecord, columnID string) string {
	if columnID == "" {
		return ""
	}
	v, ok := rec.Field(columnID)
	if !ok {
		return ""
	}
	return strings.TrimSpace(resolve.Value(v))
}
