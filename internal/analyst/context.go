// Package analyst answers natural-language questions about the active
// dataset. The dataset is distilled into a bounded text context, sent as a
// cached system prompt, and the model answers from that context alone.
package analyst

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/sells-group/funnel-cli/internal/classify"
	"github.com/sells-group/funnel-cli/internal/model"
)

// Context size caps. The context must stay well under the model's input
// budget even for large boards, so every list is truncated.
const (
	maxContextDeals  = 40
	maxStuckDeals    = 20
	maxWinLossRows   = 8
	maxTrendWeeks    = 80
	maxContextMonths = 80
)

var monthRe = regexp.MustCompile(`\b(20\d{2})[-/](0[1-9]|1[0-2])\b`)

var monthNames = map[string]string{
	"january": "01", "february": "02", "march": "03", "april": "04",
	"may": "05", "june": "06", "july": "07", "august": "08",
	"september": "09", "october": "10", "november": "11", "december": "12",
}

// stageKeywords maps question phrasings onto funnel labels, tried in order.
// "capab" covers both "capability" and the raw "capabilities showcase";
// "contract" covers "contracting".
var stageKeywords = []struct{ keyword, label string }{
	{"intro", "1. Intro"},
	{"qualification", "2. Qualification"},
	{"capab", "3. Capability"},
	{"scoping", "4. Problem Scoping"},
	{"contract", "5. Contracting"},
	{"proposal", "6. Commercial Proposal"},
	{"win", "7. Win"},
	{"loss", "8. Loss"},
	{"lost", "8. Loss"},
	{"no show", "No Show/ Reschedule"},
	{"reschedule", "No Show/ Reschedule"},
}

// questionFocus is what the question appears to be about; empty fields mean
// no narrowing on that axis.
type questionFocus struct {
	seller string
	stage  string
	month  string
}

// resolveFocus scans the question for a roster seller, a funnel stage, and a
// month mention. Seller matching takes the full label or its first name;
// explicit team phrasings keep the aggregate scope.
func resolveFocus(question string, sellerLabels []string) questionFocus {
	q := classify.Norm(question)
	var focus questionFocus

	teamWide := strings.Contains(q, "overall") ||
		strings.Contains(q, "all sellers") || strings.Contains(q, "all team")
	if !teamWide {
		for _, label := range sellerLabels {
			if label == model.ScopeAll {
				continue
			}
			low := classify.Norm(label)
			first, _, _ := strings.Cut(low, " ")
			if strings.Contains(q, low) || (first != "" && strings.Contains(q, first)) {
				focus.seller = label
				break
			}
		}
	}

	for _, sk := range stageKeywords {
		if strings.Contains(q, sk.keyword) {
			focus.stage = sk.label
			break
		}
	}

	if m := monthRe.FindStringSubmatch(question); m != nil {
		focus.month = m[1] + "-" + m[2]
	} else {
		for name, num := range monthNames {
			re := regexp.MustCompile(`\b` + name + `\s+(20\d{2})\b`)
			if m := re.FindStringSubmatch(q); m != nil {
				focus.month = m[1] + "-" + num
				break
			}
		}
	}
	return focus
}

// BuildContext renders the dataset into the system context for one question.
// The question only narrows which rows are quoted in full; the aggregate
// sections are always included.
func BuildContext(ds *model.AggregateDataset, question string) string {
	focus := resolveFocus(question, ds.Sellers)

	var sb strings.Builder
	writeHeader(&sb, ds)
	writeCrosstab(&sb, ds, focus)
	writeFunnel(&sb, ds)
	writeScorecard(&sb, ds, focus)
	writeWinLoss(&sb, ds, focus)
	writeTrend(&sb, ds)
	writeDeals(&sb, ds, focus)
	return sb.String()
}

func writeHeader(sb *strings.Builder, ds *model.AggregateDataset) {
	fmt.Fprintf(sb, "Sales pipeline dataset (intro dates from %s, as of %s).\n",
		ds.Meta.IntroDateCutoff, ds.Scorecard.AsOfDate)
	if ds.Meta.MondayBoardName != "" {
		fmt.Fprintf(sb, "Board: %s\n", ds.Meta.MondayBoardName)
	}
	sellers := make([]string, 0, len(ds.Sellers))
	for _, s := range ds.Sellers {
		if s != model.ScopeAll {
			sellers = append(sellers, s)
		}
	}
	fmt.Fprintf(sb, "Sellers: %s\n", strings.Join(sellers, ", "))
	months := ds.Months
	if len(months) > maxContextMonths {
		months = months[:maxContextMonths]
	}
	fmt.Fprintf(sb, "Months covered: %s\n\n", strings.Join(months, ", "))
}

func writeCrosstab(sb *strings.Builder, ds *model.AggregateDataset, focus questionFocus) {
	scope := model.ScopeAll
	if focus.seller != "" {
		scope = focus.seller
	}
	fmt.Fprintf(sb, "Deal counts by stage and month [%s]:\n", scope)
	table := ds.Tables[scope]
	for _, stage := range ds.Stages {
		cells := table[stage]
		total := 0
		var parts []string
		for _, month := range ds.Months {
			if n := cells[month]; n > 0 {
				parts = append(parts, fmt.Sprintf("%s=%d", month, n))
				total += n
			}
		}
		if total == 0 {
			continue
		}
		fmt.Fprintf(sb, "- %s: total %d (%s)\n", stage, total, strings.Join(parts, ", "))
	}
	if focus.stage != "" {
		cells := table[focus.stage]
		n := 0
		if focus.month != "" {
			n = cells[focus.month]
		} else {
			for _, v := range cells {
				n += v
			}
		}
		when := ""
		if focus.month != "" {
			when = " in " + focus.month
		}
		fmt.Fprintf(sb, "Focus stage %s%s: %d matching deals\n", focus.stage, when, n)
	}
	sb.WriteString("\n")
}

func writeFunnel(sb *strings.Builder, ds *model.AggregateDataset) {
	sb.WriteString("Funnel conversion (open deals reaching each stage):\n")
	for _, seller := range ds.Sellers {
		m, ok := ds.FunnelMetrics.Sellers[seller]
		if !ok || m.TotalStage16 == 0 {
			continue
		}
		var parts []string
		for i, stage := range ds.FunnelMetrics.Stages {
			parts = append(parts, fmt.Sprintf("%s reached=%d", stage, m.Reached[i]))
		}
		fmt.Fprintf(sb, "- %s: %s\n", seller, strings.Join(parts, "; "))
	}
	sb.WriteString("\n")
}

func writeScorecard(sb *strings.Builder, ds *model.AggregateDataset, focus questionFocus) {
	scope := model.ScopeAll
	if focus.seller != "" {
		scope = focus.seller
	}
	sc, ok := ds.Scorecard.Sellers[scope]
	if !ok {
		return
	}
	fmt.Fprintf(sb, "Scorecard [%s]: stage1-2=%d stage3-4=%d stage5-6=%d won/lost=%d active(1-6)=%d\n",
		scope, sc.Stage12Count, sc.Stage34Count, sc.Stage56Count, sc.Stage78Count, sc.Stage16Count)
	fmt.Fprintf(sb, "Missing next step: %d (%.0f%%), over SLA: %d (%.0f%%), stuck: %d\n",
		sc.MissingNextStep26, sc.MissingNextStepPct*100, sc.OverSLA26, sc.OverSLAPct*100, sc.StuckProxy26)

	stuck := sc.KPIDetails.Stuck
	if len(stuck) > maxStuckDeals {
		stuck = stuck[:maxStuckDeals]
	}
	if len(stuck) > 0 {
		sb.WriteString("Stuck deals (oldest first):\n")
		for _, rec := range stuck {
			age := "?"
			if rec.AgeDays != nil {
				age = fmt.Sprintf("%d", *rec.AgeDays)
			}
			fmt.Fprintf(sb, "- %s [%s] age %s days, reason: %s\n", rec.Deal, rec.Stage, age, rec.Reason)
		}
	}
	sb.WriteString("\n")
}

func writeWinLoss(sb *strings.Builder, ds *model.AggregateDataset, focus questionFocus) {
	bucket := ds.WinLossSources.OverallUnique
	scope := "overall"
	if focus.seller != "" {
		if b, ok := ds.WinLossSources.Sellers[focus.seller]; ok {
			bucket, scope = b, focus.seller
		}
	}
	fmt.Fprintf(sb, "Win/loss [%s]: %d won, %d lost (win rate %.2f)\n",
		scope, bucket.WonTotal, bucket.LostTotal, bucket.OverallWinRate)

	rows := bucket.Rows
	if len(rows) > maxWinLossRows {
		rows = rows[:maxWinLossRows]
	}
	for _, row := range rows {
		fmt.Fprintf(sb, "- %s / %s / %s: %d won, %d lost\n",
			orBlank(row.Industry), orBlank(row.Logo), orBlank(row.Function), row.Won, row.Lost)
	}
	sb.WriteString("\n")
}

func writeTrend(sb *strings.Builder, ds *model.AggregateDataset) {
	weeks := ds.IntroTrend.Weeks
	if len(weeks) == 0 {
		return
	}
	if len(weeks) > maxTrendWeeks {
		weeks = weeks[len(weeks)-maxTrendWeeks:]
	}
	series := ds.IntroTrend.Series[model.ScopeOverall]
	total, peak := 0, 0
	for _, w := range weeks {
		total += series[w]
		if series[w] > peak {
			peak = series[w]
		}
	}
	avg := float64(total) / float64(len(weeks))
	fmt.Fprintf(sb, "Intro meetings: %d across %d weeks (avg %.2f/week, peak %d), latest weeks:",
		total, len(weeks), avg, peak)
	tail := weeks
	if len(tail) > 6 {
		tail = tail[len(tail)-6:]
	}
	for _, w := range tail {
		fmt.Fprintf(sb, " %s=%d", w, series[w])
	}
	sb.WriteString("\n\n")
}

// writeDeals quotes individual rows matching the question's focus, bounded
// and deterministic (alphabetical by name, intro date breaking ties).
func writeDeals(sb *strings.Builder, ds *model.AggregateDataset, focus questionFocus) {
	var matched []model.DealRow
	for _, row := range ds.AllDealsRows {
		if focus.seller != "" && !hasLabel(row.Sellers, focus.seller) {
			continue
		}
		if focus.stage != "" && row.FunnelStage != focus.stage {
			continue
		}
		if focus.month != "" && (row.IntroDate == nil || row.IntroDate.Month() != focus.month) {
			continue
		}
		matched = append(matched, row)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		ni, nj := strings.ToLower(matched[i].Name), strings.ToLower(matched[j].Name)
		if ni != nj {
			return ni < nj
		}
		di, dj := "", ""
		if matched[i].IntroDate != nil {
			di = matched[i].IntroDate.String()
		}
		if matched[j].IntroDate != nil {
			dj = matched[j].IntroDate.String()
		}
		return di < dj
	})

	total := len(matched)
	truncated := false
	if len(matched) > maxContextDeals {
		matched, truncated = matched[:maxContextDeals], true
	}

	fmt.Fprintf(sb, "Matching deals (%d total, %d shown):\n", total, len(matched))
	for _, row := range matched {
		intro := "no intro date"
		if row.IntroDate != nil {
			intro = row.IntroDate.String()
		}
		size := ""
		if row.DealSize != nil {
			size = fmt.Sprintf(", size %.0f", *row.DealSize)
		}
		fmt.Fprintf(sb, "- %s [%s] intro %s, owner %s%s\n",
			row.Name, row.FunnelStage, intro, orBlank(row.Owner), size)
	}
	if truncated {
		sb.WriteString("(list truncated)\n")
	}
}

func hasLabel(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}

func orBlank(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(blank)"
	}
	return s
}
