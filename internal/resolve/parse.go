package resolve

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/funnel-cli/internal/model"
)

var (
	slashDateRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2,4})$`)
	serialRe    = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	numTokenRe  = regexp.MustCompile(`-?\d+(\.\d+)?`)
	amountKeep  = regexp.MustCompile(`[^0-9.\-]`)
)

// isoLayouts are tried in order for ISO-like date strings.
var isoLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02-Jan-2006",
	"02 Jan 2006",
	"Jan 2 2006",
	"January 2 2006",
}

// xlsxEpoch is the day-zero of spreadsheet serial dates.
var xlsxEpoch = model.NewDate(1899, time.December, 30)

// ParseDate parses the date representations the board emits: ISO-like
// strings, M/D/YY or M/D/YYYY (two-digit years read as 20YY), and bare
// spreadsheet serial numbers from xlsx exports. The result is truncated to
// the day. Returns nil when nothing parses.
func ParseDate(raw string) *model.Date {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if serialRe.MatchString(s) {
		serial, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(serial) || math.IsInf(serial, 0) {
			return nil
		}
		d := xlsxEpoch.AddDays(int(serial))
		return &d
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := model.DateOf(t)
			return &d
		}
	}
	if m := slashDateRe.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			year += 2000
		}
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return nil
		}
		d := model.NewDate(year, time.Month(month), day)
		return &d
	}
	return nil
}

// ParseAmount strips everything but digits, '.' and '-' and converts the
// remainder. Returns nil for blank or non-finite values.
func ParseAmount(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	cleaned := amountKeep.ReplaceAllString(s, "")
	if cleaned == "" {
		return nil
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	return &n
}

// ParseDurationMonths extracts the first numeric token and rounds it to a
// whole month count, minimum 1. Non-positive or missing values return nil.
func ParseDurationMonths(raw string) *int {
	tok := numTokenRe.FindString(strings.TrimSpace(raw))
	if tok == "" {
		return nil
	}
	n, err := strconv.ParseFloat(tok, 64)
	if err != nil || n <= 0 {
		return nil
	}
	months := int(math.Round(n))
	if months < 1 {
		months = 1
	}
	return &months
}
