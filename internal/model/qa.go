package model

// Severity is the outcome of a single QA check.
type Severity string

const (
	SeverityPass          Severity = "pass"
	SeverityWarn          Severity = "warn"
	SeverityFail          Severity = "fail"
	SeverityNotApplicable Severity = "not_applicable"
)

// CheckCategory groups checks for scoring: schema/format failures cost more
// than the rest.
type CheckCategory string

const (
	CategorySchema      CheckCategory = "schema_presence"
	CategoryFormat      CheckCategory = "type_format"
	CategoryBusiness    CheckCategory = "business_rules"
	CategoryCrossTable  CheckCategory = "cross_table"
	CategoryComparative CheckCategory = "comparative"
)

// QAStatus is the rolled-up report status.
type QAStatus string

const (
	QAStatusPass QAStatus = "pass"
	QAStatusWarn QAStatus = "warn"
	QAStatusFail QAStatus = "fail"
)

// Check is one QA rule evaluation.
type Check struct {
	ID           string        `json:"id"`
	Category     CheckCategory `json:"category"`
	Severity     Severity      `json:"severity"`
	Metric       string        `json:"metric"`
	Threshold    string        `json:"threshold"`
	Result       string        `json:"result"`
	AffectedRows *int          `json:"affected_rows,omitempty"`
	AffectedPct  *float64      `json:"affected_pct,omitempty"`
	Samples      []string      `json:"samples,omitempty"`
}

// CheckList wraps the checks array; kept as its own struct so the report
// JSON nests as report.checks[].
type CheckList struct {
	Checks []Check `json:"checks"`
}

// QAReport is the scored result of one audit run. Score starts at 100 and is
// only ever decreased; it is clamped to [0,100].
type QAReport struct {
	Status  QAStatus  `json:"status"`
	Score   int       `json:"score"`
	Summary string    `json:"summary"`
	Report  CheckList `json:"report"`
}

// Failed reports whether any check failed.
func (r QAReport) Failed() bool {
	for _, c := range r.Report.Checks {
		if c.Severity == SeverityFail {
			return true
		}
	}
	return false
}
