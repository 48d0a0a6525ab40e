package model

// ScopeAll is the aggregate scope covering every unique deal once.
const ScopeAll = "All (unique deals)"

// ScopeOverall is the intro-trend series name for the unique-deal scope.
// The dashboard historically labels it differently from ScopeAll.
const ScopeOverall = "Overall (unique)"

// CountTable is stage -> month -> count.
type CountTable map[string]map[string]int

// DetailTable is stage -> month -> sorted deal names.
type DetailTable map[string]map[string][]string

// DatasetMeta records provenance for one built dataset.
type DatasetMeta struct {
	IntroDateCutoff  string `json:"intro_date_cutoff"`
	CutoffMonth      string `json:"cutoff_month_bucket"`
	DateBasis        string `json:"date_basis"`
	Source           string `json:"source"`
	MondayBoardID    string `json:"monday_board_id,omitempty"`
	MondayBoardName  string `json:"monday_board_name,omitempty"`
}

// FunnelSellerMetrics holds per-seller funnel conversion over the six
// ordered matter stages. Reached is a suffix sum of Counts, so it is
// non-increasing; ConversionToNext is nil where the denominator is zero and
// always nil for the terminal stage.
type FunnelSellerMetrics struct {
	Counts           []int      `json:"counts"`
	Reached          []int      `json:"reached"`
	ConversionToNext []*float64 `json:"conversion_to_next"`
	TotalStage16     int        `json:"total_stage_1_6"`
}

// FunnelMetrics is the funnel conversion view for all sellers.
type FunnelMetrics struct {
	Stages  []string                       `json:"stages"`
	Sellers map[string]FunnelSellerMetrics `json:"sellers"`
}

// KPIRecord is one drill-down entry behind a scorecard bucket.
type KPIRecord struct {
	Deal            string   `json:"deal"`
	Seller          string   `json:"seller"`
	Stage           string   `json:"stage"`
	CreatedMonth    string   `json:"created_month"`
	AgeDays         *int     `json:"age_days"`
	DealSize        *float64 `json:"deal_size"`
	Reason          string   `json:"reason,omitempty"`
	MissingNextStep *bool    `json:"missing_next_step,omitempty"`
	OverSLA         *bool    `json:"over_sla,omitempty"`
}

// KPIDetails groups every drill-down list for one scope.
type KPIDetails struct {
	Stage12         []KPIRecord `json:"stage_1_2"`
	Stage34         []KPIRecord `json:"stage_3_4"`
	Stage16         []KPIRecord `json:"stage_1_6"`
	Stage56         []KPIRecord `json:"stage_5_6"`
	Stage78         []KPIRecord `json:"stage_7_8"`
	MissingNextStep []KPIRecord `json:"missing_next_step_2_6"`
	OverSLA         []KPIRecord `json:"over_sla_2_6"`
	Stuck           []KPIRecord `json:"stuck_proxy_2_6"`
}

// SellerScorecard is the per-scope scorecard view.
type SellerScorecard struct {
	Stage12Count       int         `json:"stage_1_2_count"`
	Stage34Count       int         `json:"stage_3_4_count"`
	Stage16Count       int         `json:"stage_1_6_count"`
	Stage56Count       int         `json:"stage_5_6_count"`
	Stage78Count       int         `json:"stage_7_8_count"`
	MissingNextStep26  int         `json:"missing_next_step_2_6"`
	MissingNextStepPct float64     `json:"missing_next_step_pct_1_6"`
	OverSLA26          int         `json:"over_sla_2_6"`
	OverSLAPct         float64     `json:"over_sla_pct_1_6"`
	StuckProxy26       int         `json:"stuck_proxy_2_6"`
	StuckTop10         []KPIRecord `json:"stuck_top10"`
	KPIDetails         KPIDetails  `json:"kpi_details"`
}

// Scorecard is the scorecard view across scopes.
type Scorecard struct {
	AsOfDate string                     `json:"as_of_date"`
	Sellers  map[string]SellerScorecard `json:"sellers"`
}

// IndustryBlock is the per-industry breakdown of active matter-stage work.
type IndustryBlock struct {
	Industry  string         `json:"industry"`
	Total     int            `json:"total"`
	Logos     map[string]int `json:"logos"`
	Functions map[string]int `json:"functions"`
}

// IndustrySellerAction is one seller's industry-action table.
type IndustrySellerAction struct {
	Total      int             `json:"total"`
	Industries []IndustryBlock `json:"industries"`
}

// IndustryAction is the industry-action view across sellers.
type IndustryAction struct {
	Sellers map[string]IndustrySellerAction `json:"sellers"`
}

// WinLossRow is one (industry, logo, function) outcome combo.
type WinLossRow struct {
	Industry string  `json:"industry"`
	Logo     string  `json:"logo"`
	Function string  `json:"function"`
	Won      int     `json:"won"`
	Lost     int     `json:"lost"`
	Total    int     `json:"total"`
	WinRate  float64 `json:"win_rate"`
	LossRate float64 `json:"loss_rate"`
}

// WinLossBucket aggregates won/lost outcomes for one scope.
type WinLossBucket struct {
	WonTotal       int          `json:"won_total"`
	LostTotal      int          `json:"lost_total"`
	Total          int          `json:"total"`
	OverallWinRate float64      `json:"overall_win_rate"`
	Rows           []WinLossRow `json:"rows"`
}

// WinLossSources is the win/loss view across scopes.
type WinLossSources struct {
	OverallUnique WinLossBucket            `json:"overall_unique"`
	Sellers       map[string]WinLossBucket `json:"sellers"`
	Note          string                   `json:"note"`
}

// IntroDetail is one deal inside a weekly intro-trend bucket.
type IntroDetail struct {
	Deal      string `json:"deal"`
	Stage     string `json:"stage"`
	IntroDate string `json:"intro_date"`
	Seller    string `json:"seller"`
}

// IntroTrend is the weekly intro-trend view.
type IntroTrend struct {
	Weeks   []string                            `json:"weeks"`
	Series  map[string]map[string]int           `json:"series"`
	Details map[string]map[string][]IntroDetail `json:"details"`
	Note    string                              `json:"note"`
}

// AggregateDataset bundles every derived view built from one snapshot of
// board records. Field names and nesting are load-bearing: the dashboard
// and the QA auditor both read this JSON shape.
type AggregateDataset struct {
	Sellers []string `json:"sellers"`
	Months  []string `json:"months"`
	Stages  []string `json:"stages"`

	Tables  map[string]CountTable  `json:"tables"`
	Details map[string]DetailTable `json:"details"`
	CarryIn map[string]CountTable  `json:"carry_in"`

	Meta           DatasetMeta    `json:"meta"`
	FunnelMetrics  FunnelMetrics  `json:"funnel_metrics"`
	Scorecard      Scorecard      `json:"scorecard"`
	IndustryAction IndustryAction `json:"industry_action"`
	WinLossSources WinLossSources `json:"win_loss_sources"`
	IntroTrend     IntroTrend     `json:"intro_trend"`

	AllDealsRows  []DealRow `json:"all_deals_rows"`
	CycleTimeRows []DealRow `json:"cycle_time_rows"`
}
