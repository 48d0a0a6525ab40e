package model

// ChannelCategory buckets a deal's origin from its source/revenue columns.
type ChannelCategory string

const (
	ChannelPartner  ChannelCategory = "partner"
	ChannelReferral ChannelCategory = "referral"
	ChannelOutbound ChannelCategory = "outbound"
	ChannelInbound  ChannelCategory = "inbound"
	ChannelEvent    ChannelCategory = "event"
	ChannelOther    ChannelCategory = "other"
)

// Outcome is the terminal state of a deal, when it has one.
type Outcome string

const (
	OutcomeWon  Outcome = "won"
	OutcomeLost Outcome = "lost"
	OutcomeOpen Outcome = "open"
)

// DealRow is the canonical per-deal row every downstream component consumes.
// Raw *Text fields are kept alongside their parsed forms so the QA auditor
// can distinguish "blank" from "present but unparseable".
type DealRow struct {
	ID   string `json:"deal_id,omitempty"`
	Name string `json:"deal"`

	Stage       string  `json:"stage"`
	StageKey    string  `json:"stage_key"`
	FunnelStage string  `json:"funnel_stage"`
	Outcome     Outcome `json:"outcome"`

	Owner   string   `json:"owner"`
	Sellers []string `json:"sellers"`

	IntroDateText string `json:"intro_date_raw,omitempty"`
	IntroDate     *Date  `json:"intro_date,omitempty"`

	StartDateText string `json:"start_date_raw,omitempty"`
	StartDate     *Date  `json:"start_date,omitempty"`

	NextStepText string `json:"next_step_raw,omitempty"`
	NextStep     *Date  `json:"next_step_date,omitempty"`

	DealSizeText string   `json:"deal_size_raw,omitempty"`
	DealSize     *float64 `json:"deal_size,omitempty"`

	DurationText   string `json:"duration_raw,omitempty"`
	DurationMonths *int   `json:"duration_months,omitempty"`

	Industry         string          `json:"industry"`
	Logo             string          `json:"logo"`
	BusinessFunction string          `json:"business_function"`
	SourceOfLead     string          `json:"source_of_lead,omitempty"`
	RevenueSource    string          `json:"revenue_source,omitempty"`
	Channel          ChannelCategory `json:"channel"`
}

// Key returns the canonical dedup key: the record id when present, else
// name plus intro date.
func (r DealRow) Key() string {
	if r.ID != "" {
		return "id:" + r.ID
	}
	k := "name:" + r.Name
	if r.IntroDate != nil {
		k += "|" + r.IntroDate.String()
	}
	return k
}

// HasSeller reports whether the row matched at least one roster seller.
func (r DealRow) HasSeller() bool { return len(r.Sellers) > 0 }
