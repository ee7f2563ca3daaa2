package models

import "time"

// Requests and responses of the question-answering endpoints.

type AskRequest struct {
	Question       string            `json:"question" validate:"required_without=DraftFilters,max=1000"`
	DraftFilters   *DraftFilter      `json:"draft_filters"`
	ClarifyAnswers map[string]string `json:"clarify_answers" validate:"omitempty,max=10,dive,keys,required,max=64,endkeys,max=200"`
	UseLLM         *bool             `json:"use_llm"`
}

type CandidatesRequest struct {
	Field string `query:"field" json:"field" validate:"required,oneof=item_name variety_name market_name"`
	Query string `query:"q" json:"q" validate:"required,max=100"`
	Item  string `query:"item" json:"item" validate:"max=100"`
	Limit int    `query:"limit" json:"limit" default:"5" validate:"gte=1,lte=20"`
}

type ReloadRequest struct {
	Reason string `json:"reason" default:"manual" validate:"max=200"`
}

// Response types.
const (
	ResponseResult  = "result"
	ResponseClarify = "clarify"
)

type Clarification struct {
	DraftFilters DraftFilter `json:"draft_filters"`
	Questions    []Question  `json:"questions"`
}

type AskResponse struct {
	Type          string         `json:"type"`
	Filters       *Filter        `json:"filters,omitempty"`
	Series        []SeriesPoint  `json:"series"`
	Summary       *SummaryStats  `json:"summary,omitempty"`
	Markets       []MarketRank   `json:"markets,omitempty"`
	Rolling       []RollingPoint `json:"rolling,omitempty"`
	Narrative     string         `json:"narrative"`
	Warnings      []string       `json:"warnings"`
	Clarification *Clarification `json:"clarification,omitempty"`
	RequestID     string         `json:"request_id"`
}

// QueryEvent is the audit record emitted for every answered request.
type QueryEvent struct {
	RequestID  string    `json:"request_id"`
	Question   string    `json:"question"`
	Type       string    `json:"type"`
	ItemName   string    `json:"item_name,omitempty"`
	ChartType  string    `json:"chart_type,omitempty"`
	DataPoints int       `json:"data_points"`
	Questions  []string  `json:"questions,omitempty"`
	Error      string    `json:"error,omitempty"`
	LatencyMs  int64     `json:"latency_ms"`
	Version    uint64    `json:"dataset_version"`
	Timestamp  time.Time `json:"timestamp"`
}

// RefreshEvent asks running instances to reload their dataset.
// Origin identifies the publishing instance, which has already reloaded.
type RefreshEvent struct {
	Reason      string    `json:"reason"`
	Origin      string    `json:"origin,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// RefreshReport describes one completed dataset swap.
type RefreshReport struct {
	Source   string        `json:"source"`
	Rows     int           `json:"rows"`
	Rejected int           `json:"rejected"`
	Version  uint64        `json:"version"`
	Duration time.Duration `json:"-"`
	LoadedAt time.Time     `json:"loaded_at"`
}
