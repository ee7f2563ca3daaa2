package models

// Stable clarification question identifiers.
const (
	QuestionRecentWindow     = "recent_window"
	QuestionExpensiveMeaning = "expensive_meaning"
	QuestionItemChoice       = "item_choice"
	QuestionVarietyChoice    = "variety_choice"
	QuestionMarketChoice     = "market_choice"
)

// Question is a single enumerated disambiguation prompt.
type Question struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Default  string   `json:"default"`
}

// ResolutionState is the clarification lifecycle state.
type ResolutionState string

const (
	StateDraft     ResolutionState = "DRAFT"
	StateAmbiguous ResolutionState = "AMBIGUOUS"
	StateClarified ResolutionState = "CLARIFIED"
	StateReady     ResolutionState = "READY"
)

// Resolution is the outcome of one resolver pass. Filter is set only when the
// state is CLARIFIED or READY; Questions only when AMBIGUOUS.
type Resolution struct {
	State     ResolutionState
	Filter    *Filter
	Draft     DraftFilter
	Questions []Question
	Warnings  []string
}

// NeedsClarification reports whether questions are pending.
func (r Resolution) NeedsClarification() bool {
	return r.State == StateAmbiguous
}

// Oracle output kinds.
const (
	OracleFilters = "filters"
	OracleClarify = "clarify"
)

// OracleOutput is the structural shape returned by the NLU oracle. Nothing in it
// is trusted beyond its shape.
type OracleOutput struct {
	Type         string       `json:"type"`
	Filters      *DraftFilter `json:"filters,omitempty"`
	DraftFilters *DraftFilter `json:"draft_filters,omitempty"`
	Questions    []Question   `json:"questions,omitempty"`
	Warnings     []string     `json:"warnings,omitempty"`
}

// Draft returns whichever draft the oracle filled.
func (o OracleOutput) Draft() DraftFilter {
	switch {
	case o.Filters != nil:
		return o.Filters.Clone()
	case o.DraftFilters != nil:
		return o.DraftFilters.Clone()
	}
	return DraftFilter{}
}
