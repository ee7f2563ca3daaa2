package models

// TimeSeriesRow is one wholesale observation for an item/variety at a market on a day.
// Rows are immutable once loaded.
type TimeSeriesRow struct {
	MarketCode  string   `json:"market_code"`
	MarketName  string   `json:"market_name"`
	ItemCode    string   `json:"item_code"`
	ItemName    string   `json:"item_name"`
	VarietyCode string   `json:"variety_code"`
	VarietyName string   `json:"variety_name"`
	Date        Date     `json:"date"`
	PriceKg     *float64 `json:"price_kg"`
	VolumeKg    *float64 `json:"volume_kg"`
	AmountKrw   *float64 `json:"amount_krw,omitempty"`

	// Baseline averages published alongside the observation (KRW/kg).
	PrevPeriodPrice *float64 `json:"prev_period_price,omitempty"`
	PrevMonthPrice  *float64 `json:"prev_month_price,omitempty"`
	PrevYearPrice   *float64 `json:"prev_year_price,omitempty"`
	CommonYearPrice *float64 `json:"common_year_price,omitempty"`
}

// LoadBatch is what a row source hands to the dataset builder.
type LoadBatch struct {
	Source   string
	Rows     []TimeSeriesRow
	Rejected []*InvalidRowError
}

// Dimensions summarizes the distinct values of a dataset snapshot.
type Dimensions struct {
	Items     []string            `json:"items"`
	Varieties map[string][]string `json:"varieties"`
	Markets   []string            `json:"markets"`
	MaxDate   Date                `json:"max_date"`
	Rows      int                 `json:"rows"`
	Version   uint64              `json:"version"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Str returns a pointer to s, or nil when s is empty.
func Str(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
