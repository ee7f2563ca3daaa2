package models

import "strconv"

// DraftFilter is a partial, unvalidated filter as proposed by the NLU oracle or
// carried between clarification turns. Every field is optional.
type DraftFilter struct {
	ItemName    string   `json:"item_name,omitempty"`
	VarietyName string   `json:"variety_name,omitempty"`
	MarketName  string   `json:"market_name,omitempty"`
	DateFrom    string   `json:"date_from,omitempty"`
	DateTo      string   `json:"date_to,omitempty"`
	ChartType   string   `json:"chart_type,omitempty"`
	Metrics     []string `json:"metrics,omitempty"`
	Granularity string   `json:"granularity,omitempty"`
	TopNMarkets *int     `json:"top_n_markets,omitempty"`
	Intent      string   `json:"intent,omitempty"`
	WindowDays  *int     `json:"window_days,omitempty"`
	Explain     *bool    `json:"explain,omitempty"`
}

// Clone returns a deep copy of d.
func (d DraftFilter) Clone() DraftFilter {
	out := d
	if d.Metrics != nil {
		out.Metrics = append([]string(nil), d.Metrics...)
	}
	if d.TopNMarkets != nil {
		v := *d.TopNMarkets
		out.TopNMarkets = &v
	}
	if d.WindowDays != nil {
		v := *d.WindowDays
		out.WindowDays = &v
	}
	if d.Explain != nil {
		v := *d.Explain
		out.Explain = &v
	}
	return out
}

// HasDateRange reports whether the draft pins any explicit date.
func (d DraftFilter) HasDateRange() bool {
	return d.DateFrom != "" || d.DateTo != ""
}

// Filter is the validated canonical query. Field order is part of the wire contract.
type Filter struct {
	ItemName    string      `json:"item_name"`
	VarietyName *string     `json:"variety_name"`
	MarketName  *string     `json:"market_name"`
	DateFrom    Date        `json:"date_from"`
	DateTo      Date        `json:"date_to"`
	ChartType   ChartType   `json:"chart_type"`
	Metrics     []Metric    `json:"metrics"`
	Granularity Granularity `json:"granularity"`
	TopNMarkets int         `json:"top_n_markets"`
	Intent      Intent      `json:"intent"`
	WindowDays  int         `json:"window_days"`
	Explain     bool        `json:"explain"`
}

func (f Filter) Variety() string { return Deref(f.VarietyName) }
func (f Filter) Market() string  { return Deref(f.MarketName) }

// HasMetric reports whether m was requested.
func (f Filter) HasMetric(m Metric) bool {
	for _, x := range f.Metrics {
		if x == m {
			return true
		}
	}
	return false
}

// EffectiveGranularity is the bucket width the engine actually uses.
// Volatility is always computed on daily points.
func (f Filter) EffectiveGranularity() Granularity {
	if f.ChartType == ChartVolatility {
		return GranularityDaily
	}
	return f.Granularity
}

// Draft renders f back into draft form. Normalizing the result yields f again.
func (f Filter) Draft() DraftFilter {
	metrics := make([]string, len(f.Metrics))
	for i, m := range f.Metrics {
		metrics[i] = string(m)
	}
	topN, window, explain := f.TopNMarkets, f.WindowDays, f.Explain
	return DraftFilter{
		ItemName:    f.ItemName,
		VarietyName: f.Variety(),
		MarketName:  f.Market(),
		DateFrom:    f.DateFrom.String(),
		DateTo:      f.DateTo.String(),
		ChartType:   string(f.ChartType),
		Metrics:     metrics,
		Granularity: string(f.Granularity),
		TopNMarkets: &topN,
		Intent:      string(f.Intent),
		WindowDays:  &window,
		Explain:     &explain,
	}
}

// CacheKey is a stable textual identity of the filter.
func (f Filter) CacheKey() string {
	key := f.ItemName + "|" + f.Variety() + "|" + f.Market() + "|" +
		f.DateFrom.String() + "|" + f.DateTo.String() + "|" +
		string(f.ChartType) + "|" + string(f.Granularity) + "|" + string(f.Intent) + "|" +
		strconv.Itoa(f.TopNMarkets) + "|" + strconv.Itoa(f.WindowDays)
	for _, m := range f.Metrics {
		key += "|" + string(m)
	}
	return key
}
