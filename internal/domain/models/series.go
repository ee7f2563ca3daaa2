package models

// SeriesPoint is one bucket of the output series, the contract with the rendering layer.
type SeriesPoint struct {
	Date       Date     `json:"date"`
	Price      *float64 `json:"price"`
	Volume     *float64 `json:"volume"`
	MarketName *string  `json:"market_name"`
}

// MarketRank is one entry of a compare_markets ranking.
type MarketRank struct {
	Rank         int      `json:"rank"`
	MarketName   string   `json:"market_name"`
	Score        *float64 `json:"score"`
	Observations int      `json:"observations"`
}

// RollingPoint carries the rolling window statistics of a volatility series.
type RollingPoint struct {
	Date Date     `json:"date"`
	Mean *float64 `json:"rolling_mean"`
	Std  *float64 `json:"rolling_std"`
}

// Spike is a daily price deviating from the rolling mean by more than two rolling std.
type Spike struct {
	Date        Date    `json:"date"`
	Price       float64 `json:"price"`
	RollingMean float64 `json:"rolling_mean"`
	RollingStd  float64 `json:"rolling_std"`
	ZScore      float64 `json:"z_score"`
	Direction   string  `json:"direction"` // "up" | "down"
}

// TrendDirection is the coarse movement between the first and latest price.
type TrendDirection string

const (
	TrendUp      TrendDirection = "up"
	TrendDown    TrendDirection = "down"
	TrendFlat    TrendDirection = "flat"
	TrendUnknown TrendDirection = "unknown"
)

// SummaryStats are the derived statistics of a series.
type SummaryStats struct {
	LatestPrice   *float64 `json:"latest_price"`
	LatestVolume  *float64 `json:"latest_volume"`
	WowPricePct   *float64 `json:"wow_price_pct"`
	MomPricePct   *float64 `json:"mom_price_pct"`
	Volatility14d *float64 `json:"volatility_14d"`
	DataPoints    int      `json:"data_points"`
	MissingRate   float64  `json:"missing_rate"`

	WowVolumePct    *float64       `json:"wow_volume_pct"`
	TrendDirection  TrendDirection `json:"trend_direction"`
	PrevYearPrice   *float64       `json:"prev_year_price"`
	CommonYearPrice *float64       `json:"common_year_price"`
	YoyPricePct     *float64       `json:"yoy_price_pct"`
	VsCommonYearPct *float64       `json:"vs_common_year_pct"`
	Spikes          []Spike        `json:"spikes"`
}

// QueryResult is the engine output for one filter.
type QueryResult struct {
	Series  []SeriesPoint   `json:"series"`
	Markets []MarketRank    `json:"markets,omitempty"`
	Rolling []RollingPoint  `json:"rolling,omitempty"`
	Spikes  []Spike         `json:"spikes,omitempty"`
	Rows    []TimeSeriesRow `json:"-"`
}

// NarrativeInput is the read-only payload handed to a narrator.
type NarrativeInput struct {
	Filter  Filter        `json:"filter"`
	Series  []SeriesPoint `json:"series"`
	Summary SummaryStats  `json:"summary"`
	Markets []MarketRank  `json:"markets,omitempty"`
}

// MaskMetrics returns a copy of series with the metrics the filter did not request nulled out.
func MaskMetrics(series []SeriesPoint, f Filter) []SeriesPoint {
	keepPrice, keepVolume := f.HasMetric(MetricPrice), f.HasMetric(MetricVolume)
	out := make([]SeriesPoint, len(series))
	for i, p := range series {
		if !keepPrice {
			p.Price = nil
		}
		if !keepVolume {
			p.Volume = nil
		}
		out[i] = p
	}
	return out
}
