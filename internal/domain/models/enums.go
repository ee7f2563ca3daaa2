package models

import "strings"

// ChartType selects the query engine mode.
type ChartType string

const (
	ChartTrend          ChartType = "trend"
	ChartCompareMarkets ChartType = "compare_markets"
	ChartVolumePrice    ChartType = "volume_price"
	ChartVolatility     ChartType = "volatility"
)

// Metric is a measure carried on SeriesPoint.
type Metric string

const (
	MetricPrice  Metric = "price"
	MetricVolume Metric = "volume"
)

// Granularity is the bucket width of a series.
type Granularity string

const (
	GranularityDaily  Granularity = "daily"
	GranularityWeekly Granularity = "weekly"
)

// Intent refines what "expensive" or "moving" means for a question.
type Intent string

const (
	IntentNormal          Intent = "normal"
	IntentHighAvgPrice    Intent = "high_avg_price"
	IntentHighPriceChange Intent = "high_price_change"
	IntentHighVolatility  Intent = "high_volatility"
)

// Filter defaults.
const (
	DefaultTopNMarkets = 5
	DefaultWindowDays  = 30
	DefaultTrendDays   = 180
)

// IsValidChartType returns true if c is a supported chart type.
func IsValidChartType(c ChartType) bool {
	switch c {
	case ChartTrend, ChartCompareMarkets, ChartVolumePrice, ChartVolatility:
		return true
	default:
		return false
	}
}

// DefaultChartType returns the default chart type.
func DefaultChartType() ChartType { return ChartTrend }

// ParseChartType converts raw input to a chart type. Empty input yields the default;
// unknown input yields false.
func ParseChartType(s string) (ChartType, bool) {
	s = canon(s)
	if s == "" {
		return DefaultChartType(), true
	}
	c := ChartType(s)
	return c, IsValidChartType(c)
}

// IsValidMetric returns true if m is a supported metric.
func IsValidMetric(m Metric) bool {
	return m == MetricPrice || m == MetricVolume
}

// DefaultMetrics returns both metrics in canonical order.
func DefaultMetrics() []Metric { return []Metric{MetricPrice, MetricVolume} }

// ParseMetric converts raw input to a metric.
func ParseMetric(s string) (Metric, bool) {
	m := Metric(canon(s))
	return m, IsValidMetric(m)
}

// IsValidGranularity returns true if g is a supported granularity.
func IsValidGranularity(g Granularity) bool {
	return g == GranularityDaily || g == GranularityWeekly
}

// DefaultGranularity returns the default granularity.
func DefaultGranularity() Granularity { return GranularityWeekly }

// ParseGranularity converts raw input to a granularity.
func ParseGranularity(s string) (Granularity, bool) {
	s = canon(s)
	if s == "" {
		return DefaultGranularity(), true
	}
	g := Granularity(s)
	return g, IsValidGranularity(g)
}

// IsValidIntent returns true if i is a supported intent.
func IsValidIntent(i Intent) bool {
	switch i {
	case IntentNormal, IntentHighAvgPrice, IntentHighPriceChange, IntentHighVolatility:
		return true
	default:
		return false
	}
}

// DefaultIntent returns the default intent.
func DefaultIntent() Intent { return IntentNormal }

// ParseIntent converts raw input to an intent.
func ParseIntent(s string) (Intent, bool) {
	s = canon(s)
	if s == "" {
		return DefaultIntent(), true
	}
	i := Intent(s)
	return i, IsValidIntent(i)
}

func canon(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
