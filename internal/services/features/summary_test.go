package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgriPrice/internal/domain/models"
	"AgriPrice/internal/services/dataset"
	"AgriPrice/internal/services/query"
)

func obs(market string, d models.Date, price float64) models.TimeSeriesRow {
	return models.TimeSeriesRow{
		ItemName:   "potato",
		MarketName: market,
		Date:       d,
		PriceKg:    models.Float(price),
		VolumeKg:   models.Float(100),
	}
}

func run(t *testing.T, rows []models.TimeSeriesRow, f models.Filter) *models.QueryResult {
	t.Helper()
	a, _, err := dataset.New(rows)
	require.NoError(t, err)
	res, err := query.NewEngine().Execute(a, f)
	require.NoError(t, err)
	return res
}

func baseFilter(chart models.ChartType, g models.Granularity, from, to models.Date) models.Filter {
	return models.Filter{
		ItemName:    "potato",
		DateFrom:    from,
		DateTo:      to,
		ChartType:   chart,
		Metrics:     models.DefaultMetrics(),
		Granularity: g,
		TopNMarkets: 5,
		Intent:      models.IntentNormal,
		WindowDays:  30,
	}
}

func TestSummarizeWeeklyTrend(t *testing.T) {
	start := models.NewDate(2024, 6, 27)
	var rows []models.TimeSeriesRow
	for i := 0; i < 27; i++ {
		rows = append(rows, obs("Seoul", start.AddDays(7*i), 1000+float64(i)*10))
	}
	f := baseFilter(models.ChartTrend, models.GranularityWeekly, start, models.NewDate(2024, 12, 27))
	stats := Summarize(run(t, rows, f), f)

	require.NotNil(t, stats.LatestPrice)
	assert.Equal(t, 1260.0, *stats.LatestPrice)
	assert.Equal(t, 100.0, *stats.LatestVolume)
	require.NotNil(t, stats.WowPricePct)
	assert.Equal(t, 0.8, *stats.WowPricePct)
	assert.Equal(t, 0.0, *stats.WowVolumePct)
	assert.Equal(t, 27, stats.DataPoints)
	assert.Equal(t, 0.0, stats.MissingRate)
	assert.Equal(t, models.TrendUp, stats.TrendDirection)
	// Weekly observations leave at most two prices in any 14-day window.
	assert.Nil(t, stats.Volatility14d)
	assert.NotNil(t, stats.Spikes)
}

func TestWowIsNilWithoutExactPriorWeek(t *testing.T) {
	d := models.NewDate(2024, 3, 4)
	rows := []models.TimeSeriesRow{obs("Seoul", d, 100), obs("Seoul", d.AddDays(14), 120)}
	f := baseFilter(models.ChartTrend, models.GranularityWeekly, d, d.AddDays(20))
	stats := Summarize(run(t, rows, f), f)

	assert.Nil(t, stats.WowPricePct)
	assert.Nil(t, stats.WowVolumePct)
	assert.Equal(t, 120.0, *stats.LatestPrice)
	assert.InDelta(t, 1-2.0/3.0, stats.MissingRate, 0.0001)
}

func TestMomPricePct(t *testing.T) {
	latest := models.NewDate(2024, 3, 31)
	cases := []struct {
		name    string
		baseDay models.Date
		want    *float64
	}{
		{"exact clamped day", models.NewDate(2024, 2, 29), models.Float(25)},
		{"within tolerance", models.NewDate(2024, 2, 26), models.Float(25)},
		{"outside tolerance", models.NewDate(2024, 2, 25), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rows := []models.TimeSeriesRow{obs("Seoul", tc.baseDay, 80), obs("Seoul", latest, 100)}
			f := baseFilter(models.ChartTrend, models.GranularityDaily, models.NewDate(2024, 2, 1), latest)
			stats := Summarize(run(t, rows, f), f)
			assert.Equal(t, tc.want, stats.MomPricePct)
		})
	}
}

func TestMomPrefersEarlierOnTie(t *testing.T) {
	latest := models.NewDate(2024, 5, 15)
	rows := []models.TimeSeriesRow{
		obs("Seoul", models.NewDate(2024, 4, 13), 50),
		obs("Seoul", models.NewDate(2024, 4, 17), 80),
		obs("Seoul", latest, 100),
	}
	f := baseFilter(models.ChartTrend, models.GranularityDaily, models.NewDate(2024, 4, 1), latest)
	stats := Summarize(run(t, rows, f), f)
	require.NotNil(t, stats.MomPricePct)
	assert.Equal(t, 100.0, *stats.MomPricePct)
}

func TestVolatility14d(t *testing.T) {
	latest := models.NewDate(2024, 5, 20)
	rows := []models.TimeSeriesRow{
		obs("Seoul", latest.AddDays(-20), 1000), // outside the 14-day window
		obs("Seoul", latest.AddDays(-13), 10),
		obs("Seoul", latest.AddDays(-5), 20),
		obs("Seoul", latest, 30),
	}
	f := baseFilter(models.ChartTrend, models.GranularityDaily, latest.AddDays(-30), latest)
	stats := Summarize(run(t, rows, f), f)
	require.NotNil(t, stats.Volatility14d)
	assert.Equal(t, 10.0, *stats.Volatility14d)

	f.DateFrom = latest.AddDays(-6)
	stats = Summarize(run(t, rows, f), f)
	assert.Nil(t, stats.Volatility14d)
}

func TestSummarizeCompareMarketsCollapsesDates(t *testing.T) {
	d := models.NewDate(2024, 5, 6)
	rows := []models.TimeSeriesRow{
		obs("A", d, 100), obs("B", d, 300),
		obs("A", d.AddDays(7), 200), obs("B", d.AddDays(7), 400),
	}
	f := baseFilter(models.ChartCompareMarkets, models.GranularityWeekly, d, d.AddDays(13))
	stats := Summarize(run(t, rows, f), f)
	assert.Equal(t, 300.0, *stats.LatestPrice)
	assert.Equal(t, 200.0, *stats.LatestVolume)
	assert.Equal(t, 4, stats.DataPoints)
	assert.Equal(t, 0.0, stats.MissingRate)
	assert.Equal(t, 50.0, *stats.WowPricePct)
}

func TestSummarizeBaselines(t *testing.T) {
	d := models.NewDate(2024, 5, 6)
	r1 := obs("A", d, 120)
	r1.PrevYearPrice = models.Float(100)
	r1.CommonYearPrice = models.Float(150)
	r2 := obs("B", d, 120)
	r2.PrevYearPrice = models.Float(100)
	f := baseFilter(models.ChartTrend, models.GranularityDaily, d, d)
	stats := Summarize(run(t, []models.TimeSeriesRow{r1, r2}, f), f)

	assert.Equal(t, 100.0, *stats.PrevYearPrice)
	assert.Equal(t, 20.0, *stats.YoyPricePct)
	assert.Equal(t, -20.0, *stats.VsCommonYearPct)
	assert.Equal(t, models.TrendUnknown, stats.TrendDirection)
}

func TestSummarizeCarriesSpikesAndDoesNotMutate(t *testing.T) {
	d := models.NewDate(2024, 1, 1)
	var rows []models.TimeSeriesRow
	for i := 0; i < 10; i++ {
		rows = append(rows, obs("A", d.AddDays(i), 100))
	}
	rows = append(rows, obs("A", d.AddDays(10), 200))
	f := baseFilter(models.ChartVolatility, models.GranularityWeekly, d, d.AddDays(10))
	res := run(t, rows, f)

	before := append([]models.SeriesPoint(nil), res.Series...)
	stats := Summarize(res, f)
	again := Summarize(res, f)

	assert.Equal(t, before, res.Series)
	assert.Equal(t, stats, again)
	require.Len(t, stats.Spikes, 1)
	// Volatility is measured on daily buckets regardless of the requested granularity.
	assert.Equal(t, 0.0, stats.MissingRate)
	assert.Equal(t, 11, stats.DataPoints)
}

func TestSampleStd(t *testing.T) {
	_, ok := SampleStd([]float64{1})
	assert.False(t, ok)
	std, ok := SampleStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	require.True(t, ok)
	assert.InDelta(t, 2.138, std, 0.001)
}

func TestSummarizeCompareMarketsIgnoresDroppedMarkets(t *testing.T) {
	d := models.NewDate(2024, 6, 3)
	rows := []models.TimeSeriesRow{
		obs("A", d, 1000), obs("A", d.AddDays(7), 1000),
		obs("B", d, 100), obs("B", d.AddDays(7), 500),
	}
	f := baseFilter(models.ChartCompareMarkets, models.GranularityWeekly, d, d.AddDays(13))
	f.TopNMarkets = 1
	res := run(t, rows, f)
	stats := Summarize(res, f)

	require.Len(t, res.Markets, 1)
	require.NotNil(t, stats.LatestPrice)
	assert.Equal(t, 1000.0, *stats.LatestPrice)
	require.NotNil(t, stats.WowPricePct)
	assert.Equal(t, 0.0, *stats.WowPricePct)
	assert.Equal(t, models.TrendFlat, stats.TrendDirection)
}

func TestMomUsesLatestBucketPrice(t *testing.T) {
	rows := []models.TimeSeriesRow{
		obs("Seoul", models.NewDate(2024, 5, 12), 100),
		obs("Seoul", models.NewDate(2024, 6, 10), 100),
		obs("Seoul", models.NewDate(2024, 6, 12), 300),
	}
	f := baseFilter(models.ChartTrend, models.GranularityWeekly, models.NewDate(2024, 5, 6), models.NewDate(2024, 6, 16))
	stats := Summarize(run(t, rows, f), f)

	require.NotNil(t, stats.LatestPrice)
	assert.Equal(t, 200.0, *stats.LatestPrice)
	require.NotNil(t, stats.MomPricePct)
	assert.Equal(t, 100.0, *stats.MomPricePct)
}
