package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgriPrice/internal/domain/models"
	"AgriPrice/internal/services/dataset"
)

func obs(item, variety, market string, d models.Date, price, volume float64) models.TimeSeriesRow {
	return models.TimeSeriesRow{
		ItemName:    item,
		VarietyName: variety,
		MarketName:  market,
		Date:        d,
		PriceKg:     models.Float(price),
		VolumeKg:    models.Float(volume),
	}
}

func build(t *testing.T, rows []models.TimeSeriesRow) *dataset.Accessor {
	t.Helper()
	a, _, err := dataset.New(rows)
	require.NoError(t, err)
	return a
}

func filter(item string, chart models.ChartType, from, to models.Date) models.Filter {
	return models.Filter{
		ItemName:    item,
		DateFrom:    from,
		DateTo:      to,
		ChartType:   chart,
		Metrics:     models.DefaultMetrics(),
		Granularity: models.GranularityWeekly,
		TopNMarkets: 5,
		Intent:      models.IntentNormal,
		WindowDays:  30,
	}
}

func assertInRange(t *testing.T, f models.Filter, series []models.SeriesPoint) {
	t.Helper()
	for _, p := range series {
		assert.True(t, p.Date.Within(f.DateFrom, f.DateTo), "point %s outside [%s, %s]", p.Date, f.DateFrom, f.DateTo)
	}
}

func TestTrendWeeklyPotatoEarly(t *testing.T) {
	var rows []models.TimeSeriesRow
	start := models.NewDate(2024, 6, 27)
	for i := 0; i < 27; i++ {
		d := start.AddDays(7 * i)
		rows = append(rows,
			obs("potato", "early", "Seoul", d, 1000+float64(i)*10, 500),
			obs("potato", "late", "Seoul", d, 5000, 500),
		)
	}
	a := build(t, rows)

	f := filter("potato", models.ChartTrend, start, models.NewDate(2024, 12, 27))
	f.VarietyName = models.Str("early")
	res, err := NewEngine().Execute(a, f)
	require.NoError(t, err)

	require.Len(t, res.Series, 27)
	assert.Equal(t, "2024-06-27", res.Series[0].Date.String())
	assert.Equal(t, 1000.0, *res.Series[0].Price)
	assert.Equal(t, 1260.0, *res.Series[26].Price)
	assert.Nil(t, res.Series[0].MarketName)
	assertInRange(t, f, res.Series)
	for i := 1; i < len(res.Series); i++ {
		assert.True(t, res.Series[i-1].Date.Before(res.Series[i].Date))
	}
}

func TestTrendAggregatesAcrossMarkets(t *testing.T) {
	mon := models.NewDate(2024, 3, 4)
	rows := []models.TimeSeriesRow{
		obs("onion", "", "A", mon, 100, 10),
		obs("onion", "", "B", mon, 200, 30),
		obs("onion", "", "A", mon.AddDays(2), 300, 5),
		obs("onion", "", "A", mon.AddDays(14), 400, 1),
		{ItemName: "onion", MarketName: "B", Date: mon.AddDays(15)},
	}
	a := build(t, rows)

	f := filter("onion", models.ChartTrend, mon, mon.AddDays(20))
	res, err := NewEngine().Execute(a, f)
	require.NoError(t, err)
	// The empty middle week is omitted, not zero-filled.
	require.Len(t, res.Series, 2)
	assert.Equal(t, 200.0, *res.Series[0].Price)
	assert.Equal(t, 45.0, *res.Series[0].Volume)
	assert.Equal(t, 400.0, *res.Series[1].Price)

	f.Granularity = models.GranularityDaily
	res, err = NewEngine().Execute(a, f)
	require.NoError(t, err)
	require.Len(t, res.Series, 4)
	assert.Equal(t, 150.0, *res.Series[0].Price)
	assert.Equal(t, 40.0, *res.Series[0].Volume)
	// All-null bucket keeps nil values.
	assert.Nil(t, res.Series[3].Price)
	assert.Nil(t, res.Series[3].Volume)

	f.MarketName = models.Str("A")
	res, err = NewEngine().Execute(a, f)
	require.NoError(t, err)
	require.Len(t, res.Series, 3)
	assert.Equal(t, 100.0, *res.Series[0].Price)
}

func TestWeeklyBucketClampedToRangeStart(t *testing.T) {
	thu := models.NewDate(2024, 6, 27)
	rows := []models.TimeSeriesRow{
		obs("garlic", "", "A", thu.AddDays(-3), 999, 1), // Monday, before range
		obs("garlic", "", "A", thu, 100, 1),
		obs("garlic", "", "A", thu.AddDays(1), 200, 1),
	}
	f := filter("garlic", models.ChartTrend, thu, thu.AddDays(3))
	res, err := NewEngine().Execute(build(t, rows), f)
	require.NoError(t, err)
	require.Len(t, res.Series, 1)
	assert.Equal(t, "2024-06-27", res.Series[0].Date.String())
	assert.Equal(t, 150.0, *res.Series[0].Price)
}

func TestCompareMarketsRanking(t *testing.T) {
	d := models.NewDate(2024, 5, 6)
	rows := []models.TimeSeriesRow{
		obs("cabbage", "", "Gwangju", d, 300, 1),
		obs("cabbage", "", "Daegu", d, 500, 1),
		obs("cabbage", "", "Busan", d, 500, 1),
		obs("cabbage", "", "Seoul", d, 400, 1),
		obs("cabbage", "", "Seoul", d.AddDays(7), 600, 1),
		obs("cabbage", "", "Incheon", d, 100, 1),
	}
	a := build(t, rows)

	f := filter("cabbage", models.ChartCompareMarkets, d, d.AddDays(13))
	f.MarketName = models.Str("Incheon") // ignored in comparison mode
	f.TopNMarkets = 3
	res, err := NewEngine().Execute(a, f)
	require.NoError(t, err)

	require.Len(t, res.Markets, 3)
	assert.Equal(t, "Busan", res.Markets[0].MarketName)
	assert.Equal(t, "Daegu", res.Markets[1].MarketName)
	assert.Equal(t, "Seoul", res.Markets[2].MarketName)
	assert.Equal(t, 1, res.Markets[0].Rank)
	assert.Equal(t, 500.0, *res.Markets[2].Score)

	require.Len(t, res.Series, 4)
	var names []string
	for _, p := range res.Series {
		require.NotNil(t, p.MarketName)
		names = append(names, *p.MarketName)
	}
	assert.Equal(t, []string{"Busan", "Daegu", "Seoul", "Seoul"}, names)
	assertInRange(t, f, res.Series)
}

func TestCompareMarketsRowsLimitedToKeptMarkets(t *testing.T) {
	d := models.NewDate(2024, 6, 3)
	rows := []models.TimeSeriesRow{
		obs("cabbage", "", "A", d, 1000, 1),
		obs("cabbage", "", "A", d.AddDays(7), 1000, 1),
		obs("cabbage", "", "B", d, 100, 1),
		obs("cabbage", "", "B", d.AddDays(7), 500, 1),
	}
	f := filter("cabbage", models.ChartCompareMarkets, d, d.AddDays(13))
	f.TopNMarkets = 1
	res, err := NewEngine().Execute(build(t, rows), f)
	require.NoError(t, err)

	require.Len(t, res.Markets, 1)
	assert.Equal(t, "A", res.Markets[0].MarketName)
	require.Len(t, res.Rows, 2)
	for _, r := range res.Rows {
		assert.Equal(t, "A", r.MarketName)
	}
}

func TestCompareMarketsByPriceChange(t *testing.T) {
	d := models.NewDate(2024, 5, 6)
	rows := []models.TimeSeriesRow{
		obs("cabbage", "", "Busan", d, 1000, 1),
		obs("cabbage", "", "Busan", d.AddDays(7), 1100, 1),
		obs("cabbage", "", "Seoul", d, 100, 1),
		obs("cabbage", "", "Seoul", d.AddDays(7), 200, 1),
		obs("cabbage", "", "Daegu", d, 100, 1),
	}
	f := filter("cabbage", models.ChartCompareMarkets, d, d.AddDays(13))
	f.Intent = models.IntentHighPriceChange
	res, err := NewEngine().Execute(build(t, rows), f)
	require.NoError(t, err)

	require.Len(t, res.Markets, 3)
	assert.Equal(t, "Seoul", res.Markets[0].MarketName)
	assert.Equal(t, 100.0, *res.Markets[0].Score)
	assert.Equal(t, "Busan", res.Markets[1].MarketName)
	assert.Equal(t, "Daegu", res.Markets[2].MarketName)
	assert.Nil(t, res.Markets[2].Score)
}

func TestVolatilitySpikes(t *testing.T) {
	d := models.NewDate(2024, 1, 1)
	var rows []models.TimeSeriesRow
	for i := 0; i < 10; i++ {
		rows = append(rows, obs("radish", "", "A", d.AddDays(i), 100, 1))
	}
	rows = append(rows, obs("radish", "", "A", d.AddDays(10), 200, 1))

	f := filter("radish", models.ChartVolatility, d, d.AddDays(10))
	res, err := NewEngine().Execute(build(t, rows), f)
	require.NoError(t, err)

	require.Len(t, res.Series, 11)
	require.Len(t, res.Rolling, 11)
	assert.Nil(t, res.Rolling[0].Std)
	assert.Equal(t, 0.0, *res.Rolling[5].Std)
	require.Len(t, res.Spikes, 1)
	assert.Equal(t, "2024-01-11", res.Spikes[0].Date.String())
	assert.Equal(t, "up", res.Spikes[0].Direction)
	assert.Greater(t, res.Spikes[0].ZScore, 2.0)
}

func TestVolatilityWindowIsCalendarDays(t *testing.T) {
	d := models.NewDate(2024, 1, 1)
	rows := []models.TimeSeriesRow{
		obs("radish", "", "A", d, 100, 1),
		obs("radish", "", "A", d.AddDays(1), 110, 1),
		obs("radish", "", "A", d.AddDays(9), 120, 1),
	}
	f := filter("radish", models.ChartVolatility, d, d.AddDays(9))
	f.WindowDays = 5
	res, err := NewEngine().Execute(build(t, rows), f)
	require.NoError(t, err)

	// Day 9 is alone in its 5-day window even though it is the next observation.
	require.Len(t, res.Rolling, 3)
	assert.Equal(t, 120.0, *res.Rolling[2].Mean)
	assert.Nil(t, res.Rolling[2].Std)
	assert.NotNil(t, res.Rolling[1].Std)
}

func TestEmptyResult(t *testing.T) {
	d := models.NewDate(2024, 1, 1)
	a := build(t, []models.TimeSeriesRow{obs("radish", "", "A", d, 100, 1)})

	f := filter("radish", models.ChartTrend, d.AddDays(30), d.AddDays(60))
	res, err := NewEngine().Execute(a, f)
	assert.Nil(t, res)
	var empty *models.EmptyResultError
	require.True(t, errors.As(err, &empty))
	assert.Equal(t, "radish", empty.Item)
	assert.Equal(t, "2024-01-31", empty.DateFrom.String())
}

func TestExecuteIsDeterministic(t *testing.T) {
	d := models.NewDate(2024, 5, 6)
	var rows []models.TimeSeriesRow
	for i, m := range []string{"E", "D", "C", "B", "A"} {
		for k := 0; k < 20; k++ {
			rows = append(rows, obs("pepper", "", m, d.AddDays(k), float64(100+i*k%7), float64(k)))
		}
	}
	a := build(t, rows)
	for _, chart := range []models.ChartType{models.ChartTrend, models.ChartCompareMarkets, models.ChartVolatility, models.ChartVolumePrice} {
		f := filter("pepper", chart, d, d.AddDays(19))
		first, err := NewEngine().Execute(a, f)
		require.NoError(t, err)
		second, err := NewEngine().Execute(a, f)
		require.NoError(t, err)
		assert.Equal(t, first, second, chart)
	}
}
