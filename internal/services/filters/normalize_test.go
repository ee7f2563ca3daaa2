package filters

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgriPrice/internal/domain/models"
	"AgriPrice/internal/services/dataset"
)

func catalog(t *testing.T) *dataset.Accessor {
	t.Helper()
	var rows []models.TimeSeriesRow
	start := models.NewDate(2024, 1, 1)
	for i := 0; i <= 361; i += 7 {
		d := start.AddDays(i)
		rows = append(rows,
			models.TimeSeriesRow{ItemName: "감자", VarietyName: "수미", MarketName: "서울가락", Date: d, PriceKg: models.Float(1000)},
			models.TimeSeriesRow{ItemName: "감자", VarietyName: "대지", MarketName: "부산엄궁", Date: d, PriceKg: models.Float(900)},
		)
	}
	rows = append(rows, models.TimeSeriesRow{ItemName: "양파", MarketName: "서울가락", Date: start, PriceKg: models.Float(700)})
	a, _, err := dataset.New(rows)
	require.NoError(t, err)
	return a
}

func intp(v int) *int { return &v }

func requireValidation(t *testing.T, err error, field string) {
	t.Helper()
	var ve *models.ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
	assert.Equal(t, field, ve.Field)
}

func TestNormalizeDefaults(t *testing.T) {
	cat := catalog(t)
	f, warnings, err := Normalize(models.DraftFilter{ItemName: "감자"}, cat)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, "감자", f.ItemName)
	assert.Nil(t, f.VarietyName)
	assert.Nil(t, f.MarketName)
	assert.Equal(t, models.ChartTrend, f.ChartType)
	assert.Equal(t, []models.Metric{models.MetricPrice, models.MetricVolume}, f.Metrics)
	assert.Equal(t, models.GranularityWeekly, f.Granularity)
	assert.Equal(t, 5, f.TopNMarkets)
	assert.Equal(t, models.IntentNormal, f.Intent)
	assert.Equal(t, 30, f.WindowDays)
	// Reference date is the last 감자 observation, not today.
	assert.Equal(t, "2024-12-23", f.DateTo.String())
	assert.Equal(t, "2024-06-26", f.DateFrom.String())
}

func TestNormalizeVolatilityUsesWindow(t *testing.T) {
	f, _, err := Normalize(models.DraftFilter{ItemName: "감자", ChartType: "Volatility"}, catalog(t))
	require.NoError(t, err)
	assert.Equal(t, models.ChartVolatility, f.ChartType)
	assert.Equal(t, "2024-11-23", f.DateFrom.String())
}

func TestNormalizeExplicitWindow(t *testing.T) {
	f, _, err := Normalize(models.DraftFilter{ItemName: "감자", WindowDays: intp(90)}, catalog(t))
	require.NoError(t, err)
	assert.Equal(t, models.ChartTrend, f.ChartType)
	assert.Equal(t, 90, f.WindowDays)
	assert.Equal(t, "2024-09-24", f.DateFrom.String())
}

func TestNormalizeDecadeDates(t *testing.T) {
	f, _, err := Normalize(models.DraftFilter{ItemName: "감자", DateFrom: "202403상순", DateTo: "2024-05-late"}, catalog(t))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", f.DateFrom.String())
	assert.Equal(t, "2024-05-25", f.DateTo.String())

	f, _, err = Normalize(models.DraftFilter{ItemName: "감자", DateFrom: "2024-02", DateTo: "2024-02"}, catalog(t))
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", f.DateFrom.String())
	assert.Equal(t, "2024-02-29", f.DateTo.String())
}

func TestNormalizeOpenEndedRanges(t *testing.T) {
	f, _, err := Normalize(models.DraftFilter{ItemName: "감자", DateFrom: "2024-10-01"}, catalog(t))
	require.NoError(t, err)
	assert.Equal(t, "2024-12-23", f.DateTo.String())

	f, _, err = Normalize(models.DraftFilter{ItemName: "감자", DateTo: "2024-06-30"}, catalog(t))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02", f.DateFrom.String())
}

func TestNormalizeCorrectsFuzzyNames(t *testing.T) {
	f, warnings, err := Normalize(models.DraftFilter{ItemName: "감 자", MarketName: "가락"}, catalog(t))
	require.NoError(t, err)
	assert.Equal(t, "감자", f.ItemName)
	assert.Equal(t, "서울가락", f.Market())
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "market_name")
}

func TestNormalizeIntentPicksChart(t *testing.T) {
	cat := catalog(t)
	cases := map[string]models.ChartType{
		"high_avg_price":    models.ChartCompareMarkets,
		"high_price_change": models.ChartCompareMarkets,
		"high_volatility":   models.ChartVolatility,
		"normal":            models.ChartTrend,
	}
	for intent, want := range cases {
		f, _, err := Normalize(models.DraftFilter{ItemName: "감자", Intent: intent}, cat)
		require.NoError(t, err)
		assert.Equal(t, want, f.ChartType, intent)
	}

	f, _, err := Normalize(models.DraftFilter{ItemName: "감자", Intent: "high_volatility", ChartType: "trend"}, cat)
	require.NoError(t, err)
	assert.Equal(t, models.ChartTrend, f.ChartType)
}

func TestNormalizeMetrics(t *testing.T) {
	f, _, err := Normalize(models.DraftFilter{ItemName: "감자", Metrics: []string{"volume", "PRICE", "volume"}}, catalog(t))
	require.NoError(t, err)
	assert.Equal(t, []models.Metric{models.MetricPrice, models.MetricVolume}, f.Metrics)

	f, _, err = Normalize(models.DraftFilter{ItemName: "감자", Metrics: []string{"volume"}}, catalog(t))
	require.NoError(t, err)
	assert.Equal(t, []models.Metric{models.MetricVolume}, f.Metrics)
}

func TestNormalizeValidationErrors(t *testing.T) {
	cat := catalog(t)
	cases := []struct {
		name  string
		draft models.DraftFilter
		field string
	}{
		{"missing item", models.DraftFilter{}, "item_name"},
		{"unknown item", models.DraftFilter{ItemName: "브로콜리"}, "item_name"},
		{"unknown variety", models.DraftFilter{ItemName: "감자", VarietyName: "홍감자"}, "variety_name"},
		{"bad chart", models.DraftFilter{ItemName: "감자", ChartType: "pie"}, "chart_type"},
		{"bad intent", models.DraftFilter{ItemName: "감자", Intent: "cheap"}, "intent"},
		{"bad granularity", models.DraftFilter{ItemName: "감자", Granularity: "monthly"}, "granularity"},
		{"empty metrics", models.DraftFilter{ItemName: "감자", Metrics: []string{}}, "metrics"},
		{"bad metric", models.DraftFilter{ItemName: "감자", Metrics: []string{"amount"}}, "metrics"},
		{"zero top n", models.DraftFilter{ItemName: "감자", TopNMarkets: intp(0)}, "top_n_markets"},
		{"zero window", models.DraftFilter{ItemName: "감자", WindowDays: intp(0)}, "window_days"},
		{"inverted range", models.DraftFilter{ItemName: "감자", DateFrom: "2024-05-01", DateTo: "2024-04-01"}, "date_from"},
		{"bad date", models.DraftFilter{ItemName: "감자", DateFrom: "yesterday"}, "date_from"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Normalize(tc.draft, cat)
			requireValidation(t, err, tc.field)
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	cat := catalog(t)
	drafts := []models.DraftFilter{
		{ItemName: "감자"},
		{ItemName: "감자", VarietyName: "수미", ChartType: "volatility", WindowDays: intp(60)},
		{ItemName: "감자", Intent: "high_price_change", TopNMarkets: intp(2), Metrics: []string{"price"}},
	}
	for _, d := range drafts {
		first, _, err := Normalize(d, cat)
		require.NoError(t, err)
		second, _, err := Normalize(first.Draft(), cat)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestNormalizeAcceptsLargePositiveCounts(t *testing.T) {
	f, _, err := Normalize(models.DraftFilter{ItemName: "감자", TopNMarkets: intp(50), WindowDays: intp(5000)}, catalog(t))
	require.NoError(t, err)
	assert.Equal(t, 50, f.TopNMarkets)
	assert.Equal(t, 5000, f.WindowDays)
	assert.Equal(t, "2024-12-23", f.DateTo.String())
}
