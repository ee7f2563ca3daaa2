package dataset

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgriPrice/internal/domain/models"
)

func row(item, variety, market string, d models.Date, price float64) models.TimeSeriesRow {
	return models.TimeSeriesRow{
		ItemName:    item,
		VarietyName: variety,
		MarketName:  market,
		Date:        d,
		PriceKg:     models.Float(price),
		VolumeKg:    models.Float(100),
	}
}

func fixture(t *testing.T) *Accessor {
	t.Helper()
	d := models.NewDate(2024, 6, 3)
	rows := []models.TimeSeriesRow{
		row("Potato", "early", "Seoul Garak", d, 1000),
		row("Potato", "early", "Seoul Garak", d.AddDays(7), 1100),
		row("Potato", "early", "Busan", d, 900),
		row("Potato", "late", "Busan", d.AddDays(14), 950),
		row("Sweet Potato", "", "Seoul Garak", d, 2000),
		row("Cabbage", "spring", "Seoul Garak", d.AddDays(1), 500),
		row("Cabbage", "spring", "Daegu", d.AddDays(2), 520),
	}
	a, rejected, err := New(rows, WithVersion(3), WithSource("fixture"))
	require.NoError(t, err)
	require.Empty(t, rejected)
	return a
}

func TestNewSkipsInvalidRows(t *testing.T) {
	d := models.NewDate(2024, 1, 1)
	rows := []models.TimeSeriesRow{
		row("Potato", "", "Busan", d, 10),
		row("", "", "Busan", d, 10),
		row("Potato", "", "", d, 10),
		row("Potato", "", "Busan", models.Date{}, 10),
		row("Potato", "", "Busan", d, -5),
	}
	a, rejected, err := New(rows, WithSource("test.csv"))
	require.NoError(t, err)
	assert.Equal(t, 1, a.Len())
	require.Len(t, rejected, 4)
	assert.Equal(t, "item_name", rejected[0].Field)
	assert.Equal(t, 2, rejected[0].Index)
	assert.Equal(t, "test.csv", rejected[0].Source)
	assert.Equal(t, "price_kg", rejected[3].Field)
}

func TestNewEmptyDataset(t *testing.T) {
	_, _, err := New(nil)
	var empty *models.EmptyDatasetError
	assert.True(t, errors.As(err, &empty))
}

func TestCandidatesForIsCaseAndSpaceInsensitive(t *testing.T) {
	a := fixture(t)
	assert.Equal(t, []string{"Seoul Garak"}, a.CandidatesFor(FieldMarket, "seoulgarak"))
	assert.Equal(t, []string{"Cabbage"}, a.CandidatesFor(FieldItem, "  CABBAGE "))
}

func TestCandidatesForExactFirstThenFrequency(t *testing.T) {
	a := fixture(t)
	// "potato" is exact for Potato and a substring of Sweet Potato.
	assert.Equal(t, []string{"Potato", "Sweet Potato"}, a.CandidatesFor(FieldItem, "potato"))

	// "pota" matches both by substring; Potato has more rows.
	cands := a.Match(FieldItem, "pota")
	require.Len(t, cands, 2)
	assert.False(t, cands[0].Exact)
	assert.Equal(t, "Potato", cands[0].Value)
	assert.Equal(t, 4, cands[0].Count)
}

func TestCandidatesForFuzzyThreshold(t *testing.T) {
	a := fixture(t)
	assert.Equal(t, []string{"Cabbage"}, a.CandidatesFor(FieldItem, "cabage"))
	assert.Empty(t, a.CandidatesFor(FieldItem, "tomato juice"))
	assert.Empty(t, a.CandidatesFor(FieldItem, ""))
}

func TestCandidatesWithinItem(t *testing.T) {
	a := fixture(t)
	assert.Equal(t, []string{"early", "late"}, a.CandidatesFor(FieldVariety, "a", WithinItem("potato")))
	assert.Equal(t, []string{"Busan", "Seoul Garak"}, a.CandidatesFor(FieldMarket, "s", WithinItem("Potato")))
	assert.Equal(t, []string{"spring"}, a.CandidatesFor(FieldVariety, "spring"))
	assert.Len(t, a.CandidatesFor(FieldMarket, "a", WithLimit(1)), 1)
}

func TestRowsMatching(t *testing.T) {
	a := fixture(t)
	d := models.NewDate(2024, 6, 3)
	f := models.Filter{
		ItemName:   "Potato",
		MarketName: models.Str("Busan"),
		DateFrom:   d,
		DateTo:     d.AddDays(14),
		ChartType:  models.ChartTrend,
	}
	rows := a.RowsMatching(f)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, "Busan", r.MarketName)
	}

	f.ChartType = models.ChartCompareMarkets
	assert.Len(t, a.RowsMatching(f), 4)

	f.ChartType = models.ChartTrend
	f.MarketName = nil
	f.VarietyName = models.Str("early")
	f.DateTo = d.AddDays(6)
	assert.Len(t, a.RowsMatching(f), 2)
}

func TestMaxDateFor(t *testing.T) {
	a := fixture(t)
	got, ok := a.MaxDateFor("potato")
	require.True(t, ok)
	assert.Equal(t, "2024-06-17", got.String())

	_, ok = a.MaxDateFor("Onion")
	assert.False(t, ok)
}

func TestDimensions(t *testing.T) {
	a := fixture(t)
	dims := a.Dimensions()
	assert.Equal(t, []string{"Potato", "Cabbage", "Sweet Potato"}, dims.Items)
	assert.Equal(t, []string{"early", "late"}, dims.Varieties["Potato"])
	assert.Equal(t, "2024-06-17", dims.MaxDate.String())
	assert.Equal(t, uint64(3), dims.Version)
	assert.Equal(t, 7, dims.Rows)
}

func TestHolderSwap(t *testing.T) {
	h := NewHolder()
	assert.Nil(t, h.Current())

	first := fixture(t)
	assert.Nil(t, h.Swap(first))
	assert.Same(t, first, h.Current())

	second, _, err := New([]models.TimeSeriesRow{row("Onion", "", "Busan", models.DateOf(time.Now()), 1)})
	require.NoError(t, err)
	assert.Same(t, first, h.Swap(second))
	assert.Same(t, second, h.Current())
	assert.Equal(t, uint64(1), h.NextVersion())
	assert.Equal(t, uint64(2), h.NextVersion())
}
