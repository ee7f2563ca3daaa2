// Package query turns a validated filter into an aggregated series.
package query

import (
	"math"
	"sort"

	"AgriPrice/internal/domain/models"
)

// SpikeThreshold is the rolling z-score above which a day is flagged.
const SpikeThreshold = 2.0

// Source selects raw rows for a filter.
type Source interface {
	RowsMatching(f models.Filter) []models.TimeSeriesRow
}

// Engine executes filters. It holds no state and may be shared.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// Execute selects the rows of f from src and aggregates them per chart mode.
// Zero matching rows yield EmptyResultError.
func (e *Engine) Execute(src Source, f models.Filter) (*models.QueryResult, error) {
	rows := src.RowsMatching(f)
	if len(rows) == 0 {
		return nil, &models.EmptyResultError{Item: f.ItemName, DateFrom: f.DateFrom, DateTo: f.DateTo}
	}

	res := &models.QueryResult{Rows: rows}
	switch f.ChartType {
	case models.ChartCompareMarkets:
		res.Series, res.Markets = compareMarkets(rows, f)
		res.Rows = keptRows(rows, res.Markets)
	case models.ChartVolatility:
		buckets := Bucketize(rows, models.GranularityDaily, f.DateFrom)
		res.Series = toPoints(buckets, nil)
		res.Rolling, res.Spikes = rolling(buckets, f.WindowDays)
	default:
		res.Series = toPoints(Bucketize(rows, f.Granularity, f.DateFrom), nil)
	}
	return res, nil
}

func compareMarkets(rows []models.TimeSeriesRow, f models.Filter) ([]models.SeriesPoint, []models.MarketRank) {
	byMarket := make(map[string][]models.TimeSeriesRow)
	for _, r := range rows {
		byMarket[r.MarketName] = append(byMarket[r.MarketName], r)
	}

	type ranked struct {
		rank    models.MarketRank
		buckets []Bucket
	}
	all := make([]ranked, 0, len(byMarket))
	for name, mr := range byMarket {
		buckets := Bucketize(mr, f.Granularity, f.DateFrom)
		mean, n := MeanPrice(mr)
		score := mean
		if f.Intent == models.IntentHighPriceChange {
			score = firstToLastChange(buckets)
		}
		all = append(all, ranked{
			rank:    models.MarketRank{MarketName: name, Score: score, Observations: n},
			buckets: buckets,
		})
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i].rank, all[j].rank
		switch {
		case a.Score != nil && b.Score == nil:
			return true
		case a.Score == nil && b.Score != nil:
			return false
		case a.Score != nil && *a.Score != *b.Score:
			return *a.Score > *b.Score
		}
		return a.MarketName < b.MarketName
	})
	if len(all) > f.TopNMarkets {
		all = all[:f.TopNMarkets]
	}

	var series []models.SeriesPoint
	markets := make([]models.MarketRank, len(all))
	order := make(map[string]int, len(all))
	for i, r := range all {
		r.rank.Rank = i + 1
		r.rank.Score = roundPtr(r.rank.Score)
		markets[i] = r.rank
		order[r.rank.MarketName] = i
		series = append(series, toPoints(r.buckets, models.Str(r.rank.MarketName))...)
	}
	sort.SliceStable(series, func(i, j int) bool {
		if !series[i].Date.Equal(series[j].Date) {
			return series[i].Date.Before(series[j].Date)
		}
		return order[*series[i].MarketName] < order[*series[j].MarketName]
	})
	return series, markets
}

// keptRows narrows rows to the ranked markets so summaries describe what is shown.
func keptRows(rows []models.TimeSeriesRow, markets []models.MarketRank) []models.TimeSeriesRow {
	keep := make(map[string]bool, len(markets))
	for _, m := range markets {
		keep[m.MarketName] = true
	}
	out := make([]models.TimeSeriesRow, 0, len(rows))
	for _, r := range rows {
		if keep[r.MarketName] {
			out = append(out, r)
		}
	}
	return out
}

func firstToLastChange(buckets []Bucket) *float64 {
	var first, last *float64
	for _, b := range buckets {
		if b.Price == nil {
			continue
		}
		if first == nil {
			first = b.Price
		}
		last = b.Price
	}
	if first == last {
		return nil
	}
	return PctChange(first, last)
}

// rolling computes, for each daily bucket, the mean and sample standard deviation of
// prices observed in the trailing window of calendar days ending on that day.
func rolling(days []Bucket, windowDays int) ([]models.RollingPoint, []models.Spike) {
	type obs struct {
		date  models.Date
		price float64
	}
	var prices []obs
	for _, b := range days {
		if b.Price != nil {
			prices = append(prices, obs{b.Key, *b.Price})
		}
	}

	out := make([]models.RollingPoint, 0, len(prices))
	var spikes []models.Spike
	start := 0
	var sum, sum2 float64
	for i, o := range prices {
		sum += o.price
		sum2 += o.price * o.price
		for prices[start].date.DaysUntil(o.date) >= windowDays {
			sum -= prices[start].price
			sum2 -= prices[start].price * prices[start].price
			start++
		}
		n := float64(i - start + 1)
		mean := sum / n
		rp := models.RollingPoint{Date: o.date, Mean: models.Float(Round(mean, 2))}
		if n >= 2 {
			variance := (sum2 - n*mean*mean) / (n - 1)
			if variance < 0 {
				variance = 0
			}
			std := math.Sqrt(variance)
			rp.Std = models.Float(Round(std, 2))
			if std > 0 && math.Abs(o.price-mean) > SpikeThreshold*std {
				z := (o.price - mean) / std
				dir := "up"
				if z < 0 {
					dir = "down"
				}
				spikes = append(spikes, models.Spike{
					Date:        o.date,
					Price:       Round(o.price, 2),
					RollingMean: Round(mean, 2),
					RollingStd:  Round(std, 2),
					ZScore:      Round(z, 2),
					Direction:   dir,
				})
			}
		}
		out = append(out, rp)
	}
	return out, spikes
}
