// Package features derives summary statistics from an executed query.
package features

import (
	"math"

	"AgriPrice/internal/domain/models"
	"AgriPrice/internal/services/query"
	"AgriPrice/pkg/util"
)

const (
	// MomToleranceDays is how far from the same day last month a baseline may be.
	MomToleranceDays = 3
	// VolatilityDays is the trailing calendar window of volatility_14d.
	VolatilityDays = 14
	// MinVolatilityObs is the minimum number of daily prices for volatility_14d.
	MinVolatilityObs = 3
	// TrendThresholdPct separates up/down from flat.
	TrendThresholdPct = 5.0
)

// Summarize computes SummaryStats for res under f. It never mutates res.
func Summarize(res *models.QueryResult, f models.Filter) models.SummaryStats {
	stats := models.SummaryStats{
		TrendDirection: models.TrendUnknown,
		Spikes:         append([]models.Spike{}, res.Spikes...),
	}

	collapsed := collapse(res.Series)
	if n := len(collapsed); n > 0 {
		stats.LatestPrice = collapsed[n-1].Price
		stats.LatestVolume = collapsed[n-1].Volume
	}
	for _, p := range res.Series {
		if p.Price != nil {
			stats.DataPoints++
		}
	}
	stats.MissingRate = missingRate(len(collapsed), f)
	stats.TrendDirection = trendDirection(collapsed)

	if len(res.Rows) == 0 {
		return stats
	}
	weeks := index(query.Bucketize(res.Rows, models.GranularityWeekly, models.Date{}))
	days := query.Bucketize(res.Rows, models.GranularityDaily, models.Date{})
	byDay := index(days)

	latest := lastPriced(days)
	if latest == nil {
		return stats
	}
	cur := weeks[latest.Key.WeekStart()]
	prev := weeks[latest.Key.WeekStart().AddDays(-7)]
	if prev != nil {
		stats.WowPricePct = query.PctChange(prev.Price, cur.Price)
		stats.WowVolumePct = query.PctChange(prev.Volume, cur.Volume)
	}
	if base := nearestPriced(byDay, latest.Key.ShiftMonths(-1), MomToleranceDays); base != nil {
		stats.MomPricePct = query.PctChange(base.Price, stats.LatestPrice)
	}
	stats.Volatility14d = volatility(days, latest.Key)

	prevYear, common := baselines(res.Rows, latest.Key)
	stats.PrevYearPrice = round2(prevYear)
	stats.CommonYearPrice = round2(common)
	stats.YoyPricePct = query.PctChange(prevYear, latest.Price)
	stats.VsCommonYearPct = query.PctChange(common, latest.Price)
	return stats
}

// collapse merges per-market points into one point per date (mean price, summed volume).
func collapse(series []models.SeriesPoint) []models.SeriesPoint {
	var out []models.SeriesPoint
	var priceSum, volSum float64
	var priceN, volN int
	flush := func() {
		p := &out[len(out)-1]
		p.MarketName = nil
		if priceN > 0 {
			p.Price = models.Float(query.Round(priceSum/float64(priceN), 2))
		}
		if volN > 0 {
			p.Volume = models.Float(query.Round(volSum, 2))
		}
	}
	for _, s := range series {
		if len(out) == 0 || !out[len(out)-1].Date.Equal(s.Date) {
			if len(out) > 0 {
				flush()
			}
			out = append(out, models.SeriesPoint{Date: s.Date})
			priceSum, volSum, priceN, volN = 0, 0, 0, 0
		}
		if s.Price != nil {
			priceSum += *s.Price
			priceN++
		}
		if s.Volume != nil {
			volSum += *s.Volume
			volN++
		}
	}
	if len(out) > 0 {
		flush()
	}
	return out
}

func missingRate(observed int, f models.Filter) float64 {
	var expected int
	if f.EffectiveGranularity() == models.GranularityDaily {
		expected = f.DateFrom.DaysUntil(f.DateTo) + 1
	} else {
		expected = util.WeeksSpanned(f.DateFrom.Time, f.DateTo.Time)
	}
	if expected <= 0 {
		return 0
	}
	rate := 1 - float64(observed)/float64(expected)
	return query.Round(math.Max(0, math.Min(1, rate)), 4)
}

func trendDirection(series []models.SeriesPoint) models.TrendDirection {
	var first, last *float64
	for _, p := range series {
		if p.Price == nil {
			continue
		}
		if first == nil {
			first = p.Price
		}
		last = p.Price
	}
	pct := query.PctChange(first, last)
	switch {
	case pct == nil || first == last:
		return models.TrendUnknown
	case *pct > TrendThresholdPct:
		return models.TrendUp
	case *pct < -TrendThresholdPct:
		return models.TrendDown
	}
	return models.TrendFlat
}

func index(buckets []query.Bucket) map[models.Date]*query.Bucket {
	out := make(map[models.Date]*query.Bucket, len(buckets))
	for i := range buckets {
		out[buckets[i].Key] = &buckets[i]
	}
	return out
}

func lastPriced(days []query.Bucket) *query.Bucket {
	for i := len(days) - 1; i >= 0; i-- {
		if days[i].Price != nil {
			return &days[i]
		}
	}
	return nil
}

// nearestPriced finds a priced day at target, else the closest within tol days,
// preferring the earlier day on equal distance.
func nearestPriced(byDay map[models.Date]*query.Bucket, target models.Date, tol int) *query.Bucket {
	for off := 0; off <= tol; off++ {
		for _, d := range []int{-off, off} {
			if b := byDay[target.AddDays(d)]; b != nil && b.Price != nil {
				return b
			}
			if off == 0 {
				break
			}
		}
	}
	return nil
}

func volatility(days []query.Bucket, latest models.Date) *float64 {
	from := latest.AddDays(-(VolatilityDays - 1))
	var prices []float64
	for _, b := range days {
		if b.Price != nil && b.Key.Within(from, latest) {
			prices = append(prices, *b.Price)
		}
	}
	if len(prices) < MinVolatilityObs {
		return nil
	}
	std, _ := SampleStd(prices)
	return models.Float(query.Round(std, 2))
}

func baselines(rows []models.TimeSeriesRow, day models.Date) (prevYear, common *float64) {
	var py, cy []float64
	for _, r := range rows {
		if !r.Date.Equal(day) {
			continue
		}
		if r.PrevYearPrice != nil {
			py = append(py, *r.PrevYearPrice)
		}
		if r.CommonYearPrice != nil {
			cy = append(cy, *r.CommonYearPrice)
		}
	}
	if m, ok := Mean(py); ok {
		prevYear = &m
	}
	if m, ok := Mean(cy); ok {
		common = &m
	}
	return prevYear, common
}

func round2(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return models.Float(query.Round(*v, 2))
}
