package query

import (
	"math"
	"sort"

	"AgriPrice/internal/domain/models"
)

// Bucket is one aggregation period: mean price, summed volume.
type Bucket struct {
	Key    models.Date // calendar day, or Monday of the ISO week
	Date   models.Date // Key clamped into the requested range
	Price  *float64
	Volume *float64
	Rows   int
}

// BucketKey maps a day to its bucket at granularity g.
func BucketKey(d models.Date, g models.Granularity) models.Date {
	if g == models.GranularityWeekly {
		return d.WeekStart()
	}
	return d
}

// Bucketize groups rows into non-empty buckets in ascending date order.
// Null prices and volumes are ignored; a bucket whose values are all null keeps a nil value.
func Bucketize(rows []models.TimeSeriesRow, g models.Granularity, from models.Date) []Bucket {
	type acc struct {
		priceSum, volSum float64
		priceN, volN, n  int
	}
	groups := make(map[models.Date]*acc)
	for _, r := range rows {
		k := BucketKey(r.Date, g)
		a := groups[k]
		if a == nil {
			a = &acc{}
			groups[k] = a
		}
		a.n++
		if r.PriceKg != nil {
			a.priceSum += *r.PriceKg
			a.priceN++
		}
		if r.VolumeKg != nil {
			a.volSum += *r.VolumeKg
			a.volN++
		}
	}

	out := make([]Bucket, 0, len(groups))
	for k, a := range groups {
		b := Bucket{Key: k, Date: models.MaxDate(k, from), Rows: a.n}
		if a.priceN > 0 {
			b.Price = models.Float(a.priceSum / float64(a.priceN))
		}
		if a.volN > 0 {
			b.Volume = models.Float(a.volSum)
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Before(out[j].Key) })
	return out
}

// MeanPrice is the arithmetic mean of the non-null prices in rows.
func MeanPrice(rows []models.TimeSeriesRow) (*float64, int) {
	var sum float64
	var n int
	for _, r := range rows {
		if r.PriceKg != nil {
			sum += *r.PriceKg
			n++
		}
	}
	if n == 0 {
		return nil, 0
	}
	return models.Float(sum / float64(n)), n
}

// PctChange is (cur-prev)/prev*100 rounded to 2 decimals; nil without a usable base.
func PctChange(prev, cur *float64) *float64 {
	if prev == nil || cur == nil || *prev == 0 {
		return nil
	}
	return models.Float(Round((*cur-*prev) / *prev * 100, 2))
}

// Round rounds v to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

func roundPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return models.Float(Round(*v, 2))
}

func toPoints(buckets []Bucket, market *string) []models.SeriesPoint {
	out := make([]models.SeriesPoint, len(buckets))
	for i, b := range buckets {
		out[i] = models.SeriesPoint{
			Date:       b.Date,
			Price:      roundPtr(b.Price),
			Volume:     roundPtr(b.Volume),
			MarketName: market,
		}
	}
	return out
}
