package repository

import (
	"fmt"
	"regexp"
	"strings"

	"AgriPrice/internal/domain/models"
	"AgriPrice/pkg/util"
)

type column int

const (
	colPeriod column = iota
	colDate
	colMarketCode
	colMarketName
	colItemCode
	colItemName
	colVarietyCode
	colVarietyName
	colPrice
	colVolume
	colAmount
	colPrevPeriod
	colPrevMonth
	colPrevYear
	colCommonYear
	numColumns
)

// headerAliases maps normalized header text to a column. Korean market
// report headers and snake_case English names are both accepted.
var headerAliases = map[string]column{
	"시점":           colPeriod,
	"period":       colPeriod,
	"period_raw":   colPeriod,
	"date":         colDate,
	"일자":           colDate,
	"시장코드":         colMarketCode,
	"market_code":  colMarketCode,
	"시장명":          colMarketName,
	"market_name":  colMarketName,
	"market":       colMarketName,
	"품목코드":         colItemCode,
	"item_code":    colItemCode,
	"품목명":          colItemName,
	"item_name":    colItemName,
	"item":         colItemName,
	"품종코드":         colVarietyCode,
	"variety_code": colVarietyCode,
	"품종명":          colVarietyName,
	"variety_name": colVarietyName,
	"variety":      colVarietyName,
	"평균가(원/kg)":    colPrice,
	"price_kg":     colPrice,
	"price":        colPrice,
	"총반입량(kg)":     colVolume,
	"volume_kg":    colVolume,
	"volume":       colVolume,
	"총거래금액(원)":     colAmount,
	"amount_krw":   colAmount,

	"baseline_prev_period": colPrevPeriod,
	"baseline_prev_month":  colPrevMonth,
	"baseline_prev_year":   colPrevYear,
	"baseline_common_year": colCommonYear,
}

// Baseline headers carry long bilingual suffixes ("전순 평균가격(원) PreVious SOON").
var baselinePrefixes = []struct {
	prefix string
	col    column
}{
	{"전순", colPrevPeriod},
	{"전달", colPrevMonth},
	{"전년", colPrevYear},
	{"평년", colCommonYear},
}

var bareMonth = regexp.MustCompile(`^\d{6}$`)

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.TrimSpace(h))
}

// rowDecoder turns table records into rows according to a header line.
type rowDecoder struct {
	source string
	index  [numColumns]int
}

func newRowDecoder(source string, header []string) (*rowDecoder, error) {
	d := &rowDecoder{source: source}
	for i := range d.index {
		d.index[i] = -1
	}
	for i, raw := range header {
		h := normalizeHeader(raw)
		col, ok := headerAliases[h]
		if !ok {
			for _, bp := range baselinePrefixes {
				if strings.HasPrefix(h, bp.prefix) {
					col, ok = bp.col, true
					break
				}
			}
		}
		if ok && d.index[col] < 0 {
			d.index[col] = i
		}
	}

	var missing []string
	if d.index[colPeriod] < 0 && d.index[colDate] < 0 {
		missing = append(missing, "시점/date")
	}
	if d.index[colItemName] < 0 {
		missing = append(missing, "품목명/item_name")
	}
	if d.index[colMarketName] < 0 {
		missing = append(missing, "시장명/market_name")
	}
	if d.index[colPrice] < 0 {
		missing = append(missing, "평균가(원/kg)/price_kg")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s: missing columns %s", source, strings.Join(missing, ", "))
	}
	return d, nil
}

func (d *rowDecoder) cell(rec []string, c column) string {
	i := d.index[c]
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// decode converts one record; line is the 1-based data record number used in rejections.
func (d *rowDecoder) decode(rec []string, line int) (models.TimeSeriesRow, *models.InvalidRowError) {
	reject := func(field, reason string) *models.InvalidRowError {
		return &models.InvalidRowError{Index: line, Source: d.source, Field: field, Reason: reason}
	}

	day, ok := d.day(rec)
	if !ok {
		return models.TimeSeriesRow{}, reject("date", "unparseable period or date")
	}
	row := models.TimeSeriesRow{
		MarketCode:  d.cell(rec, colMarketCode),
		MarketName:  strings.TrimPrefix(d.cell(rec, colMarketName), "*"),
		ItemCode:    d.cell(rec, colItemCode),
		ItemName:    d.cell(rec, colItemName),
		VarietyCode: d.cell(rec, colVarietyCode),
		VarietyName: d.cell(rec, colVarietyName),
		Date:        day,
	}
	if row.ItemName == "" {
		return models.TimeSeriesRow{}, reject("item_name", "empty")
	}
	if row.MarketName == "" {
		return models.TimeSeriesRow{}, reject("market_name", "empty")
	}

	numbers := []struct {
		col   column
		field string
		dst   **float64
	}{
		{colPrice, "price_kg", &row.PriceKg},
		{colVolume, "volume_kg", &row.VolumeKg},
		{colAmount, "amount_krw", &row.AmountKrw},
		{colPrevPeriod, "prev_period_price", &row.PrevPeriodPrice},
		{colPrevMonth, "prev_month_price", &row.PrevMonthPrice},
		{colPrevYear, "prev_year_price", &row.PrevYearPrice},
		{colCommonYear, "common_year_price", &row.CommonYearPrice},
	}
	for _, n := range numbers {
		v, err := util.ParseNumber(d.cell(rec, n.col))
		if err != nil {
			return models.TimeSeriesRow{}, reject(n.field, err.Error())
		}
		*n.dst = v
	}
	return row, nil
}

func (d *rowDecoder) day(rec []string) (models.Date, bool) {
	if raw := d.cell(rec, colDate); raw != "" {
		if t, ok := util.ParseDay(raw); ok {
			return models.DateOf(t), true
		}
	}
	raw := d.cell(rec, colPeriod)
	if raw == "" {
		return models.Date{}, false
	}
	// A bare report month stands for its middle decade.
	if bareMonth.MatchString(raw) {
		raw += "중순"
	}
	if t, ok := util.ParsePeriod(raw); ok {
		return models.DateOf(t), true
	}
	if t, ok := util.ParseDay(raw); ok {
		return models.DateOf(t), true
	}
	return models.Date{}, false
}

// decodeTable decodes a header line plus records into a batch. Blank lines are skipped.
func decodeTable(source string, records [][]string) (*models.LoadBatch, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty table", source)
	}
	dec, err := newRowDecoder(source, records[0])
	if err != nil {
		return nil, err
	}
	batch := &models.LoadBatch{Source: source, Rows: make([]models.TimeSeriesRow, 0, len(records)-1)}
	for i, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		row, rej := dec.decode(rec, i+1)
		if rej != nil {
			batch.Rejected = append(batch.Rejected, rej)
			continue
		}
		batch.Rows = append(batch.Rows, row)
	}
	return batch, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
