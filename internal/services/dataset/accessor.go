package dataset

import (
	"math"
	"sort"
	"strings"
	"time"

	"AgriPrice/internal/domain/models"
	"AgriPrice/pkg/util"
)

// Field names a matchable dimension.
type Field string

const (
	FieldItem    Field = "item_name"
	FieldVariety Field = "variety_name"
	FieldMarket  Field = "market_name"
)

// IsValidField returns true if f is a matchable dimension.
func IsValidField(f Field) bool {
	return f == FieldItem || f == FieldVariety || f == FieldMarket
}

// Accessor is an immutable, indexed view over a loaded row collection.
// It is safe for concurrent reads; nothing is mutated after New returns.
type Accessor struct {
	rows     []models.TimeSeriesRow
	byItem   map[string][]int
	maxDate  map[string]models.Date
	items    []valueStat
	markets  []valueStat
	perItem  map[string]*itemStats
	version  uint64
	source   string
	loadedAt time.Time
}

type itemStats struct {
	varieties []valueStat
	markets   []valueStat
}

type valueStat struct {
	name   string
	folded string
	count  int
}

// Option configures snapshot metadata.
type Option func(*Accessor)

func WithVersion(v uint64) Option     { return func(a *Accessor) { a.version = v } }
func WithSource(name string) Option   { return func(a *Accessor) { a.source = name } }
func WithLoadedAt(t time.Time) Option { return func(a *Accessor) { a.loadedAt = t } }

// New validates rows and builds the indexes. Invalid rows are skipped and returned;
// a collection with no valid row yields EmptyDatasetError.
func New(rows []models.TimeSeriesRow, opts ...Option) (*Accessor, []*models.InvalidRowError, error) {
	a := &Accessor{
		byItem:  make(map[string][]int),
		maxDate: make(map[string]models.Date),
		perItem: make(map[string]*itemStats),
	}
	for _, opt := range opts {
		opt(a)
	}

	var rejected []*models.InvalidRowError
	kept := make([]models.TimeSeriesRow, 0, len(rows))
	for i, r := range rows {
		if err := validateRow(i+1, a.source, &r); err != nil {
			rejected = append(rejected, err)
			continue
		}
		kept = append(kept, r)
	}
	if len(kept) == 0 {
		return nil, rejected, &models.EmptyDatasetError{}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		x, y := kept[i], kept[j]
		if x.ItemName != y.ItemName {
			return x.ItemName < y.ItemName
		}
		if !x.Date.Equal(y.Date) {
			return x.Date.Before(y.Date)
		}
		if x.MarketName != y.MarketName {
			return x.MarketName < y.MarketName
		}
		return x.VarietyName < y.VarietyName
	})
	a.rows = kept

	itemCounts := map[string]int{}
	marketCounts := map[string]int{}
	varietyCounts := map[string]map[string]int{}
	itemMarketCounts := map[string]map[string]int{}
	for i, r := range kept {
		a.byItem[r.ItemName] = append(a.byItem[r.ItemName], i)
		if r.Date.After(a.maxDate[r.ItemName]) {
			a.maxDate[r.ItemName] = r.Date
		}
		itemCounts[r.ItemName]++
		marketCounts[r.MarketName]++
		if varietyCounts[r.ItemName] == nil {
			varietyCounts[r.ItemName] = map[string]int{}
			itemMarketCounts[r.ItemName] = map[string]int{}
		}
		if r.VarietyName != "" {
			varietyCounts[r.ItemName][r.VarietyName]++
		}
		itemMarketCounts[r.ItemName][r.MarketName]++
	}
	a.items = toStats(itemCounts)
	a.markets = toStats(marketCounts)
	for item := range itemCounts {
		a.perItem[item] = &itemStats{
			varieties: toStats(varietyCounts[item]),
			markets:   toStats(itemMarketCounts[item]),
		}
	}
	return a, rejected, nil
}

func validateRow(i int, source string, r *models.TimeSeriesRow) *models.InvalidRowError {
	r.ItemName = strings.TrimSpace(r.ItemName)
	r.MarketName = strings.TrimSpace(r.MarketName)
	r.VarietyName = strings.TrimSpace(r.VarietyName)
	switch {
	case r.ItemName == "":
		return &models.InvalidRowError{Index: i, Source: source, Field: "item_name", Reason: "is required"}
	case r.MarketName == "":
		return &models.InvalidRowError{Index: i, Source: source, Field: "market_name", Reason: "is required"}
	case r.Date.IsZero():
		return &models.InvalidRowError{Index: i, Source: source, Field: "date", Reason: "is required"}
	case badNumber(r.PriceKg):
		return &models.InvalidRowError{Index: i, Source: source, Field: "price_kg", Reason: "must be a non-negative number"}
	case badNumber(r.VolumeKg):
		return &models.InvalidRowError{Index: i, Source: source, Field: "volume_kg", Reason: "must be a non-negative number"}
	}
	r.Date = models.DateOf(r.Date.Time)
	return nil
}

func badNumber(v *float64) bool {
	return v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0)
}

func toStats(counts map[string]int) []valueStat {
	out := make([]valueStat, 0, len(counts))
	for name, n := range counts {
		out = append(out, valueStat{name: name, folded: util.Fold(name), count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].name < out[j].name
	})
	return out
}

// RowsMatching returns the raw rows selected by f: exact item, variety when set,
// market when set (ignored for compare_markets), date within [DateFrom, DateTo].
func (a *Accessor) RowsMatching(f models.Filter) []models.TimeSeriesRow {
	idx := a.byItem[a.canonicalItem(f.ItemName)]
	variety := f.Variety()
	market := f.Market()
	if f.ChartType == models.ChartCompareMarkets {
		market = ""
	}
	out := make([]models.TimeSeriesRow, 0, len(idx))
	for _, i := range idx {
		r := a.rows[i]
		if r.Date.Before(f.DateFrom) {
			continue
		}
		if r.Date.After(f.DateTo) {
			break
		}
		if variety != "" && r.VarietyName != variety {
			continue
		}
		if market != "" && r.MarketName != market {
			continue
		}
		out = append(out, r)
	}
	return out
}

// MaxDateFor returns the latest observed date for an item.
func (a *Accessor) MaxDateFor(item string) (models.Date, bool) {
	d, ok := a.maxDate[a.canonicalItem(item)]
	return d, ok
}

func (a *Accessor) canonicalItem(item string) string {
	if _, ok := a.byItem[item]; ok {
		return item
	}
	folded := util.Fold(item)
	for _, s := range a.items {
		if s.folded == folded {
			return s.name
		}
	}
	return item
}

// Dimensions lists the distinct values of the snapshot, most frequent first.
func (a *Accessor) Dimensions() models.Dimensions {
	dims := models.Dimensions{
		Items:     names(a.items),
		Markets:   names(a.markets),
		Varieties: make(map[string][]string, len(a.perItem)),
		Rows:      len(a.rows),
		Version:   a.version,
	}
	for item, st := range a.perItem {
		dims.Varieties[item] = names(st.varieties)
	}
	for _, d := range a.maxDate {
		dims.MaxDate = models.MaxDate(dims.MaxDate, d)
	}
	return dims
}

func names(stats []valueStat) []string {
	out := make([]string, len(stats))
	for i, s := range stats {
		out[i] = s.name
	}
	return out
}

func (a *Accessor) Len() int            { return len(a.rows) }
func (a *Accessor) Version() uint64     { return a.version }
func (a *Accessor) Source() string      { return a.source }
func (a *Accessor) LoadedAt() time.Time { return a.loadedAt }
