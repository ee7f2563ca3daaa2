// Package filters turns untrusted draft filters into validated ones.
package filters

import (
	"fmt"
	"strings"

	"AgriPrice/internal/domain/models"
	"AgriPrice/internal/services/dataset"
	"AgriPrice/pkg/util"
)

// Catalog is the slice of the dataset accessor normalization needs.
type Catalog interface {
	Match(field dataset.Field, query string, opts ...dataset.MatchOption) []dataset.Candidate
	MaxDateFor(item string) (models.Date, bool)
}

// Normalize fills defaults, resolves names against the catalog and validates every
// field of draft. Range defaults are anchored on the latest date of the matched item.
// It returns warnings for values that were corrected rather than matched exactly.
func Normalize(draft models.DraftFilter, cat Catalog) (models.Filter, []string, error) {
	var (
		f        models.Filter
		warnings []string
	)

	item := strings.TrimSpace(draft.ItemName)
	if item == "" {
		return f, nil, models.NewValidationError("item_name", draft.ItemName, "is required")
	}
	name, warn, ok := resolve(cat, dataset.FieldItem, item)
	if !ok {
		return f, nil, models.NewValidationError("item_name", item, "matches no known item")
	}
	f.ItemName = name
	warnings = appendWarn(warnings, warn)

	if v := strings.TrimSpace(draft.VarietyName); v != "" {
		name, warn, ok := resolve(cat, dataset.FieldVariety, v, dataset.WithinItem(f.ItemName))
		if !ok {
			return f, nil, models.NewValidationError("variety_name", v, "matches no variety of "+f.ItemName)
		}
		f.VarietyName = models.Str(name)
		warnings = appendWarn(warnings, warn)
	}
	if m := strings.TrimSpace(draft.MarketName); m != "" {
		name, warn, ok := resolve(cat, dataset.FieldMarket, m, dataset.WithinItem(f.ItemName))
		if !ok {
			return f, nil, models.NewValidationError("market_name", m, "matches no market trading "+f.ItemName)
		}
		f.MarketName = models.Str(name)
		warnings = appendWarn(warnings, warn)
	}

	var valid bool
	if f.ChartType, valid = models.ParseChartType(draft.ChartType); !valid {
		return f, nil, models.NewValidationError("chart_type", draft.ChartType, "must be one of trend, compare_markets, volume_price, volatility")
	}
	if f.Intent, valid = models.ParseIntent(draft.Intent); !valid {
		return f, nil, models.NewValidationError("intent", draft.Intent, "must be one of normal, high_avg_price, high_price_change, high_volatility")
	}
	if strings.TrimSpace(draft.ChartType) == "" {
		f.ChartType = chartForIntent(f.Intent, f.ChartType)
	}
	if f.Granularity, valid = models.ParseGranularity(draft.Granularity); !valid {
		return f, nil, models.NewValidationError("granularity", draft.Granularity, "must be daily or weekly")
	}

	metrics, err := parseMetrics(draft.Metrics)
	if err != nil {
		return f, nil, err
	}
	f.Metrics = metrics

	f.TopNMarkets = models.DefaultTopNMarkets
	if draft.TopNMarkets != nil {
		f.TopNMarkets = *draft.TopNMarkets
	}
	if f.TopNMarkets < 1 {
		return f, nil, models.NewValidationError("top_n_markets", f.TopNMarkets, "must be at least 1")
	}
	f.WindowDays = models.DefaultWindowDays
	if draft.WindowDays != nil {
		f.WindowDays = *draft.WindowDays
	}
	if f.WindowDays < 1 {
		return f, nil, models.NewValidationError("window_days", f.WindowDays, "must be at least 1")
	}
	if draft.Explain != nil {
		f.Explain = *draft.Explain
	}

	ref, ok := cat.MaxDateFor(f.ItemName)
	if !ok {
		return f, nil, &models.EmptyDatasetError{Item: f.ItemName}
	}
	if err := fillDates(&f, draft, ref); err != nil {
		return f, nil, err
	}
	return f, warnings, nil
}

func resolve(cat Catalog, field dataset.Field, query string, opts ...dataset.MatchOption) (string, string, bool) {
	cands := cat.Match(field, query, opts...)
	if len(cands) == 0 {
		return "", "", false
	}
	if cands[0].Exact {
		return cands[0].Value, "", true
	}
	return cands[0].Value, fmt.Sprintf("%s %q matched to %q", field, query, cands[0].Value), true
}

func appendWarn(ws []string, w string) []string {
	if w == "" {
		return ws
	}
	return append(ws, w)
}

// chartForIntent picks the chart an intent implies when none was asked for.
func chartForIntent(i models.Intent, fallback models.ChartType) models.ChartType {
	switch i {
	case models.IntentHighAvgPrice, models.IntentHighPriceChange:
		return models.ChartCompareMarkets
	case models.IntentHighVolatility:
		return models.ChartVolatility
	}
	return fallback
}

func parseMetrics(raw []string) ([]models.Metric, error) {
	if raw == nil {
		return models.DefaultMetrics(), nil
	}
	if len(raw) == 0 {
		return nil, models.NewValidationError("metrics", "[]", "must not be empty")
	}
	var hasPrice, hasVolume bool
	for _, s := range raw {
		m, ok := models.ParseMetric(s)
		if !ok {
			return nil, models.NewValidationError("metrics", s, "must be price or volume")
		}
		hasPrice = hasPrice || m == models.MetricPrice
		hasVolume = hasVolume || m == models.MetricVolume
	}
	var out []models.Metric
	if hasPrice {
		out = append(out, models.MetricPrice)
	}
	if hasVolume {
		out = append(out, models.MetricVolume)
	}
	return out, nil
}

// defaultSpan is the trailing range length used when the draft pins no dates.
func defaultSpan(f models.Filter, draft models.DraftFilter) int {
	if draft.WindowDays != nil || f.ChartType == models.ChartVolatility || f.Intent == models.IntentHighPriceChange {
		return f.WindowDays
	}
	return models.DefaultTrendDays
}

func fillDates(f *models.Filter, draft models.DraftFilter, ref models.Date) error {
	span := defaultSpan(*f, draft)
	var from, to models.Date
	var err error
	if s := strings.TrimSpace(draft.DateFrom); s != "" {
		if from, err = parseDateInput("date_from", s, false); err != nil {
			return err
		}
	}
	if s := strings.TrimSpace(draft.DateTo); s != "" {
		if to, err = parseDateInput("date_to", s, true); err != nil {
			return err
		}
	}
	switch {
	case from.IsZero() && to.IsZero():
		to = ref
		from = ref.AddDays(-span)
	case to.IsZero():
		to = models.MaxDate(ref, from)
	case from.IsZero():
		from = to.AddDays(-span)
	}
	if from.After(to) {
		return models.NewValidationError("date_from", from.String(), "is after date_to "+to.String())
	}
	f.DateFrom, f.DateTo = from, to
	return nil
}

// parseDateInput accepts full dates, bare months and decade-of-month forms
// (2024-06-early, 202406상순). A bare month is its first day for a range start
// and its last day for a range end.
func parseDateInput(field, s string, end bool) (models.Date, error) {
	if d, err := models.ParseDate(s); err == nil {
		return d, nil
	}
	compact := strings.NewReplacer("-", "", " ", "", ".", "", "/", "").Replace(s)
	if t, ok := util.ParsePeriod(compact); ok {
		d := models.DateOf(t)
		if end && len(compact) == 6 {
			d = models.DateOf(util.MonthEnd(t))
		}
		return d, nil
	}
	return models.Date{}, models.NewValidationError(field, s, "is not a recognized date")
}
