// Package nlu proposes draft filters from free text. Everything it returns is
// treated as untrusted and re-validated by the resolver.
package nlu

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"AgriPrice/internal/domain/models"
	"AgriPrice/internal/domain/service"
)

var (
	recentMonths = regexp.MustCompile(`최근\s*(\d+)\s*(개월|달)`)
	recentWeeks  = regexp.MustCompile(`최근\s*(\d+)\s*주`)
	recentDays   = regexp.MustCompile(`최근\s*(\d+)\s*일`)
	recentMonth  = regexp.MustCompile(`최근\s*(한\s*)?달`)
	lastNDays    = regexp.MustCompile(`(?i)last\s+(\d+)\s+(day|week|month)s?`)
	yearExpr     = regexp.MustCompile(`(\d{4})\s*년`)
	monthExpr    = regexp.MustCompile(`(\d{4})\s*년\s*(\d{1,2})\s*월\s*(상순|중순|하순)?`)
)

// RuleOracle is the keyword-based oracle used when no language model is available.
type RuleOracle struct{}

var _ service.Oracle = (*RuleOracle)(nil)

func NewRuleOracle() *RuleOracle { return &RuleOracle{} }

// Parse extracts item, variety and market by substring against the known dimension
// values, infers chart type and intent from keywords and pins relative periods.
func (o *RuleOracle) Parse(_ context.Context, question string, dims models.Dimensions) (*models.OracleOutput, error) {
	var d models.DraftFilter
	var warnings []string

	d.ItemName = longestContained(question, dims.Items)
	if d.ItemName == "" {
		warnings = append(warnings, "질문에서 품목을 찾지 못했습니다.")
	} else {
		d.VarietyName = longestContained(question, multiRune(dims.Varieties[d.ItemName]))
	}
	d.MarketName = longestContained(question, dims.Markets)

	switch {
	case containsAny(question, "비교", "시장별", "compare"):
		d.ChartType = string(models.ChartCompareMarkets)
	case containsAny(question, "변동성", "급등락", "volatil"):
		d.ChartType = string(models.ChartVolatility)
	case containsAny(question, "반입량", "거래량", "volume") && containsAny(question, "가격", "price"):
		d.ChartType = string(models.ChartVolumePrice)
	}
	switch {
	case containsAny(question, "올랐", "상승", "오른", "rose", "increase"):
		d.Intent = string(models.IntentHighPriceChange)
	case containsAny(question, "급등", "급락", "변동"):
		d.Intent = string(models.IntentHighVolatility)
	}
	if containsAny(question, "일별", "매일", "daily") {
		d.Granularity = string(models.GranularityDaily)
	}
	if containsAny(question, "설명", "왜", "explain", "why") {
		explain := true
		d.Explain = &explain
	}
	applyPeriod(&d, question, dims.MaxDate)

	return &models.OracleOutput{Type: models.OracleFilters, Filters: &d, Warnings: warnings}, nil
}

// applyPeriod pins explicit or relative periods. Relative periods become window_days
// so they resolve against the dataset's latest date.
func applyPeriod(d *models.DraftFilter, q string, maxDate models.Date) {
	setWindow := func(n int) {
		if n > 0 {
			d.WindowDays = &n
		}
	}
	if m := recentMonths.FindStringSubmatch(q); m != nil {
		n, _ := strconv.Atoi(m[1])
		setWindow(n * 30)
		return
	}
	if m := recentWeeks.FindStringSubmatch(q); m != nil {
		n, _ := strconv.Atoi(m[1])
		setWindow(n * 7)
		return
	}
	if m := recentDays.FindStringSubmatch(q); m != nil {
		n, _ := strconv.Atoi(m[1])
		setWindow(n)
		return
	}
	if recentMonth.MatchString(q) {
		setWindow(30)
		return
	}
	if m := lastNDays.FindStringSubmatch(q); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch strings.ToLower(m[2]) {
		case "week":
			n *= 7
		case "month":
			n *= 30
		}
		setWindow(n)
		return
	}
	if m := monthExpr.FindStringSubmatch(q); m != nil {
		month, _ := strconv.Atoi(m[2])
		if month < 1 || month > 12 {
			return
		}
		prefix := m[1] + "-" + twoDigits(month)
		if m[3] != "" {
			d.DateFrom = m[1] + twoDigits(month) + m[3]
			d.DateTo = d.DateFrom
			return
		}
		d.DateFrom, d.DateTo = prefix, prefix
		return
	}
	if m := yearExpr.FindStringSubmatch(q); m != nil {
		d.DateFrom, d.DateTo = m[1]+"-01-01", m[1]+"-12-31"
		return
	}
	if maxDate.IsZero() {
		return
	}
	year := maxDate.Year()
	switch {
	case strings.Contains(q, "작년"):
		y := strconv.Itoa(year - 1)
		d.DateFrom, d.DateTo = y+"-01-01", y+"-12-31"
	case strings.Contains(q, "올해"):
		d.DateFrom = strconv.Itoa(year) + "-01-01"
	}
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// longestContained returns the longest candidate that appears in q (case-insensitive).
func longestContained(q string, candidates []string) string {
	lq := strings.ToLower(q)
	sorted := append([]string(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	for _, c := range sorted {
		if c != "" && strings.Contains(lq, strings.ToLower(c)) {
			return c
		}
	}
	return ""
}

// multiRune drops single-character values, which match far too much free text.
func multiRune(values []string) []string {
	var out []string
	for _, v := range values {
		if len([]rune(v)) > 1 {
			out = append(out, v)
		}
	}
	return out
}

func containsAny(s string, subs ...string) bool {
	ls := strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(ls, sub) {
			return true
		}
	}
	return false
}
