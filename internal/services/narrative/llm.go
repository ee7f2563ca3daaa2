package narrative

import (
	"context"
	"fmt"
	"strings"

	"AgriPrice/internal/domain/models"
	"AgriPrice/internal/domain/service"
	"AgriPrice/internal/services/llm"
	applogger "AgriPrice/pkg/logger"
)

const (
	recentPoints = 20
	minReplyLen  = 20
)

// LLMNarrator asks a language model for an analyst-style paragraph and
// falls back to the template whenever the model is unavailable or the
// series is too short to say anything useful.
type LLMNarrator struct {
	gen      llm.Generator
	fallback service.Narrator
	logger   *applogger.Logger
}

var _ service.Narrator = (*LLMNarrator)(nil)

func NewLLMNarrator(gen llm.Generator, fallback service.Narrator, logger *applogger.Logger) *LLMNarrator {
	return &LLMNarrator{gen: gen, fallback: fallback, logger: logger}
}

func (n *LLMNarrator) Narrate(ctx context.Context, in models.NarrativeInput) (string, error) {
	if n.gen == nil || in.Summary.DataPoints < MinPoints {
		return n.fallback.Narrate(ctx, in)
	}
	text, err := n.gen.Generate(ctx, buildPrompt(in), false)
	text = strings.TrimSpace(text)
	if err != nil || len([]rune(text)) < minReplyLen {
		if err != nil {
			n.logger.Warn("llm narrative failed, using template", applogger.Error(err))
		}
		return n.fallback.Narrate(ctx, in)
	}
	return text, nil
}

func buildPrompt(in models.NarrativeInput) string {
	f := in.Filter
	var b strings.Builder
	b.WriteString(`You are an agricultural market analyst. Write a concise analysis in Korean.
Rules:
1. Use ONLY the data below. If it is insufficient, say so.
2. Avoid definitive causal claims; prefer "가능성이 있습니다" or "추정됩니다".
3. No investment or purchase recommendations.
4. 5-8 sentences, then 3 bullet points of key insights.
`)
	fmt.Fprintf(&b, "\n품목: %s\n", f.ItemName)
	fmt.Fprintf(&b, "품종: %s\n", orDefault(f.Variety(), "전체"))
	fmt.Fprintf(&b, "시장: %s\n", orDefault(f.Market(), "전국도매시장"))
	fmt.Fprintf(&b, "기간: %s ~ %s\n", f.DateFrom, f.DateTo)
	fmt.Fprintf(&b, "분석유형: %s\n", ChartLabel(f.ChartType))

	b.WriteString("\n요약 통계:\n")
	b.WriteString(summaryLines(in.Summary))

	if len(in.Markets) > 0 {
		b.WriteString("\n시장 순위:\n")
		for _, m := range in.Markets {
			fmt.Fprintf(&b, "%d. %s %s\n", m.Rank, m.MarketName, fmtFloat(m.Score, "%.0f원/kg"))
		}
	}

	b.WriteString("\n최근 데이터:\n")
	series := in.Series
	if len(series) > recentPoints {
		series = series[len(series)-recentPoints:]
	}
	for _, p := range series {
		fmt.Fprintf(&b, "%s: 가격 %s, 반입량 %s", p.Date, fmtFloat(p.Price, "%.0f원/kg"), fmtFloat(p.Volume, "%.0fkg"))
		if p.MarketName != nil {
			fmt.Fprintf(&b, " (%s)", *p.MarketName)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func summaryLines(s models.SummaryStats) string {
	var lines []string
	add := func(label string, v *float64, format string) {
		if v != nil {
			lines = append(lines, fmt.Sprintf("- %s: "+format, label, *v))
		}
	}
	add("최근 가격", s.LatestPrice, "%.0f원/kg")
	add("최근 반입량", s.LatestVolume, "%.0fkg")
	add("전주 대비 가격", s.WowPricePct, "%+.1f%%")
	add("전월 대비 가격", s.MomPricePct, "%+.1f%%")
	add("14일 변동성", s.Volatility14d, "%.0f")
	add("전년 대비 가격", s.YoyPricePct, "%+.1f%%")
	lines = append(lines,
		fmt.Sprintf("- 데이터 포인트: %d개", s.DataPoints),
		fmt.Sprintf("- 결측치 비율: %.1f%%", s.MissingRate*100),
	)
	if len(s.Spikes) > 0 {
		lines = append(lines, fmt.Sprintf("- 급등락 일수: %d", len(s.Spikes)))
	}
	return strings.Join(lines, "\n") + "\n"
}

func fmtFloat(v *float64, format string) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf(format, *v)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
