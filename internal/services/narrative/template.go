// Package narrative turns computed series and summary statistics into short Korean prose.
package narrative

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"AgriPrice/internal/domain/models"
	"AgriPrice/internal/domain/service"
)

const (
	// MinPoints is the smallest series that gets a full narrative.
	MinPoints = 3
	// MoveThresholdPct separates rising/falling from stable week over week.
	MoveThresholdPct = 5.0
	// HighMissingRate flags low-confidence summaries.
	HighMissingRate = 0.3
)

var chartLabels = map[models.ChartType]string{
	models.ChartTrend:          "가격 추세 분석",
	models.ChartCompareMarkets: "시장 비교 분석",
	models.ChartVolumePrice:    "가격/반입량 분석",
	models.ChartVolatility:     "변동성 분석",
}

// ChartLabel returns the Korean label of a chart type.
func ChartLabel(c models.ChartType) string {
	if l, ok := chartLabels[c]; ok {
		return l
	}
	return "추세 분석"
}

const reportText = `{{.Item}}{{with .Variety}} ({{.}}){{end}} {{.Chart}}{{with .Market}} - {{.}}{{end}}
분석 기간: {{.From}} ~ {{.To}}

주요 지표:
• 최근 가격: {{won .Summary.LatestPrice}}
• 최근 반입량: {{kg .Summary.LatestVolume}}
• 전주 대비: {{pct .Summary.WowPricePct}}
• 전월 대비: {{pct .Summary.MomPricePct}}
• 변동성(14일): {{num .Summary.Volatility14d}}
{{- with .Summary.YoyPricePct}}
• 전년 대비: {{pct .}}{{end}}
{{- with .Summary.VsCommonYearPct}}
• 평년 대비: {{pct .}}{{end}}
{{- if .Ranking}}

시장 순위:
{{- range .Ranking}}
{{.Rank}}. {{.MarketName}} {{won .Score}}{{end}}{{end}}
{{with .Movement}}
{{.}}{{end}}
{{- if .Spikes}}
급등락 {{len .Spikes}}건: {{range $i, $s := .Spikes}}{{if $i}}, {{end}}{{$s.Date}} {{spike $s}}{{end}}{{end}}
{{- with .Note}}

⚠️ {{.}}{{end}}
{{- if .Explain}}

계산 방법:
• 주간 값은 ISO 주(월요일 시작) 단위 평균 가격과 합계 반입량입니다.
• 전주/전월 대비는 마지막 관측일 기준 7일/30일 전 가장 가까운 관측과 비교합니다.
• 변동성은 최근 14일 일별 평균가의 표본 표준편차입니다.
{{- if .IsVolatility}}
• 급등락은 {{.Window}}일 이동평균에서 이동표준편차의 2배를 넘게 벗어난 날입니다.{{end}}{{end}}`

type reportData struct {
	Item, Variety, Market string
	Chart                 string
	From, To              string
	Summary               models.SummaryStats
	Ranking               []models.MarketRank
	Spikes                []models.Spike
	Movement              string
	Note                  string
	Explain               bool
	IsVolatility          bool
	Window                int
}

// TemplateNarrator renders a fixed Korean report. It never fails on well-formed input.
type TemplateNarrator struct {
	tmpl      *template.Template
	maxSpikes int
}

var _ service.Narrator = (*TemplateNarrator)(nil)

func NewTemplateNarrator() *TemplateNarrator {
	p := message.NewPrinter(language.Korean)
	funcs := template.FuncMap{
		"won": func(v *float64) string {
			if v == nil {
				return "N/A"
			}
			return p.Sprintf("%.0f원/kg", *v)
		},
		"kg": func(v *float64) string {
			if v == nil {
				return "N/A"
			}
			return p.Sprintf("%.0fkg", *v)
		},
		"num": func(v *float64) string {
			if v == nil {
				return "N/A"
			}
			return p.Sprintf("%.0f", *v)
		},
		"pct": func(v *float64) string {
			if v == nil {
				return "N/A"
			}
			return fmt.Sprintf("%+.1f%%", *v)
		},
		"spike": func(s models.Spike) string {
			if s.Direction == "down" {
				return "급락"
			}
			return "급등"
		},
	}
	return &TemplateNarrator{
		tmpl:      template.Must(template.New("report").Funcs(funcs).Parse(reportText)),
		maxSpikes: 5,
	}
}

func (n *TemplateNarrator) Narrate(_ context.Context, in models.NarrativeInput) (string, error) {
	f := in.Filter
	data := reportData{
		Item:         f.ItemName,
		Variety:      f.Variety(),
		Market:       f.Market(),
		Chart:        ChartLabel(f.ChartType),
		From:         f.DateFrom.String(),
		To:           f.DateTo.String(),
		Summary:      in.Summary,
		Movement:     movement(in.Summary),
		Note:         qualityNote(in),
		Explain:      f.Explain,
		IsVolatility: f.ChartType == models.ChartVolatility,
		Window:       f.WindowDays,
	}
	if f.ChartType == models.ChartCompareMarkets {
		data.Ranking = in.Markets
	}
	data.Spikes = in.Summary.Spikes
	if len(data.Spikes) > n.maxSpikes {
		data.Spikes = data.Spikes[len(data.Spikes)-n.maxSpikes:]
	}

	var buf bytes.Buffer
	if err := n.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render narrative: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func movement(s models.SummaryStats) string {
	if s.WowPricePct != nil && s.MomPricePct != nil {
		switch w := *s.WowPricePct; {
		case w > MoveThresholdPct:
			return "📈 최근 가격이 상승세를 보이고 있습니다."
		case w < -MoveThresholdPct:
			return "📉 최근 가격이 하락세를 보이고 있습니다."
		default:
			return "➡️ 가격이 비교적 안정적입니다."
		}
	}
	switch s.TrendDirection {
	case models.TrendUp:
		return "📈 분석 기간 동안 가격은 상승 추세를 보였습니다."
	case models.TrendDown:
		return "📉 분석 기간 동안 가격은 하락 추세를 보였습니다."
	case models.TrendFlat:
		return "➡️ 분석 기간 동안 가격은 보합세를 보였습니다."
	}
	return ""
}

func qualityNote(in models.NarrativeInput) string {
	if in.Summary.DataPoints < MinPoints {
		return "데이터가 부족하여 상세 분석이 어렵습니다."
	}
	if in.Summary.MissingRate > HighMissingRate {
		return "결측치 비율이 높아 분석 결과의 신뢰도가 제한적일 수 있습니다."
	}
	return ""
}
