package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"AgriPrice/internal/domain/models"
	"AgriPrice/internal/domain/service"
	"AgriPrice/internal/services/llm"
	applogger "AgriPrice/pkg/logger"
)

// maxPromptValues bounds how many dimension values are listed in the prompt.
const maxPromptValues = 60

// LLMOracle asks a language model for a draft filter and falls back to rules on failure.
type LLMOracle struct {
	gen      llm.Generator
	fallback service.Oracle
	logger   *applogger.Logger
}

var _ service.Oracle = (*LLMOracle)(nil)

func NewLLMOracle(gen llm.Generator, fallback service.Oracle, logger *applogger.Logger) *LLMOracle {
	return &LLMOracle{gen: gen, fallback: fallback, logger: logger}
}

func (o *LLMOracle) Parse(ctx context.Context, question string, dims models.Dimensions) (*models.OracleOutput, error) {
	if o.gen == nil {
		return o.fallback.Parse(ctx, question, dims)
	}
	out, err := o.ask(ctx, question, dims)
	if err == nil {
		return out, nil
	}
	o.logger.Warn("llm oracle failed, using rules", applogger.Error(err))
	out, ferr := o.fallback.Parse(ctx, question, dims)
	if ferr != nil {
		return nil, fmt.Errorf("fallback oracle: %w", ferr)
	}
	out.Warnings = append([]string{"LLM 파싱 실패로 규칙 기반 추출을 사용했습니다."}, out.Warnings...)
	return out, nil
}

func (o *LLMOracle) ask(ctx context.Context, question string, dims models.Dimensions) (*models.OracleOutput, error) {
	text, err := o.gen.Generate(ctx, buildPrompt(question, dims), true)
	if err != nil {
		return nil, err
	}
	return ParseOutput(text)
}

// ParseOutput decodes an oracle reply, tolerating markdown fences around the JSON.
// Only the shape is checked here.
func ParseOutput(text string) (*models.OracleOutput, error) {
	var out models.OracleOutput
	if err := json.Unmarshal([]byte(llm.CleanJSON(text)), &out); err != nil {
		return nil, fmt.Errorf("decode oracle output: %w", err)
	}
	switch out.Type {
	case models.OracleFilters:
		if out.Filters == nil {
			return nil, fmt.Errorf("oracle output type %q without filters", out.Type)
		}
	case models.OracleClarify:
		if out.DraftFilters == nil {
			out.DraftFilters = &models.DraftFilter{}
		}
	case "":
		if out.Filters == nil {
			return nil, fmt.Errorf("oracle output without type")
		}
		out.Type = models.OracleFilters
	default:
		return nil, fmt.Errorf("unknown oracle output type %q", out.Type)
	}
	return &out, nil
}

func buildPrompt(question string, dims models.Dimensions) string {
	var b strings.Builder
	b.WriteString(`You convert questions about Korean agricultural wholesale prices into a JSON filter.
Reply with JSON only, one of:
{"type":"filters","filters":{...},"warnings":[]}
{"type":"clarify","draft_filters":{...},"questions":[{"id":"...","question":"...","options":["..."],"default":"..."}],"warnings":[]}
Filter keys: item_name, variety_name, market_name, date_from, date_to (YYYY-MM-DD),
chart_type (trend|compare_markets|volume_price|volatility), metrics ([price, volume]),
granularity (daily|weekly), top_n_markets, intent (normal|high_avg_price|high_price_change|high_volatility),
window_days, explain. Omit keys you cannot infer. Use only names from the lists below.
Express relative periods ("최근 3개월") as window_days, never as absolute dates.
Question ids you may use: recent_window, expensive_meaning, item_choice, variety_choice, market_choice.
`)
	fmt.Fprintf(&b, "Items: %s\n", strings.Join(head(dims.Items, maxPromptValues), ", "))
	fmt.Fprintf(&b, "Markets: %s\n", strings.Join(head(dims.Markets, maxPromptValues), ", "))
	if !dims.MaxDate.IsZero() {
		fmt.Fprintf(&b, "Latest date in data: %s\n", dims.MaxDate)
	}
	fmt.Fprintf(&b, "Question: %s\n", question)
	return b.String()
}

func head(xs []string, n int) []string {
	if len(xs) > n {
		return xs[:n]
	}
	return xs
}
