// Package clarify decides whether a draft filter can be executed or needs questions,
// and merges clarification answers back into the draft.
package clarify

import (
	"fmt"
	"sort"

	"AgriPrice/internal/domain/models"
	"AgriPrice/internal/services/dataset"
	"AgriPrice/internal/services/filters"
	"AgriPrice/pkg/util"
)

// questionOrder fixes the emission order of questions and the merge order of answers.
var questionOrder = []string{
	models.QuestionRecentWindow,
	models.QuestionExpensiveMeaning,
	models.QuestionItemChoice,
	models.QuestionVarietyChoice,
	models.QuestionMarketChoice,
}

// Input is one resolver turn.
type Input struct {
	Question        string
	Draft           models.DraftFilter
	Answers         map[string]string
	OracleQuestions []models.Question
}

// Resolver is the clarification state machine. It is stateless; every turn carries
// the draft and the answers collected so far.
type Resolver struct {
	maxOptions int
}

type Option func(*Resolver)

// WithMaxOptions caps candidate lists offered in choice questions.
func WithMaxOptions(n int) Option {
	return func(r *Resolver) {
		if n > 1 {
			r.maxOptions = n
		}
	}
}

func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{maxOptions: dataset.DefaultCandidateLimit}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve merges in.Answers into in.Draft, re-runs the ambiguity triggers and either
// returns pending questions (AMBIGUOUS) or a validated filter (READY or CLARIFIED).
// The output depends only on its inputs and the catalog snapshot.
func (r *Resolver) Resolve(in Input, cat filters.Catalog) (models.Resolution, error) {
	draft := in.Draft.Clone()
	var warnings []string

	if err := r.merge(&draft, in.Answers, cat); err != nil {
		return models.Resolution{State: models.StateDraft, Draft: draft}, err
	}
	for _, id := range unknownAnswers(in.Answers) {
		warnings = append(warnings, fmt.Sprintf("ignored answer for unknown question %q", id))
	}

	pending := r.triggers(in.Question, draft, cat)
	asked := make(map[string]bool, len(pending))
	for _, q := range pending {
		asked[q.ID] = true
	}
	for _, oq := range in.OracleQuestions {
		if !isKnown(oq.ID) {
			warnings = append(warnings, fmt.Sprintf("dropped unsupported question %q", oq.ID))
			continue
		}
		if _, answered := in.Answers[oq.ID]; answered || asked[oq.ID] {
			continue
		}
		if q, ok := r.canonical(oq.ID, draft, cat); ok {
			pending = append(pending, q)
			asked[q.ID] = true
		}
	}
	pending = filterAnswered(pending, in.Answers)
	sortQuestions(pending)

	if len(pending) > 0 {
		return models.Resolution{
			State:     models.StateAmbiguous,
			Draft:     draft,
			Questions: pending,
			Warnings:  warnings,
		}, nil
	}

	f, normWarnings, err := filters.Normalize(draft, cat)
	if err != nil {
		return models.Resolution{State: models.StateDraft, Draft: draft, Warnings: warnings}, err
	}
	state := models.StateReady
	if len(in.Answers) > 0 {
		state = models.StateClarified
	}
	return models.Resolution{
		State:    state,
		Filter:   &f,
		Draft:    draft,
		Warnings: append(warnings, normWarnings...),
	}, nil
}

// merge applies answers in fixed order. Re-applying the same answers is a no-op.
func (r *Resolver) merge(d *models.DraftFilter, answers map[string]string, cat filters.Catalog) error {
	for _, id := range questionOrder {
		ans, ok := answers[id]
		if !ok {
			continue
		}
		switch id {
		case models.QuestionRecentWindow:
			n, err := parseWindow(ans)
			if err != nil {
				return err
			}
			d.WindowDays = &n
			d.DateFrom, d.DateTo = "", ""
		case models.QuestionExpensiveMeaning:
			i, ok := models.ParseIntent(ans)
			if !ok || i == models.IntentNormal {
				return models.NewValidationError("intent", ans, "must be one of high_avg_price, high_price_change, high_volatility")
			}
			d.Intent = string(i)
		case models.QuestionItemChoice:
			v, err := exactChoice(cat, dataset.FieldItem, ans)
			if err != nil {
				return err
			}
			d.ItemName = v
		case models.QuestionVarietyChoice:
			v, err := exactChoice(cat, dataset.FieldVariety, ans, dataset.WithinItem(d.ItemName))
			if err != nil {
				return err
			}
			d.VarietyName = v
		case models.QuestionMarketChoice:
			v, err := exactChoice(cat, dataset.FieldMarket, ans, dataset.WithinItem(d.ItemName))
			if err != nil {
				return err
			}
			d.MarketName = v
		}
	}
	return nil
}

// exactChoice accepts an answer only when it names a known value exactly
// (ignoring case and spaces).
func exactChoice(cat filters.Catalog, field dataset.Field, answer string, opts ...dataset.MatchOption) (string, error) {
	cands := cat.Match(field, answer, append(opts, dataset.WithLimit(1))...)
	if len(cands) == 0 || !cands[0].Exact {
		return "", models.NewValidationError(string(field), answer, "is not one of the offered options")
	}
	return cands[0].Value, nil
}

func (r *Resolver) triggers(question string, d models.DraftFilter, cat filters.Catalog) []models.Question {
	var out []models.Question
	if needsWindow(question, d) {
		out = append(out, windowQuestion())
	}
	if needsIntent(question, d) {
		out = append(out, intentQuestion())
	}
	for _, id := range []string{models.QuestionItemChoice, models.QuestionVarietyChoice, models.QuestionMarketChoice} {
		if q, ok := r.choice(id, d, cat); ok {
			out = append(out, q)
		}
	}
	return out
}

// canonical rebuilds an oracle-proposed question with this service's options.
func (r *Resolver) canonical(id string, d models.DraftFilter, cat filters.Catalog) (models.Question, bool) {
	switch id {
	case models.QuestionRecentWindow:
		if d.HasDateRange() || d.WindowDays != nil {
			return models.Question{}, false
		}
		return windowQuestion(), true
	case models.QuestionExpensiveMeaning:
		if i, ok := models.ParseIntent(d.Intent); ok && i != models.IntentNormal {
			return models.Question{}, false
		}
		return intentQuestion(), true
	}
	return r.choice(id, d, cat)
}

// choice asks about a dimension whose value has several candidates and no exact match.
func (r *Resolver) choice(id string, d models.DraftFilter, cat filters.Catalog) (models.Question, bool) {
	var (
		field dataset.Field
		value string
		label string
		opts  = []dataset.MatchOption{dataset.WithLimit(r.maxOptions)}
	)
	switch id {
	case models.QuestionItemChoice:
		field, value, label = dataset.FieldItem, d.ItemName, "품목"
	case models.QuestionVarietyChoice:
		field, value, label = dataset.FieldVariety, d.VarietyName, "품종"
	case models.QuestionMarketChoice:
		field, value, label = dataset.FieldMarket, d.MarketName, "시장"
	default:
		return models.Question{}, false
	}
	if util.Fold(value) == "" {
		return models.Question{}, false
	}
	if field != dataset.FieldItem {
		if item, ok := settledItem(d.ItemName, cat); ok {
			opts = append(opts, dataset.WithinItem(item))
		}
	}
	cands := cat.Match(field, value, opts...)
	if len(cands) < 2 || cands[0].Exact {
		return models.Question{}, false
	}
	options := make([]string, len(cands))
	for i, c := range cands {
		options[i] = c.Value
	}
	return choiceQuestion(id, label, value, options), true
}

// settledItem returns the item a draft refers to when that is unambiguous.
func settledItem(item string, cat filters.Catalog) (string, bool) {
	cands := cat.Match(dataset.FieldItem, item, dataset.WithLimit(2))
	if len(cands) == 0 {
		return "", false
	}
	if cands[0].Exact || len(cands) == 1 {
		return cands[0].Value, true
	}
	return "", false
}

func isKnown(id string) bool {
	for _, k := range questionOrder {
		if k == id {
			return true
		}
	}
	return false
}

func unknownAnswers(answers map[string]string) []string {
	var out []string
	for id := range answers {
		if !isKnown(id) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func filterAnswered(qs []models.Question, answers map[string]string) []models.Question {
	out := qs[:0]
	for _, q := range qs {
		if _, ok := answers[q.ID]; !ok {
			out = append(out, q)
		}
	}
	return out
}

func sortQuestions(qs []models.Question) {
	rank := make(map[string]int, len(questionOrder))
	for i, id := range questionOrder {
		rank[id] = i
	}
	sort.SliceStable(qs, func(i, j int) bool { return rank[qs[i].ID] < rank[qs[j].ID] })
}
