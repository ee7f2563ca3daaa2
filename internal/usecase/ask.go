package usecase

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"AgriPrice/internal/domain/models"
	"AgriPrice/internal/domain/repository"
	"AgriPrice/internal/domain/service"
	"AgriPrice/internal/services/clarify"
	"AgriPrice/internal/services/dataset"
	"AgriPrice/internal/services/features"
	"AgriPrice/internal/services/query"
	"AgriPrice/pkg/cache"
	applogger "AgriPrice/pkg/logger"
)

// AskDeps groups the collaborators of AskService.
type AskDeps struct {
	Holder      *dataset.Holder
	Rules       service.Oracle
	LLMOracle   service.Oracle   // optional
	Narrator    service.Narrator // template narrator
	LLMNarrator service.Narrator // optional
	Resolver    *clarify.Resolver
	Engine      *query.Engine
	Cache       cache.Service
	CacheTTL    time.Duration
	Audit       repository.AuditPublisher
	Metrics     repository.Metrics
	Logger      *applogger.Logger
}

// AskService runs one question turn: oracle, clarification, execution,
// features, narrative.
type AskService struct {
	d     AskDeps
	newID func() string
}

func NewAskService(d AskDeps) *AskService {
	if d.Cache == nil {
		d.Cache = cache.Noop{}
	}
	if d.Resolver == nil {
		d.Resolver = clarify.NewResolver()
	}
	if d.Engine == nil {
		d.Engine = query.NewEngine()
	}
	return &AskService{d: d, newID: uuid.NewString}
}

// cachedAnswer is the part of a result response that depends only on the filter and snapshot.
type cachedAnswer struct {
	Series    []models.SeriesPoint  `json:"series"`
	Summary   models.SummaryStats   `json:"summary"`
	Markets   []models.MarketRank   `json:"markets,omitempty"`
	Rolling   []models.RollingPoint `json:"rolling,omitempty"`
	Narrative string                `json:"narrative"`
}

// Ask answers req. Domain errors (validation, empty dataset, empty result) are
// returned as-is for the transport layer to map.
func (s *AskService) Ask(ctx context.Context, req *models.AskRequest) (*models.AskResponse, error) {
	start := time.Now()
	id := s.newID()
	ev := &models.QueryEvent{RequestID: id, Question: req.Question}

	resp, err := s.ask(ctx, req, id, ev)

	ev.LatencyMs = time.Since(start).Milliseconds()
	ev.Timestamp = start.UTC()
	s.d.Metrics.RecordLatency("ask", time.Since(start).Seconds())
	if err != nil {
		kind := models.ErrorKind(err)
		ev.Type = "error"
		ev.Error = err.Error()
		s.d.Metrics.RecordError(kind)
		s.d.Metrics.RecordQuery(ev.ChartType, "error")
		if kind == models.KindInternal {
			s.d.Logger.Error("ask failed", applogger.String("request_id", id), applogger.Error(err))
		}
	} else {
		s.d.Metrics.RecordQuery(ev.ChartType, resp.Type)
	}
	s.audit(ev)
	return resp, err
}

func (s *AskService) ask(ctx context.Context, req *models.AskRequest, id string, ev *models.QueryEvent) (*models.AskResponse, error) {
	acc := s.d.Holder.Current()
	if acc == nil {
		return nil, &models.EmptyDatasetError{}
	}
	ev.Version = acc.Version()
	useLLM := req.UseLLM == nil || *req.UseLLM

	in := clarify.Input{Question: req.Question, Answers: req.ClarifyAnswers}
	var warnings []string
	if req.DraftFilters != nil {
		in.Draft = req.DraftFilters.Clone()
	} else {
		out, err := s.oracle(useLLM).Parse(ctx, req.Question, acc.Dimensions())
		if err != nil {
			return nil, err
		}
		in.Draft = out.Draft()
		in.OracleQuestions = out.Questions
		warnings = append(warnings, out.Warnings...)
	}

	t := time.Now()
	res, err := s.d.Resolver.Resolve(in, acc)
	s.d.Metrics.RecordLatency("resolve", time.Since(t).Seconds())
	ev.ItemName = res.Draft.ItemName
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, res.Warnings...)

	if res.NeedsClarification() {
		ev.Type = models.ResponseClarify
		for _, q := range res.Questions {
			ev.Questions = append(ev.Questions, q.ID)
			s.d.Metrics.RecordClarification(q.ID)
		}
		return &models.AskResponse{
			Type:          models.ResponseClarify,
			Series:        []models.SeriesPoint{},
			Warnings:      nonNil(warnings),
			Clarification: &models.Clarification{DraftFilters: res.Draft, Questions: res.Questions},
			RequestID:     id,
		}, nil
	}

	f := *res.Filter
	ev.Type = models.ResponseResult
	ev.ItemName = f.ItemName
	ev.ChartType = string(f.ChartType)

	ans, err := s.answer(ctx, acc, f, useLLM)
	if err != nil {
		return nil, err
	}
	ev.DataPoints = ans.Summary.DataPoints
	summary := ans.Summary
	return &models.AskResponse{
		Type:      models.ResponseResult,
		Filters:   &f,
		Series:    ans.Series,
		Summary:   &summary,
		Markets:   ans.Markets,
		Rolling:   ans.Rolling,
		Narrative: ans.Narrative,
		Warnings:  nonNil(warnings),
		RequestID: id,
	}, nil
}

// answer executes f against acc, going through the result cache.
func (s *AskService) answer(ctx context.Context, acc *dataset.Accessor, f models.Filter, useLLM bool) (*cachedAnswer, error) {
	key := cache.Key("ask", strconv.FormatUint(acc.Version(), 10),
		cache.HashKey(f.CacheKey()+"|"+strconv.FormatBool(f.Explain)+"|"+strconv.FormatBool(useLLM)))

	var ans cachedAnswer
	if err := cache.GetJSON(ctx, s.d.Cache, key, &ans); err == nil {
		s.d.Metrics.RecordCache(true)
		return &ans, nil
	}
	s.d.Metrics.RecordCache(false)

	t := time.Now()
	res, err := s.d.Engine.Execute(acc, f)
	s.d.Metrics.RecordLatency("execute", time.Since(t).Seconds())
	if err != nil {
		return nil, err
	}

	ans = cachedAnswer{
		Series:  models.MaskMetrics(res.Series, f),
		Summary: features.Summarize(res, f),
		Markets: res.Markets,
		Rolling: res.Rolling,
	}
	if ans.Series == nil {
		ans.Series = []models.SeriesPoint{}
	}

	t = time.Now()
	ans.Narrative, err = s.narrator(useLLM).Narrate(ctx, models.NarrativeInput{
		Filter:  f,
		Series:  ans.Series,
		Summary: ans.Summary,
		Markets: ans.Markets,
	})
	s.d.Metrics.RecordLatency("narrate", time.Since(t).Seconds())
	if err != nil {
		s.d.Logger.Warn("narrative failed", applogger.Error(err))
		ans.Narrative = ""
	}

	if err := cache.SetJSON(ctx, s.d.Cache, key, ans, s.d.CacheTTL); err != nil {
		s.d.Logger.Warn("result cache write failed", applogger.Error(err))
	}
	return &ans, nil
}

func (s *AskService) oracle(useLLM bool) service.Oracle {
	if useLLM && s.d.LLMOracle != nil {
		return s.d.LLMOracle
	}
	return s.d.Rules
}

func (s *AskService) narrator(useLLM bool) service.Narrator {
	if useLLM && s.d.LLMNarrator != nil {
		return s.d.LLMNarrator
	}
	return s.d.Narrator
}

func (s *AskService) audit(ev *models.QueryEvent) {
	if s.d.Audit == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.d.Audit.PublishQuery(ctx, ev); err != nil {
			s.d.Logger.Warn("audit publish failed", applogger.String("request_id", ev.RequestID), applogger.Error(err))
		}
	}()
}

// Dimensions describes the active snapshot.
func (s *AskService) Dimensions() (models.Dimensions, error) {
	acc := s.d.Holder.Current()
	if acc == nil {
		return models.Dimensions{}, &models.EmptyDatasetError{}
	}
	return acc.Dimensions(), nil
}

// Candidates lists the best matches for a partial name.
func (s *AskService) Candidates(req *models.CandidatesRequest) ([]dataset.Candidate, error) {
	acc := s.d.Holder.Current()
	if acc == nil {
		return nil, &models.EmptyDatasetError{}
	}
	field := dataset.Field(req.Field)
	if !dataset.IsValidField(field) {
		return nil, models.NewValidationError("field", req.Field, "unknown field")
	}
	opts := []dataset.MatchOption{dataset.WithLimit(req.Limit)}
	if req.Item != "" {
		opts = append(opts, dataset.WithinItem(req.Item))
	}
	out := acc.Match(field, req.Query, opts...)
	if out == nil {
		out = []dataset.Candidate{}
	}
	return out, nil
}

func nonNil(ws []string) []string {
	if ws == nil {
		return []string{}
	}
	return ws
}
