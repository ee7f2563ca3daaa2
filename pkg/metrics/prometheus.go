// Package metrics records service counters and latencies in Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"AgriPrice/internal/domain/repository"
)

const namespace = "agriprice"

// Recorder implements repository.Metrics.
type Recorder struct {
	queries        *prometheus.CounterVec
	clarifications *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	datasetRows    *prometheus.GaugeVec
	datasetRejects *prometheus.GaugeVec
	cache          *prometheus.CounterVec
}

var _ repository.Metrics = (*Recorder)(nil)

// New registers the collectors on reg (prometheus.DefaultRegisterer when nil).
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		queries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Answered requests by chart type and outcome (result, clarify, error).",
		}, []string{"chart_type", "outcome"}),
		clarifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clarification_questions_total",
			Help:      "Clarification questions asked, by question id.",
		}, []string{"question"}),
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors by kind.",
		}, []string{"kind"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of pipeline stages.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
		datasetRows: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_rows",
			Help:      "Rows in the active dataset snapshot.",
		}, []string{"source"}),
		datasetRejects: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_rejected_rows",
			Help:      "Rows rejected while building the active snapshot.",
		}, []string{"source"}),
		cache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_cache_lookups_total",
			Help:      "Result cache lookups by outcome.",
		}, []string{"result"}),
	}
}

func (r *Recorder) RecordQuery(chartType, outcome string) {
	r.queries.WithLabelValues(chartType, outcome).Inc()
}

func (r *Recorder) RecordClarification(questionID string) {
	r.clarifications.WithLabelValues(questionID).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordDataset(source string, rows, rejected int) {
	r.datasetRows.Reset()
	r.datasetRejects.Reset()
	r.datasetRows.WithLabelValues(source).Set(float64(rows))
	r.datasetRejects.WithLabelValues(source).Set(float64(rejected))
}

func (r *Recorder) RecordCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cache.WithLabelValues(result).Inc()
}

// Nop discards every measurement.
type Nop struct{}

var _ repository.Metrics = Nop{}

func (Nop) RecordQuery(string, string)     {}
func (Nop) RecordClarification(string)     {}
func (Nop) RecordError(string)             {}
func (Nop) RecordLatency(string, float64)  {}
func (Nop) RecordDataset(string, int, int) {}
func (Nop) RecordCache(bool)               {}
