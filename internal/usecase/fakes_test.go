package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"AgriPrice/internal/domain/models"
	"AgriPrice/internal/services/dataset"
)

type fakeMetrics struct {
	mu        sync.Mutex
	queries   map[string]int
	questions map[string]int
	errors    map[string]int
	hits      int
	misses    int
	datasets  []int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{queries: map[string]int{}, questions: map[string]int{}, errors: map[string]int{}}
}

func (m *fakeMetrics) RecordQuery(chart, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries[chart+"/"+outcome]++
}

func (m *fakeMetrics) RecordClarification(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions[id]++
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *fakeMetrics) RecordLatency(string, float64) {}

func (m *fakeMetrics) RecordDataset(_ string, rows, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.datasets = append(m.datasets, rows)
}

func (m *fakeMetrics) RecordCache(hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

type fakeAudit struct {
	events chan *models.QueryEvent
}

func newFakeAudit() *fakeAudit { return &fakeAudit{events: make(chan *models.QueryEvent, 16)} }

func (a *fakeAudit) PublishQuery(_ context.Context, ev *models.QueryEvent) error {
	a.events <- ev
	return nil
}

func (a *fakeAudit) Close() error { return nil }

type fakeSource struct {
	name  string
	batch *models.LoadBatch
	err   error
	loads int
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Load(context.Context) (*models.LoadBatch, error) {
	s.loads++
	return s.batch, s.err
}

// cabbageRows returns daily prices for two markets from 2024-01-01 to 2024-03-31.
func cabbageRows() []models.TimeSeriesRow {
	var rows []models.TimeSeriesRow
	start := models.NewDate(2024, 1, 1)
	for i := 0; i < 91; i++ {
		d := start.AddDays(i)
		rows = append(rows,
			models.TimeSeriesRow{ItemName: "배추", VarietyName: "봄배추", MarketName: "서울가락", Date: d,
				PriceKg: models.Float(1000 + float64(i)*5), VolumeKg: models.Float(5000)},
			models.TimeSeriesRow{ItemName: "배추", VarietyName: "봄배추", MarketName: "부산엄궁", Date: d,
				PriceKg: models.Float(900 + float64(i)*4), VolumeKg: models.Float(3000)},
		)
	}
	return rows
}

func loadedHolder(t *testing.T) *dataset.Holder {
	t.Helper()
	h := dataset.NewHolder()
	acc, _, err := dataset.New(cabbageRows(), dataset.WithVersion(h.NextVersion()), dataset.WithSource("test"))
	require.NoError(t, err)
	h.Swap(acc)
	return h
}
