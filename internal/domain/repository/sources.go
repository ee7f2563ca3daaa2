package repository

import (
	"context"

	"AgriPrice/internal/domain/models"
)

// RowSource loads an already column-mapped set of rows.
type RowSource interface {
	Name() string
	Load(ctx context.Context) (*models.LoadBatch, error)
}

// AuditPublisher ships query events to downstream consumers.
type AuditPublisher interface {
	PublishQuery(ctx context.Context, ev *models.QueryEvent) error
	Close() error
}

// RefreshPublisher broadcasts dataset refresh requests.
type RefreshPublisher interface {
	PublishRefresh(ctx context.Context, ev *models.RefreshEvent) error
}

type Metrics interface {
	RecordQuery(chartType, outcome string)
	RecordClarification(questionID string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordDataset(source string, rows, rejected int)
	RecordCache(hit bool)
}
