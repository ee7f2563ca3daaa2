package repository

import (
	"context"
	"fmt"
	"time"

	"AgriPrice/internal/domain/models"
	domrepo "AgriPrice/internal/domain/repository"
	applogger "AgriPrice/pkg/logger"
)

// messagePublisher is the slice of *kafka.Producer used here.
type messagePublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaPublisher writes audit and refresh events to their topics.
type KafkaPublisher struct {
	producer     messagePublisher
	auditTopic   string
	refreshTopic string
}

var (
	_ domrepo.AuditPublisher   = (*KafkaPublisher)(nil)
	_ domrepo.RefreshPublisher = (*KafkaPublisher)(nil)
)

func NewKafkaPublisher(producer messagePublisher, auditTopic, refreshTopic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, auditTopic: auditTopic, refreshTopic: refreshTopic}
}

// PublishQuery keys events by item so one item's history stays ordered.
func (p *KafkaPublisher) PublishQuery(ctx context.Context, ev *models.QueryEvent) error {
	key := ev.ItemName
	if key == "" {
		key = ev.RequestID
	}
	if err := p.producer.Publish(ctx, p.auditTopic, []byte(key), ev); err != nil {
		return fmt.Errorf("publish query event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) PublishRefresh(ctx context.Context, ev *models.RefreshEvent) error {
	if ev.RequestedAt.IsZero() {
		ev.RequestedAt = time.Now().UTC()
	}
	if err := p.producer.Publish(ctx, p.refreshTopic, []byte(ev.Reason), ev); err != nil {
		return fmt.Errorf("publish refresh event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Close()
}

// LogAuditPublisher records query events in the application log. Used when Kafka is off.
type LogAuditPublisher struct {
	l *applogger.Logger
}

var _ domrepo.AuditPublisher = (*LogAuditPublisher)(nil)

func NewLogAuditPublisher(l *applogger.Logger) *LogAuditPublisher {
	return &LogAuditPublisher{l: l}
}

func (p *LogAuditPublisher) PublishQuery(_ context.Context, ev *models.QueryEvent) error {
	p.l.Info("query",
		applogger.String("request_id", ev.RequestID),
		applogger.String("type", ev.Type),
		applogger.String("item", ev.ItemName),
		applogger.String("chart_type", ev.ChartType),
		applogger.Int("data_points", ev.DataPoints),
		applogger.Int64("latency_ms", ev.LatencyMs),
		applogger.Uint64("dataset_version", ev.Version),
	)
	return nil
}

func (p *LogAuditPublisher) Close() error { return nil }
