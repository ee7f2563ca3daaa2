package repository

import (
	"context"
	"fmt"
	"time"

	"AgriPrice/internal/domain/models"
	domrepo "AgriPrice/internal/domain/repository"
	pkgch "AgriPrice/pkg/clickhouse"
	applogger "AgriPrice/pkg/logger"
)

// ClickHouseSource reads the price table from ClickHouse.
type ClickHouseSource struct {
	ch    *pkgch.Client
	store *sqlRows
	l     *applogger.Logger
}

var _ domrepo.RowSource = (*ClickHouseSource)(nil)

func NewClickHouseSource(ch *pkgch.Client, table string, l *applogger.Logger) (*ClickHouseSource, error) {
	store, err := newSQLRows(ch.DB(), table, "toString(date)", func(d models.Date) interface{} { return d.Time })
	if err != nil {
		return nil, err
	}
	return &ClickHouseSource{ch: ch, store: store, l: l}, nil
}

func (s *ClickHouseSource) Name() string { return "clickhouse:" + s.store.table }

// SchemaStatements returns the DDL for the price table.
func (s *ClickHouseSource) SchemaStatements() []string {
	return []string{fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			date Date,
			market_code LowCardinality(String),
			market_name LowCardinality(String),
			item_code LowCardinality(String),
			item_name LowCardinality(String),
			variety_code LowCardinality(String),
			variety_name LowCardinality(String),
			price_kg Nullable(Float64),
			volume_kg Nullable(Float64),
			amount_krw Nullable(Float64),
			prev_period_price Nullable(Float64),
			prev_month_price Nullable(Float64),
			prev_year_price Nullable(Float64),
			common_year_price Nullable(Float64)
		) ENGINE = ReplacingMergeTree
		ORDER BY (item_name, market_name, variety_name, date)`, s.store.table)}
}

func (s *ClickHouseSource) EnsureSchema(ctx context.Context) error {
	return s.ch.InitSchema(ctx, s.SchemaStatements())
}

func (s *ClickHouseSource) Load(ctx context.Context) (*models.LoadBatch, error) {
	start := time.Now()
	batch, err := s.store.load(ctx, s.Name())
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse load failed", applogger.String("table", s.store.table), applogger.Error(err))
		}
		return nil, err
	}
	if s.l != nil {
		s.l.Debug("clickhouse load",
			applogger.String("table", s.store.table),
			applogger.Int("rows", len(batch.Rows)),
			applogger.Duration("took", time.Since(start)),
		)
	}
	return batch, nil
}

func (s *ClickHouseSource) Write(ctx context.Context, rows []models.TimeSeriesRow) (int, error) {
	return s.store.insert(ctx, rows)
}
