package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"AgriPrice/internal/domain/models"
	domrepo "AgriPrice/internal/domain/repository"
)

// SQLiteSource reads rows from a local SQLite database.
type SQLiteSource struct {
	db    *sql.DB
	dsn   string
	store *sqlRows
}

var _ domrepo.RowSource = (*SQLiteSource)(nil)

// OpenSQLite opens dsn (a plain path is accepted too) with the pure-Go driver.
func OpenSQLite(dsn, table string) (*SQLiteSource, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlite dsn is required")
	}
	if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		dsn = "file:" + dsn
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// Single writer; also keeps :memory: databases on one connection.
	db.SetMaxOpenConns(1)

	store, err := newSQLRows(db, table, "date", func(d models.Date) interface{} { return d.String() })
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteSource{db: db, dsn: dsn, store: store}, nil
}

func (s *SQLiteSource) Name() string { return "sqlite:" + s.store.table }

// EnsureSchema creates the price table and its lookup index if missing.
func (s *SQLiteSource) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			date TEXT NOT NULL,
			market_code TEXT,
			market_name TEXT NOT NULL,
			item_code TEXT,
			item_name TEXT NOT NULL,
			variety_code TEXT,
			variety_name TEXT,
			price_kg REAL,
			volume_kg REAL,
			amount_krw REAL,
			prev_period_price REAL,
			prev_month_price REAL,
			prev_year_price REAL,
			common_year_price REAL
		)`, s.store.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_item_date ON %s (item_name, date)`,
			strings.ReplaceAll(s.store.table, ".", "_"), s.store.table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteSource) Load(ctx context.Context) (*models.LoadBatch, error) {
	return s.store.load(ctx, s.Name())
}

// Write appends rows, returning how many were written.
func (s *SQLiteSource) Write(ctx context.Context, rows []models.TimeSeriesRow) (int, error) {
	return s.store.insert(ctx, rows)
}

func (s *SQLiteSource) Close() error {
	return s.db.Close()
}
