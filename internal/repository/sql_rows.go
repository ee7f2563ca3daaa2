package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"AgriPrice/internal/domain/models"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// rowColumns is the column order shared by every SQL-backed source.
var rowColumns = []string{
	"date", "market_code", "market_name", "item_code", "item_name",
	"variety_code", "variety_name", "price_kg", "volume_kg", "amount_krw",
	"prev_period_price", "prev_month_price", "prev_year_price", "common_year_price",
}

// sqlRows reads and bulk-writes price rows through database/sql.
// Dialect differences are confined to dateExpr and dateArg.
type sqlRows struct {
	db       *sql.DB
	table    string
	dateExpr string
	dateArg  func(models.Date) interface{}
}

func newSQLRows(db *sql.DB, table, dateExpr string, dateArg func(models.Date) interface{}) (*sqlRows, error) {
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &sqlRows{db: db, table: table, dateExpr: dateExpr, dateArg: dateArg}, nil
}

func (s *sqlRows) selectQuery() string {
	cols := append([]string{s.dateExpr}, rowColumns[1:]...)
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY date, market_name", strings.Join(cols, ", "), s.table)
}

func (s *sqlRows) load(ctx context.Context, source string) (*models.LoadBatch, error) {
	rows, err := s.db.QueryContext(ctx, s.selectQuery())
	if err != nil {
		return nil, fmt.Errorf("%s: query rows: %w", source, err)
	}
	defer rows.Close()

	batch := &models.LoadBatch{Source: source}
	line := 0
	for rows.Next() {
		line++
		var (
			day                                      string
			mCode, mName, iCode, iName, vCode, vName sql.NullString
			price, volume, amount                    sql.NullFloat64
			prevPeriod, prevMonth, prevYear, common  sql.NullFloat64
		)
		if err := rows.Scan(&day, &mCode, &mName, &iCode, &iName, &vCode, &vName,
			&price, &volume, &amount, &prevPeriod, &prevMonth, &prevYear, &common); err != nil {
			return nil, fmt.Errorf("%s: scan row %d: %w", source, line, err)
		}
		d, err := models.ParseDate(strings.TrimSpace(day))
		if err != nil {
			batch.Rejected = append(batch.Rejected, &models.InvalidRowError{
				Index: line, Source: source, Field: "date", Reason: err.Error(),
			})
			continue
		}
		batch.Rows = append(batch.Rows, models.TimeSeriesRow{
			MarketCode:      mCode.String,
			MarketName:      mName.String,
			ItemCode:        iCode.String,
			ItemName:        iName.String,
			VarietyCode:     vCode.String,
			VarietyName:     vName.String,
			Date:            d,
			PriceKg:         nullFloat(price),
			VolumeKg:        nullFloat(volume),
			AmountKrw:       nullFloat(amount),
			PrevPeriodPrice: nullFloat(prevPeriod),
			PrevMonthPrice:  nullFloat(prevMonth),
			PrevYearPrice:   nullFloat(prevYear),
			CommonYearPrice: nullFloat(common),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", source, err)
	}
	return batch, nil
}

// insert writes rows with multi-row VALUES statements in chunks.
func (s *sqlRows) insert(ctx context.Context, rows []models.TimeSeriesRow) (int, error) {
	const chunkSize = 500
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(rowColumns)), ", ") + ")"
	written := 0
	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*len(rowColumns))
		for _, r := range rows[start:end] {
			if r.ItemName == "" || r.Date.IsZero() {
				continue
			}
			values = append(values, placeholder)
			args = append(args,
				s.dateArg(r.Date),
				r.MarketCode, r.MarketName, r.ItemCode, r.ItemName, r.VarietyCode, r.VarietyName,
				floatArg(r.PriceKg), floatArg(r.VolumeKg), floatArg(r.AmountKrw),
				floatArg(r.PrevPeriodPrice), floatArg(r.PrevMonthPrice), floatArg(r.PrevYearPrice), floatArg(r.CommonYearPrice),
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", s.table, strings.Join(rowColumns, ", "), strings.Join(values, ", "))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return written, fmt.Errorf("insert rows: %w", err)
		}
		written += len(values)
	}
	return written, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func floatArg(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
