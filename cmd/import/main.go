// Command import copies a CSV or workbook export into the configured
// SQLite or ClickHouse table so the server can load from there.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"AgriPrice/internal/domain/models"
	internalrepo "AgriPrice/internal/repository"
	pkgch "AgriPrice/pkg/clickhouse"
	"AgriPrice/pkg/config"
	applogger "AgriPrice/pkg/logger"
)

type rowWriter interface {
	Name() string
	EnsureSchema(ctx context.Context) error
	Write(ctx context.Context, rows []models.TimeSeriesRow) (int, error)
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	in := flag.String("in", "", "CSV or XLSX export to import")
	sheet := flag.String("sheet", "", "workbook sheet (default: first)")
	encoding := flag.String("encoding", "auto", "CSV encoding: auto, utf-8 or cp949")
	flag.Parse()

	if err := run(*configPath, *in, *sheet, *encoding); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, in, sheet, encoding string) error {
	if in == "" {
		return fmt.Errorf("-in is required")
	}
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return err
	}
	l, err := applogger.New(&cfg.Logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	batch, err := internalrepo.NewFileSource(in,
		internalrepo.WithSheet(sheet),
		internalrepo.WithEncoding(encoding),
	).Load(ctx)
	if err != nil {
		return err
	}
	for i, rej := range batch.Rejected {
		if i == 5 {
			break
		}
		l.Warn("row rejected", applogger.Error(rej))
	}

	dst, closeFn, err := openTarget(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := dst.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	n, err := dst.Write(ctx, batch.Rows)
	if err != nil {
		return err
	}
	l.Info("import complete",
		applogger.String("target", dst.Name()),
		applogger.Int("rows", n),
		applogger.Int("rejected", len(batch.Rejected)))
	return nil
}

// openTarget picks the table named by dataset.source.
func openTarget(ctx context.Context, cfg *config.Config, l *applogger.Logger) (rowWriter, func(), error) {
	switch cfg.Dataset.Source {
	case "sqlite":
		dsn := cfg.Dataset.DSN
		if dsn == "" {
			dsn = cfg.Dataset.Path
		}
		src, err := internalrepo.OpenSQLite(dsn, cfg.Dataset.Table)
		if err != nil {
			return nil, nil, err
		}
		return src, func() { _ = src.Close() }, nil
	case "clickhouse":
		ch := cfg.ClickHouse
		client, err := pkgch.NewClient(ctx,
			pkgch.WithHost(ch.Host, ch.Port),
			pkgch.WithDatabase(ch.Database),
			pkgch.WithCredentials(ch.User, ch.Password),
			pkgch.WithHTTP(ch.UseHTTP),
			pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout),
		)
		if err != nil {
			return nil, nil, err
		}
		src, err := internalrepo.NewClickHouseSource(client, cfg.Dataset.Table, l)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return src, func() { _ = client.Close() }, nil
	}
	return nil, nil, fmt.Errorf("dataset.source %q is not writable; use sqlite or clickhouse", cfg.Dataset.Source)
}
