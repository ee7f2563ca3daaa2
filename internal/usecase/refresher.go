package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"AgriPrice/internal/domain/models"
	domrepo "AgriPrice/internal/domain/repository"
	"AgriPrice/internal/services/dataset"
	applogger "AgriPrice/pkg/logger"
)

// Refresher reloads the dataset from its source and publishes a new snapshot.
// Concurrent calls are serialized; a failed load keeps the previous snapshot.
type Refresher struct {
	mu      sync.Mutex
	source  domrepo.RowSource
	holder  *dataset.Holder
	metrics domrepo.Metrics
	logger  *applogger.Logger
	now     func() time.Time
}

func NewRefresher(source domrepo.RowSource, holder *dataset.Holder, metrics domrepo.Metrics, logger *applogger.Logger) *Refresher {
	return &Refresher{source: source, holder: holder, metrics: metrics, logger: logger, now: time.Now}
}

func (r *Refresher) Refresh(ctx context.Context, reason string) (*models.RefreshReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := r.now()
	log := r.logger.With(applogger.String("source", r.source.Name()), applogger.String("reason", reason))

	batch, err := r.source.Load(ctx)
	if err != nil {
		r.metrics.RecordError("dataset_load")
		log.Error("dataset load failed", applogger.Error(err))
		return nil, fmt.Errorf("load %s: %w", r.source.Name(), err)
	}

	loadedAt := r.now().UTC()
	acc, rejected, err := dataset.New(batch.Rows,
		dataset.WithVersion(r.holder.NextVersion()),
		dataset.WithSource(batch.Source),
		dataset.WithLoadedAt(loadedAt),
	)
	all := make([]*models.InvalidRowError, 0, len(batch.Rejected)+len(rejected))
	all = append(all, batch.Rejected...)
	rejected = append(all, rejected...)
	for i, rej := range rejected {
		if i == 5 {
			log.Warn("more rows rejected", applogger.Int("remaining", len(rejected)-i))
			break
		}
		log.Warn("row rejected", applogger.Error(rej))
	}
	if err != nil {
		r.metrics.RecordError("dataset_build")
		log.Error("dataset build failed", applogger.Int("rejected", len(rejected)), applogger.Error(err))
		return nil, err
	}

	prev := r.holder.Swap(acc)
	r.metrics.RecordDataset(batch.Source, acc.Len(), len(rejected))
	r.metrics.RecordLatency("refresh", r.now().Sub(start).Seconds())

	rep := &models.RefreshReport{
		Source:   batch.Source,
		Rows:     acc.Len(),
		Rejected: len(rejected),
		Version:  acc.Version(),
		Duration: r.now().Sub(start),
		LoadedAt: loadedAt,
	}
	fields := []applogger.Field{
		applogger.Int("rows", rep.Rows),
		applogger.Int("rejected", rep.Rejected),
		applogger.Uint64("version", rep.Version),
		applogger.Duration("took", rep.Duration),
	}
	if prev != nil {
		fields = append(fields, applogger.Uint64("previous_version", prev.Version()))
	}
	log.Info("dataset refreshed", fields...)
	return rep, nil
}
