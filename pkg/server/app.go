package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"AgriPrice/internal/usecase"
	"AgriPrice/pkg/config"
	xhttp "AgriPrice/pkg/http"
	pkgkafka "AgriPrice/pkg/kafka"
	applogger "AgriPrice/pkg/logger"
)

// App owns the long-running parts of the service: the HTTP server, the
// refresh schedule and the refresh consumer.
type App struct {
	cfg       *config.Config
	l         *applogger.Logger
	http      *xhttp.Server
	refresher *usecase.Refresher
	scheduler *usecase.RefreshScheduler
	consumer  *pkgkafka.Consumer // nil when Kafka is off

	logShip *applogger.CollectionConfig
}

func New(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	refresher *usecase.Refresher,
	scheduler *usecase.RefreshScheduler,
	consumer *pkgkafka.Consumer,
) *App {
	return &App{
		cfg:       cfg,
		l:         l,
		http:      httpServer,
		refresher: refresher,
		scheduler: scheduler,
		consumer:  consumer,
	}
}

// ShipLogs forwards error digests to topic while the app runs.
func (a *App) ShipLogs(p applogger.Publisher, topic string) {
	a.logShip = &applogger.CollectionConfig{
		FlushInterval: 30 * time.Second,
		MaxEntries:    100,
		Topic:         topic,
		MinLevel:      "error",
		Publisher:     p,
	}
}

// Run loads the dataset, starts every component and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.logShip != nil {
		a.l.AttachCollector(a.logShip)
	}

	// A failed first load leaves /healthz red until a later refresh succeeds.
	loadCtx, cancel := context.WithTimeout(ctx, a.cfg.Dataset.FetchTimeout+30*time.Second)
	if _, err := a.refresher.Refresh(loadCtx, "startup"); err != nil {
		a.l.Error("initial dataset load failed", applogger.Error(err))
	}
	cancel()

	if a.scheduler.Enabled() {
		a.scheduler.Start()
		a.l.Info("refresh schedule started", applogger.String("cron", a.cfg.Dataset.RefreshCron))
	}

	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			a.l.Error("kafka consumer start failed", applogger.Error(err))
		} else {
			a.l.Info("kafka consumer started", applogger.String("topic", a.cfg.Kafka.RefreshTopic))
		}
	}

	if err := a.http.Start(); err != nil {
		a.l.Error("http server start failed", applogger.Error(err))
		a.shutdown()
		return err
	}

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	a.shutdown()
	return nil
}

func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.http.Stop(ctx); err != nil {
		a.l.Error("http shutdown failed", applogger.Error(err))
	}
	a.scheduler.Stop(ctx)
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop failed", applogger.Error(err))
		}
	}
	a.l.DetachCollector()
	a.l.Info("shutdown complete")
}
