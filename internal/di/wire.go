//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"AgriPrice/internal/services/dataset"
	"AgriPrice/internal/usecase"
	"AgriPrice/pkg/config"
	"AgriPrice/pkg/server"
)

// InitializeApp wires the application from cfg. The returned cleanup closes
// the producer, cache and dataset source.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideInstanceID,
		ProvideRegistry,
		ProvideMetrics,

		ProvideCache,
		ProvideRowSource,
		ProvideKafkaProducer,
		ProvideAuditPublisher,
		ProvideRefreshPublisher,
		ProvideGenerator,

		dataset.NewHolder,
		usecase.NewRefresher,
		ProvideAskService,
		ProvideRefreshScheduler,
		ProvideKafkaConsumer,

		ProvideLimiter,
		ProvideHandlers,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}
