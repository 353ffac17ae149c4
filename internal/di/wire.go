//go:build wireinject
// +build wireinject

package di

import (
	"PriceLens/internal/usecase"
	"PriceLens/pkg/config"
	"PriceLens/pkg/server"

	"github.com/google/wire"
)

var commonSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideKafkaProducer,
	ProvideEventPublisher,
	ProvideArtifactStore,
)

// InitializeApp wires the dashboard.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		commonSet,
		ProvidePriceSource,
		ProvideCache,
		ProvidePriceLoader,
		ProvideReconciler,
		ProvidePredictor,
		ProvideExplorer,
		ProvideRateLimiter,
		ProvideDashboardHandler,
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeTrainer wires the offline training run.
func InitializeTrainer(cfg *config.Config) (*usecase.Trainer, func(), error) {
	wire.Build(
		commonSet,
		ProvidePriceSource,
		ProvideNoCache,
		ProvidePriceLoader,
		ProvideTrainer,
	)
	return nil, nil, nil
}

// InitializeIngester wires the CSV to ClickHouse bulk load.
func InitializeIngester(cfg *config.Config) (*usecase.Ingester, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideClickHouseClient,
		ProvidePriceSink,
		ProvideIngestLoader,
		ProvideIngester,
	)
	return nil, nil, nil
}
