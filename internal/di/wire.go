//go:build wireinject
// +build wireinject

package di

import (
	"RatePull/pkg/config"
	"RatePull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideLocation,
		ProvideMetrics,

		// Infrastructure clients
		ProvidePostgresClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideCacheService,

		// Repositories
		ProvideSnapshotStore,
		ProvideObservationPublisher,
		ProvideCrawler,

		// Services
		ProvideNormalizer,
		ProvideAnalyticsEngine,

		// Use cases
		ProvideIngestor,
		ProvideObservationProcessor,
		ProvideKafkaObservationsHandler,
		ProvideScheduler,
		ProvideRateQueries,

		// HTTP
		ProvideRatesHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
