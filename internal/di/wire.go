//go:build wireinject
// +build wireinject

package di

import (
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/config"
	"github.com/JeanZorzetti/tape-vision-ai-92-sub000/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideCache,

		// Repositories
		ProvideSignalStore,
		ProvideResultPublisher,

		// Scoring pipeline
		ProvideRetryQueue,
		ProvideResultRouter,
		ProvideTickProcessor,
		ProvidePipeline,
		ProvideKafkaTicksHandler,
		ProvideOutcomeUseCase,
		ProvideKafkaOutcomesHandler,

		// API surface
		ProvideSignalAggregator,
		ProvideSnapshotUseCase,
		ProvideHistoryUseCase,
		ProvideHub,
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
