//go:build wireinject
// +build wireinject

package di

import (
	"MandiCast/pkg/config"
	"MandiCast/pkg/server"

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
		ProvideKafkaConsumer,

		// Repositories
		ProvidePriceHistory,
		ProvideAuditLog,
		ProvideTracking,
		ProvideAuditPublisher,

		// Core services
		ProvideRegistry,
		ProvideEngine,
		ProvideForecaster,
		ProvideOverseer,
		ProvideExplainer,

		// Use cases and handlers
		ProvideAdvisor,
		ProvideActualsHandler,
		ProvideAdviceHandler,
		ProvideOpsHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
