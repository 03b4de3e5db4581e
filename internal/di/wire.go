//go:build wireinject
// +build wireinject

package di

import (
	"SwanPulse/internal/stream"
	"SwanPulse/pkg/config"
	"SwanPulse/pkg/logger"
	"SwanPulse/pkg/server"

	"github.com/google/wire"
)

var streamSet = wire.NewSet(
	ProvideRegistry,
	ProvideMetrics,
	ProvideStreamDialer,
	ProvideStreamManager,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,
		streamSet,

		// History proxy
		ProvideHistorySource,
		ProvideCache,
		ProvideHistoryService,

		// Persistence sinks
		ProvideSinks,
		ProvideForwardPipeline,
		ProvideEventForwarder,

		// HTTP surface
		ProvideClientLimiter,
		ProvideRouter,
		ProvideHTTPServer,

		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeStream wires only the stream manager, for the tail command.
func InitializeStream(cfg *config.Config, l *logger.Logger) (*stream.Manager, func(), error) {
	wire.Build(streamSet)
	return nil, nil, nil
}
