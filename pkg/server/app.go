package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"SwanPulse/internal/stream"
	"SwanPulse/internal/usecase"
	"SwanPulse/pkg/config"
	xhttp "SwanPulse/pkg/http"
	applogger "SwanPulse/pkg/logger"
)

// App encapsulates the relay lifecycle: HTTP surface, optional sink
// forwarding, and the shared upstream stream.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	stream     *stream.Manager
	forwarder  *usecase.EventForwarder
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	m *stream.Manager,
	forwarder *usecase.EventForwarder,
	httpServer *xhttp.Server,
) *App {
	if logger == nil {
		logger = applogger.Nop()
	}
	return &App{
		cfg:        cfg,
		logger:     logger,
		stream:     m,
		forwarder:  forwarder,
		httpServer: httpServer,
	}
}

// Run starts the application and blocks until ctx is cancelled, an
// interrupt arrives, or the HTTP server fails.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		a.stream.Shutdown()
		return err
	}

	// The upstream opens lazily with the first relay client; forwarding,
	// when enabled, is a subscriber and opens it right away.
	if a.forwarder != nil && a.forwarder.Enabled() {
		a.forwarder.Start(ctx)
	}
	a.logger.Info("swanpulse started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("platform", a.cfg.Platform.BaseURL),
		applogger.String("addr", a.httpServer.Addr()),
	)

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-a.httpServer.Errors():
	}
	return errors.Join(runErr, a.shutdown())
}

// shutdown stops relay clients first so their views release the stream,
// then drains forwarding, then tears the stream down.
func (a *App) shutdown() error {
	var errs []error

	if err := a.httpServer.Stop(context.Background()); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}

	if a.forwarder != nil {
		if err := a.forwarder.Stop(); err != nil {
			a.logger.Warn("forwarder stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	a.stream.Shutdown()
	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}
