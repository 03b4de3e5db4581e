package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"SwanPulse/pkg/http/middleware"
	"SwanPulse/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerOption configures Server.
type ServerOption func(*ServerConfig)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORS            bool
	CORSOrigins     []string
	MetricsPath     string
	SlowRequest     time.Duration
	// StreamingPaths are long-lived routes excluded from slow request logs.
	StreamingPaths []string

	registry *prometheus.Registry
	logger   *logger.Logger
}

// Server wraps Echo HTTP server.
type Server struct {
	echo   *echo.Echo
	config *ServerConfig
	log    *logger.Logger
	errCh  chan error
	addr   atomic.Value

	// cancel ends every request context so streaming handlers return
	// before Shutdown waits on them.
	cancel context.CancelFunc
}

// NewServer creates a new HTTP server with Echo. WriteTimeout defaults to
// zero because the relay routes hold responses open indefinitely.
func NewServer(handler Handler, opts ...ServerOption) *Server {
	cfg := &ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		CORS:            true,
		CORSOrigins:     []string{"*"},
		SlowRequest:     2 * time.Second,
	}

	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Nop()
	}
	l := cfg.logger.With(logger.String("component", "http"))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadHeaderTimeout = cfg.ReadTimeout
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout
	baseCtx, cancel := context.WithCancel(context.Background())
	e.Server.BaseContext = func(net.Listener) context.Context { return baseCtx }

	e.Use(middleware.Recover(l))
	e.Use(middleware.RequestLogging(l))
	if cfg.registry != nil {
		e.Use(middleware.NewHTTPMetrics(cfg.registry).Middleware(l, cfg.SlowRequest, cfg.StreamingPaths...))
	}

	if cfg.CORS {
		e.Use(middleware.CORS(middleware.CORSConfig{
			AllowOrigins: cfg.CORSOrigins,
			AllowMethods: []string{
				http.MethodGet,
				http.MethodPost,
				http.MethodOptions,
			},
			AllowHeaders: []string{
				echo.HeaderOrigin,
				echo.HeaderContentType,
				echo.HeaderAccept,
				echo.HeaderCacheControl,
				"Last-Event-ID",
			},
			MaxAge: 600,
		}))
	}

	if handler != nil {
		handler.RegisterRoutes(e)
	}

	if cfg.registry != nil && cfg.MetricsPath != "" {
		e.GET(cfg.MetricsPath, echo.WrapHandler(promhttp.HandlerFor(cfg.registry, promhttp.HandlerOpts{Registry: cfg.registry})))
	}

	return &Server{
		echo:   e,
		config: cfg,
		log:    l,
		errCh:  make(chan error, 1),
		cancel: cancel,
	}
}

// Start binds the listener and serves in the background. A bind failure is
// returned directly; later serve errors are delivered on Errors.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.echo.Listener = ln
	s.addr.Store(ln.Addr().String())

	go func() {
		s.log.Info("http server listening", logger.String("addr", ln.Addr().String()))
		if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server error", logger.Error(err))
			s.errCh <- err
		}
	}()

	return nil
}

// Errors reports fatal serve errors after Start.
func (s *Server) Errors() <-chan error { return s.errCh }

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	addr, _ := s.addr.Load().(string)
	return addr
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.cancel()
	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.log.Info("http server stopped")
	return nil
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// WithHost sets server host.
func WithHost(host string) ServerOption {
	return func(c *ServerConfig) {
		c.Host = host
	}
}

// WithPort sets server port.
func WithPort(port int) ServerOption {
	return func(c *ServerConfig) {
		c.Port = port
	}
}

// WithTimeouts sets read/write timeouts.
func WithTimeouts(read, write, shutdown time.Duration) ServerOption {
	return func(c *ServerConfig) {
		c.ReadTimeout = read
		c.WriteTimeout = write
		c.ShutdownTimeout = shutdown
	}
}

// WithCORS enables/disables CORS.
func WithCORS(enabled bool) ServerOption {
	return func(c *ServerConfig) {
		c.CORS = enabled
	}
}

// WithCORSOrigins restricts allowed origins.
func WithCORSOrigins(origins []string) ServerOption {
	return func(c *ServerConfig) {
		if len(origins) > 0 {
			c.CORSOrigins = origins
		}
	}
}

// WithMetrics installs request metrics on reg and exposes reg at path.
// An empty path records without exposing.
func WithMetrics(reg *prometheus.Registry, path string) ServerOption {
	return func(c *ServerConfig) {
		c.registry = reg
		c.MetricsPath = path
	}
}

// WithStreamingPaths marks long-lived routes.
func WithStreamingPaths(paths ...string) ServerOption {
	return func(c *ServerConfig) {
		c.StreamingPaths = append(c.StreamingPaths, paths...)
	}
}

// WithLogger sets the server logger.
func WithLogger(l *logger.Logger) ServerOption {
	return func(c *ServerConfig) {
		c.logger = l
	}
}
