package di

import (
	"context"
	"fmt"
	"time"

	"SwanPulse/internal/domain/repository"
	"SwanPulse/internal/handler/api"
	mid "SwanPulse/internal/middleware"
	internalrepo "SwanPulse/internal/repository"
	"SwanPulse/internal/service/platform"
	"SwanPulse/internal/service/ratelimit"
	"SwanPulse/internal/stream"
	"SwanPulse/internal/usecase"
	"SwanPulse/pkg/cache"
	pkgch "SwanPulse/pkg/clickhouse"
	"SwanPulse/pkg/config"
	xhttp "SwanPulse/pkg/http"
	pkgkafka "SwanPulse/pkg/kafka"
	"SwanPulse/pkg/logger"
	"SwanPulse/pkg/metrics"
	"SwanPulse/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ProvideLogger builds the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideRegistry creates the Prometheus registry every collector lands on.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates the stream metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.StreamMetrics {
	return metrics.New(reg)
}

// ProvideStreamDialer creates the upstream SSE dialer.
func ProvideStreamDialer(cfg *config.Config, l *logger.Logger) repository.StreamDialer {
	return platform.NewSSEDialer(cfg.Platform.BaseURL, nil, l)
}

// ProvideStreamManager creates the process-wide stream manager.
func ProvideStreamManager(dialer repository.StreamDialer, m repository.StreamMetrics, cfg *config.Config, l *logger.Logger) (*stream.Manager, func()) {
	mgr := stream.NewManager(dialer,
		stream.WithLogger(l),
		stream.WithMetrics(m),
		stream.WithBufferSize(cfg.Stream.BufferSize),
		stream.WithBackoff(cfg.Stream.BackoffInitial, cfg.Stream.BackoffMax),
	)
	return mgr, mgr.Shutdown
}

// ProvideHistorySource creates the rate limited, breaker guarded REST client.
func ProvideHistorySource(cfg *config.Config, l *logger.Logger) repository.HistorySource {
	return platform.NewHistoryClient(platform.HistoryConfig{
		BaseURL:             cfg.Platform.BaseURL,
		RPS:                 cfg.Platform.RPS,
		Burst:               cfg.Platform.Burst,
		ConsecutiveFailures: cfg.Platform.Breaker.ConsecutiveFailures,
		OpenTimeout:         cfg.Platform.Breaker.OpenTimeout,
	}, xhttp.NewClient(xhttp.WithTimeout(cfg.Platform.RequestTimeout)), l)
}

// ProvideCache creates the history cache for the configured backend.
func ProvideCache(cfg *config.Config) (cache.Service, func(), error) {
	c := cfg.Cache
	newMemory := func() *cache.MemoryCache {
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(c.MaxSize),
			cache.WithMemoryTTL(c.TTL),
			cache.WithMemoryCleanup(time.Minute),
		)
	}
	newRedis := func() (*cache.RedisCache, error) {
		rc, err := cache.NewRedisCache(
			cache.WithRedisAddr(c.Redis.Addr),
			cache.WithRedisPassword(c.Redis.Password),
			cache.WithRedisDB(c.Redis.DB),
			cache.WithRedisPrefix(c.Redis.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return rc, nil
	}

	var svc cache.Service
	switch c.Backend {
	case "redis":
		rc, err := newRedis()
		if err != nil {
			return nil, nil, err
		}
		svc = rc
	case "layered":
		rc, err := newRedis()
		if err != nil {
			return nil, nil, err
		}
		svc = cache.NewLayeredCache(newMemory(), rc, c.TTL)
	default:
		svc = newMemory()
	}
	return svc, func() { _ = svc.Close() }, nil
}

// ProvideHistoryService creates the history use case. The stream manager
// supplies the newest event timestamp for cache keys.
func ProvideHistoryService(source repository.HistorySource, c cache.Service, m *stream.Manager, rec repository.StreamMetrics, cfg *config.Config, l *logger.Logger) *usecase.HistoryService {
	return usecase.NewHistoryService(source, c, m, cfg.Cache.TTL, rec, l)
}

// ProvideSinks opens every enabled persistence sink. The forwarder owns
// and closes them.
func ProvideSinks(cfg *config.Config, reg *prometheus.Registry, l *logger.Logger) ([]repository.EventSink, error) {
	var sinks []repository.EventSink
	closeAll := func() {
		for _, s := range sinks {
			_ = s.Close()
		}
	}

	if k := cfg.Sinks.Kafka; k.Enabled {
		producer, err := pkgkafka.NewProducer(k.Topic, reg,
			pkgkafka.WithBrokers(k.Brokers),
			pkgkafka.WithCompression(k.Compression),
			pkgkafka.WithRequiredAcks(k.RequiredAcks),
			pkgkafka.WithMaxAttempts(k.MaxAttempts),
			pkgkafka.WithWriteTimeout(k.WriteTimeout),
			pkgkafka.WithHashByKey(true),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		sinks = append(sinks, internalrepo.NewKafkaEventPublisher(producer))
		l.Info("kafka sink enabled", logger.Strings("brokers", k.Brokers), logger.String("topic", k.Topic))
	}

	if ch := cfg.Sinks.ClickHouse; ch.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client, err := pkgch.NewClient(ctx,
			pkgch.WithHost(ch.Host),
			pkgch.WithPort(ch.Port),
			pkgch.WithDatabase(ch.Database),
			pkgch.WithCredentials(ch.User, ch.Password),
			pkgch.WithHTTP(ch.UseHTTP),
			pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout),
		)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}
		if err := client.InitSchema(ctx, internalrepo.ScoreSchema(internalrepo.DefaultScoreTable)); err != nil {
			_ = client.Close()
			closeAll()
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		sinks = append(sinks, internalrepo.NewClickHouseScoreStorage(client.DB(), internalrepo.DefaultScoreTable))
		l.Info("clickhouse sink enabled", logger.String("host", ch.Host), logger.String("database", ch.Database))
	}

	return sinks, nil
}

// ProvideForwardPipeline creates the bounded buffer between the stream and the sinks.
func ProvideForwardPipeline(rec repository.StreamMetrics, sinks []repository.EventSink, cfg *config.Config, l *logger.Logger) *mid.ForwardPipeline {
	return mid.NewForwardPipeline(rec, sinks,
		mid.WithBufferSize(cfg.Sinks.BufferSize),
		mid.WithRetry(3, 200*time.Millisecond, 5*time.Second),
		mid.WithPipelineLogger(l),
	)
}

// ProvideEventForwarder subscribes the sinks to the stream.
func ProvideEventForwarder(m *stream.Manager, p *mid.ForwardPipeline, sinks []repository.EventSink, l *logger.Logger) *usecase.EventForwarder {
	return usecase.NewEventForwarder(m, p, sinks, l)
}

// ProvideClientLimiter creates the per-client limiter for the history routes.
func ProvideClientLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst)
}

// ProvideRouter registers every relay handler.
func ProvideRouter(cfg *config.Config, l *logger.Logger, m *stream.Manager, history *usecase.HistoryService, limiter *ratelimit.Limiter) xhttp.Handler {
	hb := cfg.Server.HeartbeatInterval
	return api.NewRouter(
		api.NewHomeHandler(l, m, hb),
		api.NewSocketHandler(l, m, hb, cfg.Server.CORSOrigins),
		api.NewHealthHandler(m),
		api.NewHistoryHandler(l, history, limiter),
	)
}

// ProvideHTTPServer creates the echo server.
func ProvideHTTPServer(cfg *config.Config, handler xhttp.Handler, reg *prometheus.Registry, l *logger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins),
		xhttp.WithStreamingPaths(api.StreamingPaths...),
		xhttp.WithLogger(l),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(reg, cfg.Metrics.Path))
	}
	return xhttp.NewServer(handler, opts...)
}

// ProvideApp assembles the application.
func ProvideApp(cfg *config.Config, l *logger.Logger, m *stream.Manager, f *usecase.EventForwarder, srv *xhttp.Server) *server.App {
	return server.New(cfg, l, m, f, srv)
}
