package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/event"
	handler "github.com/utafrali/storefront/internal/handler/http"
	"github.com/utafrali/storefront/internal/session"
	"github.com/utafrali/storefront/internal/storefront"
	"github.com/utafrali/storefront/internal/upstream"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/tracing"
)

// initTracer is replaced in tests.
var initTracer = tracing.InitTracer

// App wires together all dependencies and runs the storefront BFF.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	registry       *storefront.Registry
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc

	// background stops the rate limiter and registry cleanup loops.
	background context.Context
	stop       context.CancelFunc
}

// abort releases what NewApp started before it failed.
func (a *App) abort() {
	a.stop()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := a.tracerShutdown(ctx); err != nil {
		a.logger.Warn("tracer shutdown error", slog.String("error", err.Error()))
	}
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := initTracer(ctx, tracing.Config{
		ServiceName:    "storefront",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{
		cfg:            cfg,
		logger:         logger,
		tracerShutdown: tracerShutdown,
	}
	a.background, a.stop = context.WithCancel(context.Background())

	healthHandler := health.NewHandler()

	// Session persistence: Redis when configured, process memory otherwise.
	var persister session.Persister
	if cfg.RedisAddr != "" {
		redisCfg := database.DefaultRedisConfig()
		redisCfg.Addr = cfg.RedisAddr
		redisCfg.Password = cfg.RedisPass
		redisCfg.DB = cfg.RedisDB
		rdb, err := database.NewRedisClient(ctx, redisCfg)
		if err != nil {
			a.abort()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
		a.rdb = rdb
		persister = session.NewRedisPersister(rdb, cfg.SessionTTL)
		healthHandler.Register("redis", database.RedisChecker(rdb))
	} else {
		logger.Warn("REDIS_ADDR not set, sessions are kept in memory and lost on restart")
		persister = session.NewMemoryPersister()
	}

	// Storefront activity events.
	var publisher event.Publisher
	if cfg.EventsEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = a.producer
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	emitter := event.NewEmitter(publisher, logger)

	// Upstream API client: retries and client spans, behind a circuit breaker.
	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.UpstreamTimeout
	httpCfg.MaxRetries = cfg.UpstreamMaxRetries
	breaker := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpCfg),
		httpclient.DefaultCircuitBreakerConfig("upstream"),
		logger,
	)
	up := upstream.New(breaker, upstream.Config{
		BaseURL:     cfg.UpstreamBaseURL,
		TokenHeader: cfg.UpstreamTokenHeader,
	}, logger)
	healthHandler.RegisterNonCritical("upstream", up.Ping)

	// Build the dependency graph.
	a.registry = storefront.NewRegistry(up, persister, emitter, storefront.Config{
		DefaultSort: cfg.CatalogDefaultSort,
		ReturnURL:   cfg.CheckoutReturnURL,
		IdleTTL:     cfg.StorefrontIdleTTL,
	}, logger)
	cat := catalog.New(up, logger)

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins

	// HTTP router.
	router := handler.NewRouter(a.background, handler.RouterConfig{
		Cookie: handler.CookieConfig{
			Name:   cfg.SessionCookieName,
			Secure: cfg.SessionCookieSecure,
			MaxAge: cfg.SessionTTL,
		},
		CORS: cors,
		RateLimit: middleware.RateLimitConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		},
		PprofCIDRs: cfg.PprofAllowedCIDRs,
	}, a.registry, cat, healthHandler, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.registry.StartCleanup(a.background)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("upstream", a.cfg.UpstreamBaseURL),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order:
// 1. HTTP server (drain in-flight requests)
// 2. Background loops
// 3. Kafka producer (flush events from drained requests)
// 4. Tracer (flush pending spans)
// 5. Redis client
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.stop()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
