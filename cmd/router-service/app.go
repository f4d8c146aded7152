package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"wren/internal/binding"
	"wren/internal/classification"
	"wren/internal/config"
	"wren/internal/constants"
	"wren/internal/dispatch"
	"wren/internal/enrichment"
	"wren/internal/logger"
	"wren/internal/resolution"
	"wren/internal/router"
	"wren/internal/validation"
	"wren/pkg/bootstrap"
	"wren/pkg/health"
	"wren/pkg/metrics"
	"wren/pkg/middleware"
	"wren/pkg/ratelimit"
	"wren/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	store          *config.Store
	dbConnector    *bootstrap.DatabaseConnector
	redis          *redis.Client
	classifier     *classification.Service
	dispatcher     *dispatch.Service
	server         *http.Server
	ginRouter      *gin.Engine
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("router-service")
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		store:       config.NewStore(cfg),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initRedis(ctx); err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}

	if err := a.initRouter(); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	if err := a.initServer(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	tp, err := tracing.Init(a.Config.Tracing, "router-service")
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	if a.Config.Reload.Enabled {
		// The classifier vetoes reloads whose rules fail to compile, so a
		// bad edit never reaches the hot path.
		a.store.StartWatcher(a.Logger, a.classifier.Rebuild)
	}

	return nil
}

func (a *App) initRedis(ctx context.Context) error {
	if !a.Config.Registry.Cache.Enabled {
		return nil
	}

	rdb, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return err
	}
	a.redis = rdb
	return nil
}

func (a *App) initRouter() error {
	gin.SetMode(gin.ReleaseMode)
	ginRouter := gin.New()

	if a.Config.Tracing.Enabled {
		ginRouter.Use(tracing.GinMiddleware("router-service"))
	}

	ginRouter.Use(middleware.RecoveryMiddleware(a.Logger))
	ginRouter.Use(middleware.LoggerMiddleware(a.Logger))
	ginRouter.Use(middleware.RequestIDMiddleware())

	if a.Config.RateLimit.Enabled {
		rateLimitConfig := ratelimit.RateLimitConfig{
			RPS:        a.Config.RateLimit.RPS,
			Burst:      a.Config.RateLimit.Burst,
			MaxClients: a.Config.RateLimit.MaxClients,
			MaxAge:     time.Duration(a.Config.RateLimit.MaxAge) * time.Second,
		}
		ginRouter.Use(ratelimit.RateLimitMiddleware(rateLimitConfig))
		a.Logger.InfowCtx(context.Background(), "Rate limiting enabled", "rps", rateLimitConfig.RPS, "burst", rateLimitConfig.Burst)
	}

	classifier, err := classification.NewService(a.Config, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to compile classification rules: %w", err)
	}
	a.classifier = classifier

	var cache *enrichment.RecordCache
	if a.Config.Registry.Cache.Enabled {
		cache = enrichment.NewRecordCache(a.Config.Registry.Cache, a.redis, a.Logger)
	}

	registryClient := enrichment.NewRegistryClient(a.Config.Registry, a.Config.CircuitBreaker, a.Logger)
	enricher := enrichment.NewService(a.store, registryClient, cache, a.Logger)

	submitter, err := dispatch.NewSubmitter(a.Config.Engine, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize engine submitter: %w", err)
	}
	a.dispatcher = dispatch.NewService(submitter, a.Logger)

	chain := router.NewChain(
		validation.NewService(a.store, a.Logger),
		classifier,
		enricher,
		binding.NewService(a.store, a.Logger),
		resolution.NewService(a.Logger),
		a.dispatcher,
		a.Logger,
	)

	handler := router.NewHandler(chain, a.store, a.Logger)
	handler.RegisterRoutes(ginRouter)

	metrics.RegisterRouterMetrics()
	metrics.RegisterEnrichmentMetrics()
	metrics.RegisterDispatchMetrics()
	metrics.RegisterCircuitBreakerMetrics()
	metrics.RegisterRetryMetrics()

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewHTTPChecker("registry", a.Config.Registry.Endpoint+"/health"))
	if a.redis != nil {
		healthRegistry.RegisterOptional(health.NewRedisChecker(a.redis))
	}
	switch a.Config.Engine.Mode {
	case constants.EngineModeHTTP:
		healthRegistry.Register(health.NewHTTPChecker("engine", a.Config.Engine.HTTP.Endpoint+"/health"))
	case constants.EngineModeKafka:
		if len(a.Config.Engine.Kafka.Brokers) > 0 {
			healthRegistry.Register(health.NewKafkaChecker(a.Config.Engine.Kafka.Brokers[0]))
		}
	}

	ginRouter.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	ginRouter.GET("/metrics", gin.WrapH(promhttp.Handler()))

	ginRouter.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	a.ginRouter = ginRouter
	return nil
}

func (a *App) initServer() error {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.ginRouter,
		ReadTimeout:  a.Config.Server.ReadTimeoutSeconds * time.Second,
		WriteTimeout: a.Config.Server.WriteTimeoutSeconds * time.Second,
	}
	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "Server listening",
			"port", a.Config.Server.Port,
			"providers", len(a.Config.EnabledProviders()),
			"engine_mode", a.Config.Engine.Mode,
		)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		return a.Shutdown(context.Background())
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.InfowCtx(ctx, "Shutting down router service")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
			}
		}

		if a.dispatcher != nil {
			if err := a.dispatcher.Close(); err != nil {
				errs = append(errs, fmt.Errorf("submitter close error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(a.redis)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
