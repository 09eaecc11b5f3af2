package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	_ "github.com/lib/pq" // PostgreSQL driver

	"dealflow/internal/chat"
	"dealflow/internal/config"
	"dealflow/internal/constants"
	"dealflow/internal/extractor"
	"dealflow/internal/ingest"
	"dealflow/internal/logger"
	"dealflow/internal/publisher"
	"dealflow/internal/queue"
	"dealflow/internal/store"
	"dealflow/pkg/bootstrap"
	"dealflow/pkg/circuitbreaker"
	"dealflow/pkg/health"
	"dealflow/pkg/metrics"
	"dealflow/pkg/middleware"
	"dealflow/pkg/migrations"
	"dealflow/pkg/ratelimit"
)

type App struct {
	config      *config.Config
	logger      logger.Logger
	dbConnector *bootstrap.DatabaseConnector
	db          *sql.DB
	redisClient *redis.Client
	dealQueue   queue.Queue
	server      *http.Server
	router      *gin.Engine
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		config:      cfg,
		logger:      log,
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := a.initQueue(ctx); err != nil {
		return fmt.Errorf("failed to initialize queue: %w", err)
	}

	if err := a.initRouter(); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeoutSeconds,
		WriteTimeout: a.config.Server.WriteTimeoutSeconds,
	}
	return nil
}

func (a *App) initDatabase(ctx context.Context) error {
	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	a.db = db

	if a.config.Database.RunMigrations {
		if err := migrations.Run(a.db, a.config.Database.Postgres.DBName); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		a.logger.Info("Database migrations applied")
	}
	return nil
}

func (a *App) initQueue(ctx context.Context) error {
	if a.config.Queue.Type == "redis" {
		rdb, err := a.dbConnector.InitRedis(ctx)
		if err != nil {
			return err
		}
		a.redisClient = rdb
	}

	q, err := queue.New(a.config.Queue, a.redisClient, a.logger)
	if err != nil {
		return err
	}
	a.dealQueue = q
	return nil
}

func (a *App) initRouter() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(a.logger))
	router.Use(middleware.LoggerMiddleware(a.logger))

	if a.config.RateLimit.Enabled {
		rateLimitConfig := ratelimit.DefaultConfig()
		if a.config.RateLimit.RPS > 0 {
			rateLimitConfig.RPS = a.config.RateLimit.RPS
		}
		if a.config.RateLimit.Burst > 0 {
			rateLimitConfig.Burst = a.config.RateLimit.Burst
		}
		router.Use(ratelimit.Middleware(rateLimitConfig))
		a.logger.Infow("Rate limiting enabled",
			"rps", rateLimitConfig.RPS,
			"burst", rateLimitConfig.Burst,
		)
	}

	extractorBreaker := circuitbreaker.NewWrapper(a.breakerConfig("extractor"))
	workspaceBreaker := circuitbreaker.NewWrapper(a.breakerConfig("workspace"))

	extractorSvc := extractor.NewService(
		extractor.NewClient(a.config.Extractor, extractorBreaker),
		a.logger,
	)
	publisherSvc := publisher.NewService(
		publisher.NewClient(a.config.Workspace, workspaceBreaker),
		a.logger,
	)
	sessions := extractor.NewSessionStore(constants.SessionHistoryLimit)

	st := store.New(a.db)

	ingestHandler := ingest.NewHandler(
		ingest.NewService(st, a.dealQueue, a.logger),
		a.logger,
	)
	chatHandler := chat.NewHandler(
		chat.NewService(extractorSvc, publisherSvc, sessions, a.logger),
		a.logger,
	)

	ingestHandler.RegisterRoutes(router)
	chatHandler.RegisterRoutes(router)

	metrics.RegisterPipelineMetrics()
	metrics.RegisterHTTPMetrics()
	metrics.RegisterCircuitBreakerMetrics()

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewPostgreSQLChecker(a.db))
	if a.redisClient != nil {
		healthRegistry.Register(health.NewRedisChecker(a.redisClient))
	}

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/queue/stats", func(c *gin.Context) {
		sizes, err := a.dealQueue.Sizes(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, sizes)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.router = router
	return nil
}

func (a *App) breakerConfig(name string) circuitbreaker.Config {
	cfg := circuitbreaker.DefaultConfig(name)
	if !a.config.CircuitBreaker.Enabled {
		return cfg
	}
	if a.config.CircuitBreaker.MaxRequests > 0 {
		cfg.MaxRequests = a.config.CircuitBreaker.MaxRequests
	}
	if a.config.CircuitBreaker.IntervalSeconds > 0 {
		cfg.Interval = a.config.CircuitBreaker.IntervalSeconds
	}
	if a.config.CircuitBreaker.TimeoutSeconds > 0 {
		cfg.Timeout = a.config.CircuitBreaker.TimeoutSeconds
	}
	return cfg
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		a.logger.InfowCtx(ctx, "Server listening", "port", a.config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return a.Shutdown(ctx)
	case err := <-errChan:
		return err
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.InfowCtx(ctx, "Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
		}
	}

	dbErrs := a.dbConnector.ShutdownDatabases(ctx, a.redisClient, a.db)
	errs = append(errs, dbErrs...)

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	a.logger.InfowCtx(ctx, "Server exited successfully")
	return nil
}
