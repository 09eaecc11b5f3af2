package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	_ "github.com/lib/pq" // PostgreSQL driver

	"dealflow/internal/broker"
	"dealflow/internal/config"
	"dealflow/internal/constants"
	"dealflow/internal/extractor"
	"dealflow/internal/logger"
	"dealflow/internal/publisher"
	"dealflow/internal/queue"
	"dealflow/internal/store"
	"dealflow/internal/worker"
	"dealflow/pkg/bootstrap"
	"dealflow/pkg/circuitbreaker"
	"dealflow/pkg/health"
	"dealflow/pkg/metrics"
	"dealflow/pkg/migrations"
)

type App struct {
	config      *config.Config
	logger      logger.Logger
	dbConnector *bootstrap.DatabaseConnector
	db          *sql.DB
	redisClient *redis.Client
	dealQueue   queue.Queue
	events      broker.Producer
	worker      *worker.Worker
	server      *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		config:      cfg,
		logger:      log,
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.db = db

	if a.config.Database.RunMigrations {
		if err := migrations.Run(a.db, a.config.Database.Postgres.DBName); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		a.logger.Info("Database migrations applied")
	}

	if a.config.Queue.Type == "redis" {
		rdb, err := a.dbConnector.InitRedis(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize redis: %w", err)
		}
		a.redisClient = rdb
	}

	q, err := queue.New(a.config.Queue, a.redisClient, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize queue: %w", err)
	}
	a.dealQueue = q

	events, err := broker.NewProducer(a.config.Broker, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize event producer: %w", err)
	}
	a.events = events

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

	a.worker = worker.New(
		a.dealQueue,
		worker.StoreAdapter{Store: store.New(a.db)},
		extractorSvc,
		publisherSvc,
		a.events,
		a.config.Worker,
		a.config.Broker.Kafka,
		a.logger,
	)

	metrics.RegisterPipelineMetrics()
	metrics.RegisterCircuitBreakerMetrics()

	a.initServer()
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

// initServer exposes health and metrics only; the worker has no public API.
func (a *App) initServer() {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

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

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Server.Port),
		Handler: router,
	}
}

func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := a.worker.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		a.logger.InfowCtx(gctx, "Worker admin server listening", "port", a.config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.Shutdown(gctx)
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.InfowCtx(ctx, "Shutting down worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
		}
	}

	if a.events != nil {
		if err := a.events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("event producer close error: %w", err))
		}
	}

	dbErrs := a.dbConnector.ShutdownDatabases(ctx, a.redisClient, a.db)
	errs = append(errs, dbErrs...)

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	a.logger.InfowCtx(ctx, "Worker exited successfully")
	return nil
}
