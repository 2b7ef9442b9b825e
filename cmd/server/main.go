package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/application/replenishment"
	"github.com/erp/stockledger/internal/domain/forecast"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/infrastructure/cache"
	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/erp/stockledger/internal/infrastructure/event"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/erp/stockledger/internal/infrastructure/persistence"
	"github.com/erp/stockledger/internal/infrastructure/scheduler"
	"github.com/erp/stockledger/internal/infrastructure/telemetry"
	"github.com/erp/stockledger/internal/interfaces/http/handler"
	"github.com/erp/stockledger/internal/interfaces/http/middleware"
	"github.com/erp/stockledger/internal/interfaces/http/router"
)

//	@title			Stock Ledger API
//	@version		1.0
//	@description	Batch-level stock ledger with expiry tracking and adaptive reorder points
//	@BasePath		/api/v1

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// OTLP log export needs a logger to report its own setup, so the final
	// logger is rebuilt once the provider exists
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	if logProvider.IsEnabled() {
		log, err = logger.New(logCfg, logProvider.ZapCore(cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level)))
		if err != nil {
			panic("Failed to initialize logger: " + err.Error())
		}
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting stock ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.ExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingServer,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Database.LogLevel),
		logger.WithSlowThreshold(cfg.Database.SlowThreshold))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected")

	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTracing
	dbTracing.DBName = cfg.Database.DBName
	dbTracing.SlowQueryThresh = cfg.Database.SlowThreshold
	if err := telemetry.NewDBTracingPlugin(dbTracing, log).Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// Repositories
	batchRepo := persistence.NewGormBatchRepository(db.DB)
	stockRepo := persistence.NewGormStockRecordRepository(db.DB)
	disposalRepo := persistence.NewGormDisposalRepository(db.DB)
	salesReader := persistence.NewGormSalesHistoryReader(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Application services
	batchService := inventoryapp.NewBatchService(batchRepo, stockRepo, txScope, log)
	expiryService := inventoryapp.NewExpiryService(batchRepo, disposalRepo, txScope, inventory.ExpiryThresholds{
		SoonDays: cfg.Expiry.SoonDays,
		NearDays: cfg.Expiry.NearDays,
	}, log)
	replenishmentService := replenishment.NewService(salesReader, stockRepo, txScope, replenishment.Config{
		Defaults: forecast.Config{
			LookbackDays:     cfg.Forecast.LookbackDays,
			LeadTimeDays:     cfg.Forecast.LeadTimeDays,
			SafetyMultiplier: cfg.Forecast.SafetyMultiplier,
			Floor:            cfg.Forecast.Floor,
			Seasonal:         cfg.Forecast.Seasonal,
		},
		Concurrency: cfg.Replenishment.Concurrency,
	}, log)

	// Forecast cache
	var forecastStore cache.ForecastStore
	if cfg.Redis.Host != "" {
		forecastStore, err = cache.NewForecastCacheFactory(cfg.Redis, cfg.Replenishment.CacheTTL,
			cache.WithLogger(log)).CreateStore(ctx)
		if err != nil {
			log.Fatal("Failed to create forecast cache", zap.Error(err))
		}
	} else {
		forecastStore = cache.NewInMemoryForecastCache(cfg.Replenishment.CacheTTL)
		log.Info("Redis not configured, using in-memory forecast cache")
	}
	replenishmentService.SetCache(forecastStore)

	// Event bus and metrics
	eventBus := event.NewInMemoryEventBus(log)
	ledgerMetrics, err := telemetry.NewLedgerMetrics(meterProvider.Meter("stockledger.ledger"), log)
	if err != nil {
		log.Fatal("Failed to create ledger metrics", zap.Error(err))
	}
	eventBus.Subscribe(ledgerMetrics)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	log.Info("Event handlers registered", zap.Strings("ledger_metrics_events", ledgerMetrics.EventTypes()))

	batchService.SetEventPublisher(eventBus)
	expiryService.SetEventPublisher(eventBus)
	replenishmentService.SetEventPublisher(eventBus)
	replenishmentService.SetRecorder(ledgerMetrics)

	// Background sweeps
	var (
		jobScheduler *scheduler.Scheduler
		cronTrigger  *scheduler.CronTrigger
		sweepTrigger handler.SweepTrigger
	)
	if cfg.Scheduler.Enabled {
		executor := scheduler.NewLedgerExecutor(expiryService, replenishmentService, cfg.Replenishment.AutoApply, log)
		jobScheduler = scheduler.NewScheduler(scheduler.Config{JobTimeout: cfg.Scheduler.JobTimeout}, executor, log)
		if err := jobScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}

		cronTrigger = scheduler.NewCronTrigger(scheduler.TriggerConfig{
			ExpiryInterval: cfg.Scheduler.ExpiryInterval,
			ReorderHour:    cfg.Scheduler.ReorderHour,
			ReorderMinute:  cfg.Scheduler.ReorderMinute,
			CheckInterval:  cfg.Scheduler.CheckInterval,
		}, jobScheduler, log)
		if err := cronTrigger.Start(ctx); err != nil {
			log.Fatal("Failed to start cron trigger", zap.Error(err))
		}
		sweepTrigger = cronTrigger
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSOrigins

	tracing := middleware.DefaultTracingConfig()
	tracing.ServiceName = cfg.Telemetry.ServiceName
	tracing.Enabled = tracerProvider.IsEnabled()

	engine := router.NewEngine(router.EngineConfig{
		Logger:      log,
		CORS:        cors,
		MaxBodySize: cfg.HTTP.MaxBodySize,
		Tracing:     tracing,
		Meter:       meterProvider,
		Profiling:   profiler.IsEnabled(),
	})

	var limiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitRequests > 0 {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		limiter.Start(cfg.HTTP.RateLimitWindow)
		log.Info("Rate limiting enabled for sweeps and bulk recalculation",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	router.Register(engine, router.Handlers{
		Batch:         handler.NewBatchHandler(batchService),
		Expiry:        handler.NewExpiryHandler(expiryService),
		Replenishment: handler.NewReplenishmentHandler(replenishmentService, cfg.Replenishment.AutoApply),
		System: handler.NewSystemHandler(map[string]handler.HealthCheck{
			"database": db.Check,
		}, sweepTrigger),
	}, limiter)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if limiter != nil {
		limiter.Stop()
	}
	if cronTrigger != nil {
		if err := cronTrigger.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping cron trigger", zap.Error(err))
		}
	}
	if jobScheduler != nil {
		if err := jobScheduler.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping scheduler", zap.Error(err))
		}
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := forecastStore.Close(); err != nil {
		log.Error("Error closing forecast cache", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
	if err := logProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down log provider", zap.Error(err))
	}
}
