package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appenrich "github.com/ordersync/backend/internal/application/enrich"
	"github.com/ordersync/backend/internal/application/costing"
	"github.com/ordersync/backend/internal/application/mapping"
	"github.com/ordersync/backend/internal/application/matching"
	"github.com/ordersync/backend/internal/application/reconcile"
	appsync "github.com/ordersync/backend/internal/application/sync"
	"github.com/ordersync/backend/internal/infrastructure/config"
	"github.com/ordersync/backend/internal/infrastructure/coordination"
	"github.com/ordersync/backend/internal/infrastructure/logger"
	"github.com/ordersync/backend/internal/infrastructure/marketplace"
	"github.com/ordersync/backend/internal/infrastructure/persistence"
	"github.com/ordersync/backend/internal/interfaces/http/handler"
	"github.com/ordersync/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	// Database
	gormLogger := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLogger)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("Database close failed", zap.Error(err))
		}
	}()

	// Coordination substrate (Redis, or in-process fallback outside production)
	substrate, err := coordination.NewSubstrate(coordination.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Redis.AllowInMemoryFallback, log)
	if err != nil {
		log.Fatal("Failed to initialize coordination substrate", zap.Error(err))
	}

	// Upstream marketplace client
	client, err := marketplace.NewClient(&marketplace.Config{
		AppKey:         cfg.Marketplace.AppKey,
		AppSecret:      cfg.Marketplace.AppSecret,
		AccessToken:    cfg.Marketplace.AccessToken,
		ShopID:         cfg.Marketplace.ShopID,
		APIBaseURL:     cfg.Marketplace.APIBaseURL,
		IsSandbox:      cfg.Marketplace.IsSandbox,
		TimeoutSeconds: cfg.Marketplace.TimeoutSeconds,
	})
	if err != nil {
		log.Fatal("Failed to initialize marketplace client", zap.Error(err))
	}

	// Repositories
	rawOrders := persistence.NewRawOrderRecordRepository(db)
	rawProducts := persistence.NewRawProductRecordRepository(db)
	catalogEntries := persistence.NewCatalogEntryRepository(db)
	costEntries := persistence.NewCostEntryRepository(db)
	orderLines := persistence.NewOrderLineRepository(db)
	enrichTasks := persistence.NewEnrichmentTaskRepository(db)
	syncStates := persistence.NewSyncStateRepository(db)

	// Application services
	mapper := mapping.NewFieldMapper()
	matcher := matching.NewProductMatcher(catalogEntries, log)
	ledger := costing.NewCostLedger(costEntries, log)
	engine := reconcile.NewEngine(rawOrders, rawProducts, orderLines, catalogEntries, mapper, matcher, ledger, log)

	enrichQueue := appenrich.NewQueue(enrichTasks, orderLines, substrate.Lock, substrate.Queue, appenrich.Config{
		MaxRetries:     cfg.Enrichment.MaxRetries,
		LockTTL:        cfg.Enrichment.LockTTL,
		BatchSize:      cfg.Enrichment.BatchSize,
		MaxConcurrency: cfg.Enrichment.MaxConcurrency,
	}, log)
	drainer := appenrich.NewDrainer(enrichQueue, client, log)

	orchestrator := appsync.NewOrchestrator(client, engine, syncStates, db, enrichQueue, appsync.Config{
		PageSize:        cfg.Sync.PageSize,
		BatchSize:       cfg.Sync.BatchSize,
		DefaultLookback: cfg.Sync.DefaultLookback,
	}, log)

	// HTTP layer
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = os.Stdout
	engineHTTP := gin.New()
	engineHTTP.Use(gin.Recovery())

	healthHandler := handler.NewHealthHandler(db)
	engineHTTP.GET("/healthz", healthHandler.Health)

	r := router.NewRouter(engineHTTP)
	r.Register(handler.NewSyncHandler(orchestrator, drainer, log))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engineHTTP,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
