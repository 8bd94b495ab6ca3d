// cmd/assistant/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"rfp-workers/internal/catalog"
	"rfp-workers/internal/common/config"
	"rfp-workers/internal/common/database"
	"rfp-workers/internal/common/genai"
	"rfp-workers/internal/common/logger"
	"rfp-workers/internal/common/observability"
	"rfp-workers/internal/opportunity"
	"rfp-workers/internal/router"
	"rfp-workers/internal/service"
	"rfp-workers/internal/session"
	"rfp-workers/internal/stages/compile"
	"rfp-workers/internal/stages/pricing"
	"rfp-workers/internal/stages/qualify"
	"rfp-workers/internal/stages/technical"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting assistant service...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("assistant")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Redis (session store) with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	sessions := session.NewRedisStore(redis.GetClient(), time.Duration(cfg.Session.TTL)*time.Second)

	// --- Load catalog snapshot ---
	catalogStore, err := loadCatalog(ctx, cfg, zapLog)
	if err != nil {
		zapLog.Fatal("catalog load failed", zap.Error(err))
	}
	zapLog.Info("Catalog loaded",
		zap.Int("products", len(catalogStore.Products())),
		zap.Int("pricedTests", len(catalogStore.TestPricing())),
	)

	// --- Init opportunity source ---
	source, err := buildOpportunitySource(cfg, zapLog)
	if err != nil {
		zapLog.Fatal("opportunity source init failed", zap.Error(err))
	}

	genaiClient := genai.NewClient(cfg.GenAI, log)

	// --- Register workflow stages ---
	r := router.New(log)

	qualifyHandler := qualify.NewHandler(qualify.LoadConfig(cfg), source, genaiClient, log)
	technicalHandler := technical.NewHandler(technical.LoadConfig(), catalogStore, log)
	pricingHandler := pricing.NewHandler(pricing.LoadConfig(cfg), catalogStore, log)
	compileHandler := compile.NewHandler(compile.LoadConfig(cfg), genaiClient, log)

	r.Register(router.StageQualify, qualifyHandler.Execute)
	r.Register(router.StageTechnical, technicalHandler.Execute)
	r.Register(router.StagePricing, pricingHandler.Execute)
	r.Register(router.StageCompile, compileHandler.Execute)

	assistant := service.NewAssistant(sessions, r, obs, log)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      service.NewMux(assistant),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	zapLog.Info("Assistant service stopped gracefully")
}

func loadCatalog(ctx context.Context, cfg *config.Config, zapLog *zap.Logger) (catalog.Store, error) {
	if cfg.Catalog.Source == "postgres" {
		var pg *database.PostgresClient
		err := retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			return nil, err
		}
		defer pg.Close()

		return catalog.LoadFromPostgres(ctx, pg.DB)
	}

	return catalog.LoadFromFiles(cfg.Catalog.ProductsPath, cfg.Catalog.TestPricingPath)
}

func buildOpportunitySource(cfg *config.Config, zapLog *zap.Logger) (opportunity.Source, error) {
	if cfg.Opportunities.Source == "elasticsearch" {
		var esClient *database.ElasticsearchClient
		err := retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			return nil, err
		}
		zapLog.Info("Elasticsearch connected successfully")

		return opportunity.NewElasticsearchSource(esClient.Client, cfg.Opportunities.Index), nil
	}

	return opportunity.NewFileSource(cfg.Opportunities.Path)
}
