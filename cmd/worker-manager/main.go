// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"rfp-workers/internal/catalog"
	"rfp-workers/internal/common/camunda"
	"rfp-workers/internal/common/config"
	"rfp-workers/internal/common/database"
	"rfp-workers/internal/common/genai"
	"rfp-workers/internal/common/logger"
	"rfp-workers/internal/common/observability"
	"rfp-workers/internal/opportunity"
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

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	if !cfg.Camunda.Enabled {
		zapLog.Fatal("camunda is disabled; the worker manager requires camunda.enabled=true")
	}

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebeClient zbc.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

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

	// --- Register the four stage workers ---
	var workers []*camunda.CamundaWorker

	if config.IsWorkerEnabled(cfg, qualify.TaskType) {
		handler := qualify.NewHandler(qualify.LoadConfig(cfg), source, genaiClient, log)
		wcfg := config.GetWorkerConfig(cfg, qualify.TaskType)
		workers = append(workers,
			camunda.NewWorker(zeebeClient, qualify.TaskType, wcfg.MaxJobsActive, handler, zapLog))
	}

	if config.IsWorkerEnabled(cfg, technical.TaskType) {
		handler := technical.NewHandler(technical.LoadConfig(), catalogStore, log)
		wcfg := config.GetWorkerConfig(cfg, technical.TaskType)
		workers = append(workers,
			camunda.NewWorker(zeebeClient, technical.TaskType, wcfg.MaxJobsActive, handler, zapLog))
	}

	if config.IsWorkerEnabled(cfg, pricing.TaskType) {
		handler := pricing.NewHandler(pricing.LoadConfig(cfg), catalogStore, log)
		wcfg := config.GetWorkerConfig(cfg, pricing.TaskType)
		workers = append(workers,
			camunda.NewWorker(zeebeClient, pricing.TaskType, wcfg.MaxJobsActive, handler, zapLog))
	}

	if config.IsWorkerEnabled(cfg, compile.TaskType) {
		handler := compile.NewHandler(compile.LoadConfig(cfg), genaiClient, log)
		wcfg := config.GetWorkerConfig(cfg, compile.TaskType)
		workers = append(workers,
			camunda.NewWorker(zeebeClient, compile.TaskType, wcfg.MaxJobsActive, handler, zapLog))
	}

	zapLog.Info("Stage workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Server.MetricsAddress))
		if err := http.ListenAndServe(cfg.Server.MetricsAddress, nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop(shutdownCtx)
	}

	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
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
