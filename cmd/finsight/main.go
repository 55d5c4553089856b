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

	"github.com/finsight/finsight-go/internal/config"
	"github.com/finsight/finsight-go/internal/handler"
	"github.com/finsight/finsight-go/internal/infra/cache"
	"github.com/finsight/finsight-go/internal/infra/insight"
	"github.com/finsight/finsight-go/internal/infra/observability"
	"github.com/finsight/finsight-go/internal/infra/resilience"
	"github.com/finsight/finsight-go/internal/service"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("pipeline_file", cfg.PipelineFile),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("retry_attempts", cfg.RetryAttempts),
		zap.Duration("retry_base_delay", cfg.RetryBaseDelay),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
	)

	// --- Pipeline options ---
	pipeline, err := config.LoadPipeline(cfg.PipelineFile)
	if err != nil {
		logger.Fatal("failed to load pipeline config", zap.Error(err))
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "finsight")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	queryCache := cache.New[any](cfg.CacheTTL)

	// --- Resilience ---
	retryPolicy := resilience.RetryPolicy{
		Attempts:  cfg.RetryAttempts,
		BaseDelay: cfg.RetryBaseDelay,
		MaxDelay:  cfg.RetryMaxDelay,
	}
	cb := resilience.NewBreaker("insight-api", logger)
	uploadBulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	insightClient := insight.NewClient(httpClient, cfg.InsightAPIURL, cb, retryPolicy)

	// --- Services ---
	reconciler := service.NewReconciler(pipeline, uploadBulkhead, queryCache, metrics, logger)
	insightSvc := service.NewInsight(reconciler, insightClient, metrics, logger)

	// --- Router ---
	router := handler.NewRouter(reconciler, insightSvc, metrics, logger, cfg.MaxUploadBytes)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
