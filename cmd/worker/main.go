package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kirillkom/graphrag-assistant/internal/bootstrap"
	"github.com/kirillkom/graphrag-assistant/internal/config"
	"github.com/kirillkom/graphrag-assistant/internal/core/domain"
	"github.com/kirillkom/graphrag-assistant/internal/core/usecase"
	"github.com/kirillkom/graphrag-assistant/internal/observability/logging"
	"github.com/kirillkom/graphrag-assistant/internal/observability/metrics"
)

const (
	serviceName      = "worker"
	chunkProcessTime = 2 * time.Minute
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.RoleWorker, logger,
		bootstrap.WithProcessOptions(usecase.WithLinkedHook(func(_ domain.ChunkInput, entities domain.ExtractedEntities) {
			workerMetrics.RecordEntitiesLinked(serviceName, entities.CountByType())
		})),
		bootstrap.WithBreakerObserver(workerMetrics.RecordBreakerState),
	)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject, "vector_backend", cfg.VectorBackend)
	err = app.Queue.SubscribeChunks(ctx, func(handlerCtx context.Context, chunk domain.ChunkInput) error {
		if !chunk.QueuedAt.IsZero() {
			workerMetrics.ObserveQueueLag(serviceName, time.Since(chunk.QueuedAt))
		}
		processCtx, cancel := context.WithTimeout(handlerCtx, chunkProcessTime)
		defer cancel()

		workerMetrics.StartChunk()
		started := time.Now()
		err := app.ProcessUC.ProcessChunk(processCtx, chunk)
		workerMetrics.FinishChunk(serviceName, time.Since(started), err)
		return err
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
	}
}
