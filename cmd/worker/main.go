package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"imagegen-server/internal/app"
	"imagegen-server/internal/config"
	"imagegen-server/internal/logger"
	"imagegen-server/internal/messaging"
	"imagegen-server/internal/worker"
)

const (
	maxReconnectAttempts = 5
	reconnectDelay       = 5 * time.Second
	taskTimeout          = 10 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.MustNew(cfg.Logger)
	defer appLogger.Sync()
	appLogger.Info("Starting Image Generation Worker...", zap.String("env", cfg.AppEnv))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := app.SetupDatabase(ctx, cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to set up database", zap.Error(err))
	}
	defer pool.Close()

	tool, err := app.NewTool(ctx, cfg, pool, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize image generation tool", zap.Error(err))
	}

	metrics := worker.NewMetrics()
	opts := []worker.Option{
		worker.WithTaskTimeout(taskTimeout),
		worker.WithPusher(worker.NewPusher(cfg.PushGatewayURL, metrics.Registry, appLogger)),
	}
	if cfg.Redis.URL != "" {
		rdb, err := worker.NewRedisClient(ctx, cfg.Redis.URL, 5, 3*time.Second, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer rdb.Close()
		opts = append(opts, worker.WithDeduplicator(worker.NewRedisDeduplicator(rdb, cfg.Redis.DedupTTL, cfg.Redis.ProcessingTTL, appLogger)))
	} else {
		appLogger.Info("REDIS_URL is empty, task deduplication disabled")
	}

	runConsumerLoop(ctx, cfg, tool, metrics, opts, appLogger)
	appLogger.Info("Image Generation Worker shut down gracefully")
}

// runConsumerLoop держит соединение с RabbitMQ и переподключается при его разрыве.
func runConsumerLoop(ctx context.Context, cfg *config.Config, tool worker.ImageExecutor, metrics *worker.Metrics, opts []worker.Option, logger *zap.Logger) {
	for ctx.Err() == nil {
		conn, err := messaging.Dial(ctx, cfg.RabbitMQ.URL, maxReconnectAttempts, reconnectDelay, logger)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Fatal("Max reconnect attempts reached, shutting down", zap.Error(err))
		}

		publisher, err := messaging.NewRabbitMQPublisher(conn, cfg.RabbitMQ.ResultExchange, cfg.RabbitMQ.ResultQueueName, logger)
		if err != nil {
			logger.Error("Failed to create RabbitMQ result publisher", zap.Error(err))
			conn.Close()
			sleepCtx(ctx, reconnectDelay)
			continue
		}

		handler, err := worker.NewHandler(logger, tool, publisher, metrics, opts...)
		if err != nil {
			logger.Fatal("Failed to create message handler", zap.Error(err))
		}

		consumer := messaging.NewConsumer(conn, cfg.RabbitMQ.TaskQueue, cfg.RabbitMQ.ConsumerName, handler, logger)
		runErr := consumer.Run(ctx)

		_ = publisher.Close()
		_ = conn.Close()

		if runErr != nil {
			logger.Warn("Consumer stopped, reconnecting", zap.Error(runErr))
			sleepCtx(ctx, reconnectDelay)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
