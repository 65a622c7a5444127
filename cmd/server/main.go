package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"imagegen-server/internal/api"
	"imagegen-server/internal/app"
	"imagegen-server/internal/config"
	"imagegen-server/internal/database"
	"imagegen-server/internal/logger"
	"imagegen-server/internal/messaging"
	"imagegen-server/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.MustNew(cfg.Logger)
	defer appLogger.Sync()
	appLogger.Info("Starting Image Generation API...", zap.String("env", cfg.AppEnv), zap.String("port", cfg.HTTP.Port))

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

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

	// Асинхронные задачи доступны, только если есть брокер
	var taskPublisher messaging.Publisher
	var conn *amqp091.Connection
	if cfg.RabbitMQ.URL != "" {
		conn, err = messaging.Dial(ctx, cfg.RabbitMQ.URL, 3, 2*time.Second, appLogger)
		if err != nil {
			appLogger.Warn("RabbitMQ unavailable, async image tasks disabled", zap.Error(err))
		} else {
			p, err := messaging.NewRabbitMQPublisher(conn, "", cfg.RabbitMQ.TaskQueue.Name, appLogger)
			if err != nil {
				appLogger.Warn("Failed to create task publisher, async image tasks disabled", zap.Error(err))
			} else {
				defer p.Close()
				taskPublisher = p
			}
		}
	}
	if conn != nil {
		defer conn.Close()
	}

	routerCfg := api.RouterConfig{
		AllowedOrigins: cfg.HTTP.AllowedOrigins(),
		EnableMetrics:  true,
		EnableSwagger:  cfg.HTTP.EnableSwagger,
	}
	if cfg.HTTP.RateLimit > 0 {
		var rdb *redis.Client
		if cfg.Redis.URL != "" {
			rdb, err = worker.NewRedisClient(ctx, cfg.Redis.URL, 3, 2*time.Second, appLogger)
			if err != nil {
				appLogger.Warn("Redis unavailable, falling back to in-memory rate limit store", zap.Error(err))
				rdb = nil
			} else {
				defer rdb.Close()
			}
		}
		store := api.NewRateLimitStore(rdb, cfg.HTTP.RateLimit, cfg.HTTP.RateLimitWindow)
		routerCfg.RateLimiter = api.RateLimitMiddleware(store, appLogger)
	}
	if cfg.InterServiceJWTSecret != "" {
		verifier, err := api.NewJWTVerifier(cfg.InterServiceJWTSecret, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to create JWT verifier", zap.Error(err))
		}
		routerCfg.Verifier = verifier
	} else {
		appLogger.Warn("INTER_SERVICE_JWT_SECRET is empty, API is not protected")
	}

	handler := api.NewHandler(tool, database.NewPgResourceRepository(pool, appLogger), taskPublisher, appLogger)
	router := api.NewRouter(routerCfg, handler, appLogger)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	appLogger.Info("Server exited properly")
}
