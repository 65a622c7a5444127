// Package app собирает общие зависимости бинарников: БД, хранилище и инструмент генерации.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"imagegen-server/internal/config"
	"imagegen-server/internal/database"
	"imagegen-server/internal/imagegen"
	"imagegen-server/internal/models"
	"imagegen-server/internal/resource"
	"imagegen-server/internal/stability"
	"imagegen-server/internal/storage"
)

// SetupDatabase применяет миграции и открывает пул соединений.
func SetupDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	pool, err := database.NewPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := database.ApplyMigrations(cfg.URL, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return pool, nil
}

// NewUploader возвращает S3 загрузчик для STORAGE_TYPE=S3 и NopUploader иначе.
func NewUploader(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Uploader, error) {
	if cfg.StorageType() != models.StorageTypeS3 {
		return storage.NopUploader{}, nil
	}
	client, err := storage.NewS3Client(ctx, cfg.S3)
	if err != nil {
		return nil, err
	}
	return storage.NewS3Uploader(client, cfg.S3.Bucket, logger)
}

// NewTool собирает инструмент генерации поверх пула БД.
func NewTool(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *zap.Logger) (*imagegen.Tool, error) {
	client, err := stability.NewClient(cfg.Stability, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Stability client: %w", err)
	}
	if cfg.Stability.APIKey == "" {
		logger.Warn("Stability API key is not configured, generation requests will fail")
	}

	uploader, err := NewUploader(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create uploader: %w", err)
	}

	helper := resource.NewHelper(cfg.StorageType(), cfg.Resources.OutputRootDir)
	repo := database.NewPgResourceRepository(pool, logger)

	return imagegen.NewTool(client, helper, repo, uploader, cfg.Stability.APIKey, logger)
}
