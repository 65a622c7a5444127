package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const dedupKeyPrefix = "imagegen:task:"

// Состояния задачи в Redis.
const (
	taskStateProcessing = "processing"
	taskStateDone       = "done"
)

// TaskDeduplicator отмечает задачи, взятые в работу, чтобы повторная доставка не запускала генерацию снова.
type TaskDeduplicator interface {
	// Acquire возвращает false, если задача уже выполнена или выполняется.
	// Для повторной доставки (redelivered) незавершенная задача забирается заново:
	// брокер возвращает неподтвержденное сообщение только после потери прежнего обработчика.
	Acquire(ctx context.Context, taskID string, redelivered bool) (bool, error)
	// Complete отмечает задачу выполненной после публикации результата.
	Complete(ctx context.Context, taskID string) error
	// Release снимает отметку, чтобы задачу можно было выполнить повторно.
	Release(ctx context.Context, taskID string) error
}

// RedisDeduplicator хранит состояние задач в Redis: SETNX "processing" с коротким TTL,
// затем "done" с длинным.
type RedisDeduplicator struct {
	client        redis.Cmdable
	doneTTL       time.Duration
	processingTTL time.Duration
	logger        *zap.Logger
}

var _ TaskDeduplicator = (*RedisDeduplicator)(nil)

// NewRedisDeduplicator создает дедупликатор поверх клиента Redis.
func NewRedisDeduplicator(client redis.Cmdable, doneTTL, processingTTL time.Duration, logger *zap.Logger) *RedisDeduplicator {
	if processingTTL <= 0 || processingTTL > doneTTL {
		processingTTL = doneTTL
	}
	return &RedisDeduplicator{
		client:        client,
		doneTTL:       doneTTL,
		processingTTL: processingTTL,
		logger:        logger.Named("RedisDeduplicator"),
	}
}

func dedupKey(taskID string) string { return dedupKeyPrefix + taskID }

func (d *RedisDeduplicator) Acquire(ctx context.Context, taskID string, redelivered bool) (bool, error) {
	key := dedupKey(taskID)
	log := d.logger.With(zap.String("task_id", taskID))

	ok, err := d.client.SetNX(ctx, key, taskStateProcessing, d.processingTTL).Result()
	if err != nil {
		log.Error("Failed to acquire task key", zap.Error(err))
		return false, fmt.Errorf("redis setnx for task %s: %w", taskID, err)
	}
	if ok {
		return true, nil
	}

	state, err := d.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// Ключ истек между командами
		ok, err = d.client.SetNX(ctx, key, taskStateProcessing, d.processingTTL).Result()
		if err != nil {
			return false, fmt.Errorf("redis setnx for task %s: %w", taskID, err)
		}
		return ok, nil
	}
	if err != nil {
		log.Error("Failed to read task state", zap.Error(err))
		return false, fmt.Errorf("redis get for task %s: %w", taskID, err)
	}

	if state == taskStateProcessing && redelivered {
		log.Warn("Taking over unfinished task after redelivery")
		if err := d.client.Set(ctx, key, taskStateProcessing, d.processingTTL).Err(); err != nil {
			return false, fmt.Errorf("redis set for task %s: %w", taskID, err)
		}
		return true, nil
	}
	return false, nil
}

func (d *RedisDeduplicator) Complete(ctx context.Context, taskID string) error {
	if err := d.client.Set(ctx, dedupKey(taskID), taskStateDone, d.doneTTL).Err(); err != nil {
		d.logger.Error("Failed to mark task done", zap.String("task_id", taskID), zap.Error(err))
		return fmt.Errorf("redis set for task %s: %w", taskID, err)
	}
	return nil
}

func (d *RedisDeduplicator) Release(ctx context.Context, taskID string) error {
	if err := d.client.Del(ctx, dedupKey(taskID)).Err(); err != nil {
		d.logger.Error("Failed to release task key", zap.String("task_id", taskID), zap.Error(err))
		return fmt.Errorf("redis del for task %s: %w", taskID, err)
	}
	return nil
}

// NewRedisClient разбирает URL и проверяет соединение несколькими попытками.
func NewRedisClient(ctx context.Context, url string, attempts int, delay time.Duration, logger *zap.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		client := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			logger.Info("Successfully connected and pinged Redis", zap.String("address", opts.Addr), zap.Int("attempt", i+1))
			return client, nil
		}
		_ = client.Close()
		lastErr = err
		logger.Warn("Redis ping failed, retrying...", zap.Int("attempt", i+1), zap.Int("max_retries", attempts), zap.Error(err))
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("unable to ping redis after %d attempts: %w", attempts, lastErr)
}
