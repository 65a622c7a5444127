package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"imagegen-server/internal/imagegen"
	"imagegen-server/internal/messaging"
	"imagegen-server/internal/models"
	"imagegen-server/internal/stability"
)

// ImageExecutor - часть imagegen.Tool, нужная обработчику.
type ImageExecutor interface {
	Execute(ctx context.Context, params imagegen.GenerateParams) (*imagegen.Result, error)
}

// Handler обрабатывает сообщения с задачами генерации.
type Handler struct {
	logger          *zap.Logger
	tool            ImageExecutor
	resultPublisher messaging.Publisher
	dedup           TaskDeduplicator // nil - дедупликация отключена
	metrics         *Metrics
	pusher          MetricsPusher // nil - метрики не пушатся
	taskTimeout     time.Duration
}

// Option настраивает Handler.
type Option func(*Handler)

// WithDeduplicator включает дедупликацию задач по taskId.
func WithDeduplicator(d TaskDeduplicator) Option {
	return func(h *Handler) { h.dedup = d }
}

// WithPusher включает отправку метрик после каждого сообщения.
func WithPusher(p MetricsPusher) Option {
	return func(h *Handler) { h.pusher = p }
}

// WithTaskTimeout ограничивает время обработки одной задачи.
func WithTaskTimeout(d time.Duration) Option {
	return func(h *Handler) { h.taskTimeout = d }
}

// NewHandler создает обработчик.
func NewHandler(logger *zap.Logger, tool ImageExecutor, resultPublisher messaging.Publisher, metrics *Metrics, opts ...Option) (*Handler, error) {
	if tool == nil {
		return nil, errors.New("image tool cannot be nil")
	}
	if resultPublisher == nil {
		return nil, errors.New("result publisher cannot be nil")
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	h := &Handler{
		logger:          logger.Named("TaskHandler"),
		tool:            tool,
		resultPublisher: resultPublisher,
		metrics:         metrics,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// HandleDelivery обрабатывает одно сообщение. Возвращает true, если его нужно подтвердить (ack).
func (h *Handler) HandleDelivery(ctx context.Context, msg amqp091.Delivery) bool {
	defer h.pushMetrics()

	var task messaging.ImageTaskPayload
	if err := json.Unmarshal(msg.Body, &task); err != nil {
		h.logger.Error("Failed to unmarshal task payload",
			zap.Error(err),
			zap.String("correlation_id", msg.CorrelationId),
			zap.ByteString("body", msg.Body))
		h.metrics.tasksProcessed.WithLabelValues(statusErrorUnmarshal).Inc()
		return false
	}
	if task.TaskID == "" {
		task.TaskID = uuid.NewString()
	}
	correlationID := msg.CorrelationId
	if correlationID == "" {
		correlationID = task.TaskID
	}

	log := h.logger.With(zap.String("task_id", task.TaskID), zap.String("correlation_id", correlationID))
	if task.AgentID != "" {
		log = log.With(zap.String("agent_id", task.AgentID))
	}
	log.Info("Received image generation task", zap.Int("image_names", len(task.ImageNames)))

	if h.dedup != nil {
		acquired, err := h.dedup.Acquire(ctx, task.TaskID, msg.Redelivered)
		if err != nil {
			// Redis недоступен: обрабатываем без дедупликации
			log.Warn("Task deduplication unavailable, processing anyway", zap.Error(err))
		} else if !acquired {
			log.Info("Duplicate task delivery skipped")
			h.metrics.tasksProcessed.WithLabelValues(statusDuplicate).Inc()
			return true
		}
	}

	taskCtx := ctx
	if h.taskTimeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, h.taskTimeout)
		defer cancel()
	}

	start := time.Now()
	result, execErr := h.tool.Execute(taskCtx, task.GenerateParams())
	h.metrics.taskDuration.Observe(time.Since(start).Seconds())

	payload := messaging.ImageResultPayload{
		TaskID:  task.TaskID,
		AgentID: task.AgentID,
	}
	status := statusSuccess
	if execErr != nil {
		status = classifyError(execErr)
		if status == statusErrorAPI {
			h.metrics.apiErrors.Inc()
		}
		log.Error("Image generation task failed", zap.String("status", status), zap.Error(execErr))
		payload.Status = messaging.ResultStatusError
		payload.ErrorDetails = execErr.Error()
	} else {
		payload.Status = messaging.ResultStatusSuccess
		payload.Message = result.Message
		payload.Resources = messaging.NewResourceDTOs(result.Resources)
		h.metrics.imagesSaved.Add(float64(len(result.Resources)))
		log.Info("Image generation task completed", zap.Int("resources", len(result.Resources)))
	}

	if err := h.resultPublisher.Publish(ctx, payload, correlationID); err != nil {
		log.Error("Failed to publish task result", zap.Error(err))
		h.metrics.publishErrors.Inc()
		h.metrics.tasksProcessed.WithLabelValues(statusErrorPublish).Inc()
		h.release(ctx, log, task.TaskID)
		return false
	}

	h.complete(ctx, log, task.TaskID)
	h.metrics.tasksProcessed.WithLabelValues(status).Inc()
	return true
}

// Отметки в Redis меняются и после отмены ctx (остановка воркера), иначе задача останется "в работе".
func (h *Handler) complete(ctx context.Context, log *zap.Logger, taskID string) {
	if h.dedup == nil {
		return
	}
	if err := h.dedup.Complete(context.WithoutCancel(ctx), taskID); err != nil {
		log.Warn("Failed to mark task as done", zap.Error(err))
	}
}

func (h *Handler) release(ctx context.Context, log *zap.Logger, taskID string) {
	if h.dedup == nil {
		return
	}
	if err := h.dedup.Release(context.WithoutCancel(ctx), taskID); err != nil {
		log.Warn("Failed to release task for redelivery", zap.Error(err))
	}
}

func (h *Handler) pushMetrics() {
	if h.pusher == nil {
		return
	}
	if err := h.pusher.Push(); err != nil {
		h.logger.Error("Failed to push metrics to Pushgateway", zap.Error(err))
	}
}

func classifyError(err error) string {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return statusErrorValidation
	case errors.Is(err, stability.ErrNon200Response),
		errors.Is(err, stability.ErrMissingAPIKey),
		errors.Is(err, stability.ErrMalformedResponse):
		return statusErrorAPI
	case errors.Is(err, imagegen.ErrImageSaveFailed),
		errors.Is(err, imagegen.ErrUploadFailed):
		return statusErrorStorage
	default:
		return statusErrorGeneration
	}
}
