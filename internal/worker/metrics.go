package worker

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

// Статусы для метрики tasks_processed_total.
const (
	statusSuccess         = "success"
	statusDuplicate       = "duplicate"
	statusErrorUnmarshal  = "error_unmarshal"
	statusErrorValidation = "error_validation"
	statusErrorAPI        = "error_api"
	statusErrorStorage    = "error_storage"
	statusErrorGeneration = "error_generation"
	statusErrorPublish    = "error_publish"
)

// Metrics - метрики воркера на собственном реестре.
type Metrics struct {
	Registry *prometheus.Registry

	tasksProcessed *prometheus.CounterVec
	taskDuration   prometheus.Histogram
	imagesSaved    prometheus.Counter
	apiErrors      prometheus.Counter
	publishErrors  prometheus.Counter
}

// NewMetrics регистрирует метрики в новом реестре.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		tasksProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "imagegen_worker_tasks_processed_total",
			Help: "Total number of image generation tasks processed.",
		}, []string{"status"}),
		taskDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "imagegen_worker_task_duration_seconds",
			Help:    "Duration of image generation task processing.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		imagesSaved: factory.NewCounter(prometheus.CounterOpts{
			Name: "imagegen_worker_images_saved_total",
			Help: "Total number of generated images stored as resources.",
		}),
		apiErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "imagegen_worker_stability_api_errors_total",
			Help: "Total number of errors calling the Stability API.",
		}),
		publishErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "imagegen_worker_publish_result_errors_total",
			Help: "Total number of errors publishing task results.",
		}),
	}
}

// MetricsPusher отправляет метрики в Pushgateway.
type MetricsPusher interface {
	Push() error
}

// NewPusher создает pusher для реестра. Пустой URL - nil.
func NewPusher(url string, reg prometheus.Gatherer, logger *zap.Logger) MetricsPusher {
	if url == "" {
		return nil
	}
	hostname, _ := os.Hostname()
	logger.Info("Prometheus Pusher initialized", zap.String("url", url), zap.String("instance", hostname))
	return push.New(url, "imagegen-worker").
		Grouping("instance", hostname).
		Gatherer(reg)
}
