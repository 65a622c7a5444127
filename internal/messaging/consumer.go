package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"imagegen-server/internal/config"
)

// DeliveryHandler обрабатывает одно сообщение. true - ack, false - nack.
type DeliveryHandler interface {
	HandleDelivery(ctx context.Context, msg amqp091.Delivery) bool
}

// Acknowledger - подтверждение доставки, выделено для тестов.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Consumer читает очередь задач по одному сообщению (QoS 1) с ручным подтверждением.
type Consumer struct {
	conn         *amqp091.Connection
	queue        config.QueueConfig
	consumerName string
	handler      DeliveryHandler
	logger       *zap.Logger
}

// NewConsumer создает консьюмера очереди задач.
func NewConsumer(conn *amqp091.Connection, queue config.QueueConfig, consumerName string, handler DeliveryHandler, logger *zap.Logger) *Consumer {
	return &Consumer{
		conn:         conn,
		queue:        queue,
		consumerName: consumerName,
		handler:      handler,
		logger:       logger.Named("Consumer").With(zap.String("queue", queue.Name)),
	}
}

// Run блокируется до отмены ctx или закрытия канала брокером.
// Возвращает nil при отмене ctx.
func (c *Consumer) Run(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open RabbitMQ channel for consumer: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		c.queue.Name,
		c.queue.Durable,
		c.queue.AutoDelete,
		c.queue.Exclusive,
		c.queue.NoWait,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare task queue %s: %w", c.queue.Name, err)
	}
	c.logger.Info("Task queue declared", zap.Int("messages", q.Messages), zap.Int("consumers", q.Consumers))

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		c.consumerName,
		false, // auto-ack
		c.queue.Exclusive,
		false, // no-local
		c.queue.NoWait,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer on %s: %w", q.Name, err)
	}

	c.logger.Info("Consumer started, waiting for messages...")
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warn("Consumer channel closed by RabbitMQ")
				return fmt.Errorf("consumer channel for %s closed", q.Name)
			}
			c.logger.Debug("Received a message", zap.Uint64("delivery_tag", msg.DeliveryTag))
			Settle(c.logger, msg, msg.Redelivered, c.handler.HandleDelivery(ctx, msg))
		case <-ctx.Done():
			c.logger.Info("Context cancelled, stopping consumer...")
			return nil
		}
	}
}

// Settle подтверждает или отклоняет сообщение.
// Отклоненное сообщение возвращается в очередь только один раз.
func Settle(logger *zap.Logger, ack Acknowledger, redelivered, ok bool) {
	if ok {
		if err := ack.Ack(false); err != nil {
			logger.Error("Failed to ack message", zap.Error(err))
		}
		return
	}
	requeue := !redelivered
	if err := ack.Nack(false, requeue); err != nil {
		logger.Error("Failed to nack message", zap.Bool("requeue", requeue), zap.Error(err))
	}
}

// Dial подключается к RabbitMQ с несколькими попытками.
func Dial(ctx context.Context, url string, attempts int, delay time.Duration, logger *zap.Logger) (*amqp091.Connection, error) {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		conn, err := amqp091.Dial(url)
		if err == nil {
			logger.Info("RabbitMQ connected successfully", zap.Int("attempt", i+1))
			return conn, nil
		}
		lastErr = err
		logger.Warn("Не удалось подключиться к RabbitMQ",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", attempts),
			zap.Duration("retry_delay", delay),
			zap.Error(err),
		)
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, lastErr)
}
