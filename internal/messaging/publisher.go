package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher публикует сообщения в брокер.
type Publisher interface {
	Publish(ctx context.Context, payload interface{}, correlationID string) error
}

// ErrPublisherClosed - канал паблишера уже закрыт.
var ErrPublisherClosed = errors.New("publisher channel is closed")

// RabbitMQPublisher публикует JSON сообщения в exchange или напрямую в очередь.
type RabbitMQPublisher struct {
	ch           *amqp091.Channel
	exchangeName string
	routingKey   string
	logger       *zap.Logger
	mu           sync.Mutex
}

var _ Publisher = (*RabbitMQPublisher)(nil)

// NewRabbitMQPublisher открывает канал на соединении.
// Если exchange пустой, объявляется durable очередь queueName и она же становится routing key.
func NewRabbitMQPublisher(conn *amqp091.Connection, exchange, queueName string, logger *zap.Logger) (*RabbitMQPublisher, error) {
	if exchange == "" && queueName == "" {
		return nil, errors.New("either exchange or queue name must be set")
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel for publisher: %w", err)
	}

	routingKey := queueName
	if exchange == "" {
		if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
			ch.Close()
			return nil, fmt.Errorf("failed to declare queue %s: %w", queueName, err)
		}
	} else {
		if err := ch.ExchangeDeclare(exchange, amqp091.ExchangeDirect, true, false, false, false, nil); err != nil {
			ch.Close()
			return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
		}
	}

	return &RabbitMQPublisher{
		ch:           ch,
		exchangeName: exchange,
		routingKey:   routingKey,
		logger:       logger.Named("RabbitMQPublisher"),
	}, nil
}

// Publish сериализует payload в JSON и отправляет persistent сообщение.
func (p *RabbitMQPublisher) Publish(ctx context.Context, payload interface{}, correlationID string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return ErrPublisherClosed
	}

	err = p.ch.PublishWithContext(ctx,
		p.exchangeName,
		p.routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:   "application/json",
			CorrelationId: correlationID,
			Body:          body,
			DeliveryMode:  amqp091.Persistent,
		},
	)
	if err != nil {
		p.logger.Error("Failed to publish message",
			zap.String("exchange", p.exchangeName),
			zap.String("routing_key", p.routingKey),
			zap.String("correlation_id", correlationID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to publish message: %w", err)
	}
	p.logger.Debug("Message published", zap.String("routing_key", p.routingKey), zap.String("correlation_id", correlationID))
	return nil
}

// Close закрывает канал. Повторный вызов безопасен.
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return nil
	}
	err := p.ch.Close()
	p.ch = nil
	return err
}
