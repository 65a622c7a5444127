//go:build integration

package messaging_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"go.uber.org/zap"

	"imagegen-server/internal/config"
	"imagegen-server/internal/messaging"
)

type recordingHandler struct {
	mu       sync.Mutex
	received []messaging.ImageTaskPayload
	corrIDs  []string
	done     chan struct{}
}

func (h *recordingHandler) HandleDelivery(_ context.Context, msg amqp091.Delivery) bool {
	var p messaging.ImageTaskPayload
	if err := json.Unmarshal(msg.Body, &p); err != nil {
		return false
	}
	h.mu.Lock()
	h.received = append(h.received, p)
	h.corrIDs = append(h.corrIDs, msg.CorrelationId)
	h.mu.Unlock()
	close(h.done)
	return true
}

func TestPublisherConsumer_Integration(t *testing.T) {
	ctx := context.Background()

	ctr, err := rabbitmq.Run(ctx, "rabbitmq:3.13-management-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	url, err := ctr.AmqpURL(ctx)
	require.NoError(t, err)

	logger := zap.NewNop()
	conn, err := messaging.Dial(ctx, url, 5, time.Second, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	queue := config.QueueConfig{Name: "image_generation_tasks_it", Durable: true}

	publisher, err := messaging.NewRabbitMQPublisher(conn, "", queue.Name, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = publisher.Close() })

	task := messaging.ImageTaskPayload{TaskID: "task-1", Prompt: "forest", ImageNames: []string{"f.png"}}
	require.NoError(t, publisher.Publish(ctx, task, "corr-1"))

	handler := &recordingHandler{done: make(chan struct{})}
	consumer := messaging.NewConsumer(conn, queue, "it-consumer", handler, logger)

	runCtx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- consumer.Run(runCtx) }()

	select {
	case <-handler.done:
	case <-time.After(30 * time.Second):
		t.Fatal("message was not consumed in time")
	}
	cancel()
	assert.NoError(t, <-errCh)

	handler.mu.Lock()
	defer handler.mu.Unlock()
	require.Len(t, handler.received, 1)
	assert.Equal(t, task.TaskID, handler.received[0].TaskID)
	assert.Equal(t, []string{"f.png"}, handler.received[0].ImageNames)
	assert.Equal(t, "corr-1", handler.corrIDs[0])

	require.NoError(t, publisher.Close())
	assert.ErrorIs(t, publisher.Publish(ctx, task, "corr-2"), messaging.ErrPublisherClosed)
}
