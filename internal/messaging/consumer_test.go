package messaging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeAck struct {
	acked   bool
	nacked  bool
	requeue bool
	err     error
}

func (f *fakeAck) Ack(bool) error {
	f.acked = true
	return f.err
}

func (f *fakeAck) Nack(_ bool, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return f.err
}

func TestSettle(t *testing.T) {
	logger := zap.NewNop()

	t.Run("ack on success", func(t *testing.T) {
		a := &fakeAck{}
		Settle(logger, a, false, true)
		assert.True(t, a.acked)
		assert.False(t, a.nacked)
	})

	t.Run("first failure is requeued", func(t *testing.T) {
		a := &fakeAck{}
		Settle(logger, a, false, false)
		assert.True(t, a.nacked)
		assert.True(t, a.requeue)
	})

	t.Run("redelivered failure is dropped", func(t *testing.T) {
		a := &fakeAck{}
		Settle(logger, a, true, false)
		assert.True(t, a.nacked)
		assert.False(t, a.requeue)
	})

	t.Run("ack error is only logged", func(t *testing.T) {
		a := &fakeAck{err: errors.New("channel closed")}
		assert.NotPanics(t, func() { Settle(logger, a, false, true) })
	})
}
