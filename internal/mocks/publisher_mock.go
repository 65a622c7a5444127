package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"imagegen-server/internal/messaging"
)

// MockPublisher is a mock type for the messaging.Publisher type
type MockPublisher struct {
	mock.Mock
}

// Publish provides a mock function with given fields: ctx, payload, correlationID
func (_m *MockPublisher) Publish(ctx context.Context, payload interface{}, correlationID string) error {
	ret := _m.Called(ctx, payload, correlationID)
	return ret.Error(0)
}

// NewMockPublisher creates a new instance of MockPublisher.
func NewMockPublisher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockPublisher {
	m := &MockPublisher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ messaging.Publisher = (*MockPublisher)(nil)
