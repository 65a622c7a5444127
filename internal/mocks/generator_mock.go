package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"imagegen-server/internal/stability"
)

// MockGenerator is a mock type for the stability.Generator type
type MockGenerator struct {
	mock.Mock
}

// CallStableDiffusion provides a mock function with given fields: ctx, apiKey, width, height, num, prompt, steps
func (_m *MockGenerator) CallStableDiffusion(ctx context.Context, apiKey string, width, height, num int, prompt string, steps int) (*stability.GenerationResponse, error) {
	ret := _m.Called(ctx, apiKey, width, height, num, prompt, steps)

	var r0 *stability.GenerationResponse
	if v, ok := ret.Get(0).(*stability.GenerationResponse); ok {
		r0 = v
	}
	return r0, ret.Error(1)
}

// NewMockGenerator creates a new instance of MockGenerator.
func NewMockGenerator(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockGenerator {
	m := &MockGenerator{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ stability.Generator = (*MockGenerator)(nil)
