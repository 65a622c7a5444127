package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"imagegen-server/internal/database"
	"imagegen-server/internal/models"
)

// MockResourceRepository is a mock type for the ResourceRepository type
type MockResourceRepository struct {
	mock.Mock
}

// Save provides a mock function with given fields: ctx, res
func (_m *MockResourceRepository) Save(ctx context.Context, res *models.Resource) error {
	ret := _m.Called(ctx, res)
	return ret.Error(0)
}

// GetByID provides a mock function with given fields: ctx, id
func (_m *MockResourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Resource, error) {
	ret := _m.Called(ctx, id)

	var r0 *models.Resource
	if v, ok := ret.Get(0).(*models.Resource); ok {
		r0 = v
	}
	return r0, ret.Error(1)
}

// ListByAgent provides a mock function with given fields: ctx, agentID, limit, offset
func (_m *MockResourceRepository) ListByAgent(ctx context.Context, agentID string, limit, offset int) ([]*models.Resource, error) {
	ret := _m.Called(ctx, agentID, limit, offset)

	var r0 []*models.Resource
	if v, ok := ret.Get(0).([]*models.Resource); ok {
		r0 = v
	}
	return r0, ret.Error(1)
}

// GetByIDs provides a mock function with given fields: ctx, ids
func (_m *MockResourceRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Resource, error) {
	ret := _m.Called(ctx, ids)

	var r0 []*models.Resource
	if v, ok := ret.Get(0).([]*models.Resource); ok {
		r0 = v
	}
	return r0, ret.Error(1)
}

// NewMockResourceRepository creates a new instance of MockResourceRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockResourceRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockResourceRepository {
	m := &MockResourceRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ database.ResourceRepository = (*MockResourceRepository)(nil)
