package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"imagegen-server/internal/storage"
)

// MockUploader is a mock type for the storage.Uploader type
type MockUploader struct {
	mock.Mock
}

// Upload provides a mock function with given fields: ctx, key, body, contentType
func (_m *MockUploader) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	ret := _m.Called(ctx, key, body, contentType)
	return ret.Error(0)
}

// NewMockUploader creates a new instance of MockUploader.
func NewMockUploader(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockUploader {
	m := &MockUploader{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ storage.Uploader = (*MockUploader)(nil)
