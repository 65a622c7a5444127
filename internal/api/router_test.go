package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"imagegen-server/internal/mocks"
	"imagegen-server/internal/models"
)

func TestRouter_RateLimitOnImagesGroup(t *testing.T) {
	exec := &mockExecutor{}
	h := NewHandler(exec, mocks.NewMockResourceRepository(t), nil, zap.NewNop())
	limiter := RateLimitMiddleware(NewRateLimitStore(nil, 1, time.Minute), zap.NewNop())
	router := NewRouter(RouterConfig{RateLimiter: limiter}, h, zap.NewNop())

	// Тело невалидное, до исполнителя запрос не доходит
	first := doJSON(router, http.MethodPost, "/api/v1/images/generate", map[string]any{}, nil)
	assert.Equal(t, http.StatusBadRequest, first.Code)

	second := doJSON(router, http.MethodPost, "/api/v1/images/generate", map[string]any{}, nil)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.Equal(t, models.ErrCodeRateLimited, resp.Code)

	// Health не ограничивается
	for i := 0; i < 3; i++ {
		rec := doJSON(router, http.MethodGet, "/health", nil, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	exec.AssertNotCalled(t, "Execute")
}

func TestRouter_Swagger(t *testing.T) {
	h := NewHandler(&mockExecutor{}, mocks.NewMockResourceRepository(t), nil, zap.NewNop())

	enabled := NewRouter(RouterConfig{EnableSwagger: true}, h, zap.NewNop())
	rec := doJSON(enabled, http.MethodGet, "/swagger/doc.json", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/images/generate")
	assert.Contains(t, rec.Body.String(), "X-Internal-Service-Token")

	disabled := NewRouter(RouterConfig{}, h, zap.NewNop())
	rec = doJSON(disabled, http.MethodGet, "/swagger/doc.json", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
