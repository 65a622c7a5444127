package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"imagegen-server/internal/imagegen"
	"imagegen-server/internal/messaging"
	"imagegen-server/internal/mocks"
	"imagegen-server/internal/models"
	"imagegen-server/internal/stability"
)

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Execute(ctx context.Context, params imagegen.GenerateParams) (*imagegen.Result, error) {
	args := m.Called(ctx, params)
	res, _ := args.Get(0).(*imagegen.Result)
	return res, args.Error(1)
}

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router *gin.Engine
	exec   *mockExecutor
	repo   *mocks.MockResourceRepository
	pub    *mocks.MockPublisher
}

func newTestEnv(t *testing.T, withPublisher bool, verifier TokenVerifier) *testEnv {
	env := &testEnv{
		exec: &mockExecutor{},
		repo: mocks.NewMockResourceRepository(t),
		pub:  mocks.NewMockPublisher(t),
	}
	var pub messaging.Publisher
	if withPublisher {
		pub = env.pub
	}
	h := NewHandler(env.exec, env.repo, pub, zap.NewNop())
	env.router = NewRouter(RouterConfig{Verifier: verifier}, h, zap.NewNop())
	return env
}

func doJSON(router http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, false, nil)
	rec := doJSON(env.router, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGenerateImages_Success(t *testing.T) {
	env := newTestEnv(t, false, nil)
	res := &models.Resource{ID: uuid.New(), Name: "a.png", Path: "workspace/output/a.png", StorageType: models.StorageTypeFile, Type: "image/png", CreatedAt: time.Now()}

	env.exec.On("Execute", mock.Anything, mock.MatchedBy(func(p imagegen.GenerateParams) bool {
		return p.Prompt == "boat" && len(p.ImageNames) == 1 && p.AgentID != nil && *p.AgentID == "agent-9" && p.Width == 768
	})).Return(&imagegen.Result{Message: imagegen.SuccessMessage, Resources: []*models.Resource{res}}, nil).Once()

	rec := doJSON(env.router, http.MethodPost, "/api/v1/images/generate", map[string]any{
		"prompt": "boat", "imageNames": []string{"a.png"}, "width": 768, "agentId": "agent-9",
	}, nil)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var body generateImagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, imagegen.SuccessMessage, body.Message)
	require.Len(t, body.Resources, 1)
	assert.Equal(t, res.ID.String(), body.Resources[0].ID)
	env.exec.AssertExpectations(t)
}

func TestGenerateImages_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  int
	}{
		{name: "validation", err: models.ErrInvalidInput, wantCode: http.StatusBadRequest, wantErr: models.ErrCodeValidation},
		{name: "upstream", err: &stability.APIError{StatusCode: 500, Body: "x"}, wantCode: http.StatusBadGateway, wantErr: models.ErrCodeUpstream},
		{name: "storage", err: imagegen.ErrImageSaveFailed, wantCode: http.StatusInternalServerError, wantErr: models.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, false, nil)
			env.exec.On("Execute", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			rec := doJSON(env.router, http.MethodPost, "/api/v1/images/generate", map[string]any{
				"prompt": "p", "imageNames": []string{"a.png"},
			}, nil)
			assert.Equal(t, tt.wantCode, rec.Code)

			var errResp models.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
			assert.Equal(t, tt.wantErr, errResp.Code)
		})
	}
}

func TestGenerateImages_BadBody(t *testing.T) {
	env := newTestEnv(t, false, nil)
	rec := doJSON(env.router, http.MethodPost, "/api/v1/images/generate", map[string]any{"imageNames": []string{"a.png"}}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env.exec.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestEnqueueImageTask(t *testing.T) {
	env := newTestEnv(t, true, nil)
	var published messaging.ImageTaskPayload
	env.pub.On("Publish", mock.Anything, mock.AnythingOfType("messaging.ImageTaskPayload"), mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { published = args.Get(1).(messaging.ImageTaskPayload) }).
		Return(nil).Once()

	rec := doJSON(env.router, http.MethodPost, "/api/v1/images/tasks", map[string]any{
		"prompt": "mountains", "imageNames": []string{"m1.png", "m2.png"}, "num": 2,
	}, nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, published.TaskID, body["taskId"])
	assert.Equal(t, 2, published.Num)
	assert.Equal(t, "mountains", published.Prompt)
}

func TestEnqueueImageTask_ValidationAndRouting(t *testing.T) {
	env := newTestEnv(t, true, nil)
	rec := doJSON(env.router, http.MethodPost, "/api/v1/images/tasks", map[string]any{
		"prompt": "p", "imageNames": []string{"a.png"}, "num": 3,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	noPub := newTestEnv(t, false, nil)
	rec = doJSON(noPub.router, http.MethodPost, "/api/v1/images/tasks", map[string]any{
		"prompt": "p", "imageNames": []string{"a.png"},
	}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEnqueueImageTask_PublishError(t *testing.T) {
	env := newTestEnv(t, true, nil)
	env.pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	rec := doJSON(env.router, http.MethodPost, "/api/v1/images/tasks", map[string]any{
		"prompt": "p", "imageNames": []string{"a.png"},
	}, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetResource(t *testing.T) {
	env := newTestEnv(t, false, nil)
	id := uuid.New()
	missing := uuid.New()
	env.repo.On("GetByID", mock.Anything, id).Return(&models.Resource{ID: id, Name: "a.png"}, nil).Once()
	env.repo.On("GetByID", mock.Anything, missing).Return(nil, models.ErrNotFound).Once()

	rec := doJSON(env.router, http.MethodGet, "/api/v1/resources/"+id.String(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.Resource
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, id, got.ID)

	rec = doJSON(env.router, http.MethodGet, "/api/v1/resources/"+missing.String(), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(env.router, http.MethodGet, "/api/v1/resources/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetResourcesByIDs(t *testing.T) {
	env := newTestEnv(t, false, nil)
	first, second := uuid.New(), uuid.New()
	env.repo.On("GetByIDs", mock.Anything, []uuid.UUID{first, second}).
		Return([]*models.Resource{{ID: first, Name: "a.png"}, {ID: second, Name: "b.png"}}, nil).Once()

	rec := doJSON(env.router, http.MethodGet, "/api/v1/resources?ids="+first.String()+", "+second.String()+","+first.String(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []models.Resource `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, first, body.Data[0].ID)
	assert.Equal(t, second, body.Data[1].ID)
}

func TestGetResourcesByIDs_InvalidQuery(t *testing.T) {
	env := newTestEnv(t, false, nil)

	tooMany := make([]string, maxBatchIDs+1)
	for i := range tooMany {
		tooMany[i] = uuid.NewString()
	}

	for name, query := range map[string]string{
		"missing":  "",
		"empty":    "?ids=,",
		"not uuid": "?ids=" + uuid.NewString() + ",nope",
		"too many": "?ids=" + strings.Join(tooMany, ","),
	} {
		t.Run(name, func(t *testing.T) {
			rec := doJSON(env.router, http.MethodGet, "/api/v1/resources"+query, nil, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestListAgentResources(t *testing.T) {
	env := newTestEnv(t, false, nil)
	env.repo.On("ListByAgent", mock.Anything, "agent-1", 10, 20).
		Return([]*models.Resource{{ID: uuid.New(), Name: "a.png"}}, nil).Once()

	rec := doJSON(env.router, http.MethodGet, "/api/v1/agents/agent-1/resources?limit=10&offset=20", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data  []models.Resource `json:"data"`
		Limit int               `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 1)
	assert.Equal(t, 10, body.Limit)

	rec = doJSON(env.router, http.MethodGet, "/api/v1/agents/agent-1/resources?limit=abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
