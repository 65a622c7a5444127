package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"imagegen-server/internal/database"
	"imagegen-server/internal/imagegen"
	"imagegen-server/internal/messaging"
	"imagegen-server/internal/models"
)

// ImageExecutor - синхронный запуск инструмента генерации.
type ImageExecutor interface {
	Execute(ctx context.Context, params imagegen.GenerateParams) (*imagegen.Result, error)
}

// Handler - HTTP обработчики сервиса генерации.
type Handler struct {
	tool          ImageExecutor
	repo          database.ResourceRepository
	taskPublisher messaging.Publisher // nil - асинхронные задачи недоступны
	logger        *zap.Logger
}

// NewHandler создает обработчики. taskPublisher может быть nil.
func NewHandler(tool ImageExecutor, repo database.ResourceRepository, taskPublisher messaging.Publisher, logger *zap.Logger) *Handler {
	return &Handler{
		tool:          tool,
		repo:          repo,
		taskPublisher: taskPublisher,
		logger:        logger.Named("ImageHandler"),
	}
}

// RegisterRoutes регистрирует маршруты /api/v1. middlewares применяются ко всей группе,
// limiter (может быть nil) - только к запуску генерации.
func (h *Handler) RegisterRoutes(router gin.IRouter, limiter gin.HandlerFunc, middlewares ...gin.HandlerFunc) {
	v1 := router.Group("/api/v1", middlewares...)

	images := v1.Group("/images")
	if limiter != nil {
		images.Use(limiter)
	}
	images.POST("/generate", h.generateImages)
	if h.taskPublisher != nil {
		images.POST("/tasks", h.enqueueImageTask)
	}
	v1.GET("/resources", h.getResourcesByIDs)
	v1.GET("/resources/:id", h.getResource)
	v1.GET("/agents/:agentId/resources", h.listAgentResources)
}

type generateImagesRequest struct {
	Prompt     string   `json:"prompt" binding:"required"`
	ImageNames []string `json:"imageNames" binding:"required,min=1"`
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	Num        int      `json:"num"`
	Steps      int      `json:"steps"`
	AgentID    string   `json:"agentId"`
}

func (r generateImagesRequest) toTask(taskID string) messaging.ImageTaskPayload {
	return messaging.ImageTaskPayload{
		TaskID:     taskID,
		AgentID:    r.AgentID,
		Prompt:     r.Prompt,
		ImageNames: r.ImageNames,
		Width:      r.Width,
		Height:     r.Height,
		Num:        r.Num,
		Steps:      r.Steps,
	}
}

type generateImagesResponse struct {
	Message   string                  `json:"message"`
	Resources []messaging.ResourceDTO `json:"resources"`
}

func bindRequest(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    models.ErrCodeBadRequest,
			Message: "Invalid request body: " + err.Error(),
		})
		return false
	}
	return true
}

// generateImages godoc
// @Summary Generate images synchronously
// @Tags images
// @Accept json
// @Produce json
// @Param request body generateImagesRequest true "Generation parameters"
// @Success 201 {object} generateImagesResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Security InterServiceToken
// @Router /images/generate [post]
func (h *Handler) generateImages(c *gin.Context) {
	var req generateImagesRequest
	if !bindRequest(c, &req) {
		return
	}

	result, err := h.tool.Execute(c.Request.Context(), req.toTask("").GenerateParams())
	if err != nil {
		h.logger.Warn("Image generation failed", zap.Error(err))
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, generateImagesResponse{
		Message:   result.Message,
		Resources: messaging.NewResourceDTOs(result.Resources),
	})
}

// enqueueImageTask godoc
// @Summary Enqueue an image generation task
// @Tags images
// @Accept json
// @Produce json
// @Param request body generateImagesRequest true "Generation parameters"
// @Success 202 {object} map[string]string
// @Failure 400 {object} models.ErrorResponse
// @Security InterServiceToken
// @Router /images/tasks [post]
func (h *Handler) enqueueImageTask(c *gin.Context) {
	var req generateImagesRequest
	if !bindRequest(c, &req) {
		return
	}

	taskID := uuid.NewString()
	task := req.toTask(taskID)
	params := task.GenerateParams().WithDefaults()
	if err := params.Validate(); err != nil {
		handleServiceError(c, err)
		return
	}

	if err := h.taskPublisher.Publish(c.Request.Context(), task, taskID); err != nil {
		h.logger.Error("Failed to publish image task", zap.String("task_id", taskID), zap.Error(err))
		handleServiceError(c, fmt.Errorf("publish image task: %w", err))
		return
	}

	h.logger.Info("Image task enqueued", zap.String("task_id", taskID))
	c.JSON(http.StatusAccepted, gin.H{"taskId": taskID})
}

// getResource godoc
// @Summary Get resource by ID
// @Tags resources
// @Produce json
// @Param id path string true "Resource UUID"
// @Success 200 {object} models.Resource
// @Failure 404 {object} models.ErrorResponse
// @Security InterServiceToken
// @Router /resources/{id} [get]
func (h *Handler) getResource(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handleServiceError(c, fmt.Errorf("%w: invalid resource id", models.ErrInvalidInput))
		return
	}

	res, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Максимальное число ID в пакетном запросе ресурсов.
const maxBatchIDs = 100

// getResourcesByIDs godoc
// @Summary Get resources by a list of IDs
// @Tags resources
// @Produce json
// @Param ids query string true "Comma-separated resource UUIDs (max 100)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Security InterServiceToken
// @Router /resources [get]
func (h *Handler) getResourcesByIDs(c *gin.Context) {
	ids, err := parseIDList(c.Query("ids"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	resources, err := h.repo.GetByIDs(c.Request.Context(), ids)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resources})
}

// parseIDList разбирает UUID через запятую, пропуская повторы.
func parseIDList(raw string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	seen := make(map[uuid.UUID]struct{})
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid resource id %q", models.ErrInvalidInput, part)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: query parameter ids is required", models.ErrInvalidInput)
	}
	if len(ids) > maxBatchIDs {
		return nil, fmt.Errorf("%w: at most %d ids per request, got %d", models.ErrInvalidInput, maxBatchIDs, len(ids))
	}
	return ids, nil
}

// listAgentResources godoc
// @Summary List resources of an agent
// @Tags resources
// @Produce json
// @Param agentId path string true "Agent ID"
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Security InterServiceToken
// @Router /agents/{agentId}/resources [get]
func (h *Handler) listAgentResources(c *gin.Context) {
	agentID := c.Param("agentId")
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	resources, err := h.repo.ListByAgent(c.Request.Context(), agentID, limit, offset)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resources, "limit": limit, "offset": offset})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.Join(models.ErrInvalidInput, fmt.Errorf("query parameter %s must be a non-negative integer", key))
	}
	return v, nil
}
