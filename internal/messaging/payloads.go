package messaging

import (
	"time"

	"imagegen-server/internal/imagegen"
	"imagegen-server/internal/models"
)

// ResultStatus - статус выполнения задачи генерации.
type ResultStatus string

const (
	ResultStatusSuccess ResultStatus = "success"
	ResultStatusError   ResultStatus = "error"
)

// ImageTaskPayload - сообщение с задачей генерации изображений.
type ImageTaskPayload struct {
	TaskID     string   `json:"taskId"`
	AgentID    string   `json:"agentId,omitempty"`
	Prompt     string   `json:"prompt"`
	ImageNames []string `json:"imageNames"`
	Width      int      `json:"width,omitempty"`
	Height     int      `json:"height,omitempty"`
	Num        int      `json:"num,omitempty"`
	Steps      int      `json:"steps,omitempty"`
}

// GenerateParams переводит задачу в параметры инструмента.
func (p ImageTaskPayload) GenerateParams() imagegen.GenerateParams {
	params := imagegen.GenerateParams{
		Prompt:     p.Prompt,
		ImageNames: p.ImageNames,
		Width:      p.Width,
		Height:     p.Height,
		Num:        p.Num,
		Steps:      p.Steps,
	}
	if p.AgentID != "" {
		agentID := p.AgentID
		params.AgentID = &agentID
	}
	return params
}

// ResourceDTO - описание сохраненного ресурса в сообщении с результатом.
type ResourceDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	StorageType string    `json:"storageType"`
	Size        int64     `json:"size"`
	Type        string    `json:"type"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewResourceDTOs конвертирует ресурсы для публикации.
func NewResourceDTOs(resources []*models.Resource) []ResourceDTO {
	out := make([]ResourceDTO, 0, len(resources))
	for _, r := range resources {
		if r == nil {
			continue
		}
		out = append(out, ResourceDTO{
			ID:          r.ID.String(),
			Name:        r.Name,
			Path:        r.Path,
			StorageType: string(r.StorageType),
			Size:        r.Size,
			Type:        r.Type,
			CreatedAt:   r.CreatedAt,
		})
	}
	return out
}

// ImageResultPayload - сообщение с результатом задачи.
type ImageResultPayload struct {
	TaskID       string        `json:"taskId"`
	AgentID      string        `json:"agentId,omitempty"`
	Status       ResultStatus  `json:"status"`
	Message      string        `json:"message,omitempty"`
	Resources    []ResourceDTO `json:"resources,omitempty"`
	ErrorDetails string        `json:"errorDetails,omitempty"`
}
