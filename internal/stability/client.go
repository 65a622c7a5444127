package stability

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"imagegen-server/internal/config"
)

var (
	// ErrMissingAPIKey - ключ Stability API не настроен.
	ErrMissingAPIKey = errors.New("missing Stability API key")
	// ErrNon200Response - API вернул статус, отличный от 200.
	ErrNon200Response = errors.New("non-200 response from Stability API")
	// ErrMalformedResponse - тело ответа не удалось разобрать.
	ErrMalformedResponse = errors.New("malformed Stability API response")
)

// Минимальная сторона изображения для 768-моделей.
const minSide768 = 768

// APIError содержит статус и тело неуспешного ответа.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", ErrNon200Response.Error(), e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error { return ErrNon200Response }

// TextPrompt - один текстовый промпт запроса.
type TextPrompt struct {
	Text   string   `json:"text"`
	Weight *float64 `json:"weight,omitempty"`
}

// TextToImageRequest - тело запроса text-to-image.
type TextToImageRequest struct {
	TextPrompts []TextPrompt `json:"text_prompts"`
	Height      int          `json:"height"`
	Width       int          `json:"width"`
	Samples     int          `json:"samples"`
	Steps       int          `json:"steps"`
}

// Artifact - одно изображение из ответа.
type Artifact struct {
	Base64       string `json:"base64"`
	Seed         int64  `json:"seed,omitempty"`
	FinishReason string `json:"finishReason,omitempty"`
}

// Decode возвращает байты изображения.
func (a Artifact) Decode() ([]byte, error) {
	if a.Base64 == "" {
		return nil, fmt.Errorf("%w: artifact has empty base64 payload", ErrMalformedResponse)
	}
	data, err := base64.StdEncoding.DecodeString(a.Base64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 payload: %v", ErrMalformedResponse, err)
	}
	return data, nil
}

// GenerationResponse - разобранный ответ text-to-image.
type GenerationResponse struct {
	Artifacts []Artifact `json:"artifacts"`
}

// Generator вызывает удаленную генерацию изображений.
type Generator interface {
	CallStableDiffusion(ctx context.Context, apiKey string, width, height, num int, prompt string, steps int) (*GenerationResponse, error)
}

// Client - HTTP клиент Stability AI.
type Client struct {
	logger     *zap.Logger
	httpClient *http.Client
	baseURL    string
	engineID   string
}

var _ Generator = (*Client)(nil)

// NewClient создает клиента по конфигурации. httpClient может быть nil.
func NewClient(cfg config.StabilityConfig, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	if cfg.EngineID == "" {
		return nil, errors.New("engine id (ENGINE_ID) is not configured")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("stability base URL (STABILITY_BASE_URL) is not configured")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		logger:     logger.Named("StabilityClient"),
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		engineID:   cfg.EngineID,
	}, nil
}

// EngineID возвращает используемый движок.
func (c *Client) EngineID() string { return c.engineID }

// AdjustDimensions поднимает размеры до 768 для 768-моделей.
func AdjustDimensions(engineID string, width, height int) (int, int) {
	if strings.Contains(engineID, "768") {
		if height < minSide768 {
			height = minSide768
		}
		if width < minSide768 {
			width = minSide768
		}
	}
	return width, height
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/v1/generation/%s/text-to-image", c.baseURL, c.engineID)
}

// CallStableDiffusion отправляет запрос на генерацию и возвращает разобранный ответ.
func (c *Client) CallStableDiffusion(ctx context.Context, apiKey string, width, height, num int, prompt string, steps int) (*GenerationResponse, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	log := c.logger.With(zap.String("engine_id", c.engineID))

	width, height = AdjustDimensions(c.engineID, width, height)
	reqPayload := TextToImageRequest{
		TextPrompts: []TextPrompt{{Text: prompt}},
		Height:      height,
		Width:       width,
		Samples:     num,
		Steps:       steps,
	}
	reqBodyBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	endpointURL := c.endpoint()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewReader(reqBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	log.Debug("Sending request to Stability API",
		zap.String("url", endpointURL),
		zap.Int("width", width), zap.Int("height", height),
		zap.Int("samples", num), zap.Int("steps", steps),
	)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("Stability API request failed", zap.Error(err))
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		log.Error("Stability API returned non-OK status",
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("response_body", bodyBytes),
		)
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}
	if readErr != nil {
		return nil, fmt.Errorf("failed to read response body: %w", readErr)
	}

	var out GenerationResponse
	if err := json.Unmarshal(bodyBytes, &out); err != nil {
		log.Error("Failed to decode Stability API response", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if out.Artifacts == nil {
		return nil, fmt.Errorf("%w: missing artifacts field", ErrMalformedResponse)
	}

	log.Debug("Stability API call successful", zap.Int("artifacts", len(out.Artifacts)))
	return &out, nil
}
