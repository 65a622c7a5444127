package imagegen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"imagegen-server/internal/database"
	"imagegen-server/internal/models"
	"imagegen-server/internal/resource"
	"imagegen-server/internal/stability"
	"imagegen-server/internal/storage"
)

// SuccessMessage возвращается после сохранения всех изображений.
const SuccessMessage = "Images downloaded and saved successfully"

var (
	// ErrImageDecodeFailed - артефакт не удалось декодировать в изображение.
	ErrImageDecodeFailed = errors.New("image decode failed")
	// ErrImageSaveFailed - ошибка при сохранении файла или записи ресурса.
	ErrImageSaveFailed = errors.New("image save failed")
	// ErrUploadFailed - ошибка выгрузки во внешнее хранилище.
	ErrUploadFailed = errors.New("image upload failed")
)

// Result - результат успешного выполнения инструмента.
type Result struct {
	Message   string             `json:"message"`
	Resources []*models.Resource `json:"resources"`
}

// Tool генерирует изображения через Stability AI и сохраняет их как ресурсы.
type Tool struct {
	logger    *zap.Logger
	generator stability.Generator
	helper    *resource.Helper
	repo      database.ResourceRepository
	uploader  storage.Uploader
	apiKey    string
}

// NewTool создает инструмент. uploader может быть nil, если хранилище FILE.
func NewTool(
	generator stability.Generator,
	helper *resource.Helper,
	repo database.ResourceRepository,
	uploader storage.Uploader,
	apiKey string,
	logger *zap.Logger,
) (*Tool, error) {
	if generator == nil {
		return nil, errors.New("image generator is required")
	}
	if helper == nil {
		return nil, errors.New("resource helper is required")
	}
	if repo == nil {
		return nil, errors.New("resource repository is required")
	}
	if uploader == nil {
		if helper.StorageType() == models.StorageTypeS3 {
			return nil, errors.New("uploader is required for S3 storage")
		}
		uploader = storage.NopUploader{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tool{
		logger:    logger.Named("StableDiffusionTool"),
		generator: generator,
		helper:    helper,
		repo:      repo,
		uploader:  uploader,
		apiKey:    apiKey,
	}, nil
}

// Execute генерирует изображения по промпту и сохраняет их под переданными именами.
func (t *Tool) Execute(ctx context.Context, params GenerateParams) (*Result, error) {
	params = params.WithDefaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	log := t.logger.With(zap.Int("num", params.Num), zap.Int("steps", params.Steps))
	if params.AgentID != nil {
		log = log.With(zap.String("agent_id", *params.AgentID))
	}
	log.Info("Generating images")

	resp, err := t.generator.CallStableDiffusion(ctx, t.apiKey, params.Width, params.Height, params.Num, params.Prompt, params.Steps)
	if err != nil {
		log.Error("Stable Diffusion call failed", zap.Error(err))
		return nil, fmt.Errorf("stable diffusion call failed: %w", err)
	}

	artifacts := resp.Artifacts
	if len(artifacts) < params.Num {
		return nil, fmt.Errorf("%w: requested %d images, got %d artifacts", stability.ErrMalformedResponse, params.Num, len(artifacts))
	}
	if len(artifacts) > len(params.ImageNames) {
		return nil, fmt.Errorf("%w: got %d artifacts for %d image names", stability.ErrMalformedResponse, len(artifacts), len(params.ImageNames))
	}

	rootDir := t.helper.RootOutputDir(params.AgentID)
	resources := make([]*models.Resource, 0, len(artifacts))
	for i, artifact := range artifacts {
		name := params.ImageNames[i]
		if artifact.FinishReason != "" && artifact.FinishReason != "SUCCESS" {
			log.Warn("Artifact finished with non-success reason",
				zap.String("image_name", name), zap.String("finish_reason", artifact.FinishReason))
		}

		data, err := artifact.Decode()
		if err != nil {
			return nil, fmt.Errorf("%w: artifact %d (%s): %w", ErrImageDecodeFailed, i, name, err)
		}
		if err := checkImage(data); err != nil {
			return nil, fmt.Errorf("%w: artifact %d (%s): %v", ErrImageDecodeFailed, i, name, err)
		}

		finalPath := t.BuildFilePath(name, rootDir)
		res, err := t.UploadToStorage(ctx, data, finalPath, name, params.AgentID)
		if err != nil {
			return nil, err
		}
		resources = append(resources, res)
	}

	log.Info("Images saved", zap.Int("count", len(resources)), zap.String("root_dir", rootDir))
	return &Result{Message: SuccessMessage, Resources: resources}, nil
}

// BuildFilePath возвращает путь файла внутри корня вывода: <root>/<fileName>.
func (t *Tool) BuildFilePath(fileName, rootDir string) string {
	return filepath.Join(rootDir, fileName)
}

// UploadToStorage записывает файл, регистрирует ресурс и выгружает его в S3, если нужно.
// Локальный файл остается на месте.
func (t *Tool) UploadToStorage(ctx context.Context, data []byte, finalPath, fileName string, agentID *string) (*models.Resource, error) {
	log := t.logger.With(zap.String("file_path", finalPath))

	if agentID != nil && *agentID != "" && !resource.IsPathSegment(*agentID) {
		return nil, fmt.Errorf("%w: agent id %q is not a single path segment", models.ErrInvalidInput, *agentID)
	}
	if err := os.MkdirAll(filepath.Dir(finalPath), 0755); err != nil {
		log.Error("Failed to create output directory", zap.Error(err))
		return nil, fmt.Errorf("%w: create directory: %w", ErrImageSaveFailed, err)
	}
	if err := os.WriteFile(finalPath, data, 0644); err != nil {
		log.Error("Failed to write image file", zap.Error(err))
		return nil, fmt.Errorf("%w: write %s: %w", ErrImageSaveFailed, finalPath, err)
	}
	log.Debug("Image written", zap.Int("size_bytes", len(data)))

	res, err := t.helper.MakeWrittenFileResource(fileName, finalPath, agentID, models.ChannelOutput)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageSaveFailed, err)
	}
	if err := t.repo.Save(ctx, res); err != nil {
		log.Error("Failed to save resource record", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrImageSaveFailed, err)
	}

	if res.IsRemote() {
		if err := t.upload(ctx, finalPath, res); err != nil {
			log.Error("Failed to upload resource", zap.String("key", res.Path), zap.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
		}
	}

	log.Info("Resource stored",
		zap.String("resource_id", res.ID.String()),
		zap.String("storage_type", string(res.StorageType)),
	)
	return res, nil
}

func (t *Tool) upload(ctx context.Context, localPath string, res *models.Resource) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return t.uploader.Upload(ctx, res.Path, f, res.Type)
}

func checkImage(data []byte) error {
	_, _, err := image.DecodeConfig(bytes.NewReader(data))
	return err
}
