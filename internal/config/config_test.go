package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imagegen-server/internal/models"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SECRETS_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "stable-diffusion-xl-1024-v1-0", cfg.Stability.EngineID)
	assert.Equal(t, "https://api.stability.ai", cfg.Stability.BaseURL)
	assert.Equal(t, 120, cfg.Stability.Timeout)
	assert.Equal(t, "workspace/output/", cfg.Resources.OutputRootDir)
	assert.Equal(t, models.StorageTypeFile, cfg.StorageType())
	assert.Equal(t, "image_generation_tasks", cfg.RabbitMQ.TaskQueue.Name)
	assert.True(t, cfg.RabbitMQ.TaskQueue.Durable)
	assert.Equal(t, 24*time.Hour, cfg.Redis.DedupTTL)
	assert.Equal(t, 15*time.Minute, cfg.Redis.ProcessingTTL)
	assert.Empty(t, cfg.Stability.APIKey)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SECRETS_DIR", t.TempDir())
	t.Setenv("STABILITY_API_KEY", "sk-env")
	t.Setenv("ENGINE_ID", "stable-diffusion-768-v2-1")
	t.Setenv("RESOURCES_OUTPUT_ROOT_DIR", "/data/out")
	t.Setenv("STORAGE_TYPE", "s3")
	t.Setenv("BUCKET_NAME", "images")
	t.Setenv("RABBITMQ_IMAGE_TASK_QUEUE_NAME", "custom_tasks")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-env", cfg.Stability.APIKey)
	assert.Equal(t, "stable-diffusion-768-v2-1", cfg.Stability.EngineID)
	assert.Equal(t, "/data/out", cfg.Resources.OutputRootDir)
	assert.Equal(t, models.StorageTypeS3, cfg.StorageType())
	assert.Equal(t, "images", cfg.S3.Bucket)
	assert.Equal(t, "custom_tasks", cfg.RabbitMQ.TaskQueue.Name)
}

func TestLoad_APIKeyFromSecretFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stability_api_key"), []byte("  sk-secret\n"), 0o600))
	t.Setenv("SECRETS_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-secret", cfg.Stability.APIKey)
}

func TestLoad_S3RequiresBucket(t *testing.T) {
	t.Setenv("SECRETS_DIR", t.TempDir())
	t.Setenv("STORAGE_TYPE", "S3")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Contains(t, err.Error(), "BUCKET_NAME")
}

func TestReadSecret_Empty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty"), []byte("   "), 0o600))

	_, err := ReadSecret(dir, "empty")
	assert.Error(t, err)

	_, err = ReadSecret(dir, "missing")
	assert.Error(t, err)
}

func TestHTTPConfig_AllowedOrigins(t *testing.T) {
	assert.Nil(t, HTTPConfig{}.AllowedOrigins())
	assert.Equal(t,
		[]string{"http://a.local", "https://b.local"},
		HTTPConfig{CORSAllowedOrigins: " http://a.local, ,https://b.local "}.AllowedOrigins(),
	)
}
