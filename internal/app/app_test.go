package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"imagegen-server/internal/config"
	"imagegen-server/internal/storage"
)

func TestNewUploader(t *testing.T) {
	ctx := context.Background()

	fileCfg := &config.Config{Resources: config.ResourcesConfig{StorageType: "FILE"}}
	u, err := NewUploader(ctx, fileCfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, storage.NopUploader{}, u)

	s3Cfg := &config.Config{
		Resources: config.ResourcesConfig{StorageType: "s3"},
		S3: config.S3Config{
			Bucket:          "images",
			Region:          "us-east-1",
			Endpoint:        "http://localhost:9000",
			AccessKeyID:     "minio",
			SecretAccessKey: "minio123",
			UsePathStyle:    true,
		},
	}
	u, err = NewUploader(ctx, s3Cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &storage.S3Uploader{}, u)
}
