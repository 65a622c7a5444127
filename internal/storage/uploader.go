package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"imagegen-server/internal/config"
)

// Uploader выгружает файлы во внешнее объектное хранилище.
type Uploader interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error
}

// PutObjectAPI - часть s3.Client, которая нужна загрузчику.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader реализует Uploader поверх AWS S3 (или совместимого хранилища).
type S3Uploader struct {
	client PutObjectAPI
	bucket string
	logger *zap.Logger
}

var _ Uploader = (*S3Uploader)(nil)

// NewS3Uploader создает загрузчик с уже готовым клиентом.
func NewS3Uploader(client PutObjectAPI, bucket string, logger *zap.Logger) (*S3Uploader, error) {
	if client == nil {
		return nil, errors.New("s3 client is required")
	}
	if bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3Uploader{
		client: client,
		bucket: bucket,
		logger: logger.Named("S3Uploader"),
	}, nil
}

// NewS3Client собирает s3.Client из конфигурации.
// Статические ключи используются, только если заданы; иначе - стандартная цепочка AWS.
func NewS3Client(ctx context.Context, cfg config.S3Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// Upload кладет объект в бакет под ключом key.
func (u *S3Uploader) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := u.client.PutObject(ctx, input); err != nil {
		u.logger.Error("Failed to upload object", zap.String("bucket", u.bucket), zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to upload %s to bucket %s: %w", key, u.bucket, err)
	}

	u.logger.Info("Object uploaded", zap.String("bucket", u.bucket), zap.String("key", key))
	return nil
}

// NopUploader ничего не выгружает. Используется при STORAGE_TYPE=FILE.
type NopUploader struct{}

// Upload вычитывает тело, чтобы поведение совпадало с реальной выгрузкой.
func (NopUploader) Upload(_ context.Context, _ string, body io.Reader, _ string) error {
	if body == nil {
		return nil
	}
	_, err := io.Copy(io.Discard, body)
	return err
}
