package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel/attribute"

	"talent-scout-go/internal/config"
	"talent-scout-go/internal/logger"
	"talent-scout-go/internal/tracing"
)

// ObjectStorage 对象存储接口
type ObjectStorage interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, fileSize int64, contentType string) (string, error)
}

var (
	_ ObjectStorage = (*MinIO)(nil)
	_ Sink          = (*MinIO)(nil)
)

// TranscriptObjectKey 脱敏对话记录在存储桶中的对象名
func TranscriptObjectKey(sessionID string) string {
	return "transcripts/" + sessionID + "_session.json"
}

// MinIO 归档脱敏对话记录。只写入 SessionDocument，不写候选人资料
type MinIO struct {
	client *minio.Client
	bucket string
}

// NewMinIO 创建MinIO客户端并确保存储桶存在
func NewMinIO(ctx context.Context, cfg *config.MinIOConfig) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	m := &MinIO{client: client, bucket: cfg.TranscriptsBucket}
	if err := m.ensureBucketExists(ctx, cfg.Location); err != nil {
		return nil, err
	}
	logger.Info().Str("endpoint", cfg.Endpoint).Str("bucket", m.bucket).Msg("MinIO客户端初始化成功")
	return m, nil
}

func (m *MinIO) ensureBucketExists(ctx context.Context, location string) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", m.bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: location}); err != nil {
		return fmt.Errorf("创建存储桶 %s 失败: %w", m.bucket, err)
	}
	logger.Info().Str("bucket", m.bucket).Msg("存储桶已创建")
	return nil
}

// Name 实现 Sink
func (m *MinIO) Name() string { return "minio" }

// Bucket 归档使用的存储桶
func (m *MinIO) Bucket() string { return m.bucket }

// Write 上传脱敏会话文档
func (m *MinIO) Write(ctx context.Context, record *ScreeningRecord) error {
	ctx, span := tracing.Tracer().Start(ctx, "storage.MinIO.Write")
	defer span.End()

	data, err := json.MarshalIndent(record.SessionDocument(), "", "  ")
	if err != nil {
		return fmt.Errorf("JSON序列化失败: %w", err)
	}
	objectName := TranscriptObjectKey(record.SessionID)
	span.SetAttributes(
		attribute.String("minio.bucket", m.bucket),
		attribute.String("minio.object", objectName),
		attribute.Int("minio.size", len(data)),
	)

	if _, err := m.UploadFile(ctx, objectName, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStore)
		return err
	}
	return nil
}

// UploadFile 上传对象到归档存储桶，返回对象名
func (m *MinIO) UploadFile(ctx context.Context, objectName string, reader io.Reader, fileSize int64, contentType string) (string, error) {
	info, err := m.client.PutObject(ctx, m.bucket, objectName, reader, fileSize, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("上传对象 %s/%s 失败: %w", m.bucket, objectName, err)
	}
	logger.Debug().Str("object", objectName).Int64("size", info.Size).Str("etag", info.ETag).Msg("对象上传成功")
	return objectName, nil
}
