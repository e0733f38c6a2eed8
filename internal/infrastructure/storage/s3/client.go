// Package s3 提供 S3 兼容对象存储客户端实现
package s3

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"site-prerender-api/internal/config"
	"site-prerender-api/internal/domain/repository"
	"site-prerender-api/pkg/logger"
	"site-prerender-api/pkg/metrics"
)

var tracer = otel.Tracer("storage.s3")

// Client S3 兼容对象存储客户端（Supabase Storage / Cloudflare R2 / MinIO）
type Client struct {
	mc        *minio.Client
	bucket    string
	publicURL string
}

var _ repository.ObjectStore = (*Client)(nil)

// NewClient 创建对象存储客户端
func NewClient(cfg *config.S3Config) (*Client, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")

	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	logger.Info(context.Background(), "s3 object store initialized",
		"endpoint", endpoint,
		"bucket", cfg.Bucket,
	)

	return &Client{
		mc:        mc,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}, nil
}

// Upload 上传对象，按调用方指定的 Content-Type 与 Cache-Control 写入
func (c *Client) Upload(ctx context.Context, path string, data []byte, opts repository.UploadOptions) error {
	ctx, span := tracer.Start(ctx, "s3.Upload",
		trace.WithAttributes(
			attribute.String("s3.bucket", c.bucket),
			attribute.String("s3.key", path),
			attribute.Int("s3.size", len(data)),
		))
	defer span.End()

	_, err := c.mc.PutObject(ctx, c.bucket, path, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
	})
	if err != nil {
		span.RecordError(err)
		metrics.ArtifactUploadsTotal.WithLabelValues(siteLabel(path), "error").Inc()
		return fmt.Errorf("failed to upload object %s: %w", path, err)
	}

	metrics.ArtifactUploadsTotal.WithLabelValues(siteLabel(path), "success").Inc()
	metrics.ArtifactUploadBytes.WithLabelValues(siteLabel(path)).Add(float64(len(data)))
	return nil
}

// PublicURL 返回对象的公开访问地址
func (c *Client) PublicURL(path string) string {
	if c.publicURL == "" {
		return fmt.Sprintf("/%s/%s", c.bucket, path)
	}
	return fmt.Sprintf("%s/%s", c.publicURL, path)
}

// siteLabel 从对象路径提取站点标签，路径格式为 <siteId>/<file>
func siteLabel(path string) string {
	if i := strings.IndexByte(path, '/'); i > 0 {
		return path[:i]
	}
	return "unknown"
}
