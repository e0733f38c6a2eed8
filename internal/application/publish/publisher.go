// Package publish 实现发布编排：锁 → 上传 → 指针更新 → 清单写入
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"site-prerender-api/internal/config"
	"site-prerender-api/internal/domain/entity"
	"site-prerender-api/internal/domain/repository"
	"site-prerender-api/pkg/errors"
	"site-prerender-api/pkg/logger"
	"site-prerender-api/pkg/metrics"
)

var tracer = otel.Tracer("application.publish")

// 缓存策略：带版本号的文件名永不复用，可长期缓存；
// manifest 是可变指针，短缓存供消费方轮询
const (
	cacheControlImmutable = "public, max-age=31536000, immutable"
	manifestName          = "manifest.json"
)

// Publisher 发布编排器：发布状态的唯一写入路径。
// 保证读者不会看到文件未上传完整的版本号
type Publisher struct {
	coordinator repository.PublishStateStore
	store       repository.ObjectStore
	cfg         *config.PublishConfig
	now         func() time.Time
}

// NewPublisher 创建发布编排器
func NewPublisher(cfg *config.PublishConfig, coordinator repository.PublishStateStore, store repository.ObjectStore) *Publisher {
	return &Publisher{
		coordinator: coordinator,
		store:       store,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Publish 发布一组产物：
//  1. 以毫秒时间戳生成版本号
//  2. 获取站点锁，竞争时立即失败（调用方决定是否稍后重试）
//  3. 并行上传带版本号的产物，长缓存
//  4. 全部上传成功后才写入发布状态
//  5. 由状态派生 manifest 并上传，短缓存
//  6. 更新去规范化版本键
//  7. 无论成败都释放锁
//
// 任一产物上传失败则整体失败，状态不更新，已上传的版本文件
// 成为无引用的孤儿（无害）。状态写入之后的 manifest 失败会如实
// 上抛：此时存在状态与清单不一致的窗口，需要重试发布来收敛
func (p *Publisher) Publish(ctx context.Context, siteID int, artifacts entity.ArtifactSet, meta map[string]string) (*entity.PublishResult, error) {
	start := p.now()
	version := strconv.FormatInt(start.UnixMilli(), 10)
	siteLabel := strconv.Itoa(siteID)

	ctx = logger.WithContext(ctx, logger.VersionKey, version)
	ctx, span := tracer.Start(ctx, "publisher.Publish",
		trace.WithAttributes(
			attribute.Int("site_id", siteID),
			attribute.String("publish.version", version),
			attribute.Int("artifact_count", len(artifacts)),
		))
	defer span.End()

	logger.Info(ctx, "publish started", "site_id", siteID, "version", version)

	locked, err := p.coordinator.AcquireLock(ctx, siteID, p.cfg.LockTTL)
	if err != nil {
		if !p.cfg.LockFailOpen {
			span.RecordError(err)
			metrics.PublishTotal.WithLabelValues(siteLabel, "error").Inc()
			return nil, errors.Wrap(err, errors.CodeCoordinatorError, "coordinator unavailable, refusing to publish without lock")
		}
		// 显式配置放行：无互斥保护，并发发布可能交错上传
		logger.Warn(ctx, "coordinator unavailable, publishing without lock", "site_id", siteID, "error", err)
		locked = false
	} else if !locked {
		metrics.PublishLockContention.WithLabelValues(siteLabel).Inc()
		metrics.PublishTotal.WithLabelValues(siteLabel, "contention").Inc()
		logger.Warn(ctx, "publish lock already held", "site_id", siteID)
		return nil, errors.ErrPublishInProgress.WithDetail(fmt.Sprintf("site %d", siteID))
	}

	if locked {
		defer func() {
			if releaseErr := p.coordinator.ReleaseLock(ctx, siteID); releaseErr != nil {
				logger.Error(ctx, "failed to release publish lock", releaseErr, "site_id", siteID)
			}
		}()
	}

	result, err := p.publishLocked(ctx, siteID, version, artifacts, start)
	if err != nil {
		span.RecordError(err)
		metrics.PublishTotal.WithLabelValues(siteLabel, "error").Inc()
		logger.Error(ctx, "publish failed", err, "site_id", siteID, "version", version)
		return nil, err
	}

	metrics.PublishTotal.WithLabelValues(siteLabel, "success").Inc()
	metrics.PublishDuration.WithLabelValues(siteLabel).Observe(time.Since(start).Seconds())
	logger.Info(ctx, "publish complete",
		"site_id", siteID,
		"version", version,
		"file_count", len(result.Files),
		"duration_ms", result.DurationMS,
	)
	return result, nil
}

// publishLocked 持锁阶段：上传、状态写入、清单、版本键
func (p *Publisher) publishLocked(ctx context.Context, siteID int, version string, artifacts entity.ArtifactSet, start time.Time) (*entity.PublishResult, error) {
	files := make(map[string]string, len(artifacts))
	names := make([]string, 0, len(artifacts))
	for name := range artifacts {
		files[name] = versionedName(name, version)
		names = append(names, name)
	}
	sort.Strings(names)

	eg, egCtx := errgroup.WithContext(ctx)
	if p.cfg.UploadConcurrency > 0 {
		eg.SetLimit(p.cfg.UploadConcurrency)
	}
	for _, name := range names {
		name := name
		eg.Go(func() error {
			path := fmt.Sprintf("%d/%s", siteID, files[name])
			err := p.store.Upload(egCtx, path, artifacts[name], repository.UploadOptions{
				ContentType:  contentTypeFor(name),
				CacheControl: cacheControlImmutable,
			})
			if err != nil {
				return errors.Wrap(err, errors.CodeUploadFailed, fmt.Sprintf("failed to upload %s", name))
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// 状态写入严格排在全部上传之后：这是读者永远看到完整版本的关键
	state := &entity.PublishState{
		Version:   version,
		Files:     files,
		UpdatedAt: p.now().UnixMilli(),
	}
	if err := p.coordinator.SetState(ctx, siteID, state); err != nil {
		return nil, errors.Wrap(err, errors.CodeCoordinatorError, "failed to write publish state")
	}

	if err := p.writeManifest(ctx, siteID, state); err != nil {
		// 状态已指向新版本但公开清单仍是旧的，必须如实上抛
		return nil, errors.Wrap(err, errors.CodeManifestFailed, "manifest write failed after state update")
	}

	// 版本键在读侧有状态键兜底，但持锁阶段的任何失败都如实上抛
	if err := p.coordinator.SetLatestVersion(ctx, siteID, version, p.cfg.LatestVersionTTL); err != nil {
		return nil, errors.Wrap(err, errors.CodeCoordinatorError, "failed to write latest version key")
	}

	return &entity.PublishResult{
		Success:    true,
		SiteID:     siteID,
		Version:    version,
		Files:      files,
		DurationMS: time.Since(start).Milliseconds(),
	}, nil
}

// writeManifest 由刚写入的状态派生公开清单并上传
func (p *Publisher) writeManifest(ctx context.Context, siteID int, state *entity.PublishState) error {
	manifest := entity.NewManifest(state)
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	maxAge := p.cfg.ManifestMaxAge
	if maxAge <= 0 {
		maxAge = 30
	}

	path := fmt.Sprintf("%d/%s", siteID, manifestName)
	return p.store.Upload(ctx, path, data, repository.UploadOptions{
		ContentType:  "application/json",
		CacheControl: fmt.Sprintf("public, max-age=%d", maxAge),
	})
}

// ManifestURL 站点清单的公开地址
func (p *Publisher) ManifestURL(siteID int) string {
	return p.store.PublicURL(fmt.Sprintf("%d/%s", siteID, manifestName))
}

// versionedName 在扩展名前插入版本号：name.json → name.<version>.json
func versionedName(filename, version string) string {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return filename + "." + version
	}
	return filename[:i] + "." + version + filename[i:]
}

// contentTypeFor 按扩展名推断内容类型
func contentTypeFor(filename string) string {
	if strings.HasSuffix(filename, ".json") {
		return "application/json"
	}
	return "text/html"
}
