package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"site-prerender-api/internal/application/prerender"
	"site-prerender-api/internal/domain/entity"
	"site-prerender-api/internal/domain/repository"
	"site-prerender-api/internal/infrastructure/messaging"
	"site-prerender-api/internal/infrastructure/persistence/redis"
	"site-prerender-api/pkg/errors"
	"site-prerender-api/pkg/logger"
)

// versionCacheTTL 版本查询缓存的过期时间。缓存只是挡住突发查询，
// 发布成功后会主动失效
const versionCacheTTL = time.Minute

// Service 发布服务：组合生成与编排，并承载状态查询，
// 供 HTTP 接口、队列消费者、定时任务和 CLI 复用
type Service struct {
	generator   *prerender.Generator
	publisher   *Publisher
	coordinator repository.PublishStateStore
	cache       *redis.Cache
	producer    *messaging.Producer
}

// NewService 创建发布服务。cache 与 producer 可为 nil：
// 无缓存时版本查询直连协调器，无生产者时异步发布不可用
func NewService(generator *prerender.Generator, publisher *Publisher, coordinator repository.PublishStateStore, cache *redis.Cache, producer *messaging.Producer) *Service {
	return &Service{
		generator:   generator,
		publisher:   publisher,
		coordinator: coordinator,
		cache:       cache,
		producer:    producer,
	}
}

// PublishSite 生成并发布一个站点的产物
func (s *Service) PublishSite(ctx context.Context, siteID int) (*entity.PublishResult, error) {
	artifacts, err := s.generator.Generate(ctx, siteID)
	if err != nil {
		if errors.IsCode(err, errors.CodeSiteNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.CodeGenerationFailed, fmt.Sprintf("failed to generate artifacts for site %d", siteID))
	}

	result, err := s.publisher.Publish(ctx, siteID, artifacts, nil)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cacheErr := s.cache.InvalidateSite(ctx, siteID); cacheErr != nil {
			logger.Warn(ctx, "failed to invalidate site query cache", "site_id", siteID, "error", cacheErr)
		}
	}
	return result, nil
}

// EnqueuePublish 将发布任务投递到队列，返回任务 ID
func (s *Service) EnqueuePublish(ctx context.Context, siteID int, requestedBy, reason string) (string, error) {
	if s.producer == nil {
		return "", errors.New(errors.CodeServiceUnavailable, "async publishing is not configured")
	}

	jobID := uuid.NewString()
	_, err := s.producer.PublishJob(ctx, &messaging.PublishJobMessage{
		JobID:       jobID,
		SiteID:      siteID,
		RequestedBy: requestedBy,
		Reason:      reason,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.CodeCacheError, "failed to enqueue publish job")
	}

	logger.Info(ctx, "publish job enqueued", "site_id", siteID, "job_id", jobID)
	return jobID, nil
}

// State 读取站点当前的发布状态
func (s *Service) State(ctx context.Context, siteID int) (*entity.PublishState, error) {
	state, err := s.coordinator.GetState(ctx, siteID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeCoordinatorError, "failed to read publish state")
	}
	if state == nil {
		return nil, errors.ErrStateNotFound.WithDetail(fmt.Sprintf("site %d", siteID))
	}
	return state, nil
}

// LatestVersion 快速查询站点当前版本：优先走查询缓存（singleflight
// 防击穿），缓存未命中时读去规范化版本键，键丢失时回源发布状态并回填
func (s *Service) LatestVersion(ctx context.Context, siteID int) (string, error) {
	if s.cache == nil {
		return s.lookupVersion(ctx, siteID)
	}

	key := fmt.Sprintf("query:site:%d:version", siteID)
	data, err := s.cache.GetOrLoadSafe(ctx, key, versionCacheTTL, func() (interface{}, error) {
		return s.lookupVersion(ctx, siteID)
	})
	if err != nil {
		return "", err
	}

	var version string
	if err := json.Unmarshal(data, &version); err != nil {
		return "", fmt.Errorf("failed to decode cached version: %w", err)
	}
	return version, nil
}

// lookupVersion 版本键 → 发布状态的两级查询
func (s *Service) lookupVersion(ctx context.Context, siteID int) (string, error) {
	version, err := s.coordinator.GetLatestVersion(ctx, siteID)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeCoordinatorError, "failed to read latest version")
	}
	if version != "" {
		return version, nil
	}

	// 版本键带 TTL，可能先于主状态键过期
	state, err := s.coordinator.GetState(ctx, siteID)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeCoordinatorError, "failed to read publish state")
	}
	if state == nil {
		return "", errors.ErrStateNotFound.WithDetail(fmt.Sprintf("site %d", siteID))
	}
	return state.Version, nil
}

// Manifest 由当前发布状态派生清单，并返回其公开地址
func (s *Service) Manifest(ctx context.Context, siteID int) (*entity.Manifest, string, error) {
	state, err := s.State(ctx, siteID)
	if err != nil {
		return nil, "", err
	}
	return entity.NewManifest(state), s.publisher.ManifestURL(siteID), nil
}

// HandleJob 队列消费入口：执行发布任务。锁竞争返回错误，
// 由消费者的退避重试机制在对端发布结束后再次尝试
func (s *Service) HandleJob(ctx context.Context, msg *messaging.Message) error {
	var job messaging.PublishJobMessage
	if err := msg.UnmarshalPayload(&job); err != nil {
		logger.Error(ctx, "invalid publish job payload", err, "message_id", msg.ID)
		// 载荷损坏无法重试，交给处理器链 ack
		return nil
	}

	logger.Info(ctx, "processing publish job",
		"job_id", job.JobID,
		"site_id", job.SiteID,
		"requested_by", job.RequestedBy,
		"reason", job.Reason,
	)

	_, err := s.PublishSite(ctx, job.SiteID)
	return err
}
