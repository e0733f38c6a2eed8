// Package redis 提供发布协调器实现
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"site-prerender-api/internal/domain/entity"
)

var stateTracer = otel.Tracer("redis.publishstate")

// 协调器键格式，按站点拆分
const (
	lockKeyFormat    = "publish:lock:%d"
	stateKeyFormat   = "publish:current:%d"
	versionKeyFormat = "publish:version:%d"
)

// PublishStateStore 基于 Redis 的发布状态协调器：
// 锁依赖 SET NX EX 的单键原子性，状态与版本键为覆盖写入
type PublishStateStore struct {
	client *Client
}

// NewPublishStateStore 创建发布状态协调器
func NewPublishStateStore(client *Client) *PublishStateStore {
	return &PublishStateStore{client: client}
}

// AcquireLock 尝试获取站点发布锁
func (s *PublishStateStore) AcquireLock(ctx context.Context, siteID int, ttl time.Duration) (bool, error) {
	ctx, span := stateTracer.Start(ctx, "publishstate.AcquireLock",
		trace.WithAttributes(attribute.Int("site_id", siteID)))
	defer span.End()

	key := fmt.Sprintf(lockKeyFormat, siteID)
	lockValue := fmt.Sprintf("%d", time.Now().UnixMilli())

	ok, err := s.client.SetNX(ctx, key, lockValue, ttl)
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to acquire publish lock for site %d: %w", siteID, err)
	}
	span.SetAttributes(attribute.Bool("lock.acquired", ok))
	return ok, nil
}

// ReleaseLock 无条件删除锁键
func (s *PublishStateStore) ReleaseLock(ctx context.Context, siteID int) error {
	ctx, span := stateTracer.Start(ctx, "publishstate.ReleaseLock",
		trace.WithAttributes(attribute.Int("site_id", siteID)))
	defer span.End()

	key := fmt.Sprintf(lockKeyFormat, siteID)
	if err := s.client.Del(ctx, key); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to release publish lock for site %d: %w", siteID, err)
	}
	return nil
}

// SetState 覆盖写入发布状态，最后写入者胜出
func (s *PublishStateStore) SetState(ctx context.Context, siteID int, state *entity.PublishState) error {
	ctx, span := stateTracer.Start(ctx, "publishstate.SetState",
		trace.WithAttributes(
			attribute.Int("site_id", siteID),
			attribute.String("publish.version", state.Version),
		))
	defer span.End()

	data, err := json.Marshal(state)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to marshal publish state: %w", err)
	}

	key := fmt.Sprintf(stateKeyFormat, siteID)
	if err := s.client.Set(ctx, key, data, 0); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set publish state for site %d: %w", siteID, err)
	}
	return nil
}

// GetState 读取发布状态，不存在返回 nil
func (s *PublishStateStore) GetState(ctx context.Context, siteID int) (*entity.PublishState, error) {
	ctx, span := stateTracer.Start(ctx, "publishstate.GetState",
		trace.WithAttributes(attribute.Int("site_id", siteID)))
	defer span.End()

	key := fmt.Sprintf(stateKeyFormat, siteID)
	data, err := s.client.Get(ctx, key)
	if err != nil {
		if IsNil(err) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get publish state for site %d: %w", siteID, err)
	}

	var state entity.PublishState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to unmarshal publish state for site %d: %w", siteID, err)
	}
	return &state, nil
}

// SetLatestVersion 写入去规范化的版本键
func (s *PublishStateStore) SetLatestVersion(ctx context.Context, siteID int, version string, ttl time.Duration) error {
	ctx, span := stateTracer.Start(ctx, "publishstate.SetLatestVersion",
		trace.WithAttributes(
			attribute.Int("site_id", siteID),
			attribute.String("publish.version", version),
		))
	defer span.End()

	key := fmt.Sprintf(versionKeyFormat, siteID)
	if err := s.client.Set(ctx, key, version, ttl); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set latest version for site %d: %w", siteID, err)
	}
	return nil
}

// GetLatestVersion 读取版本键，不存在返回空字符串
func (s *PublishStateStore) GetLatestVersion(ctx context.Context, siteID int) (string, error) {
	ctx, span := stateTracer.Start(ctx, "publishstate.GetLatestVersion",
		trace.WithAttributes(attribute.Int("site_id", siteID)))
	defer span.End()

	key := fmt.Sprintf(versionKeyFormat, siteID)
	version, err := s.client.Get(ctx, key)
	if err != nil {
		if IsNil(err) {
			return "", nil
		}
		span.RecordError(err)
		return "", fmt.Errorf("failed to get latest version for site %d: %w", siteID, err)
	}
	return version, nil
}
