// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"time"

	"site-prerender-api/internal/domain/entity"
)

// PublishStateStore 发布状态协调器接口：按站点提供互斥锁与版本指针。
// 除单键原子性外不提供事务保证
type PublishStateStore interface {
	// AcquireLock 尝试获取站点发布锁（set-if-not-exists 带过期），
	// 返回 true 表示调用方现在持有锁
	AcquireLock(ctx context.Context, siteID int, ttl time.Duration) (bool, error)

	// ReleaseLock 无条件删除锁键。每次成功的 AcquireLock 必须恰好对应一次调用
	ReleaseLock(ctx context.Context, siteID int) error

	// SetState 覆盖写入发布状态，最后写入者胜出
	SetState(ctx context.Context, siteID int, state *entity.PublishState) error

	// GetState 读取发布状态，不存在返回 nil
	GetState(ctx context.Context, siteID int) (*entity.PublishState, error)

	// SetLatestVersion 写入去规范化的版本键，供只需版本号的消费方快速查询
	SetLatestVersion(ctx context.Context, siteID int, version string, ttl time.Duration) error

	// GetLatestVersion 读取版本键，不存在返回空字符串
	GetLatestVersion(ctx context.Context, siteID int) (string, error)
}

// UploadOptions 对象上传选项
type UploadOptions struct {
	ContentType  string
	CacheControl string
}

// ObjectStore 对象存储接口。Upload 覆盖同名路径是安全的幂等操作
type ObjectStore interface {
	Upload(ctx context.Context, path string, data []byte, opts UploadOptions) error

	// PublicURL 由桶配置和路径确定的公开访问地址
	PublicURL(path string) string
}
