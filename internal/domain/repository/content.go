// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"site-prerender-api/internal/domain/entity"
)

// SiteRepository 站点仓储接口（只读）
type SiteRepository interface {
	// GetByID 根据 ID 获取站点，不存在返回携带 CodeSiteNotFound 的错误
	GetByID(ctx context.Context, id int) (*entity.Site, error)
}

// SectionRepository 栏目仓储接口（只读）
type SectionRepository interface {
	// ListBySite 获取站点的全部栏目，按创建时间排序
	ListBySite(ctx context.Context, siteID int) ([]*entity.Section, error)
}

// PostRepository 文章仓储接口（只读）
type PostRepository interface {
	// ListPublishedBySection 获取栏目内已发布文章，
	// 按 order 升序、updated_at 降序排序，块按 order 升序预加载
	ListPublishedBySection(ctx context.Context, siteID, sectionID int) ([]*entity.Post, error)
}
