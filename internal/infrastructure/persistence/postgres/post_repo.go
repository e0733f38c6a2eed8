// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"site-prerender-api/internal/domain/entity"
)

// PostRepository 文章仓储实现
type PostRepository struct {
	client *Client
}

// NewPostRepository 创建文章仓储
func NewPostRepository(client *Client) *PostRepository {
	return &PostRepository{client: client}
}

// ListPublishedBySection 获取栏目内已发布文章。
// order 升序，相同 order 时最近更新的在前；块按 order 升序预加载
func (r *PostRepository) ListPublishedBySection(ctx context.Context, siteID, sectionID int) ([]*entity.Post, error) {
	ctx, span := tracer.Start(ctx, "postgres.PostRepository.ListPublishedBySection")
	defer span.End()

	var posts []*entity.Post
	if err := r.client.db.WithContext(ctx).
		Where("site_id = ? AND section_id = ? AND published = ?", siteID, sectionID, true).
		Preload("Blocks", func(db *gorm.DB) *gorm.DB {
			return db.Order("post_blocks.\"order\" ASC")
		}).
		Order("\"order\" ASC").
		Order("updated_at DESC").
		Find(&posts).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list published posts: %w", err)
	}
	return posts, nil
}
