// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"site-prerender-api/internal/domain/entity"
)

// SectionRepository 栏目仓储实现
type SectionRepository struct {
	client *Client
}

// NewSectionRepository 创建栏目仓储
func NewSectionRepository(client *Client) *SectionRepository {
	return &SectionRepository{client: client}
}

// ListBySite 获取站点的全部栏目，按创建时间排序
func (r *SectionRepository) ListBySite(ctx context.Context, siteID int) ([]*entity.Section, error) {
	ctx, span := tracer.Start(ctx, "postgres.SectionRepository.ListBySite")
	defer span.End()

	var sections []*entity.Section
	if err := r.client.db.WithContext(ctx).
		Where("site_id = ?", siteID).
		Order("created_at ASC").
		Find(&sections).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	return sections, nil
}
