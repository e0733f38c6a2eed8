// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"site-prerender-api/internal/domain/entity"
	"site-prerender-api/pkg/errors"
)

// SiteRepository 站点仓储实现
type SiteRepository struct {
	client *Client
}

// NewSiteRepository 创建站点仓储
func NewSiteRepository(client *Client) *SiteRepository {
	return &SiteRepository{client: client}
}

// GetByID 根据 ID 获取站点，不存在返回 ErrSiteNotFound
func (r *SiteRepository) GetByID(ctx context.Context, id int) (*entity.Site, error) {
	ctx, span := tracer.Start(ctx, "postgres.SiteRepository.GetByID")
	defer span.End()

	var site entity.Site
	if err := r.client.db.WithContext(ctx).First(&site, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrSiteNotFound.WithDetail(fmt.Sprintf("site %d", id))
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get site: %w", err)
	}
	return &site, nil
}
