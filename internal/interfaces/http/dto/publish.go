// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"site-prerender-api/internal/domain/entity"
)

// PublishRequest 发布触发请求体（可选）
type PublishRequest struct {
	// Reason 触发原因，写入任务元数据，便于追查谁在什么时机发布
	Reason string `json:"reason,omitempty"`
}

// PublishResponse 同步发布响应
type PublishResponse struct {
	SiteID     int               `json:"site_id"`
	Version    string            `json:"version"`
	Files      map[string]string `json:"files"`
	DurationMS int64             `json:"duration_ms"`
}

// NewPublishResponse 由发布结果构建响应
func NewPublishResponse(result *entity.PublishResult) PublishResponse {
	return PublishResponse{
		SiteID:     result.SiteID,
		Version:    result.Version,
		Files:      result.Files,
		DurationMS: result.DurationMS,
	}
}

// PublishJobResponse 异步发布响应
type PublishJobResponse struct {
	JobID  string `json:"job_id"`
	SiteID int    `json:"site_id"`
	Status string `json:"status"`
}

// PublishStateResponse 发布状态响应
type PublishStateResponse struct {
	SiteID    int               `json:"site_id"`
	Version   string            `json:"version"`
	Files     map[string]string `json:"files"`
	UpdatedAt int64             `json:"updated_at"`
}

// NewPublishStateResponse 由发布状态构建响应
func NewPublishStateResponse(siteID int, state *entity.PublishState) PublishStateResponse {
	return PublishStateResponse{
		SiteID:    siteID,
		Version:   state.Version,
		Files:     state.Files,
		UpdatedAt: state.UpdatedAt,
	}
}

// VersionResponse 版本快速查询响应
type VersionResponse struct {
	SiteID  int    `json:"site_id"`
	Version string `json:"version"`
}

// ManifestResponse 清单查询响应，URL 为对象存储中的公开地址
type ManifestResponse struct {
	SiteID   int              `json:"site_id"`
	Manifest *entity.Manifest `json:"manifest"`
	URL      string           `json:"url"`
}
