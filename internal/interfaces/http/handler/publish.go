// Package handler 提供 HTTP 请求处理器
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"site-prerender-api/internal/application/publish"
	"site-prerender-api/internal/interfaces/http/dto"
	"site-prerender-api/pkg/errors"
	"site-prerender-api/pkg/logger"
)

// PublishHandler 发布处理器
type PublishHandler struct {
	service *publish.Service
}

// NewPublishHandler 创建发布处理器
func NewPublishHandler(service *publish.Service) *PublishHandler {
	return &PublishHandler{
		service: service,
	}
}

// bindSiteID 解析路径中的站点 ID
func bindSiteID(c *gin.Context) (int, bool) {
	siteID, err := strconv.Atoi(c.Param("id"))
	if err != nil || siteID <= 0 {
		dto.BadRequest(c, "invalid site id")
		return 0, false
	}
	return siteID, true
}

// respondAppError 将应用错误映射为 HTTP 响应
func respondAppError(c *gin.Context, err error, fallback string) {
	if appErr := errors.AsAppError(err); appErr != nil {
		dto.ErrorWithDetail(c, appErr.HTTPStatus, appErr.Message, &dto.ErrorDetail{
			ErrorCode: string(appErr.Code),
			Details:   appErr.Detail,
		})
		return
	}
	logger.Error(c.Request.Context(), fallback, err)
	dto.InternalError(c, fallback)
}

// Publish 同步发布站点
// @Summary 发布站点产物
// @Description 生成站点快照并发布到对象存储，同一站点同时只允许一次发布
// @Tags Publish
// @Accept json
// @Produce json
// @Param id path int true "站点 ID"
// @Success 200 {object} dto.Response[dto.PublishResponse]
// @Failure 404 {object} dto.ErrorResponse "站点不存在"
// @Failure 409 {object} dto.ErrorResponse "该站点已有发布在进行中"
// @Failure 503 {object} dto.ErrorResponse "协调器不可用"
// @Router /v1/sites/{id}/publish [post]
func (h *PublishHandler) Publish(c *gin.Context) {
	siteID, ok := bindSiteID(c)
	if !ok {
		return
	}

	result, err := h.service.PublishSite(c.Request.Context(), siteID)
	if err != nil {
		respondAppError(c, err, "failed to publish site")
		return
	}

	dto.Success(c, dto.NewPublishResponse(result))
}

// PublishAsync 异步发布站点
// @Summary 异步发布站点产物
// @Description 将发布任务投递到队列，由 worker 执行
// @Tags Publish
// @Accept json
// @Produce json
// @Param id path int true "站点 ID"
// @Param request body dto.PublishRequest false "触发信息"
// @Success 202 {object} dto.Response[dto.PublishJobResponse]
// @Router /v1/sites/{id}/publish/async [post]
func (h *PublishHandler) PublishAsync(c *gin.Context) {
	siteID, ok := bindSiteID(c)
	if !ok {
		return
	}

	var req dto.PublishRequest
	// 请求体可选，解析失败按空处理
	_ = c.ShouldBindJSON(&req)

	jobID, err := h.service.EnqueuePublish(c.Request.Context(), siteID, c.GetString("user_id"), req.Reason)
	if err != nil {
		respondAppError(c, err, "failed to enqueue publish job")
		return
	}

	dto.Accepted(c, dto.PublishJobResponse{
		JobID:  jobID,
		SiteID: siteID,
		Status: "queued",
	})
}

// State 查询发布状态
// @Summary 查询发布状态
// @Description 返回站点当前已发布版本的指针状态
// @Tags Publish
// @Produce json
// @Param id path int true "站点 ID"
// @Success 200 {object} dto.Response[dto.PublishStateResponse]
// @Failure 404 {object} dto.ErrorResponse "站点尚未发布"
// @Router /v1/sites/{id}/publish/state [get]
func (h *PublishHandler) State(c *gin.Context) {
	siteID, ok := bindSiteID(c)
	if !ok {
		return
	}

	state, err := h.service.State(c.Request.Context(), siteID)
	if err != nil {
		respondAppError(c, err, "failed to read publish state")
		return
	}

	dto.Success(c, dto.NewPublishStateResponse(siteID, state))
}

// Version 查询当前版本
// @Summary 查询当前版本号
// @Description 走去规范化版本键的快速查询
// @Tags Publish
// @Produce json
// @Param id path int true "站点 ID"
// @Success 200 {object} dto.Response[dto.VersionResponse]
// @Failure 404 {object} dto.ErrorResponse "站点尚未发布"
// @Router /v1/sites/{id}/publish/version [get]
func (h *PublishHandler) Version(c *gin.Context) {
	siteID, ok := bindSiteID(c)
	if !ok {
		return
	}

	version, err := h.service.LatestVersion(c.Request.Context(), siteID)
	if err != nil {
		respondAppError(c, err, "failed to read latest version")
		return
	}

	dto.Success(c, dto.VersionResponse{SiteID: siteID, Version: version})
}

// Manifest 查询清单
// @Summary 查询发布清单
// @Description 由当前发布状态派生的清单及其公开地址
// @Tags Publish
// @Produce json
// @Param id path int true "站点 ID"
// @Success 200 {object} dto.Response[dto.ManifestResponse]
// @Failure 404 {object} dto.ErrorResponse "站点尚未发布"
// @Router /v1/sites/{id}/publish/manifest [get]
func (h *PublishHandler) Manifest(c *gin.Context) {
	siteID, ok := bindSiteID(c)
	if !ok {
		return
	}

	manifest, url, err := h.service.Manifest(c.Request.Context(), siteID)
	if err != nil {
		respondAppError(c, err, "failed to derive manifest")
		return
	}

	dto.Success(c, dto.ManifestResponse{
		SiteID:   siteID,
		Manifest: manifest,
		URL:      url,
	})
}
