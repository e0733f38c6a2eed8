// Package prerender 实现站点内容到发布产物的转换
package prerender

import (
	"time"

	"site-prerender-api/internal/domain/entity"
)

// 产物文件名
const (
	ArtifactBootstrap    = "posts_bootstrap.json"
	ArtifactBootstrapMin = "posts_bootstrap.min.json"
	ArtifactHTML         = "posts.html"
)

// Bootstrap 完整的站点快照，供前端水合
type Bootstrap struct {
	LandingSlides []string              `json:"landingSlides"`
	Releases      []Release             `json:"releases"`
	LiveProjects  []LiveProject         `json:"liveProjects"`
	LiveDetailMap map[string]LiveDetail `json:"liveDetailMap"`
	BioSections   []BioSection          `json:"bioSections"`
	ContactLinks  []ContactLink         `json:"contactLinks"`
	Meta          Meta                  `json:"_meta"`
}

// MinBootstrap 精简快照，仅含首屏所需的 top-N 项目
type MinBootstrap struct {
	LiveProjects  []LiveProject            `json:"liveProjects"`
	LiveDetailMap map[string]MinLiveDetail `json:"liveDetailMap"`
	Meta          Meta                     `json:"_meta"`
}

// Meta 快照元信息
type Meta struct {
	GeneratedAt string `json:"generatedAt"`
	SiteID      int    `json:"siteId"`
	Minimal     bool   `json:"minimal,omitempty"`
}

// Release 发行条目，href 与 title 均非空才会收录
type Release struct {
	Href  string `json:"href"`
	Title string `json:"title"`
	Image string `json:"image"`
	Order int    `json:"order"`
}

// LiveProject 现场/放映项目列表项
type LiveProject struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Image string `json:"image"`
	Order int    `json:"order"`
}

// VideoDescriptor 视频渲染描述，按来源分为 iframe 与原生 video 两类
type VideoDescriptor struct {
	Type  string `json:"type"`
	Src   string `json:"src"`
	Title string `json:"title"`
}

// LiveDetail 详情页水合数据，按文章 slug 索引
type LiveDetail struct {
	Title           string             `json:"title"`
	Video           *VideoDescriptor   `json:"video"`
	PrimaryImages   []string           `json:"primaryImages"`
	SecondaryImages []string           `json:"secondaryImages"`
	Description     string             `json:"description"`
	Images          []string           `json:"images"`
	Blocks          []entity.PostBlock `json:"blocks"`
	Content         string             `json:"content"`
	Metadata        map[string]any     `json:"metadata"`
	Order           int                `json:"order"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// MinLiveDetail 精简详情，描述经空白折叠并截断
type MinLiveDetail struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

// BioSection 简介区块，title 非空才会收录
type BioSection struct {
	Order int    `json:"order"`
	Title string `json:"title"`
	HTML  string `json:"html"`
}

// ContactLink 联系链接，label 与 href 均非空才会收录
type ContactLink struct {
	Order      int    `json:"order"`
	Label      string `json:"label"`
	Href       string `json:"href"`
	IsExternal bool   `json:"is_external"`
}
