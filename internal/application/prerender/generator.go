package prerender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/tdewolff/minify/v2"
	mhtml "github.com/tdewolff/minify/v2/html"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"site-prerender-api/internal/config"
	"site-prerender-api/internal/domain/entity"
	"site-prerender-api/internal/domain/repository"
	"site-prerender-api/pkg/errors"
	"site-prerender-api/pkg/logger"
	"site-prerender-api/pkg/metrics"
)

var tracer = otel.Tracer("application.prerender")

// Generator 产物生成器：读取站点内容，产出一组命名产物。
// 对内容库只读，无副作用；时钟可注入以保证输出可复现
type Generator struct {
	sites    repository.SiteRepository
	sections repository.SectionRepository
	posts    repository.PostRepository
	cfg      *config.PrerenderConfig
	media    *MediaResolver
	minifier *minify.M
	now      func() time.Time
}

// NewGenerator 创建产物生成器
func NewGenerator(cfg *config.PrerenderConfig, sites repository.SiteRepository, sections repository.SectionRepository, posts repository.PostRepository) *Generator {
	var m *minify.M
	if cfg.MinifyHTML {
		m = minify.New()
		m.AddFunc("text/html", mhtml.Minify)
	}

	return &Generator{
		sites:    sites,
		sections: sections,
		posts:    posts,
		cfg:      cfg,
		media:    NewMediaResolver(cfg.MediaBaseURL),
		minifier: m,
		now:      time.Now,
	}
}

// roleSlugs 角色的 slug 候选列表，未配置时使用默认值
func (g *Generator) roleSlugs(role Role) []string {
	if slugs, ok := g.cfg.Roles[string(role)]; ok && len(slugs) > 0 {
		return slugs
	}
	return DefaultRoleSlugs()[string(role)]
}

// htmlSectionSlugs posts.html 渲染栏目的候选 slug
func (g *Generator) htmlSectionSlugs() []string {
	if len(g.cfg.HTMLSectionSlugs) > 0 {
		return g.cfg.HTMLSectionSlugs
	}
	return DefaultHTMLSectionSlugs()
}

// Generate 为站点生成全部产物。内容查询失败时整体失败，
// 不返回部分产物；站点无内容时返回空集合而非错误
func (g *Generator) Generate(ctx context.Context, siteID int) (entity.ArtifactSet, error) {
	ctx, span := tracer.Start(ctx, "generator.Generate",
		trace.WithAttributes(attribute.Int("site_id", siteID)))
	defer span.End()

	start := g.now()
	defer func() {
		metrics.GenerateDuration.WithLabelValues(strconv.Itoa(siteID)).Observe(time.Since(start).Seconds())
	}()

	site, err := g.sites.GetByID(ctx, siteID)
	if err != nil {
		span.RecordError(err)
		logger.Error(ctx, "failed to load site for generation", err, "site_id", siteID)
		return nil, err
	}
	if site == nil {
		return nil, errors.ErrSiteNotFound.WithDetail(fmt.Sprintf("site %d", siteID))
	}

	sections, err := g.sections.ListBySite(ctx, siteID)
	if err != nil {
		span.RecordError(err)
		logger.Error(ctx, "failed to list sections", err, "site_id", siteID)
		return nil, err
	}
	idx := indexSections(sections)

	roleSections := map[Role]*entity.Section{
		RoleLanding:  idx.resolve(g.roleSlugs(RoleLanding)),
		RoleReleases: idx.resolve(g.roleSlugs(RoleReleases)),
		RoleLive:     idx.resolve(g.roleSlugs(RoleLive)),
		RoleBio:      idx.resolve(g.roleSlugs(RoleBio)),
		RoleContact:  idx.resolve(g.roleSlugs(RoleContact)),
	}

	rolePosts := make(map[Role][]*entity.Post, len(roleSections))
	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	for role, section := range roleSections {
		if section == nil {
			rolePosts[role] = nil
			continue
		}
		role, section := role, section
		eg.Go(func() error {
			posts, err := g.posts.ListPublishedBySection(egCtx, siteID, section.ID)
			if err != nil {
				return fmt.Errorf("failed to fetch posts for role %s: %w", role, err)
			}
			mu.Lock()
			rolePosts[role] = posts
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		span.RecordError(err)
		logger.Error(ctx, "failed to fetch role posts", err, "site_id", siteID)
		return nil, err
	}

	bootstrap := g.buildBootstrap(siteID, rolePosts)

	artifacts := make(entity.ArtifactSet, 3)
	full, err := marshalIndentedJSON(bootstrap)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to encode bootstrap: %w", err)
	}
	artifacts[ArtifactBootstrap] = full

	minimal, err := marshalCompactJSON(g.buildMinBootstrap(siteID, bootstrap))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to encode minimal bootstrap: %w", err)
	}
	artifacts[ArtifactBootstrapMin] = minimal

	if site.RendersHTML {
		htmlSection := idx.resolve(g.htmlSectionSlugs())
		if htmlSection != nil {
			posts, err := g.posts.ListPublishedBySection(ctx, siteID, htmlSection.ID)
			if err != nil {
				span.RecordError(err)
				logger.Error(ctx, "failed to fetch html section posts", err, "site_id", siteID)
				return nil, err
			}
			renderer := &htmlRenderer{media: g.media}
			doc := renderer.renderDocument(site, posts, g.now())
			artifacts[ArtifactHTML] = []byte(g.minifyHTML(ctx, doc))
		}
	}

	span.SetAttributes(attribute.Int("artifact_count", len(artifacts)))
	logger.Info(ctx, "artifacts generated",
		"site_id", siteID,
		"artifact_count", len(artifacts),
	)
	return artifacts, nil
}

// buildBootstrap 构建完整快照
func (g *Generator) buildBootstrap(siteID int, rolePosts map[Role][]*entity.Post) *Bootstrap {
	b := &Bootstrap{
		LandingSlides: []string{},
		Releases:      []Release{},
		LiveProjects:  []LiveProject{},
		LiveDetailMap: map[string]LiveDetail{},
		BioSections:   []BioSection{},
		ContactLinks:  []ContactLink{},
		Meta: Meta{
			GeneratedAt: g.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			SiteID:      siteID,
		},
	}

	// 首屏幻灯片：landing 首篇文章的第一个 slideshow 块
	if landing := rolePosts[RoleLanding]; len(landing) > 0 {
		if slides := landing[0].FirstBlockOfType(entity.BlockTypeSlideshow); slides != nil {
			b.LandingSlides = append(b.LandingSlides, g.media.ResolveAll(slides.SlideURLs())...)
		}
	}

	for _, p := range rolePosts[RoleReleases] {
		href := blockContent(p.FirstBlockOfType(entity.BlockTypeLink))
		if href == "" || p.Title == "" {
			continue
		}
		b.Releases = append(b.Releases, Release{
			Href:  href,
			Title: p.Title,
			Image: g.media.Resolve(blockContent(p.FirstBlockOfType(entity.BlockTypeImage))),
			Order: p.Order,
		})
	}
	sort.SliceStable(b.Releases, func(i, j int) bool { return b.Releases[i].Order < b.Releases[j].Order })

	for _, p := range rolePosts[RoleLive] {
		if p.Slug == "" {
			continue
		}
		b.LiveProjects = append(b.LiveProjects, LiveProject{
			Slug:  p.Slug,
			Title: p.Title,
			Image: g.media.Resolve(blockContent(p.FirstBlockOfType(entity.BlockTypeImage))),
			Order: p.Order,
		})
		b.LiveDetailMap[p.Slug] = g.buildLiveDetail(p)
	}
	sort.SliceStable(b.LiveProjects, func(i, j int) bool { return b.LiveProjects[i].Order < b.LiveProjects[j].Order })

	for _, p := range rolePosts[RoleBio] {
		if p.Title == "" {
			continue
		}
		b.BioSections = append(b.BioSections, BioSection{
			Order: p.Order,
			Title: p.Title,
			HTML:  blockContent(p.FirstBlockOfType(entity.BlockTypeText)),
		})
	}
	sort.SliceStable(b.BioSections, func(i, j int) bool { return b.BioSections[i].Order < b.BioSections[j].Order })

	for _, p := range rolePosts[RoleContact] {
		href := blockContent(p.FirstBlockOfType(entity.BlockTypeLink))
		if p.Title == "" || href == "" {
			continue
		}
		b.ContactLinks = append(b.ContactLinks, ContactLink{
			Order:      p.Order,
			Label:      p.Title,
			Href:       href,
			IsExternal: IsExternalLink(href),
		})
	}
	sort.SliceStable(b.ContactLinks, func(i, j int) bool { return b.ContactLinks[i].Order < b.ContactLinks[j].Order })

	return b
}

// buildLiveDetail 构建详情页水合数据
func (g *Generator) buildLiveDetail(p *entity.Post) LiveDetail {
	slideshows := p.BlocksOfType(entity.BlockTypeSlideshow)
	var primary, secondary []string
	if len(slideshows) > 0 {
		primary = g.media.ResolveAll(slideshows[0].SlideURLs())
	}
	if len(slideshows) > 1 {
		secondary = g.media.ResolveAll(slideshows[1].SlideURLs())
	}

	var video *VideoDescriptor
	if vb := p.FirstBlockOfType(entity.BlockTypeVideo); vb != nil {
		video = ClassifyVideo(vb.Content, p.Title)
	}

	images := []string{}
	for _, b := range p.BlocksOfType(entity.BlockTypeImage) {
		if b.Content != "" {
			images = append(images, g.media.Resolve(b.Content))
		}
	}

	title := p.Title
	if title == "" {
		title = p.Slug
	}

	blocks := p.Blocks
	if blocks == nil {
		blocks = []entity.PostBlock{}
	}
	meta := p.Metadata
	if meta == nil {
		meta = map[string]any{}
	}

	return LiveDetail{
		Title:           title,
		Video:           video,
		PrimaryImages:   primary,
		SecondaryImages: secondary,
		Description:     p.TextContent(),
		Images:          images,
		Blocks:          blocks,
		Content:         p.Content,
		Metadata:        meta,
		Order:           p.Order,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

// buildMinBootstrap 构建精简快照：top-N 项目 + 截断描述，
// 面向完整 bootstrap 加载前的快速首屏
func (g *Generator) buildMinBootstrap(siteID int, full *Bootstrap) *MinBootstrap {
	topN := g.cfg.MinTopN
	if topN <= 0 {
		topN = 3
	}
	limit := g.cfg.MinDescriptionLimit
	if limit <= 0 {
		limit = 160
	}

	top := full.LiveProjects
	if len(top) > topN {
		top = top[:topN]
	}

	mb := &MinBootstrap{
		LiveProjects:  append([]LiveProject{}, top...),
		LiveDetailMap: map[string]MinLiveDetail{},
		Meta: Meta{
			GeneratedAt: g.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			SiteID:      siteID,
			Minimal:     true,
		},
	}

	for _, p := range top {
		d, ok := full.LiveDetailMap[p.Slug]
		if !ok {
			continue
		}
		mb.LiveDetailMap[p.Slug] = MinLiveDetail{
			Title:       d.Title,
			Description: CollapseTruncate(d.Description, limit),
			Order:       d.Order,
		}
	}
	return mb
}

// minifyHTML 压缩 HTML 产物，未启用或压缩失败时返回原文
func (g *Generator) minifyHTML(ctx context.Context, doc string) string {
	if g.minifier == nil {
		return doc
	}
	out, err := g.minifier.String("text/html", doc)
	if err != nil {
		logger.Warn(ctx, "html minification failed, using original", "error", err)
		return doc
	}
	return out
}

// blockContent 取块内容，nil 块视为空
func blockContent(b *entity.PostBlock) string {
	if b == nil {
		return ""
	}
	return b.Content
}

// marshalIndentedJSON 两空格缩进编码，不转义 HTML 字符，
// 保证相同输入产生字节一致的输出
func marshalIndentedJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// marshalCompactJSON 紧凑编码，不转义 HTML 字符
func marshalCompactJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
