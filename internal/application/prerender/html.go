package prerender

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"site-prerender-api/internal/domain/entity"
)

var (
	paragraphBreakPattern = regexp.MustCompile(`(?i)</p>\s*<p>`)
	leadingParagraph      = regexp.MustCompile(`^<p>`)
	trailingParagraph     = regexp.MustCompile(`</p>$`)
)

// formatSessionTitle 将多段标题的段落边界折叠为换行
func formatSessionTitle(title string) string {
	title = paragraphBreakPattern.ReplaceAllString(title, "<br>")
	title = leadingParagraph.ReplaceAllString(title, "")
	title = trailingParagraph.ReplaceAllString(title, "")
	return title
}

// htmlRenderer 渲染 posts.html：sessions 栏目的服务端 HTML 片段，
// 供期望直出 HTML 而非 JSON bootstrap 的站点前端使用
type htmlRenderer struct {
	media *MediaResolver
}

// renderSession 渲染单篇文章为 <section class="session">。
// 前两个 text 块映射为 horario/描述；图片块中首张 eager/high，
// 其余 lazy/auto；恰好两张图片时容器使用双图布局类
func (r *htmlRenderer) renderSession(post *entity.Post, index int) string {
	textBlocks := post.BlocksOfType(entity.BlockTypeText)

	horario := ""
	if len(textBlocks) > 0 {
		horario = textBlocks[0].Content
	}
	if horario == "" && post.Metadata != nil {
		if h, ok := post.Metadata["horario"].(string); ok {
			horario = h
		}
	}

	description := ""
	switch {
	case len(textBlocks) > 1:
		description = textBlocks[1].Content
	case len(textBlocks) == 1:
		description = textBlocks[0].Content
	default:
		description = post.Content
	}

	var images []*entity.PostBlock
	for _, b := range post.BlocksOfType(entity.BlockTypeImage) {
		if strings.TrimSpace(b.Content) != "" {
			images = append(images, b)
		}
	}

	// 排序号优先取显式 order，负值回落到位置序号
	sessionNum := fmt.Sprintf("Sessão %d", index+1)
	if post.Order >= 0 {
		sessionNum = fmt.Sprintf("Sessão %d", post.Order+1)
	}

	containerClass := "imagem-sessao"
	if len(images) == 2 {
		containerClass = "imagem-sessao imagem-sessao--two"
	}

	primaryThumb := ""
	if len(images) > 0 {
		primaryThumb = images[0].Content
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<section class=\"session\" data-post-id=\"%d\" data-slug=\"%s\" data-updated-at=\"%s\" data-thumb=\"%s\">\n",
		post.ID, post.Slug, post.UpdatedAt.UTC().Format(time.RFC3339), primaryThumb)
	fmt.Fprintf(&b, "  <p class=\"session-num\">%s</p>\n", sessionNum)
	if horario != "" {
		fmt.Fprintf(&b, "  <p class=\"horario\">%s</p>\n", horario)
	}
	fmt.Fprintf(&b, "  <h2 class=\"filme\">%s</h2>\n", formatSessionTitle(post.Title))
	if description != "" {
		fmt.Fprintf(&b, "  <div class=\"descricao\">%s</div>\n", description)
	}
	if len(images) > 0 {
		fmt.Fprintf(&b, "  <div class=\"%s\">\n", containerClass)
		for i, img := range images {
			loading, priority := "lazy", "auto"
			if i == 0 {
				loading, priority = "eager", "high"
			}
			alt := post.Title
			if img.Metadata != nil && img.Metadata.Alt != "" {
				alt = img.Metadata.Alt
			}
			fmt.Fprintf(&b, "    <img src=\"%s\" alt=\"%s\" class=\"movie-img\" loading=\"%s\" fetchpriority=\"%s\">\n",
				r.media.Resolve(img.Content), alt, loading, priority)
		}
		b.WriteString("  </div>\n")
	}
	b.WriteString("</section>")
	return b.String()
}

// renderDocument 渲染完整的 posts.html 文档
func (r *htmlRenderer) renderDocument(site *entity.Site, posts []*entity.Post, generatedAt time.Time) string {
	sections := make([]string, 0, len(posts))
	for i, p := range posts {
		sections = append(sections, r.renderSession(p, i))
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"pt\">\n<head>\n")
	b.WriteString("  <meta charset=\"UTF-8\">\n")
	b.WriteString("  <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&b, "  <title>Sessões - %s</title>\n", site.Name)
	fmt.Fprintf(&b, "  <meta name=\"generated-at\" content=\"%s\">\n", generatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
	b.WriteString("</head>\n<body>\n")
	b.WriteString(strings.Join(sections, "\n"))
	b.WriteString("\n</body>\n</html>")
	return b.String()
}
