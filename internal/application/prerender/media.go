package prerender

import (
	"regexp"
	"strings"
)

var (
	absoluteURLPattern = regexp.MustCompile(`(?i)^(https?:)?//`)
	videoHostPattern   = regexp.MustCompile(`youtube\.com|youtu\.be|vimeo\.com|player\.vimeo\.com`)
	videoFilePattern   = regexp.MustCompile(`\.(mp4|mov|webm|ogg)(\?.*)?$`)
	externalPattern    = regexp.MustCompile(`(?i)^(https?://|mailto:|tel:)`)
)

// MediaResolver 将内容块中的媒体路径解析为公开地址。
// JSON bootstrap 与 HTML 渲染路径共用同一实例，保证两侧地址一致
type MediaResolver struct {
	base string
}

// NewMediaResolver 创建媒体地址解析器，base 为空表示保持相对路径
func NewMediaResolver(base string) *MediaResolver {
	return &MediaResolver{base: strings.TrimRight(base, "/")}
}

// Resolve 解析媒体地址：绝对地址（含协议相对）原样返回，
// 相对路径拼接配置的基址，未配置基址时保持不变
func (r *MediaResolver) Resolve(url string) string {
	if url == "" {
		return ""
	}
	if absoluteURLPattern.MatchString(url) {
		return url
	}
	if r.base != "" {
		return r.base + "/" + strings.TrimLeft(url, "/")
	}
	return url
}

// ResolveAll 批量解析，保持顺序
func (r *MediaResolver) ResolveAll(urls []string) []string {
	if urls == nil {
		return nil
	}
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		out = append(out, r.Resolve(u))
	}
	return out
}

// ClassifyVideo 按视频地址模式生成渲染描述：
// YouTube/Vimeo 域名走 iframe，文件扩展名或站内路径走原生 video，
// 其余返回 nil（不渲染视频，不是错误）
func ClassifyVideo(src, title string) *VideoDescriptor {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil
	}
	if videoHostPattern.MatchString(src) {
		return &VideoDescriptor{Type: "iframe", Src: src, Title: title}
	}
	if videoFilePattern.MatchString(src) || strings.HasPrefix(src, "/") {
		return &VideoDescriptor{Type: "video", Src: src, Title: title}
	}
	return nil
}

// IsExternalLink 判断链接是否指向站外（http(s)/mailto/tel 前缀）
func IsExternalLink(href string) bool {
	return externalPattern.MatchString(href)
}

var whitespacePattern = regexp.MustCompile(`\s+`)

// CollapseTruncate 折叠连续空白为单个空格并按字符数截断，
// 截断以 rune 计，避免切断多字节字符
func CollapseTruncate(s string, limit int) string {
	collapsed := whitespacePattern.ReplaceAllString(s, " ")
	runes := []rune(collapsed)
	if len(runes) > limit {
		runes = runes[:limit]
	}
	return strings.TrimSpace(string(runes))
}
