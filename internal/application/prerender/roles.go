package prerender

import "site-prerender-api/internal/domain/entity"

// Role 栏目的语义角色，通过 slug 候选列表解析
type Role string

const (
	RoleLanding  Role = "landing"
	RoleReleases Role = "releases"
	RoleLive     Role = "live"
	RoleBio      Role = "bio"
	RoleContact  Role = "contact"
)

// DefaultRoleSlugs 各角色的默认 slug 候选列表，按顺序匹配，
// 覆盖葡语/英语双语站点的常见命名
func DefaultRoleSlugs() map[string][]string {
	return map[string][]string{
		string(RoleLanding):  {"landing", "inicio", "home"},
		string(RoleReleases): {"releases", "lancamentos"},
		string(RoleLive):     {"live", "sessions", "sessoes"},
		string(RoleBio):      {"bio", "sobre", "quem-somos"},
		string(RoleContact):  {"contact", "contato"},
	}
}

// DefaultHTMLSectionSlugs posts.html 渲染栏目的默认候选 slug
func DefaultHTMLSectionSlugs() []string {
	return []string{"main", "sessions"}
}

// sectionIndex slug 到栏目的索引
type sectionIndex map[string]*entity.Section

// indexSections 构建 slug 索引，空 slug 忽略
func indexSections(sections []*entity.Section) sectionIndex {
	idx := make(sectionIndex, len(sections))
	for _, s := range sections {
		if s.Slug != "" {
			idx[s.Slug] = s
		}
	}
	return idx
}

// resolve 按候选 slug 顺序解析栏目，未命中返回 nil（不是错误）
func (idx sectionIndex) resolve(candidates []string) *entity.Section {
	for _, slug := range candidates {
		if s, ok := idx[slug]; ok {
			return s
		}
	}
	return nil
}
