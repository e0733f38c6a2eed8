// Package entity 定义领域实体
package entity

import (
	"strings"
	"time"
)

// BlockType 内容块类型
type BlockType string

const (
	BlockTypeText      BlockType = "text"
	BlockTypeImage     BlockType = "image"
	BlockTypeVideo     BlockType = "video"
	BlockTypeLink      BlockType = "link"
	BlockTypeSlideshow BlockType = "slideshow"
)

// SlideImage 幻灯片条目
type SlideImage struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

// BlockMetadata 块元数据，字段按块类型取用：
// image 块使用 Alt/Caption，slideshow 块使用 Images，
// text 块（sessions 渲染）可携带 Horario
type BlockMetadata struct {
	Alt     string       `json:"alt,omitempty"`
	Caption string       `json:"caption,omitempty"`
	Images  []SlideImage `json:"images,omitempty"`
	Horario string       `json:"horario,omitempty"`
}

// PostBlock 内容块实体
type PostBlock struct {
	ID       int            `json:"id" gorm:"primaryKey"`
	PostID   int            `json:"post_id" gorm:"index;not null"`
	Type     BlockType      `json:"type" gorm:"type:varchar(50);not null"`
	Content  string         `json:"content" gorm:"type:text"`
	Order    int            `json:"order" gorm:"column:order;default:0"`
	Metadata *BlockMetadata `json:"metadata,omitempty" gorm:"type:jsonb;serializer:json"`
}

// TableName 指定表名
func (PostBlock) TableName() string {
	return "post_blocks"
}

// SlideURLs 返回 slideshow 块的非空图片地址
func (b *PostBlock) SlideURLs() []string {
	if b == nil || b.Metadata == nil {
		return nil
	}
	urls := make([]string, 0, len(b.Metadata.Images))
	for _, img := range b.Metadata.Images {
		if img.URL != "" {
			urls = append(urls, img.URL)
		}
	}
	return urls
}

// Post 文章实体
type Post struct {
	ID        int            `json:"id" gorm:"primaryKey"`
	SiteID    int            `json:"site_id" gorm:"index;not null"`
	SectionID int            `json:"section_id" gorm:"index;not null"`
	Slug      string         `json:"slug" gorm:"type:varchar(255)"`
	Title     string         `json:"title" gorm:"type:text"`
	Content   string         `json:"content,omitempty" gorm:"type:text"`
	Order     int            `json:"order" gorm:"column:order;default:0"`
	Published bool           `json:"published" gorm:"default:false"`
	Metadata  map[string]any `json:"metadata,omitempty" gorm:"type:jsonb;serializer:json"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`

	Blocks []PostBlock `json:"blocks,omitempty" gorm:"foreignKey:PostID"`
}

// TableName 指定表名
func (Post) TableName() string {
	return "posts"
}

// FirstBlockOfType 返回第一个指定类型的块
func (p *Post) FirstBlockOfType(t BlockType) *PostBlock {
	for i := range p.Blocks {
		if p.Blocks[i].Type == t {
			return &p.Blocks[i]
		}
	}
	return nil
}

// BlocksOfType 返回所有指定类型的块，保持顺序
func (p *Post) BlocksOfType(t BlockType) []*PostBlock {
	var out []*PostBlock
	for i := range p.Blocks {
		if p.Blocks[i].Type == t {
			out = append(out, &p.Blocks[i])
		}
	}
	return out
}

// TextContent 拼接所有 text 块内容，块间以换行分隔；
// 无 text 块时回落到文章正文
func (p *Post) TextContent() string {
	var parts []string
	for _, b := range p.BlocksOfType(BlockTypeText) {
		if b.Content != "" {
			parts = append(parts, b.Content)
		}
	}
	if len(parts) == 0 {
		return p.Content
	}
	return strings.Join(parts, "\n")
}
