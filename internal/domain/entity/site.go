// Package entity 定义领域实体
package entity

import (
	"time"
)

// Site 站点实体（内容库只读）
type Site struct {
	ID        int       `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	Domain    string    `json:"domain,omitempty" gorm:"type:varchar(255)"`
	// RendersHTML 站点能力标记：除 JSON bootstrap 外还产出服务端渲染的 posts.html
	RendersHTML bool      `json:"renders_html" gorm:"column:renders_html;default:false"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Sections []Section `json:"sections,omitempty" gorm:"foreignKey:SiteID"`
}

// TableName 指定表名
func (Site) TableName() string {
	return "sites"
}

// Section 栏目实体，slug 在站点内唯一
type Section struct {
	ID        int       `json:"id" gorm:"primaryKey"`
	SiteID    int       `json:"site_id" gorm:"index;not null"`
	Slug      string    `json:"slug" gorm:"type:varchar(255);not null"`
	Name      string    `json:"name,omitempty" gorm:"type:varchar(255)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Section) TableName() string {
	return "sections"
}
