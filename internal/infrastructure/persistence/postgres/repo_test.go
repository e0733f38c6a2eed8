package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"site-prerender-api/internal/domain/entity"
	"site-prerender-api/pkg/errors"
)

func setupDB(t *testing.T) *Client {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&entity.Site{},
		&entity.Section{},
		&entity.Post{},
		&entity.PostBlock{},
	))
	return &Client{db: db}
}

// setUpdatedAt 绕过 autoUpdateTime 钩子，直接写 updated_at
func setUpdatedAt(t *testing.T, client *Client, postID int, at time.Time) {
	t.Helper()
	require.NoError(t, client.db.Model(&entity.Post{}).
		Where("id = ?", postID).
		UpdateColumn("updated_at", at).Error)
}

func TestSiteRepositoryGetByID(t *testing.T) {
	client := setupDB(t)
	repo := NewSiteRepository(client)

	require.NoError(t, client.db.Create(&entity.Site{ID: 3, Name: "Cine Teste", RendersHTML: true}).Error)

	site, err := repo.GetByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Cine Teste", site.Name)
	assert.True(t, site.RendersHTML)
}

func TestSiteRepositoryGetByIDMissing(t *testing.T) {
	client := setupDB(t)
	repo := NewSiteRepository(client)

	// 未命中返回领域错误，不是 (nil, nil)
	site, err := repo.GetByID(context.Background(), 404)
	require.Error(t, err)
	assert.Nil(t, site)
	assert.True(t, errors.IsCode(err, errors.CodeSiteNotFound))
}

func TestSectionRepositoryListBySite(t *testing.T) {
	client := setupDB(t)
	repo := NewSectionRepository(client)

	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, client.db.Create(&entity.Section{ID: 11, SiteID: 3, Slug: "releases", CreatedAt: base.Add(time.Hour)}).Error)
	require.NoError(t, client.db.Create(&entity.Section{ID: 10, SiteID: 3, Slug: "inicio", CreatedAt: base}).Error)
	require.NoError(t, client.db.Create(&entity.Section{ID: 20, SiteID: 9, Slug: "outro", CreatedAt: base}).Error)

	sections, err := repo.ListBySite(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, "inicio", sections[0].Slug)
	assert.Equal(t, "releases", sections[1].Slug)
}

func TestPostRepositoryExcludesUnpublished(t *testing.T) {
	client := setupDB(t)
	repo := NewPostRepository(client)

	require.NoError(t, client.db.Create(&entity.Post{ID: 1, SiteID: 3, SectionID: 12, Slug: "publicado", Published: true}).Error)
	require.NoError(t, client.db.Create(&entity.Post{ID: 2, SiteID: 3, SectionID: 12, Slug: "rascunho", Published: false}).Error)
	require.NoError(t, client.db.Create(&entity.Post{ID: 3, SiteID: 9, SectionID: 12, Slug: "outro-site", Published: true}).Error)

	posts, err := repo.ListPublishedBySection(context.Background(), 3, 12)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "publicado", posts[0].Slug)
}

func TestPostRepositoryOrdering(t *testing.T) {
	client := setupDB(t)
	repo := NewPostRepository(client)

	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, client.db.Create(&entity.Post{ID: 1, SiteID: 3, SectionID: 12, Slug: "segundo", Order: 1, Published: true}).Error)
	require.NoError(t, client.db.Create(&entity.Post{ID: 2, SiteID: 3, SectionID: 12, Slug: "primeiro", Order: 0, Published: true}).Error)
	// 相同 order：最近更新的在前
	require.NoError(t, client.db.Create(&entity.Post{ID: 3, SiteID: 3, SectionID: 12, Slug: "empate-velho", Order: 2, Published: true}).Error)
	require.NoError(t, client.db.Create(&entity.Post{ID: 4, SiteID: 3, SectionID: 12, Slug: "empate-novo", Order: 2, Published: true}).Error)
	setUpdatedAt(t, client, 3, base)
	setUpdatedAt(t, client, 4, base.Add(time.Hour))

	posts, err := repo.ListPublishedBySection(context.Background(), 3, 12)
	require.NoError(t, err)
	require.Len(t, posts, 4)
	assert.Equal(t, "primeiro", posts[0].Slug)
	assert.Equal(t, "segundo", posts[1].Slug)
	assert.Equal(t, "empate-novo", posts[2].Slug)
	assert.Equal(t, "empate-velho", posts[3].Slug)
}

func TestPostRepositoryPreloadsBlocksOrdered(t *testing.T) {
	client := setupDB(t)
	repo := NewPostRepository(client)

	require.NoError(t, client.db.Create(&entity.Post{ID: 1, SiteID: 3, SectionID: 12, Slug: "com-blocos", Published: true}).Error)
	require.NoError(t, client.db.Create(&entity.PostBlock{ID: 1, PostID: 1, Type: entity.BlockTypeImage, Content: "/b.jpg", Order: 1}).Error)
	require.NoError(t, client.db.Create(&entity.PostBlock{ID: 2, PostID: 1, Type: entity.BlockTypeText, Content: "20h30", Order: 0}).Error)

	posts, err := repo.ListPublishedBySection(context.Background(), 3, 12)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Len(t, posts[0].Blocks, 2)
	assert.Equal(t, entity.BlockTypeText, posts[0].Blocks[0].Type)
	assert.Equal(t, entity.BlockTypeImage, posts[0].Blocks[1].Type)
}

func TestPostRepositoryMetadataRoundTrip(t *testing.T) {
	client := setupDB(t)
	repo := NewPostRepository(client)

	require.NoError(t, client.db.Create(&entity.Post{
		ID: 1, SiteID: 3, SectionID: 12, Slug: "meta", Published: true,
		Metadata: map[string]any{"horario": "21h"},
	}).Error)
	require.NoError(t, client.db.Create(&entity.PostBlock{
		ID: 1, PostID: 1, Type: entity.BlockTypeSlideshow,
		Metadata: &entity.BlockMetadata{Images: []entity.SlideImage{{URL: "/s1.jpg"}}},
	}).Error)

	posts, err := repo.ListPublishedBySection(context.Background(), 3, 12)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "21h", posts[0].Metadata["horario"])
	require.Len(t, posts[0].Blocks, 1)
	assert.Equal(t, []string{"/s1.jpg"}, posts[0].Blocks[0].SlideURLs())
}
