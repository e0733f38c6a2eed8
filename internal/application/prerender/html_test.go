package prerender

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-prerender-api/internal/domain/entity"
)

func TestFormatSessionTitle(t *testing.T) {
	assert.Equal(t, "Linha 1<br>Linha 2", formatSessionTitle("<p>Linha 1</p> <p>Linha 2</p>"))
	assert.Equal(t, "Simples", formatSessionTitle("<p>Simples</p>"))
	assert.Equal(t, "Sem tags", formatSessionTitle("Sem tags"))
}

func sessionPost() *entity.Post {
	return &entity.Post{
		ID:        42,
		SiteID:    3,
		Slug:      "noite-um",
		Title:     "O Filme",
		Order:     4,
		Published: true,
		UpdatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Blocks: []entity.PostBlock{
			{Type: entity.BlockTypeText, Content: "20h30"},
			{Type: entity.BlockTypeText, Content: "Uma descrição."},
			{Type: entity.BlockTypeImage, Content: "/uploads/a.jpg", Metadata: &entity.BlockMetadata{Alt: "Cartaz"}},
			{Type: entity.BlockTypeImage, Content: "/uploads/b.jpg"},
		},
	}
}

func TestRenderSession(t *testing.T) {
	r := &htmlRenderer{media: NewMediaResolver("https://cdn.example.com")}
	out := r.renderSession(sessionPost(), 0)

	// 显式 order 优先于位置序号
	assert.Contains(t, out, `<p class="session-num">Sessão 5</p>`)
	assert.Contains(t, out, `<p class="horario">20h30</p>`)
	assert.Contains(t, out, `<h2 class="filme">O Filme</h2>`)
	assert.Contains(t, out, `<div class="descricao">Uma descrição.</div>`)

	// 恰好两张图片使用双图布局类
	assert.Contains(t, out, `<div class="imagem-sessao imagem-sessao--two">`)

	// 首图 eager/high，其余 lazy/auto；地址经解析，alt 回落到标题
	assert.Contains(t, out, `<img src="https://cdn.example.com/uploads/a.jpg" alt="Cartaz" class="movie-img" loading="eager" fetchpriority="high">`)
	assert.Contains(t, out, `<img src="https://cdn.example.com/uploads/b.jpg" alt="O Filme" class="movie-img" loading="lazy" fetchpriority="auto">`)

	// data-thumb 保留未解析的原始路径
	assert.Contains(t, out, `data-thumb="/uploads/a.jpg"`)
	assert.Contains(t, out, `data-post-id="42"`)
	assert.Contains(t, out, `data-slug="noite-um"`)
	assert.Contains(t, out, `data-updated-at="2026-08-01T12:00:00Z"`)
}

func TestRenderSessionFallbacks(t *testing.T) {
	r := &htmlRenderer{media: NewMediaResolver("")}

	// 无 text 块：horario 回落到 metadata，描述回落到正文
	p := &entity.Post{
		ID:       1,
		Title:    "Filme",
		Order:    -1,
		Content:  "Corpo do post",
		Metadata: map[string]any{"horario": "21h"},
	}
	out := r.renderSession(p, 2)
	assert.Contains(t, out, `<p class="session-num">Sessão 3</p>`)
	assert.Contains(t, out, `<p class="horario">21h</p>`)
	assert.Contains(t, out, `<div class="descricao">Corpo do post</div>`)
	assert.NotContains(t, out, "imagem-sessao")

	// 单 text 块同时充当 horario 和描述
	p2 := &entity.Post{
		ID:    2,
		Title: "Outro",
		Blocks: []entity.PostBlock{
			{Type: entity.BlockTypeText, Content: "19h"},
		},
	}
	out2 := r.renderSession(p2, 0)
	assert.Contains(t, out2, `<p class="horario">19h</p>`)
	assert.Contains(t, out2, `<div class="descricao">19h</div>`)
}

func TestRenderDocument(t *testing.T) {
	r := &htmlRenderer{media: NewMediaResolver("")}
	site := &entity.Site{ID: 3, Name: "Cine Teste"}
	generatedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	out := r.renderDocument(site, []*entity.Post{sessionPost()}, generatedAt)

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, `<html lang="pt">`)
	assert.Contains(t, out, "<title>Sessões - Cine Teste</title>")
	assert.Contains(t, out, `<meta name="generated-at" content="2026-08-01T12:00:00.000Z">`)
	require.Contains(t, out, `<section class="session"`)
	assert.True(t, strings.HasSuffix(out, "</html>"))
}

func TestRenderDocumentEmpty(t *testing.T) {
	r := &htmlRenderer{media: NewMediaResolver("")}
	out := r.renderDocument(&entity.Site{Name: "Vazio"}, nil, time.Now())
	assert.NotContains(t, out, "<section")
	assert.Contains(t, out, "<body>")
}
