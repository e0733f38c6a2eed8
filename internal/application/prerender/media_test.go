package prerender

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaResolverResolve(t *testing.T) {
	r := NewMediaResolver("https://cdn.example.com/media/")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"https absolute", "https://other.com/a.jpg", "https://other.com/a.jpg"},
		{"http absolute", "http://other.com/a.jpg", "http://other.com/a.jpg"},
		{"protocol relative", "//other.com/a.jpg", "//other.com/a.jpg"},
		{"relative with leading slash", "/uploads/a.jpg", "https://cdn.example.com/media/uploads/a.jpg"},
		{"relative bare", "uploads/a.jpg", "https://cdn.example.com/media/uploads/a.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.in))
		})
	}
}

func TestMediaResolverNoBase(t *testing.T) {
	r := NewMediaResolver("")
	assert.Equal(t, "/uploads/a.jpg", r.Resolve("/uploads/a.jpg"))
	assert.Equal(t, "https://x.com/a.jpg", r.Resolve("https://x.com/a.jpg"))
}

func TestMediaResolverResolveAll(t *testing.T) {
	r := NewMediaResolver("https://cdn.example.com")

	assert.Nil(t, r.ResolveAll(nil))

	got := r.ResolveAll([]string{"/a.jpg", "https://x.com/b.jpg"})
	require.Len(t, got, 2)
	assert.Equal(t, "https://cdn.example.com/a.jpg", got[0])
	assert.Equal(t, "https://x.com/b.jpg", got[1])
}

func TestClassifyVideo(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantType string
		wantNil  bool
	}{
		{"youtube", "https://www.youtube.com/embed/abc123", "iframe", false},
		{"youtu.be", "https://youtu.be/abc123", "iframe", false},
		{"vimeo", "https://vimeo.com/12345", "iframe", false},
		{"vimeo player", "https://player.vimeo.com/video/12345", "iframe", false},
		{"mp4 file", "https://cdn.example.com/v.mp4", "video", false},
		{"mp4 with query", "https://cdn.example.com/v.mp4?t=1", "video", false},
		{"webm file", "/media/v.webm", "video", false},
		{"site relative", "/uploads/clip", "video", false},
		{"unknown host", "https://example.com/watch", "", true},
		{"empty", "", "", true},
		{"whitespace only", "   ", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyVideo(tt.src, "Title")
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, "Title", got.Title)
		})
	}
}

func TestIsExternalLink(t *testing.T) {
	assert.True(t, IsExternalLink("https://example.com"))
	assert.True(t, IsExternalLink("HTTP://EXAMPLE.COM"))
	assert.True(t, IsExternalLink("mailto:hi@example.com"))
	assert.True(t, IsExternalLink("tel:+5511999999999"))
	assert.False(t, IsExternalLink("/contato"))
	assert.False(t, IsExternalLink("#section"))
}

func TestCollapseTruncate(t *testing.T) {
	assert.Equal(t, "a b c", CollapseTruncate("a\n\nb\t c", 100))
	assert.Equal(t, "abc", CollapseTruncate("  abc  ", 100))
	assert.Equal(t, "abcde", CollapseTruncate("abcdefgh", 5))
	// 截断按 rune 计，多字节字符不会被切断
	assert.Equal(t, "açõe", CollapseTruncate("açõesdemais", 4))
	assert.Equal(t, "", CollapseTruncate("", 10))
}
