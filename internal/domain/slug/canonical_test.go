package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalise(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", "/"},
		{"blank", "   ", "/"},
		{"root", "/", "/"},
		{"only slashes", "////", "/"},
		{"relative", "a/b", "/a/b/"},
		{"already canonical", "/a/b/", "/a/b/"},
		{"duplicate slashes", "a//b", "/a/b/"},
		{"mixed separators", `a//b\c`, "/a/b/c/"},
		{"backslashes", `\posts\hello\`, "/posts/hello/"},
		{"leading dot slash", "./a", "/a/"},
		{"dot segment inside", "/a/./b", "/a/b/"},
		{"trailing dot", "/a/b/.", "/a/b/"},
		{"trailing dotdot is trimmed not resolved", "/a/b/..", "/a/b/"},
		{"inner dotdot kept literally", "/a/../b", "/a/../b/"},
		{"protocol and host", "http://host/a/b?x=1#y", "/a/b/"},
		{"https host only", "https://example.com", "/"},
		{"query only", "?utm=1", "/"},
		{"fragment", "/post/#comments", "/post/"},
		{"korean", "/블로그/첫-글", "/블로그/첫-글/"},
		{"surrounding whitespace", "  /a/b  ", "/a/b/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonicalise(tt.in))
		})
	}
}

func TestCanonicaliseIdempotent(t *testing.T) {
	inputs := []string{
		"", "/", "a", "a/b", "/a/b/", "a//b", `a\\b`, "./a", "././a", "a/..", "a/../..",
		"/./", "..", ".", "http://host/x/y?q=1#f", "ftp://h", "#", "?", "//host/a",
		"/a/b/../", " . / . ", "https://h/./..", "a/.\\..",
	}
	for _, in := range inputs {
		once := Canonicalise(in)
		assert.Equal(t, once, Canonicalise(once), "input %q", in)
		assert.True(t, once == Root || (once[0] == '/' && once[len(once)-1] == '/'), "input %q gave %q", in, once)
		assert.NotContains(t, once, "//", "input %q", in)
	}
}

func TestStripTrailingSlash(t *testing.T) {
	assert.Equal(t, "/a/b", StripTrailingSlash("/a/b/"))
	assert.Equal(t, "/a/b", StripTrailingSlash("a/b"))
	assert.Equal(t, "/", StripTrailingSlash("/"))
	assert.Equal(t, "/", StripTrailingSlash(""))
}

func TestToAnalyticsKey(t *testing.T) {
	assert.Equal(t, "a/b", ToAnalyticsKey("/a/b/"))
	assert.Equal(t, "a/b", ToAnalyticsKey("https://blog.example/a/b"))
	assert.Equal(t, "/", ToAnalyticsKey("/"))
	assert.Equal(t, "/", ToAnalyticsKey(""))
}

func TestNormaliseHelpers(t *testing.T) {
	assert.Equal(t, Canonicalise("posts/x"), NormaliseExplicitSlug("posts/x"))

	p, ok := NormaliseLegacyPath("/old-path")
	assert.True(t, ok)
	assert.Equal(t, "/old-path/", p)

	p, ok = NormaliseLegacyPath("")
	assert.True(t, ok)
	assert.Equal(t, "/", p)
}

func TestFileSlug(t *testing.T) {
	tests := []struct {
		name     string
		segments []string
		want     string
	}{
		{"no segments", nil, "/"},
		{"simple", []string{"blog", "my-post"}, "/blog/my-post/"},
		{"spaces and punctuation", []string{"My First Post!"}, "/My-First-Post/"},
		{"accents folded", []string{"Café Crème"}, "/Cafe-Creme/"},
		{"hangul kept", []string{"첫 글"}, "/첫-글/"},
		{"edge punctuation trimmed", []string{"--._hello_.--"}, "/hello/"},
		{"empty segment", []string{"blog", "???"}, "/blog/index/"},
		{"keeps tilde and dot", []string{"v1.2~beta"}, "/v1.2~beta/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FileSlug(tt.segments))
		})
	}
}
