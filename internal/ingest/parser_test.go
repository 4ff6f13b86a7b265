package ingest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrontMatter(t *testing.T) {
	raw := []byte("---\r\ntitle: Hello\r\nslug: /custom/\r\ntags: [Go, Web]\r\nredirect_from: /old/\r\naliases:\r\n  - /a/\r\n  - /b/\r\n---\r\n\r\n# Body\r\n")
	fm, body, err := ParseFrontMatter(raw)
	require.NoError(t, err)

	assert.Equal(t, "Hello", fm.Title)
	assert.Equal(t, "/custom/", fm.Slug)
	assert.Equal(t, []string{"Go", "Web"}, fm.Tags)
	assert.Equal(t, StringList{"/old/"}, fm.RedirectFrom)
	assert.Equal(t, []string{"/a/", "/b/", "/old/"}, fm.LegacyPaths())
	assert.Equal(t, "# Body", string(body))
}

func TestParseFrontMatterMissing(t *testing.T) {
	_, body, err := ParseFrontMatter([]byte("# Just markdown"))
	assert.ErrorIs(t, err, errNoFrontMatter)
	assert.Equal(t, "# Just markdown", string(body))
}

func TestParseFrontMatterEmpty(t *testing.T) {
	fm, body, err := ParseFrontMatter([]byte("---\n---\ntext"))
	require.NoError(t, err)
	assert.Empty(t, fm.Title)
	assert.Equal(t, "text", string(body))
}

func TestParseFrontMatterUnterminated(t *testing.T) {
	_, _, err := ParseFrontMatter([]byte("---\ntitle: x\nbody"))
	assert.ErrorIs(t, err, errInvalidFrontMatter)
}

func TestStringListRejectsMaps(t *testing.T) {
	_, _, err := ParseFrontMatter([]byte("---\noldSlugs:\n  a: b\n---\n"))
	assert.Error(t, err)
}

func TestFileSegments(t *testing.T) {
	root := filepath.Join("content", "posts")
	cases := []struct {
		path string
		want []string
	}{
		{filepath.Join(root, "hello.md"), []string{"hello"}},
		{filepath.Join(root, "2024", "trip", "index.md"), []string{"2024", "trip"}},
		{filepath.Join(root, "index.md"), []string{}},
	}
	for _, c := range cases {
		got, err := FileSegments(root, c.path)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, c.path)
	}

	_, err := FileSegments(root, filepath.Join("elsewhere", "x.md"))
	assert.Error(t, err)
}

func TestParseTime(t *testing.T) {
	assert.True(t, ParseTime("").IsZero())
	assert.True(t, ParseTime("yesterday").IsZero())

	got := ParseTime("2024-03-05")
	assert.Equal(t, 2024, got.Year())
	assert.Equal(t, time.March, got.Month())
	assert.Equal(t, 5, got.Day())

	got = ParseTime("2024-03-05 10:30")
	assert.Equal(t, 10, got.Hour())
	assert.Equal(t, 30, got.Minute())
}
