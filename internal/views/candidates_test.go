package views

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCandidates(t *testing.T) {
	cases := []struct {
		raw  string
		key  string
		want []string
	}{
		{"/foo/", "foo", []string{"foo", "foo/"}},
		{"/blog/my-post", "blog/my-post", []string{"blog/my-post", "blog/my-post/"}},
		{"//blog//x/?utm=1", "blog/x", []string{"blog/x", "blog/x/", "blog//x/?utm=1"}},
		{"/caf%C3%A9/", "café", []string{"café", "café/"}},
		{"/", "/", []string{"/", "", "index"}},
		{"", "/", []string{"/", "", "index"}},
		{"/index", "index", []string{"index", "index/"}},
	}
	for _, c := range cases {
		got := Candidates(c.raw)
		assert.Equal(t, c.key, got.Key, c.raw)
		assert.Equal(t, c.want, got.Candidates, c.raw)
	}
}

func TestCandidatesAnalyticsKeyFirst(t *testing.T) {
	for _, raw := range []string{"/foo/", "foo", "https://example.com/foo?x", "/foo/./"} {
		assert.Equal(t, "foo", Candidates(raw).Candidates[0], raw)
	}
}

func TestDedupeRequested(t *testing.T) {
	got := DedupeRequested([]string{"/a/", "", "/a", "/a/", "  ", "/b/"})
	assert.Equal(t, []string{"/a/", "/a", "/b/"}, got)
	assert.Empty(t, DedupeRequested(nil))
}
