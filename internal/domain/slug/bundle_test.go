package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundleSlug(t *testing.T) {
	b := BundleSlug("blog/my-post")
	assert.Equal(t, Bundle{
		Canonical:            "/blog/my-post/",
		WithoutTrailingSlash: "/blog/my-post",
		AnalyticsKey:         "blog/my-post",
	}, b)

	root := BundleSlug("")
	assert.Equal(t, Bundle{Canonical: "/", WithoutTrailingSlash: "/", AnalyticsKey: "/"}, root)
}

func TestBundleSlugConsistency(t *testing.T) {
	for _, raw := range []string{"", "/", "a", "/a/b/", `x\y`, "http://h/p?q", "./z/..", "//"} {
		b := BundleSlug(raw)
		assert.Equal(t, ToAnalyticsKey(b.Canonical), b.AnalyticsKey, "raw %q", raw)
		assert.Equal(t, StripTrailingSlash(b.Canonical), b.WithoutTrailingSlash, "raw %q", raw)
	}
}

func TestDedupe(t *testing.T) {
	got := Dedupe([]string{"/blog/my-post/", "/blog/my-post", "blog/my-post", "/other", ""})
	require.Len(t, got, 3)
	assert.Equal(t, "/blog/my-post", got[0].WithoutTrailingSlash)
	assert.Equal(t, "/other", got[1].WithoutTrailingSlash)
	assert.Equal(t, "/", got[2].WithoutTrailingSlash)
}
