package content

import (
	"strings"
	"time"

	"thinblog/internal/domain/slug"
)

type ArticleMeta struct {
	// ID is the source path relative to the content root; stable across builds.
	ID      string
	Title   string
	Date    time.Time
	Updated time.Time

	Tags        []string
	Description string

	Hidden bool
	Draft  bool

	// Slug is the canonical path. FileSlug is the path derived from the file
	// location; it differs from Slug when front matter sets one explicitly.
	Slug                string
	SlugNoTrailingSlash string
	AnalyticsKey        string
	FileSlug            string

	// Aliases are the raw legacy paths from front matter; Redirects are the
	// canonical legacy paths that redirect to Slug.
	Aliases   []string
	Redirects []string

	WordCount int
	Headings  []Heading
}

type Heading struct {
	Level int
	ID    string
	Text  string
}

type BodyRef struct {
	SourcePath  string
	ContentHash string
}

type Article struct {
	Meta ArticleMeta
	Body BodyRef
}

// SetSlugs derives every slug field from the file slug, the optional explicit
// front matter slug and the raw aliases.
func (m *ArticleMeta) SetSlugs(fileSlug, explicit string) {
	canonical, redirects := slug.ComputeRedirects(fileSlug, explicit, m.Aliases)
	b := slug.BundleSlug(canonical)
	m.FileSlug = slug.Canonicalise(fileSlug)
	m.Slug = b.Canonical
	m.SlugNoTrailingSlash = b.WithoutTrailingSlash
	m.AnalyticsKey = b.AnalyticsKey
	m.Redirects = redirects
}

func (m ArticleMeta) Bundle() slug.Bundle {
	return slug.Bundle{
		Canonical:            m.Slug,
		WithoutTrailingSlash: m.SlugNoTrailingSlash,
		AnalyticsKey:         m.AnalyticsKey,
	}
}

func (m *ArticleMeta) Normalize() {
	m.Title = strings.TrimSpace(m.Title)
	m.Description = strings.TrimSpace(m.Description)

	m.Tags = normalizeStrings(m.Tags, strings.ToLower)
	// paths are case sensitive
	m.Aliases = normalizeStrings(m.Aliases, nil)
}

func normalizeStrings(items []string, fold func(string) string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if fold != nil {
			item = fold(item)
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
