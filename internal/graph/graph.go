// Package graph orders ingested articles into the published site: pages with
// previous/next neighbours plus the permanent redirects that point at them.
package graph

import (
	"fmt"
	"sort"

	"thinblog/internal/domain/content"
	"thinblog/internal/domain/site"
)

const RedirectStatus = 301

type Options struct {
	IncludeDraft bool
}

type Node struct {
	Article content.Article
	// Prev is the slug of the older neighbour, Next of the newer one.
	Prev string
	Next string
}

type ConflictKind string

const (
	// ConflictDuplicateRedirect: two pages list the same legacy path.
	ConflictDuplicateRedirect ConflictKind = "duplicate-redirect"
	// ConflictShadowsPage: a legacy path equals another page's canonical slug.
	ConflictShadowsPage ConflictKind = "redirect-shadows-page"
)

type Conflict struct {
	Kind   ConflictKind
	Path   string
	Winner string
	Loser  string
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s %s: kept %s, dropped %s", c.Kind, c.Path, c.Winner, c.Loser)
}

type Graph struct {
	Nodes     []Node
	Redirects []site.Route
	Conflicts []Conflict

	bySlug map[string]int
}

// Build orders articles by date ascending, ties broken by canonical slug, and
// registers every redirect. The first registration of a path wins.
func Build(articles []content.Article, opts Options) Graph {
	var kept []content.Article
	for _, a := range articles {
		if a.Meta.Hidden || (a.Meta.Draft && !opts.IncludeDraft) {
			continue
		}
		kept = append(kept, a)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		di, dj := kept[i].Meta.Date, kept[j].Meta.Date
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return kept[i].Meta.Slug < kept[j].Meta.Slug
	})

	g := Graph{
		Nodes:  make([]Node, len(kept)),
		bySlug: make(map[string]int, len(kept)),
	}
	for i, a := range kept {
		n := Node{Article: a}
		if i > 0 {
			n.Prev = kept[i-1].Meta.Slug
		}
		if i < len(kept)-1 {
			n.Next = kept[i+1].Meta.Slug
		}
		g.Nodes[i] = n
		g.bySlug[a.Meta.Slug] = i
	}

	claimed := make(map[string]string)
	for _, n := range g.Nodes {
		to := n.Article.Meta.Slug
		for _, from := range n.Article.Meta.Redirects {
			if _, isPage := g.bySlug[from]; isPage {
				g.Conflicts = append(g.Conflicts, Conflict{
					Kind: ConflictShadowsPage, Path: from, Winner: from, Loser: to,
				})
				continue
			}
			if owner, ok := claimed[from]; ok {
				if owner != to {
					g.Conflicts = append(g.Conflicts, Conflict{
						Kind: ConflictDuplicateRedirect, Path: from, Winner: owner, Loser: to,
					})
				}
				continue
			}
			claimed[from] = to
			g.Redirects = append(g.Redirects, site.Route{
				Kind:   site.RouteRedirect,
				From:   from,
				Slug:   to,
				Status: RedirectStatus,
			})
		}
	}
	return g
}

func (g Graph) Lookup(slug string) (Node, bool) {
	i, ok := g.bySlug[slug]
	if !ok {
		return Node{}, false
	}
	return g.Nodes[i], true
}

func (g Graph) Articles() []content.Article {
	out := make([]content.Article, len(g.Nodes))
	for i, n := range g.Nodes {
		out[i] = n.Article
	}
	return out
}
