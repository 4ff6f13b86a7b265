package graph

import (
	"path/filepath"
	"strings"

	"thinblog/internal/domain/site"
)

// PageRoutes lists one page route per node, in graph order. OutPath is the
// directory index file the page is published at.
func (g Graph) PageRoutes() []site.Route {
	routes := make([]site.Route, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		s := n.Article.Meta.Slug
		routes = append(routes, site.Route{
			Kind:    site.RoutePage,
			Slug:    s,
			OutPath: OutPath(s),
		})
	}
	return routes
}

// Routes returns page routes followed by redirect routes.
func (g Graph) Routes() []site.Route {
	return append(g.PageRoutes(), g.Redirects...)
}

func OutPath(slug string) string {
	trimmed := strings.Trim(slug, "/")
	if trimmed == "" {
		return "index.html"
	}
	return filepath.Join(filepath.FromSlash(trimmed), "index.html")
}
