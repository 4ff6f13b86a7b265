package site

import (
	"fmt"
	"strings"
)

type RouteKind string

const (
	RoutePage     RouteKind = "page"
	RouteRedirect RouteKind = "redirect"
)

// Route is one entry of the published site: a page at Slug, or a permanent
// redirect from From to Slug.
type Route struct {
	Kind    RouteKind
	Slug    string
	From    string
	Status  int
	OutPath string
}

func (r Route) String() string {
	var parts []string
	parts = append(parts, string(r.Kind))
	if r.From != "" {
		parts = append(parts, "from="+r.From)
	}
	if r.Slug != "" {
		parts = append(parts, "slug="+r.Slug)
	}
	if r.Status > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", r.Status))
	}
	if r.OutPath != "" {
		parts = append(parts, "out="+r.OutPath)
	}
	return strings.Join(parts, " ")
}

// RedirectLine renders a redirect route in the `_redirects` file format.
func (r Route) RedirectLine() string {
	return fmt.Sprintf("%s %s %d", r.From, r.Slug, r.Status)
}
