package slug

import "strings"

// ComputeRedirects picks the canonical slug of a content item and the legacy
// paths that must permanently redirect to it.
//
// explicit wins over fileSlug when non-blank. The file slug joins the
// redirect set when it differs from the canonical slug. Aliases are
// normalised, deduplicated and never equal to the canonical slug.
func ComputeRedirects(fileSlug, explicit string, aliases []string) (string, []string) {
	file := Canonicalise(fileSlug)
	canonical := file
	if strings.TrimSpace(explicit) != "" {
		canonical = NormaliseExplicitSlug(explicit)
	}

	seen := map[string]struct{}{canonical: {}}
	var redirects []string
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		redirects = append(redirects, p)
	}

	add(file)
	for _, alias := range aliases {
		if strings.TrimSpace(alias) == "" {
			continue
		}
		if p, ok := NormaliseLegacyPath(alias); ok {
			add(p)
		}
	}
	return canonical, redirects
}
