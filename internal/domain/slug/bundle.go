package slug

// Bundle is the set of forms one page path takes across the system.
type Bundle struct {
	Canonical            string `json:"canonical"`
	WithoutTrailingSlash string `json:"withoutTrailingSlash"`
	AnalyticsKey         string `json:"analyticsKey"`
}

func BundleSlug(raw string) Bundle {
	canonical := Canonicalise(raw)
	return Bundle{
		Canonical:            canonical,
		WithoutTrailingSlash: StripTrailingSlash(canonical),
		AnalyticsKey:         ToAnalyticsKey(canonical),
	}
}

// Dedupe bundles every raw slug and keeps one bundle per WithoutTrailingSlash,
// in first-seen order.
func Dedupe(raws []string) []Bundle {
	seen := make(map[string]struct{}, len(raws))
	out := make([]Bundle, 0, len(raws))
	for _, raw := range raws {
		b := BundleSlug(raw)
		if _, ok := seen[b.WithoutTrailingSlash]; ok {
			continue
		}
		seen[b.WithoutTrailingSlash] = struct{}{}
		out = append(out, b)
	}
	return out
}
