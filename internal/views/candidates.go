package views

import (
	"net/url"
	"strings"

	"thinblog/internal/domain/slug"
)

// Lookup is what the resolver needs for one requested path: the cache key
// and the counter paths to try, most likely first.
type Lookup struct {
	Key        string
	Candidates []string
}

// Candidates derives the lookup for a raw requested path. The analytics key
// comes first, then its trailing-slash form, then the decoded input with
// leading slashes stripped. Root additionally tries "" and "index".
func Candidates(raw string) Lookup {
	decoded := strings.TrimSpace(raw)
	if d, err := url.PathUnescape(decoded); err == nil {
		decoded = d
	}
	key := slug.ToAnalyticsKey(decoded)
	stripped := strings.TrimLeft(decoded, "/")

	var list []string
	if key == slug.Root {
		list = []string{slug.Root, "", slug.DefaultIndex, stripped}
	} else {
		list = []string{key, key + "/", stripped}
	}
	return Lookup{Key: key, Candidates: dedupe(list)}
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}

// DedupeRequested drops blank paths and repeats, keeping first-seen order.
func DedupeRequested(paths []string) []string {
	out := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
