// Package viewclient keeps view counts for UI consumers: answers from memory
// immediately and refreshes missing or expired counts in the background.
package viewclient

import (
	"time"

	"thinblog/internal/domain/counts"
	"thinblog/internal/domain/slug"
)

// StorageKey is the durable storage key the whole map is saved under.
const StorageKey = "blog_view_counts_v2"

// Entry is a cached count. FetchedAt is unix milliseconds.
type Entry struct {
	Total        int64  `json:"total"`
	Unique       int64  `json:"unique"`
	ResolvedPath string `json:"resolvedPath,omitempty"`
	FetchedAt    int64  `json:"fetchedAt"`
}

func (e Entry) Count() counts.Count {
	return counts.Count{Total: e.Total, Unique: e.Unique, ResolvedPath: e.ResolvedPath}
}

func (e Entry) fetchedAt() time.Time { return time.UnixMilli(e.FetchedAt) }

// Map is keyed by the slug without its trailing slash.
type Map map[string]Entry

// Get looks raw up by its bundle key.
func (m Map) Get(raw string) (Entry, bool) {
	e, ok := m[slug.BundleSlug(raw).WithoutTrailingSlash]
	return e, ok
}

func (m Map) clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
