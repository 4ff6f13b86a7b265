// Package slug turns untrusted path-like strings (file paths, front matter slugs,
// legacy aliases, request paths) into one canonical form.
//
// A canonical path always starts and ends with "/", except the root which is
// exactly "/". It never contains a scheme, host, query, fragment, backslash,
// duplicate slash or "." segment. Canonicalise never fails and is idempotent.
package slug

import (
	"regexp"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const Root = "/"

// DefaultIndex names a file slug segment that slugifies to nothing.
const DefaultIndex = "index"

var (
	schemeHost  = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://[^/]+`)
	multiSlash  = regexp.MustCompile(`/{2,}`)
	unsafeRun   = regexp.MustCompile(`[^a-zA-Z0-9\x{AC00}-\x{D7A3}._~-]+`)
	dashRun     = regexp.MustCompile(`-+`)
	edgePunct   = regexp.MustCompile(`^[-._]+|[-._]+$`)
	markRemover = runes.Remove(runes.Predicate(func(r rune) bool {
		return r >= 0x0300 && r <= 0x036f
	}))
)

func cleanPathname(raw string) string {
	work := strings.TrimSpace(raw)
	if work == "" {
		return ""
	}
	work = schemeHost.ReplaceAllString(work, "")
	if i := strings.IndexAny(work, "?#"); i >= 0 {
		work = work[:i]
	}
	work = strings.ReplaceAll(work, `\`, "/")
	work = multiSlash.ReplaceAllString(work, "/")
	return trimDots(work)
}

// trimDots drops "." segments and a single trailing ".." segment. It does not
// resolve ".." against its parent.
func trimDots(p string) string {
	endsWithSlash := strings.HasSuffix(p, "/")
	parts := strings.Split(p, "/")
	kept := parts[:0]
	for _, seg := range parts {
		if seg == "." {
			continue
		}
		kept = append(kept, seg)
	}
	if !endsWithSlash && len(kept) > 0 && kept[len(kept)-1] == ".." {
		kept = kept[:len(kept)-1]
	}
	return strings.Join(kept, "/")
}

// Canonicalise normalises raw into a canonical path. Empty or unusable input
// resolves to Root.
func Canonicalise(raw string) string {
	rest := strings.TrimLeft(cleanPathname(raw), "/")
	if rest == "" {
		return Root
	}
	if !strings.HasSuffix(rest, "/") {
		rest += "/"
	}
	return "/" + rest
}

// StripTrailingSlash canonicalises raw and removes the trailing slash unless
// the result is Root.
func StripTrailingSlash(raw string) string {
	c := Canonicalise(raw)
	if c == Root {
		return Root
	}
	return strings.TrimRight(c, "/")
}

// ToAnalyticsKey returns the counter service identifier for raw: the canonical
// path without leading and trailing slashes. Root stays "/".
func ToAnalyticsKey(raw string) string {
	s := StripTrailingSlash(raw)
	if s == Root {
		return Root
	}
	return strings.TrimLeft(s, "/")
}

func NormaliseExplicitSlug(raw string) string {
	return Canonicalise(raw)
}

// NormaliseLegacyPath canonicalises an alias. ok is false only when nothing
// usable can be derived, which Canonicalise never produces, so callers can
// treat it as always ok.
func NormaliseLegacyPath(raw string) (string, bool) {
	c := Canonicalise(raw)
	if c == "" {
		return "", false
	}
	return c, true
}

// FileSlug builds a canonical path from file system segments. Each segment is
// folded to ASCII where possible (Hangul syllables are kept), unsafe runs
// become "-", and a segment that ends up empty becomes DefaultIndex.
func FileSlug(segments []string) string {
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		out = append(out, slugSegment(seg))
	}
	joined := strings.Join(out, "/")
	if joined == "" {
		return Root
	}
	return "/" + joined + "/"
}

func slugSegment(seg string) string {
	s := strings.TrimSpace(seg)
	if folded, _, err := transform.String(transform.Chain(norm.NFKD, markRemover, norm.NFC), s); err == nil {
		s = folded
	}
	s = unsafeRun.ReplaceAllString(s, "-")
	s = dashRun.ReplaceAllString(s, "-")
	s = edgePunct.ReplaceAllString(s, "")
	if s == "" {
		return DefaultIndex
	}
	return s
}
