// Package counts parses view counts out of the loosely shaped JSON records the
// counter service and the /views endpoint return.
package counts

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// Count is a best-effort view count for one page.
type Count struct {
	Total        int64  `json:"total"`
	Unique       int64  `json:"unique"`
	ResolvedPath string `json:"resolvedPath"`
}

// Field aliases, tried in order; the first present, non-null field wins.
var (
	UpstreamTotalFields  = []string{"count", "views", "hits", "total"}
	UpstreamUniqueFields = []string{"count_unique", "unique", "unique_views", "users"}

	ServerTotalFields  = []string{"total", "count", "views"}
	ServerUniqueFields = []string{"unique", "count_unique", "unique_views"}
	ServerPathFields   = []string{"resolvedPath", "resolved"}
)

var ErrNotObject = errors.New("counts: body is not a JSON object")

type Record map[string]json.RawMessage

// ParseRecord decodes body as a JSON object.
func ParseRecord(body []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotObject
	}
	return rec, nil
}

// Int reads the first present, non-null field in names. Missing and null
// fields are skipped; if that field does not parse as a number the result is
// 0, later names are not consulted.
func (r Record) Int(names []string) int64 {
	for _, name := range names {
		raw, ok := r[name]
		if !ok || isNull(raw) {
			continue
		}
		if n, ok := toInt(raw); ok {
			return n
		}
		return 0
	}
	return 0
}

func (r Record) String(names []string) string {
	for _, name := range names {
		raw, ok := r[name]
		if !ok || isNull(raw) {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return ""
}

// Upstream reads a counter service record.
func (r Record) Upstream(resolvedPath string) Count {
	return Count{
		Total:        r.Int(UpstreamTotalFields),
		Unique:       r.Int(UpstreamUniqueFields),
		ResolvedPath: resolvedPath,
	}
}

// Server reads one entry of a /views response.
func (r Record) Server(fallbackPath string) Count {
	c := Count{
		Total:        r.Int(ServerTotalFields),
		Unique:       r.Int(ServerUniqueFields),
		ResolvedPath: r.String(ServerPathFields),
	}
	if c.ResolvedPath == "" {
		c.ResolvedPath = fallbackPath
	}
	return c
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// toInt accepts JSON numbers and numeric strings such as "1,234" or "1 234".
func toInt(raw json.RawMessage) (int64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return clamp(f), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case ',', ' ', '_', '\u00a0', '\u202f':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return clamp(f), true
}

func clamp(f float64) int64 {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(f)
}
