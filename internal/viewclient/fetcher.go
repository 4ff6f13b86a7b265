package viewclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"thinblog/internal/domain/counts"
)

const maxResponseBody = 4 << 20

// Fetcher asks the /views endpoint for a batch of analytics keys. The result
// is keyed by the requested keys.
type Fetcher interface {
	FetchCounts(ctx context.Context, keys []string) (map[string]counts.Count, error)
}

type HTTPFetcher struct {
	endpoint string
	client   *http.Client
}

func NewHTTPFetcher(endpoint string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{endpoint: endpoint, client: client}
}

func (f *HTTPFetcher) FetchCounts(ctx context.Context, keys []string) (map[string]counts.Count, error) {
	u, err := url.Parse(f.endpoint)
	if err != nil {
		return nil, fmt.Errorf("views endpoint: %w", err)
	}
	q := u.Query()
	for _, k := range keys {
		q.Add("paths", k)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to load view counts: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, err
	}
	return ParseServerCounts(keys, body)
}

// ParseServerCounts reads a /views payload. The counts may sit under "counts"
// or at the top level, and each key may appear with or without its leading
// slashes. A key with no record gets a zero count.
func ParseServerCounts(keys []string, body []byte) (map[string]counts.Count, error) {
	top, err := counts.ParseRecord(body)
	if err != nil {
		return nil, fmt.Errorf("parse view counts: %w", err)
	}
	table := top
	if raw, ok := top["counts"]; ok {
		if inner, err := counts.ParseRecord(raw); err == nil {
			table = inner
		}
	}

	out := make(map[string]counts.Count, len(keys))
	for _, k := range keys {
		raw, ok := table[k]
		if !ok {
			raw, ok = table[strings.TrimLeft(k, "/")]
		}
		var rec counts.Record
		if ok {
			rec, _ = counts.ParseRecord(raw)
		}
		out[k] = rec.Server("")
	}
	return out, nil
}
