package views

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"thinblog/internal/domain/counts"
)

const maxUpstreamBody = 1 << 20

// Counter looks up the view count of one candidate path.
type Counter interface {
	Fetch(ctx context.Context, candidate string) (counts.Count, error)
}

type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("counter %s: status %d", e.URL, e.Status)
}

// HTTPCounter reads `GET <base>/counter/<candidate>.json`.
type HTTPCounter struct {
	base   string
	client *http.Client
}

// NewHTTPCounter accepts a bare host ("example.goatcounter.com") or a base
// URL. A bare host is reached over https.
func NewHTTPCounter(site string, client *http.Client) *HTTPCounter {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPCounter{base: BaseURL(site), client: client}
}

func BaseURL(site string) string {
	site = strings.TrimSpace(site)
	if site == "" {
		return ""
	}
	if !strings.Contains(site, "://") {
		site = "https://" + site
	}
	return strings.TrimRight(site, "/")
}

// CounterURL escapes every segment of candidate but keeps its slashes.
func CounterURL(base, candidate string) string {
	segs := strings.Split(candidate, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return base + "/counter/" + strings.Join(segs, "/") + ".json"
}

func (h *HTTPCounter) Fetch(ctx context.Context, candidate string) (counts.Count, error) {
	u := CounterURL(h.base, candidate)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return counts.Count{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return counts.Count{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxUpstreamBody))
		return counts.Count{}, &StatusError{URL: u, Status: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		return counts.Count{}, err
	}
	rec, err := counts.ParseRecord(body)
	if err != nil {
		return counts.Count{}, fmt.Errorf("counter %s: %w", u, err)
	}
	return rec.Upstream(candidate), nil
}
