package serve

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thinblog/internal/domain/config"
	"thinblog/internal/logger"
)

func writeSource(t *testing.T, root, rel, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

// upstream fakes the hosted counter: only the bare analytics key is known.
func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/counter/hello.json" {
			_, _ = w.Write([]byte(`{"count":"1,204","count_unique":"311"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, counterEnabled bool) (*Server, config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Build.SourceDir = filepath.Join(dir, "contents")
	cfg.Build.PublicDir = filepath.Join(dir, "public")
	cfg.Build.IndexPath = filepath.Join(dir, "index.db")
	cfg.Build.StaticDir = filepath.Join(dir, "static")
	cfg.Build.Now = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	cfg.Views.Site = upstream(t).URL
	cfg.Counter.Enabled = counterEnabled
	cfg.Counter.DatabasePath = filepath.Join(dir, "counter.db")

	writeSource(t, cfg.Build.SourceDir, "hello.md", "---\ntitle: Hello\ndate: 2024-01-01\ntags: [go]\naliases: [/old-hello, /2019/01/hello.html]\n---\nhi")
	writeSource(t, cfg.Build.SourceDir, "notes/later.md", "---\ntitle: Later\ndate: 2024-02-01\n---\nbye")

	s, err := New(cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Rebuild(context.Background()))
	return s, cfg
}

func get(s *Server, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestLegacyPathRedirects(t *testing.T) {
	s, _ := newTestServer(t, false)

	tests := []struct {
		target   string
		location string
	}{
		{"/old-hello", "/hello/"},
		{"/old-hello/", "/hello/"},
		{"/old-hello?ref=x", "/hello/?ref=x"},
		{"/2019/01/hello.html", "/hello/"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := get(s, tt.target)
			assert.Equal(t, http.StatusMovedPermanently, rec.Code)
			assert.Equal(t, tt.location, rec.Header().Get("Location"))
		})
	}
}

func TestCanonicalPageIsNotRedirected(t *testing.T) {
	s, _ := newTestServer(t, false)

	for _, target := range []string{"/hello/", "/hello", "/notes/later"} {
		assert.NotEqual(t, http.StatusMovedPermanently, get(s, target).Code, target)
	}
}

func TestBuildOutputIsServed(t *testing.T) {
	s, _ := newTestServer(t, false)

	rec := get(s, "/_redirects")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/old-hello/ /hello/ 301")

	assert.Equal(t, http.StatusOK, get(s, "/pages.json").Code)
}

func TestAPIPages(t *testing.T) {
	s, _ := newTestServer(t, false)

	rec := get(s, "/api/pages")
	require.Equal(t, http.StatusOK, rec.Code)
	var got pagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Items, 2)
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, "/notes/later/", got.Items[0].Slug)
	assert.Equal(t, "/hello/", got.Items[1].Slug)
	assert.Equal(t, "hello", got.Items[1].AnalyticsKey)

	rec = get(s, "/api/pages?tag=go")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Hello", got.Items[0].Title)
}

func TestViewsThroughServer(t *testing.T) {
	s, cfg := newTestServer(t, false)

	rec := get(s, "/views?paths=/hello/&paths=/notes/later/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var got struct {
		Counts map[string]struct {
			Total        int64  `json:"total"`
			Unique       int64  `json:"unique"`
			ResolvedPath string `json:"resolvedPath"`
		} `json:"counts"`
		Site string `json:"site"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, cfg.Views.Site, got.Site)
	assert.Equal(t, int64(1204), got.Counts["/hello/"].Total)
	assert.Equal(t, int64(311), got.Counts["/hello/"].Unique)
	assert.Equal(t, "hello", got.Counts["/hello/"].ResolvedPath)
	assert.Zero(t, got.Counts["/notes/later/"].Total)

	metrics := get(s, "/metrics")
	require.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "thinblog_views_fallbacks_total 1")
}

func TestCounterMountedWhenEnabled(t *testing.T) {
	s, _ := newTestServer(t, true)

	req := httptest.NewRequest(http.MethodPost, "/count", strings.NewReader(`{"path":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = get(s, "/counter/hello.json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":"1","count_unique":"1"}`, rec.Body.String())
}

func TestCounterAbsentWhenDisabled(t *testing.T) {
	s, _ := newTestServer(t, false)
	assert.Equal(t, http.StatusNotFound, get(s, "/counter/hello.json").Code)
}

func TestRebuildBroadcastsOnlyOnChange(t *testing.T) {
	s, cfg := newTestServer(t, false)

	ch := make(chan string, 8)
	s.sseMu.Lock()
	s.sseConns[ch] = struct{}{}
	s.sseMu.Unlock()

	require.NoError(t, s.Rebuild(context.Background()))
	assert.Empty(t, ch)

	writeSource(t, cfg.Build.SourceDir, "third.md", "---\ntitle: Third\ndate: 2024-03-01\n---\nnew")
	require.NoError(t, s.Rebuild(context.Background()))
	require.Len(t, ch, 1)
	assert.Equal(t, "reload", <-ch)

	assert.Equal(t, http.StatusMovedPermanently, get(s, "/old-hello").Code)
}
