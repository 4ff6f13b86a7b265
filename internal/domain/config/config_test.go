package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerr "thinblog/internal/domain/errors"
)

func env(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 120*time.Second, cfg.Views.CacheTTL())
	assert.Equal(t, 4, cfg.Views.Concurrency)
	assert.Equal(t, 300*time.Second, cfg.Client.CacheTTL())
	assert.Empty(t, cfg.Views.Site)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(env(map[string]string{
		"GC_SITE":                " thin.goatcounter.com ",
		"VIEWS_CACHE_TTL":        "30",
		"VIEWS_CONCURRENCY":      "8",
		"VIEWS_UPSTREAM_TIMEOUT": "750ms",
		"VIEWCOUNT_CACHE_MS":     "1000",
		"LOG_LEVEL":              "debug",
	}))

	assert.Equal(t, "thin.goatcounter.com", cfg.Views.Site)
	assert.Equal(t, 30*time.Second, cfg.Views.CacheTTL())
	assert.Equal(t, 8, cfg.Views.Concurrency)
	assert.Equal(t, 750*time.Millisecond, cfg.Views.UpstreamTimeout)
	assert.Equal(t, time.Second, cfg.Client.CacheTTL())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestApplyEnvIgnoresGarbageNumbers(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(env(map[string]string{"VIEWS_CONCURRENCY": "many", "VIEWS_UPSTREAM_TIMEOUT": "soon"}))
	assert.Equal(t, 4, cfg.Views.Concurrency)
	assert.Equal(t, 3*time.Second, cfg.Views.UpstreamTimeout)
}

func TestValidateCollectsEveryField(t *testing.T) {
	cfg := Default()
	cfg.Site.SiteURL = "not a url"
	cfg.Views.Concurrency = 0
	cfg.Views.CacheTTLSeconds = -1
	cfg.Client.Storage = "redis"

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerr.ErrInvalid))

	var ve domainerr.ValidationError
	require.True(t, errors.As(err, &ve))
	fields := make([]string, 0, len(ve.Items))
	for _, it := range ve.Items {
		fields = append(fields, it.Field)
	}
	assert.ElementsMatch(t, []string{"site.site_url", "views.concurrency", "views.cache_ttl_seconds", "client.storage"}, fields)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
site:
  title: My Blog
  site_url: https://blog.example
views:
  site: counter.example
  concurrency: 2
  upstream_timeout: 5s
client:
  storage: file
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "My Blog", cfg.Site.Title)
	assert.Equal(t, 2, cfg.Views.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.Views.UpstreamTimeout)
	assert.Equal(t, 120, cfg.Views.CacheTTLSeconds)
	assert.Equal(t, StorageFile, cfg.Client.Storage)
	assert.Equal(t, "contents", cfg.Build.SourceDir)
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "Thin Blog", cfg.Site.Title)
}
