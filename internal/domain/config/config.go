package config

import (
	"gopkg.in/yaml.v3"
	"net/url"
	"os"
	"strconv"
	"strings"
	domainerr "thinblog/internal/domain/errors"
	"time"
)

type Config struct {
	Site    SiteConfig    `yaml:"site"`
	Build   BuildConfig   `yaml:"build"`
	Views   ViewsConfig   `yaml:"views"`
	Client  ClientConfig  `yaml:"client"`
	Counter CounterConfig `yaml:"counter"`
	Log     LogConfig     `yaml:"log"`
}

type SiteConfig struct {
	Title       string `yaml:"title"`
	Author      string `yaml:"author"`
	SiteURL     string `yaml:"site_url"`
	Description string `yaml:"description"`
}

type BuildConfig struct {
	SourceDir    string    `yaml:"source_dir"`
	PublicDir    string    `yaml:"public_dir"`
	IndexPath    string    `yaml:"index_path"`
	StaticDir    string    `yaml:"static_dir"`
	IncludeDraft bool      `yaml:"include_draft"`
	Now          time.Time `yaml:"-"`
}

// ViewsConfig drives the /views resolver.
type ViewsConfig struct {
	// Site is the upstream counter host, e.g. "thin.goatcounter.com" or a full
	// base URL. Left empty, every /views request fails with a config error.
	Site            string        `yaml:"site"`
	CacheTTLSeconds int           `yaml:"cache_ttl_seconds"`
	Concurrency     int           `yaml:"concurrency"`
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`
}

func (v ViewsConfig) CacheTTL() time.Duration {
	return time.Duration(v.CacheTTLSeconds) * time.Second
}

type StorageKind string

const (
	StorageBolt StorageKind = "bolt"
	StorageFile StorageKind = "file"
)

// ClientConfig drives the view-count client cache used by `thinblog views`.
type ClientConfig struct {
	Endpoint    string      `yaml:"endpoint"`
	CacheMS     int64       `yaml:"cache_ms"`
	Storage     StorageKind `yaml:"storage"`
	StoragePath string      `yaml:"storage_path"`
}

func (c ClientConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheMS) * time.Millisecond
}

type CounterConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() Config {
	return Config{
		Site: SiteConfig{
			Title:   "Thin Blog",
			SiteURL: "http://localhost:8080",
		},
		Build: BuildConfig{
			SourceDir:    "contents",
			PublicDir:    "public",
			IndexPath:    ".thinblog/index.db",
			StaticDir:    "static",
			IncludeDraft: false,
			Now:          time.Now(),
		},
		Views: ViewsConfig{
			CacheTTLSeconds: 120,
			Concurrency:     4,
			UpstreamTimeout: 3 * time.Second,
		},
		Client: ClientConfig{
			Endpoint:    "http://localhost:8080/views",
			CacheMS:     5 * 60 * 1000,
			Storage:     StorageBolt,
			StoragePath: ".thinblog/client.db",
		},
		Counter: CounterConfig{
			DatabasePath: "data/counter.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func (c Config) Validate() error {
	var ve domainerr.ValidationError

	if strings.TrimSpace(c.Site.Title) == "" {
		ve.Add("site.title", "must not be empty")
	}

	if strings.TrimSpace(c.Site.SiteURL) == "" {
		ve.Add("site.site_url", "must not be empty")
	} else if !isValidAbsURL(c.Site.SiteURL) {
		ve.Add("site.site_url", "must be a valid absolute URL")
	}

	if strings.TrimSpace(c.Build.SourceDir) == "" {
		ve.Add("build.source_dir", "must not be empty")
	}
	if strings.TrimSpace(c.Build.PublicDir) == "" {
		ve.Add("build.public_dir", "must not be empty")
	}
	if strings.TrimSpace(c.Build.IndexPath) == "" {
		ve.Add("build.index_path", "must not be empty")
	}

	if c.Views.CacheTTLSeconds < 0 {
		ve.Add("views.cache_ttl_seconds", "must not be negative")
	}
	if c.Views.Concurrency < 1 {
		ve.Add("views.concurrency", "must be at least 1")
	}
	if c.Views.UpstreamTimeout <= 0 {
		ve.Add("views.upstream_timeout", "must be positive")
	}

	if c.Client.CacheMS < 0 {
		ve.Add("client.cache_ms", "must not be negative")
	}
	switch c.Client.Storage {
	case StorageBolt, StorageFile:
	default:
		ve.Add("client.storage", "must be 'bolt' or 'file'")
	}
	if strings.TrimSpace(c.Client.StoragePath) == "" {
		ve.Add("client.storage_path", "must not be empty")
	}
	if !isValidAbsURL(c.Client.Endpoint) {
		ve.Add("client.endpoint", "must be a valid absolute URL")
	}

	if c.Counter.Enabled && strings.TrimSpace(c.Counter.DatabasePath) == "" {
		ve.Add("counter.database_path", "must not be empty when counter is enabled")
	}

	if ve.HasAny() {
		return ve
	}
	return nil
}

func isValidAbsURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// ApplyEnv overrides fields from environment-style variables. Unparseable
// numbers are left at their current value.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("GC_SITE"); ok {
		c.Views.Site = strings.TrimSpace(v)
	}
	if v, ok := lookupInt(lookup, "VIEWS_CACHE_TTL"); ok {
		c.Views.CacheTTLSeconds = int(v)
	}
	if v, ok := lookupInt(lookup, "VIEWS_CONCURRENCY"); ok {
		c.Views.Concurrency = int(v)
	}
	if v, ok := lookup("VIEWS_UPSTREAM_TIMEOUT"); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			c.Views.UpstreamTimeout = d
		}
	}
	if v, ok := lookup("VIEWCOUNT_ENDPOINT"); ok && strings.TrimSpace(v) != "" {
		c.Client.Endpoint = strings.TrimSpace(v)
	}
	if v, ok := lookupInt(lookup, "VIEWCOUNT_CACHE_MS"); ok {
		c.Client.CacheMS = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup("LOG_FORMAT"); ok && v != "" {
		c.Log.Format = v
	}
}

func lookupInt(lookup func(string) (string, bool), key string) (int64, bool) {
	v, ok := lookup(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	// 直接 Unmarshal 到 cfg 上：文件中写到的字段覆盖默认值，其他字段保留 Default
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return finish(cfg)
}

func LoadOrDefault(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return finish(cfg)
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return finish(cfg)
}

func finish(cfg Config) (Config, error) {
	cfg.ApplyEnv(os.LookupEnv)
	if cfg.Build.Now.IsZero() {
		cfg.Build.Now = time.Now()
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
