package build

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	buildfp "thinblog/internal/domain/build"
	"thinblog/internal/domain/config"
	"thinblog/internal/domain/content"
	"thinblog/internal/graph"
	"thinblog/internal/index"
	"thinblog/internal/ingest"
	"thinblog/internal/logger"
)

const (
	RedirectsFile = "_redirects"
	ManifestFile  = "pages.json"
)

type Builder struct {
	Cfg config.Config
	// Index is used as is when set; otherwise Cfg.Build.IndexPath is opened
	// for the duration of Run.
	Index  *index.Store
	Logger *slog.Logger
	// SkipUnchanged makes Run stop after ingest when the index already holds
	// a build with the same fingerprint.
	SkipUnchanged bool
}

type Result struct {
	Articles    int
	Redirects   int
	Conflicts   []graph.Conflict
	Warnings    []ingest.Warning
	Fingerprint buildfp.Fingerprint
	Skipped     bool
	Graph       graph.Graph
}

func (b *Builder) Run(ctx context.Context) (*Result, error) {
	log := logger.OrDiscard(b.Logger).With("component", "build")
	start := time.Now()

	arts, warns, err := ingest.Ingest(b.Cfg.Build.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("ingest failed: %w", err)
	}
	for _, w := range warns {
		log.Warn("ingest", "path", w.Path, "msg", w.Msg)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fp, err := b.fingerprint(arts)
	if err != nil {
		return nil, err
	}

	st := b.Index
	if st == nil {
		st, err = index.Open(index.OpenOptions{Path: b.Cfg.Build.IndexPath})
		if err != nil {
			return nil, fmt.Errorf("failed to open index: %w", err)
		}
		defer st.Close()
	}

	if b.SkipUnchanged {
		if prev, err := st.Fingerprint(); err == nil && prev == fp {
			log.Info("content unchanged, skipping build", "fingerprint", fp.RenderHash[:12])
			return &Result{Articles: len(arts), Warnings: warns, Fingerprint: fp, Skipped: true}, nil
		}
	}

	g := graph.Build(arts, graph.Options{IncludeDraft: b.Cfg.Build.IncludeDraft})
	for _, c := range g.Conflicts {
		log.Warn("redirect conflict", "kind", c.Kind, "path", c.Path, "kept", c.Winner, "dropped", c.Loser)
	}

	if err := st.Rebuild(g); err != nil {
		return nil, fmt.Errorf("failed to rebuild index: %w", err)
	}

	outDir := b.Cfg.Build.PublicDir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir public: %w", err)
	}
	if err := writeFile(outDir, RedirectsFile, RenderRedirects(g)); err != nil {
		return nil, fmt.Errorf("write redirects: %w", err)
	}
	manifest, err := RenderManifest(g, fp, b.Cfg.Build.Now)
	if err != nil {
		return nil, fmt.Errorf("render manifest: %w", err)
	}
	if err := writeFile(outDir, ManifestFile, manifest); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	if err := b.copyStaticAssets(outDir); err != nil {
		return nil, fmt.Errorf("copy static assets: %w", err)
	}

	// recorded last so a failed build is retried by the next run
	if err := st.SetFingerprint(fp); err != nil {
		return nil, fmt.Errorf("record fingerprint: %w", err)
	}

	log.Info("build complete",
		"pages", len(g.Nodes),
		"redirects", len(g.Redirects),
		"conflicts", len(g.Conflicts),
		"warnings", len(warns),
		"took", time.Since(start).Round(time.Millisecond),
	)
	return &Result{
		Articles:    len(g.Nodes),
		Redirects:   len(g.Redirects),
		Conflicts:   g.Conflicts,
		Warnings:    warns,
		Fingerprint: fp,
		Graph:       g,
	}, nil
}

func (b *Builder) fingerprint(arts []content.Article) (buildfp.Fingerprint, error) {
	var fp buildfp.Fingerprint
	hashes := make([]string, 0, len(arts))
	for _, a := range arts {
		hashes = append(hashes, a.Meta.ID+":"+a.Body.ContentHash)
	}
	fp.ComputeContentHash(hashes)

	cfgBytes, err := yaml.Marshal(struct {
		Site  config.SiteConfig  `yaml:"site"`
		Build config.BuildConfig `yaml:"build"`
	}{b.Cfg.Site, b.Cfg.Build})
	if err != nil {
		return fp, fmt.Errorf("hash config: %w", err)
	}
	fp.ConfigHash = buildfp.HashBytes(cfgBytes)
	fp.ComputeRenderHash()
	return fp, nil
}

// RenderRedirects renders every redirect as a `_redirects` line, in
// registration order.
func RenderRedirects(g graph.Graph) []byte {
	var sb strings.Builder
	for _, r := range g.Redirects {
		sb.WriteString(r.RedirectLine())
		sb.WriteByte('\n')
	}
	return []byte(sb.String())
}

type Manifest struct {
	Fingerprint string             `json:"fingerprint"`
	Generated   time.Time          `json:"generated"`
	Pages       []ManifestPage     `json:"pages"`
	Redirects   []ManifestRedirect `json:"redirects"`
}

type ManifestPage struct {
	ID                  string    `json:"id"`
	Title               string    `json:"title"`
	Date                time.Time `json:"date"`
	Slug                string    `json:"slug"`
	SlugNoTrailingSlash string    `json:"slugNoTrailingSlash"`
	AnalyticsKey        string    `json:"analyticsKey"`
	Redirects           []string  `json:"redirects"`
	Tags                []string  `json:"tags,omitempty"`
	WordCount           int       `json:"wordCount"`
	Draft               bool      `json:"draft,omitempty"`
	Path                string    `json:"path"`
	Prev                string    `json:"prev,omitempty"`
	Next                string    `json:"next,omitempty"`
}

type ManifestRedirect struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Status int    `json:"status"`
}

func RenderManifest(g graph.Graph, fp buildfp.Fingerprint, generated time.Time) ([]byte, error) {
	m := Manifest{
		Fingerprint: fp.RenderHash,
		Generated:   generated,
		Pages:       make([]ManifestPage, 0, len(g.Nodes)),
		Redirects:   make([]ManifestRedirect, 0, len(g.Redirects)),
	}
	for _, n := range g.Nodes {
		meta := n.Article.Meta
		redirects := meta.Redirects
		if redirects == nil {
			redirects = []string{}
		}
		m.Pages = append(m.Pages, ManifestPage{
			ID:                  meta.ID,
			Title:               meta.Title,
			Date:                meta.Date,
			Slug:                meta.Slug,
			SlugNoTrailingSlash: meta.SlugNoTrailingSlash,
			AnalyticsKey:        meta.AnalyticsKey,
			Redirects:           redirects,
			Tags:                meta.Tags,
			WordCount:           meta.WordCount,
			Draft:               meta.Draft,
			Path:                filepath.ToSlash(graph.OutPath(meta.Slug)),
			Prev:                n.Prev,
			Next:                n.Next,
		})
	}
	for _, r := range g.Redirects {
		m.Redirects = append(m.Redirects, ManifestRedirect{From: r.From, To: r.Slug, Status: r.Status})
	}
	return json.MarshalIndent(m, "", "  ")
}

func writeFile(root, rel string, data []byte) error {
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}

func (b *Builder) copyStaticAssets(outDir string) error {
	src := b.Cfg.Build.StaticDir
	if strings.TrimSpace(src) == "" {
		return nil
	}
	// 如果没有 static 目录就算了
	info, err := os.Stat(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if !info.IsDir() {
		return nil
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		in, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return writeFile(outDir, rel, in)
	})
}
