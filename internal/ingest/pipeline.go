package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	buildhash "thinblog/internal/domain/build"
	"thinblog/internal/domain/content"
	"thinblog/internal/domain/slug"
	"thinblog/internal/markdown"
)

type Warning struct {
	Path string
	Msg  string
}

func (w Warning) String() string { return w.Path + ": " + w.Msg }

type Result struct {
	Article content.Article
	Warns   []Warning
	Skip    bool
	Err     error
}

// Ingest reads every markdown file under sourceDir into an article. Output is
// ordered by source path regardless of worker scheduling; a file whose
// canonical slug was already taken by an earlier file is skipped.
func Ingest(sourceDir string) ([]content.Article, []Warning, error) {
	files, err := DiscoverSource(sourceDir)
	if err != nil {
		return nil, nil, err
	}

	workers := runtime.GOMAXPROCS(0)
	jobs := make(chan SourceFile)
	results := make(chan Result)

	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outliner := markdown.NewOutliner()
			for sf := range jobs {
				results <- ingestFile(sourceDir, sf, outliner)
			}
		}()
	}

	go func() {
		for _, f := range files {
			jobs <- f
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	var out []content.Article
	var warns []Warning
	var firstErr error
	for r := range results {
		if r.Err != nil {
			if firstErr == nil {
				firstErr = r.Err
			}
			continue
		}
		warns = append(warns, r.Warns...)
		if r.Skip {
			continue
		}
		out = append(out, r.Article)
	}
	if firstErr != nil {
		return nil, nil, firstErr
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Body.SourcePath < out[j].Body.SourcePath })
	sort.SliceStable(warns, func(i, j int) bool { return warns[i].Path < warns[j].Path })

	seen := make(map[string]string, len(out))
	filtered := make([]content.Article, 0, len(out))
	for _, a := range out {
		if prev, ok := seen[a.Meta.Slug]; ok {
			warns = append(warns, Warning{
				Path: a.Body.SourcePath,
				Msg:  "slug " + a.Meta.Slug + " already used by " + prev + ", skipped",
			})
			continue
		}
		seen[a.Meta.Slug] = a.Body.SourcePath
		filtered = append(filtered, a)
	}
	return filtered, warns, nil
}

func ingestFile(root string, sf SourceFile, outliner *markdown.Outliner) Result {
	st, err := os.Stat(sf.Path)
	if err != nil {
		return Result{Err: err}
	}
	raw, err := os.ReadFile(sf.Path)
	if err != nil {
		return Result{Err: err}
	}

	fm, body, fmErr := ParseFrontMatter(raw)

	var warns []Warning
	if fmErr != nil && !errors.Is(fmErr, errNoFrontMatter) {
		warns = append(warns, Warning{
			Path: sf.Path,
			Msg:  "failed to parse front matter: " + fmErr.Error(),
		})
		return Result{Warns: warns, Skip: true}
	}
	if fm.Hidden {
		return Result{Skip: true}
	}

	segments, err := FileSegments(root, sf.Path)
	if err != nil {
		return Result{Err: err}
	}
	rel, _ := filepath.Rel(root, sf.Path)

	meta := content.ArticleMeta{
		ID:          filepath.ToSlash(rel),
		Title:       fm.Title,
		Tags:        fm.Tags,
		Description: fm.Description,
		Hidden:      fm.Hidden,
		Draft:       fm.Draft,
		Aliases:     fm.LegacyPaths(),
	}
	meta.SetSlugs(slug.FileSlug(segments), fm.Slug)

	outline := outliner.Outline(body)
	meta.Headings = outline.Headings
	meta.WordCount = outline.WordCount
	if strings.TrimSpace(meta.Title) == "" {
		meta.Title = outline.Title()
	}
	if strings.TrimSpace(meta.Title) == "" {
		warns = append(warns, Warning{Path: sf.Path, Msg: "title is empty"})
	}

	meta.Date = ParseTime(fm.Date)
	meta.Updated = ParseTime(fm.Updated)
	if meta.Date.IsZero() {
		meta.Date = st.ModTime().In(time.Local)
		warns = append(warns, Warning{
			Path: sf.Path,
			Msg:  "using file modification time for date",
		})
	}
	if meta.Updated.IsZero() {
		meta.Updated = meta.Date
	}
	meta.Normalize()

	return Result{
		Article: content.Article{
			Meta: meta,
			Body: content.BodyRef{
				SourcePath:  sf.Path,
				ContentHash: buildhash.HashBytes(raw),
			},
		},
		Warns: warns,
	}
}
