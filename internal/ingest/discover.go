package ingest

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

type SourceFile struct {
	Path string
}

func isMarkdown(name string) bool {
	name = strings.ToLower(name)
	return strings.HasSuffix(name, ".md") || strings.HasSuffix(name, ".markdown")
}

// DiscoverSource lists markdown files under root in lexical order. Dot
// directories are skipped.
func DiscoverSource(root string) ([]SourceFile, error) {
	var out []SourceFile

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if isMarkdown(d.Name()) {
			out = append(out, SourceFile{Path: path})
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, err
}
