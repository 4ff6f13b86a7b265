package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"gopkg.in/yaml.v3"
	"path/filepath"
	"strings"
	"time"
)

var errNoFrontMatter = errors.New("no front matter found")
var errInvalidFrontMatter = errors.New("invalid front matter")

// StringList accepts either a YAML scalar or a sequence of scalars, the way
// redirect_from is written in the wild.
type StringList []string

func (l *StringList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			*l = nil
			return nil
		}
		*l = StringList{n.Value}
		return nil
	case yaml.SequenceNode:
		out := make(StringList, 0, len(n.Content))
		for _, c := range n.Content {
			if c.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: alias entries must be strings", c.Line)
			}
			if c.Tag == "!!null" {
				continue
			}
			out = append(out, c.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", n.Line)
	}
}

type FrontMatter struct {
	Title       string `yaml:"title"`
	Slug        string `yaml:"slug"`
	Date        string `yaml:"date"`
	Updated     string `yaml:"updated"`
	Description string `yaml:"description"`

	Tags []string `yaml:"tags"`

	Hidden bool `yaml:"hidden"`
	Draft  bool `yaml:"draft"`

	Aliases           StringList `yaml:"aliases"`
	RedirectFrom      StringList `yaml:"redirect_from"`
	RedirectFromCamel StringList `yaml:"redirectFrom"`
	OldSlugs          StringList `yaml:"oldSlugs"`
}

// LegacyPaths flattens every alias field in declaration order.
func (fm FrontMatter) LegacyPaths() []string {
	var out []string
	for _, l := range []StringList{fm.Aliases, fm.RedirectFrom, fm.RedirectFromCamel, fm.OldSlugs} {
		out = append(out, l...)
	}
	return out
}

func ParseFrontMatter(raw []byte) (FrontMatter, []byte, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return FrontMatter{}, raw, errNoFrontMatter
	}

	// 统一换行符
	norm := bytes.ReplaceAll(raw, []byte("\r\n"), []byte("\n"))
	norm = bytes.ReplaceAll(norm, []byte("\r"), []byte("\n"))

	const (
		sep      = "---"
		sepLine  = sep + "\n"
		closeMid = "\n" + sep + "\n"
	)

	if !bytes.HasPrefix(norm, []byte(sepLine)) {
		return FrontMatter{}, norm, errNoFrontMatter
	}

	rest := norm[len(sepLine):]

	var yamlPart, bodyPart []byte

	if parts := bytes.SplitN(rest, []byte(closeMid), 2); len(parts) == 2 {
		yamlPart = parts[0]
		bodyPart = parts[1]
	} else if bytes.HasSuffix(rest, []byte("\n"+sep)) {
		yamlPart = rest[:len(rest)-len("\n"+sep)]
	} else if bytes.HasPrefix(rest, []byte(sepLine)) || bytes.Equal(bytes.TrimSpace(rest), []byte(sep)) {
		// "---\n---" 空 front matter
		bodyPart = bytes.TrimPrefix(bytes.TrimPrefix(rest, []byte(sep)), []byte("\n"))
	} else {
		return FrontMatter{}, raw, errInvalidFrontMatter
	}

	yamlPart = bytes.TrimSpace(yamlPart)
	bodyPart = bytes.TrimSpace(bodyPart)

	var fm FrontMatter
	if len(yamlPart) > 0 {
		if err := yaml.Unmarshal(yamlPart, &fm); err != nil {
			return FrontMatter{}, raw, err
		}
	}
	return fm, bodyPart, nil
}

// FileSegments returns the slug segments of a content file relative to root:
// directories plus the base name without extension, where an "index" file
// stands for its directory.
func FileSegments(root, path string) ([]string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return nil, err
	}
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(rel, "../") {
		return nil, fmt.Errorf("%s is outside %s", path, root)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	parts := strings.Split(rel, "/")
	if last := parts[len(parts)-1]; strings.EqualFold(last, "index") {
		parts = parts[:len(parts)-1]
	}
	return parts, nil
}

func ParseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339,
		time.DateOnly,
		"2006-01-02 15:04",
		time.DateTime,
	} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
