// Package markdown extracts structure from a markdown body without rendering
// it: headings, a title fallback and a word count.
package markdown

import (
	"bytes"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"strings"
	"thinblog/internal/domain/content"
)

type Outliner struct {
	md goldmark.Markdown
}

func NewOutliner() *Outliner {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Strikethrough,
			extension.Table,
		),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
	return &Outliner{md: md}
}

type Outline struct {
	Headings  []content.Heading
	WordCount int
}

// Title returns the text of the shallowest, earliest heading.
func (o Outline) Title() string {
	best := -1
	for i, h := range o.Headings {
		if best < 0 || h.Level < o.Headings[best].Level {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return o.Headings[best].Text
}

func (r *Outliner) Outline(src []byte) Outline {
	ctx := parser.NewContext()
	reader := text.NewReader(src)
	doc := r.md.Parser().Parse(reader, parser.WithContext(ctx))

	var out Outline
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			var idStr string
			if id, ok := node.AttributeString("id"); ok {
				switch v := id.(type) {
				case string:
					idStr = v
				case []byte:
					idStr = string(v)
				}
			}
			out.Headings = append(out.Headings, content.Heading{
				Level: node.Level,
				ID:    idStr,
				Text:  strings.TrimSpace(inlineText(node, src)),
			})
		case *ast.Text:
			out.WordCount += len(strings.Fields(string(node.Segment.Value(src))))
		}
		return ast.WalkContinue, nil
	})
	return out
}

func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if seg, ok := c.(*ast.Text); ok {
			buf.Write(seg.Segment.Value(src))
			if seg.SoftLineBreak() {
				buf.WriteByte(' ')
			}
			continue
		}
		buf.WriteString(inlineText(c, src))
	}
	return buf.String()
}
