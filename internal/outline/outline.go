// Package outline builds a document's table of contents and schedules its
// refresh.
package outline

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// Heading is one entry of the outline.
type Heading struct {
	Level int
	Text  string
	ID    string // anchor generated from the heading text
	Line  int    // 1-based source line
}

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// Extract returns the headings of a markdown document in order.
func Extract(content string) []Heading {
	source := []byte(content)
	doc := md.Parser().Parse(text.NewReader(source))

	var headings []Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}

		entry := Heading{Level: h.Level, Text: headingText(h, source)}
		if id, ok := h.AttributeString("id"); ok {
			if b, ok := id.([]byte); ok {
				entry.ID = string(b)
			}
		}
		if lines := h.Lines(); lines.Len() > 0 {
			entry.Line = bytes.Count(source[:lines.At(0).Start], []byte("\n")) + 1
		}
		headings = append(headings, entry)
		return ast.WalkSkipChildren, nil
	})
	return headings
}

// headingText concatenates the text leaves under n.
func headingText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		case *ast.CodeSpan:
			for cc := t.FirstChild(); cc != nil; cc = cc.NextSibling() {
				if tx, ok := cc.(*ast.Text); ok {
					sb.Write(tx.Segment.Value(source))
				}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

// Render formats headings as an indented list, two spaces per level below
// the shallowest heading.
func Render(headings []Heading) string {
	if len(headings) == 0 {
		return ""
	}
	minLevel := headings[0].Level
	for _, h := range headings {
		minLevel = min(minLevel, h.Level)
	}

	var sb strings.Builder
	for _, h := range headings {
		sb.WriteString(strings.Repeat("  ", h.Level-minLevel))
		sb.WriteString("- ")
		sb.WriteString(h.Text)
		sb.WriteByte('\n')
	}
	return sb.String()
}
