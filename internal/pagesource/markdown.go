package pagesource

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. The AST walk
// re-emits normalized block text (headings, fences, list markers) and
// splits pages on thematic breaks.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	reader := text.NewReader(src)
	doc := md.Parser().Parse(reader)

	title := titleFromFilename(filename)
	var pageTexts []string
	var page strings.Builder

	writeBlock := func(s string) {
		if s == "" {
			return
		}
		if page.Len() > 0 {
			page.WriteString("\n\n")
		}
		page.WriteString(s)
	}
	endPage := func() {
		pageTexts = append(pageTexts, page.String())
		page.Reset()
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			heading := string(node.Text(src))
			if node.Level == 1 && title == titleFromFilename(filename) {
				title = heading
			}
			writeBlock(strings.Repeat("#", node.Level) + " " + heading)

		case *ast.ThematicBreak:
			endPage()

		case *ast.FencedCodeBlock:
			var buf bytes.Buffer
			buf.WriteString("```")
			if lang := node.Language(src); lang != nil {
				buf.Write(lang)
			}
			buf.WriteByte('\n')
			buf.WriteString(rawLines(node, src))
			buf.WriteString("```")
			writeBlock(buf.String())

		case *ast.List:
			writeBlock(renderList(node, src))

		default:
			writeBlock(strings.TrimRight(rawLines(n, src), "\n"))
		}
	}
	endPage()

	return &Document{Title: title, Pages: paginate(pageTexts)}, nil
}

// rawLines returns a block node's source lines verbatim, so pipe
// tables and inline image references survive normalization.
func rawLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
	}
	if buf.Len() == 0 {
		return inlineText(n, src)
	}
	return buf.String()
}

func renderList(list *ast.List, src []byte) string {
	var buf strings.Builder
	index := list.Start
	if index == 0 {
		index = 1
	}
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		if list.IsOrdered() {
			buf.WriteString(fmt.Sprintf("%d. ", index))
			index++
		} else {
			buf.WriteString("- ")
		}
		buf.WriteString(strings.TrimSpace(inlineText(item, src)))
	}
	return buf.String()
}

// inlineText collects the text content of a node's inline children.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		} else {
			buf.WriteString(inlineText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
