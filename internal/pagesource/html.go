package pagesource

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// HTMLParser handles HTML files, emitting markdown-like lines: heading
// tags become # headers, list items become - markers, table rows become
// | rows, images become ![alt](src). An <hr> starts a new page.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*Document, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := titleFromFilename(filename)
	if t := findTitle(doc); t != "" {
		title = t
	}

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

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				writeBlock(strings.Repeat("#", level) + " " + textContent(n))
				return
			}
			switch n.Data {
			case "script", "style", "nav", "footer", "header":
				return
			case "hr":
				pageTexts = append(pageTexts, page.String())
				page.Reset()
				return
			case "p", "blockquote":
				writeBlock(textContent(n))
				return
			case "ul", "ol":
				writeBlock(renderHTMLList(n))
				return
			case "table":
				writeBlock(renderHTMLTable(n))
				return
			case "pre":
				writeBlock("```\n" + textContent(n) + "\n```")
				return
			case "img":
				alt, src := attr(n, "alt"), attr(n, "src")
				if src != "" {
					writeBlock(fmt.Sprintf("![%s](%s)", alt, src))
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findBody(doc); body != nil {
		walk(body)
	} else {
		walk(doc)
	}
	pageTexts = append(pageTexts, page.String())

	return &Document{Title: title, Pages: paginate(pageTexts)}, nil
}

func renderHTMLList(n *html.Node) string {
	var buf strings.Builder
	ordered := n.Data == "ol"
	index := 1
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "li" {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		if ordered {
			buf.WriteString(fmt.Sprintf("%d. ", index))
			index++
		} else {
			buf.WriteString("- ")
		}
		buf.WriteString(textContent(c))
	}
	return buf.String()
}

func renderHTMLTable(n *html.Node) string {
	var rows []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					cells = append(cells, textContent(c))
				}
			}
			if len(cells) > 0 {
				rows = append(rows, "| "+strings.Join(cells, " | ")+" |")
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(rows, "\n")
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
