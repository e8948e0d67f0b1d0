// Package pagesource converts uploaded documents into per-page
// markdown-like text for the chunking pipeline. Parsers normalize
// structure into line markers the core detects: # headers, - list
// items, | table rows, fenced code, image references.
package pagesource

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Page is one page of normalized text.
type Page struct {
	Number int    `json:"page_number"`
	Text   string `json:"text"`
}

// Document is a parsed source document.
type Document struct {
	Title string `json:"title"`
	Pages []Page `json:"pages"`
}

// Parser converts raw document bytes into pages of text.
type Parser interface {
	Parse(r io.Reader, filename string) (*Document, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".html": true,
	".htm":  true,
	".pdf":  true,
	".docx": true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// paginate numbers non-empty page texts starting at 1, preserving the
// original page positions of empty pages.
func paginate(texts []string) []Page {
	var pages []Page
	for i, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		pages = append(pages, Page{Number: i + 1, Text: t})
	}
	return pages
}

func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
