package pagesource

import (
	"io"
	"strings"
)

// TextParser handles plain text files. Form feeds separate pages; a
// file without them is a single page.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")

	return &Document{
		Title: titleFromFilename(filename),
		Pages: paginate(strings.Split(text, "\f")),
	}, nil
}
