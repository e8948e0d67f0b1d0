package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/chunkd/internal/section"
)

// Decision is the outcome of the continuation check for one page
// boundary. Rule names the matched rule; an empty rule means neither
// rule fired and the conservative default (no continuation) applied.
type Decision struct {
	Continuation bool
	Rule         string
}

const (
	RuleUnterminatedSentence = "unterminated-sentence"
	RuleOpenFragment         = "open-fragment"
)

// DetectContinuation decides whether a page's trailing chunk and the
// next page's leading chunk are one logical unit split by pagination.
// It is a pure function: first matching rule wins, ambiguity never
// defaults to merging.
func DetectContinuation(prev, next *section.Chunk) Decision {
	if prev == nil || next == nil {
		return Decision{}
	}
	prevText := strings.TrimSpace(prev.ContentOnly)
	nextText := strings.TrimSpace(next.ContentOnly)
	if prevText == "" || nextText == "" {
		return Decision{}
	}

	// Rule 1: sentence runs off the page and the next page does not
	// open a new sentence or header.
	if !endsSentence(prevText) && !startsUpperOrHeader(nextText) {
		return Decision{Continuation: true, Rule: RuleUnterminatedSentence}
	}

	// Rule 2: same breadcrumb path and the trailing chunk is an open
	// table or list fragment.
	if equalPath(prev.Metadata.Breadcrumbs, next.Metadata.Breadcrumbs) && openFragment(prev) {
		return Decision{Continuation: true, Rule: RuleOpenFragment}
	}

	return Decision{}
}

func endsSentence(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r == '.' || r == '?' || r == '!'
}

func startsUpperOrHeader(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r == '#' || unicode.IsUpper(r)
}

func equalPath(a, b []string) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// openFragment reports whether the chunk trails off inside a table or
// list: its last non-blank line is still a row or an item with no
// sentence-terminal close.
func openFragment(c *section.Chunk) bool {
	line := lastNonBlankLine(c.ContentOnly)
	switch c.Metadata.Kind {
	case section.KindTable:
		return strings.HasPrefix(line, "|")
	case section.KindList:
		return line != "" && !endsSentence(line)
	}
	return false
}

func lastNonBlankLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if t := strings.TrimSpace(lines[i]); t != "" {
			return t
		}
	}
	return ""
}

// mergeBoundary fuses two boundary chunks into one. Structural
// fragments (tables, lists) join with a newline, prose with a space.
// Breadcrumbs take the deeper path, the earlier page's on a tie; id,
// size, and quality metrics are recomputed over the merged content.
func mergeBoundary(prev, next *section.Chunk) section.Chunk {
	sep := " "
	if prev.Metadata.Kind == section.KindTable || prev.Metadata.Kind == section.KindList {
		sep = "\n"
	}
	content := prev.ContentOnly + sep + next.ContentOnly

	crumbs := prev.Metadata.Breadcrumbs
	if len(next.Metadata.Breadcrumbs) > len(crumbs) {
		crumbs = next.Metadata.Breadcrumbs
	}

	meta := buildMetadata(content, prev.Metadata.Kind, crumbs,
		prev.Metadata.SourceID, prev.Metadata.PageNumber)
	meta.PageEnd = next.Metadata.PageNumber
	if next.Metadata.PageEnd > meta.PageEnd {
		meta.PageEnd = next.Metadata.PageEnd
	}

	text := content
	if len(crumbs) > 0 {
		text = strings.Join(crumbs, " > ") + "\n\n" + content
	}
	return section.Chunk{
		ID:          ChunkID(meta.SourceID, meta.PageNumber, content),
		Text:        text,
		ContentOnly: content,
		Metadata:    meta,
	}
}
