// Package parse partitions page text into typed, breadcrumb-tagged
// sections interleaved with protected blocks, then consolidates
// consecutive paragraphs into larger units.
package parse

import (
	"regexp"

	"github.com/dgallion1/chunkd/internal/section"
)

var headerRe = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*$`)

// Header levels 1-2 are major, 3+ are minor.
const majorHeaderMaxLevel = 2

type crumb struct {
	level int
	title string
}

// walker carries the breadcrumb stack and the partition cursor across
// plain regions and protected blocks.
type walker struct {
	text  string
	out   []section.Section
	stack []crumb

	// pending is the first offset not yet covered by an emitted span.
	// Blank separator lines are absorbed into the next section's span
	// so the output partitions the source with no gaps.
	pending int
}

// Sections walks the page text left to right. Protected blocks (already
// merged and disjoint) are emitted verbatim as typed sections; the text
// between them is split into header sections and raw text runs. The
// returned sections cover the source exactly once, in order.
func Sections(text string, blocks []section.ProtectedBlock) []section.Section {
	w := &walker{text: text}

	cursor := 0
	for _, b := range blocks {
		w.plainRegion(cursor, b.Start)
		w.emit(b.Kind, b.Content, b.End)
		cursor = b.End
	}
	w.plainRegion(cursor, len(text))

	// Trailing whitespace with no section after it extends the last span.
	if n := len(w.out); n > 0 && w.out[n-1].Span.End < len(text) {
		w.out[n-1].Span.End = len(text)
	}
	return w.out
}

func (w *walker) emit(kind section.Kind, content string, end int) {
	w.out = append(w.out, section.Section{
		Kind:        kind,
		Content:     content,
		Breadcrumbs: w.path(),
		Span:        section.Span{Start: w.pending, End: end},
	})
	w.pending = end
}

func (w *walker) path() []string {
	if len(w.stack) == 0 {
		return nil
	}
	p := make([]string, len(w.stack))
	for i, c := range w.stack {
		p[i] = c.title
	}
	return p
}

// plainRegion splits text[from:to) by line into header sections and raw
// text runs. Blank lines terminate a run; header lines update the
// breadcrumb stack.
func (w *walker) plainRegion(from, to int) {
	runStart, runEnd := -1, -1

	flushRun := func() {
		if runStart < 0 {
			return
		}
		w.emit(section.KindText, w.text[runStart:runEnd], runEnd)
		runStart, runEnd = -1, -1
	}

	lineStart := from
	for lineStart < to {
		lineEnd := lineStart
		for lineEnd < to && w.text[lineEnd] != '\n' {
			lineEnd++
		}
		nextStart := lineEnd
		if nextStart < to {
			nextStart++ // past the newline
		}
		line := w.text[lineStart:lineEnd]

		switch {
		case isBlank(line):
			flushRun()
		case headerRe.MatchString(line):
			flushRun()
			m := headerRe.FindStringSubmatch(line)
			level, title := len(m[1]), m[2]
			for len(w.stack) > 0 && w.stack[len(w.stack)-1].level >= level {
				w.stack = w.stack[:len(w.stack)-1]
			}
			w.stack = append(w.stack, crumb{level: level, title: title})
			kind := section.KindHeaderMinor
			if level <= majorHeaderMaxLevel {
				kind = section.KindHeaderMajor
			}
			w.emit(kind, line, lineEnd)
		default:
			if runStart < 0 {
				runStart = lineStart
			}
			runEnd = lineEnd
		}

		lineStart = nextStart
	}
	flushRun()
}

func isBlank(line string) bool {
	for i := 0; i < len(line); i++ {
		if line[i] != ' ' && line[i] != '\t' && line[i] != '\r' {
			return false
		}
	}
	return true
}
