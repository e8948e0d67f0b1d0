package parse

import (
	"regexp"
	"strings"

	"github.com/dgallion1/chunkd/internal/section"
)

// listMarkerRe matches a leading bullet symbol or a digit sequence
// followed by a period. Known limitation: a short numbered sentence
// ("1. This is not a list.") classifies as a list item.
var listMarkerRe = regexp.MustCompile(`^\s*(?:[-*+\x{2022}]|\d+\.)\s+`)

// ParagraphSeparator joins buffered paragraph contents on flush.
const ParagraphSeparator = "\n\n"

// classifyText resolves a raw text section to paragraph or list based
// on its first non-blank line.
func classifyText(content string) section.Kind {
	for _, line := range strings.Split(content, "\n") {
		if isBlank(line) {
			continue
		}
		if listMarkerRe.MatchString(line) {
			return section.KindList
		}
		return section.KindParagraph
	}
	return section.KindParagraph
}

type consolidatorState int

const (
	stateEmpty consolidatorState = iota
	stateAccumulating
)

// Consolidate merges consecutive plain-paragraph sections into larger
// units. Lists, headers, and protected sections pass through unchanged
// and are never absorbed into a paragraph buffer. The flushed section
// keeps the first buffered item's breadcrumbs and the union span.
func Consolidate(secs []section.Section) []section.Section {
	var (
		out      []section.Section
		state    = stateEmpty
		contents []string
		first    section.Section
		spanEnd  int
	)

	flush := func() {
		if state == stateEmpty {
			return
		}
		out = append(out, section.Section{
			Kind:        section.KindParagraph,
			Content:     strings.Join(contents, ParagraphSeparator),
			Breadcrumbs: first.Breadcrumbs,
			Span:        section.Span{Start: first.Span.Start, End: spanEnd},
		})
		state = stateEmpty
		contents = nil
	}

	for _, s := range secs {
		kind := s.Kind
		if kind == section.KindText {
			kind = classifyText(s.Content)
		}

		if kind == section.KindParagraph {
			if state == stateEmpty {
				first = s
			}
			contents = append(contents, s.Content)
			spanEnd = s.Span.End
			state = stateAccumulating
			continue
		}

		flush()
		s.Kind = kind
		out = append(out, s)
	}
	flush()

	return out
}
